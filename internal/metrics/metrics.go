// Package metrics exposes Prometheus collectors for provider calls and
// audit runs.
package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/parmira/forensic"
	"github.com/parmira/forensic/client"
	"github.com/parmira/forensic/event"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeNoImage = "no_image"
)

// Metrics records provider and session activity.
type Metrics struct {
	requests   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	retries    *prometheus.CounterVec
	verdicts   *prometheus.CounterVec
	runs       *prometheus.CounterVec
	inProgress prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forensic_provider_requests_total",
			Help: "Provider calls by operation, provider and outcome.",
		}, []string{"operation", "provider", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "forensic_provider_request_duration_seconds",
			Help:    "Provider call latency.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"operation", "provider"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forensic_provider_retries_total",
			Help: "Transient provider failures that were retried.",
		}, []string{"operation", "provider"}),
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forensic_verdicts_total",
			Help: "Decoded forensic reports by verdict.",
		}, []string{"verdict"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forensic_audit_runs_total",
			Help: "Finished audit runs by outcome.",
		}, []string{"outcome"}),
		inProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "forensic_audit_in_progress",
			Help: "Audit runs currently executing.",
		}),
	}
	reg.MustRegister(m.requests, m.latency, m.retries, m.verdicts, m.runs, m.inProgress)
	return m
}

// ObserveClient records a provider call event.
func (m *Metrics) ObserveClient(ev client.Event) {
	provider := string(ev.Provider)
	switch ev.Type {
	case client.EventRequestComplete:
		m.requests.WithLabelValues(ev.Operation, provider, OutcomeSuccess).Inc()
		m.latency.WithLabelValues(ev.Operation, provider).Observe(ev.Duration.Seconds())
		if ev.Verdict != "" {
			m.verdicts.WithLabelValues(string(ev.Verdict)).Inc()
		}
	case client.EventRequestError:
		outcome := OutcomeError
		if errors.Is(ev.Error, forensic.ErrNoImage) {
			outcome = OutcomeNoImage
		}
		m.requests.WithLabelValues(ev.Operation, provider, outcome).Inc()
		m.latency.WithLabelValues(ev.Operation, provider).Observe(ev.Duration.Seconds())
	case client.EventRetry:
		m.retries.WithLabelValues(ev.Operation, provider).Inc()
	}
}

// ObserveSession records a session lifecycle event.
func (m *Metrics) ObserveSession(ev event.Event) {
	switch ev.Type {
	case event.RunStart:
		m.inProgress.Inc()
	case event.RunEnd:
		m.inProgress.Dec()
		m.runs.WithLabelValues(OutcomeSuccess).Inc()
	case event.RunError:
		m.inProgress.Dec()
		m.runs.WithLabelValues(OutcomeError).Inc()
	}
}

// Consume records events from both channels until ctx is done or both
// channels are closed. Either channel may be nil.
func (m *Metrics) Consume(ctx context.Context, clientEvents <-chan client.Event, sessionEvents <-chan event.Event) {
	for clientEvents != nil || sessionEvents != nil {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-clientEvents:
			if !ok {
				clientEvents = nil
				continue
			}
			m.ObserveClient(ev)
		case ev, ok := <-sessionEvents:
			if !ok {
				sessionEvents = nil
				continue
			}
			m.ObserveSession(ev)
		}
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
