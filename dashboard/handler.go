package dashboard

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	aguievents "github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"

	"github.com/parmira/forensic/agui"
	"github.com/parmira/forensic/session"
	"github.com/parmira/forensic/sim"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"imageURL": imageURL,
	"hacks":    func() []sim.Hack { return sim.Hacks },
}).ParseFS(templateFS, "templates/index.html"))

// imageURL marks image data URLs as safe for src attributes.
func imageURL(s string) template.URL {
	if strings.HasPrefix(s, "data:image/") {
		return template.URL(s)
	}
	return ""
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// WithMetrics mounts a metrics handler at /metrics.
func WithMetrics(m http.Handler) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithThreadID sets the AG-UI thread ID reported on the event stream.
func WithThreadID(id string) Option {
	return func(h *Handler) {
		h.threadID = id
	}
}

// Handler serves the console for one session.
type Handler struct {
	session  *session.Session
	log      *slog.Logger
	metrics  http.Handler
	threadID string
	mapper   *agui.Mapper
	mux      *http.ServeMux
}

// NewHandler creates a Handler for s.
func NewHandler(s *session.Session, opts ...Option) *Handler {
	h := &Handler{
		session: s,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.mapper = agui.NewMapper(h.threadID, StateOf)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("POST /audit", h.handleAudit)
	mux.HandleFunc("POST /simulate", h.handleSimulate)
	mux.HandleFunc("POST /dismiss", h.handleDismiss)
	mux.HandleFunc("GET /api/state", h.handleState)
	mux.HandleFunc("GET /api/events", h.handleEvents)
	mux.HandleFunc("GET /health", healthHandler)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}
	h.mux = mux
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	view := NewView(h.session.Snapshot())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, view); err != nil {
		h.log.Error("failed to render console", "error", err)
	}
}

// auditResponse is the JSON reply to POST /audit.
type auditResponse struct {
	Accepted bool   `json:"accepted"`
	RunID    string `json:"run_id,omitempty"`
	Reason   string `json:"reason,omitempty"`
	State    View   `json:"state"`
}

func (h *Handler) handleAudit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.log.Warn("invalid form body", "error", err)
		http.Error(w, "Invalid form body", http.StatusBadRequest)
		return
	}
	h.submit(w, r, r.PostFormValue("telemetry"))
}

// handleSimulate records a simulated flight under the attacks named in the
// hack form values and audits it.
func (h *Handler) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.log.Warn("invalid form body", "error", err)
		http.Error(w, "Invalid form body", http.StatusBadRequest)
		return
	}
	hacks, err := sim.ParseHacks(r.PostForm["hack"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var seed uint64 = 1
	if v := r.PostFormValue("seed"); v != "" {
		if seed, err = strconv.ParseUint(v, 10, 64); err != nil {
			http.Error(w, "Invalid seed", http.StatusBadRequest)
			return
		}
	}

	d := sim.New(sim.WithSeed(seed))
	telemetry, err := sim.Encode(sim.Flight(d, simNominalFrames, simAttackFrames, simSampleEvery, hacks...))
	if err != nil {
		h.log.Error("failed to encode simulated telemetry", "error", err)
		http.Error(w, "Simulation failed", http.StatusInternalServerError)
		return
	}
	h.log.Info("simulated flight", "hacks", hacks, "seed", seed)
	h.submit(w, r, telemetry)
}

// Simulated flights fly two seconds nominally and three under attack,
// sampled once per second.
const (
	simNominalFrames = 120
	simAttackFrames  = 180
	simSampleEvery   = 60
)

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, telemetry string) {
	runID, ok := h.session.Submit(r.Context(), telemetry)
	log := h.log.With("run_id", runID, "accepted", ok, "bytes", len(telemetry))
	log.Info("audit submitted")

	if !wantsJSON(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	resp := auditResponse{Accepted: ok, RunID: runID, State: NewView(h.session.Snapshot())}
	status := http.StatusAccepted
	if !ok {
		if strings.TrimSpace(telemetry) == "" {
			resp.Reason = "telemetry is empty"
			status = http.StatusBadRequest
		} else {
			resp.Reason = "audit already in progress"
			status = http.StatusConflict
		}
	}
	writeJSON(w, status, resp)
}

func (h *Handler) handleDismiss(w http.ResponseWriter, r *http.Request) {
	changed := h.session.Dismiss()
	h.log.Info("dismiss", "changed", changed)

	if !wantsJSON(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, NewView(h.session.Snapshot()))
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, NewView(h.session.Snapshot()))
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := h.log.With("remote", r.RemoteAddr)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Error("streaming not supported")
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	ch, unsubscribe := h.session.Subscribe()
	stream := h.mapper.MapStream(ch)
	defer func() {
		unsubscribe()
		for range stream {
		}
	}()
	go func() {
		<-r.Context().Done()
		unsubscribe()
	}()

	if err := writeSSE(w, flusher, h.mapper.StateSnapshot(h.session.Snapshot())); err != nil {
		log.Error("failed to write SSE event", "error", err)
		return
	}

	var eventCount int
	for ev := range stream {
		eventCount++
		log.Debug("sending SSE event", "event_type", ev.Type(), "event_num", eventCount)
		if err := writeSSE(w, flusher, ev); err != nil {
			log.Error("failed to write SSE event", "error", err, "event_type", ev.Type())
			return
		}
	}
	log.Info("event stream closed",
		"duration_ms", time.Since(start).Milliseconds(),
		"events_sent", eventCount,
	)
}

// writeSSE writes an AG-UI event in SSE format.
func writeSSE(w http.ResponseWriter, flusher http.Flusher, ev aguievents.Event) error {
	data, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	// Write SSE format: event: TYPE\ndata: {json}\n\n
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type(), string(data)); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	flusher.Flush()
	return nil
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// healthHandler returns a simple health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
