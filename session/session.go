package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parmira/forensic"
	"github.com/parmira/forensic/event"
)

// ErrBusy is returned by Run when an audit is already in progress.
var ErrBusy = errors.New("audit already in progress")

const subscriberBuffer = 64

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithInput sets the initial telemetry text. Defaults to
// [forensic.SampleTelemetry].
func WithInput(text string) Option {
	return func(s *Session) {
		s.input = text
	}
}

// Session is one operator's audit workspace. It is safe for concurrent use.
type Session struct {
	gw  *forensic.Gateway
	log *slog.Logger

	mu      sync.Mutex
	input   string
	runID   string
	state   State
	subs    map[int]chan event.Event
	nextSub int
}

// New creates a session in the Idle state.
func New(gw *forensic.Gateway, opts ...Option) *Session {
	s := &Session{
		gw:    gw,
		log:   slog.Default(),
		input: forensic.SampleTelemetry,
		state: Idle{},
		subs:  make(map[int]chan event.Event),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{RunID: s.runID, Input: s.input, State: s.state}
}

// SetInput replaces the telemetry text without starting an audit.
func (s *Session) SetInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = text
}

// Submit starts an audit of input in the background and returns its run ID.
// It returns false without issuing any request when input is blank or an
// audit is already in progress. The workflow is detached from ctx
// cancellation.
func (s *Session) Submit(ctx context.Context, input string) (string, bool) {
	runID, ok := s.begin(input)
	if !ok {
		return "", false
	}
	go s.execute(context.WithoutCancel(ctx), runID, input)
	return runID, true
}

// Run performs an audit of input synchronously and returns the final
// snapshot. The returned error is the failure held by a Failed state,
// [forensic.ErrEmptyInput] for blank input, or [ErrBusy].
func (s *Session) Run(ctx context.Context, input string) (Snapshot, error) {
	if forensic.Blank(input) {
		return s.Snapshot(), forensic.ErrEmptyInput
	}
	runID, ok := s.begin(input)
	if !ok {
		return s.Snapshot(), ErrBusy
	}
	s.execute(ctx, runID, input)
	snap := s.Snapshot()
	return snap, snap.Err()
}

// Dismiss clears a failure. A failed run that still produced a report
// returns to Complete so the report stays visible; otherwise the session
// returns to Idle. It reports whether anything changed.
func (s *Session) Dismiss() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	failed, ok := s.state.(Failed)
	if !ok {
		return false
	}
	if failed.Report != nil {
		s.state = Complete{Report: failed.Report, Plot: failed.Plot, Trace: failed.Trace}
	} else {
		s.state = Idle{}
	}
	s.broadcastLocked(event.Event{Type: event.StateSnapshot, RunID: s.runID, State: s.snapshotLocked()})
	return true
}

// Subscribe returns a channel of session events and a function that
// unsubscribes and closes it. Events are dropped when the channel is full.
func (s *Session) Subscribe() (<-chan event.Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan event.Event, subscriberBuffer)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

// begin resets the previous results and enters Auditing.
func (s *Session) begin(input string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if forensic.Blank(input) {
		s.log.Debug("submission ignored", "reason", "blank input")
		return "", false
	}
	if s.state.InProgress() {
		s.log.Debug("submission ignored", "reason", "audit in progress", "run_id", s.runID)
		return "", false
	}

	s.input = input
	s.runID = uuid.NewString()
	s.state = Auditing{}
	s.broadcastLocked(event.Event{Type: event.RunStart, RunID: s.runID})
	s.broadcastLocked(event.Event{Type: event.StateSnapshot, RunID: s.runID, State: s.snapshotLocked()})
	return s.runID, true
}

func (s *Session) execute(ctx context.Context, runID, input string) {
	log := s.log.With("run_id", runID)
	start := time.Now()

	records, _ := forensic.ParseTelemetry(input)
	log.Info("audit started", "bytes", len(input), "records", len(records))

	s.emit(runID, event.Event{Type: event.StepStart, StepName: event.StepDiagnostics})
	res, err := s.gw.Auditor.Audit(ctx, input)
	s.emit(runID, event.Event{Type: event.StepEnd, StepName: event.StepDiagnostics})
	if err == nil && (res == nil || res.Report == nil) {
		err = forensic.ErrDecode
	}
	if err != nil {
		log.Error("audit failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		s.fail(runID, Failed{Err: err})
		return
	}

	report := res.Report
	log.Info("audit decoded",
		"verdict", report.Verdict,
		"failure_index", report.Breach.FailureIndex,
		"plot", res.Plot != nil,
		"trace_lines", len(res.Trace),
	)

	if !report.HasImagePrompt() || s.gw.Renderer == nil {
		reason := "no image prompt"
		if s.gw.Renderer == nil {
			reason = "no renderer configured"
		}
		s.emit(runID, event.Event{Type: event.StepSkipped, StepName: event.StepEvidence, Message: reason})
		s.finish(runID, Complete{Report: report, Plot: res.Plot, Trace: res.Trace}, log, start)
		return
	}

	if !s.transition(runID, GeneratingEvidence{Report: report, Plot: res.Plot, Trace: res.Trace}) {
		return
	}
	s.emit(runID, event.Event{Type: event.StepStart, StepName: event.StepEvidence})
	img, err := s.gw.Renderer.RenderImage(ctx, report.ImagePrompt)
	s.emit(runID, event.Event{Type: event.StepEnd, StepName: event.StepEvidence})

	switch {
	case errors.Is(err, forensic.ErrNoImage):
		log.Warn("no reconstruction image returned", "error", err)
		s.finish(runID, Complete{Report: report, Plot: res.Plot, Trace: res.Trace}, log, start)
	case err != nil:
		log.Error("evidence rendering failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		s.fail(runID, Failed{Err: err, Report: report, Plot: res.Plot, Trace: res.Trace})
	default:
		s.finish(runID, Complete{Report: report, Plot: res.Plot, Reconstruction: img, Trace: res.Trace}, log, start)
	}
}

func (s *Session) finish(runID string, st Complete, log *slog.Logger, start time.Time) {
	if !s.transition(runID, st) {
		return
	}
	s.emit(runID, event.Event{Type: event.RunEnd})
	log.Info("audit complete",
		"status", st.Status(),
		"reconstruction", st.Reconstruction != nil,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func (s *Session) fail(runID string, st Failed) {
	if !s.transition(runID, st) {
		return
	}
	s.emit(runID, event.Event{Type: event.RunError, Error: st.Err})
}

// transition moves to st unless a newer run has replaced runID.
func (s *Session) transition(runID string, st State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runID != runID {
		s.log.Warn("stale result discarded", "run_id", runID, "current_run_id", s.runID)
		return false
	}
	s.state = st
	s.broadcastLocked(event.Event{Type: event.StateSnapshot, RunID: runID, State: s.snapshotLocked()})
	return true
}

func (s *Session) emit(runID string, e event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runID != runID {
		return
	}
	e.RunID = runID
	s.broadcastLocked(e)
}

func (s *Session) broadcastLocked(e event.Event) {
	for _, ch := range s.subs {
		event.Emit(ch, e)
	}
}
