package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/parmira/forensic"
	"github.com/parmira/forensic/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAuditor struct {
	result *forensic.AuditResult
	err    error
	gate   chan struct{}
	calls  atomic.Int32
}

func (m *mockAuditor) Audit(ctx context.Context, telemetry string, opts ...forensic.Option) (*forensic.AuditResult, error) {
	m.calls.Add(1)
	if m.gate != nil {
		<-m.gate
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockRenderer struct {
	image  *forensic.Image
	err    error
	prompt atomic.Value
	calls  atomic.Int32
}

func (m *mockRenderer) RenderImage(ctx context.Context, prompt string, opts ...forensic.ImageOption) (*forensic.Image, error) {
	m.calls.Add(1)
	m.prompt.Store(prompt)
	if m.err != nil {
		return nil, m.err
	}
	return m.image, nil
}

var (
	testPlot  = &forensic.Image{MIMEType: "image/png", Data: []byte("plot")}
	testRecon = &forensic.Image{MIMEType: "image/png", Data: []byte("recon")}
)

func testReport(prompt string) *forensic.ForensicReport {
	return &forensic.ForensicReport{
		Verdict: forensic.VerdictAnomaly,
		Breach: forensic.BreachSummary{
			FailureIndex:        2,
			CompromisedHardware: []string{"logic_board"},
			Summary:             "gain inverted",
		},
		ImagePrompt: prompt,
	}
}

func newTestSession(a forensic.Auditor, r forensic.ImageRenderer) *Session {
	gw := &forensic.Gateway{Auditor: a}
	if r != nil {
		gw.Renderer = r
	}
	return New(gw, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func waitSettled(t *testing.T, s *Session) Snapshot {
	t.Helper()
	require.Eventually(t, func() bool {
		return !s.Snapshot().State.InProgress()
	}, time.Second, 5*time.Millisecond)
	return s.Snapshot()
}

func TestNew(t *testing.T) {
	s := newTestSession(&mockAuditor{}, nil)
	snap := s.Snapshot()
	assert.Equal(t, Idle{}, snap.State)
	assert.Equal(t, forensic.SampleTelemetry, snap.Input)
	assert.Empty(t, snap.RunID)

	s = New(&forensic.Gateway{}, WithInput("custom"))
	assert.Equal(t, "custom", s.Snapshot().Input)
}

func TestSubmit_FullWorkflow(t *testing.T) {
	report := testReport("a drone logic board")
	a := &mockAuditor{result: &forensic.AuditResult{Report: report, Plot: testPlot, Trace: []string{"ok"}}}
	r := &mockRenderer{image: testRecon}
	s := newTestSession(a, r)

	runID, ok := s.Submit(context.Background(), forensic.SampleTelemetry)
	require.True(t, ok)
	assert.NotEmpty(t, runID)

	snap := waitSettled(t, s)
	require.IsType(t, Complete{}, snap.State)
	assert.Equal(t, StatusComplete, snap.State.Status())
	assert.Equal(t, runID, snap.RunID)
	assert.Same(t, report, snap.Report())
	assert.Same(t, testPlot, snap.Plot())
	assert.Same(t, testRecon, snap.Reconstruction())
	assert.Equal(t, []string{"ok"}, snap.Trace())
	assert.NoError(t, snap.Err())
	assert.Equal(t, "a drone logic board", r.prompt.Load())
}

func TestSubmit_NoImagePromptSkipsRender(t *testing.T) {
	r := &mockRenderer{image: testRecon}
	s := newTestSession(&mockAuditor{result: &forensic.AuditResult{Report: testReport("  ")}}, r)

	_, ok := s.Submit(context.Background(), "data")
	require.True(t, ok)

	snap := waitSettled(t, s)
	require.IsType(t, Complete{}, snap.State)
	assert.Nil(t, snap.Reconstruction())
	assert.Equal(t, int32(0), r.calls.Load())
}

func TestSubmit_NoRendererConfigured(t *testing.T) {
	s := newTestSession(&mockAuditor{result: &forensic.AuditResult{Report: testReport("prompt")}}, nil)

	_, ok := s.Submit(context.Background(), "data")
	require.True(t, ok)

	snap := waitSettled(t, s)
	require.IsType(t, Complete{}, snap.State)
	assert.Nil(t, snap.Reconstruction())
}

func TestSubmit_MissingImageIsSoftFailure(t *testing.T) {
	r := &mockRenderer{err: &forensic.GenerationError{Model: "img", Err: forensic.ErrNoImage}}
	s := newTestSession(&mockAuditor{result: &forensic.AuditResult{Report: testReport("prompt"), Plot: testPlot}}, r)

	_, ok := s.Submit(context.Background(), "data")
	require.True(t, ok)

	snap := waitSettled(t, s)
	require.IsType(t, Complete{}, snap.State)
	assert.NoError(t, snap.Err())
	assert.Nil(t, snap.Reconstruction())
	assert.Same(t, testPlot, snap.Plot())
}

func TestSubmit_RenderFailureKeepsReport(t *testing.T) {
	boom := errors.New("image backend down")
	report := testReport("prompt")
	s := newTestSession(&mockAuditor{result: &forensic.AuditResult{Report: report, Plot: testPlot}}, &mockRenderer{err: boom})

	_, ok := s.Submit(context.Background(), "data")
	require.True(t, ok)

	snap := waitSettled(t, s)
	require.IsType(t, Failed{}, snap.State)
	assert.Equal(t, StatusFailed, snap.State.Status())
	assert.ErrorIs(t, snap.Err(), boom)
	assert.Same(t, report, snap.Report())
	assert.Same(t, testPlot, snap.Plot())

	t.Run("dismiss returns to complete", func(t *testing.T) {
		require.True(t, s.Dismiss())
		snap := s.Snapshot()
		require.IsType(t, Complete{}, snap.State)
		assert.Same(t, report, snap.Report())
		assert.False(t, s.Dismiss())
	})
}

func TestSubmit_AuditFailure(t *testing.T) {
	decodeErr := &forensic.DecodeError{Segments: 1}
	r := &mockRenderer{}
	s := newTestSession(&mockAuditor{err: decodeErr}, r)

	_, ok := s.Submit(context.Background(), "data")
	require.True(t, ok)

	snap := waitSettled(t, s)
	require.IsType(t, Failed{}, snap.State)
	assert.ErrorIs(t, snap.Err(), forensic.ErrDecode)
	assert.Nil(t, snap.Report())
	assert.Equal(t, int32(0), r.calls.Load())

	t.Run("dismiss returns to idle", func(t *testing.T) {
		require.True(t, s.Dismiss())
		assert.Equal(t, Idle{}, s.Snapshot().State)
	})
}

func TestSubmit_NilReportIsDecodeFailure(t *testing.T) {
	s := newTestSession(&mockAuditor{result: &forensic.AuditResult{}}, nil)
	_, ok := s.Submit(context.Background(), "data")
	require.True(t, ok)

	snap := waitSettled(t, s)
	assert.ErrorIs(t, snap.Err(), forensic.ErrDecode)
}

func TestSubmit_IgnoredWhileInProgress(t *testing.T) {
	gate := make(chan struct{})
	a := &mockAuditor{result: &forensic.AuditResult{Report: testReport("")}, gate: gate}
	s := newTestSession(a, nil)

	first, ok := s.Submit(context.Background(), "data")
	require.True(t, ok)
	assert.Equal(t, Auditing{}, s.Snapshot().State)
	assert.Equal(t, StatusAuditing, s.Snapshot().State.Status())

	_, ok = s.Submit(context.Background(), "other data")
	assert.False(t, ok)

	_, err := s.Run(context.Background(), "other data")
	assert.ErrorIs(t, err, ErrBusy)

	close(gate)
	snap := waitSettled(t, s)
	assert.Equal(t, first, snap.RunID)
	assert.Equal(t, "data", snap.Input)
	assert.Equal(t, int32(1), a.calls.Load())
}

func TestSubmit_IgnoresBlankInput(t *testing.T) {
	a := &mockAuditor{}
	s := newTestSession(a, nil)

	for _, input := range []string{"", "   ", "\n\t"} {
		_, ok := s.Submit(context.Background(), input)
		assert.False(t, ok)
	}
	assert.Equal(t, Idle{}, s.Snapshot().State)
	assert.Equal(t, int32(0), a.calls.Load())
}

func TestSubmit_DetachedFromCallerCancellation(t *testing.T) {
	gate := make(chan struct{})
	s := newTestSession(&mockAuditor{result: &forensic.AuditResult{Report: testReport("")}, gate: gate}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	_, ok := s.Submit(ctx, "data")
	require.True(t, ok)
	cancel()
	close(gate)

	snap := waitSettled(t, s)
	assert.IsType(t, Complete{}, snap.State)
}

func TestSubmit_ResetsPreviousResults(t *testing.T) {
	gate := make(chan struct{}, 1)
	gate <- struct{}{}
	a := &mockAuditor{result: &forensic.AuditResult{Report: testReport("")}, gate: gate}
	s := newTestSession(a, nil)

	_, ok := s.Submit(context.Background(), "data")
	require.True(t, ok)
	waitSettled(t, s)
	require.NotNil(t, s.Snapshot().Report())

	_, ok = s.Submit(context.Background(), "data")
	require.True(t, ok)
	snap := s.Snapshot()
	assert.Equal(t, Auditing{}, snap.State)
	assert.Nil(t, snap.Report())
	assert.Nil(t, snap.Plot())

	gate <- struct{}{}
	waitSettled(t, s)
}

func TestRun(t *testing.T) {
	t.Run("returns final snapshot", func(t *testing.T) {
		s := newTestSession(&mockAuditor{result: &forensic.AuditResult{Report: testReport("p")}}, &mockRenderer{image: testRecon})
		snap, err := s.Run(context.Background(), "data")
		require.NoError(t, err)
		assert.IsType(t, Complete{}, snap.State)
		assert.Same(t, testRecon, snap.Reconstruction())
	})

	t.Run("returns failure", func(t *testing.T) {
		boom := errors.New("boom")
		s := newTestSession(&mockAuditor{err: boom}, nil)
		snap, err := s.Run(context.Background(), "data")
		assert.ErrorIs(t, err, boom)
		assert.IsType(t, Failed{}, snap.State)
	})

	t.Run("blank input", func(t *testing.T) {
		s := newTestSession(&mockAuditor{}, nil)
		_, err := s.Run(context.Background(), " ")
		assert.ErrorIs(t, err, forensic.ErrEmptyInput)
	})
}

func TestStaleResultDiscarded(t *testing.T) {
	s := newTestSession(&mockAuditor{}, nil)
	runID, ok := s.begin("data")
	require.True(t, ok)

	s.mu.Lock()
	s.runID = "newer"
	s.mu.Unlock()

	assert.False(t, s.transition(runID, Complete{Report: testReport("")}))
	assert.Equal(t, Auditing{}, s.Snapshot().State)
}

func TestSubscribe(t *testing.T) {
	s := newTestSession(&mockAuditor{result: &forensic.AuditResult{Report: testReport("p")}}, &mockRenderer{image: testRecon})
	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	runID, ok := s.Submit(context.Background(), "data")
	require.True(t, ok)

	var got []event.Event
	timeout := time.After(time.Second)
	for done := false; !done; {
		select {
		case e := <-events:
			got = append(got, e)
			done = e.Type == event.RunEnd
		case <-timeout:
			t.Fatal("timed out waiting for run end")
		}
	}

	var types []event.Type
	for _, e := range got {
		assert.Equal(t, runID, e.RunID)
		types = append(types, e.Type)
	}
	assert.Equal(t, []event.Type{
		event.RunStart,
		event.StateSnapshot,
		event.StepStart,
		event.StepEnd,
		event.StateSnapshot,
		event.StepStart,
		event.StepEnd,
		event.StateSnapshot,
		event.RunEnd,
	}, types)

	last := got[len(got)-2].State.(Snapshot)
	assert.IsType(t, Complete{}, last.State)

	t.Run("unsubscribe closes channel", func(t *testing.T) {
		ch, cancel := s.Subscribe()
		cancel()
		cancel()
		_, open := <-ch
		assert.False(t, open)
	})
}
