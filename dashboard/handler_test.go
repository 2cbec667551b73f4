package dashboard

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parmira/forensic"
	"github.com/parmira/forensic/session"
)

const anomalyResponse = `{
  "verdict": "ANOMALY_DETECTED",
  "forensic_report": {
    "failure_index": 2,
    "compromised_hardware": ["logic_board"],
    "physics_breach_summary": "Gain flipped sign at index 2 as voltage sagged."
  },
  "simulation_reset_parameters": {
    "spawn_at_pos": [125, 115],
    "injected_truth": {"g": 0.08, "rho": 1.225, "mass": 2.0, "target": [800, 375], "gain": 0.05}
  },
  "imagePrompt": "Logic board with an inverted gain trace",
  "pythonLogs": ["voltage sag detected", "gain inversion at index 2"]
}`

const nominalResponse = `{
  "verdict": "NOMINAL_TRUTH",
  "forensic_report": {"failure_index": 0, "compromised_hardware": [], "physics_breach_summary": "All readings consistent."},
  "simulation_reset_parameters": {
    "spawn_at_pos": [100, 100],
    "injected_truth": {"g": 0.08, "rho": 1.225, "mass": 2.0, "target": [800, 375], "gain": 0.05}
  },
  "imagePrompt": "",
  "pythonLogs": []
}`

// textAuditor decodes a canned provider response.
type textAuditor struct {
	response string
	gate     chan struct{}
}

func (a *textAuditor) Audit(ctx context.Context, telemetry string, opts ...forensic.Option) (*forensic.AuditResult, error) {
	if a.gate != nil {
		<-a.gate
	}
	return forensic.Decode(forensic.TextPayload(a.response))
}

type stubRenderer struct {
	image *forensic.Image
	err   error
}

func (r *stubRenderer) RenderImage(ctx context.Context, prompt string, opts ...forensic.ImageOption) (*forensic.Image, error) {
	return r.image, r.err
}

func newTestHandler(a forensic.Auditor, r forensic.ImageRenderer, opts ...Option) (*Handler, *session.Session) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gw := &forensic.Gateway{Auditor: a}
	if r != nil {
		gw.Renderer = r
	}
	s := session.New(gw, session.WithLogger(logger))
	return NewHandler(s, append([]Option{WithLogger(logger)}, opts...)...), s
}

func postForm(h http.Handler, path string, form url.Values, accept string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func waitSettled(t *testing.T, s *session.Session) {
	t.Helper()
	require.Eventually(t, func() bool {
		return !s.Snapshot().State.InProgress()
	}, time.Second, 5*time.Millisecond)
}

func TestDashboard_AnomalyEndToEnd(t *testing.T) {
	recon := &forensic.Image{MIMEType: "image/png", Data: []byte("recon")}
	h, s := newTestHandler(&textAuditor{response: anomalyResponse}, &stubRenderer{image: recon})

	rec := postForm(h, "/audit", url.Values{"telemetry": {forensic.SampleTelemetry}}, "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	waitSettled(t, s)

	rec = get(h, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `class="banner-anomaly"`)
	assert.Contains(t, body, `<strong id="failure-index">2</strong>`)
	assert.Contains(t, body, `<strong id="hardware">logic_board</strong>`)
	assert.Contains(t, body, "AUDIT_COMPLETE")
	assert.Contains(t, body, "gain inversion at index 2")
	assert.Contains(t, body, `src="data:image/png;base64,`)
	assert.NotContains(t, body, "banner-nominal\"")
}

func TestDashboard_NominalEndToEnd(t *testing.T) {
	h, s := newTestHandler(&textAuditor{response: nominalResponse}, &stubRenderer{})

	postForm(h, "/audit", url.Values{"telemetry": {forensic.SampleTelemetry}}, "")
	waitSettled(t, s)

	body := get(h, "/").Body.String()
	assert.Contains(t, body, `class="banner-nominal"`)
	assert.NotContains(t, body, `class="banner-anomaly"`)
	assert.NotContains(t, body, `id="reconstruction"`)
}

func TestDashboard_MissingImage(t *testing.T) {
	h, s := newTestHandler(&textAuditor{response: anomalyResponse}, &stubRenderer{
		err: &forensic.GenerationError{Model: "img", Err: forensic.ErrNoImage},
	})

	postForm(h, "/audit", url.Values{"telemetry": {forensic.SampleTelemetry}}, "")
	waitSettled(t, s)

	body := get(h, "/").Body.String()
	assert.Contains(t, body, "AUDIT_COMPLETE")
	assert.NotContains(t, body, `id="error"`)
	assert.NotContains(t, body, `id="reconstruction"`)
}

func TestDashboard_FailureAndDismiss(t *testing.T) {
	h, s := newTestHandler(&textAuditor{response: "not json at all"}, nil)

	postForm(h, "/audit", url.Values{"telemetry": {"garbage"}}, "")
	waitSettled(t, s)

	body := get(h, "/").Body.String()
	assert.Contains(t, body, "SYSTEM_ERROR")
	assert.Contains(t, body, `id="error"`)
	assert.Contains(t, body, "dossier corruption")

	rec := postForm(h, "/dismiss", nil, "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	var v View
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	assert.Equal(t, "SYSTEM_IDLE", v.Status)
	assert.Empty(t, v.Error)
}

func TestDashboard_AuditJSON(t *testing.T) {
	gate := make(chan struct{})
	h, s := newTestHandler(&textAuditor{response: nominalResponse, gate: gate}, nil)

	t.Run("accepted", func(t *testing.T) {
		rec := postForm(h, "/audit", url.Values{"telemetry": {"data"}}, "application/json")
		require.Equal(t, http.StatusAccepted, rec.Code)
		var resp auditResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.True(t, resp.Accepted)
		assert.NotEmpty(t, resp.RunID)
		assert.Equal(t, "EXECUTING_PYTHON_DIAGNOSTICS", resp.State.Status)
	})

	t.Run("conflict while in progress", func(t *testing.T) {
		rec := postForm(h, "/audit", url.Values{"telemetry": {"data"}}, "application/json")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	close(gate)
	waitSettled(t, s)

	t.Run("blank telemetry", func(t *testing.T) {
		rec := postForm(h, "/audit", url.Values{"telemetry": {"  "}}, "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var resp auditResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.False(t, resp.Accepted)
		assert.Equal(t, "telemetry is empty", resp.Reason)
	})
}

func TestDashboard_State(t *testing.T) {
	h, _ := newTestHandler(&textAuditor{response: nominalResponse}, nil)

	rec := get(h, "/api/state")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var v View
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	assert.Equal(t, "SYSTEM_IDLE", v.Status)
	assert.Equal(t, forensic.SampleTelemetry, v.Input)
}

func TestDashboard_Routes(t *testing.T) {
	t.Run("health", func(t *testing.T) {
		h, _ := newTestHandler(&textAuditor{}, nil)
		rec := get(h, "/health")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	})

	t.Run("metrics mounted", func(t *testing.T) {
		metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("forensic_audit_runs_total 0"))
		})
		h, _ := newTestHandler(&textAuditor{}, nil, WithMetrics(metrics))
		assert.Contains(t, get(h, "/metrics").Body.String(), "forensic_audit_runs_total")
	})

	t.Run("metrics absent", func(t *testing.T) {
		h, _ := newTestHandler(&textAuditor{}, nil)
		assert.Equal(t, http.StatusNotFound, get(h, "/metrics").Code)
	})

	t.Run("unknown path", func(t *testing.T) {
		h, _ := newTestHandler(&textAuditor{}, nil)
		assert.Equal(t, http.StatusNotFound, get(h, "/nope").Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		h, _ := newTestHandler(&textAuditor{}, nil)
		assert.Equal(t, http.StatusMethodNotAllowed, get(h, "/audit").Code)
	})
}

func TestDashboard_Events(t *testing.T) {
	h, _ := newTestHandler(&textAuditor{response: nominalResponse}, nil, WithThreadID("thread-1"))
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() (string, string) {
		t.Helper()
		var name, data string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "":
				return name, data
			}
		}
	}

	name, data := readEvent()
	assert.Equal(t, "STATE_SNAPSHOT", name)
	assert.Contains(t, data, `"status":"SYSTEM_IDLE"`)

	rec := postForm(h, "/audit", url.Values{"telemetry": {"data"}}, "")
	require.Equal(t, http.StatusSeeOther, rec.Code)

	var names []string
	for {
		name, _ := readEvent()
		names = append(names, name)
		if name == "RUN_FINISHED" || name == "RUN_ERROR" {
			break
		}
	}
	assert.Equal(t, "RUN_STARTED", names[0])
	assert.Contains(t, names, "STEP_STARTED")
	assert.Equal(t, "RUN_FINISHED", names[len(names)-1])
}

func TestDashboard_FailureKeepsReport(t *testing.T) {
	h, s := newTestHandler(&textAuditor{response: anomalyResponse}, &stubRenderer{err: errors.New("image quota exceeded")})

	postForm(h, "/audit", url.Values{"telemetry": {"data"}}, "")
	waitSettled(t, s)

	body := get(h, "/").Body.String()
	assert.Contains(t, body, "image quota exceeded")
	assert.Contains(t, body, `class="banner-anomaly"`)

	postForm(h, "/dismiss", nil, "")
	body = get(h, "/").Body.String()
	assert.Contains(t, body, "AUDIT_COMPLETE")
	assert.Contains(t, body, `class="banner-anomaly"`)
}

func TestDashboard_Simulate(t *testing.T) {
	t.Run("attacked flight is audited", func(t *testing.T) {
		h, s := newTestHandler(&textAuditor{response: anomalyResponse}, nil)

		rec := postForm(h, "/simulate", url.Values{"hack": {"volt_drop"}, "seed": {"4"}}, "application/json")
		require.Equal(t, http.StatusAccepted, rec.Code)
		waitSettled(t, s)

		samples, err := forensic.ParseTelemetry(s.Snapshot().Input)
		require.NoError(t, err)
		require.Len(t, samples, 5)
		assert.Equal(t, 12.0, samples[1].Voltage)
		assert.Equal(t, 3.6, samples[2].Voltage)
		report := s.Snapshot().Report()
		require.NotNil(t, report)
		assert.Equal(t, forensic.VerdictAnomaly, report.Verdict)
	})

	t.Run("browser form redirects", func(t *testing.T) {
		h, s := newTestHandler(&textAuditor{response: nominalResponse}, nil)
		rec := postForm(h, "/simulate", url.Values{}, "")
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		waitSettled(t, s)
	})

	t.Run("unknown hack", func(t *testing.T) {
		h, _ := newTestHandler(&textAuditor{response: nominalResponse}, nil)
		rec := postForm(h, "/simulate", url.Values{"hack": {"emp"}}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "unknown hack")
	})

	t.Run("invalid seed", func(t *testing.T) {
		h, _ := newTestHandler(&textAuditor{response: nominalResponse}, nil)
		rec := postForm(h, "/simulate", url.Values{"seed": {"-1"}}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("console offers attacks", func(t *testing.T) {
		h, _ := newTestHandler(&textAuditor{}, nil)
		body := get(h, "/").Body.String()
		assert.Contains(t, body, `action="/simulate"`)
		assert.Contains(t, body, `value="GAIN_ATTACK"`)
	})
}
