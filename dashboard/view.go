package dashboard

import (
	"strconv"
	"strings"

	"github.com/parmira/forensic"
	"github.com/parmira/forensic/session"
)

// Verdict banner classes.
const (
	BannerAnomaly = "banner-anomaly"
	BannerNominal = "banner-nominal"
)

// Progress indicator values.
const (
	progressIdle       = 10
	progressInProgress = 75
	progressDone       = 100
)

// View is the render-ready form of a session snapshot. It is also the
// state sent to AG-UI clients.
type View struct {
	RunID      string `json:"run_id,omitempty"`
	Status     string `json:"status"`
	InProgress bool   `json:"in_progress"`
	Progress   int    `json:"progress"`
	Input      string `json:"input"`

	HasReport    bool     `json:"has_report"`
	Verdict      string   `json:"verdict,omitempty"`
	BannerClass  string   `json:"banner_class,omitempty"`
	FailureIndex string   `json:"failure_index,omitempty"`
	Hardware     string   `json:"compromised_hardware,omitempty"`
	Summary      string   `json:"physics_breach_summary,omitempty"`
	ResetJSON    string   `json:"simulation_reset_parameters,omitempty"`
	PythonLogs   []string `json:"python_logs,omitempty"`
	Trace        []string `json:"trace,omitempty"`

	PlotURL           string `json:"plot_url,omitempty"`
	ReconstructionURL string `json:"reconstruction_url,omitempty"`

	Error      string `json:"error,omitempty"`
	CanSubmit  bool   `json:"can_submit"`
	CanDismiss bool   `json:"can_dismiss"`
}

// NewView derives the view model from a snapshot.
func NewView(s session.Snapshot) View {
	state := s.State
	if state == nil {
		state = session.Idle{}
	}
	v := View{
		RunID:      s.RunID,
		Status:     state.Status(),
		InProgress: state.InProgress(),
		Input:      s.Input,
		Progress:   progressIdle,
		CanSubmit:  !state.InProgress(),
	}
	if v.InProgress {
		v.Progress = progressInProgress
	}

	if r := s.Report(); r != nil {
		v.HasReport = true
		v.Progress = progressDone
		v.Verdict = string(r.Verdict)
		v.BannerClass = bannerClass(r)
		v.FailureIndex = strconv.Itoa(r.Breach.FailureIndex)
		v.Hardware = strings.Join(r.Breach.CompromisedHardware, ", ")
		v.Summary = r.Breach.Summary
		v.ResetJSON = r.ResetJSON()
		v.PythonLogs = r.PythonLogs
	}
	v.Trace = s.Trace()
	v.PlotURL = s.Plot().DataURL()
	v.ReconstructionURL = s.Reconstruction().DataURL()

	if err := s.Err(); err != nil {
		v.Error = err.Error()
		v.CanDismiss = true
	}
	return v
}

func bannerClass(r *forensic.ForensicReport) string {
	if r.Anomalous() {
		return BannerAnomaly
	}
	return BannerNominal
}

// StateOf projects session snapshots into views for AG-UI state events.
// Other values pass through unchanged.
func StateOf(state any) any {
	if snap, ok := state.(session.Snapshot); ok {
		return NewView(snap)
	}
	return state
}
