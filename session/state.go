package session

import "github.com/parmira/forensic"

// Status labels shown to the operator.
const (
	StatusIdle     = "SYSTEM_IDLE"
	StatusAuditing = "EXECUTING_PYTHON_DIAGNOSTICS"
	StatusEvidence = "GENERATING_MULTIMODAL_EVIDENCE"
	StatusComplete = "AUDIT_COMPLETE"
	StatusFailed   = "SYSTEM_ERROR"
)

// State is the workflow state of a session. It is one of [Idle],
// [Auditing], [GeneratingEvidence], [Complete] or [Failed].
type State interface {
	// Status returns the fixed status label for the state.
	Status() string

	// InProgress reports whether an audit workflow is running.
	InProgress() bool

	isState()
}

// Idle means no audit has run, or a failed audit without a report was dismissed.
type Idle struct{}

// Auditing means the forensic analysis request is outstanding.
type Auditing struct{}

// GeneratingEvidence means the report is in and the reconstruction image is
// being rendered.
type GeneratingEvidence struct {
	Report *forensic.ForensicReport
	Plot   *forensic.Image
	Trace  []string
}

// Complete means the workflow finished. Reconstruction is nil when no image
// prompt was returned, no renderer is configured, or the renderer produced
// no image.
type Complete struct {
	Report         *forensic.ForensicReport
	Plot           *forensic.Image
	Reconstruction *forensic.Image
	Trace          []string
}

// Failed means the workflow stopped on an error. Report and Plot are set
// when the audit succeeded but rendering failed.
type Failed struct {
	Err    error
	Report *forensic.ForensicReport
	Plot   *forensic.Image
	Trace  []string
}

func (Idle) Status() string               { return StatusIdle }
func (Auditing) Status() string           { return StatusAuditing }
func (GeneratingEvidence) Status() string { return StatusEvidence }
func (Complete) Status() string           { return StatusComplete }
func (Failed) Status() string             { return StatusFailed }

func (Idle) InProgress() bool               { return false }
func (Auditing) InProgress() bool           { return true }
func (GeneratingEvidence) InProgress() bool { return true }
func (Complete) InProgress() bool           { return false }
func (Failed) InProgress() bool             { return false }

func (Idle) isState()               {}
func (Auditing) isState()           {}
func (GeneratingEvidence) isState() {}
func (Complete) isState()           {}
func (Failed) isState()             {}

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	RunID string
	Input string
	State State
}

// Report returns the report held by the state, if any.
func (s Snapshot) Report() *forensic.ForensicReport {
	switch st := s.State.(type) {
	case GeneratingEvidence:
		return st.Report
	case Complete:
		return st.Report
	case Failed:
		return st.Report
	}
	return nil
}

// Plot returns the diagnostic plot held by the state, if any.
func (s Snapshot) Plot() *forensic.Image {
	switch st := s.State.(type) {
	case GeneratingEvidence:
		return st.Plot
	case Complete:
		return st.Plot
	case Failed:
		return st.Plot
	}
	return nil
}

// Reconstruction returns the rendered evidence image, if any.
func (s Snapshot) Reconstruction() *forensic.Image {
	if st, ok := s.State.(Complete); ok {
		return st.Reconstruction
	}
	return nil
}

// Trace returns the sandbox output lines captured during the audit.
func (s Snapshot) Trace() []string {
	switch st := s.State.(type) {
	case GeneratingEvidence:
		return st.Trace
	case Complete:
		return st.Trace
	case Failed:
		return st.Trace
	}
	return nil
}

// Err returns the failure, if any.
func (s Snapshot) Err() error {
	if st, ok := s.State.(Failed); ok {
		return st.Err
	}
	return nil
}

var (
	_ State = Idle{}
	_ State = Auditing{}
	_ State = GeneratingEvidence{}
	_ State = Complete{}
	_ State = Failed{}
)
