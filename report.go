package forensic

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Verdict is the classification of one audit.
type Verdict string

const (
	VerdictAnomaly Verdict = "ANOMALY_DETECTED"
	VerdictNominal Verdict = "NOMINAL_TRUTH"
)

// Valid reports whether v is one of the enumerated verdicts.
func (v Verdict) Valid() bool {
	return v == VerdictAnomaly || v == VerdictNominal
}

// ForensicReport is the structured result of one audit.
// Field names follow the wire schema sent to the provider.
type ForensicReport struct {
	Verdict         Verdict         `json:"verdict"`
	Breach          BreachSummary   `json:"forensic_report"`
	SimulationReset SimulationReset `json:"simulation_reset_parameters"`
	ImagePrompt     string          `json:"imagePrompt"`
	PythonLogs      []string        `json:"pythonLogs"`
}

// BreachSummary locates the failure and the hardware suspected of causing it.
type BreachSummary struct {
	FailureIndex        int      `json:"failure_index"`
	CompromisedHardware []string `json:"compromised_hardware"`
	Summary             string   `json:"physics_breach_summary"`
}

// SimulationReset is the bridge payload that restores the simulation to
// ground truth at the breach point.
type SimulationReset struct {
	SpawnAt       [2]float64    `json:"spawn_at_pos"`
	InjectedTruth InjectedTruth `json:"injected_truth"`
}

// InjectedTruth holds the physical constants to re-inject.
type InjectedTruth struct {
	G      float64    `json:"g"`
	Rho    float64    `json:"rho"`
	Mass   float64    `json:"mass"`
	Target [2]float64 `json:"target"`
	Gain   float64    `json:"gain"`
}

// Anomalous reports whether the verdict flags a physics breach.
func (r *ForensicReport) Anomalous() bool {
	return r.Verdict == VerdictAnomaly
}

// HasImagePrompt reports whether an evidence image should be rendered.
func (r *ForensicReport) HasImagePrompt() bool {
	return strings.TrimSpace(r.ImagePrompt) != ""
}

// Validate checks the fields the schema constrains beyond JSON typing.
func (r *ForensicReport) Validate() error {
	if !r.Verdict.Valid() {
		return fmt.Errorf("verdict %q is not one of %s, %s", r.Verdict, VerdictAnomaly, VerdictNominal)
	}
	return nil
}

// ParseReport decodes data into a report, requiring every field of the
// report schema. Null counts as missing, and coordinate pairs must hold
// exactly two numbers.
func ParseReport(data []byte) (*ForensicReport, error) {
	var raw rawReport
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	report, err := raw.report()
	if err != nil {
		return nil, err
	}
	if err := report.Validate(); err != nil {
		return nil, err
	}
	return report, nil
}

// rawReport mirrors ForensicReport with pointers so absent keys are visible.
type rawReport struct {
	Verdict         *Verdict   `json:"verdict"`
	Breach          *rawBreach `json:"forensic_report"`
	SimulationReset *rawReset  `json:"simulation_reset_parameters"`
	ImagePrompt     *string    `json:"imagePrompt"`
	PythonLogs      *[]string  `json:"pythonLogs"`
}

type rawBreach struct {
	FailureIndex        *int      `json:"failure_index"`
	CompromisedHardware *[]string `json:"compromised_hardware"`
	Summary             *string   `json:"physics_breach_summary"`
}

type rawReset struct {
	SpawnAt       []float64 `json:"spawn_at_pos"`
	InjectedTruth *rawTruth `json:"injected_truth"`
}

type rawTruth struct {
	G      *float64  `json:"g"`
	Rho    *float64  `json:"rho"`
	Mass   *float64  `json:"mass"`
	Target []float64 `json:"target"`
	Gain   *float64  `json:"gain"`
}

func missing(field string) error {
	return fmt.Errorf("required field %s is missing", field)
}

func pair(field string, v []float64) ([2]float64, error) {
	if v == nil {
		return [2]float64{}, missing(field)
	}
	if len(v) != 2 {
		return [2]float64{}, fmt.Errorf("field %s has %d elements, want 2", field, len(v))
	}
	return [2]float64{v[0], v[1]}, nil
}

func (r *rawReport) report() (*ForensicReport, error) {
	switch {
	case r.Verdict == nil:
		return nil, missing("verdict")
	case r.Breach == nil:
		return nil, missing("forensic_report")
	case r.Breach.FailureIndex == nil:
		return nil, missing("forensic_report.failure_index")
	case r.Breach.CompromisedHardware == nil:
		return nil, missing("forensic_report.compromised_hardware")
	case r.Breach.Summary == nil:
		return nil, missing("forensic_report.physics_breach_summary")
	case r.SimulationReset == nil:
		return nil, missing("simulation_reset_parameters")
	case r.SimulationReset.InjectedTruth == nil:
		return nil, missing("simulation_reset_parameters.injected_truth")
	case r.ImagePrompt == nil:
		return nil, missing("imagePrompt")
	case r.PythonLogs == nil:
		return nil, missing("pythonLogs")
	}

	truth := r.SimulationReset.InjectedTruth
	for _, f := range []struct {
		name string
		v    *float64
	}{{"g", truth.G}, {"rho", truth.Rho}, {"mass", truth.Mass}, {"gain", truth.Gain}} {
		if f.v == nil {
			return nil, missing("simulation_reset_parameters.injected_truth." + f.name)
		}
	}
	spawn, err := pair("simulation_reset_parameters.spawn_at_pos", r.SimulationReset.SpawnAt)
	if err != nil {
		return nil, err
	}
	target, err := pair("simulation_reset_parameters.injected_truth.target", truth.Target)
	if err != nil {
		return nil, err
	}

	return &ForensicReport{
		Verdict: *r.Verdict,
		Breach: BreachSummary{
			FailureIndex:        *r.Breach.FailureIndex,
			CompromisedHardware: *r.Breach.CompromisedHardware,
			Summary:             *r.Breach.Summary,
		},
		SimulationReset: SimulationReset{
			SpawnAt: spawn,
			InjectedTruth: InjectedTruth{
				G:      *truth.G,
				Rho:    *truth.Rho,
				Mass:   *truth.Mass,
				Target: target,
				Gain:   *truth.Gain,
			},
		},
		ImagePrompt: *r.ImagePrompt,
		PythonLogs:  *r.PythonLogs,
	}, nil
}

// ResetJSON returns the simulation reset parameters as indented JSON.
func (r *ForensicReport) ResetJSON() string {
	data, err := json.MarshalIndent(r.SimulationReset, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
