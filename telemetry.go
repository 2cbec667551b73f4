package forensic

import (
	"encoding/json"
	"strings"
)

// TelemetrySample is one blackbox reading. Audits send telemetry as raw
// text; this type exists for callers that want to inspect it locally.
type TelemetrySample struct {
	Index    int        `json:"index"`
	Pos      [2]float64 `json:"pos"`
	SensedG  float64    `json:"sensed_g"`
	Voltage  float64    `json:"voltage"`
	Gain     float64    `json:"gain"`
	Velocity float64    `json:"vel"`
}

// SampleTelemetry is a four-record capture in which voltage sags from 12.0
// toward 4.2 and gain flips sign at index 2.
const SampleTelemetry = `[
  {"index": 0, "pos": [100, 100], "sensed_g": 0.08, "voltage": 12.0, "gain": 0.05, "vel": 10},
  {"index": 1, "pos": [110, 105], "sensed_g": 0.08, "voltage": 11.9, "gain": 0.05, "vel": 12},
  {"index": 2, "pos": [125, 115], "sensed_g": 0.15, "voltage": 8.4, "gain": -0.05, "vel": 45},
  {"index": 3, "pos": [140, 90], "sensed_g": 0.22, "voltage": 4.2, "gain": -0.05, "vel": 88}
]`

// ParseTelemetry decodes text as a JSON array of samples.
// It is a diagnostic helper only: audits never require it to succeed.
func ParseTelemetry(text string) ([]TelemetrySample, error) {
	var samples []TelemetrySample
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &samples); err != nil {
		return nil, err
	}
	return samples, nil
}

// Blank reports whether text holds nothing but whitespace.
func Blank(text string) bool {
	return strings.TrimSpace(text) == ""
}
