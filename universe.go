package forensic

import (
	"fmt"
	"strings"
)

// Universe holds the constants the auditor treats as ground truth.
// Any reading that contradicts them is a physics breach.
type Universe struct {
	Gravity float64
	Rho     float64
	Mass    float64
	Gain    float64
	Voltage float64
	IMUBias [2]float64
	Target  [2]float64
}

// DefaultUniverse is the canonical Parmira configuration.
var DefaultUniverse = Universe{
	Gravity: 0.08,
	Rho:     1.225,
	Mass:    2.0,
	Gain:    0.05,
	Voltage: 12.0,
	IMUBias: [2]float64{0.0, 0.0},
	Target:  [2]float64{800.0, 375.0},
}

// MaxPlotAttempts caps how often the provider may re-run its plotting code.
const MaxPlotAttempts = 10

// Instruction renders the system instruction sent with every audit.
func (u Universe) Instruction() string {
	var b strings.Builder
	b.WriteString("You are the Lead Forensic Analyst for the Parmira Digital Twin Universe.\n")
	b.WriteString("You have God-Mode awareness of the fundamental constants of this reality.\n\n")

	b.WriteString("THE PARMIRA UNIVERSE CONSTANTS:\n")
	fmt.Fprintf(&b, "- sensed_g: %s\n", num(u.Gravity))
	fmt.Fprintf(&b, "- sensed_rho: %s\n", num(u.Rho))
	fmt.Fprintf(&b, "- sensed_mass: %s\n", num(u.Mass))
	fmt.Fprintf(&b, "- gain: %s\n", num(u.Gain))
	fmt.Fprintf(&b, "- voltage: %sV\n", num(u.Voltage))
	fmt.Fprintf(&b, "- imu_bias: [%s, %s]\n", num(u.IMUBias[0]), num(u.IMUBias[1]))
	fmt.Fprintf(&b, "- target: [%s, %s]\n\n", num(u.Target[0]), num(u.Target[1]))

	b.WriteString("FORENSIC PROTOCOL:\n")
	b.WriteString("1. ANY deviation from these values is a \"Physics Breach.\"\n")
	b.WriteString("2. Use Python Code Execution to plot the telemetry data (velocity, position, voltage).\n")
	b.WriteString("3. The script MUST highlight the \"Breach Point\" visually using Matplotlib.\n")
	fmt.Fprintf(&b, "4. If the plot doesn't clearly show the anomaly, RE-RUN the script with adjusted scales (up to %d attempts).\n", MaxPlotAttempts)
	b.WriteString("5. Identify the hardware failure based on variable correlation (e.g., gain flip = logic board inversion).\n")
	b.WriteString("6. Provide a simulation bridge JSON to restore truth at the point of breach.\n\n")

	b.WriteString("STRICT BOUNDARY: Do NOT mention external factors like wind, friction, or external interference. ")
	b.WriteString("Only reference Parmira variables.\n\n")
	b.WriteString("Output MUST be a JSON object conforming to the required schema.")
	return b.String()
}

// Prompt wraps raw telemetry text in the audit request.
func Prompt(telemetry string) string {
	return "Analyze these Parmira telemetry logs: " + telemetry
}

// num formats a constant with at least one decimal place.
func num(f float64) string {
	s := fmt.Sprintf("%g", f)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
