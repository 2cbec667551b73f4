package forensic

import (
	"encoding/json"

	"github.com/parmira/forensic/schema"
)

// ReportSchemaName identifies the report schema in providers that name
// structured outputs.
const ReportSchemaName = "forensic_report"

var reportSchema = schema.Object().
	Field("verdict", schema.String().Enum(string(VerdictAnomaly), string(VerdictNominal)).Required()).
	Field("forensic_report", schema.Object().
		Field("failure_index", schema.Int().Required()).
		Field("compromised_hardware", schema.Array(schema.String()).Required()).
		Field("physics_breach_summary", schema.String().Required()).
		Required()).
	Field("simulation_reset_parameters", schema.Object().
		Field("spawn_at_pos", schema.Pair(schema.Number()).Required()).
		Field("injected_truth", schema.Object().
			Field("g", schema.Number().Required()).
			Field("rho", schema.Number().Required()).
			Field("mass", schema.Number().Required()).
			Field("target", schema.Pair(schema.Number()).Required()).
			Field("gain", schema.Number().Required()).
			Required()).
		Required()).
	Field("imagePrompt", schema.String().Required()).
	Field("pythonLogs", schema.Array(schema.String()).Required()).
	MustBuild()

// ReportSchema returns the JSON Schema every provider response must follow.
func ReportSchema() json.RawMessage {
	out := make(json.RawMessage, len(reportSchema))
	copy(out, reportSchema)
	return out
}
