// Package anthropic implements [forensic.Auditor] on the Anthropic Messages
// API.
//
// Claude cannot run code or return images, so audits produced here never
// carry a plot or a trace. The report is obtained by forcing a single tool
// call whose input schema is the report schema.
package anthropic
