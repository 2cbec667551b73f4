// Package dashboard serves the operator console for a forensic session.
//
// Routes:
//
//	GET  /            HTML console
//	POST /audit       start an audit (form field "telemetry")
//	POST /dismiss     clear a failure
//	GET  /api/state   current View as JSON
//	GET  /api/events  AG-UI event stream (SSE)
//	GET  /health      liveness
//	GET  /metrics     Prometheus metrics, when configured
//
// Form posts redirect back to the console. Requests that send
// "Accept: application/json" get JSON responses instead.
package dashboard
