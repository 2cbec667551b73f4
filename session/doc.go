// Package session holds the operator-facing audit workflow.
//
// A [Session] owns the telemetry input and a single workflow [State]. Submit
// starts an audit in the background; the workflow moves through
//
//	Idle -> Auditing -> GeneratingEvidence -> Complete
//	                 \-> Complete (no image prompt)
//	Auditing | GeneratingEvidence -> Failed
//
// and only one audit runs at a time. Observers receive [event.Event] values
// from Subscribe.
package session
