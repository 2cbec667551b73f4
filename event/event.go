// Package event defines the lifecycle events a forensic session emits while
// an audit runs. The event types map 1:1 onto the AG-UI protocol so the
// dashboard can forward them to browsers unchanged.
package event

import "time"

// Type identifies the kind of event.
type Type string

// Run lifecycle events
const (
	// RunStart fires when an audit is accepted.
	RunStart Type = "run_start"

	// RunEnd fires when the audit reaches a complete state.
	RunEnd Type = "run_end"

	// RunError fires when the audit ends in a failed state.
	RunError Type = "run_error"
)

// Step lifecycle events
const (
	// StepStart fires when a workflow step begins.
	StepStart Type = "step_start"

	// StepEnd fires when a workflow step completes, successfully or not.
	StepEnd Type = "step_end"

	// StepSkipped fires when a step is not needed (no image prompt or no renderer).
	StepSkipped Type = "step_skipped"
)

// StateSnapshot fires after every state transition and carries the full state.
const StateSnapshot Type = "state_snapshot"

// Step names.
const (
	StepDiagnostics = "diagnostics"
	StepEvidence    = "evidence"
)

// Event represents an observable occurrence during an audit run.
type Event struct {
	// Type identifies the kind of event.
	Type Type

	// RunID identifies the audit run.
	RunID string

	// StepName identifies the step for step events.
	StepName string

	// State contains the session snapshot for StateSnapshot events.
	State any

	// Error contains the error for RunError events.
	Error error

	// Message contains additional context, such as why a step was skipped.
	Message string

	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// Emit sends an event with timestamp to the channel (non-blocking).
func Emit(ch chan<- Event, e Event) {
	if ch == nil {
		return
	}
	e.Timestamp = time.Now()
	select {
	case ch <- e:
	default:
		// Channel full - don't block
	}
}

// NewChannel creates a buffered event channel with standard capacity.
func NewChannel() chan Event {
	return make(chan Event, 100)
}
