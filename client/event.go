package client

import (
	"time"

	"github.com/parmira/forensic"
)

// EventType identifies the kind of event occurring during provider calls.
type EventType string

const (
	// EventRequestStart fires before a provider request begins.
	EventRequestStart EventType = "request_start"

	// EventRequestComplete fires after a provider request completes successfully.
	EventRequestComplete EventType = "request_complete"

	// EventRequestError fires when a provider request fails.
	EventRequestError EventType = "request_error"

	// EventRetry fires before a transient failure is retried.
	EventRetry EventType = "retry"
)

// Operations reported in [Event.Operation].
const (
	OperationAudit  = "audit"
	OperationRender = "render"
)

// Event represents an observable occurrence during provider calls.
type Event struct {
	// Type identifies the kind of event.
	Type EventType

	// Operation is OperationAudit or OperationRender.
	Operation string

	// Provider identifies which backend served the call.
	Provider forensic.Provider

	// Duration is the elapsed time for finished requests.
	Duration time.Duration

	// Verdict is set on completed audits that produced a report.
	Verdict forensic.Verdict

	// Error contains the error for EventRequestError and EventRetry.
	Error error

	// Attempt is the failed attempt number for EventRetry.
	Attempt int

	// Delay is the backoff before the next attempt for EventRetry.
	Delay time.Duration

	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// emit sends an event with timestamp to the channel without blocking.
func emit(ch chan<- Event, event Event) {
	if ch == nil {
		return
	}
	event.Timestamp = time.Now()
	select {
	case ch <- event:
	default:
		// Channel full - don't block
	}
}
