package agui

import (
	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"

	"github.com/parmira/forensic/event"
)

// Projection converts a session snapshot into the value sent as AG-UI state.
type Projection func(state any) any

// Mapper converts session events to AG-UI events.
type Mapper struct {
	threadID string
	project  Projection
}

// NewMapper creates a Mapper for one AG-UI thread. A nil projection sends
// snapshots unchanged.
func NewMapper(threadID string, project Projection) *Mapper {
	if threadID == "" {
		threadID = events.GenerateThreadID()
	}
	if project == nil {
		project = func(state any) any { return state }
	}
	return &Mapper{threadID: threadID, project: project}
}

// ThreadID returns the thread ID for this mapper.
func (m *Mapper) ThreadID() string {
	return m.threadID
}

// StateSnapshot returns a STATE_SNAPSHOT event for state.
func (m *Mapper) StateSnapshot(state any) events.Event {
	return events.NewStateSnapshotEvent(m.project(state))
}

// RunError returns a RUN_ERROR event.
func (m *Mapper) RunError(err error) events.Event {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return events.NewRunErrorEvent(msg)
}

// MapEvent converts a session event to an AG-UI event.
// Returns nil for events that have no AG-UI equivalent.
func (m *Mapper) MapEvent(e event.Event) events.Event {
	runID := e.RunID
	if runID == "" {
		runID = events.GenerateRunID()
	}

	switch e.Type {
	case event.RunStart:
		return events.NewRunStartedEvent(m.threadID, runID)
	case event.RunEnd:
		return events.NewRunFinishedEvent(m.threadID, runID)
	case event.RunError:
		return m.RunError(e.Error)

	case event.StepStart:
		return events.NewStepStartedEvent(e.StepName)
	case event.StepEnd:
		return events.NewStepFinishedEvent(e.StepName)
	case event.StepSkipped:
		// Skipped steps are immediately done.
		return events.NewStepFinishedEvent(e.StepName)

	case event.StateSnapshot:
		if e.State == nil {
			return nil
		}
		return m.StateSnapshot(e.State)

	default:
		return nil
	}
}

// MapStream converts a channel of session events into AG-UI events,
// dropping those without an equivalent. The output closes when in closes.
func (m *Mapper) MapStream(in <-chan event.Event) <-chan events.Event {
	out := make(chan events.Event)
	go func() {
		defer close(out)
		for e := range in {
			if ev := m.MapEvent(e); ev != nil {
				out <- ev
			}
		}
	}()
	return out
}
