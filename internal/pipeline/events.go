package pipeline

import "github.com/nao1215/dossiersim/internal/model"

// EventKind identifies a progress event.
type EventKind int

const (
	// EventRunStarted is emitted once the run enters the running state.
	EventRunStarted EventKind = iota

	// EventStepStarted is emitted before a step builds its input.
	EventStepStarted

	// EventStepFinished is emitted after a step's envelope is recorded.
	EventStepFinished

	// EventRunFinished is emitted when the run reaches a terminal state.
	EventRunFinished
)

// String returns the event name.
func (k EventKind) String() string {
	switch k {
	case EventRunStarted:
		return "run_started"
	case EventStepStarted:
		return "step_started"
	case EventStepFinished:
		return "step_finished"
	case EventRunFinished:
		return "run_finished"
	default:
		return "unknown"
	}
}

// Event describes progress of a run for display.
type Event struct {
	Kind         EventKind
	RunID        string
	UseCaseID    string
	StepIndex    int
	CapabilityID string
	Title        string
	State        model.RunState

	// Envelope is set on EventStepFinished.
	Envelope *model.Envelope

	// Err is the step or run error, if any.
	Err error
}

// Observer receives events synchronously from the executing goroutine.
// Observers must not block.
type Observer func(Event)
