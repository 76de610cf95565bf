package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrStepTimeout is returned when an adapter does not finish within the
	// step timeout.
	ErrStepTimeout = errors.New("step timed out")

	// ErrInputBuild wraps an error returned by a step's input builder.
	ErrInputBuild = errors.New("failed to build step input")

	// ErrAdapterPanic is returned when an adapter panics.
	ErrAdapterPanic = errors.New("adapter panicked")

	// ErrInvalidTransition is returned when a run is moved to a state that
	// cannot follow its current one, e.g. executing a finished run.
	ErrInvalidTransition = errors.New("invalid run state transition")
)

// StepError reports the failure of one step.
type StepError struct {
	Index        int
	CapabilityID string
	Err          error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index, e.CapabilityID, e.Err)
}

// Unwrap returns the underlying error.
func (e *StepError) Unwrap() error {
	return e.Err
}
