package usecase

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidStepOrdering is returned when a step reads the output of a
	// step that is not declared before it.
	ErrInvalidStepOrdering = errors.New("invalid step ordering")

	// ErrDuplicateCapability is returned when two steps of one use case
	// invoke the same capability.
	ErrDuplicateCapability = errors.New("duplicate capability in use case")

	// ErrReportCapabilityMissing is returned when the report capability is
	// not one of the use case's steps.
	ErrReportCapabilityMissing = errors.New("report capability is not a step of the use case")

	// ErrEmptyUseCase is returned for a use case without steps.
	ErrEmptyUseCase = errors.New("use case has no steps")

	// ErrMissingID is returned when a use case or step has no id.
	ErrMissingID = errors.New("missing id")

	// ErrUseCaseExists is returned when a use case id is registered twice.
	ErrUseCaseExists = errors.New("use case already registered")

	// ErrUnknownUseCase is returned when a use case id is not in the catalog.
	ErrUnknownUseCase = errors.New("unknown use case")

	// ErrInvalidBinding is returned for a malformed input binding.
	ErrInvalidBinding = errors.New("invalid binding")
)

// DefinitionError reports a problem with one use case definition.
// StepIndex is -1 when the problem is not tied to a step.
type DefinitionError struct {
	UseCaseID    string
	StepIndex    int
	CapabilityID string
	Err          error
}

// Error implements the error interface.
func (e *DefinitionError) Error() string {
	if e.StepIndex < 0 {
		return fmt.Sprintf("use case %q: %v", e.UseCaseID, e.Err)
	}
	return fmt.Sprintf("use case %q step %d (%s): %v", e.UseCaseID, e.StepIndex, e.CapabilityID, e.Err)
}

// Unwrap returns the underlying error.
func (e *DefinitionError) Unwrap() error {
	return e.Err
}
