package capability

import (
	"errors"
	"fmt"
)

var (
	// ErrCapabilityNotRegistered is returned by Registry.Lookup when no
	// adapter is registered for a capability id.
	ErrCapabilityNotRegistered = errors.New("capability not registered")

	// ErrCapabilityFailure wraps an error returned by an adapter.
	ErrCapabilityFailure = errors.New("capability failure")

	// ErrDuplicateCapability is returned when an adapter is registered twice
	// for the same id and mode.
	ErrDuplicateCapability = errors.New("capability already registered")

	// ErrInvalidAdapter is returned when a nil adapter or an empty id is registered.
	ErrInvalidAdapter = errors.New("invalid adapter")
)

// Error annotates a capability error with the capability id it concerns.
type Error struct {
	CapabilityID string
	Err          error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("capability %s: %v", e.CapabilityID, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Failure wraps err as an ErrCapabilityFailure for capabilityID. Errors that
// already carry ErrCapabilityFailure are only annotated.
func Failure(capabilityID string, err error) error {
	if errors.Is(err, ErrCapabilityFailure) {
		return &Error{CapabilityID: capabilityID, Err: err}
	}
	return &Error{CapabilityID: capabilityID, Err: fmt.Errorf("%w: %w", ErrCapabilityFailure, err)}
}
