package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
var (
	// ErrNoUseCase is returned when no use case is named and --all is not set.
	ErrNoUseCase = errors.New("no use case specified: name one or more use cases or use --all")

	// ErrInvalidStepTimeout is returned when the step timeout is not positive.
	ErrInvalidStepTimeout = errors.New("invalid step timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrConflictingSelection is returned when --all is combined with named use cases.
	ErrConflictingSelection = errors.New("conflicting selection: --all cannot be combined with use case names")

	// ErrInvalidSeed is returned for a --seed value that is not key=value.
	ErrInvalidSeed = errors.New("invalid seed override: expected key=value")

	// ErrInvalidLiveEndpoint is returned when a live endpoint has no URL.
	ErrInvalidLiveEndpoint = errors.New("invalid live endpoint: endpoint URL is required")
)
