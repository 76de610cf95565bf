package model

// RunState is the lifecycle state of one pipeline run as seen by renderers.
type RunState int

const (
	// RunNotStarted is the state of a run that has been allocated but not executed.
	RunNotStarted RunState = iota

	// RunRunning is the state while steps are executing.
	RunRunning

	// RunCompleted is the state after every step produced a non-failed envelope.
	RunCompleted

	// RunPartiallyFailed is the state after all steps ran but at least one failed.
	RunPartiallyFailed

	// RunFailed is the state after execution stopped at a failed step.
	RunFailed

	// RunCancelled is the state after the run's context was cancelled.
	RunCancelled
)

// String returns the state name.
func (s RunState) String() string {
	switch s {
	case RunNotStarted:
		return "not_started"
	case RunRunning:
		return "running"
	case RunCompleted:
		return "completed"
	case RunPartiallyFailed:
		return "partially_failed"
	case RunFailed:
		return "failed"
	case RunCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the run has finished.
func (s RunState) IsTerminal() bool {
	switch s {
	case RunCompleted, RunPartiallyFailed, RunFailed, RunCancelled:
		return true
	default:
		return false
	}
}

// MarshalText implements encoding.TextMarshaler so states serialize by name.
func (s RunState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *RunState) UnmarshalText(text []byte) error {
	for st := RunNotStarted; st <= RunCancelled; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	*s = RunNotStarted
	return nil
}
