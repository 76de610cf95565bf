package model

// Mode selects which adapter a step is dispatched to.
type Mode int

const (
	// ModeSimulate dispatches to the canned, deterministic adapter.
	ModeSimulate Mode = iota

	// ModeLive dispatches to a live adapter when one is registered.
	ModeLive
)

// String returns the lower-case mode name.
func (m Mode) String() string {
	switch m {
	case ModeSimulate:
		return "simulate"
	case ModeLive:
		return "live"
	default:
		return "unknown"
	}
}

// ParseMode converts a mode name to a Mode. Unknown or empty names yield
// ModeSimulate and false.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "simulate":
		return ModeSimulate, true
	case "live":
		return ModeLive, true
	default:
		return ModeSimulate, false
	}
}

// InputBuilder computes a step's input from the values visible to it.
// It may read only the seed and the outputs named in Step.Needs.
type InputBuilder func(v *View) (any, error)

// Step is one capability invocation in a use case.
type Step struct {
	// CapabilityID names the capability to invoke. It is also the key the
	// step's envelope is recorded under.
	CapabilityID string

	// Title is the label shown while the step runs.
	Title string

	// Needs lists the capability ids of earlier steps whose outputs
	// BuildInput reads. Every entry must name a step declared before this one.
	Needs []string

	// BuildInput produces the input passed to the adapter. A nil builder
	// passes the seed.
	BuildInput InputBuilder

	// Mode selects the simulated or live adapter.
	Mode Mode
}

// UseCase is a named, ordered script of steps plus the capability whose
// envelope the dossier is synthesized from. UseCases are immutable once
// registered.
type UseCase struct {
	ID                 string
	Name               string
	Summary            string
	Seed               map[string]any
	Steps              []Step
	ReportCapabilityID string
}

// CapabilityIDs returns the capability ids of the steps in declared order.
func (u UseCase) CapabilityIDs() []string {
	ids := make([]string, len(u.Steps))
	for i, s := range u.Steps {
		ids[i] = s.CapabilityID
	}
	return ids
}

// StepIndex returns the index of the step invoking capabilityID, or -1.
func (u UseCase) StepIndex(capabilityID string) int {
	for i, s := range u.Steps {
		if s.CapabilityID == capabilityID {
			return i
		}
	}
	return -1
}

// WithSeed returns a copy of the use case whose seed has the given overrides
// applied. The receiver is not modified.
func (u UseCase) WithSeed(overrides map[string]any) UseCase {
	out := u
	out.Seed = make(map[string]any, len(u.Seed)+len(overrides))
	for k, v := range u.Seed {
		out.Seed[k] = CloneValue(v)
	}
	for k, v := range overrides {
		out.Seed[k] = CloneValue(v)
	}
	out.Steps = append([]Step(nil), u.Steps...)
	return out
}
