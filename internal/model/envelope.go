package model

// Provenance records where a capability result came from.
type Provenance string

const (
	// ProvenanceCore marks a result produced by the primary prediction service.
	ProvenanceCore Provenance = "core"

	// ProvenanceAugmented marks a core result enriched with secondary sources.
	ProvenanceAugmented Provenance = "augmented"

	// ProvenanceSimulated marks a canned, degraded or failed result.
	ProvenanceSimulated Provenance = "simulated"
)

// Normalize returns the provenance, treating the zero value as simulated.
func (p Provenance) Normalize() Provenance {
	switch p {
	case ProvenanceCore, ProvenanceAugmented, ProvenanceSimulated:
		return p
	default:
		return ProvenanceSimulated
	}
}

// ProcessingStep describes one stage inside a capability invocation.
// DurationMs is display metadata only and is never used for scheduling.
type ProcessingStep struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	DurationMs  int      `json:"durationMs" yaml:"durationMs"`
	Details     []string `json:"details,omitempty" yaml:"details,omitempty"`
}

// Evidence carries supporting signals a capability attached to its result.
type Evidence struct {
	Conservation *float64 `json:"conservation,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	DomainHits   []string `json:"domainHits,omitempty"`
	MotifHits    []string `json:"motifHits,omitempty"`
	Notes        []string `json:"notes,omitempty"`
	Benchmarks   []string `json:"benchmarks,omitempty"`
}

// Envelope is the normalized result record of one capability invocation.
//
// Output is an open, capability-specific record. The dossier package decodes
// it into typed result variants; nothing else interprets its fields.
type Envelope struct {
	// Input is the value the step's input builder produced.
	Input any `json:"input"`

	// Output is the capability-specific result.
	Output map[string]any `json:"output"`

	// ProcessingSteps lists the simulated stages, in order.
	ProcessingSteps []ProcessingStep `json:"processingSteps"`

	// Insights are short human-readable observations.
	Insights []string `json:"insights"`

	// Evidence is optional supporting data.
	Evidence *Evidence `json:"evidence,omitempty"`

	// Provenance is where the result came from.
	Provenance Provenance `json:"provenance"`

	// Degraded is true when no adapter was registered for the capability.
	Degraded bool `json:"degraded,omitempty"`

	// Failed is true when the adapter returned an error or timed out.
	// Output then holds a single "error" key.
	Failed bool `json:"failed,omitempty"`
}

// DegradedEnvelope returns the envelope recorded for a capability that has no
// registered adapter.
func DegradedEnvelope(capabilityID string, input any) Envelope {
	return Envelope{
		Input:           input,
		Output:          map[string]any{"ok": true},
		ProcessingSteps: []ProcessingStep{},
		Insights:        []string{"capability " + capabilityID + " is not registered; result is a placeholder"},
		Provenance:      ProvenanceSimulated,
		Degraded:        true,
	}
}

// FailedEnvelope returns the envelope recorded for a capability whose adapter
// failed. The error message is kept under output["error"].
func FailedEnvelope(input any, err error) Envelope {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Envelope{
		Input:           input,
		Output:          map[string]any{"error": msg},
		ProcessingSteps: []ProcessingStep{},
		Insights:        []string{},
		Provenance:      ProvenanceSimulated,
		Failed:          true,
	}
}

// ErrorMessage returns output["error"] for failed envelopes, or "".
func (e Envelope) ErrorMessage() string {
	if !e.Failed {
		return ""
	}
	if msg, ok := e.Output["error"].(string); ok {
		return msg
	}
	return ""
}

// TotalDurationMs sums the simulated durations of all processing steps.
func (e Envelope) TotalDurationMs() int {
	total := 0
	for _, s := range e.ProcessingSteps {
		total += s.DurationMs
	}
	return total
}

// Clone returns a deep copy of the envelope, including its input and nested
// output values.
func (e Envelope) Clone() Envelope {
	out := e
	out.Input = CloneValue(e.Input)
	out.Output = CloneMap(e.Output)
	if e.ProcessingSteps != nil {
		out.ProcessingSteps = make([]ProcessingStep, len(e.ProcessingSteps))
		for i, s := range e.ProcessingSteps {
			s.Details = cloneStrings(s.Details)
			out.ProcessingSteps[i] = s
		}
	}
	out.Insights = cloneStrings(e.Insights)
	if e.Evidence != nil {
		ev := *e.Evidence
		if ev.Conservation != nil {
			c := *ev.Conservation
			ev.Conservation = &c
		}
		ev.Tags = cloneStrings(ev.Tags)
		ev.DomainHits = cloneStrings(ev.DomainHits)
		ev.MotifHits = cloneStrings(ev.MotifHits)
		ev.Notes = cloneStrings(ev.Notes)
		ev.Benchmarks = cloneStrings(ev.Benchmarks)
		out.Evidence = &ev
	}
	return out
}

// cloneStrings copies s, preserving the difference between nil and empty.
func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append(make([]string, 0, len(s)), s...)
}
