package model

import (
	"errors"
	"fmt"
	"slices"
)

// ErrOutputExists is returned when a second envelope is recorded for a
// capability within one run.
var ErrOutputExists = errors.New("output already recorded")

// RunContext is the accumulating record of one pipeline run: the seed plus the
// envelope of every completed step, keyed by capability id.
//
// A RunContext is owned by exactly one run. It only grows; Record refuses to
// replace an envelope that is already present.
type RunContext struct {
	// Seed holds the use case's seed values.
	Seed map[string]any `json:"seed"`

	// Outputs maps capability ids to the envelopes of completed steps.
	Outputs map[string]Envelope `json:"outputs"`

	// Order lists the keys of Outputs in the order they were recorded.
	Order []string `json:"order"`
}

// NewRunContext creates an empty context holding a copy of seed.
func NewRunContext(seed map[string]any) *RunContext {
	s := CloneMap(seed)
	if s == nil {
		s = make(map[string]any)
	}
	return &RunContext{
		Seed:    s,
		Outputs: make(map[string]Envelope),
		Order:   make([]string, 0),
	}
}

// Record appends the envelope for capabilityID.
func (c *RunContext) Record(capabilityID string, env Envelope) error {
	if _, ok := c.Outputs[capabilityID]; ok {
		return fmt.Errorf("%w: %s", ErrOutputExists, capabilityID)
	}
	c.Outputs[capabilityID] = env
	c.Order = append(c.Order, capabilityID)
	return nil
}

// Output returns the envelope recorded for capabilityID.
func (c RunContext) Output(capabilityID string) (Envelope, bool) {
	env, ok := c.Outputs[capabilityID]
	return env, ok
}

// Len returns the number of recorded envelopes.
func (c RunContext) Len() int {
	return len(c.Order)
}

// Clone returns a deep copy of the context suitable for handing to readers
// while the owning run continues.
func (c *RunContext) Clone() RunContext {
	out := RunContext{
		Seed:    CloneMap(c.Seed),
		Outputs: make(map[string]Envelope, len(c.Outputs)),
		Order:   slices.Clone(c.Order),
	}
	for k, env := range c.Outputs {
		out.Outputs[k] = env.Clone()
	}
	return out
}

// View returns the read-only window a step sees: the seed and the recorded
// outputs whose capability ids appear in needs.
func (c *RunContext) View(needs []string) *View {
	v := &View{
		seed:    c.Seed,
		outputs: make(map[string]Envelope, len(needs)),
		needs:   needs,
	}
	for _, id := range needs {
		if env, ok := c.Outputs[id]; ok {
			v.outputs[id] = env.Clone()
		}
	}
	return v
}

// View is what an InputBuilder can read. Outputs that were not declared in
// the step's Needs, or that have not been recorded yet, are reported absent.
type View struct {
	seed       map[string]any
	outputs    map[string]Envelope
	needs      []string
	undeclared []string
}

// Seed returns the seed value stored under key.
func (v *View) Seed(key string) (any, bool) {
	val, ok := v.seed[key]
	return CloneValue(val), ok
}

// SeedString returns the seed value under key formatted as a string, or "".
func (v *View) SeedString(key string) string {
	val, ok := v.seed[key]
	if !ok || val == nil {
		return ""
	}
	if s, ok := val.(string); ok {
		return s
	}
	return fmt.Sprint(val)
}

// SeedMap returns a copy of the whole seed.
func (v *View) SeedMap() map[string]any {
	out := CloneMap(v.seed)
	if out == nil {
		out = make(map[string]any)
	}
	return out
}

// Output returns the envelope of an earlier, declared step.
func (v *View) Output(capabilityID string) (Envelope, bool) {
	if !slices.Contains(v.needs, capabilityID) {
		v.undeclared = append(v.undeclared, capabilityID)
		return Envelope{}, false
	}
	env, ok := v.outputs[capabilityID]
	return env, ok
}

// Field returns output[field] of an earlier, declared step.
func (v *View) Field(capabilityID, field string) (any, bool) {
	env, ok := v.Output(capabilityID)
	if !ok {
		return nil, false
	}
	val, ok := env.Output[field]
	return val, ok
}

// Undeclared returns the capability ids the builder tried to read without
// declaring them in Needs.
func (v *View) Undeclared() []string {
	return slices.Clone(v.undeclared)
}
