package model

import (
	"time"
)

// RunReport is everything a renderer needs to display one finished run.
// It is also the unit stored in run history.
type RunReport struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id"`

	// UseCaseID and UseCaseName identify the executed use case.
	UseCaseID   string `json:"use_case_id"`
	UseCaseName string `json:"use_case_name"`

	// ReportCapabilityID is the capability the dossier was synthesized from.
	ReportCapabilityID string `json:"report_capability_id"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// State is the terminal run state.
	State RunState `json:"state"`

	// Steps summarizes each step that produced an envelope, in run order.
	Steps []StepSummary `json:"steps"`

	// FailedStep is the capability id of the first failed step, if any.
	FailedStep string `json:"failed_step,omitempty"`

	// Context is the accumulated run context. Included in JSON output so a
	// failed run can be inspected.
	Context *RunContext `json:"context,omitempty"`

	// Dossier is nil when the report step never ran.
	Dossier *Dossier `json:"dossier,omitempty"`

	// ErrorMessage carries the run-level error (e.g. cancellation), if any.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// StepSummary is the display form of one recorded step.
type StepSummary struct {
	Index        int        `json:"index"`
	CapabilityID string     `json:"capability_id"`
	Title        string     `json:"title"`
	Provenance   Provenance `json:"provenance"`
	DurationMs   int        `json:"duration_ms"`
	Degraded     bool       `json:"degraded,omitempty"`
	Failed       bool       `json:"failed,omitempty"`
	Error        string     `json:"error,omitempty"`
	Insights     []string   `json:"insights,omitempty"`
}

// NewRunReport builds the report for a run from its use case and context.
// Steps are listed in declared order; steps that never ran are omitted.
func NewRunReport(runID string, uc UseCase, rc *RunContext, state RunState) *RunReport {
	r := &RunReport{
		RunID:              runID,
		UseCaseID:          uc.ID,
		UseCaseName:        uc.Name,
		ReportCapabilityID: uc.ReportCapabilityID,
		State:              state,
		Steps:              make([]StepSummary, 0, len(uc.Steps)),
		Context:            rc,
	}
	if rc == nil {
		return r
	}

	for i, step := range uc.Steps {
		env, ok := rc.Output(step.CapabilityID)
		if !ok {
			continue
		}
		r.Steps = append(r.Steps, StepSummary{
			Index:        i,
			CapabilityID: step.CapabilityID,
			Title:        step.Title,
			Provenance:   env.Provenance.Normalize(),
			DurationMs:   env.TotalDurationMs(),
			Degraded:     env.Degraded,
			Failed:       env.Failed,
			Error:        env.ErrorMessage(),
			Insights:     env.Insights,
		})
		if env.Failed && r.FailedStep == "" {
			r.FailedStep = step.CapabilityID
		}
	}
	return r
}

// Duration returns how long the run took.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// HasDossier reports whether a dossier was synthesized.
func (r *RunReport) HasDossier() bool {
	return r.Dossier != nil
}

// DegradedSteps returns the capability ids of steps without an adapter.
func (r *RunReport) DegradedSteps() []string {
	var ids []string
	for _, s := range r.Steps {
		if s.Degraded {
			ids = append(ids, s.CapabilityID)
		}
	}
	return ids
}
