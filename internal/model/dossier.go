package model

// Checkpoint is one graded observation in a dossier.
type Checkpoint struct {
	Label    string   `json:"label"`
	Severity Severity `json:"severity"`
	Detail   string   `json:"detail,omitempty"`
}

// NextStep is a follow-up action offered to the reader of a dossier.
type NextStep struct {
	Label    string `json:"label"`
	ActionID string `json:"actionId"`
}

// Dossier is the human-readable summary synthesized from the report
// capability's envelope and that capability's base template.
type Dossier struct {
	SubjectID       string       `json:"subjectId"`
	Status          string       `json:"status"`
	StatusSeverity  Severity     `json:"statusSeverity"`
	Checkpoints     []Checkpoint `json:"checkpoints"`
	Description     string       `json:"description"`
	KeyFindings     []string     `json:"keyFindings"`
	DomainRelevance string       `json:"domainRelevance,omitempty"`
	NextSteps       []NextStep   `json:"nextSteps,omitempty"`
}

// Clone returns a copy of d that shares no slices with it.
func (d Dossier) Clone() Dossier {
	out := d
	if d.Checkpoints != nil {
		out.Checkpoints = append(make([]Checkpoint, 0, len(d.Checkpoints)), d.Checkpoints...)
	}
	out.KeyFindings = cloneStrings(d.KeyFindings)
	if d.NextSteps != nil {
		out.NextSteps = append(make([]NextStep, 0, len(d.NextSteps)), d.NextSteps...)
	}
	return out
}

// WorstCheckpoint returns the highest checkpoint severity, or the status
// severity when there are no checkpoints.
func (d Dossier) WorstCheckpoint() Severity {
	if len(d.Checkpoints) == 0 {
		return d.StatusSeverity
	}
	worst := SeverityFavorable
	for _, c := range d.Checkpoints {
		worst = worst.Worse(c.Severity)
	}
	return worst
}

// CountBySeverity tallies checkpoints per severity level.
func (d Dossier) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int)
	for _, c := range d.Checkpoints {
		counts[c.Severity]++
	}
	return counts
}
