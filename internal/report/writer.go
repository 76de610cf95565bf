package report

import (
	"io"

	"github.com/nao1215/dossiersim/internal/model"
)

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs one run report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.RunReport) (int, error)

	// WriteSummary outputs a one-line overview of each run, which is what
	// batch runs print after the individual reports.
	WriteSummary(reports []*model.RunReport) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.RunReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteSummary outputs the summary to all configured Writers.
func (m *MultiWriter) WriteSummary(reports []*model.RunReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteSummary(reports)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// RunSummary is the overview of one run.
type RunSummary struct {
	RunID          string         `json:"run_id"`
	UseCaseID      string         `json:"use_case_id"`
	State          model.RunState `json:"state"`
	Subject        string         `json:"subject,omitempty"`
	Status         string         `json:"status,omitempty"`
	StatusSeverity model.Severity `json:"status_severity"`
	FailedStep     string         `json:"failed_step,omitempty"`
	DegradedSteps  []string       `json:"degraded_steps,omitempty"`
}

// Summarize builds the overview of report. Runs without a dossier report a
// neutral status severity.
func Summarize(report *model.RunReport) RunSummary {
	s := RunSummary{
		RunID:          report.RunID,
		UseCaseID:      report.UseCaseID,
		State:          report.State,
		StatusSeverity: model.SeverityNeutral,
		FailedStep:     report.FailedStep,
		DegradedSteps:  report.DegradedSteps(),
	}
	if report.Dossier != nil {
		s.Subject = report.Dossier.SubjectID
		s.Status = report.Dossier.Status
		s.StatusSeverity = report.Dossier.StatusSeverity
	}
	return s
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// severityOrder lists severities from worst to best, the order reports
// present them in.
var severityOrder = []model.Severity{
	model.SeverityCritical,
	model.SeverityUnfavorable,
	model.SeverityUncertain,
	model.SeverityNeutral,
	model.SeverityFavorable,
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
