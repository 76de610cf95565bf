package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/dossiersim/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with nothing to list are shown.
	showEmpty bool

	// verbose adds step insights and errors to the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.RunReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSteps(&sb, report)
	w.writeDossier(&sb, report.Dossier)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// WriteSummary outputs one line per run.
func (w *SimpleWriter) WriteSummary(reports []*model.RunReport) (int, error) {
	var sb strings.Builder

	sectionHeader(&sb, "SUMMARY")
	for _, r := range reports {
		s := Summarize(r)
		status := s.Status
		if status == "" {
			status = "no dossier"
		}
		sb.WriteString(fmt.Sprintf("  [%-3s] %-20s %-16s %s\n",
			severityIndicator(s.StatusSeverity), s.UseCaseID, s.State, status))
	}
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                          DOSSIER REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Use Case:  %s (%s)\n", report.UseCaseName, report.UseCaseID))
	sb.WriteString(fmt.Sprintf("Run:       %s\n", report.RunID))
	if !report.StartedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Started:   %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST")))
		sb.WriteString(fmt.Sprintf("Duration:  %s\n", report.Duration()))
	}

	switch report.State {
	case model.RunCompleted:
		sb.WriteString("Status:    Complete\n")
	case model.RunPartiallyFailed:
		sb.WriteString(fmt.Sprintf("Status:    PARTIALLY FAILED (first failure: %s)\n", report.FailedStep))
	case model.RunFailed:
		sb.WriteString(fmt.Sprintf("Status:    FAILED at %s\n", report.FailedStep))
	case model.RunCancelled:
		sb.WriteString("Status:    CANCELLED (partial results)\n")
	default:
		sb.WriteString(fmt.Sprintf("Status:    %s\n", report.State))
	}
	if report.ErrorMessage != "" {
		sb.WriteString(fmt.Sprintf("Error:     %s\n", report.ErrorMessage))
	}

	sb.WriteString("\n")
}

// writeSteps writes one line per recorded step.
func (w *SimpleWriter) writeSteps(sb *strings.Builder, report *model.RunReport) {
	if len(report.Steps) == 0 && !w.showEmpty {
		return
	}

	sectionHeader(sb, "STEPS")

	if len(report.Steps) == 0 {
		sb.WriteString("  No steps recorded\n\n")
		return
	}

	for _, s := range report.Steps {
		flag := ""
		switch {
		case s.Failed:
			flag = " FAILED"
		case s.Degraded:
			flag = " DEGRADED"
		}
		sb.WriteString(fmt.Sprintf("  %d. %-20s %-10s %5dms%s\n", s.Index+1, s.CapabilityID, s.Provenance, s.DurationMs, flag))
		if s.Failed && s.Error != "" {
			sb.WriteString(fmt.Sprintf("     Error: %s\n", s.Error))
		}
		if w.verbose {
			for _, insight := range s.Insights {
				sb.WriteString(fmt.Sprintf("     - %s\n", insight))
			}
		}
	}
	sb.WriteString("\n")
}

// writeDossier writes the synthesized dossier.
func (w *SimpleWriter) writeDossier(sb *strings.Builder, d *model.Dossier) {
	if d == nil {
		if w.showEmpty {
			sectionHeader(sb, "DOSSIER")
			sb.WriteString("  No dossier was produced\n\n")
		}
		return
	}

	sectionHeader(sb, "DOSSIER")

	sb.WriteString(fmt.Sprintf("Subject:   %s\n", d.SubjectID))
	sb.WriteString(fmt.Sprintf("Status:    [%s] %s (%s)\n", severityIndicator(d.StatusSeverity), d.Status, d.StatusSeverity))
	if d.DomainRelevance != "" {
		sb.WriteString(fmt.Sprintf("Relevance: %s\n", d.DomainRelevance))
	}
	if d.Description != "" {
		sb.WriteString(fmt.Sprintf("\n  %s\n", d.Description))
	}
	sb.WriteString("\n")

	if len(d.Checkpoints) > 0 || w.showEmpty {
		sb.WriteString("Checkpoints:\n")
		if len(d.Checkpoints) == 0 {
			sb.WriteString("  None\n")
		}
		for _, c := range d.Checkpoints {
			line := fmt.Sprintf("  [%-3s] %s", severityIndicator(c.Severity), c.Label)
			if c.Detail != "" {
				line += ": " + c.Detail
			}
			sb.WriteString(line + "\n")
		}
		sb.WriteString("\n")
	}

	if len(d.KeyFindings) > 0 || w.showEmpty {
		sb.WriteString("Key findings:\n")
		if len(d.KeyFindings) == 0 {
			sb.WriteString("  None\n")
		}
		for _, f := range d.KeyFindings {
			sb.WriteString(fmt.Sprintf("  * %s\n", f))
		}
		sb.WriteString("\n")
	}

	if len(d.NextSteps) > 0 {
		sb.WriteString("Next steps:\n")
		for _, n := range d.NextSteps {
			sb.WriteString(fmt.Sprintf("  > %s (%s)\n", n.Label, n.ActionID))
		}
		sb.WriteString("\n")
	}
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by dossiersim (simulated results, not for clinical use)\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

func sectionHeader(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// severityIndicator returns a visual indicator for the severity level.
func severityIndicator(severity model.Severity) string {
	switch severity {
	case model.SeverityCritical:
		return "!!!"
	case model.SeverityUnfavorable:
		return "!!"
	case model.SeverityUncertain:
		return "?"
	case model.SeverityNeutral:
		return "-"
	case model.SeverityFavorable:
		return "+"
	default:
		return "?"
	}
}
