package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/dossiersim/internal/model"
)

// MarkdownWriter outputs reports in Markdown format for documentation and
// sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeDossier(md, report.Dossier)
	w.writeSteps(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteSummary outputs a table with one row per run.
func (w *MarkdownWriter) WriteSummary(reports []*model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H2("Run Summary")
	md.PlainText("")

	rows := make([][]string, len(reports))
	for i, r := range reports {
		s := Summarize(r)
		status := s.Status
		if status == "" {
			status = "-"
		}
		rows[i] = []string{
			"`" + s.UseCaseID + "`",
			s.State.String(),
			severityEmoji(s.StatusSeverity) + " " + status,
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Use Case", "State", "Status"},
		Rows:   rows,
	})
	md.PlainText("")

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.RunReport) {
	md.H1("Dossier: " + report.UseCaseName)
	md.PlainText("")

	rows := [][]string{
		{"Use Case", "`" + report.UseCaseID + "`"},
		{"Run", "`" + report.RunID + "`"},
		{"State", w.stateText(report)},
	}
	if !report.StartedAt.IsZero() {
		rows = append(rows,
			[]string{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			[]string{"Duration", report.Duration().String()},
		)
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// stateText returns the state text based on report state.
func (w *MarkdownWriter) stateText(report *model.RunReport) string {
	switch report.State {
	case model.RunCompleted:
		return "✅ Complete"
	case model.RunPartiallyFailed:
		return "⚠️ Partially failed (first failure: `" + report.FailedStep + "`)"
	case model.RunFailed:
		return "❌ Failed at `" + report.FailedStep + "`"
	case model.RunCancelled:
		return "⏹️ Cancelled (partial results)"
	default:
		return report.State.String()
	}
}

// writeDossier writes the dossier sections.
func (w *MarkdownWriter) writeDossier(md *markdown.Markdown, d *model.Dossier) {
	md.H2("Dossier")
	md.PlainText("")

	if d == nil {
		md.Note("No dossier was produced for this run.")
		md.PlainText("")
		return
	}

	md.Table(markdown.TableSet{
		Header: []string{"Subject", "Status", "Severity"},
		Rows: [][]string{
			{d.SubjectID, d.Status, severityEmoji(d.StatusSeverity) + " " + d.StatusSeverity.String()},
		},
	})
	md.PlainText("")

	w.writeAlert(md, d)

	if d.Description != "" {
		md.PlainText(d.Description)
		md.PlainText("")
	}
	if d.DomainRelevance != "" {
		md.PlainTextf("**Relevance:** %s", d.DomainRelevance)
		md.PlainText("")
	}

	w.writeCheckpoints(md, d)

	if len(d.KeyFindings) > 0 {
		md.H3("Key Findings")
		md.PlainText("")
		md.BulletList(d.KeyFindings...)
		md.PlainText("")
	}

	if len(d.NextSteps) > 0 {
		md.H3("Next Steps")
		md.PlainText("")
		items := make([]string, len(d.NextSteps))
		for i, n := range d.NextSteps {
			items[i] = n.Label + " (`" + n.ActionID + "`)"
		}
		md.OrderedList(items...)
		md.PlainText("")
	}
}

// writeAlert writes an alert matching the status severity.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, d *model.Dossier) {
	switch d.StatusSeverity {
	case model.SeverityCritical:
		md.Cautionf("%s. Results are simulated; confirm before acting.", d.Status)
	case model.SeverityUnfavorable:
		md.Warningf("%s.", d.Status)
	case model.SeverityUncertain:
		md.Importantf("%s. More evidence is needed.", d.Status)
	case model.SeverityFavorable:
		md.Tip(d.Status + ".")
	default:
		md.Note(d.Status + ".")
	}
	md.PlainText("")
}

// writeCheckpoints writes the checkpoint table and a severity pie chart.
func (w *MarkdownWriter) writeCheckpoints(md *markdown.Markdown, d *model.Dossier) {
	if len(d.Checkpoints) == 0 {
		return
	}

	md.H3("Checkpoints")
	md.PlainText("")

	rows := make([][]string, len(d.Checkpoints))
	for i, c := range d.Checkpoints {
		detail := c.Detail
		if detail == "" {
			detail = "-"
		}
		rows[i] = []string{c.Label, severityEmoji(c.Severity) + " " + c.Severity.String(), truncateString(detail, 60)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Checkpoint", "Severity", "Detail"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writePieChart(md, d)
}

// writePieChart writes a mermaid pie chart for checkpoint severity distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, d *model.Dossier) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Checkpoint Severity Distribution"),
		piechart.WithShowData(true),
	)

	counts := d.CountBySeverity()
	for _, sev := range severityOrder {
		if n := counts[sev]; n > 0 {
			chart.LabelAndIntValue(titleCase(sev.String()), uint64(n))
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeSteps writes the step table.
func (w *MarkdownWriter) writeSteps(md *markdown.Markdown, report *model.RunReport) {
	md.H2("Steps")
	md.PlainText("")

	if len(report.Steps) == 0 {
		md.PlainText("No steps recorded.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Steps))
	for i, s := range report.Steps {
		result := "ok"
		switch {
		case s.Failed:
			result = "failed: " + truncateString(s.Error, 50)
		case s.Degraded:
			result = "degraded"
		}
		rows[i] = []string{
			strconv.Itoa(s.Index + 1),
			"`" + s.CapabilityID + "`",
			string(s.Provenance),
			strconv.Itoa(s.DurationMs) + "ms",
			result,
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Capability", "Provenance", "Simulated Time", "Result"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, s := range report.Steps {
		if len(s.Insights) > 0 {
			md.Details(s.CapabilityID, strings.Join(s.Insights, "\n"))
		}
	}
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [dossiersim](https://github.com/nao1215/dossiersim). Results are simulated.*")
}

func severityEmoji(s model.Severity) string {
	switch s {
	case model.SeverityCritical:
		return "🔴"
	case model.SeverityUnfavorable:
		return "🟠"
	case model.SeverityUncertain:
		return "🟡"
	case model.SeverityFavorable:
		return "🟢"
	default:
		return "⚪"
	}
}

// titleCase turns "UNFAVORABLE" into "Unfavorable".
func titleCase(s string) string {
	if s == "" {
		return s
	}
	return s[:1] + strings.ToLower(s[1:])
}
