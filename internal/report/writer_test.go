package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/dossiersim/internal/model"
)

// createTestReport creates a report with sample data for testing.
func createTestReport() *model.RunReport {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return &model.RunReport{
		RunID:              "run-1",
		UseCaseID:          "variant-triage",
		UseCaseName:        "Variant triage",
		ReportCapabilityID: "variant_impact",
		StartedAt:          start,
		FinishedAt:         start.Add(1500 * time.Millisecond),
		State:              model.RunPartiallyFailed,
		FailedStep:         "protein_domain",
		Steps: []model.StepSummary{
			{Index: 0, CapabilityID: "conservation", Title: "Scoring conservation", Provenance: model.ProvenanceCore, DurationMs: 420, Insights: []string{"Position is highly conserved"}},
			{Index: 1, CapabilityID: "protein_domain", Provenance: model.ProvenanceSimulated, Failed: true, Error: "capability protein_domain: capability failure: upstream unavailable"},
			{Index: 2, CapabilityID: "variant_impact", Provenance: model.ProvenanceAugmented, DurationMs: 900},
		},
		Dossier: &model.Dossier{
			SubjectID:      "BRCA1 p.Cys61Gly",
			Status:         "Pathogenic variant: clinical action indicated",
			StatusSeverity: model.SeverityCritical,
			Checkpoints: []model.Checkpoint{
				{Label: "Variant normalized", Severity: model.SeverityFavorable, Detail: "HGVS notation validated"},
				{Label: "Impact classification", Severity: model.SeverityCritical, Detail: "Pathogenic"},
				{Label: "Prediction confidence", Severity: model.SeverityUncertain, Detail: "0.41"},
			},
			Description:     "Predicted functional impact of a coding variant.",
			KeyFindings:     []string{"Impact score 0.870."},
			DomainRelevance: "Clinical variant interpretation",
			NextSteps:       []model.NextStep{{Label: "Order confirmatory testing", ActionID: "confirm-variant"}},
		},
	}
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	write := func(t *testing.T, report *model.RunReport, opts ...SimpleWriterOption) string {
		t.Helper()
		var buf bytes.Buffer
		n, err := NewSimpleWriter(&buf, opts...).Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("expected %d bytes reported, got %d", buf.Len(), n)
		}
		return buf.String()
	}

	t.Run("writes report header", func(t *testing.T) {
		t.Parallel()

		output := write(t, createTestReport())
		for _, want := range []string{"DOSSIER REPORT", "Variant triage (variant-triage)", "run-1", "Duration:  1.5s"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("writes run state", func(t *testing.T) {
		t.Parallel()

		testCases := []struct {
			state model.RunState
			want  string
		}{
			{model.RunCompleted, "Status:    Complete"},
			{model.RunPartiallyFailed, "PARTIALLY FAILED (first failure: protein_domain)"},
			{model.RunFailed, "FAILED at protein_domain"},
			{model.RunCancelled, "CANCELLED"},
		}
		for _, tc := range testCases {
			report := createTestReport()
			report.State = tc.state
			if output := write(t, report); !strings.Contains(output, tc.want) {
				t.Errorf("state %s: expected output to contain %q", tc.state, tc.want)
			}
		}
	})

	t.Run("writes steps with failures", func(t *testing.T) {
		t.Parallel()

		output := write(t, createTestReport())
		if !strings.Contains(output, "STEPS") {
			t.Error("expected steps section")
		}
		if !strings.Contains(output, "FAILED") || !strings.Contains(output, "upstream unavailable") {
			t.Error("expected failed step and its error")
		}
		if strings.Contains(output, "Position is highly conserved") {
			t.Error("insights should only appear in verbose mode")
		}
	})

	t.Run("verbose mode includes insights", func(t *testing.T) {
		t.Parallel()

		output := write(t, createTestReport(), WithVerbose(true))
		if !strings.Contains(output, "Position is highly conserved") {
			t.Error("expected insights in verbose output")
		}
	})

	t.Run("writes dossier", func(t *testing.T) {
		t.Parallel()

		output := write(t, createTestReport())
		for _, want := range []string{
			"BRCA1 p.Cys61Gly",
			"[!!!] Pathogenic variant: clinical action indicated (CRITICAL)",
			"[+  ] Variant normalized: HGVS notation validated",
			"* Impact score 0.870.",
			"> Order confirmatory testing (confirm-variant)",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("handles missing dossier", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.Dossier = nil
		if output := write(t, report); strings.Contains(output, "DOSSIER\n") {
			t.Error("expected no dossier section")
		}
		if output := write(t, report, WithShowEmpty(true)); !strings.Contains(output, "No dossier was produced") {
			t.Error("expected empty dossier section with show empty")
		}
	})

	t.Run("writes summary", func(t *testing.T) {
		t.Parallel()

		other := createTestReport()
		other.UseCaseID = "drug-sensitivity"
		other.State = model.RunCancelled
		other.Dossier = nil

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteSummary([]*model.RunReport{createTestReport(), other}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "variant-triage") || !strings.Contains(output, "drug-sensitivity") {
			t.Error("expected both use cases in summary")
		}
		if !strings.Contains(output, "no dossier") {
			t.Error("expected placeholder for missing dossier")
		}
	})
}

// TestSeverityIndicator tests the text severity markers.
func TestSeverityIndicator(t *testing.T) {
	t.Parallel()

	seen := make(map[string]model.Severity)
	for _, sev := range []model.Severity{model.SeverityCritical, model.SeverityUnfavorable, model.SeverityNeutral, model.SeverityFavorable} {
		ind := severityIndicator(sev)
		if prev, ok := seen[ind]; ok {
			t.Errorf("%s and %s share indicator %q", prev, sev, ind)
		}
		seen[ind] = sev
	}
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("outputs valid JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded model.RunReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON output: %v", err)
		}
		if decoded.State != model.RunPartiallyFailed {
			t.Errorf("expected state to round trip, got %s", decoded.State)
		}
		if decoded.Dossier == nil || decoded.Dossier.StatusSeverity != model.SeverityCritical {
			t.Errorf("expected dossier severity to round trip, got %+v", decoded.Dossier)
		}
		if !strings.Contains(buf.String(), `"statusSeverity":"CRITICAL"`) {
			t.Error("expected severities to serialize by name")
		}
	})

	t.Run("compact output by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Error("expected compact output on a single line")
		}
	})

	t.Run("pretty print with indent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"run_id\"") {
			t.Error("expected indented output")
		}
	})

	t.Run("WriteSummary outputs an array", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteSummary([]*model.RunReport{createTestReport()}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got []RunSummary
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON output: %v", err)
		}
		want := []RunSummary{{
			RunID:          "run-1",
			UseCaseID:      "variant-triage",
			State:          model.RunPartiallyFailed,
			Subject:        "BRCA1 p.Cys61Gly",
			Status:         "Pathogenic variant: clinical action indicated",
			StatusSeverity: model.SeverityCritical,
			FailedStep:     "protein_domain",
		}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("summary mismatch (-want +got):\n%s", diff)
		}
	})
}

// TestFullJSONWriter tests the versioned wrapper.
func TestFullJSONWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewFullJSONWriter(&buf, "v1.2.3").Write(createTestReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded struct {
		Version string          `json:"version"`
		Report  model.RunReport `json:"report"`
		Summary RunSummary      `json:"summary"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if decoded.Version != "v1.2.3" {
		t.Errorf("expected version v1.2.3, got %q", decoded.Version)
	}
	if decoded.Report.RunID != "run-1" || decoded.Summary.RunID != "run-1" {
		t.Error("expected report and summary")
	}
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	write := func(t *testing.T, report *model.RunReport) string {
		t.Helper()
		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return buf.String()
	}

	t.Run("writes tables and chart", func(t *testing.T) {
		t.Parallel()

		output := write(t, createTestReport())
		for _, want := range []string{
			"# Dossier: Variant triage",
			"Impact classification",
			"```mermaid",
			"Checkpoint Severity Distribution",
			"`conservation`",
			"Order confirmatory testing",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("alert follows status severity", func(t *testing.T) {
		t.Parallel()

		testCases := []struct {
			severity model.Severity
			alert    string
		}{
			{model.SeverityCritical, "[!CAUTION]"},
			{model.SeverityUnfavorable, "[!WARNING]"},
			{model.SeverityUncertain, "[!IMPORTANT]"},
			{model.SeverityFavorable, "[!TIP]"},
			{model.SeverityNeutral, "[!NOTE]"},
		}
		for _, tc := range testCases {
			report := createTestReport()
			report.Dossier.StatusSeverity = tc.severity
			if output := write(t, report); !strings.Contains(output, tc.alert) {
				t.Errorf("severity %s: expected %s alert", tc.severity, tc.alert)
			}
		}
	})

	t.Run("handles missing dossier", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.Dossier = nil
		if output := write(t, report); !strings.Contains(output, "No dossier was produced") {
			t.Error("expected missing dossier note")
		}
	})

	t.Run("writes summary table", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteSummary([]*model.RunReport{createTestReport()}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "`variant-triage`") {
			t.Error("expected use case row")
		}
	})
}

// failingWriter always returns an error.
type failingWriter struct{}

func (failingWriter) Write(*model.RunReport) (int, error) { return 0, errors.New("disk full") }

func (failingWriter) WriteSummary([]*model.RunReport) (int, error) {
	return 0, errors.New("disk full")
}

// TestMultiWriter tests fan-out to several writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var text, js bytes.Buffer
		mw := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js))

		n, err := mw.Write(createTestReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != text.Len()+js.Len() {
			t.Errorf("expected %d total bytes, got %d", text.Len()+js.Len(), n)
		}
		if text.Len() == 0 || js.Len() == 0 {
			t.Error("expected both writers to receive output")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var after bytes.Buffer
		mw := NewMultiWriter(failingWriter{}, NewSimpleWriter(&after))
		if _, err := mw.WriteSummary([]*model.RunReport{createTestReport()}); err == nil {
			t.Fatal("expected error")
		}
		if after.Len() != 0 {
			t.Error("expected later writers to be skipped")
		}
	})
}

// TestTruncateString tests rune-aware truncation.
func TestTruncateString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"a longer detail string", 10, "a longe..."},
		{"abcdef", 3, "abc"},
		{"µµµµµµ", 5, "µµ..."},
	}
	for _, tc := range testCases {
		if got := truncateString(tc.in, tc.maxLen); got != tc.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tc.in, tc.maxLen, got, tc.want)
		}
	}
}
