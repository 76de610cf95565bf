package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/dossiersim/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *RunDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

var baseTime = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

// testReport builds a finished report with one recorded step.
func testReport(runID, useCaseID string, offset time.Duration, label string) *model.RunReport {
	rc := model.NewRunContext(map[string]any{"gene": "BRCA1"})
	env := model.Envelope{
		Input:           map[string]any{"gene": "BRCA1"},
		Output:          map[string]any{"label": label},
		ProcessingSteps: []model.ProcessingStep{{Name: "score", DurationMs: 120}},
		Insights:        []string{},
		Provenance:      model.ProvenanceCore,
	}
	_ = rc.Record("variant_impact", env) //nolint:errcheck // fresh context

	uc := model.UseCase{
		ID:                 useCaseID,
		Name:               "Variant triage",
		Steps:              []model.Step{{CapabilityID: "variant_impact"}},
		ReportCapabilityID: "variant_impact",
	}
	rep := model.NewRunReport(runID, uc, rc, model.RunCompleted)
	rep.StartedAt = baseTime.Add(offset)
	rep.FinishedAt = baseTime.Add(offset + time.Second)
	rep.Dossier = &model.Dossier{
		SubjectID:      "BRCA1",
		Status:         label + " variant",
		StatusSeverity: model.ClassificationSeverity(label),
		Checkpoints:    []model.Checkpoint{{Label: "Impact classification", Severity: model.ClassificationSeverity(label), Detail: label}},
		KeyFindings:    []string{"Classified as " + label + "."},
	}
	return rep
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %s", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		_, err := Open(t.TempDir(), Options{CreateIfNotExists: false})
		if !errors.Is(err, ErrDatabaseNotFound) {
			t.Errorf("expected ErrDatabaseNotFound, got %v", err)
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		if err := db.SaveRun(context.Background(), testReport("r1", "variant-triage", 0, "Benign")); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db.Close()

		got, err := db.GetRunByID(context.Background(), "r1")
		if err != nil || got == nil {
			t.Fatalf("expected stored run, got %v, %v", got, err)
		}
	})
}

// TestDefaultOptions tests the default database options.
func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	if diff := cmp.Diff(Options{CreateIfNotExists: true, EnableWAL: true}, DefaultOptions()); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}
}

// TestSaveRun tests storing and loading runs.
func TestSaveRun(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("save and retrieve report", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		rep := testReport("r1", "variant-triage", 0, "Pathogenic")
		if err := db.SaveRun(ctx, rep); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}

		got, err := db.GetLatestRun(ctx, "variant-triage")
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got == nil {
			t.Fatal("expected a run")
		}
		if diff := cmp.Diff(rep.Dossier, got.Dossier); diff != "" {
			t.Errorf("dossier mismatch (-want +got):\n%s", diff)
		}
		if got.State != model.RunCompleted || got.RunID != "r1" {
			t.Errorf("unexpected report %+v", got)
		}
	})

	t.Run("rejects invalid reports", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		if err := db.SaveRun(ctx, nil); !errors.Is(err, ErrInvalidReport) {
			t.Errorf("expected ErrInvalidReport, got %v", err)
		}
		if err := db.SaveRun(ctx, &model.RunReport{}); !errors.Is(err, ErrInvalidReport) {
			t.Errorf("expected ErrInvalidReport, got %v", err)
		}
	})

	t.Run("rejects duplicate run ids", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		if err := db.SaveRun(ctx, testReport("r1", "variant-triage", 0, "Benign")); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
		if err := db.SaveRun(ctx, testReport("r1", "variant-triage", time.Minute, "Benign")); err == nil {
			t.Error("expected duplicate run id to fail")
		}
		history, err := db.GetRunHistory(ctx, "variant-triage")
		if err != nil {
			t.Fatalf("failed to get history: %v", err)
		}
		if len(history) != 1 {
			t.Errorf("expected failed save to roll back, got %d runs", len(history))
		}
	})

	t.Run("stores runs without a dossier", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		rep := testReport("r1", "variant-triage", 0, "Benign")
		rep.Dossier = nil
		rep.State = model.RunCancelled
		if err := db.SaveRun(ctx, rep); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}

		meta, err := db.GetRunHistoryWithMetadata(ctx, "variant-triage")
		if err != nil {
			t.Fatalf("failed to get metadata: %v", err)
		}
		if len(meta) != 1 || meta[0].DossierDigest != "" || meta[0].Status != "" || meta[0].State != model.RunCancelled {
			t.Errorf("unexpected metadata %+v", meta)
		}
	})

	t.Run("returns nil for unknown runs", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		got, err := db.GetLatestRun(ctx, "nothing")
		if err != nil || got != nil {
			t.Errorf("expected nil, nil; got %v, %v", got, err)
		}
		got, err = db.GetRunByID(ctx, "nothing")
		if err != nil || got != nil {
			t.Errorf("expected nil, nil; got %v, %v", got, err)
		}
	})
}

// TestRunHistory tests history queries.
func TestRunHistory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)

	for _, rep := range []*model.RunReport{
		testReport("r1", "variant-triage", 0, "Benign"),
		testReport("r2", "drug-sensitivity", time.Minute, "Sensitive"),
		testReport("r3", "variant-triage", 2*time.Minute, "Pathogenic"),
	} {
		if err := db.SaveRun(ctx, rep); err != nil {
			t.Fatalf("failed to save %s: %v", rep.RunID, err)
		}
	}

	t.Run("lists use cases", func(t *testing.T) {
		t.Parallel()

		ids, err := db.ListUseCases(ctx)
		if err != nil {
			t.Fatalf("failed to list use cases: %v", err)
		}
		if diff := cmp.Diff([]string{"drug-sensitivity", "variant-triage"}, ids); diff != "" {
			t.Errorf("use cases mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("history is newest first", func(t *testing.T) {
		t.Parallel()

		history, err := db.GetRunHistory(ctx, "variant-triage")
		if err != nil {
			t.Fatalf("failed to get history: %v", err)
		}
		ids := make([]string, len(history))
		for i, r := range history {
			ids[i] = r.RunID
		}
		if diff := cmp.Diff([]string{"r3", "r1"}, ids); diff != "" {
			t.Errorf("history mismatch (-want +got):\n%s", diff)
		}

		latest, err := db.GetLatestRun(ctx, "variant-triage")
		if err != nil {
			t.Fatalf("failed to get latest: %v", err)
		}
		if latest.RunID != "r3" {
			t.Errorf("expected latest r3, got %s", latest.RunID)
		}
	})

	t.Run("metadata carries status and digest", func(t *testing.T) {
		t.Parallel()

		meta, err := db.GetRunHistoryWithMetadata(ctx, "variant-triage")
		if err != nil {
			t.Fatalf("failed to get metadata: %v", err)
		}
		if len(meta) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(meta))
		}

		latest := meta[0]
		if latest.RunID != "r3" || latest.StatusSeverity != "CRITICAL" || latest.Status != "Pathogenic variant" {
			t.Errorf("unexpected metadata %+v", latest)
		}
		if !latest.Timestamp.Equal(baseTime.Add(2*time.Minute + time.Second)) {
			t.Errorf("unexpected timestamp %v", latest.Timestamp)
		}
		if latest.DossierDigest == "" || latest.DossierDigest == meta[1].DossierDigest {
			t.Error("expected distinct digests for different dossiers")
		}
	})

	t.Run("empty history for unknown use case", func(t *testing.T) {
		t.Parallel()

		history, err := db.GetRunHistory(ctx, "unknown")
		if err != nil || len(history) != 0 {
			t.Errorf("expected empty history, got %v, %v", history, err)
		}
	})
}

// TestGetStepRecords tests stored step envelopes.
func TestGetStepRecords(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)
	rep := testReport("r1", "variant-triage", 0, "Benign")
	if err := db.SaveRun(ctx, rep); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}

	records, err := db.GetStepRecords(ctx, "r1")
	if err != nil {
		t.Fatalf("failed to get steps: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 step, got %d", len(records))
	}
	rec := records[0]
	if rec.CapabilityID != "variant_impact" || rec.Provenance != model.ProvenanceCore || rec.Failed || rec.Degraded {
		t.Errorf("unexpected record %+v", rec)
	}
	if rec.Envelope.Output["label"] != "Benign" || rec.Envelope.TotalDurationMs() != 120 {
		t.Errorf("unexpected envelope %+v", rec.Envelope)
	}
}

// TestDossierDigest tests digest stability.
func TestDossierDigest(t *testing.T) {
	t.Parallel()

	d := testReport("r", "u", 0, "Benign").Dossier
	a, err := DossierDigest(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clone := d.Clone()
	b, _ := DossierDigest(&clone)
	if a != b || len(a) != 64 {
		t.Errorf("expected equal 64-char digests, got %q and %q", a, b)
	}

	clone.Status = "changed"
	c, _ := DossierDigest(&clone)
	if c == a {
		t.Error("expected digest to change with the dossier")
	}

	if empty, _ := DossierDigest(nil); empty != "" {
		t.Errorf("expected empty digest for nil dossier, got %q", empty)
	}
}

// TestParseTimestamp tests timestamp parsing.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	for _, s := range []string{"2026-05-04 10:00:00", "2026-05-04T10:00:00Z", "2026-05-04T10:00:00"} {
		if got := parseTimestamp(s); !got.Equal(want) {
			t.Errorf("parseTimestamp(%q) = %v", s, got)
		}
	}
	if got := parseTimestamp("garbage"); !got.IsZero() {
		t.Errorf("expected zero time, got %v", got)
	}
}
