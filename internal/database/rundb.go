package database

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/sha3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/dossiersim/internal/model"
)

// FileName is the name of the database file inside the database directory.
const FileName = "dossiersim.db"

// RunDB provides SQLite-based storage for run reports.
type RunDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a RunDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw prevents creating new files; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Path returns the database file path.
func (rdb *RunDB) Path() string {
	return rdb.dbPath
}

// Close closes the database connection.
func (rdb *RunDB) Close() error {
	return rdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (rdb *RunDB) createTables() error {
	schema := `
	-- Runs store complete run reports as JSON
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		use_case_id TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		state TEXT NOT NULL,
		status TEXT,
		status_severity TEXT,
		dossier_digest TEXT,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_use_case ON runs(use_case_id);
	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp);

	-- Steps store the envelope each step recorded
	CREATE TABLE IF NOT EXISTS steps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		step_index INTEGER NOT NULL,
		capability_id TEXT NOT NULL,
		provenance TEXT NOT NULL,
		degraded INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		envelope_json TEXT NOT NULL,
		UNIQUE(run_id, capability_id)
	);

	CREATE INDEX IF NOT EXISTS idx_steps_run ON steps(run_id);
	CREATE INDEX IF NOT EXISTS idx_steps_capability ON steps(capability_id);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// DossierDigest returns the hex sha3-256 digest of the dossier's JSON form,
// or "" for a nil dossier. Equal dossiers have equal digests.
func DossierDigest(d *model.Dossier) (string, error) {
	if d == nil {
		return "", nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("failed to serialize dossier: %w", err)
	}
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// SaveRun stores a finished run and the envelopes of its steps.
func (rdb *RunDB) SaveRun(ctx context.Context, report *model.RunReport) error {
	if report == nil || report.RunID == "" {
		return ErrInvalidReport
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	digest, err := DossierDigest(report.Dossier)
	if err != nil {
		return err
	}

	var status, severity sql.NullString
	if report.Dossier != nil {
		status = sql.NullString{String: report.Dossier.Status, Valid: true}
		severity = sql.NullString{String: report.Dossier.StatusSeverity.String(), Valid: true}
	}

	ts := report.FinishedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	tx, err := rdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (run_id, use_case_id, timestamp, state, status, status_severity, dossier_digest, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.RunID,
		report.UseCaseID,
		ts.UTC().Format(timestampFormats[0]),
		report.State.String(),
		status,
		severity,
		digest,
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	if err := insertSteps(ctx, tx, report); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// insertSteps stores the envelope of every summarized step.
func insertSteps(ctx context.Context, tx *sql.Tx, report *model.RunReport) error {
	if report.Context == nil {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO steps (run_id, step_index, capability_id, provenance, degraded, failed, envelope_json)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare step insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range report.Steps {
		env, ok := report.Context.Output(s.CapabilityID)
		if !ok {
			continue
		}
		envJSON, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("failed to serialize envelope for %s: %w", s.CapabilityID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			report.RunID,
			s.Index,
			s.CapabilityID,
			string(env.Provenance.Normalize()),
			env.Degraded,
			env.Failed,
			string(envJSON),
		); err != nil {
			return fmt.Errorf("failed to save step %s: %w", s.CapabilityID, err)
		}
	}
	return nil
}

// GetLatestRun retrieves the most recent run of a use case.
// It returns nil without error when the use case has no runs.
func (rdb *RunDB) GetLatestRun(ctx context.Context, useCaseID string) (*model.RunReport, error) {
	query := `
	SELECT report_json FROM runs
	WHERE use_case_id = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1
	`

	var reportJSON string
	err := rdb.db.QueryRowContext(ctx, query, useCaseID).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return decodeReport(reportJSON)
}

// GetRunByID retrieves a run by its run id.
// It returns nil without error when no such run exists.
func (rdb *RunDB) GetRunByID(ctx context.Context, runID string) (*model.RunReport, error) {
	var reportJSON string
	err := rdb.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE run_id = ?`, runID).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return decodeReport(reportJSON)
}

// ListUseCases returns the ids of every use case with stored runs.
func (rdb *RunDB) ListUseCases(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT use_case_id FROM runs
	ORDER BY use_case_id
	`

	rows, err := rdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list use cases: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan use case: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// GetRunHistory retrieves all runs of a use case, newest first.
func (rdb *RunDB) GetRunHistory(ctx context.Context, useCaseID string) ([]*model.RunReport, error) {
	query := `
	SELECT report_json FROM runs
	WHERE use_case_id = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := rdb.db.QueryContext(ctx, query, useCaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}
	defer rows.Close()

	var reports []*model.RunReport
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		report, err := decodeReport(reportJSON)
		if err != nil {
			continue // Skip malformed reports
		}
		reports = append(reports, report)
	}

	return reports, rows.Err()
}

// RunMetadata contains summary information about a stored run.
// This is used for displaying run history without loading the full report.
type RunMetadata struct {
	// ID is the database row id.
	ID int64 `json:"id"`

	// RunID is the run's own identifier.
	RunID string `json:"run_id"`

	// UseCaseID is the executed use case.
	UseCaseID string `json:"use_case_id"`

	// Timestamp is when the run finished.
	Timestamp time.Time `json:"timestamp"`

	// State is the terminal run state.
	State model.RunState `json:"state"`

	// Status and StatusSeverity come from the dossier; both are empty when
	// the run produced none.
	Status         string `json:"status,omitempty"`
	StatusSeverity string `json:"status_severity,omitempty"`

	// DossierDigest is the sha3-256 digest of the dossier.
	DossierDigest string `json:"dossier_digest,omitempty"`
}

// GetRunHistoryWithMetadata retrieves run metadata for a use case, newest first.
// This is more efficient than GetRunHistory when only metadata is needed.
func (rdb *RunDB) GetRunHistoryWithMetadata(ctx context.Context, useCaseID string) ([]RunMetadata, error) {
	query := `
	SELECT id, run_id, use_case_id, timestamp, state, status, status_severity, dossier_digest
	FROM runs
	WHERE use_case_id = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := rdb.db.QueryContext(ctx, query, useCaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var timestamp, state string
		var status, severity, digest sql.NullString

		if err := rows.Scan(&meta.ID, &meta.RunID, &meta.UseCaseID, &timestamp, &state, &status, &severity, &digest); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.Timestamp = parseTimestamp(timestamp)
		if err := meta.State.UnmarshalText([]byte(state)); err != nil {
			return nil, fmt.Errorf("failed to parse state: %w", err)
		}
		meta.Status = status.String
		meta.StatusSeverity = severity.String
		meta.DossierDigest = digest.String

		results = append(results, meta)
	}

	return results, rows.Err()
}

// StepRecord is one stored step envelope.
type StepRecord struct {
	Index        int
	CapabilityID string
	Provenance   model.Provenance
	Degraded     bool
	Failed       bool
	Envelope     model.Envelope
}

// GetStepRecords returns the stored envelopes of a run in step order.
func (rdb *RunDB) GetStepRecords(ctx context.Context, runID string) ([]StepRecord, error) {
	query := `
	SELECT step_index, capability_id, provenance, degraded, failed, envelope_json
	FROM steps
	WHERE run_id = ?
	ORDER BY step_index
	`

	rows, err := rdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get steps: %w", err)
	}
	defer rows.Close()

	var records []StepRecord
	for rows.Next() {
		var rec StepRecord
		var provenance, envJSON string
		if err := rows.Scan(&rec.Index, &rec.CapabilityID, &provenance, &rec.Degraded, &rec.Failed, &envJSON); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		rec.Provenance = model.Provenance(provenance).Normalize()
		if err := json.Unmarshal([]byte(envJSON), &rec.Envelope); err != nil {
			return nil, fmt.Errorf("failed to parse envelope of %s: %w", rec.CapabilityID, err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func decodeReport(reportJSON string) (*model.RunReport, error) {
	var report model.RunReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
