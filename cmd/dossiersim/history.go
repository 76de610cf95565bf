package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/dossiersim/internal/config"
	"github.com/nao1215/dossiersim/internal/database"
	"github.com/nao1215/dossiersim/internal/model"
)

// Directions of a status severity change.
const (
	directionWorsened  = "worsened"
	directionImproved  = "improved"
	directionUnchanged = "unchanged"
	noDossierMessage   = "No dossier"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [use-case]",
		Short: "Compare dossiers with earlier runs",
		Long: `History shows how the dossier of a use case changed between runs.

Runs are saved by 'dossiersim run'. By default the two most recent runs of
the use case are compared:
- Status and status severity change
- Key findings added or removed
- Checkpoints whose severity changed
- Whether the dossier digest changed at all

Examples:
  # Compare the latest two runs
  dossiersim history variant-triage

  # List the stored runs of a use case
  dossiersim history --list variant-triage

  # Compare the latest run with a specific earlier run
  dossiersim history --with-run-id 0f8fad5b-d9cb-469f-a165-70867728950e variant-triage

  # Output the comparison as JSON
  dossiersim history --json variant-triage

  # List every use case with stored runs
  dossiersim history --list-use-cases`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list", "l", false,
		"List stored runs for the specified use case")
	cmd.Flags().BoolP("list-use-cases", "L", false,
		"List all use cases with stored runs")
	cmd.Flags().StringP("with-run-id", "i", "",
		"Compare the latest run with a specific run (use --list to see run ids)")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	listUseCases, err := flags.GetBool("list-use-cases")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	var useCaseID string
	if !listUseCases {
		if len(args) == 0 {
			return errors.New("use case id is required (use --list-use-cases to see stored use cases)")
		}
		useCaseID = args[0]
	}

	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	if listUseCases {
		return listStoredUseCases(ctx, out, db)
	}

	list, err := flags.GetBool("list")
	if err != nil {
		return err
	}
	if list {
		return listRunHistory(ctx, out, db, useCaseID)
	}

	jsonOutput, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := flags.GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return config.ErrConflictingReportFormats
	}
	withRunID, err := flags.GetString("with-run-id")
	if err != nil {
		return err
	}

	comparison, err := runComparison(ctx, db, useCaseID, withRunID)
	if err != nil {
		return err
	}

	switch {
	case jsonOutput:
		return outputComparisonJSON(out, comparison)
	case markdownOutput:
		return outputComparisonMarkdown(out, comparison)
	default:
		return outputComparisonText(out, comparison)
	}
}

// listStoredUseCases lists the use cases that have runs in the database.
func listStoredUseCases(ctx context.Context, out io.Writer, db *database.RunDB) error {
	ids, err := db.ListUseCases(ctx)
	if err != nil {
		return fmt.Errorf("failed to list use cases: %w", err)
	}

	if len(ids) == 0 {
		fmt.Fprintln(out, "No runs found in the database.")
		fmt.Fprintln(out, "\nUse 'dossiersim run <use-case>' to run a use case.")
		return nil
	}

	fmt.Fprintf(out, "Use cases with stored runs (%d):\n\n", len(ids))
	for _, id := range ids {
		fmt.Fprintf(out, "  • %s\n", id)
	}
	fmt.Fprintln(out, "\nUse 'dossiersim history --list <use-case>' to see the runs of a use case.")

	return nil
}

// listRunHistory lists the stored runs of a use case, newest first.
func listRunHistory(ctx context.Context, out io.Writer, db *database.RunDB, useCaseID string) error {
	runs, err := db.GetRunHistoryWithMetadata(ctx, useCaseID)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintf(out, "No run history found for %s\n", useCaseID)
		fmt.Fprintln(out, "\nUse 'dossiersim run' to run this use case.")
		return nil
	}

	fmt.Fprintf(out, "Run history for %s (%d runs):\n\n", useCaseID, len(runs))
	fmt.Fprintf(out, "  %-36s  %-19s  %-16s  %s\n", "Run", "Date", "State", "Status")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 96))

	for _, meta := range runs {
		fmt.Fprintf(out, "  %-36s  %-19s  %-16s  %s\n",
			meta.RunID,
			meta.Timestamp.Format("2006-01-02 15:04:05"),
			meta.State,
			formatStatus(meta.Status, meta.StatusSeverity),
		)
	}

	fmt.Fprintf(out, "\nUse 'dossiersim history %s' to compare the latest two runs.\n", useCaseID)
	return nil
}

func formatStatus(status, severity string) string {
	if status == "" {
		return noDossierMessage
	}
	return fmt.Sprintf("%s (%s)", status, severity)
}

// runComparison loads the runs to compare: the latest run, and either the
// run before it or the run with id withRunID.
func runComparison(ctx context.Context, db *database.RunDB, useCaseID, withRunID string) (*ComparisonResult, error) {
	reports, err := db.GetRunHistory(ctx, useCaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}

	if len(reports) == 0 {
		return nil, fmt.Errorf("no run history found for %s", useCaseID)
	}

	current := reports[0]
	var previous *model.RunReport

	if withRunID != "" {
		previous, err = db.GetRunByID(ctx, withRunID)
		if err != nil {
			return nil, fmt.Errorf("failed to get run %s: %w", withRunID, err)
		}
		if previous == nil {
			return nil, fmt.Errorf("run %s not found", withRunID)
		}
		if previous.UseCaseID != useCaseID {
			return nil, fmt.Errorf("run %s belongs to %s, not %s", withRunID, previous.UseCaseID, useCaseID)
		}
		if previous.RunID == current.RunID {
			return nil, fmt.Errorf("run %s is the latest run; choose an earlier one", withRunID)
		}
	} else {
		if len(reports) < 2 {
			return nil, fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(reports))
		}
		previous = reports[1]
	}

	return compareReports(previous, current)
}

// ComparisonResult holds the result of comparing the dossiers of two runs.
type ComparisonResult struct {
	// UseCaseID is the compared use case.
	UseCaseID string `json:"use_case_id"`

	// PreviousRun and CurrentRun describe the compared runs.
	PreviousRun RunInfo `json:"previous_run"`
	CurrentRun  RunInfo `json:"current_run"`

	// StatusChanged reports whether the dossier status text changed.
	StatusChanged bool `json:"status_changed"`

	// Direction is "improved", "worsened", or "unchanged", judged by the
	// status severity.
	Direction string `json:"direction"`

	// NewFindings are key findings present only in the current dossier.
	NewFindings []string `json:"new_findings,omitempty"`

	// ResolvedFindings are key findings present only in the previous dossier.
	ResolvedFindings []string `json:"resolved_findings,omitempty"`

	// UnchangedCount is the number of key findings present in both.
	UnchangedCount int `json:"unchanged_count"`

	// CheckpointChanges lists checkpoints whose severity changed, appeared,
	// or disappeared.
	CheckpointChanges []CheckpointChange `json:"checkpoint_changes,omitempty"`

	// DigestChanged reports whether the dossiers differ at all.
	DigestChanged bool `json:"digest_changed"`
}

// RunInfo contains metadata about a run for comparison display.
type RunInfo struct {
	RunID          string         `json:"run_id"`
	FinishedAt     time.Time      `json:"finished_at"`
	State          model.RunState `json:"state"`
	Subject        string         `json:"subject,omitempty"`
	Status         string         `json:"status,omitempty"`
	StatusSeverity model.Severity `json:"status_severity"`
	Digest         string         `json:"digest,omitempty"`
}

// CheckpointChange is a checkpoint whose severity differs between runs.
// Previous or Current is nil when the checkpoint exists in only one run.
type CheckpointChange struct {
	Label    string          `json:"label"`
	Previous *model.Severity `json:"previous,omitempty"`
	Current  *model.Severity `json:"current,omitempty"`
}

// compareReports compares the dossiers of two runs.
func compareReports(previous, current *model.RunReport) (*ComparisonResult, error) {
	prevInfo, err := runInfo(previous)
	if err != nil {
		return nil, err
	}
	currInfo, err := runInfo(current)
	if err != nil {
		return nil, err
	}

	result := &ComparisonResult{
		UseCaseID:     current.UseCaseID,
		PreviousRun:   prevInfo,
		CurrentRun:    currInfo,
		StatusChanged: prevInfo.Status != currInfo.Status,
		DigestChanged: prevInfo.Digest != currInfo.Digest,
		Direction:     severityDirection(prevInfo.StatusSeverity, currInfo.StatusSeverity),
	}

	prevFindings := findingSet(previous.Dossier)
	currFindings := findingSet(current.Dossier)

	// Iterate the dossiers, not the sets, to keep the findings' order.
	if current.Dossier != nil {
		for _, f := range current.Dossier.KeyFindings {
			if _, ok := prevFindings[f]; !ok {
				result.NewFindings = append(result.NewFindings, f)
			}
		}
	}
	if previous.Dossier != nil {
		for _, f := range previous.Dossier.KeyFindings {
			if _, ok := currFindings[f]; ok {
				result.UnchangedCount++
			} else {
				result.ResolvedFindings = append(result.ResolvedFindings, f)
			}
		}
	}

	result.CheckpointChanges = compareCheckpoints(previous.Dossier, current.Dossier)

	return result, nil
}

func runInfo(r *model.RunReport) (RunInfo, error) {
	digest, err := database.DossierDigest(r.Dossier)
	if err != nil {
		return RunInfo{}, err
	}
	info := RunInfo{
		RunID:          r.RunID,
		FinishedAt:     r.FinishedAt,
		State:          r.State,
		StatusSeverity: model.SeverityNeutral,
		Digest:         digest,
	}
	if r.Dossier != nil {
		info.Subject = r.Dossier.SubjectID
		info.Status = r.Dossier.Status
		info.StatusSeverity = r.Dossier.StatusSeverity
	}
	return info, nil
}

func findingSet(d *model.Dossier) map[string]struct{} {
	set := make(map[string]struct{})
	if d == nil {
		return set
	}
	for _, f := range d.KeyFindings {
		set[f] = struct{}{}
	}
	return set
}

// compareCheckpoints matches checkpoints by label. Changes are listed in
// the current dossier's order, then checkpoints that disappeared.
func compareCheckpoints(previous, current *model.Dossier) []CheckpointChange {
	prev := make(map[string]model.Severity)
	if previous != nil {
		for _, c := range previous.Checkpoints {
			prev[c.Label] = c.Severity
		}
	}

	var changes []CheckpointChange
	seen := make(map[string]bool)
	if current != nil {
		for _, c := range current.Checkpoints {
			seen[c.Label] = true
			curr := c.Severity
			p, ok := prev[c.Label]
			switch {
			case !ok:
				changes = append(changes, CheckpointChange{Label: c.Label, Current: &curr})
			case p != curr:
				changes = append(changes, CheckpointChange{Label: c.Label, Previous: &p, Current: &curr})
			}
		}
	}
	if previous != nil {
		for _, c := range previous.Checkpoints {
			if !seen[c.Label] {
				p := c.Severity
				changes = append(changes, CheckpointChange{Label: c.Label, Previous: &p})
			}
		}
	}
	return changes
}

// severityDirection judges a status severity change. Higher severities
// are worse.
func severityDirection(previous, current model.Severity) string {
	switch {
	case current < previous:
		return directionImproved
	case current > previous:
		return directionWorsened
	default:
		return directionUnchanged
	}
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(out io.Writer, result *ComparisonResult) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(out io.Writer, result *ComparisonResult) error {
	md := markdown.NewMarkdown(out)

	md.H1("Dossier Comparison: " + result.UseCaseID)
	md.PlainText("")
	md.PlainText(markdown.Bold("Status:") + " " + formatDirection(result.Direction))
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Previous", "Current"},
		Rows: [][]string{
			{"Run", "`" + shortID(result.PreviousRun.RunID) + "`", "`" + shortID(result.CurrentRun.RunID) + "`"},
			{"Finished", result.PreviousRun.FinishedAt.Format("2006-01-02 15:04"), result.CurrentRun.FinishedAt.Format("2006-01-02 15:04")},
			{"State", result.PreviousRun.State.String(), result.CurrentRun.State.String()},
			{"Status", statusOrNone(result.PreviousRun.Status), statusOrNone(result.CurrentRun.Status)},
			{"Severity", result.PreviousRun.StatusSeverity.String(), result.CurrentRun.StatusSeverity.String()},
		},
	})
	md.PlainText("")

	if len(result.CheckpointChanges) > 0 {
		md.H2(fmt.Sprintf("Checkpoint Changes (%d)", len(result.CheckpointChanges)))
		md.PlainText("")
		rows := make([][]string, len(result.CheckpointChanges))
		for i, c := range result.CheckpointChanges {
			rows[i] = []string{c.Label, severityOrDash(c.Previous), severityOrDash(c.Current)}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Checkpoint", "Previous", "Current"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if len(result.NewFindings) > 0 {
		md.H2(fmt.Sprintf("New Findings (%d)", len(result.NewFindings)))
		md.PlainText("")
		md.BulletList(result.NewFindings...)
		md.PlainText("")
	}

	if len(result.ResolvedFindings) > 0 {
		md.H2(fmt.Sprintf("Resolved Findings (%d)", len(result.ResolvedFindings)))
		md.PlainText("")
		resolved := make([]string, len(result.ResolvedFindings))
		for i, f := range result.ResolvedFindings {
			resolved[i] = markdown.Strikethrough(f)
		}
		md.BulletList(resolved...)
		md.PlainText("")
	}

	if !result.DigestChanged {
		md.Note("The dossiers are identical.")
		md.PlainText("")
	} else if result.UnchangedCount > 0 {
		md.HorizontalRule()
		md.PlainText(markdown.Italic(fmt.Sprintf("%d findings unchanged", result.UnchangedCount)))
	}

	return md.Build()
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(out io.Writer, result *ComparisonResult) error {
	fmt.Fprintf(out, "Dossier Comparison: %s\n", result.UseCaseID)
	fmt.Fprintln(out, strings.Repeat("=", 60))

	fmt.Fprintf(out, "\nStatus: %s\n", formatDirection(result.Direction))

	fmt.Fprintf(out, "\nPrevious run: %s  %s  %s\n",
		shortID(result.PreviousRun.RunID),
		result.PreviousRun.FinishedAt.Format("2006-01-02 15:04:05"),
		formatStatus(result.PreviousRun.Status, result.PreviousRun.StatusSeverity.String()))
	fmt.Fprintf(out, "Current run:  %s  %s  %s\n",
		shortID(result.CurrentRun.RunID),
		result.CurrentRun.FinishedAt.Format("2006-01-02 15:04:05"),
		formatStatus(result.CurrentRun.Status, result.CurrentRun.StatusSeverity.String()))

	if !result.DigestChanged {
		fmt.Fprintln(out, "\nThe dossiers are identical.")
		return nil
	}

	if len(result.CheckpointChanges) > 0 {
		fmt.Fprintf(out, "\nCheckpoint Changes (%d):\n", len(result.CheckpointChanges))
		for _, c := range result.CheckpointChanges {
			fmt.Fprintf(out, "  %-30s  %-11s -> %s\n", c.Label, severityOrDash(c.Previous), severityOrDash(c.Current))
		}
	}

	if len(result.NewFindings) > 0 {
		fmt.Fprintf(out, "\nNew Findings (%d):\n", len(result.NewFindings))
		for _, f := range result.NewFindings {
			fmt.Fprintf(out, "  [+] %s\n", f)
		}
	}

	if len(result.ResolvedFindings) > 0 {
		fmt.Fprintf(out, "\nResolved Findings (%d):\n", len(result.ResolvedFindings))
		for _, f := range result.ResolvedFindings {
			fmt.Fprintf(out, "  [-] %s\n", f)
		}
	}

	if result.UnchangedCount > 0 {
		fmt.Fprintf(out, "\nUnchanged: %d findings\n", result.UnchangedCount)
	}

	return nil
}

// formatDirection formats the direction for display.
func formatDirection(direction string) string {
	switch direction {
	case directionImproved:
		return "IMPROVED (status severity decreased)"
	case directionWorsened:
		return "WORSENED (status severity increased)"
	default:
		return "UNCHANGED"
	}
}

func severityOrDash(s *model.Severity) string {
	if s == nil {
		return "-"
	}
	return s.String()
}

func statusOrNone(status string) string {
	if status == "" {
		return noDossierMessage
	}
	return status
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
