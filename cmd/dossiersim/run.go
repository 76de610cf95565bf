package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/dossiersim/internal/config"
	"github.com/nao1215/dossiersim/internal/database"
	"github.com/nao1215/dossiersim/internal/model"
	"github.com/nao1215/dossiersim/internal/pipeline"
	"github.com/nao1215/dossiersim/internal/report"
)

// errRunsFailed is returned when at least one run ended failed or cancelled.
var errRunsFailed = errors.New("one or more runs did not complete")

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [use-case...]",
		Short: "Run use cases and synthesize their dossiers",
		Long: `Run executes one or more use cases step by step. Each step invokes a
capability adapter; its envelope is recorded in the run context and is
visible to later steps. The report step's envelope is synthesized into a
dossier.

A failing step is recorded and later steps still run (the run ends as
partially_failed) unless --abort-on-failure is set. Steps whose capability
has no adapter record a degraded envelope.

Every finished run is saved to the history database so that
'dossiersim history' can compare dossiers over time.

Examples:
  # Run a single use case
  dossiersim run variant-triage

  # Run every use case concurrently
  dossiersim run --all --batch

  # Override seed values
  dossiersim run variant-triage --seed gene=TP53 --seed position=175

  # Output a Markdown report to a file
  dossiersim run target-validation --markdown -o reports/target.md

  # Stop at the first failing step
  dossiersim run drug-sensitivity --abort-on-failure`,
		Args: cobra.ArbitraryArgs,
		RunE: runRunCmd,
	}

	// Selection
	cmd.Flags().BoolP("all", "a", false,
		"Run every use case in the catalog")
	cmd.Flags().StringArrayP("seed", "s", nil,
		"Override a seed value (key=value, repeatable)")

	// Execution
	cmd.Flags().DurationP("step-timeout", "t", config.DefaultStepTimeout,
		"Timeout for each capability invocation")
	cmd.Flags().Bool("abort-on-failure", false,
		"Stop a run at the first failing step")
	cmd.Flags().BoolP("batch", "b", false,
		"Run the selected use cases concurrently")
	cmd.Flags().IntP("batch-size", "n", config.DefaultBatchSize,
		"Number of concurrent runs with --batch")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .dossiersim in current or home directory)")

	// Report
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// History
	cmd.Flags().Bool("no-history", false,
		"Do not save runs to the history database")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

func runRunCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg.Verbose)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runUseCases(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, logger)
}

// buildConfig creates a Config from the configuration file and the command
// flags. Flags override the file only when set explicitly.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	f, err := loadConfigFile(cfg.ConfigFilePath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyFile(f)

	flags := cmd.Flags()
	if flags.Changed("step-timeout") {
		if cfg.StepTimeout, err = flags.GetDuration("step-timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("batch-size") {
		if cfg.BatchSize, err = flags.GetInt("batch-size"); err != nil {
			return nil, err
		}
	}

	abort, err := flags.GetBool("abort-on-failure")
	if err != nil {
		return nil, err
	}
	if abort {
		cfg.ContinueOnError = false
	}

	if cfg.Batch, err = flags.GetBool("batch"); err != nil {
		return nil, err
	}
	if cfg.All, err = flags.GetBool("all"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	pairs, err := flags.GetStringArray("seed")
	if err != nil {
		return nil, err
	}
	if cfg.SeedOverrides, err = config.ParseSeedOverrides(pairs); err != nil {
		return nil, err
	}

	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noHistory

	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	cfg.UseCases = args
	return cfg, nil
}

// runUseCases executes the selected use cases and writes their reports to
// out. Progress lines go to status.
func runUseCases(ctx context.Context, out, status io.Writer, cfg *config.Config, logger *slog.Logger) error {
	reg, err := newRegistry(cfg.File, logger)
	if err != nil {
		return fmt.Errorf("failed to build capability registry: %w", err)
	}
	catalog, err := newCatalog(cfg.File)
	if err != nil {
		return err
	}
	useCases, err := selectUseCases(cfg, catalog)
	if err != nil {
		return err
	}

	var db *database.RunDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
	}

	output, closeOutput, err := openOutput(out, cfg.ReportFile)
	if err != nil {
		return err
	}
	defer closeOutput()

	r := &runner{
		cfg:    cfg,
		writer: newReportWriter(output, cfg),
		status: status,
		db:     db,
		logger: logger,
	}

	logger.Info("starting runs",
		"use_cases", len(useCases),
		"batch", cfg.Batch,
		"continue_on_error", cfg.ContinueOnError,
		"step_timeout", cfg.StepTimeout,
	)

	var reports []*model.RunReport
	if cfg.Batch && len(useCases) > 1 {
		reports, err = r.runBatch(ctx, useCases, reg)
	} else {
		reports, err = r.runSequential(ctx, useCases, reg)
	}
	if err != nil {
		return err
	}

	if len(reports) > 1 {
		if _, err := r.writer.WriteSummary(reports); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}

	for _, rep := range reports {
		if rep.State == model.RunFailed || rep.State == model.RunCancelled {
			return errRunsFailed
		}
	}
	return nil
}

// runner executes runs and emits each finished report.
type runner struct {
	cfg    *config.Config
	writer report.Writer
	status io.Writer
	db     *database.RunDB
	logger *slog.Logger

	// mu serializes emit calls from batch workers.
	mu sync.Mutex
}

// runSequential runs use cases one after another through a Session.
func (r *runner) runSequential(ctx context.Context, useCases []model.UseCase, reg pipeline.Dispatcher) ([]*model.RunReport, error) {
	session := pipeline.NewSession(newExecutor(r.cfg, r.logger), reg, pipeline.WithSessionLogger(r.logger))
	defer session.Close()

	reports := make([]*model.RunReport, 0, len(useCases))
	for _, uc := range useCases {
		if err := ctx.Err(); err != nil {
			return reports, err
		}

		fmt.Fprintf(r.status, "Running %s...\n", uc.ID)
		startTime := time.Now()

		rep, err := session.Run(ctx, uc)
		if err != nil {
			r.logger.Debug("run ended with error", "use_case", uc.ID, "error", err)
		}
		fmt.Fprintf(r.status, "Run %s ended %s in %s\n\n", uc.ID, rep.State, time.Since(startTime).Round(time.Millisecond))

		if err := r.emit(ctx, rep); err != nil {
			return reports, err
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

// runBatch runs use cases concurrently. Results keep input order.
func (r *runner) runBatch(ctx context.Context, useCases []model.UseCase, reg pipeline.Dispatcher) ([]*model.RunReport, error) {
	fmt.Fprintf(r.status, "Starting batch of %d use cases (concurrency: %d)...\n\n", len(useCases), r.cfg.BatchSize)
	startTime := time.Now()

	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Executor { return newExecutor(r.cfg, r.logger) },
		reg,
		pipeline.WithConcurrency(r.cfg.BatchSize),
		pipeline.WithBatchLogger(r.logger),
	)

	reports := make([]*model.RunReport, len(useCases))
	var emitErr error
	err := bp.ProcessBatchWithCallback(ctx, useCases, func(run *pipeline.Run, index int) {
		rep := run.Report()

		r.mu.Lock()
		defer r.mu.Unlock()

		reports[index] = rep
		fmt.Fprintf(r.status, "[%d/%d] %s ended %s\n", index+1, len(useCases), rep.UseCaseID, rep.State)
		if err := r.emitLocked(ctx, rep); err != nil && emitErr == nil {
			emitErr = err
		}
	})

	fmt.Fprintf(r.status, "\nBatch completed in %s\n", time.Since(startTime).Round(time.Millisecond))

	if emitErr != nil {
		return reports, emitErr
	}
	return reports, err
}

func (r *runner) emit(ctx context.Context, rep *model.RunReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.emitLocked(ctx, rep)
}

// emitLocked writes the report and saves it to the history database.
// A failed save is logged; a failed write stops the command.
func (r *runner) emitLocked(ctx context.Context, rep *model.RunReport) error {
	if _, err := r.writer.Write(rep); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if r.db == nil {
		return nil
	}
	// Cancelled runs are saved too.
	if err := r.db.SaveRun(context.WithoutCancel(ctx), rep); err != nil {
		r.logger.Error("failed to save run", "run", rep.RunID, "error", err)
		return nil
	}
	r.logger.Info("run saved to database", "run", rep.RunID, "use_case", rep.UseCaseID)
	return nil
}

// newReportWriter selects the report writer for the configured format.
func newReportWriter(w io.Writer, cfg *config.Config) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(w, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(w)
	default:
		return report.NewSimpleWriter(w, report.WithVerbose(cfg.Verbose))
	}
}

// openOutput returns the report destination: path when set, otherwise w.
func openOutput(w io.Writer, path string) (io.Writer, func(), error) {
	if path == "" {
		return w, func() {}, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports may embed seed values that identify a subject.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil //nolint:errcheck // best effort
}
