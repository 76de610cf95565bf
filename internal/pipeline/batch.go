package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/dossiersim/internal/model"
)

// BatchProcessor runs several use cases concurrently, each in its own run
// with its own context.
type BatchProcessor struct {
	// executorFactory creates an executor for each run.
	executorFactory func() *Executor

	// dispatcher resolves adapters for every run.
	dispatcher Dispatcher

	// concurrency is the maximum number of concurrent runs.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent runs.
// Default is 4 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
// executorFactory is called once per run.
func NewBatchProcessor(executorFactory func() *Executor, dispatcher Dispatcher, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		executorFactory: executorFactory,
		dispatcher:      dispatcher,
		concurrency:     4,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch runs every use case and returns their runs in input order.
// A failed run does not stop the others; the returned error is non-nil only
// when ctx was cancelled. Runs that never started are reported cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, useCases []model.UseCase) ([]*Run, error) {
	bp.logger.Info("starting batch",
		"use_cases", len(useCases),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	// Each goroutine writes only its own index.
	runs := make([]*Run, len(useCases))
	for i, uc := range useCases {
		runs[i] = NewRun(uuid.NewString(), uc)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, run := range runs {
		g.Go(func() error {
			bp.logger.Debug("running use case",
				"use_case", run.UseCase().ID,
				"index", i+1,
				"total", len(runs),
			)

			// Errors are kept on the run; only cancellation stops the batch.
			if err := bp.executorFactory().Execute(gctx, run, bp.dispatcher); err != nil {
				bp.logger.Warn("run failed",
					"use_case", run.UseCase().ID,
					"error", err,
				)
			}
			return nil
		})
	}

	_ = g.Wait()

	bp.logger.Info("batch complete",
		"use_cases", len(useCases),
		"elapsed", time.Since(startTime),
	)

	return runs, ctx.Err()
}

// ProcessBatchWithCallback runs every use case and calls callback with each
// finished run and its index. The callback is called from worker
// goroutines and must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	useCases []model.UseCase,
	callback func(run *Run, index int),
) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, uc := range useCases {
		g.Go(func() error {
			run := NewRun(uuid.NewString(), uc)
			_ = bp.executorFactory().Execute(gctx, run, bp.dispatcher) //nolint:errcheck // error is kept on the run
			callback(run, i)
			return nil
		})
	}

	_ = g.Wait()
	return ctx.Err()
}
