package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/dossiersim/internal/capability"
	"github.com/nao1215/dossiersim/internal/model"
)

// DefaultStepTimeout bounds a single adapter invocation.
const DefaultStepTimeout = 30 * time.Second

// Dispatcher resolves the adapter for a capability id and mode.
// *capability.Registry implements it.
type Dispatcher interface {
	Lookup(id string, mode model.Mode) (capability.Adapter, error)
}

// Synthesizer builds a dossier from the report capability's envelope.
type Synthesizer interface {
	Synthesize(capabilityID string, env model.Envelope, params map[string]any) model.Dossier
}

// Executor runs the steps of a use case in declared order.
type Executor struct {
	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError keeps running the remaining steps after a step fails.
	continueOnError bool

	// stepTimeout bounds each adapter invocation. Zero disables the bound.
	stepTimeout time.Duration

	// observers receive progress events.
	observers []Observer

	// synthesizer, when set, builds the dossier once the run finishes.
	synthesizer Synthesizer
}

// Option is a function that configures an Executor.
type Option func(*Executor)

// WithLogger sets a custom logger for the executor.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithContinueOnError sets whether steps after a failed step still run.
// The default is true: the failed step records a failed envelope and the
// run ends partially failed. With false the run stops and ends failed.
func WithContinueOnError(continueOnError bool) Option {
	return func(e *Executor) {
		e.continueOnError = continueOnError
	}
}

// WithStepTimeout sets the per-step adapter timeout. Non-positive values
// disable it.
func WithStepTimeout(d time.Duration) Option {
	return func(e *Executor) {
		e.stepTimeout = d
	}
}

// WithObserver registers a progress observer.
func WithObserver(o Observer) Option {
	return func(e *Executor) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// WithSynthesizer makes the executor synthesize a dossier from the report
// step's envelope when a run finishes.
func WithSynthesizer(s Synthesizer) Option {
	return func(e *Executor) {
		e.synthesizer = s
	}
}

// New creates an Executor with the given options.
func New(opts ...Option) *Executor {
	e := &Executor{
		continueOnError: true,
		stepTimeout:     DefaultStepTimeout,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}

	return e
}

// Execute runs every step of run's use case against dispatcher.
//
// The context is checked before each step and passed to adapters. When it
// is cancelled the run ends cancelled, keeps what was recorded so far, and
// ctx.Err() is returned. A failed step ends the run failed and returns a
// *StepError when continue-on-error is off; otherwise Execute returns nil
// and the run ends partially failed.
func (e *Executor) Execute(ctx context.Context, run *Run, dispatcher Dispatcher) error {
	uc := run.UseCase()

	if err := ctx.Err(); err != nil {
		if terr := run.transition(model.RunCancelled, err); terr != nil {
			return terr
		}
		e.emit(Event{Kind: EventRunFinished, RunID: run.ID(), UseCaseID: uc.ID, State: model.RunCancelled, Err: err})
		return err
	}
	if err := run.transition(model.RunRunning, nil); err != nil {
		return err
	}

	e.logger.Info("starting run",
		"run", run.ID(),
		"use_case", uc.ID,
		"steps", len(uc.Steps),
	)
	e.emit(Event{Kind: EventRunStarted, RunID: run.ID(), UseCaseID: uc.ID, State: model.RunRunning})

	var firstFailure error
	for i, step := range uc.Steps {
		// Check for cancellation before starting each step
		if err := ctx.Err(); err != nil {
			return e.cancel(run, step, err)
		}

		run.setStep(i)
		e.emit(Event{Kind: EventStepStarted, RunID: run.ID(), UseCaseID: uc.ID, StepIndex: i, CapabilityID: step.CapabilityID, Title: step.Title, State: model.RunRunning})

		env, stepErr := e.runStep(ctx, run, i, step, dispatcher)

		// A step interrupted by cancellation is not recorded.
		if stepErr != nil && ctx.Err() != nil {
			return e.cancel(run, step, ctx.Err())
		}

		if err := run.record(step.CapabilityID, env); err != nil {
			// Validation rejects duplicate capability ids, so this only
			// happens for use cases that bypassed the catalog.
			stepErr = &StepError{Index: i, CapabilityID: step.CapabilityID, Err: err}
			env = model.FailedEnvelope(env.Input, err)
		}

		e.emit(Event{Kind: EventStepFinished, RunID: run.ID(), UseCaseID: uc.ID, StepIndex: i, CapabilityID: step.CapabilityID, Title: step.Title, State: model.RunRunning, Envelope: &env, Err: stepErr})

		if stepErr == nil {
			e.logger.Debug("step completed",
				"run", run.ID(),
				"step", step.CapabilityID,
				"provenance", env.Provenance,
				"degraded", env.Degraded,
			)
			continue
		}

		e.logger.Error("step failed",
			"run", run.ID(),
			"step", step.CapabilityID,
			"error", stepErr,
		)
		if firstFailure == nil {
			firstFailure = stepErr
		}
		if !e.continueOnError {
			e.synthesize(run)
			return e.finish(run, model.RunFailed, stepErr)
		}
	}

	e.synthesize(run)
	if firstFailure != nil {
		return e.finish(run, model.RunPartiallyFailed, nil)
	}
	return e.finish(run, model.RunCompleted, nil)
}

func (e *Executor) cancel(run *Run, step model.Step, err error) error {
	e.logger.Warn("run cancelled",
		"run", run.ID(),
		"step", step.CapabilityID,
		"reason", err,
	)
	return e.finish(run, model.RunCancelled, err)
}

// finish moves the run to its terminal state and returns the error the
// caller should see.
func (e *Executor) finish(run *Run, state model.RunState, err error) error {
	if terr := run.transition(state, err); terr != nil {
		return terr
	}
	e.logger.Info("run finished",
		"run", run.ID(),
		"use_case", run.UseCase().ID,
		"state", state,
	)
	e.emit(Event{Kind: EventRunFinished, RunID: run.ID(), UseCaseID: run.UseCase().ID, StepIndex: run.StepIndex(), State: state, Err: err})
	return err
}

// synthesize builds the dossier when the report step produced an envelope.
func (e *Executor) synthesize(run *Run) {
	if e.synthesizer == nil {
		return
	}
	uc := run.UseCase()
	snap := run.Snapshot()
	env, ok := snap.Output(uc.ReportCapabilityID)
	if !ok {
		return
	}
	run.setDossier(e.synthesizer.Synthesize(uc.ReportCapabilityID, env, snap.Seed))
}

// runStep produces the envelope for one step. The returned error is non-nil
// when the envelope records a failure.
func (e *Executor) runStep(ctx context.Context, run *Run, i int, step model.Step, dispatcher Dispatcher) (model.Envelope, error) {
	view := run.view(step.Needs)

	var input any
	if step.BuildInput == nil {
		input = view.SeedMap()
	} else {
		in, err := step.BuildInput(view)
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrInputBuild, err)
			return model.FailedEnvelope(nil, err), &StepError{Index: i, CapabilityID: step.CapabilityID, Err: err}
		}
		input = in
	}
	if undeclared := view.Undeclared(); len(undeclared) > 0 {
		e.logger.Warn("input builder read outputs it did not declare",
			"run", run.ID(),
			"step", step.CapabilityID,
			"undeclared", undeclared,
		)
	}

	adapter, err := dispatcher.Lookup(step.CapabilityID, step.Mode)
	if err != nil {
		if errors.Is(err, capability.ErrCapabilityNotRegistered) {
			e.logger.Warn("no adapter registered, recording degraded envelope",
				"run", run.ID(),
				"step", step.CapabilityID,
			)
			return model.DegradedEnvelope(step.CapabilityID, input), nil
		}
		return model.FailedEnvelope(input, err), &StepError{Index: i, CapabilityID: step.CapabilityID, Err: err}
	}

	out, err := e.invoke(ctx, adapter, input)
	if err != nil {
		return model.FailedEnvelope(input, err), &StepError{Index: i, CapabilityID: step.CapabilityID, Err: err}
	}
	return normalize(out, input), nil
}

// invoke calls the adapter under the step timeout. The adapter runs in its
// own goroutine so an adapter that ignores its context cannot hold the run
// past the timeout; its late result is discarded.
func (e *Executor) invoke(ctx context.Context, adapter capability.Adapter, input any) (any, error) {
	stepCtx := ctx
	if e.stepTimeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, e.stepTimeout)
		defer cancel()
	}

	type result struct {
		out any
		err error
	}
	ch := make(chan result, 1)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- result{err: fmt.Errorf("%w: %v", ErrAdapterPanic, p)}
			}
		}()
		out, err := adapter.Invoke(stepCtx, input)
		ch <- result{out: out, err: err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			if ctx.Err() == nil && errors.Is(res.err, context.DeadlineExceeded) && stepCtx.Err() != nil {
				return nil, fmt.Errorf("%w after %s", ErrStepTimeout, e.stepTimeout)
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, capability.Failure(adapter.ID(), res.err)
		}
		return res.out, nil
	case <-stepCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w after %s", ErrStepTimeout, e.stepTimeout)
	}
}

func (e *Executor) emit(ev Event) {
	for _, o := range e.observers {
		o(ev)
	}
}
