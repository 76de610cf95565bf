package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/nao1215/dossiersim/internal/model"
)

// Session tracks the latest run of each use case.
//
// Starting a run cancels any run of the same use case that is still in
// flight. Only the current run may publish its report; a superseded run
// finishes into its own context and is discarded.
type Session struct {
	executor   *Executor
	dispatcher Dispatcher
	logger     *slog.Logger

	mu      sync.Mutex
	current map[string]*Run
	cancels map[string]context.CancelFunc
	latest  map[string]*model.RunReport
	wg      sync.WaitGroup
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionLogger sets the session logger.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession creates a session that runs use cases with executor.
func NewSession(executor *Executor, dispatcher Dispatcher, opts ...SessionOption) *Session {
	s := &Session{
		executor:   executor,
		dispatcher: dispatcher,
		current:    make(map[string]*Run),
		cancels:    make(map[string]context.CancelFunc),
		latest:     make(map[string]*model.RunReport),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Start begins a run of uc in the background and returns it immediately.
func (s *Session) Start(ctx context.Context, uc model.UseCase) *Run {
	runCtx, cancel := context.WithCancel(ctx)
	run := NewRun(uuid.NewString(), uc)

	s.mu.Lock()
	if prev, ok := s.current[uc.ID]; ok && !prev.State().IsTerminal() {
		s.logger.Info("superseding in-flight run",
			"use_case", uc.ID,
			"previous", prev.ID(),
			"run", run.ID(),
		)
		s.cancels[uc.ID]()
	}
	s.current[uc.ID] = run
	s.cancels[uc.ID] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer cancel()

		if err := s.executor.Execute(runCtx, run, s.dispatcher); err != nil {
			s.logger.Debug("run ended with error",
				"run", run.ID(),
				"error", err,
			)
		}
		s.publish(run)
	}()

	return run
}

// Run starts a run of uc and waits for it to finish.
func (s *Session) Run(ctx context.Context, uc model.UseCase) (*model.RunReport, error) {
	run := s.Start(ctx, uc)
	<-run.Done()
	return run.Report(), run.Err()
}

// publish stores the report of run if run is still the current run of its
// use case.
func (s *Session) publish(run *Run) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := run.UseCase().ID
	if s.current[id] != run {
		s.logger.Debug("discarding stale run",
			"use_case", id,
			"run", run.ID(),
		)
		return
	}
	s.latest[id] = run.Report()
}

// Current returns the most recently started run of a use case.
func (s *Session) Current(useCaseID string) (*Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.current[useCaseID]
	return run, ok
}

// Latest returns the report of the most recent run of a use case that was
// not superseded.
func (s *Session) Latest(useCaseID string) (*model.RunReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rep, ok := s.latest[useCaseID]
	return rep, ok
}

// Wait blocks until every started run has finished and published.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close cancels all in-flight runs and waits for them.
func (s *Session) Close() {
	s.mu.Lock()
	for _, cancel := range s.cancels {
		cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}
