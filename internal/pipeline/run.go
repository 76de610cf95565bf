package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/nao1215/dossiersim/internal/model"
)

// Run is one execution of a use case. It owns its context exclusively;
// readers use Snapshot while the run is in flight.
type Run struct {
	mu         sync.RWMutex
	id         string
	useCase    model.UseCase
	state      model.RunState
	step       int
	rc         *model.RunContext
	dossier    *model.Dossier
	err        error
	startedAt  time.Time
	finishedAt time.Time
	done       chan struct{}
}

// NewRun allocates a run of uc with a fresh context seeded from uc.Seed.
func NewRun(id string, uc model.UseCase) *Run {
	return &Run{
		id:      id,
		useCase: uc,
		state:   model.RunNotStarted,
		step:    -1,
		rc:      model.NewRunContext(uc.Seed),
		done:    make(chan struct{}),
	}
}

// allowedTransitions lists the states each state may move to.
var allowedTransitions = map[model.RunState][]model.RunState{
	model.RunNotStarted: {model.RunRunning, model.RunCancelled},
	model.RunRunning:    {model.RunCompleted, model.RunPartiallyFailed, model.RunFailed, model.RunCancelled},
}

func isAllowedTransition(from, to model.RunState) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// transition moves the run to state to. Entering a terminal state closes
// the done channel.
func (r *Run) transition(to model.RunState, err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !isAllowedTransition(r.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.state, to)
	}
	r.state = to

	switch {
	case to == model.RunRunning:
		r.startedAt = time.Now()
	case to.IsTerminal():
		r.finishedAt = time.Now()
		if r.startedAt.IsZero() {
			r.startedAt = r.finishedAt
		}
		r.err = err
		close(r.done)
	}
	return nil
}

func (r *Run) setStep(i int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.step = i
}

func (r *Run) record(capabilityID string, env model.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rc.Record(capabilityID, env)
}

func (r *Run) setDossier(d model.Dossier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dossier = &d
}

// view returns the window a step may read.
func (r *Run) view(needs []string) *model.View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rc.View(needs)
}

// ID returns the run id.
func (r *Run) ID() string {
	return r.id
}

// UseCase returns the use case being run.
func (r *Run) UseCase() model.UseCase {
	return r.useCase
}

// State returns the current run state.
func (r *Run) State() model.RunState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// StepIndex returns the index of the step being executed, or -1 before the
// first step starts.
func (r *Run) StepIndex() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.step
}

// Snapshot returns a copy of the context as it stands now.
func (r *Run) Snapshot() model.RunContext {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rc.Clone()
}

// Dossier returns the synthesized dossier, or nil if none was produced.
func (r *Run) Dossier() *model.Dossier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.dossier == nil {
		return nil
	}
	d := r.dossier.Clone()
	return &d
}

// Err returns the error the run finished with.
func (r *Run) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// Done returns a channel closed when the run reaches a terminal state.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Report builds the display form of the run.
func (r *Run) Report() *model.RunReport {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rc := r.rc.Clone()
	rep := model.NewRunReport(r.id, r.useCase, &rc, r.state)
	rep.StartedAt = r.startedAt
	rep.FinishedAt = r.finishedAt
	if r.dossier != nil {
		d := r.dossier.Clone()
		rep.Dossier = &d
	}
	if r.err != nil {
		rep.ErrorMessage = r.err.Error()
	}
	return rep
}
