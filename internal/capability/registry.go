package capability

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/nao1215/dossiersim/internal/model"
)

// Registry maps capability ids to adapters. Simulated and live adapters are
// kept apart; a live lookup without a live adapter falls back to the
// simulated one.
//
// A Registry is safe for concurrent use. Runs started in parallel by the
// batch processor share one registry.
type Registry struct {
	mu        sync.RWMutex
	simulated map[string]Adapter
	live      map[string]Adapter
	disabled  map[string]struct{}
	logger    *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used to report live fallbacks.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		simulated: make(map[string]Adapter),
		live:      make(map[string]Adapter),
		disabled:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Register adds a simulated adapter. Registering the same id twice fails
// with ErrDuplicateCapability.
func (r *Registry) Register(a Adapter) error {
	return r.add(r.simulated, a)
}

// RegisterLive adds an adapter used by steps in model.ModeLive.
func (r *Registry) RegisterLive(a Adapter) error {
	return r.add(r.live, a)
}

func (r *Registry) add(target map[string]Adapter, a Adapter) error {
	if a == nil || a.ID() == "" {
		return ErrInvalidAdapter
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := target[a.ID()]; ok {
		return &Error{CapabilityID: a.ID(), Err: ErrDuplicateCapability}
	}
	target[a.ID()] = a
	return nil
}

// Disable hides the adapters registered for id. Lookups for a disabled id
// report ErrCapabilityNotRegistered, so steps fall back to a degraded envelope.
func (r *Registry) Disable(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disabled[id] = struct{}{}
}

// Lookup returns the adapter for id in the given mode.
func (r *Registry) Lookup(id string, mode model.Mode) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, off := r.disabled[id]; off {
		return nil, &Error{CapabilityID: id, Err: ErrCapabilityNotRegistered}
	}

	if mode == model.ModeLive {
		if a, ok := r.live[id]; ok {
			return a, nil
		}
		if a, ok := r.simulated[id]; ok {
			r.logger.Warn("no live adapter registered, using simulated adapter",
				"capability", id,
			)
			return a, nil
		}
		return nil, &Error{CapabilityID: id, Err: ErrCapabilityNotRegistered}
	}

	if a, ok := r.simulated[id]; ok {
		return a, nil
	}
	return nil, &Error{CapabilityID: id, Err: ErrCapabilityNotRegistered}
}

// Has reports whether an enabled simulated or live adapter exists for id.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, off := r.disabled[id]; off {
		return false
	}
	_, sim := r.simulated[id]
	_, live := r.live[id]
	return sim || live
}

// IDs returns the sorted ids of all enabled capabilities.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.simulated)+len(r.live))
	for id := range r.simulated {
		if _, off := r.disabled[id]; !off {
			ids = append(ids, id)
		}
	}
	for id := range r.live {
		if _, off := r.disabled[id]; off {
			continue
		}
		if _, dup := r.simulated[id]; !dup {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// IsLive reports whether a live adapter is registered for id.
func (r *Registry) IsLive(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.live[id]
	return ok
}
