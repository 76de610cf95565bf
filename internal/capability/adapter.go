package capability

import "context"

// Adapter is the pluggable implementation of one capability.
//
// Invoke may return a model.Envelope, a *model.Envelope, a map[string]any or
// any other value. Implementations must honor ctx cancellation.
type Adapter interface {
	// ID returns the capability id the adapter serves.
	ID() string

	// Invoke runs the capability on input.
	Invoke(ctx context.Context, input any) (any, error)
}

// InvokeFunc is the function form of Adapter.Invoke.
type InvokeFunc func(ctx context.Context, input any) (any, error)

// Func adapts a plain function to the Adapter interface.
type Func struct {
	id string
	fn InvokeFunc
}

// NewFunc returns an Adapter serving id with fn.
func NewFunc(id string, fn InvokeFunc) *Func {
	return &Func{id: id, fn: fn}
}

// ID returns the capability id.
func (f *Func) ID() string {
	return f.id
}

// Invoke calls the wrapped function.
func (f *Func) Invoke(ctx context.Context, input any) (any, error) {
	return f.fn(ctx, input)
}
