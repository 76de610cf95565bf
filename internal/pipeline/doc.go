// Package pipeline executes use cases: it invokes each step's capability in
// declared order, threads the accumulating run context between steps and
// records one envelope per step.
//
// A run never aborts because a capability is missing; the step records a
// degraded placeholder instead. Adapter errors and step timeouts record a
// failed envelope and, by default, the remaining steps still run. Session
// guards against overlapping runs of one use case, and BatchProcessor runs
// several use cases concurrently with errgroup.
package pipeline
