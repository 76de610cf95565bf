// Package capability defines the adapters that stand behind capability ids
// and the registry the step executor dispatches through.
//
// An Adapter receives the input built by a step and returns either a
// model.Envelope or a bare value; the executor normalizes both. The package
// ships deterministic canned adapters for the built-in capabilities and an
// HTTP adapter for live endpoints.
package capability
