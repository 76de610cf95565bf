// Package model defines the core data structures shared by the simulation
// pipeline, the dossier synthesizer, and the report writers.
//
// This package contains the following main types:
//   - UseCase and Step: a named, ordered script of capability invocations
//   - Envelope: the normalized result of one capability invocation
//   - RunContext and View: the append-only per-run record of seed values and
//     completed step envelopes, and the read-only window a step sees of it
//   - Dossier: the synthesized summary produced from the report capability
//   - RunReport: everything a renderer needs to display one finished run
//
// Models live in their own package so that the capability, pipeline, dossier
// and report packages can share them without import cycles. All types except
// the input builders serialize to JSON for report output and history storage.
package model
