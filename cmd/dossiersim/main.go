// Package main provides the entry point for the dossiersim CLI.
//
// dossiersim runs declarative use cases through a chain of capability
// adapters and synthesizes a decision dossier from the designated step.
//
// Usage:
//
//	dossiersim run variant-triage
//	dossiersim run --all --batch
//	dossiersim history variant-triage
//
// See --help for all available options.
package main

func main() {
	Execute()
}
