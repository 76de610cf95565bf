package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for dossiersim.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dossiersim",
		Short: "Simulate capability pipelines and synthesize decision dossiers",
		Long: `dossiersim executes use cases: ordered chains of capability invocations
(conservation, protein domains, variant impact, essentiality, drug response,
expression). Each step's output is recorded in the run context and feeds later
steps; the designated report step is turned into a dossier with a status,
checkpoints, key findings, and next steps.

Capabilities are simulated by deterministic canned adapters unless a live
endpoint is configured in .dossiersim.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewListCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
