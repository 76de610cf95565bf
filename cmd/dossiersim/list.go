package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/dossiersim/internal/capability"
	"github.com/nao1215/dossiersim/internal/model"
	"github.com/nao1215/dossiersim/internal/usecase"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available use cases and capabilities",
		Long: `List shows the use cases that 'dossiersim run' accepts, including those
defined in the configuration file, and the capabilities available to them.

Examples:
  # List everything
  dossiersim list

  # Include the use cases defined in a specific configuration file
  dossiersim list -c myconfig.yaml`,
		Args: cobra.NoArgs,
		RunE: runListCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .dossiersim in current or home directory)")

	return cmd
}

func runListCmd(cmd *cobra.Command, _ []string) error {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	f, err := loadConfigFile(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cmd, getVerboseFlag(cmd))
	reg, err := newRegistry(f, logger)
	if err != nil {
		return fmt.Errorf("failed to build capability registry: %w", err)
	}
	catalog, err := newCatalog(f)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	writeUseCases(out, catalog)
	fmt.Fprintln(out)
	writeCapabilities(out, reg, f.DisabledCapabilities)
	fmt.Fprintln(out, "\nUse 'dossiersim run <use-case>' to run a use case.")

	return nil
}

func writeUseCases(out io.Writer, catalog *usecase.Catalog) {
	useCases := catalog.List()
	fmt.Fprintf(out, "Use cases (%d):\n\n", len(useCases))
	for _, uc := range useCases {
		fmt.Fprintf(out, "  %-20s  %s\n", uc.ID, uc.Name)
		if uc.Summary != "" {
			fmt.Fprintf(out, "  %-20s  %s\n", "", uc.Summary)
		}
		fmt.Fprintf(out, "  %-20s  steps: %s (report: %s)\n", "",
			strings.Join(uc.CapabilityIDs(), " -> "), uc.ReportCapabilityID)
	}
}

func writeCapabilities(out io.Writer, reg *capability.Registry, disabled []string) {
	ids := reg.IDs()
	fmt.Fprintf(out, "Capabilities (%d):\n\n", len(ids))
	for _, id := range ids {
		var modes []string
		if _, err := reg.Lookup(id, model.ModeSimulate); err == nil {
			modes = append(modes, "simulated")
		}
		if reg.IsLive(id) {
			modes = append(modes, "live")
		}
		fmt.Fprintf(out, "  %-20s  %s\n", id, strings.Join(modes, ", "))
	}
	for _, id := range disabled {
		fmt.Fprintf(out, "  %-20s  disabled\n", id)
	}
}
