package main

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/nao1215/dossiersim/internal/capability"
	"github.com/nao1215/dossiersim/internal/config"
	"github.com/nao1215/dossiersim/internal/dossier"
	"github.com/nao1215/dossiersim/internal/log"
	"github.com/nao1215/dossiersim/internal/model"
	"github.com/nao1215/dossiersim/internal/pipeline"
	"github.com/nao1215/dossiersim/internal/usecase"
)

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates the redacting logger and installs it as the default.
func setupLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	logger := log.NewLogger(cmd.ErrOrStderr(), verbose)
	slog.SetDefault(logger)
	return logger
}

// loadConfigFile finds and loads the configuration file.
// An explicitly given path must exist; otherwise a missing file yields an
// empty configuration.
func loadConfigFile(configPath string) (*config.File, error) {
	path := config.FindConfigFile(configPath)
	if path == "" {
		if configPath != "" {
			return nil, fmt.Errorf("configuration file not found: %s", configPath)
		}
		return &config.File{
			UseCases: make(map[string]config.UseCaseConfig),
			Live:     make(map[string]config.LiveEndpoint),
		}, nil
	}

	f, err := config.LoadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return f, nil
}

// newRegistry builds the capability registry: the canned adapters, minus
// the disabled capabilities, plus one HTTP adapter per live endpoint.
func newRegistry(f *config.File, logger *slog.Logger) (*capability.Registry, error) {
	reg := capability.NewRegistry(capability.WithLogger(logger))
	if err := capability.RegisterBuiltins(reg); err != nil {
		return nil, err
	}
	if f == nil {
		return reg, nil
	}

	for _, id := range f.DisabledCapabilities {
		reg.Disable(id)
	}

	ids := make([]string, 0, len(f.Live))
	for id := range f.Live {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		live := f.Live[id]
		opts := []capability.HTTPOption{capability.WithHTTPLogger(logger)}
		if token := live.ResolvedToken(); token != "" {
			opts = append(opts, capability.WithToken(token))
		}
		if live.Timeout > 0 {
			opts = append(opts, capability.WithTimeout(live.Timeout))
		}
		if err := reg.RegisterLive(capability.NewHTTPAdapter(id, live.Endpoint, opts...)); err != nil {
			return nil, err
		}
		logger.Debug("live endpoint registered", "capability", id, "endpoint", live.Endpoint)
	}

	return reg, nil
}

// newCatalog builds the use case catalog: the built-ins plus the
// definitions from the configuration file.
func newCatalog(f *config.File) (*usecase.Catalog, error) {
	catalog := usecase.DefaultCatalog()
	if f == nil || len(f.Definitions) == 0 {
		return catalog, nil
	}
	if err := catalog.RegisterDefinitions(f.Definitions); err != nil {
		return nil, fmt.Errorf("invalid use case definition: %w", err)
	}
	return catalog, nil
}

// selectUseCases resolves the requested use cases and applies the
// configured seed overrides to each.
func selectUseCases(cfg *config.Config, catalog *usecase.Catalog) ([]model.UseCase, error) {
	var selected []model.UseCase
	if cfg.All {
		selected = catalog.List()
	} else {
		for _, id := range cfg.UseCases {
			uc, err := catalog.Get(id)
			if err != nil {
				return nil, fmt.Errorf("%w (available: %v)", err, catalog.IDs())
			}
			selected = append(selected, uc)
		}
	}

	for i, uc := range selected {
		selected[i] = uc.WithSeed(cfg.SeedFor(uc.ID))
	}
	return selected, nil
}

// newExecutor creates an executor configured from cfg.
func newExecutor(cfg *config.Config, logger *slog.Logger) *pipeline.Executor {
	return pipeline.New(
		pipeline.WithLogger(logger),
		pipeline.WithStepTimeout(cfg.StepTimeout),
		pipeline.WithContinueOnError(cfg.ContinueOnError),
		pipeline.WithSynthesizer(dossier.New(nil)),
	)
}
