package config

import (
	"fmt"
	"os"
	"time"

	"github.com/nao1215/dossiersim/internal/usecase"
)

// Defaults holds settings applied to every run unless the command line
// overrides them.
type Defaults struct {
	// StepTimeout overrides DefaultStepTimeout when positive.
	StepTimeout time.Duration `yaml:"stepTimeout,omitempty"`

	// ContinueOnError overrides the default failure policy when set.
	ContinueOnError *bool `yaml:"continueOnError,omitempty"`

	// BatchSize overrides DefaultBatchSize when positive.
	BatchSize int `yaml:"batchSize,omitempty"`

	// Seed is merged into the seed of every use case.
	Seed map[string]any `yaml:"seed,omitempty"`
}

// UseCaseConfig holds per-use-case settings.
type UseCaseConfig struct {
	// Seed is merged into the use case's seed, after Defaults.Seed.
	Seed map[string]any `yaml:"seed,omitempty"`
}

// LiveEndpoint configures the live adapter of one capability.
type LiveEndpoint struct {
	// Endpoint is the URL the step input is POSTed to.
	Endpoint string `yaml:"endpoint"`

	// Token is sent as a bearer token. Environment variables such as
	// ${DOSSIERSIM_TOKEN} are expanded.
	Token string `yaml:"token,omitempty"`

	// Timeout bounds each request. Zero uses the adapter default.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// ResolvedToken returns the token with environment variables expanded.
func (l LiveEndpoint) ResolvedToken() string {
	return os.ExpandEnv(l.Token)
}

// File represents the structure of the .dossiersim configuration file.
type File struct {
	// Defaults apply to every run.
	Defaults Defaults `yaml:"defaults,omitempty"`

	// UseCases maps use case ids to their settings.
	UseCases map[string]UseCaseConfig `yaml:"useCases,omitempty"`

	// DisabledCapabilities lists capability ids whose adapters are removed
	// from the registry; their steps record degraded envelopes.
	DisabledCapabilities []string `yaml:"disabledCapabilities,omitempty"`

	// Live maps capability ids to live endpoints used by steps in live mode.
	Live map[string]LiveEndpoint `yaml:"live,omitempty"`

	// Definitions are additional declarative use cases.
	Definitions []usecase.Definition `yaml:"definitions,omitempty"`
}

// UseCaseSeed returns the seed overrides for a use case, merging the
// use-case-specific seed over the defaults.
func (f *File) UseCaseSeed(useCaseID string) map[string]any {
	seed := make(map[string]any, len(f.Defaults.Seed))
	for k, v := range f.Defaults.Seed {
		seed[k] = v
	}
	if uc, ok := f.UseCases[useCaseID]; ok {
		for k, v := range uc.Seed {
			seed[k] = v
		}
	}
	return seed
}

// Validate checks the file for settings that cannot work.
func (f *File) Validate() error {
	for id, live := range f.Live {
		if live.Endpoint == "" {
			return fmt.Errorf("%w (capability %s)", ErrInvalidLiveEndpoint, id)
		}
	}
	return nil
}
