package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultStepTimeout bounds one capability invocation. Canned adapters
	// finish in microseconds; the bound matters for live endpoints.
	DefaultStepTimeout = 30 * time.Second

	// DefaultBatchSize is the number of use cases run concurrently with --batch.
	DefaultBatchSize = 4

	// AppName is the application name used for XDG directory paths.
	AppName = "dossiersim"
)

// Config holds all configuration options for dossiersim.
// It is populated from CLI flags and the configuration file and passed
// through the application rather than kept in global state.
type Config struct {
	// StepTimeout is the per-step adapter timeout.
	StepTimeout time.Duration

	// ContinueOnError keeps running later steps after a step fails. When
	// false, a failed step stops the run.
	ContinueOnError bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// BatchSize is the number of use cases run concurrently.
	BatchSize int

	// Batch runs the selected use cases concurrently instead of one after
	// another.
	Batch bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .dossiersim in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// File holds the settings loaded from the config file, if any.
	File *File

	// JSONReport enables JSON report output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// UseCases lists the use case ids to run.
	UseCases []string

	// All runs every use case in the catalog.
	All bool

	// SeedOverrides are applied on top of each use case's seed.
	SeedOverrides map[string]any

	// DBDir is the directory holding the run history database.
	// Defaults to XDG data directory (~/.local/share/dossiersim on Linux).
	DBDir string

	// SaveToDB indicates whether to save run reports to the database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		StepTimeout:     DefaultStepTimeout,
		ContinueOnError: true,
		BatchSize:       DefaultBatchSize,
		SeedOverrides:   make(map[string]any),
		DBDir:           XDGDataDir(),
		SaveToDB:        true,
	}
}

// XDGDataDir returns the XDG data directory for dossiersim.
// On Linux: ~/.local/share/dossiersim
// On macOS: ~/Library/Application Support/dossiersim
// On Windows: %LOCALAPPDATA%\dossiersim
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for dossiersim.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ApplyFile copies the file's defaults into c. Values set explicitly on
// the command line should be applied after this call.
func (c *Config) ApplyFile(f *File) {
	c.File = f
	if f == nil {
		return
	}
	if f.Defaults.StepTimeout > 0 {
		c.StepTimeout = f.Defaults.StepTimeout
	}
	if f.Defaults.ContinueOnError != nil {
		c.ContinueOnError = *f.Defaults.ContinueOnError
	}
	if f.Defaults.BatchSize > 0 {
		c.BatchSize = f.Defaults.BatchSize
	}
}

// SeedFor returns the seed overrides for a use case: the file's defaults,
// then the file's per-use-case seed, then the command line overrides.
func (c *Config) SeedFor(useCaseID string) map[string]any {
	seed := make(map[string]any)
	if c.File != nil {
		for k, v := range c.File.UseCaseSeed(useCaseID) {
			seed[k] = v
		}
	}
	for k, v := range c.SeedOverrides {
		seed[k] = v
	}
	return seed
}

// Validate checks if the configuration is valid.
// It returns the first error found.
func (c *Config) Validate() error {
	if len(c.UseCases) == 0 && !c.All {
		return ErrNoUseCase
	}

	if len(c.UseCases) > 0 && c.All {
		return ErrConflictingSelection
	}

	if c.StepTimeout <= 0 {
		return ErrInvalidStepTimeout
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.File != nil {
		if err := c.File.Validate(); err != nil {
			return err
		}
	}

	return nil
}
