// Package config defines the application configuration and its loader.
package config

// Config is the merged application configuration.
type Config struct {
	Policy        PolicyConfig        `mapstructure:"policy"`
	Coverage      CoverageConfig      `mapstructure:"coverage"`
	Output        OutputConfig        `mapstructure:"output"`
	Store         StoreConfig         `mapstructure:"store"`
	Run           RunConfig           `mapstructure:"run"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// PolicyConfig selects the guardrails policy for a run.
type PolicyConfig struct {
	// Path to a custom policy document. Empty means the compiled-in
	// default policy.
	Path string `mapstructure:"path"`
}

// CoverageConfig tunes the coverage gate.
type CoverageConfig struct {
	MinCoverage float64 `mapstructure:"minCoverage"`
	Strict      bool    `mapstructure:"strict"`
}

// OutputConfig controls report artifacts.
type OutputConfig struct {
	Directory string `mapstructure:"directory"`
	Formats   []string `mapstructure:"formats"`
}

// StoreConfig controls run-history persistence.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// RunConfig tunes pipeline execution.
type RunConfig struct {
	// Workers bounds parallel per-finding evaluation. Zero means one
	// worker per CPU.
	Workers int `mapstructure:"workers"`
}

// ObservabilityConfig controls logging.
type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Level   string `mapstructure:"level"`
	// Format is "human", "json", or "" for TTY auto-detection.
	Format string `mapstructure:"format"`
}
