package config

// Config is the application configuration. It is a pull-only settings
// provider: the engines read defaults and overrides from here but never
// write anything back.
type Config struct {
	Hashing     HashingConfig     `yaml:"hashing"`
	Copy        CopyConfig        `yaml:"copy"`
	Performance PerformanceConfig `yaml:"performance"`
	Output      OutputConfig      `yaml:"output"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// HashingConfig holds digest-related settings
type HashingConfig struct {
	// Algorithm is the default digest algorithm: sha256, sha1 or md5
	Algorithm string `yaml:"algorithm"`
}

// CopyConfig holds copy-job settings
type CopyConfig struct {
	// PreserveStructure keeps source directory layout under the destination
	PreserveStructure bool `yaml:"preserve_structure"`
	// Verify re-reads every copied file from disk and compares digests
	Verify bool `yaml:"verify"`
	// BandwidthLimit caps copy read throughput in bytes/s (0 = unlimited)
	BandwidthLimit int64 `yaml:"bandwidth_limit"`
}

// PerformanceConfig holds performance-related settings
type PerformanceConfig struct {
	// Threads overrides the storage-derived worker count (0 = automatic)
	Threads int `yaml:"threads"`
	// BufferSize overrides the adaptive copy/hash buffer in bytes (0 = adaptive)
	BufferSize int `yaml:"buffer_size"`
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format   string `yaml:"format"`   // "human" or "json"
	Progress bool   `yaml:"progress"` // Show progress bars
	Quiet    bool   `yaml:"quiet"`    // Suppress non-error output
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Format  string `yaml:"format"` // "json" or "text"
	Level   string `yaml:"level"`  // "debug", "info", "warn", "error"
	File    string `yaml:"file"`   // Log file path (empty = disabled)
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Hashing: HashingConfig{
			Algorithm: "sha256",
		},
		Copy: CopyConfig{
			PreserveStructure: true,
			Verify:            true,
			BandwidthLimit:    0,
		},
		Performance: PerformanceConfig{
			Threads:    0,
			BufferSize: 0,
		},
		Output: OutputConfig{
			Format:   "human",
			Progress: true,
			Quiet:    false,
		},
		Logging: LoggingConfig{
			Enabled: false,
			Format:  "text",
			Level:   "info",
			File:    "",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validAlgorithms := map[string]bool{"sha256": true, "sha1": true, "md5": true}
	if !validAlgorithms[c.Hashing.Algorithm] {
		return &ValidationError{
			Field:   "hashing.algorithm",
			Message: "must be 'sha256', 'sha1' or 'md5'",
		}
	}

	if c.Performance.Threads < 0 || c.Performance.Threads > 128 {
		return &ValidationError{
			Field:   "performance.threads",
			Message: "must be between 0 (automatic) and 128",
		}
	}

	if c.Performance.BufferSize != 0 && c.Performance.BufferSize < 4096 {
		return &ValidationError{
			Field:   "performance.buffer_size",
			Message: "must be 0 (adaptive) or at least 4096 bytes",
		}
	}

	if c.Copy.BandwidthLimit < 0 {
		return &ValidationError{
			Field:   "copy.bandwidth_limit",
			Message: "must not be negative",
		}
	}

	validFormats := map[string]bool{"human": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &ValidationError{
			Field:   "output.format",
			Message: "must be 'human' or 'json'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	return nil
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
