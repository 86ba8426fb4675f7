package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dfirlabs/evicopy/pkg/config"
	"github.com/dfirlabs/evicopy/pkg/logging"
)

// GlobalFlags holds global flag values
type GlobalFlags struct {
	ConfigFile string
	Verbose    bool
	Quiet      bool
}

var globalFlags GlobalFlags

// AddGlobalFlags adds global flags to the root command
func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&globalFlags.ConfigFile,
		"config",
		"",
		"config file (default is $HOME/.config/evicopy/config.yaml)",
	)
	cmd.PersistentFlags().BoolVarP(
		&globalFlags.Verbose,
		"verbose",
		"v",
		false,
		"verbose output",
	)
	cmd.PersistentFlags().BoolVarP(
		&globalFlags.Quiet,
		"quiet",
		"q",
		false,
		"suppress non-error output",
	)
}

// loggingFlags holds the per-command logging flags
type loggingFlags struct {
	File   string
	Format string
	Level  string
}

func addLoggingFlags(cmd *cobra.Command, flags *loggingFlags) {
	cmd.Flags().StringVar(&flags.File, "log-file", "", "write logs to file (enables logging)")
	cmd.Flags().StringVar(&flags.Format, "log-format", "text", "log format: text, json")
	cmd.Flags().StringVar(&flags.Level, "log-level", "info", "log level: debug, info, warn, error")
}

// loadConfig loads configuration from file or returns default
func loadConfig() (*config.Config, error) {
	if globalFlags.ConfigFile != "" {
		return config.LoadFromFile(globalFlags.ConfigFile)
	}
	return config.LoadDefault()
}

// createLogger creates a logger from the logging flags, falling back to
// the config file's logging section when no flag was given.
func createLogger(flags loggingFlags, cfg *config.Config) (logging.Logger, error) {
	path := flags.File
	format := flags.Format
	level := flags.Level
	if path == "" && cfg.Logging.Enabled {
		path = cfg.Logging.File
		format = cfg.Logging.Format
		level = cfg.Logging.Level
	}
	if path == "" {
		return logging.NewNullLogger(), nil
	}

	var logFormat logging.Format
	switch format {
	case "json":
		logFormat = logging.FormatJSON
	default:
		logFormat = logging.FormatText
	}

	return logging.NewFileLogger(logging.FileLoggerConfig{
		Path:       path,
		Format:     logFormat,
		Level:      logging.ParseLevel(level),
		MaxSize:    10 * 1024 * 1024,
		MaxBackups: 5,
	})
}

// parseBandwidth parses a human bandwidth limit like "10M" or "1GB"
// into bytes per second. Empty means unlimited.
func parseBandwidth(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid bandwidth limit %q: %w", s, err)
	}
	return int64(n), nil
}

// showProgress reports whether a progress bar should be drawn
func showProgress(cfg *config.Config, format string) bool {
	if globalFlags.Quiet || format == "json" {
		return false
	}
	return cfg.Output.Progress || globalFlags.Verbose
}
