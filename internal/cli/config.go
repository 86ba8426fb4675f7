package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dfirlabs/evicopy/pkg/config"
)

// NewConfigCommand creates the config command
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `View or modify evicopy configuration.`,
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigInitCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			fmt.Printf("Algorithm: %s\n", cfg.Hashing.Algorithm)
			fmt.Printf("Preserve Structure: %t\n", cfg.Copy.PreserveStructure)
			fmt.Printf("Verify Copies: %t\n", cfg.Copy.Verify)
			fmt.Printf("Bandwidth Limit: %d\n", cfg.Copy.BandwidthLimit)
			fmt.Printf("Threads: %d\n", cfg.Performance.Threads)
			fmt.Printf("Buffer Size: %d\n", cfg.Performance.BufferSize)
			fmt.Printf("Output Format: %s\n", cfg.Output.Format)
			fmt.Printf("Log Format: %s\n", cfg.Logging.Format)
			fmt.Printf("Log Level: %s\n", cfg.Logging.Level)

			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.DefaultConfigPath()
			if err != nil {
				return err
			}

			cfg := config.Default()
			if err := config.SaveToFile(cfg, path); err != nil {
				return err
			}

			fmt.Printf("Configuration file created at: %s\n", path)
			return nil
		},
	}
}
