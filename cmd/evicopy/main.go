package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dfirlabs/evicopy/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cli.Version = version
	cli.Commit = commit
	cli.BuildDate = date

	rootCmd := &cobra.Command{
		Use:   "evicopy",
		Short: "Storage-aware file integrity and copy tool",
		Long: `evicopy hashes, verifies and copies files for forensic workflows.
It detects the physical storage behind every path (HDD, SSD, NVMe,
external, network) and derives thread counts, buffer sizes and the
copy strategy from what the hardware can actually sustain. Copies are
verified by re-reading the destination from disk.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cli.AddGlobalFlags(rootCmd)

	rootCmd.AddCommand(cli.NewHashCommand())
	rootCmd.AddCommand(cli.NewVerifyCommand())
	rootCmd.AddCommand(cli.NewCopyCommand())
	rootCmd.AddCommand(cli.NewDetectCommand())
	rootCmd.AddCommand(cli.NewConfigCommand())
	rootCmd.AddCommand(cli.NewVersionCommand())

	return rootCmd.Execute()
}
