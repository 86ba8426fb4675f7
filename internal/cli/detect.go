package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dfirlabs/evicopy/pkg/output"
	"github.com/dfirlabs/evicopy/pkg/storage"
)

// DetectFlags holds detect command flags
type DetectFlags struct {
	Output  string
	Logging loggingFlags
}

var detectFlags DetectFlags

// NewDetectCommand creates the detect command
func NewDetectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect [paths...]",
		Short: "Classify the storage behind paths",
		Long: `Run storage detection on each path and print what the engines would
base their thread counts and copy strategy on. Detection never fails:
when every tier is inconclusive the conservative fallback (external
HDD, confidence 0) is reported.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runDetect,
	}

	cmd.Flags().StringVarP(&detectFlags.Output, "output", "o", "", "output format: human, json")
	addLoggingFlags(cmd, &detectFlags.Logging)

	return cmd
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	format := detectFlags.Output
	if format == "" {
		format = cfg.Output.Format
	}
	formatter, err := output.New(format)
	if err != nil {
		return err
	}

	logger, err := createLogger(detectFlags.Logging, cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	detector := storage.NewDetector(logger)
	for _, path := range args {
		info := detector.Analyze(path)
		if err := formatter.Storage(os.Stdout, path, info); err != nil {
			return err
		}

		if format != "json" && globalFlags.Verbose {
			cpu := storage.CPUThreads()
			fmt.Fprintf(os.Stdout, "  Hash threads: %d (on %d CPUs)\n",
				storage.OptimalThreads(info, cpu), cpu)
		}
	}
	return nil
}
