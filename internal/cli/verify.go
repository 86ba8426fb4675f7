package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dfirlabs/evicopy/internal/platform"
	"github.com/dfirlabs/evicopy/pkg/hashing"
	"github.com/dfirlabs/evicopy/pkg/job"
	"github.com/dfirlabs/evicopy/pkg/output"
	"github.com/dfirlabs/evicopy/pkg/storage"
)

// VerifyFlags holds verify command flags
type VerifyFlags struct {
	Source    string
	Target    string
	Algorithm string
	Threads   int
	Output    string
	CSVReport string
	Logging   loggingFlags
}

var verifyFlags VerifyFlags

// NewVerifyCommand creates the verify command
func NewVerifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify two trees against each other",
		Long: `Hash the source and target trees concurrently and compare them in
both directions: files missing on either side are reported as well as
digest mismatches. Files are matched by path relative to each root.`,
		RunE: runVerify,
	}

	cmd.Flags().StringVarP(&verifyFlags.Source, "source", "s", "", "source directory or file (required)")
	cmd.Flags().StringVarP(&verifyFlags.Target, "target", "d", "", "target directory or file (required)")
	cmd.MarkFlagRequired("source")
	cmd.MarkFlagRequired("target")

	cmd.Flags().StringVarP(&verifyFlags.Algorithm, "algorithm", "a", "", "digest algorithm: sha256, sha1, md5 (default from config)")
	cmd.Flags().IntVarP(&verifyFlags.Threads, "threads", "t", 0, "worker count per side (default: derived from storage)")
	cmd.Flags().StringVarP(&verifyFlags.Output, "output", "o", "", "output format: human, json")
	cmd.Flags().StringVar(&verifyFlags.CSVReport, "csv-report", "", "write per-file verdicts to a CSV file")
	addLoggingFlags(cmd, &verifyFlags.Logging)

	return cmd
}

func runVerify(cmd *cobra.Command, args []string) error {
	if err := validateVerifyFlags(); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	algName := verifyFlags.Algorithm
	if algName == "" {
		algName = cfg.Hashing.Algorithm
	}
	algorithm, err := hashing.ParseAlgorithm(algName)
	if err != nil {
		return err
	}

	format := verifyFlags.Output
	if format == "" {
		format = cfg.Output.Format
	}
	formatter, err := output.New(format)
	if err != nil {
		return err
	}

	logger, err := createLogger(verifyFlags.Logging, cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	threads := verifyFlags.Threads
	if threads == 0 {
		threads = cfg.Performance.Threads
	}

	engine := hashing.NewEngine(hashing.Options{
		Detector: storage.NewDetector(logger),
		Logger:   logger,
		Threads:  threads,
	})

	handle := job.Start(logger, func(ctx context.Context, report hashing.ProgressFunc) (interface{}, error) {
		return engine.Verify(ctx, verifyFlags.Source, verifyFlags.Target, algorithm, report)
	})
	cancelOnInterrupt(handle)

	if showProgress(cfg, format) {
		finish := attachProgressBar(handle, 0)
		defer finish()
	}

	value, err := handle.Result(context.Background())
	if err != nil {
		return err
	}
	result := value.(*hashing.VerificationResult)

	if !globalFlags.Quiet {
		if err := formatter.Verification(os.Stdout, result); err != nil {
			return err
		}
	}

	if verifyFlags.CSVReport != "" {
		if err := writeCSV(verifyFlags.CSVReport, func(f *os.File) error {
			return output.WriteVerificationCSV(f, result)
		}); err != nil {
			return err
		}
	}

	if !result.Identical() {
		os.Exit(1)
	}
	return nil
}

func validateVerifyFlags() error {
	if err := platform.ValidatePath(verifyFlags.Source); err != nil {
		return err
	}
	if err := platform.ValidatePath(verifyFlags.Target); err != nil {
		return err
	}
	if _, err := os.Stat(verifyFlags.Source); err != nil {
		return fmt.Errorf("source path not accessible: %w", err)
	}
	if _, err := os.Stat(verifyFlags.Target); err != nil {
		return fmt.Errorf("target path not accessible: %w", err)
	}

	sourceAbs, err := filepath.Abs(verifyFlags.Source)
	if err != nil {
		return fmt.Errorf("failed to resolve source path: %w", err)
	}
	targetAbs, err := filepath.Abs(verifyFlags.Target)
	if err != nil {
		return fmt.Errorf("failed to resolve target path: %w", err)
	}
	if sourceAbs == targetAbs {
		return fmt.Errorf("source and target cannot be the same: %s", sourceAbs)
	}
	return nil
}
