package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dfirlabs/evicopy/internal/platform"
	"github.com/dfirlabs/evicopy/pkg/copier"
	"github.com/dfirlabs/evicopy/pkg/hashing"
	"github.com/dfirlabs/evicopy/pkg/job"
	"github.com/dfirlabs/evicopy/pkg/output"
	"github.com/dfirlabs/evicopy/pkg/storage"
)

// CopyFlags holds copy command flags
type CopyFlags struct {
	Sources   []string
	Dest      string
	Algorithm string
	NoVerify  bool
	Flatten   bool
	Threads   int
	Buffer    int
	Bandwidth string
	Output    string
	CSVReport string
	Logging   loggingFlags
}

var copyFlags CopyFlags

// NewCopyCommand creates the copy command
func NewCopyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "copy",
		Short: "Copy files with forensic verification",
		Long: `Copy files and directory trees into a destination. The copy strategy,
worker count and buffer sizes are derived from the storage on both
sides. By default every file is verified by re-reading it from the
destination disk and comparing digests against the bytes that were
read from the source during the copy.`,
		RunE: runCopy,
	}

	cmd.Flags().StringSliceVarP(&copyFlags.Sources, "source", "s", nil, "source file or directory, repeatable (required)")
	cmd.Flags().StringVarP(&copyFlags.Dest, "dest", "d", "", "destination directory (required)")
	cmd.MarkFlagRequired("source")
	cmd.MarkFlagRequired("dest")

	cmd.Flags().StringVarP(&copyFlags.Algorithm, "algorithm", "a", "", "digest algorithm: sha256, sha1, md5 (default from config)")
	cmd.Flags().BoolVar(&copyFlags.NoVerify, "no-verify", false, "skip the post-copy destination re-read")
	cmd.Flags().BoolVar(&copyFlags.Flatten, "flatten", false, "copy files flat into the destination root")
	cmd.Flags().IntVarP(&copyFlags.Threads, "threads", "t", 0, "worker count (default: derived from storage)")
	cmd.Flags().IntVar(&copyFlags.Buffer, "buffer", 0, "copy buffer in bytes (default: adaptive)")
	cmd.Flags().StringVarP(&copyFlags.Bandwidth, "bandwidth", "b", "", `bandwidth limit (e.g. "10M", "1G")`)
	cmd.Flags().StringVarP(&copyFlags.Output, "output", "o", "", "output format: human, json")
	cmd.Flags().StringVar(&copyFlags.CSVReport, "csv-report", "", "write the per-file copy log to a CSV file")
	addLoggingFlags(cmd, &copyFlags.Logging)

	return cmd
}

func runCopy(cmd *cobra.Command, args []string) error {
	if err := validateCopyFlags(); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	algName := copyFlags.Algorithm
	if algName == "" {
		algName = cfg.Hashing.Algorithm
	}
	algorithm, err := hashing.ParseAlgorithm(algName)
	if err != nil {
		return err
	}

	format := copyFlags.Output
	if format == "" {
		format = cfg.Output.Format
	}
	formatter, err := output.New(format)
	if err != nil {
		return err
	}

	bandwidth := cfg.Copy.BandwidthLimit
	if copyFlags.Bandwidth != "" {
		bandwidth, err = parseBandwidth(copyFlags.Bandwidth)
		if err != nil {
			return err
		}
	}

	logger, err := createLogger(copyFlags.Logging, cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	threads := copyFlags.Threads
	if threads == 0 {
		threads = cfg.Performance.Threads
	}
	buffer := copyFlags.Buffer
	if buffer == 0 {
		buffer = cfg.Performance.BufferSize
	}

	verify := cfg.Copy.Verify && !copyFlags.NoVerify
	preserve := cfg.Copy.PreserveStructure && !copyFlags.Flatten

	engine := copier.NewEngine(copier.Options{
		Detector:          storage.NewDetector(logger),
		Logger:            logger,
		Algorithm:         algorithm,
		Verify:            verify,
		PreserveStructure: preserve,
		Threads:           threads,
		BufferSize:        buffer,
		BandwidthLimit:    bandwidth,
	})

	entries, err := hashing.Discover(copyFlags.Sources)
	if err != nil {
		return err
	}

	handle := job.Start(logger, func(ctx context.Context, report hashing.ProgressFunc) (interface{}, error) {
		return engine.Copy(ctx, copyFlags.Sources, copyFlags.Dest, report)
	})
	cancelOnInterrupt(handle)

	if showProgress(cfg, format) {
		finish := attachProgressBar(handle, hashing.TotalSize(entries))
		defer finish()
	}

	value, err := handle.Result(context.Background())
	if err != nil {
		return err
	}
	result := value.(*copier.Result)

	if !globalFlags.Quiet {
		if err := formatter.Copy(os.Stdout, result); err != nil {
			return err
		}
	}

	if copyFlags.CSVReport != "" {
		if err := writeCSV(copyFlags.CSVReport, func(f *os.File) error {
			return output.WriteCopyCSV(f, result)
		}); err != nil {
			return err
		}
	}

	if !result.Success {
		os.Exit(1)
	}
	return nil
}

func validateCopyFlags() error {
	if err := platform.ValidatePath(copyFlags.Dest); err != nil {
		return err
	}
	for _, src := range copyFlags.Sources {
		if err := platform.ValidatePath(src); err != nil {
			return err
		}
		if _, err := os.Stat(src); err != nil {
			return fmt.Errorf("source path not accessible: %w", err)
		}
	}

	destAbs, err := filepath.Abs(copyFlags.Dest)
	if err != nil {
		return fmt.Errorf("failed to resolve destination path: %w", err)
	}
	for _, src := range copyFlags.Sources {
		srcAbs, err := filepath.Abs(src)
		if err != nil {
			return fmt.Errorf("failed to resolve source path: %w", err)
		}
		if srcAbs == destAbs {
			return fmt.Errorf("source and destination cannot be the same: %s", srcAbs)
		}
		if strings.HasPrefix(destAbs, srcAbs+string(filepath.Separator)) {
			return fmt.Errorf("destination cannot be inside source directory")
		}
	}
	return nil
}
