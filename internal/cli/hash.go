package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/dfirlabs/evicopy/pkg/hashing"
	"github.com/dfirlabs/evicopy/pkg/job"
	"github.com/dfirlabs/evicopy/pkg/output"
	"github.com/dfirlabs/evicopy/pkg/storage"
)

// HashFlags holds hash command flags
type HashFlags struct {
	Algorithm string
	Threads   int
	Buffer    int
	Output    string
	CSVReport string
	Logging   loggingFlags
}

var hashFlags HashFlags

// NewHashCommand creates the hash command
func NewHashCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash [paths...]",
		Short: "Hash files and directories",
		Long: `Compute digests for files and directory trees. Worker count and
buffer sizes are derived from the storage backing the files.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runHash,
	}

	cmd.Flags().StringVarP(&hashFlags.Algorithm, "algorithm", "a", "", "digest algorithm: sha256, sha1, md5 (default from config)")
	cmd.Flags().IntVarP(&hashFlags.Threads, "threads", "t", 0, "worker count (default: derived from storage)")
	cmd.Flags().IntVar(&hashFlags.Buffer, "buffer", 0, "read buffer in bytes (default: adaptive)")
	cmd.Flags().StringVarP(&hashFlags.Output, "output", "o", "", "output format: human, json")
	cmd.Flags().StringVar(&hashFlags.CSVReport, "csv-report", "", "write per-file digests to a CSV file")
	addLoggingFlags(cmd, &hashFlags.Logging)

	return cmd
}

func runHash(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	algName := hashFlags.Algorithm
	if algName == "" {
		algName = cfg.Hashing.Algorithm
	}
	algorithm, err := hashing.ParseAlgorithm(algName)
	if err != nil {
		return err
	}

	format := hashFlags.Output
	if format == "" {
		format = cfg.Output.Format
	}
	formatter, err := output.New(format)
	if err != nil {
		return err
	}

	logger, err := createLogger(hashFlags.Logging, cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	threads := hashFlags.Threads
	if threads == 0 {
		threads = cfg.Performance.Threads
	}
	buffer := hashFlags.Buffer
	if buffer == 0 {
		buffer = cfg.Performance.BufferSize
	}

	engine := hashing.NewEngine(hashing.Options{
		Detector:   storage.NewDetector(logger),
		Logger:     logger,
		Threads:    threads,
		BufferSize: buffer,
	})

	entries, err := hashing.Discover(args)
	if err != nil {
		return err
	}

	handle := job.Start(logger, func(ctx context.Context, report hashing.ProgressFunc) (interface{}, error) {
		return engine.HashFiles(ctx, entries, algorithm, report)
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
	result := value.(*hashing.BatchResult)

	if !globalFlags.Quiet {
		if err := formatter.HashBatch(os.Stdout, result); err != nil {
			return err
		}
	}

	if hashFlags.CSVReport != "" {
		if err := writeCSV(hashFlags.CSVReport, func(f *os.File) error {
			return output.WriteHashCSV(f, result)
		}); err != nil {
			return err
		}
	}

	if len(result.Errors) > 0 {
		os.Exit(1)
	}
	return nil
}

// cancelOnInterrupt requests cooperative cancellation on the first
// interrupt signal.
func cancelOnInterrupt(handle *job.Handle) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		select {
		case <-c:
			handle.Cancel()
		case <-handle.Done():
		}
		signal.Stop(c)
	}()
}

// writeCSV creates the report file and hands it to fn
func writeCSV(path string, fn func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
