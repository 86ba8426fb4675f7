package copier

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dfirlabs/evicopy/pkg/hashing"
	"github.com/dfirlabs/evicopy/pkg/logging"
	"github.com/dfirlabs/evicopy/pkg/ratelimit"
	"github.com/dfirlabs/evicopy/pkg/storage"
)

var (
	// ErrDestinationUnavailable means the destination cannot be created
	// or written at all. It fails the whole job immediately, unlike
	// per-file errors which are recorded and skipped.
	ErrDestinationUnavailable = errors.New("destination unavailable")

	// ErrVerificationMismatch means the destination read back a digest
	// different from what was written.
	ErrVerificationMismatch = errors.New("verification mismatch")
)

// Options configures a copy Engine
type Options struct {
	// Detector supplies storage classification; nil creates one
	Detector *storage.Detector
	// Logger receives structured events; nil discards them
	Logger logging.Logger
	// Algorithm for in-flight and verification digests
	Algorithm hashing.Algorithm
	// Verify re-reads every destination file from disk after the copy
	Verify bool
	// PreserveStructure keeps source directory layout under the
	// destination; when false files land flat in the destination root
	PreserveStructure bool
	// Threads overrides the storage-derived worker count (0 = automatic)
	Threads int
	// BufferSize overrides the adaptive copy buffer (0 = adaptive)
	BufferSize int
	// BandwidthLimit caps read throughput in bytes/s (0 = unlimited)
	BandwidthLimit int64
}

// Engine plans and executes copy batches. The strategy, worker count
// and buffer sizes all derive from what the detector says about the
// storage on each side.
type Engine struct {
	detector *storage.Detector
	logger   logging.Logger
	opts     Options
}

// NewEngine creates a copy engine
func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	detector := opts.Detector
	if detector == nil {
		detector = storage.NewDetector(logger)
	}
	if opts.Algorithm == "" {
		opts.Algorithm = hashing.SHA256
	}
	return &Engine{
		detector: detector,
		logger:   logger,
		opts:     opts,
	}
}

// bufferFor picks a copy buffer size for a file of the given size,
// using the same tiers as the hashing engine.
func (e *Engine) bufferFor(size int64) int {
	if e.opts.BufferSize > 0 {
		return e.opts.BufferSize
	}
	switch {
	case size < 1*1024*1024:
		return 256 * 1024
	case size < 100*1024*1024:
		return 2 * 1024 * 1024
	default:
		return 10 * 1024 * 1024
	}
}

// Copy transfers the sources into destDir. Per-file failures are
// recorded in the result; only an unusable destination or cancellation
// aborts the batch.
func (e *Engine) Copy(ctx context.Context, sources []string, destDir string, onProgress hashing.ProgressFunc) (*Result, error) {
	start := time.Now()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDestinationUnavailable, err)
	}
	if err := probeWritable(destDir); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDestinationUnavailable, err)
	}

	entries, err := hashing.Discover(sources)
	if err != nil {
		return nil, fmt.Errorf("discover sources: %w", err)
	}

	result := &Result{
		Algorithm:  e.opts.Algorithm,
		FileErrors: make(map[string]string),
	}

	if !e.opts.PreserveStructure {
		entries = flatten(entries, result.FileErrors)
	}

	var sourceInfo storage.Info
	if len(entries) > 0 {
		sourceInfo = e.detector.Analyze(entries[0].Path)
	} else if len(sources) > 0 {
		sourceInfo = e.detector.Analyze(sources[0])
	}
	destInfo := e.detector.Analyze(destDir)
	result.SourceStorage = sourceInfo
	result.DestStorage = destInfo

	threads := e.opts.Threads
	if threads <= 0 {
		threads = storage.OptimalCopyThreads(sourceInfo, destInfo, len(entries), storage.CPUThreads())
	}

	strategy, reason := Select(sourceInfo, destInfo, len(entries))
	// The audit record carries the worker count the strategy runs with,
	// not just the planned pool size.
	threads = strategy.Workers(threads)
	result.ThreadCount = threads
	result.StrategyName = strategy.Name()
	result.SelectionReason = reason

	e.logger.Info(ctx, "copy started", logging.Fields{
		"files":    len(entries),
		"bytes":    hashing.TotalSize(entries),
		"strategy": strategy.Name(),
		"reason":   reason,
		"threads":  threads,
		"source":   string(sourceInfo.DriveType),
		"dest":     string(destInfo.DriveType),
	})

	ex := &execution{
		entries:   entries,
		destDir:   destDir,
		algorithm: e.opts.Algorithm,
		verify:    e.opts.Verify,
		threads:   threads,
		limiter:   ratelimit.NewLimiter(e.opts.BandwidthLimit),
		bufferFor: e.bufferFor,
		logger:    e.logger,
		monitor:   newThroughputMonitor(e.logger),
		result:    result,
	}

	bytesTotal := hashing.TotalSize(entries)
	if onProgress != nil {
		var (
			progressMu sync.Mutex
			bytesDone  int64
		)
		throttle := newCopyProgressThrottle()
		emit := func(current string, final bool) {
			progressMu.Lock()
			done := bytesDone
			progressMu.Unlock()
			p := hashing.Progress{
				FilesTotal:  len(entries),
				BytesDone:   done,
				BytesTotal:  bytesTotal,
				CurrentFile: current,
			}
			if bytesTotal > 0 {
				p.Percent = float64(done) / float64(bytesTotal) * 100
			} else {
				p.Percent = 100
			}
			if final || throttle.allow() {
				onProgress(p)
			}
		}
		ex.onBytes = func(delta int64, file string) {
			progressMu.Lock()
			bytesDone += delta
			progressMu.Unlock()
			emit(file, false)
		}
		emit("", false)
		defer emit("", true)
	}

	if err := strategy.Run(ctx, ex); err != nil {
		result.finalize(start)
		result.Success = false
		return result, err
	}

	result.finalize(start)
	e.logger.Info(ctx, "copy finished", logging.Fields{
		"copied":          result.FilesCopied,
		"failed":          len(result.FileErrors),
		"bytes":           result.BytesCopied,
		"duration":        result.Duration.String(),
		"throughput_mbps": result.ThroughputMBps,
	})
	return result, nil
}

// progressThrottle limits callback frequency to ten per second
type progressThrottle struct {
	mu   sync.Mutex
	last time.Time
}

func newCopyProgressThrottle() *progressThrottle {
	return &progressThrottle{}
}

func (t *progressThrottle) allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	if now.Sub(t.last) < 100*time.Millisecond {
		return false
	}
	t.last = now
	return true
}

// probeWritable confirms files can actually be created in the directory
func probeWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".evicopy-probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// flatten rewrites every relative path to its base name. Colliding
// names are recorded as per-file errors rather than silently
// overwriting each other.
func flatten(entries []hashing.FileEntry, fileErrors map[string]string) []hashing.FileEntry {
	seen := make(map[string]string, len(entries))
	out := entries[:0]
	for _, entry := range entries {
		base := filepath.Base(entry.RelativePath)
		if prev, ok := seen[base]; ok {
			fileErrors[entry.RelativePath] = fmt.Sprintf("flattened name %q collides with %s", base, prev)
			continue
		}
		seen[base] = entry.RelativePath
		entry.RelativePath = base
		out = append(out, entry)
	}
	return out
}
