package hashing

import (
	"context"
	"encoding/hex"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dfirlabs/evicopy/pkg/logging"
	"github.com/dfirlabs/evicopy/pkg/storage"
)

const (
	// Adaptive buffer tiers keyed on file size
	smallFileThreshold = 1 * 1024 * 1024
	largeFileThreshold = 100 * 1024 * 1024
	smallBuffer        = 256 * 1024
	mediumBuffer       = 2 * 1024 * 1024
	largeBuffer        = 10 * 1024 * 1024

	// A single file never hashes longer than this before being recorded
	// as a per-file error.
	fileHashTimeout = 5 * time.Minute

	// Batches are dispatched in chunks so a huge file list does not pin
	// every pending file in memory at once.
	maxChunkSize = 100

	// Progress callbacks are throttled to this many per second
	progressMaxRate = 10
)

// Progress is a snapshot of a running batch operation
type Progress struct {
	FilesDone   int
	FilesTotal  int
	BytesDone   int64
	BytesTotal  int64
	Percent     float64
	CurrentFile string
}

// ProgressFunc receives throttled progress snapshots
type ProgressFunc func(Progress)

// Options configures a hashing Engine
type Options struct {
	// Detector supplies storage classification; nil creates one
	Detector *storage.Detector
	// Logger receives structured events; nil discards them
	Logger logging.Logger
	// Threads overrides the storage-derived worker count (0 = automatic)
	Threads int
	// BufferSize overrides the adaptive read buffer (0 = adaptive)
	BufferSize int
}

// Engine hashes files with buffer sizes and worker counts derived from
// the storage backing them.
type Engine struct {
	detector   *storage.Detector
	logger     logging.Logger
	threads    int
	bufferSize int
}

// NewEngine creates a hashing engine
func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	detector := opts.Detector
	if detector == nil {
		detector = storage.NewDetector(logger)
	}
	return &Engine{
		detector:   detector,
		logger:     logger,
		threads:    opts.Threads,
		bufferSize: opts.BufferSize,
	}
}

// bufferFor picks a read buffer size for a file of the given size
func (e *Engine) bufferFor(size int64) int {
	if e.bufferSize > 0 {
		return e.bufferSize
	}
	switch {
	case size < smallFileThreshold:
		return smallBuffer
	case size < largeFileThreshold:
		return mediumBuffer
	default:
		return largeBuffer
	}
}

// HashFile computes the digest of one file, checking for cancellation
// between reads.
func (e *Engine) HashFile(ctx context.Context, path string, algorithm Algorithm) (HashResult, error) {
	start := time.Now()

	f, err := os.Open(path)
	if err != nil {
		return HashResult{}, &CalculationError{Path: path, Op: "open", Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return HashResult{}, &CalculationError{Path: path, Op: "stat", Err: err}
	}

	h := algorithm.New()
	buf := make([]byte, e.bufferFor(info.Size()))

	for {
		select {
		case <-ctx.Done():
			return HashResult{}, ctx.Err()
		default:
		}

		n, readErr := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return HashResult{}, &CalculationError{Path: path, Op: "read", Err: readErr}
		}
	}

	return HashResult{
		Path:         path,
		RelativePath: path,
		Algorithm:    algorithm,
		Digest:       hex.EncodeToString(h.Sum(nil)),
		Size:         info.Size(),
		Duration:     time.Since(start),
	}, nil
}

// HashFiles hashes a batch of files concurrently. Per-file failures are
// recorded in the result rather than aborting the batch.
func (e *Engine) HashFiles(ctx context.Context, entries []FileEntry, algorithm Algorithm, onProgress ProgressFunc) (*BatchResult, error) {
	start := time.Now()
	result := &BatchResult{
		Algorithm: algorithm,
		Errors:    make(map[string]string),
	}
	if len(entries) == 0 {
		return result, nil
	}

	threads := e.threads
	if threads <= 0 {
		info := e.detector.Analyze(entries[0].Path)
		threads = storage.OptimalThreads(info, storage.CPUThreads())
	}

	chunkSize := threads * 3
	if chunkSize > maxChunkSize {
		chunkSize = maxChunkSize
	}
	if chunkSize < 1 {
		chunkSize = 1
	}

	e.logger.Info(ctx, "hash batch started", logging.Fields{
		"files":     len(entries),
		"bytes":     TotalSize(entries),
		"threads":   threads,
		"algorithm": algorithm.String(),
	})

	var (
		mu        sync.Mutex
		bytesDone int64
		filesDone int
	)
	bytesTotal := TotalSize(entries)
	emit := newProgressThrottle(progressMaxRate)

	report := func(current string, final bool) {
		if onProgress == nil {
			return
		}
		mu.Lock()
		p := Progress{
			FilesDone:   filesDone,
			FilesTotal:  len(entries),
			BytesDone:   bytesDone,
			BytesTotal:  bytesTotal,
			CurrentFile: current,
		}
		mu.Unlock()
		if bytesTotal > 0 {
			p.Percent = float64(p.BytesDone) / float64(bytesTotal) * 100
		} else if p.FilesTotal > 0 {
			p.Percent = float64(p.FilesDone) / float64(p.FilesTotal) * 100
		}
		if final || emit.allow() {
			onProgress(p)
		}
	}

	report("", false)

	sem := make(chan struct{}, threads)
	var wg sync.WaitGroup

	for chunkStart := 0; chunkStart < len(entries); chunkStart += chunkSize {
		chunkEnd := chunkStart + chunkSize
		if chunkEnd > len(entries) {
			chunkEnd = len(entries)
		}

		for _, entry := range entries[chunkStart:chunkEnd] {
			select {
			case <-ctx.Done():
				wg.Wait()
				return result, ctx.Err()
			case sem <- struct{}{}:
			}

			wg.Add(1)
			go func(entry FileEntry) {
				defer wg.Done()
				defer func() { <-sem }()

				fileCtx, cancel := context.WithTimeout(ctx, fileHashTimeout)
				defer cancel()

				hr, err := e.HashFile(fileCtx, entry.Path, algorithm)
				mu.Lock()
				if err != nil {
					result.Errors[entry.Path] = err.Error()
					e.logger.Error(ctx, "hash failed", err, logging.Fields{"path": entry.Path})
				} else {
					hr.RelativePath = entry.RelativePath
					result.Results = append(result.Results, hr)
					bytesDone += hr.Size
				}
				filesDone++
				mu.Unlock()

				report(entry.RelativePath, false)
			}(entry)
		}

		wg.Wait()
	}

	result.Duration = time.Since(start)
	report("", true)

	e.logger.Info(ctx, "hash batch finished", logging.Fields{
		"hashed":   len(result.Results),
		"failed":   len(result.Errors),
		"duration": result.Duration.String(),
	})
	return result, nil
}

// progressThrottle limits callback frequency
type progressThrottle struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

func newProgressThrottle(perSecond int) *progressThrottle {
	return &progressThrottle{interval: time.Second / time.Duration(perSecond)}
}

func (t *progressThrottle) allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	if now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}
