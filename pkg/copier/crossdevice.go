package copier

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dfirlabs/evicopy/pkg/hashing"
	"github.com/dfirlabs/evicopy/pkg/logging"
	"github.com/dfirlabs/evicopy/pkg/ratelimit"
)

// CrossDevice copies between two fast devices on different buses by
// decoupling reads from writes: a reader goroutine fills buffers from a
// bounded pool while a writer goroutine drains them, so neither side
// stalls the other. Fast external solid state sustains few concurrent
// streams well, which is why this runs one pipelined file at a time.
type CrossDevice struct{}

func (c *CrossDevice) Name() string { return "cross_device" }

// One pipelined file at a time; the concurrency lives inside the
// reader/writer pair, not in a worker pool.
func (c *CrossDevice) Workers(int) int { return 1 }

func (c *CrossDevice) Run(ctx context.Context, ex *execution) error {
	pool := newBufferPool(crossDeviceBuffers, crossDeviceBufferSize, bufferAcquireTimeout)

	for _, entry := range ex.entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rec, err := c.copyPipelined(ctx, ex, pool, entry)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if ex.destGone() {
				return fmt.Errorf("%w: %v", ErrDestinationUnavailable, err)
			}
			ex.recordError(entry.RelativePath, err)
			ex.logger.Error(ctx, "copy failed", err, logging.Fields{"path": entry.Path})
			continue
		}
		ex.recordFile(rec)
	}
	return nil
}

type chunk struct {
	buf []byte
	n   int
}

func (c *CrossDevice) copyPipelined(ctx context.Context, ex *execution, pool *bufferPool, entry hashing.FileEntry) (FileRecord, error) {
	start := time.Now()
	destPath := filepath.Join(ex.destDir, entry.RelativePath)

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return FileRecord{}, fmt.Errorf("create destination directory: %w", err)
	}

	src, err := os.Open(entry.Path)
	if err != nil {
		return FileRecord{}, fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return FileRecord{}, fmt.Errorf("create destination: %w", err)
	}

	sourceHash := ex.algorithm.New()
	reader := ratelimit.NewReader(ctx, src, ex.limiter)
	chunks := make(chan chunk, crossDeviceBuffers)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(chunks)
		for {
			buf, err := pool.acquire(gctx)
			if err != nil {
				return err
			}

			n, readErr := io.ReadFull(reader, buf)
			if n > 0 {
				sourceHash.Write(buf[:n])
				select {
				case chunks <- chunk{buf: buf, n: n}:
				case <-gctx.Done():
					pool.release(buf)
					return gctx.Err()
				}
			} else {
				pool.release(buf)
			}

			if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
				return nil
			}
			if readErr != nil {
				return fmt.Errorf("read source: %w", readErr)
			}
		}
	})

	g.Go(func() error {
		for ch := range chunks {
			_, writeErr := dst.Write(ch.buf[:ch.n])
			if writeErr == nil {
				ex.reportBytes(int64(ch.n), entry.RelativePath)
			}
			pool.release(ch.buf)
			if writeErr != nil {
				return fmt.Errorf("write destination: %w", writeErr)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		// Return any chunks stranded in flight so later files in the
		// batch still have a full pool.
		for ch := range chunks {
			pool.release(ch.buf)
		}
		dst.Close()
		return FileRecord{}, err
	}

	if err := dst.Sync(); err != nil {
		dst.Close()
		return FileRecord{}, fmt.Errorf("sync destination: %w", err)
	}
	if err := dst.Close(); err != nil {
		return FileRecord{}, fmt.Errorf("close destination: %w", err)
	}

	rec := FileRecord{
		SourcePath:   entry.Path,
		DestPath:     destPath,
		RelativePath: entry.RelativePath,
		Size:         entry.Size,
		SourceDigest: hex.EncodeToString(sourceHash.Sum(nil)),
	}

	if ex.verify {
		destDigest, err := ex.hashFromDisk(ctx, destPath, entry.Size)
		if err != nil {
			return FileRecord{}, fmt.Errorf("verify destination: %w", err)
		}
		rec.DestDigest = destDigest
		if rec.DestDigest != rec.SourceDigest {
			return FileRecord{}, fmt.Errorf("%w: source %s destination %s",
				ErrVerificationMismatch, rec.SourceDigest, rec.DestDigest)
		}
		rec.Verified = true
	}

	rec.Duration = time.Since(start)
	return rec, nil
}
