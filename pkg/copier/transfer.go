package copier

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dfirlabs/evicopy/pkg/hashing"
	"github.com/dfirlabs/evicopy/pkg/ratelimit"
)

// copyFile transfers one file and returns its record. The source digest
// comes from the bytes that actually flowed through the copy; the
// destination digest comes from re-reading the file off the destination
// disk after fsync, so a silent write corruption cannot go unnoticed.
func (ex *execution) copyFile(ctx context.Context, entry hashing.FileEntry) (FileRecord, error) {
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
	reader := io.TeeReader(ratelimit.NewReader(ctx, src, ex.limiter), sourceHash)
	buf := make([]byte, ex.bufferFor(entry.Size))

	var copied int64
	for {
		select {
		case <-ctx.Done():
			dst.Close()
			os.Remove(destPath)
			return FileRecord{}, ctx.Err()
		default:
		}

		n, readErr := reader.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				dst.Close()
				return FileRecord{}, fmt.Errorf("write destination: %w", writeErr)
			}
			copied += int64(n)
			ex.reportBytes(int64(n), entry.RelativePath)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			dst.Close()
			return FileRecord{}, fmt.Errorf("read source: %w", readErr)
		}
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
		Size:         copied,
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

// hashFromDisk re-reads a freshly written file and digests it. It must
// open its own handle so the bytes come back from the device, not from
// the buffers the copy just filled.
func (ex *execution) hashFromDisk(ctx context.Context, path string, size int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := ex.algorithm.New()
	buf := make([]byte, ex.bufferFor(size))
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
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
			return "", readErr
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
