package copier

import (
	"time"

	"github.com/dfirlabs/evicopy/pkg/hashing"
	"github.com/dfirlabs/evicopy/pkg/storage"
)

// FileRecord is the per-file outcome of a copy
type FileRecord struct {
	// SourcePath is the absolute source path
	SourcePath string `json:"source_path"`
	// DestPath is the absolute destination path
	DestPath string `json:"dest_path"`
	// RelativePath is the path relative to the batch root
	RelativePath string `json:"relative_path"`
	// Size in bytes
	Size int64 `json:"size"`
	// SourceDigest computed from the bytes read during the copy
	SourceDigest string `json:"source_digest,omitempty"`
	// DestDigest computed by re-reading the destination from disk
	DestDigest string `json:"dest_digest,omitempty"`
	// Verified is true when both digests were computed and match
	Verified bool `json:"verified"`
	// Duration of the copy including verification
	Duration time.Duration `json:"duration"`
}

// Result is the terminal outcome of a copy job
type Result struct {
	// Success is true when every file copied and verified cleanly
	Success bool `json:"success"`
	// StrategyName is the strategy that executed the copy
	StrategyName string `json:"strategy"`
	// SelectionReason explains why the strategy was chosen
	SelectionReason string `json:"selection_reason"`
	// ThreadCount is the worker count the strategy ran with
	ThreadCount int `json:"thread_count"`
	// Algorithm used for in-flight and verification digests
	Algorithm hashing.Algorithm `json:"algorithm"`

	FilesCopied int           `json:"files_copied"`
	BytesCopied int64         `json:"bytes_copied"`
	Duration    time.Duration `json:"duration"`
	// ThroughputMBps is the overall average, bytes copied over wall time
	ThroughputMBps float64 `json:"throughput_mbps"`

	// SourceStorage and DestStorage are the classifications the
	// selection was based on
	SourceStorage storage.Info `json:"source_storage"`
	DestStorage   storage.Info `json:"dest_storage"`

	Files []FileRecord `json:"files"`
	// FileErrors maps relative paths to per-file failures. A failed
	// file does not abort the batch.
	FileErrors map[string]string `json:"file_errors,omitempty"`
}

func (r *Result) finalize(start time.Time) {
	r.Duration = time.Since(start)
	if r.Duration > 0 {
		r.ThroughputMBps = float64(r.BytesCopied) / (1024 * 1024) / r.Duration.Seconds()
	}
	r.Success = len(r.FileErrors) == 0
}
