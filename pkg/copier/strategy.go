package copier

import (
	"context"
	"sync"
	"time"

	"github.com/dfirlabs/evicopy/pkg/hashing"
	"github.com/dfirlabs/evicopy/pkg/logging"
	"github.com/dfirlabs/evicopy/pkg/ratelimit"
	"github.com/dfirlabs/evicopy/pkg/storage"
)

// Strategy executes a planned copy batch
type Strategy interface {
	// Name identifies the strategy in results and logs
	Name() string
	// Workers reports the worker count the strategy actually runs with,
	// given the planned pool size
	Workers(planned int) int
	// Run copies every file in the execution plan
	Run(ctx context.Context, ex *execution) error
}

// Select picks the strategy for a batch based on the storage on both
// sides and the batch size. The returned reason is recorded in the
// result so an examiner can audit why the copy ran the way it did.
func Select(source, dest storage.Info, fileCount int) (Strategy, string) {
	if dest.DriveType.IsRotational() || dest.DriveType == storage.DriveUnknown {
		return &Sequential{}, "destination does not sustain concurrent writes, copying sequentially"
	}

	if fileCount <= 1 {
		return &Sequential{}, "single file, no parallelism to exploit"
	}

	if dest.DriveType == storage.DriveNetwork {
		return &Sequential{}, "network destination, sequential transfer avoids write contention"
	}

	if source.DriveType.IsRotational() {
		return &Parallel{}, "rotational source feeding solid state, a small pool keeps the read queue full"
	}

	if !source.DriveType.IsSolidState() {
		return &Sequential{}, "source is network backed or unclassified, sequential reads are safest"
	}

	sameDevice := source.DeviceID != "" && source.DeviceID == dest.DeviceID
	if sameDevice {
		return &Parallel{}, "solid-state source and destination on the same device"
	}

	if source.DriveType.IsExternal() || dest.DriveType.IsExternal() {
		return &CrossDevice{}, "fast external device in the path, pipelining reads and writes across devices"
	}

	return &Parallel{}, "solid-state source and destination on different devices"
}

// execution is the shared state a strategy runs against
type execution struct {
	entries   []hashing.FileEntry
	destDir   string
	algorithm hashing.Algorithm
	verify    bool
	threads   int
	limiter   *ratelimit.Limiter
	bufferFor func(int64) int
	logger    logging.Logger
	monitor   *throughputMonitor
	onBytes   func(delta int64, file string)

	mu     sync.Mutex
	result *Result
}

func (ex *execution) recordFile(rec FileRecord) {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	ex.result.Files = append(ex.result.Files, rec)
	ex.result.FilesCopied++
	ex.result.BytesCopied += rec.Size
}

func (ex *execution) recordError(relPath string, err error) {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	ex.result.FileErrors[relPath] = err.Error()
}

// destGone reports whether the destination root itself stopped
// accepting files. It turns a per-file error into a job failure.
func (ex *execution) destGone() bool {
	return probeWritable(ex.destDir) != nil
}

func (ex *execution) reportBytes(delta int64, file string) {
	if ex.onBytes != nil {
		ex.onBytes(delta, file)
	}
	if ex.monitor != nil {
		ex.monitor.add(delta, time.Now())
	}
}
