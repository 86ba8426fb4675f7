package storage

import (
	"context"
	"os"
	"sync"

	"github.com/dfirlabs/evicopy/pkg/logging"
)

// platformResult is what a platform tier returns to the orchestrator.
// Conclusive results short-circuit the remaining tiers.
type platformResult struct {
	info       Info
	conclusive bool
}

// Detector classifies the physical storage backing filesystem paths.
//
// Detection is tiered: a fast OS inventory query first, then a kernel
// seek-penalty query, then a timed I/O probe, and finally a conservative
// fallback. Results are cached per device identifier for the lifetime of
// the Detector, so repeated jobs against the same volume skip the probe.
// The cache has no invalidation; construct a new Detector to force fresh
// probes (e.g. after swapping an external disk on the same mount point).
type Detector struct {
	logger logging.Logger

	mu    sync.RWMutex
	cache map[string]Info
}

// NewDetector creates a detector with an empty cache. A nil logger is
// replaced with the null logger.
func NewDetector(logger logging.Logger) *Detector {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Detector{
		logger: logger,
		cache:  make(map[string]Info),
	}
}

// Analyze classifies the device backing path. It never returns an error and
// never requires elevated privileges; every failure mode degrades to the
// conservative fallback (external HDD, confidence 0).
func (d *Detector) Analyze(path string) Info {
	ctx := context.Background()

	if _, err := os.Stat(path); err != nil {
		d.logger.Warn(ctx, "path not accessible, assuming slowest storage", logging.Fields{
			"path": path, "error": err.Error(),
		})
		return conservativeFallback(path, "path_not_found")
	}

	deviceID := deviceIdentifier(path)

	d.mu.RLock()
	cached, ok := d.cache[deviceID]
	d.mu.RUnlock()
	if ok {
		d.logger.Debug(ctx, "storage detection cache hit", logging.Fields{
			"device": deviceID, "drive_type": string(cached.DriveType),
		})
		return cached
	}

	info := d.detect(ctx, path, deviceID)

	d.mu.Lock()
	d.cache[deviceID] = info
	d.mu.Unlock()

	d.logger.Info(ctx, "storage detected", logging.Fields{
		"path":       path,
		"device":     deviceID,
		"drive_type": string(info.DriveType),
		"bus_type":   info.BusType.String(),
		"method":     info.DetectionMethod,
		"confidence": info.Confidence,
		"perf_class": info.PerformanceClass,
	})
	return info
}

// detect runs the tiers in order, taking the first conclusive answer.
func (d *Detector) detect(ctx context.Context, path, deviceID string) Info {
	// Tier 0: OS inventory query (WMI on Windows, sysfs on Linux).
	// Resolves the large majority of drives, including external ones.
	inv := detectInventory(path, deviceID)
	if inv.conclusive {
		return inv.info
	}

	// Tier 1: kernel seek-penalty query. Reliably separates spinning disks
	// from solid state, but cannot tell NVMe from SATA SSD on its own.
	seek := detectSeekPenalty(path, deviceID)
	if seek.conclusive {
		return seek.info
	}

	// Tier 2: timed I/O probe. Only reached when the cheap tiers were
	// inconclusive or unavailable on this platform.
	probed, err := probeDevice(path, deviceID)
	if err == nil {
		// A seek-penalty SSD verdict refines an HDD-looking probe: trust
		// the kernel over a possibly throttled benchmark run.
		if seek.info.DriveType.IsSolidState() && probed.DriveType.IsRotational() {
			return seek.info
		}
		return probed
	}
	d.logger.Debug(ctx, "I/O probe failed", logging.Fields{
		"path": path, "error": err.Error(),
	})

	// The probe failed but a cheap tier produced a partial answer; a
	// low-confidence classification still beats the blind fallback.
	if seek.info.DriveType != DriveUnknown {
		return seek.info
	}
	if inv.info.DriveType != DriveUnknown {
		return inv.info
	}

	return conservativeFallback(deviceID, "all_tiers_failed")
}

// CacheSize returns the number of cached device classifications.
func (d *Detector) CacheSize() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.cache)
}

// Prime inserts a classification into the cache, keyed by its DeviceID.
// Used by tests and by callers that already know their hardware.
func (d *Detector) Prime(info Info) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cache[info.DeviceID] = info
}
