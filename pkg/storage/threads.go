package storage

import (
	"runtime"
)

// Thread-count policy. These functions are the single source of truth for
// worker counts; the hashing and copy engines must not hard-code their own.
//
// The rules come down to one hardware fact: solid-state devices serve many
// concurrent streams, spinning disks are destroyed by them. A parallel
// write load turns an HDD's sequential throughput into seek thrashing, so
// any rule involving an HDD on the write side wins over everything else.

const (
	maxThreads      = 64
	minParallel     = 2
	sataSSDThreads  = 16
	externalSSDRead = 8
	hddSourceBoost  = 8  // HDD reads + fast destination: OS read-ahead queue
	mixedSolidState = 32 // SSD<->NVMe pairs
)

// CPUThreads returns the logical CPU count used by the calculators when the
// caller passes 0.
func CPUThreads() int {
	return runtime.NumCPU()
}

// OptimalThreads returns the worker count for single-sided I/O (hashing)
// against the given storage. Pure function: no I/O, no state.
func OptimalThreads(info Info, cpuThreads int) int {
	if cpuThreads <= 0 {
		cpuThreads = CPUThreads()
	}
	switch info.DriveType {
	case DriveNVMe:
		return clamp(cpuThreads*2, minParallel, maxThreads)
	case DriveSSD:
		return sataSSDThreads
	case DriveExternalSSD:
		return externalSSDRead
	default:
		// HDD classes, network, unknown: parallel reads hurt
		return 1
	}
}

// OptimalCopyThreads returns the worker count for a copy between the two
// given devices. Rules apply in strict priority order; the destination-HDD
// rule dominates because the write side is always the bottleneck.
func OptimalCopyThreads(source, dest Info, fileCount, cpuThreads int) int {
	if cpuThreads <= 0 {
		cpuThreads = CPUThreads()
	}

	// 1. Writing to spinning media: one stream, no exceptions.
	if dest.DriveType.IsRotational() {
		return 1
	}

	// 2. A single file gains nothing from a pool.
	if fileCount == 1 {
		return 1
	}

	// 3. HDD reads into a fast destination: a small pool lets the OS
	// reorder reads in the drive's queue while the destination absorbs
	// writes effortlessly.
	if source.DriveType.IsRotational() {
		if dest.DriveType.IsSolidState() {
			return hddSourceBoost
		}
		return 1
	}

	// 4. NVMe on both sides saturates at roughly two streams per core.
	if source.DriveType == DriveNVMe && dest.DriveType == DriveNVMe {
		return clamp(cpuThreads*2, minParallel, maxThreads)
	}

	// 5. Mixed solid-state pairs.
	if source.DriveType.IsSolidState() && dest.DriveType.IsSolidState() {
		if source.DriveType == DriveNVMe || dest.DriveType == DriveNVMe {
			return mixedSolidState
		}
		return sataSSDThreads
	}

	// 6. Network or unknown on either side: sequential is the only safe bet.
	return 1
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
