package storage

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

const (
	probeSize     = 10 * 1024 * 1024 // 10MB test block
	probeFileName = ".evicopy-probe"
)

// Classification thresholds in MB/s. Write speed is the reliable signal:
// the OS page cache makes HDD reads look fast on read-only tests, but
// nothing hides a spinning disk's write throughput.
const (
	hddWriteCeiling = 50
	nvmeWriteFloor  = 100
	nvmeReadFloor   = 200
)

// probeDevice measures actual write and read throughput on the device
// backing path by writing and reading back a small test block.
func probeDevice(path, deviceID string) (Info, error) {
	dir := path
	if fi, err := os.Stat(path); err != nil {
		return Info{}, err
	} else if !fi.IsDir() {
		dir = filepath.Dir(path)
	}

	f, err := os.CreateTemp(dir, probeFileName+"*")
	if err != nil {
		return Info{}, fmt.Errorf("probe target not writable: %w", err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	return timeProbe(f, deviceID, externalHint(path))
}

// timeProbe runs the write-then-read measurement on an open temp file.
func timeProbe(f *os.File, deviceID string, removable bool) (Info, error) {
	block := make([]byte, probeSize)
	if _, err := rand.Read(block); err != nil {
		return Info{}, fmt.Errorf("generate probe block: %w", err)
	}

	start := time.Now()
	if _, err := f.Write(block); err != nil {
		return Info{}, fmt.Errorf("probe write: %w", err)
	}
	if err := f.Sync(); err != nil {
		return Info{}, fmt.Errorf("probe sync: %w", err)
	}
	writeSecs := time.Since(start).Seconds()

	if _, err := f.Seek(0, 0); err != nil {
		return Info{}, fmt.Errorf("probe seek: %w", err)
	}
	start = time.Now()
	if _, err := io.ReadFull(f, block); err != nil {
		return Info{}, fmt.Errorf("probe read: %w", err)
	}
	readSecs := time.Since(start).Seconds()

	const mb = float64(probeSize) / (1024 * 1024)
	writeMBps := mb / writeSecs
	readMBps := mb / readSecs

	return classifySpeeds(writeMBps, readMBps, deviceID, removable), nil
}

// classifySpeeds maps measured throughput to a drive type using both the
// write and read numbers.
func classifySpeeds(writeMBps, readMBps float64, deviceID string, removable bool) Info {
	var (
		drive      DriveType
		bus        BusType
		confidence float64
	)

	switch {
	case writeMBps < hddWriteCeiling:
		// Slow writes mean spinning media even when cached reads look fast.
		drive, bus, confidence = DriveHDD, BusSATA, 0.8
	case writeMBps > nvmeWriteFloor && readMBps > nvmeReadFloor:
		drive, bus, confidence = DriveNVMe, BusNVMe, 0.8
	case readMBps < hddWriteCeiling:
		drive, bus, confidence = DriveHDD, BusSATA, 0.7
	default:
		drive, bus, confidence = DriveSSD, BusSATA, 0.75
	}

	if removable {
		if drive.IsSolidState() {
			drive = DriveExternalSSD
		} else {
			drive = DriveExternalHDD
		}
		bus = BusUSB
	}

	return Info{
		DriveType:        drive,
		BusType:          bus,
		Confidence:       confidence,
		DetectionMethod:  "io_probe",
		DeviceID:         deviceID,
		PerformanceClass: performanceClass(drive),
	}
}
