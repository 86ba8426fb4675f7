//go:build linux

package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Filesystem magic numbers for network mounts (linux/magic.h).
const (
	nfsSuperMagic  = 0x6969
	smbSuperMagic  = 0x517B
	smb2SuperMagic = 0xFE534D42
	cifsSuperMagic = 0xFF534D42
)

// deviceIdentifier returns a stable cache key for the device backing path:
// the major:minor pair of the filesystem's block device.
func deviceIdentifier(path string) string {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return path
	}
	return fmt.Sprintf("%d:%d", unix.Major(uint64(st.Dev)), unix.Minor(uint64(st.Dev)))
}

// detectInventory is Tier 0 on Linux: a statfs check for network mounts
// followed by a sysfs walk for the backing block device. sysfs carries both
// the rotational flag (the kernel's seek-penalty answer) and the removable
// flag, and NVMe devices are identified by name, so most drives resolve
// here without any timed probe.
func detectInventory(path, deviceID string) platformResult {
	var sfs unix.Statfs_t
	if err := unix.Statfs(path, &sfs); err == nil {
		switch uint32(sfs.Type) {
		case nfsSuperMagic, smbSuperMagic, smb2SuperMagic, cifsSuperMagic:
			return platformResult{
				info: Info{
					DriveType:        DriveNetwork,
					BusType:          BusISCSI,
					Confidence:       0.9,
					DetectionMethod:  "statfs_network",
					DeviceID:         deviceID,
					PerformanceClass: performanceClass(DriveNetwork),
				},
				conclusive: true,
			}
		}
	}

	block, err := sysfsBlockDevice(path)
	if err != nil {
		return platformResult{}
	}

	rotational, rotErr := sysfsFlag(block, "queue/rotational")
	removable, _ := sysfsFlag(block, "removable")
	name := filepath.Base(block)

	// Device-mapper, md and loop devices hide the real media; hand off to
	// the seek-penalty/probe tiers instead of guessing.
	if strings.HasPrefix(name, "dm-") || strings.HasPrefix(name, "md") || strings.HasPrefix(name, "loop") {
		return platformResult{}
	}
	if rotErr != nil {
		return platformResult{}
	}

	var drive DriveType
	bus := BusSATA
	switch {
	case rotational && removable:
		drive, bus = DriveExternalHDD, BusUSB
	case rotational:
		drive = DriveHDD
	case strings.HasPrefix(name, "nvme"):
		drive, bus = DriveNVMe, BusNVMe
	case removable:
		drive, bus = DriveExternalSSD, BusUSB
	default:
		drive = DriveSSD
	}

	return platformResult{
		info: Info{
			DriveType:        drive,
			BusType:          bus,
			Confidence:       0.9,
			DetectionMethod:  "sysfs_inventory",
			DeviceID:         deviceID,
			PerformanceClass: performanceClass(drive),
		},
		conclusive: true,
	}
}

// detectSeekPenalty is Tier 1. On Linux the rotational flag already answers
// the seek-penalty question and Tier 0 consumes it, so this tier never adds
// information here; it exists for the Windows ioctl path.
func detectSeekPenalty(path, deviceID string) platformResult {
	return platformResult{}
}

// externalHint reports whether the backing device looks removable; used by
// the probe tier to pick the external variant of a classification.
func externalHint(path string) bool {
	block, err := sysfsBlockDevice(path)
	if err != nil {
		return false
	}
	removable, _ := sysfsFlag(block, "removable")
	return removable
}

// sysfsBlockDevice resolves a path to the /sys/block entry of its parent
// (whole-disk) device, walking up from a partition node when needed.
func sysfsBlockDevice(path string) (string, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return "", err
	}
	major := unix.Major(uint64(st.Dev))
	minor := unix.Minor(uint64(st.Dev))

	link := fmt.Sprintf("/sys/dev/block/%d:%d", major, minor)
	target, err := os.Readlink(link)
	if err != nil {
		return "", err
	}

	// Partitions resolve to .../block/sda/sda1; the queue/ directory only
	// exists on the whole-disk node one level up.
	devPath := filepath.Join("/sys/dev/block", target)
	if _, err := os.Stat(filepath.Join(devPath, "partition")); err == nil {
		devPath = filepath.Dir(devPath)
	}
	if _, err := os.Stat(devPath); err != nil {
		return "", err
	}
	return devPath, nil
}

// sysfsFlag reads a 0/1 attribute file under the device's sysfs node.
func sysfsFlag(devPath, attr string) (bool, error) {
	raw, err := os.ReadFile(filepath.Join(devPath, attr))
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(string(raw)) == "1", nil
}
