package storage

import (
	"fmt"
)

// DriveType classifies the physical device backing a path.
type DriveType string

const (
	// DriveUnknown means no detection method produced a classification
	DriveUnknown DriveType = "unknown"
	// DriveHDD is an internal spinning disk
	DriveHDD DriveType = "hdd"
	// DriveSSD is an internal SATA solid-state drive
	DriveSSD DriveType = "ssd"
	// DriveNVMe is an internal NVMe solid-state drive
	DriveNVMe DriveType = "nvme"
	// DriveExternalHDD is a removable/USB-attached spinning disk
	DriveExternalHDD DriveType = "external_hdd"
	// DriveExternalSSD is a removable/USB-attached solid-state drive
	DriveExternalSSD DriveType = "external_ssd"
	// DriveNetwork is a network filesystem (SMB, NFS, ...)
	DriveNetwork DriveType = "network"
)

// IsRotational reports whether the drive type has mechanical seek latency.
func (d DriveType) IsRotational() bool {
	return d == DriveHDD || d == DriveExternalHDD
}

// IsSolidState reports whether the drive type is flash-backed.
func (d DriveType) IsSolidState() bool {
	return d == DriveSSD || d == DriveNVMe || d == DriveExternalSSD
}

// IsExternal reports whether the drive is removable/USB-attached.
func (d DriveType) IsExternal() bool {
	return d == DriveExternalHDD || d == DriveExternalSSD
}

// BusType identifies the hardware interface a device is attached through.
// Values follow the Windows STORAGE_BUS_TYPE numbering so the detection
// code can map API results directly.
type BusType uint32

const (
	BusUnknown      BusType = 0
	BusSCSI         BusType = 1
	BusATAPI        BusType = 2
	BusATA          BusType = 3
	BusIEEE1394     BusType = 4
	BusSSA          BusType = 5
	BusFibreChannel BusType = 6
	BusUSB          BusType = 7
	BusRAID         BusType = 8
	BusISCSI        BusType = 9
	BusSAS          BusType = 10
	BusSATA         BusType = 11
	BusSD           BusType = 12
	BusMMC          BusType = 13
	BusVirtual      BusType = 14
	BusSpaces       BusType = 16
	BusNVMe         BusType = 17
	BusSCM          BusType = 18
)

// String returns the bus type name.
func (b BusType) String() string {
	switch b {
	case BusSCSI:
		return "SCSI"
	case BusATAPI:
		return "ATAPI"
	case BusATA:
		return "ATA"
	case BusIEEE1394:
		return "IEEE1394"
	case BusSSA:
		return "SSA"
	case BusFibreChannel:
		return "FibreChannel"
	case BusUSB:
		return "USB"
	case BusRAID:
		return "RAID"
	case BusISCSI:
		return "iSCSI"
	case BusSAS:
		return "SAS"
	case BusSATA:
		return "SATA"
	case BusSD:
		return "SD"
	case BusMMC:
		return "MMC"
	case BusVirtual:
		return "Virtual"
	case BusSpaces:
		return "StorageSpaces"
	case BusNVMe:
		return "NVMe"
	case BusSCM:
		return "SCM"
	default:
		return "Unknown"
	}
}

// Ambiguous reports whether the bus type alone cannot identify the media
// behind it (RAID controllers and virtual disks hide the real device).
func (b BusType) Ambiguous() bool {
	switch b {
	case BusUnknown, BusRAID, BusVirtual, BusSpaces, BusSCSI:
		return true
	}
	return false
}

// Info holds the detected storage characteristics for a path. It is always
// fully populated: when every detection tier fails the detector returns the
// conservative fallback (external HDD, confidence 0) rather than an error.
type Info struct {
	DriveType        DriveType `json:"drive_type"`
	BusType          BusType   `json:"bus_type"`
	Confidence       float64   `json:"confidence"` // 0.0-1.0
	DetectionMethod  string    `json:"detection_method"`
	DeviceID         string    `json:"device_id"`         // volume root, mount device, or drive letter
	PerformanceClass int       `json:"performance_class"` // 1 (slowest) to 5 (fastest)
}

// performanceClass maps a drive type to its expected throughput tier.
func performanceClass(d DriveType) int {
	switch d {
	case DriveNVMe:
		return 5
	case DriveSSD:
		return 4
	case DriveExternalSSD:
		return 3
	case DriveHDD:
		return 2
	default:
		// external HDD, network, unknown: assume worst case
		return 1
	}
}

func (i Info) String() string {
	return fmt.Sprintf("%s [%s] on %s via %s (confidence %.0f%%)",
		i.DriveType, i.BusType, i.DeviceID, i.DetectionMethod, i.Confidence*100)
}

// conservativeFallback is the Info returned when detection fails entirely.
// Never assume fast storage when uncertain: over-parallelizing a slow
// external disk degrades it far more than under-parallelizing a fast one.
func conservativeFallback(deviceID, reason string) Info {
	return Info{
		DriveType:        DriveExternalHDD,
		BusType:          BusUnknown,
		Confidence:       0,
		DetectionMethod:  "conservative_fallback_" + reason,
		DeviceID:         deviceID,
		PerformanceClass: 1,
	}
}
