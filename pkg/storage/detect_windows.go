//go:build windows

package storage

import (
	"fmt"
	"path/filepath"
	"unsafe"

	"github.com/StackExchange/wmi"
	"golang.org/x/sys/windows"
)

const (
	ioctlStorageQueryProperty   = 0x002D1400
	ioctlStorageGetDeviceNumber = 0x002D1080

	storageDeviceSeekPenaltyProperty = 7
	storageAdapterProperty           = 1
	propertyStandardQuery            = 0
)

// STORAGE_PROPERTY_QUERY
type storagePropertyQuery struct {
	PropertyID           uint32
	QueryType            uint32
	AdditionalParameters uint32
}

// DEVICE_SEEK_PENALTY_DESCRIPTOR
type seekPenaltyDescriptor struct {
	Version           uint32
	Size              uint32
	IncursSeekPenalty byte
	_                 [3]byte
}

// STORAGE_ADAPTER_DESCRIPTOR (prefix; trailing fields unused)
type storageAdapterDescriptor struct {
	Version               uint32
	Size                  uint32
	MaximumTransferLength uint32
	MaximumPhysicalPages  uint32
	AlignmentMask         uint32
	AdapterUsesPio        byte
	AdapterScansDown      byte
	CommandQueueing       byte
	AcceleratedTransfer   byte
	BusType               byte
	BusMajorVersion       uint16
	BusMinorVersion       uint16
	_                     [5]byte
}

// STORAGE_DEVICE_NUMBER
type storageDeviceNumber struct {
	DeviceType      uint32
	DeviceNumber    uint32
	PartitionNumber uint32
}

// MSFT_PhysicalDisk row from root\Microsoft\Windows\Storage.
// MediaType: 3=HDD, 4=SSD, 5=SCM.
type msftPhysicalDisk struct {
	DeviceId  string
	MediaType uint16
	BusType   uint16
}

// deviceIdentifier returns the volume root ("C:") as the cache key.
func deviceIdentifier(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	if vol := filepath.VolumeName(abs); vol != "" {
		return vol
	}
	return abs
}

// detectInventory is Tier 0 on Windows: resolve the volume to its physical
// disk number, then ask WMI (MSFT_PhysicalDisk) for media and bus type.
// Near-instant and resolves most drives, external ones included; RAID and
// virtual bus types are handed to the seek-penalty tier.
func detectInventory(path, deviceID string) platformResult {
	vol := deviceIdentifier(path)
	removable := isRemovableVolume(vol)

	if isRemoteVolume(vol) {
		return platformResult{
			info: Info{
				DriveType:        DriveNetwork,
				BusType:          BusISCSI,
				Confidence:       0.9,
				DetectionMethod:  "drive_type_remote",
				DeviceID:         deviceID,
				PerformanceClass: performanceClass(DriveNetwork),
			},
			conclusive: true,
		}
	}

	diskNumber, err := volumeDiskNumber(vol)
	if err != nil {
		return platformResult{}
	}

	var disks []msftPhysicalDisk
	q := fmt.Sprintf("SELECT DeviceId, MediaType, BusType FROM MSFT_PhysicalDisk WHERE DeviceId = '%d'", diskNumber)
	if err := wmi.QueryNamespace(q, &disks, `root\Microsoft\Windows\Storage`); err != nil || len(disks) == 0 {
		return platformResult{}
	}

	bus := BusType(disks[0].BusType)
	var solidState bool
	switch disks[0].MediaType {
	case 4, 5: // SSD, SCM
		solidState = true
	case 3: // HDD
		solidState = false
	default:
		return platformResult{}
	}

	if solidState && bus.Ambiguous() {
		// SSD behind a RAID/virtual controller: the media type is trusted
		// but NVMe vs SATA needs another tier.
		return platformResult{info: Info{
			DriveType:        DriveSSD,
			BusType:          bus,
			Confidence:       0.5,
			DetectionMethod:  "wmi_ambiguous_bus",
			DeviceID:         deviceID,
			PerformanceClass: performanceClass(DriveSSD),
		}}
	}

	drive := classifyFromBus(solidState, bus, removable)
	return platformResult{
		info: Info{
			DriveType:        drive,
			BusType:          bus,
			Confidence:       0.9,
			DetectionMethod:  "wmi_inventory",
			DeviceID:         deviceID,
			PerformanceClass: performanceClass(drive),
		},
		conclusive: true,
	}
}

// detectSeekPenalty is Tier 1: IOCTL_STORAGE_QUERY_PROPERTY with
// StorageDeviceSeekPenaltyProperty. A seek penalty means spinning media
// with high confidence; its absence means solid state, refined by the
// adapter bus type when that is unambiguous.
func detectSeekPenalty(path, deviceID string) platformResult {
	vol := deviceIdentifier(path)
	handle, err := openVolume(vol)
	if err != nil {
		return platformResult{}
	}
	defer windows.CloseHandle(handle)

	query := storagePropertyQuery{
		PropertyID: storageDeviceSeekPenaltyProperty,
		QueryType:  propertyStandardQuery,
	}
	var seek seekPenaltyDescriptor
	var returned uint32
	err = windows.DeviceIoControl(handle, ioctlStorageQueryProperty,
		(*byte)(unsafe.Pointer(&query)), uint32(unsafe.Sizeof(query)),
		(*byte)(unsafe.Pointer(&seek)), uint32(unsafe.Sizeof(seek)),
		&returned, nil)
	if err != nil {
		return platformResult{}
	}

	removable := isRemovableVolume(vol)

	if seek.IncursSeekPenalty != 0 {
		drive := DriveHDD
		bus := BusSATA
		if removable {
			drive, bus = DriveExternalHDD, BusUSB
		}
		return platformResult{
			info: Info{
				DriveType:        drive,
				BusType:          bus,
				Confidence:       0.9,
				DetectionMethod:  "seek_penalty",
				DeviceID:         deviceID,
				PerformanceClass: performanceClass(drive),
			},
			conclusive: true,
		}
	}

	// Solid state; ask the adapter for the bus to split NVMe from SATA.
	query = storagePropertyQuery{
		PropertyID: storageAdapterProperty,
		QueryType:  propertyStandardQuery,
	}
	var adapter storageAdapterDescriptor
	bus := BusUnknown
	if err := windows.DeviceIoControl(handle, ioctlStorageQueryProperty,
		(*byte)(unsafe.Pointer(&query)), uint32(unsafe.Sizeof(query)),
		(*byte)(unsafe.Pointer(&adapter)), uint32(unsafe.Sizeof(adapter)),
		&returned, nil); err == nil {
		bus = BusType(adapter.BusType)
	}

	if bus.Ambiguous() && !removable {
		// SSD-class confirmed but NVMe vs SATA unresolved: let the timed
		// probe decide.
		return platformResult{info: Info{
			DriveType:        DriveSSD,
			BusType:          bus,
			Confidence:       0.6,
			DetectionMethod:  "seek_penalty_ambiguous_bus",
			DeviceID:         deviceID,
			PerformanceClass: performanceClass(DriveSSD),
		}}
	}

	drive := classifyFromBus(true, bus, removable)
	return platformResult{
		info: Info{
			DriveType:        drive,
			BusType:          bus,
			Confidence:       0.9,
			DetectionMethod:  "seek_penalty",
			DeviceID:         deviceID,
			PerformanceClass: performanceClass(drive),
		},
		conclusive: true,
	}
}

// externalHint feeds the probe tier's external/internal split.
func externalHint(path string) bool {
	return isRemovableVolume(deviceIdentifier(path))
}

// classifyFromBus maps a media class plus bus type to a drive type.
func classifyFromBus(solidState bool, bus BusType, removable bool) DriveType {
	if !solidState {
		if removable || bus == BusUSB {
			return DriveExternalHDD
		}
		return DriveHDD
	}
	if removable || bus == BusUSB {
		return DriveExternalSSD
	}
	if bus == BusNVMe {
		return DriveNVMe
	}
	return DriveSSD
}

// volumeDiskNumber resolves a volume root ("C:") to its physical disk
// number via IOCTL_STORAGE_GET_DEVICE_NUMBER.
func volumeDiskNumber(vol string) (uint32, error) {
	handle, err := openVolume(vol)
	if err != nil {
		return 0, err
	}
	defer windows.CloseHandle(handle)

	var num storageDeviceNumber
	var returned uint32
	err = windows.DeviceIoControl(handle, ioctlStorageGetDeviceNumber,
		nil, 0,
		(*byte)(unsafe.Pointer(&num)), uint32(unsafe.Sizeof(num)),
		&returned, nil)
	if err != nil {
		return 0, fmt.Errorf("get device number for %s: %w", vol, err)
	}
	return num.DeviceNumber, nil
}

// openVolume opens \\.\C: with no access rights, which is enough for
// property queries and needs no elevation.
func openVolume(vol string) (windows.Handle, error) {
	devicePath, err := windows.UTF16PtrFromString(`\\.\` + vol)
	if err != nil {
		return windows.InvalidHandle, err
	}
	return windows.CreateFile(devicePath, 0,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE, nil,
		windows.OPEN_EXISTING, windows.FILE_ATTRIBUTE_NORMAL, 0)
}

func isRemovableVolume(vol string) bool {
	return driveTypeOf(vol) == windows.DRIVE_REMOVABLE
}

func isRemoteVolume(vol string) bool {
	return driveTypeOf(vol) == windows.DRIVE_REMOTE
}

func driveTypeOf(vol string) uint32 {
	root, err := windows.UTF16PtrFromString(vol + `\`)
	if err != nil {
		return windows.DRIVE_UNKNOWN
	}
	return windows.GetDriveType(root)
}
