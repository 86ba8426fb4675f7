package copier

import (
	"testing"

	"github.com/dfirlabs/evicopy/pkg/storage"
)

func TestSelect(t *testing.T) {
	nvme := storage.Info{DriveType: storage.DriveNVMe, DeviceID: "nvme0"}
	ssd := storage.Info{DriveType: storage.DriveSSD, DeviceID: "sda"}
	hdd := storage.Info{DriveType: storage.DriveHDD, DeviceID: "sdb"}
	extSSD := storage.Info{DriveType: storage.DriveExternalSSD, DeviceID: "sdc"}
	extHDD := storage.Info{DriveType: storage.DriveExternalHDD, DeviceID: "sdd"}
	network := storage.Info{DriveType: storage.DriveNetwork, DeviceID: "net0"}

	tests := []struct {
		name      string
		source    storage.Info
		dest      storage.Info
		fileCount int
		want      string
	}{
		{"RotationalDestination", nvme, hdd, 100, "sequential"},
		{"ExternalHDDDestination", nvme, extHDD, 100, "sequential"},
		{"SingleFile", nvme, nvme, 1, "sequential"},
		{"ZeroFiles", nvme, nvme, 0, "sequential"},
		{"RotationalSource", hdd, nvme, 100, "parallel"},
		{"RotationalSourceExternalSSD", hdd, extSSD, 100, "parallel"},
		{"NetworkSource", network, ssd, 100, "sequential"},
		{"NetworkDestination", ssd, network, 100, "sequential"},
		{"SameDeviceSolidState", nvme, nvme, 100, "parallel"},
		{"DifferentInternalDevices", nvme, ssd, 100, "parallel"},
		{"ExternalSSDDestination", nvme, extSSD, 100, "cross_device"},
		{"ExternalSSDSource", extSSD, nvme, 100, "cross_device"},
		{"UnknownDestination", nvme, storage.Info{DriveType: storage.DriveUnknown}, 100, "sequential"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			strategy, reason := Select(tc.source, tc.dest, tc.fileCount)
			if strategy.Name() != tc.want {
				t.Errorf("Select() = %s (%s), want %s", strategy.Name(), reason, tc.want)
			}
			if reason == "" {
				t.Error("Select() returned empty reason")
			}
		})
	}
}

func TestStrategyWorkers(t *testing.T) {
	if got := (&Sequential{}).Workers(8); got != 1 {
		t.Errorf("Sequential.Workers(8) = %d, want 1", got)
	}
	if got := (&Parallel{}).Workers(8); got != 8 {
		t.Errorf("Parallel.Workers(8) = %d, want 8", got)
	}
	if got := (&Parallel{}).Workers(0); got != 1 {
		t.Errorf("Parallel.Workers(0) = %d, want 1", got)
	}
	if got := (&CrossDevice{}).Workers(8); got != 1 {
		t.Errorf("CrossDevice.Workers(8) = %d, want 1", got)
	}
}

// The selected strategy and the thread policy must tell the same story
// for every storage pairing: a sequential pick only where the policy
// plans a single thread, and a parallel pick only where it plans a pool.
func TestSelectAgreesWithThreadPolicy(t *testing.T) {
	infos := []storage.Info{
		{DriveType: storage.DriveNVMe, DeviceID: "nvme0"},
		{DriveType: storage.DriveSSD, DeviceID: "sda"},
		{DriveType: storage.DriveHDD, DeviceID: "sdb"},
		{DriveType: storage.DriveExternalSSD, DeviceID: "sdc"},
		{DriveType: storage.DriveExternalHDD, DeviceID: "sdd"},
		{DriveType: storage.DriveNetwork, DeviceID: "net0"},
		{DriveType: storage.DriveUnknown},
	}

	for _, src := range infos {
		for _, dst := range infos {
			strategy, reason := Select(src, dst, 100)
			planned := storage.OptimalCopyThreads(src, dst, 100, 24)
			workers := strategy.Workers(planned)

			switch strategy.Name() {
			case "sequential":
				if planned != 1 {
					t.Errorf("%s->%s: sequential selected but policy plans %d threads (%s)",
						src.DriveType, dst.DriveType, planned, reason)
				}
				if workers != 1 {
					t.Errorf("%s->%s: sequential workers = %d, want 1", src.DriveType, dst.DriveType, workers)
				}
			case "parallel":
				if planned < 2 {
					t.Errorf("%s->%s: parallel selected but policy plans %d threads (%s)",
						src.DriveType, dst.DriveType, planned, reason)
				}
				if workers != planned {
					t.Errorf("%s->%s: parallel workers = %d, want %d", src.DriveType, dst.DriveType, workers, planned)
				}
			case "cross_device":
				if workers != 1 {
					t.Errorf("%s->%s: cross_device workers = %d, want 1", src.DriveType, dst.DriveType, workers)
				}
			}
		}
	}
}
