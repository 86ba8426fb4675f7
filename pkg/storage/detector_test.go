package storage

import (
	"path/filepath"
	"testing"
)

func TestClassifySpeeds(t *testing.T) {
	tests := []struct {
		name      string
		writeMBps float64
		readMBps  float64
		removable bool
		wantDrive DriveType
		wantBus   BusType
	}{
		{"SlowWriteIsHDD", 30, 500, false, DriveHDD, BusSATA},
		{"FastBothIsNVMe", 1500, 2500, false, DriveNVMe, BusNVMe},
		{"FastWriteSlowReadIsHDD", 120, 40, false, DriveHDD, BusSATA},
		{"MiddleGroundIsSSD", 80, 150, false, DriveSSD, BusSATA},
		{"RemovableSolidState", 1500, 2500, true, DriveExternalSSD, BusUSB},
		{"RemovableSpinning", 30, 40, true, DriveExternalHDD, BusUSB},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			info := classifySpeeds(tc.writeMBps, tc.readMBps, "dev0", tc.removable)
			if info.DriveType != tc.wantDrive {
				t.Errorf("DriveType = %s, want %s", info.DriveType, tc.wantDrive)
			}
			if info.BusType != tc.wantBus {
				t.Errorf("BusType = %s, want %s", info.BusType, tc.wantBus)
			}
			if info.DetectionMethod != "io_probe" {
				t.Errorf("DetectionMethod = %s, want io_probe", info.DetectionMethod)
			}
			if info.Confidence <= 0 || info.Confidence > 1 {
				t.Errorf("Confidence = %f, want (0, 1]", info.Confidence)
			}
		})
	}
}

func TestConservativeFallback(t *testing.T) {
	info := conservativeFallback("dev0", "all_tiers_failed")
	if info.DriveType != DriveExternalHDD {
		t.Errorf("DriveType = %s, want external_hdd", info.DriveType)
	}
	if info.Confidence != 0 {
		t.Errorf("Confidence = %f, want 0", info.Confidence)
	}
	if info.PerformanceClass != 1 {
		t.Errorf("PerformanceClass = %d, want 1", info.PerformanceClass)
	}
	if info.DetectionMethod != "conservative_fallback_all_tiers_failed" {
		t.Errorf("DetectionMethod = %s", info.DetectionMethod)
	}
}

func TestPerformanceClass(t *testing.T) {
	tests := []struct {
		drive DriveType
		want  int
	}{
		{DriveNVMe, 5},
		{DriveSSD, 4},
		{DriveExternalSSD, 3},
		{DriveHDD, 2},
		{DriveExternalHDD, 1},
		{DriveNetwork, 1},
		{DriveUnknown, 1},
	}
	for _, tc := range tests {
		if got := performanceClass(tc.drive); got != tc.want {
			t.Errorf("performanceClass(%s) = %d, want %d", tc.drive, got, tc.want)
		}
	}
}

func TestDetectorAnalyze(t *testing.T) {
	t.Run("MissingPathIsConservative", func(t *testing.T) {
		d := NewDetector(nil)
		info := d.Analyze(filepath.Join(t.TempDir(), "does-not-exist"))
		if info.DriveType != DriveExternalHDD {
			t.Errorf("DriveType = %s, want external_hdd", info.DriveType)
		}
		if info.Confidence != 0 {
			t.Errorf("Confidence = %f, want 0", info.Confidence)
		}
	})

	t.Run("ResultsAreCached", func(t *testing.T) {
		d := NewDetector(nil)
		dir := t.TempDir()

		first := d.Analyze(dir)
		if d.CacheSize() != 1 {
			t.Fatalf("CacheSize() = %d, want 1 after first analyze", d.CacheSize())
		}
		second := d.Analyze(dir)
		if d.CacheSize() != 1 {
			t.Errorf("CacheSize() = %d, want 1 after repeat analyze", d.CacheSize())
		}
		if first != second {
			t.Errorf("cached result differs: %+v vs %+v", first, second)
		}
	})

	t.Run("PrimeSeedsCache", func(t *testing.T) {
		d := NewDetector(nil)
		d.Prime(Info{DriveType: DriveNVMe, DeviceID: "nvme0", Confidence: 1})
		if d.CacheSize() != 1 {
			t.Errorf("CacheSize() = %d, want 1 after Prime", d.CacheSize())
		}
	})

	t.Run("AlwaysFullyPopulated", func(t *testing.T) {
		d := NewDetector(nil)
		info := d.Analyze(t.TempDir())
		if info.DriveType == "" {
			t.Error("DriveType is empty")
		}
		if info.DetectionMethod == "" {
			t.Error("DetectionMethod is empty")
		}
		if info.PerformanceClass < 1 || info.PerformanceClass > 5 {
			t.Errorf("PerformanceClass = %d, want 1-5", info.PerformanceClass)
		}
	})
}

func TestDriveTypePredicates(t *testing.T) {
	for _, tc := range []struct {
		drive      DriveType
		rotational bool
		solid      bool
		external   bool
	}{
		{DriveHDD, true, false, false},
		{DriveSSD, false, true, false},
		{DriveNVMe, false, true, false},
		{DriveExternalHDD, true, false, true},
		{DriveExternalSSD, false, true, true},
		{DriveNetwork, false, false, false},
		{DriveUnknown, false, false, false},
	} {
		if got := tc.drive.IsRotational(); got != tc.rotational {
			t.Errorf("%s.IsRotational() = %t", tc.drive, got)
		}
		if got := tc.drive.IsSolidState(); got != tc.solid {
			t.Errorf("%s.IsSolidState() = %t", tc.drive, got)
		}
		if got := tc.drive.IsExternal(); got != tc.external {
			t.Errorf("%s.IsExternal() = %t", tc.drive, got)
		}
	}
}

func TestBusTypeAmbiguous(t *testing.T) {
	ambiguous := []BusType{BusUnknown, BusRAID, BusVirtual, BusSpaces, BusSCSI}
	for _, b := range ambiguous {
		if !b.Ambiguous() {
			t.Errorf("%s.Ambiguous() = false, want true", b)
		}
	}
	clear := []BusType{BusSATA, BusNVMe, BusUSB, BusSAS}
	for _, b := range clear {
		if b.Ambiguous() {
			t.Errorf("%s.Ambiguous() = true, want false", b)
		}
	}
}
