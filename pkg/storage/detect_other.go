//go:build !linux && !windows

package storage

import (
	"path/filepath"
)

// Platforms without an inventory or seek-penalty API fall straight through
// to the timed I/O probe.

func deviceIdentifier(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	if vol := filepath.VolumeName(abs); vol != "" {
		return vol
	}
	return string(filepath.Separator)
}

func detectInventory(path, deviceID string) platformResult {
	return platformResult{}
}

func detectSeekPenalty(path, deviceID string) platformResult {
	return platformResult{}
}

func externalHint(path string) bool {
	return false
}
