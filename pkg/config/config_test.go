package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
	if cfg.Hashing.Algorithm != "sha256" {
		t.Errorf("Algorithm = %s, want sha256", cfg.Hashing.Algorithm)
	}
	if !cfg.Copy.PreserveStructure || !cfg.Copy.Verify {
		t.Error("copy defaults should preserve structure and verify")
	}
	if cfg.Performance.Threads != 0 || cfg.Performance.BufferSize != 0 {
		t.Error("performance defaults should be automatic (0)")
	}
	if cfg.Output.Format != "human" {
		t.Errorf("Output.Format = %s, want human", cfg.Output.Format)
	}
	if cfg.Logging.Enabled {
		t.Error("logging should be disabled by default")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantField string
	}{
		{"UnknownAlgorithm", func(c *Config) { c.Hashing.Algorithm = "crc32" }, "hashing.algorithm"},
		{"NegativeThreads", func(c *Config) { c.Performance.Threads = -1 }, "performance.threads"},
		{"TooManyThreads", func(c *Config) { c.Performance.Threads = 129 }, "performance.threads"},
		{"TinyBuffer", func(c *Config) { c.Performance.BufferSize = 1024 }, "performance.buffer_size"},
		{"NegativeBandwidth", func(c *Config) { c.Copy.BandwidthLimit = -1 }, "copy.bandwidth_limit"},
		{"UnknownOutputFormat", func(c *Config) { c.Output.Format = "xml" }, "output.format"},
		{"UnknownLogFormat", func(c *Config) { c.Logging.Format = "syslog" }, "logging.format"},
		{"UnknownLogLevel", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() should have failed")
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error is %T, want *ValidationError", err)
			}
			if verr.Field != tc.wantField {
				t.Errorf("Field = %s, want %s", verr.Field, tc.wantField)
			}
		})
	}

	t.Run("BoundaryValuesAccepted", func(t *testing.T) {
		cfg := Default()
		cfg.Performance.Threads = 128
		cfg.Performance.BufferSize = 4096
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Hashing.Algorithm = "sha1"
	cfg.Performance.Threads = 8
	cfg.Copy.BandwidthLimit = 50 * 1024 * 1024
	cfg.Logging.Enabled = true
	cfg.Logging.Format = "json"

	if err := SaveToFile(cfg, path); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if loaded.Hashing.Algorithm != "sha1" {
		t.Errorf("Algorithm = %s, want sha1", loaded.Hashing.Algorithm)
	}
	if loaded.Performance.Threads != 8 {
		t.Errorf("Threads = %d, want 8", loaded.Performance.Threads)
	}
	if loaded.Copy.BandwidthLimit != 50*1024*1024 {
		t.Errorf("BandwidthLimit = %d", loaded.Copy.BandwidthLimit)
	}
	if !loaded.Logging.Enabled || loaded.Logging.Format != "json" {
		t.Errorf("logging round trip mismatch: %+v", loaded.Logging)
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Run("PartialFileKeepsDefaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := "hashing:\n  algorithm: md5\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		cfg, err := LoadFromFile(path)
		if err != nil {
			t.Fatalf("LoadFromFile() error = %v", err)
		}
		if cfg.Hashing.Algorithm != "md5" {
			t.Errorf("Algorithm = %s, want md5", cfg.Hashing.Algorithm)
		}
		if !cfg.Copy.Verify {
			t.Error("unset fields should keep their defaults")
		}
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
		if err == nil {
			t.Error("LoadFromFile() should fail on a missing file")
		}
	})

	t.Run("MalformedYAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("hashing: [unclosed"), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := LoadFromFile(path)
		if err == nil || !strings.Contains(err.Error(), "parse") {
			t.Errorf("LoadFromFile() error = %v, want parse failure", err)
		}
	})

	t.Run("InvalidValuesRejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("performance:\n  threads: 999\n"), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := LoadFromFile(path)
		if err == nil {
			t.Error("LoadFromFile() should reject out-of-range values")
		}
	})
}

func TestSaveToFileRejectsInvalid(t *testing.T) {
	cfg := Default()
	cfg.Output.Format = "nope"
	err := SaveToFile(cfg, filepath.Join(t.TempDir(), "config.yaml"))
	if err == nil {
		t.Error("SaveToFile() should refuse to write an invalid config")
	}
}
