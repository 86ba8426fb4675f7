package copier

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dfirlabs/evicopy/pkg/hashing"
	"github.com/dfirlabs/evicopy/pkg/logging"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestEngineCopy(t *testing.T) {
	t.Run("TreeWithVerification", func(t *testing.T) {
		src := t.TempDir()
		dst := t.TempDir()
		writeFile(t, src, "a.txt", "alpha")
		writeFile(t, src, "sub/b.txt", "beta")
		writeFile(t, src, "sub/deep/c.bin", "gamma")

		engine := NewEngine(Options{
			Verify:            true,
			PreserveStructure: true,
			Threads:           2,
		})
		result, err := engine.Copy(context.Background(), []string{src}, dst, nil)
		if err != nil {
			t.Fatalf("Copy() error = %v", err)
		}
		if !result.Success {
			t.Errorf("Success = false, errors = %v", result.FileErrors)
		}
		if result.FilesCopied != 3 {
			t.Errorf("FilesCopied = %d, want 3", result.FilesCopied)
		}
		if got := readFile(t, filepath.Join(dst, "sub", "deep", "c.bin")); got != "gamma" {
			t.Errorf("copied content = %q, want gamma", got)
		}
		for _, rec := range result.Files {
			if !rec.Verified {
				t.Errorf("file %s not verified", rec.RelativePath)
			}
			if rec.SourceDigest != rec.DestDigest {
				t.Errorf("file %s digest mismatch", rec.RelativePath)
			}
		}
		if result.StrategyName == "" || result.SelectionReason == "" {
			t.Error("result missing strategy name or selection reason")
		}
		if result.StrategyName == "sequential" && result.ThreadCount != 1 {
			t.Errorf("sequential strategy recorded ThreadCount = %d, want 1", result.ThreadCount)
		}
	})

	t.Run("FlattenCollision", func(t *testing.T) {
		src := t.TempDir()
		dst := t.TempDir()
		writeFile(t, src, "one/report.txt", "first")
		writeFile(t, src, "two/report.txt", "second")

		engine := NewEngine(Options{PreserveStructure: false, Threads: 1})
		result, err := engine.Copy(context.Background(), []string{src}, dst, nil)
		if err != nil {
			t.Fatalf("Copy() error = %v", err)
		}
		if result.FilesCopied != 1 {
			t.Errorf("FilesCopied = %d, want 1", result.FilesCopied)
		}
		if len(result.FileErrors) != 1 {
			t.Errorf("FileErrors = %v, want one collision", result.FileErrors)
		}
		if result.Success {
			t.Error("Success = true despite collision")
		}
	})

	t.Run("DestinationUnavailable", func(t *testing.T) {
		src := t.TempDir()
		writeFile(t, src, "a.txt", "data")

		// A regular file where the destination directory should be.
		blocked := writeFile(t, t.TempDir(), "not-a-dir", "x")

		engine := NewEngine(Options{Threads: 1})
		_, err := engine.Copy(context.Background(), []string{src}, blocked, nil)
		if !errors.Is(err, ErrDestinationUnavailable) {
			t.Errorf("Copy() error = %v, want ErrDestinationUnavailable", err)
		}
	})

	t.Run("Cancellation", func(t *testing.T) {
		src := t.TempDir()
		writeFile(t, src, "a.txt", "data")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		engine := NewEngine(Options{Threads: 1})
		_, err := engine.Copy(ctx, []string{src}, t.TempDir(), nil)
		if err == nil {
			t.Error("Copy() should fail on cancelled context")
		}
	})

	t.Run("ProgressReachesCompletion", func(t *testing.T) {
		src := t.TempDir()
		dst := t.TempDir()
		writeFile(t, src, "a.txt", "some content to copy")
		writeFile(t, src, "b.txt", "more content to copy")

		engine := NewEngine(Options{Threads: 1, PreserveStructure: true})
		var last hashing.Progress
		_, err := engine.Copy(context.Background(), []string{src}, dst, func(p hashing.Progress) {
			last = p
		})
		if err != nil {
			t.Fatalf("Copy() error = %v", err)
		}
		if last.Percent != 100 {
			t.Errorf("final Percent = %f, want 100", last.Percent)
		}
	})
}

// newTestExecution builds an execution against real temp directories so
// individual strategies can be driven directly.
func newTestExecution(t *testing.T, src, dst string, verify bool, threads int) *execution {
	t.Helper()
	entries, err := hashing.Discover([]string{src})
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	return &execution{
		entries:   entries,
		destDir:   dst,
		algorithm: hashing.SHA256,
		verify:    verify,
		threads:   threads,
		bufferFor: func(int64) int { return 64 * 1024 },
		logger:    logging.NewNullLogger(),
		result: &Result{
			Algorithm:  hashing.SHA256,
			FileErrors: make(map[string]string),
		},
	}
}

func TestStrategies(t *testing.T) {
	strategies := []Strategy{&Sequential{}, &Parallel{}, &CrossDevice{}}

	for _, strategy := range strategies {
		t.Run(strategy.Name(), func(t *testing.T) {
			src := t.TempDir()
			dst := t.TempDir()
			writeFile(t, src, "a.txt", "alpha")
			writeFile(t, src, "nested/b.txt", "beta")

			ex := newTestExecution(t, src, dst, true, 2)
			if err := strategy.Run(context.Background(), ex); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if ex.result.FilesCopied != 2 {
				t.Errorf("FilesCopied = %d, want 2", ex.result.FilesCopied)
			}
			if len(ex.result.FileErrors) != 0 {
				t.Errorf("FileErrors = %v, want none", ex.result.FileErrors)
			}
			if got := readFile(t, filepath.Join(dst, "nested", "b.txt")); got != "beta" {
				t.Errorf("copied content = %q, want beta", got)
			}
			for _, rec := range ex.result.Files {
				if !rec.Verified {
					t.Errorf("file %s not verified", rec.RelativePath)
				}
			}
		})
	}
}

func TestStrategyRecordsPerFileErrors(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, src, "good.txt", "fine")

	ex := newTestExecution(t, src, dst, false, 1)
	ex.entries = append(ex.entries, hashing.FileEntry{
		Path:         filepath.Join(src, "vanished.txt"),
		RelativePath: "vanished.txt",
		Size:         10,
	})

	if err := (&Sequential{}).Run(context.Background(), ex); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if ex.result.FilesCopied != 1 {
		t.Errorf("FilesCopied = %d, want 1", ex.result.FilesCopied)
	}
	if _, ok := ex.result.FileErrors["vanished.txt"]; !ok {
		t.Errorf("missing per-file error, got %v", ex.result.FileErrors)
	}
}

// Losing the destination device mid-batch must fail the whole job, not
// degrade into one recorded error per remaining file.
func TestStrategiesAbortWhenDestinationVanishes(t *testing.T) {
	strategies := []Strategy{&Sequential{}, &Parallel{}, &CrossDevice{}}

	for _, strategy := range strategies {
		t.Run(strategy.Name(), func(t *testing.T) {
			src := t.TempDir()
			dst := filepath.Join(t.TempDir(), "dest")
			if err := os.MkdirAll(dst, 0755); err != nil {
				t.Fatalf("mkdir: %v", err)
			}
			writeFile(t, src, "a.txt", "first")
			writeFile(t, src, "b.txt", "second")

			ex := newTestExecution(t, src, dst, false, 1)
			var sabotaged bool
			ex.onBytes = func(int64, string) {
				if sabotaged {
					return
				}
				sabotaged = true
				// Replace the destination root with a plain file, the way
				// a yanked device leaves a dead mount point behind.
				os.RemoveAll(dst)
				os.WriteFile(dst, []byte("x"), 0644)
			}

			err := strategy.Run(context.Background(), ex)
			if !errors.Is(err, ErrDestinationUnavailable) {
				t.Fatalf("Run() error = %v, want ErrDestinationUnavailable", err)
			}
			if ex.result.FilesCopied > 1 {
				t.Errorf("FilesCopied = %d, batch should have aborted", ex.result.FilesCopied)
			}
		})
	}
}
