package hashing

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileEntry is one regular file selected for hashing or copying
type FileEntry struct {
	// Path is the absolute path on disk
	Path string
	// RelativePath is the path relative to the argument that produced
	// the entry: relative to the directory for directory arguments, the
	// base name for file arguments.
	RelativePath string
	// Size is the file size in bytes
	Size int64
}

// Discover expands a mix of file and directory arguments into the flat
// list of regular files beneath them. Symlinks are not followed.
func Discover(paths []string) ([]FileEntry, error) {
	var entries []FileEntry

	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", path, err)
		}

		info, err := os.Lstat(abs)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}

		if !info.IsDir() {
			if !info.Mode().IsRegular() {
				continue
			}
			entries = append(entries, FileEntry{
				Path:         abs,
				RelativePath: filepath.Base(abs),
				Size:         info.Size(),
			})
			continue
		}

		err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if !d.Type().IsRegular() {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(abs, p)
			if err != nil {
				return err
			}
			entries = append(entries, FileEntry{
				Path:         p,
				RelativePath: rel,
				Size:         fi.Size(),
			})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", path, err)
		}
	}

	return entries, nil
}

// TotalSize sums the sizes of the entries
func TotalSize(entries []FileEntry) int64 {
	var total int64
	for _, e := range entries {
		total += e.Size
	}
	return total
}
