// Package fileutil provides filesystem probes and helpers used by the
// download cache: existence checks, directory sizing, and safe removal.
package fileutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// FileSize returns the size of the file at path, or 0 when it cannot be
// statted.
func FileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return 0
	}
	return info.Size()
}

// DirSize walks root and returns the total size of all regular files below
// it. A missing root yields zero without error.
func DirSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if entry.IsDir() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return nil
		}
		total += info.Size()
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	return total, err
}

// RemoveDir deletes dir and everything below it. Removing a directory that
// does not exist is not an error, which keeps cleanup sweeps idempotent.
func RemoveDir(dir string) error {
	if dir == "" {
		return errors.New("remove dir: empty path")
	}
	if err := os.RemoveAll(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// EnsureDir creates dir (and parents) when absent.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
