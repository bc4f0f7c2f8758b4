// Package fileutil holds the filesystem primitives the extension manager
// calls through: text read/write, directory creation and tree copy. Every
// failure is returned as an exterr FS error naming the path.
package fileutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/barysiuk/specify/internal/core/exterr"
)

// ReadText reads a whole file. A missing file yields an error for which
// IsNotFound reports true.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", exterr.NewFS(path, err)
	}
	return string(data), nil
}

// IsNotFound reports whether err wraps fs.ErrNotExist.
func IsNotFound(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// WriteAtomic writes data to a temp file next to path and renames it into
// place, so readers never observe a partial file.
func WriteAtomic(path string, data []byte, perm fs.FileMode) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		return exterr.NewFS(tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return exterr.NewFS(path, err)
	}
	return nil
}

// EnsureDir creates dir and its parents.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return exterr.NewFS(dir, err)
	}
	return nil
}

// DirExists reports whether path is an existing directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// PathExists reports whether anything exists at path (symlinks included).
func PathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// CopyFile copies src to dst preserving the file mode.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return exterr.NewFS(src, err)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return exterr.NewFS(src, err)
	}
	if err := EnsureDir(filepath.Dir(dst)); err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, info.Mode().Perm()); err != nil {
		return exterr.NewFS(dst, err)
	}
	return nil
}

// RemoveEmptyDir removes dir if it has no entries. Errors are ignored.
func RemoveEmptyDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	if len(entries) == 0 {
		_ = os.Remove(dir)
	}
}
