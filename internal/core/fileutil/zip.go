package fileutil

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/barysiuk/specify/internal/core/exterr"
)

// ExtractZip unpacks the archive at src into dst. Entries that would land
// outside dst, through absolute paths or "..", fail the whole extraction.
// Symlinks are skipped.
func ExtractZip(src, dst string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return exterr.NewFS(src, fmt.Errorf("opening archive: %w", err))
	}
	defer func() { _ = r.Close() }()

	root, err := filepath.Abs(dst)
	if err != nil {
		return exterr.NewFS(dst, err)
	}
	if err := EnsureDir(root); err != nil {
		return err
	}

	for _, f := range r.File {
		target, err := SafeJoin(root, f.Name)
		if err != nil {
			return exterr.NewFS(src, fmt.Errorf("archive entry: %w", err))
		}
		mode := f.Mode()
		switch {
		case mode.IsDir():
			if err := EnsureDir(target); err != nil {
				return err
			}
		case mode&os.ModeSymlink != 0:
			continue
		default:
			if err := extractFile(f, target); err != nil {
				return err
			}
		}
	}
	return nil
}

// SafeJoin joins the slash-separated relative path name onto root. Absolute
// names and names that climb out of root through ".." are rejected.
func SafeJoin(root, name string) (string, error) {
	clean := filepath.FromSlash(name)
	if filepath.IsAbs(clean) || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%q is an absolute path", name)
	}
	target := filepath.Join(root, clean)
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%q escapes %s", name, root)
	}
	return target, nil
}

func extractFile(f *zip.File, target string) error {
	if err := EnsureDir(filepath.Dir(target)); err != nil {
		return err
	}
	in, err := f.Open()
	if err != nil {
		return exterr.NewFS(f.Name, err)
	}
	defer func() { _ = in.Close() }()

	perm := f.Mode().Perm()
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return exterr.NewFS(target, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return exterr.NewFS(target, err)
	}
	if err := out.Close(); err != nil {
		return exterr.NewFS(target, err)
	}
	return nil
}
