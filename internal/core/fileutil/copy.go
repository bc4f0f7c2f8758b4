package fileutil

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/barysiuk/specify/internal/core/exterr"
)

// IgnoreFileName lists extra copy exclusions at the root of an extension.
const IgnoreFileName = ".extensionignore"

// builtinIgnores are never copied into a project.
var builtinIgnores = []string{".git/", ".DS_Store", "__pycache__/", "node_modules/", "*.pyc", IgnoreFileName}

// Ignore matches slash-separated relative paths against gitignore-style
// patterns: a pattern without a slash matches a base name at any depth, a
// trailing slash restricts it to directories, and ** spans directories.
type Ignore struct {
	patterns []ignorePattern
}

type ignorePattern struct {
	glob    string
	dirOnly bool
	anchor  bool // pattern contains a slash; match against the full path
}

// NewIgnore compiles patterns. Blank lines and # comments are skipped;
// malformed patterns are dropped.
func NewIgnore(patterns []string) *Ignore {
	ig := &Ignore{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		ip := ignorePattern{}
		if strings.HasSuffix(p, "/") {
			ip.dirOnly = true
			p = strings.TrimSuffix(p, "/")
		}
		if strings.Contains(p, "/") {
			ip.anchor = true
			p = strings.TrimPrefix(p, "/")
		}
		if !doublestar.ValidatePattern(p) {
			continue
		}
		ip.glob = p
		ig.patterns = append(ig.patterns, ip)
	}
	return ig
}

// LoadIgnore returns the built-in exclusions plus those listed in the
// source tree's .extensionignore, if present.
func LoadIgnore(srcDir string) (*Ignore, error) {
	patterns := append([]string{}, builtinIgnores...)

	f, err := os.Open(filepath.Join(srcDir, IgnoreFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return NewIgnore(patterns), nil
		}
		return nil, exterr.NewFS(filepath.Join(srcDir, IgnoreFileName), err)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		patterns = append(patterns, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, exterr.NewFS(filepath.Join(srcDir, IgnoreFileName), err)
	}
	return NewIgnore(patterns), nil
}

// Match reports whether rel (slash-separated, relative to the tree root)
// is excluded.
func (ig *Ignore) Match(rel string, isDir bool) bool {
	if ig == nil {
		return false
	}
	base := rel
	if i := strings.LastIndex(rel, "/"); i >= 0 {
		base = rel[i+1:]
	}
	for _, p := range ig.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		target := base
		if p.anchor {
			target = rel
		}
		if ok, _ := doublestar.Match(p.glob, target); ok {
			return true
		}
	}
	return false
}

// CopyTree copies src into dst, skipping entries matched by ignore.
// Excluded directories are not descended into.
func CopyTree(src, dst string, ignore *Ignore) error {
	err := filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return EnsureDir(dst)
		}

		if ignore.Match(filepath.ToSlash(rel), d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return EnsureDir(target)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return CopyFile(path, target)
	})
	if err != nil {
		if _, ok := exterr.As(err); ok {
			return err
		}
		return exterr.NewFS(src, err)
	}
	return nil
}
