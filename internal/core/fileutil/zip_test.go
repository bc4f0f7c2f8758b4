package fileutil

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/barysiuk/specify/internal/core/exterr"
)

func writeZip(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractZip(t *testing.T) {
	src := writeZip(t, map[string]string{
		"ext/extension.yml":     "id: x",
		"ext/commands/sync.md":  "body",
		"ext/commands/":         "",
		"ext/nested/deep/a.txt": "a",
	})
	dst := filepath.Join(t.TempDir(), "out")

	if err := ExtractZip(src, dst); err != nil {
		t.Fatalf("ExtractZip: %v", err)
	}
	got, err := ReadText(filepath.Join(dst, "ext", "commands", "sync.md"))
	if err != nil || got != "body" {
		t.Errorf("sync.md = %q, %v", got, err)
	}
	if !PathExists(filepath.Join(dst, "ext", "nested", "deep", "a.txt")) {
		t.Error("nested file missing")
	}
}

func TestExtractZip_RejectsTraversal(t *testing.T) {
	for _, name := range []string{"../evil.txt", "a/../../evil.txt", "/abs/evil.txt"} {
		t.Run(name, func(t *testing.T) {
			src := writeZip(t, map[string]string{name: "x"})
			dst := filepath.Join(t.TempDir(), "out")

			err := ExtractZip(src, dst)
			if exterr.KindOf(err) != exterr.FS {
				t.Fatalf("expected fs error, got %v", err)
			}
			if PathExists(filepath.Join(filepath.Dir(dst), "evil.txt")) {
				t.Error("entry escaped the extraction directory")
			}
		})
	}
}

func TestExtractZip_NotAnArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.zip")
	if err := os.WriteFile(path, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ExtractZip(path, t.TempDir()); exterr.KindOf(err) != exterr.FS {
		t.Errorf("expected fs error, got %v", err)
	}
}

func TestSafeJoin(t *testing.T) {
	root := t.TempDir()
	tests := []struct {
		name string
		ok   bool
	}{
		{"commands/sync.md", true},
		{"./config.yml", true},
		{"a/../b.yml", true},
		{"../escaped.md", false},
		{"../../../../escaped.md", false},
		{"a/../../escaped.md", false},
		{"/etc/passwd", false},
	}
	for _, tt := range tests {
		got, err := SafeJoin(root, tt.name)
		if tt.ok {
			if err != nil {
				t.Errorf("%s: unexpected error %v", tt.name, err)
			} else if rel, _ := filepath.Rel(root, got); rel == ".." || filepath.IsAbs(rel) {
				t.Errorf("%s: joined to %s outside root", tt.name, got)
			}
			continue
		}
		if err == nil {
			t.Errorf("%s: expected rejection, got %s", tt.name, got)
		}
	}
}
