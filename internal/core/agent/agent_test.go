package agent

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAll(t *testing.T) {
	all := All()
	if len(all) != 17 {
		t.Fatalf("expected 17 formats, got %d", len(all))
	}

	seen := map[string]bool{}
	for _, f := range all {
		if seen[f.Name] {
			t.Errorf("duplicate format %q", f.Name)
		}
		seen[f.Name] = true

		if f.Dir == "" || f.Extension == "" || f.Placeholder == "" || f.DisplayName == "" {
			t.Errorf("%s: incomplete format %+v", f.Name, f)
		}
		if f.Kind != Markdown && f.Kind != TOML {
			t.Errorf("%s: unknown kind %q", f.Name, f.Kind)
		}
		if strings.Contains(f.Dir, `\`) {
			t.Errorf("%s: Dir must be slash-separated, got %q", f.Name, f.Dir)
		}
	}
}

func TestAll_ReturnsCopy(t *testing.T) {
	all := All()
	all[0].Dir = "mutated"
	if All()[0].Dir == "mutated" {
		t.Error("All() must not expose the table")
	}
}

func TestByName(t *testing.T) {
	tests := []struct {
		name        string
		kind        Kind
		placeholder string
		ext         string
		dir         string
	}{
		{"claude", Markdown, "$ARGUMENTS", ".md", ".claude/commands"},
		{"gemini", TOML, "{{args}}", ".toml", ".gemini/commands"},
		{"qwen", TOML, "{{args}}", ".toml", ".qwen/commands"},
		{"copilot", Markdown, "$ARGUMENTS", ".agent.md", ".github/agents"},
		{"opencode", Markdown, "$ARGUMENTS", ".md", ".opencode/command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := ByName(tt.name)
			if !ok {
				t.Fatalf("ByName(%q) not found", tt.name)
			}
			if f.Kind != tt.kind || f.Placeholder != tt.placeholder || f.Extension != tt.ext || f.Dir != tt.dir {
				t.Errorf("got %+v", f)
			}
		})
	}
}

func TestByName_Unknown(t *testing.T) {
	if _, ok := ByName("nonexistent"); ok {
		t.Error("expected ByName for unknown to return false")
	}
}

func TestByNames(t *testing.T) {
	fs, err := ByNames([]string{"claude", " gemini"})
	if err != nil {
		t.Fatalf("ByNames() error: %v", err)
	}
	if got := strings.Join(Names(fs), ","); got != "claude,gemini" {
		t.Errorf("Names = %q", got)
	}
}

func TestByNames_Unknown(t *testing.T) {
	_, err := ByNames([]string{"claude", "vim"})
	if err == nil {
		t.Fatal("expected error for unknown agent")
	}
	if !strings.Contains(err.Error(), `"vim"`) || !strings.Contains(err.Error(), "claude") {
		t.Errorf("error should name the bad agent and list valid ones: %v", err)
	}
}

func TestRootDir(t *testing.T) {
	f, _ := ByName("copilot")
	if f.RootDir() != ".github" {
		t.Errorf("RootDir() = %q, want .github", f.RootDir())
	}
}

func TestDetectInFolder(t *testing.T) {
	dir := t.TempDir()
	if got := DetectInFolder(dir); len(got) != 0 {
		t.Errorf("empty folder detected %v", Names(got))
	}

	for _, d := range []string{".claude", ".gemini"} {
		if err := os.Mkdir(filepath.Join(dir, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	// A file with an agent's name is not a signal.
	if err := os.WriteFile(filepath.Join(dir, ".cursor"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	got := strings.Join(Names(DetectInFolder(dir)), ",")
	if got != "claude,gemini" {
		t.Errorf("DetectInFolder = %q, want claude,gemini", got)
	}
}
