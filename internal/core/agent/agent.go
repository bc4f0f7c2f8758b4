// Package agent defines the output conventions of every supported coding
// agent. Each Format says where an agent reads slash-commands from, which
// file kind it expects and which token it uses for command arguments.
//
// The table is static configuration versioned with the tool; nothing in it
// changes at runtime.
package agent

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/barysiuk/specify/internal/core/fileutil"
)

// Kind is the output file kind of an agent.
type Kind string

const (
	Markdown Kind = "markdown"
	TOML     Kind = "toml"
)

// CanonicalPlaceholder is the argument token used in extension sources.
const CanonicalPlaceholder = "$ARGUMENTS"

// Format describes one agent's command layout.
type Format struct {
	Name        string // machine name: "claude", "gemini"
	DisplayName string // human name: "Claude Code", "Gemini CLI"
	Dir         string // project-relative, slash-separated command directory
	Kind        Kind
	Placeholder string // argument token the agent substitutes
	Extension   string // output file extension including the dot
}

// RootDir is the first path element of Dir. Its presence in a project
// means the agent is in use there.
func (f Format) RootDir() string {
	root, _, _ := strings.Cut(f.Dir, "/")
	return root
}

func markdown(name, display, dir string) Format {
	return Format{Name: name, DisplayName: display, Dir: dir, Kind: Markdown, Placeholder: CanonicalPlaceholder, Extension: ".md"}
}

func toml(name, display, dir string) Format {
	return Format{Name: name, DisplayName: display, Dir: dir, Kind: TOML, Placeholder: "{{args}}", Extension: ".toml"}
}

var formats = []Format{
	markdown("claude", "Claude Code", ".claude/commands"),
	toml("gemini", "Gemini CLI", ".gemini/commands"),
	{Name: "copilot", DisplayName: "GitHub Copilot", Dir: ".github/agents", Kind: Markdown, Placeholder: CanonicalPlaceholder, Extension: ".agent.md"},
	markdown("cursor", "Cursor", ".cursor/commands"),
	toml("qwen", "Qwen Code", ".qwen/commands"),
	markdown("opencode", "opencode", ".opencode/command"),
	markdown("codex", "Codex CLI", ".codex/prompts"),
	markdown("windsurf", "Windsurf", ".windsurf/workflows"),
	markdown("kilocode", "Kilo Code", ".kilocode/rules"),
	markdown("auggie", "Auggie CLI", ".augment/rules"),
	markdown("roo", "Roo Code", ".roo/rules"),
	markdown("codebuddy", "CodeBuddy", ".codebuddy/commands"),
	markdown("qoder", "Qoder CLI", ".qoder/commands"),
	markdown("amazonq", "Amazon Q Developer CLI", ".amazonq/prompts"),
	markdown("amp", "Amp", ".agents/commands"),
	markdown("shai", "SHAI", ".shai/commands"),
	markdown("bob", "IBM Bob", ".bob/commands"),
}

// All returns every known format in table order.
func All() []Format {
	out := make([]Format, len(formats))
	copy(out, formats)
	return out
}

// ByName returns the format with the given machine name.
func ByName(name string) (Format, bool) {
	for _, f := range formats {
		if f.Name == name {
			return f, true
		}
	}
	return Format{}, false
}

// ByNames resolves names to formats, failing on the first unknown name.
func ByNames(names []string) ([]Format, error) {
	result := make([]Format, 0, len(names))
	for _, name := range names {
		f, ok := ByName(strings.TrimSpace(name))
		if !ok {
			return nil, fmt.Errorf("unknown agent %q; available: %s",
				name, strings.Join(Names(formats), ", "))
		}
		result = append(result, f)
	}
	return result, nil
}

// DetectInFolder returns the formats whose root directory exists in
// projectDir, in table order.
func DetectInFolder(projectDir string) []Format {
	var detected []Format
	for _, f := range formats {
		if fileutil.DirExists(filepath.Join(projectDir, f.RootDir())) {
			detected = append(detected, f)
		}
	}
	return detected
}

// Names returns the machine names of fs.
func Names(fs []Format) []string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.Name
	}
	return names
}
