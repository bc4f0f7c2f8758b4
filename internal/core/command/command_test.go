package command

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pelletier/go-toml/v2"

	"github.com/barysiuk/specify/internal/core/agent"
	"github.com/barysiuk/specify/internal/core/exterr"
	"github.com/barysiuk/specify/internal/core/manifest"
)

const syncDoc = `---
description: Push "tasks" to Jira
scripts:
  sh: ../../scripts/bash/sync.sh
  ps: scripts/powershell/sync.ps1
---

Sync the current tasks.

User input: $ARGUMENTS
`

func mustFormat(t *testing.T, name string) agent.Format {
	t.Helper()
	f, ok := agent.ByName(name)
	if !ok {
		t.Fatalf("unknown agent %q", name)
	}
	return f
}

func TestParseFrontmatter(t *testing.T) {
	meta, body := ParseFrontmatter(syncDoc)

	if diff := cmp.Diff([]string{"description", "scripts"}, meta.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
	if desc, _ := meta.String("description"); desc != `Push "tasks" to Jira` {
		t.Errorf("description = %q", desc)
	}
	if body != "Sync the current tasks.\n\nUser input: $ARGUMENTS" {
		t.Errorf("body = %q", body)
	}
}

func TestParseFrontmatter_Degrades(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		body string
	}{
		{"no frontmatter", "plain body\n", "plain body\n"},
		{"leading blank line", "\n---\na: b\n---\nbody", "\n---\na: b\n---\nbody"},
		{"unclosed", "---\ndescription: x\nbody", "---\ndescription: x\nbody"},
		{"malformed yaml", "---\ndescription: [unclosed\n---\nbody\n", "body"},
		{"list root", "---\n- a\n- b\n---\nbody", "body"},
		{"scalar root", "---\njust text\n---\nbody", "body"},
		{"empty block", "---\n---\nbody", "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, body := ParseFrontmatter(tt.doc)
			if !meta.IsEmpty() {
				t.Errorf("expected empty metadata, got keys %v", meta.Keys())
			}
			if body != tt.body {
				t.Errorf("body = %q, want %q", body, tt.body)
			}
		})
	}
}

func TestMetadata_Decode(t *testing.T) {
	meta, _ := ParseFrontmatter(syncDoc)
	var v struct {
		Description string            `yaml:"description"`
		Scripts     map[string]string `yaml:"scripts"`
	}
	if err := meta.Decode(&v); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v.Scripts["sh"] != "../../scripts/bash/sync.sh" {
		t.Errorf("Scripts = %v", v.Scripts)
	}
}

func TestRender_Markdown_BodyUnchanged(t *testing.T) {
	meta, body := ParseFrontmatter(syncDoc)
	out, err := Render(meta, body, mustFormat(t, "claude"), "jira")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	got := string(out)

	if !strings.HasPrefix(got, "---\n") {
		t.Errorf("output should open with frontmatter:\n%s", got)
	}
	footer := "---\n\n\n<!-- Extension: jira -->\n<!-- Config: .specify/extensions/jira/ -->\n"
	if !strings.HasSuffix(got, footer+body) {
		t.Errorf("body must follow the provenance footer verbatim:\n%s", got)
	}
}

func TestRender_Markdown_RewritesScriptsWithoutMutating(t *testing.T) {
	meta, body := ParseFrontmatter(syncDoc)
	out, err := Render(meta, body, mustFormat(t, "cursor"), "jira")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	rendered, _ := ParseFrontmatter(string(out))
	var v struct {
		Scripts map[string]string `yaml:"scripts"`
	}
	if err := rendered.Decode(&v); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v.Scripts["sh"] != ".specify/scripts/bash/sync.sh" {
		t.Errorf("sh = %q, want installed path", v.Scripts["sh"])
	}
	if v.Scripts["ps"] != "scripts/powershell/sync.ps1" {
		t.Errorf("ps = %q, should be untouched", v.Scripts["ps"])
	}

	var orig struct {
		Scripts map[string]string `yaml:"scripts"`
	}
	_ = meta.Decode(&orig)
	if orig.Scripts["sh"] != "../../scripts/bash/sync.sh" {
		t.Errorf("input metadata was mutated: %q", orig.Scripts["sh"])
	}
}

func TestRender_Markdown_PreservesKeyOrder(t *testing.T) {
	meta, body := ParseFrontmatter("---\nzeta: 1\nalpha: two\nmiddle: [a, b]\n---\nbody")
	out, err := Render(meta, body, mustFormat(t, "claude"), "x")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	rendered, _ := ParseFrontmatter(string(out))
	if diff := cmp.Diff([]string{"zeta", "alpha", "middle"}, rendered.Keys()); diff != "" {
		t.Errorf("key order mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_Markdown_EmptyMetadata(t *testing.T) {
	out, err := Render(Metadata{}, "body", mustFormat(t, "claude"), "x")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "\n\n<!-- Extension: x -->\n<!-- Config: .specify/extensions/x/ -->\nbody"
	if string(out) != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestRender_TOML(t *testing.T) {
	meta, body := ParseFrontmatter(syncDoc)
	out, err := Render(meta, body, mustFormat(t, "gemini"), "jira")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	got := string(out)

	if strings.Contains(got, agent.CanonicalPlaceholder) {
		t.Errorf("canonical placeholder left in TOML output:\n%s", got)
	}
	for _, want := range []string{
		`description = "Push \"tasks\" to Jira"`,
		"# Extension: jira\n# Config: .specify/extensions/jira/\n",
		"User input: {{args}}",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}

	var doc struct {
		Description string `toml:"description"`
		Prompt      string `toml:"prompt"`
	}
	if err := toml.Unmarshal(out, &doc); err != nil {
		t.Fatalf("output is not valid TOML: %v\n%s", err, got)
	}
	if doc.Description != `Push "tasks" to Jira` {
		t.Errorf("description = %q", doc.Description)
	}
	wantPrompt := strings.ReplaceAll(body, agent.CanonicalPlaceholder, "{{args}}") + "\n"
	if doc.Prompt != wantPrompt {
		t.Errorf("prompt = %q, want %q", doc.Prompt, wantPrompt)
	}
}

func TestRender_TOML_Lossless(t *testing.T) {
	bodies := []string{
		`Path C:\temp\new and "quoted" text`,
		`Three quotes """ inside and four """" too`,
		"ends with a quote\"",
		"tab\tand\r\ncrlf",
		"control \x01 char",
		"",
	}
	f := mustFormat(t, "qwen")
	for _, body := range bodies {
		out, err := Render(Metadata{}, body, f, "x")
		if err != nil {
			t.Fatalf("Render: %v", err)
		}
		var doc struct {
			Prompt string `toml:"prompt"`
		}
		if err := toml.Unmarshal(out, &doc); err != nil {
			t.Fatalf("body %q: invalid TOML: %v\n%s", body, err, out)
		}
		if doc.Prompt != body+"\n" {
			t.Errorf("prompt = %q, want %q", doc.Prompt, body+"\n")
		}
	}
}

func TestRender_TOML_NoDescription(t *testing.T) {
	out, err := Render(Metadata{}, "b", mustFormat(t, "gemini"), "x")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.HasPrefix(string(out), "# Extension: x\n") {
		t.Errorf("output should start with provenance:\n%s", out)
	}
}

func TestRender_UnknownKind(t *testing.T) {
	_, err := Render(Metadata{}, "b", agent.Format{Name: "odd", Kind: "xml"}, "x")
	if err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestRender_EveryFormat(t *testing.T) {
	meta, body := ParseFrontmatter(syncDoc)
	for _, f := range agent.All() {
		out, err := Render(meta, body, f, "jira")
		if err != nil {
			t.Errorf("%s: %v", f.Name, err)
			continue
		}
		if f.Placeholder != agent.CanonicalPlaceholder && strings.Contains(string(out), agent.CanonicalPlaceholder) {
			t.Errorf("%s: canonical placeholder not replaced", f.Name)
		}
	}
}

func TestOutputPath(t *testing.T) {
	tests := map[string]string{
		"claude":  ".claude/commands/specify.jira.sync.md",
		"gemini":  ".gemini/commands/specify.jira.sync.toml",
		"copilot": ".github/agents/specify.jira.sync.agent.md",
	}
	for name, want := range tests {
		if got := OutputPath(mustFormat(t, name), "specify.jira.sync"); got != want {
			t.Errorf("%s: OutputPath = %q, want %q", name, got, want)
		}
	}
}

// --- Registrar ---

func setupExtension(t *testing.T) (string, *manifest.Manifest) {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "commands"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "commands", "sync.md"), []byte(syncDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	m := &manifest.Manifest{
		Extension: manifest.Extension{ID: "jira"},
		Commands: []manifest.Command{
			{Name: "specify.jira.sync", File: "commands/sync.md", Aliases: []string{"specify.jira.push"}},
		},
	}
	return dir, m
}

func TestRegistrar_RegisterUnregister(t *testing.T) {
	extDir, m := setupExtension(t)
	project := t.TempDir()
	r := NewRegistrar(project, nil)

	formats := []agent.Format{mustFormat(t, "claude"), mustFormat(t, "gemini")}
	got, err := r.Register(m, extDir, formats)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	want := map[string][]string{
		"claude": {"specify.jira.sync", "specify.jira.push"},
		"gemini": {"specify.jira.sync", "specify.jira.push"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("registered mismatch (-want +got):\n%s", diff)
	}

	files := []string{
		".claude/commands/specify.jira.sync.md",
		".claude/commands/specify.jira.push.md",
		".gemini/commands/specify.jira.sync.toml",
		".gemini/commands/specify.jira.push.toml",
	}
	for _, f := range files {
		if _, err := os.Stat(filepath.Join(project, f)); err != nil {
			t.Errorf("%s not written: %v", f, err)
		}
	}

	if err := r.Unregister(got); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	for _, f := range files {
		if _, err := os.Stat(filepath.Join(project, f)); !os.IsNotExist(err) {
			t.Errorf("%s should be removed", f)
		}
	}

	// Second call is a no-op.
	if err := r.Unregister(got); err != nil {
		t.Errorf("Unregister twice: %v", err)
	}
}

func TestRegistrar_MissingSource(t *testing.T) {
	extDir, m := setupExtension(t)
	m.Commands = append(m.Commands, manifest.Command{Name: "specify.jira.gone", File: "commands/gone.md"})

	project := t.TempDir()
	_, err := NewRegistrar(project, nil).Register(m, extDir, []agent.Format{mustFormat(t, "claude")})
	if exterr.KindOf(err) != exterr.FS {
		t.Fatalf("KindOf = %q, want fs (err: %v)", exterr.KindOf(err), err)
	}
	if _, statErr := os.Stat(filepath.Join(project, ".claude")); !os.IsNotExist(statErr) {
		t.Error("nothing should be written when a source is missing")
	}
}

func TestRegistrar_UnknownAgentSkipped(t *testing.T) {
	r := NewRegistrar(t.TempDir(), nil)
	if err := r.Unregister(map[string][]string{"retired-agent": {"specify.x.y"}}); err != nil {
		t.Errorf("Unregister: %v", err)
	}
}

func TestRegistrar_Existing(t *testing.T) {
	extDir, m := setupExtension(t)
	project := t.TempDir()
	r := NewRegistrar(project, nil)

	if _, err := r.Register(m, extDir, []agent.Format{mustFormat(t, "claude")}); err != nil {
		t.Fatal(err)
	}
	got := r.Existing(map[string][]string{
		"claude":        {"specify.jira.sync", "specify.jira.push", "specify.jira.never"},
		"gemini":        {"specify.jira.sync"},
		"retired-agent": {"specify.jira.sync"},
	})
	want := map[string][]string{"claude": {"specify.jira.sync", "specify.jira.push"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Existing mismatch (-want +got):\n%s", diff)
	}
}
