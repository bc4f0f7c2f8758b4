// Package command turns one canonical extension command document into the
// file each coding agent expects, and writes or deletes those files in a
// project.
package command

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/barysiuk/specify/internal/core/agent"
)

const (
	sourceScriptsPrefix    = "../../scripts/"
	installedScriptsPrefix = ".specify/scripts/"
)

// ConfigDir is the project-relative directory holding an extension's files.
func ConfigDir(extensionID string) string {
	return ".specify/extensions/" + extensionID + "/"
}

// OutputPath is the slash-separated, project-relative file a command is
// rendered to for format.
func OutputPath(format agent.Format, commandName string) string {
	return path.Join(format.Dir, commandName+format.Extension)
}

// Render produces the file content for one command in one agent format.
// It is a pure function of its inputs; meta is never modified.
func Render(meta Metadata, body string, format agent.Format, extensionID string) ([]byte, error) {
	meta = rewriteScriptPaths(meta)

	if format.Placeholder != agent.CanonicalPlaceholder {
		body = strings.ReplaceAll(body, agent.CanonicalPlaceholder, format.Placeholder)
	}

	switch format.Kind {
	case agent.Markdown:
		return renderMarkdown(meta, body, extensionID)
	case agent.TOML:
		return renderTOML(meta, body, format, extensionID), nil
	default:
		return nil, fmt.Errorf("agent %s: unsupported output kind %q", format.Name, format.Kind)
	}
}

// rewriteScriptPaths maps scripts.* entries from the extension source
// layout to the installed project layout.
func rewriteScriptPaths(meta Metadata) Metadata {
	scripts := meta.value("scripts")
	if scripts == nil || scripts.Kind != yaml.MappingNode {
		return meta
	}
	needs := false
	for i := 1; i < len(scripts.Content); i += 2 {
		if isSourceScript(scripts.Content[i]) {
			needs = true
			break
		}
	}
	if !needs {
		return meta
	}

	out := meta.clone()
	scripts = out.value("scripts")
	for i := 1; i < len(scripts.Content); i += 2 {
		v := scripts.Content[i]
		if isSourceScript(v) {
			v.Value = installedScriptsPrefix + strings.TrimPrefix(v.Value, sourceScriptsPrefix)
		}
	}
	return out
}

func isSourceScript(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && strings.HasPrefix(n.Value, sourceScriptsPrefix)
}

func provenance(extensionID string) string {
	return fmt.Sprintf("<!-- Extension: %s -->\n<!-- Config: %s -->\n", extensionID, ConfigDir(extensionID))
}

func renderMarkdown(meta Metadata, body, extensionID string) ([]byte, error) {
	var buf bytes.Buffer
	if !meta.IsEmpty() {
		fm, err := meta.Marshal()
		if err != nil {
			return nil, fmt.Errorf("encoding frontmatter: %w", err)
		}
		buf.WriteString(delimiter + "\n")
		buf.Write(fm)
		buf.WriteString(delimiter + "\n")
	}
	buf.WriteString("\n\n")
	buf.WriteString(provenance(extensionID))
	buf.WriteString(body)
	return buf.Bytes(), nil
}

func renderTOML(meta Metadata, body string, format agent.Format, extensionID string) []byte {
	var buf bytes.Buffer
	if desc, ok := meta.String("description"); ok {
		desc = strings.ReplaceAll(desc, agent.CanonicalPlaceholder, format.Placeholder)
		buf.WriteString("description = " + tomlBasicString(desc) + "\n\n")
	}
	fmt.Fprintf(&buf, "# Extension: %s\n", extensionID)
	fmt.Fprintf(&buf, "# Config: %s\n\n", ConfigDir(extensionID))
	buf.WriteString(`prompt = """` + "\n")
	buf.WriteString(tomlMultilineBody(body))
	buf.WriteString("\n" + `"""` + "\n")
	return buf.Bytes()
}

// tomlBasicString quotes s as a single-line TOML basic string.
func tomlBasicString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if isTOMLControl(r) {
				fmt.Fprintf(&b, `\u%04X`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// tomlMultilineBody escapes s for the inside of a """ string. Newlines
// and tabs stay literal; quote runs are broken so they never close the
// string early.
func tomlMultilineBody(s string) string {
	var b strings.Builder
	quotes := 0
	for _, r := range s {
		if r == '"' {
			quotes++
			if quotes == 3 {
				b.WriteString(`\"`)
				quotes = 0
				continue
			}
			b.WriteRune(r)
			continue
		}
		quotes = 0
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case isTOMLControl(r):
			fmt.Fprintf(&b, `\u%04X`, r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isTOMLControl(r rune) bool {
	return (r < 0x20 && r != '\t' && r != '\n') || r == 0x7f
}
