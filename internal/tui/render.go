package tui

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/barysiuk/specify/internal/core"
)

// Truncate shortens s to at most width visible cells (ANSI-escape aware),
// marking the cut with an ellipsis.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, "…")
}

// RenderMarkdown renders md for a terminal of the given width. When the
// renderer cannot be built or fails, md is returned unchanged.
func RenderMarkdown(md string, width int, color bool) string {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if color {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle("notty"))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n") + "\n"
}

// InfoMarkdown describes an extension as a markdown document.
func InfoMarkdown(info *core.ExtensionInfo) string {
	var b strings.Builder

	name, description, ver := info.ID, "", ""
	switch {
	case info.Manifest != nil:
		name = info.Manifest.Extension.Name
		description = info.Manifest.Extension.Description
		ver = info.Manifest.Extension.Version
	case info.Catalog != nil:
		name = info.Catalog.Name
		description = info.Catalog.Description
		ver = info.Catalog.Version
	}

	fmt.Fprintf(&b, "# %s\n\n", name)
	if description != "" {
		fmt.Fprintf(&b, "%s\n\n", description)
	}
	fmt.Fprintf(&b, "- **ID:** `%s`\n", info.ID)
	if ver != "" {
		fmt.Fprintf(&b, "- **Version:** %s\n", ver)
	}
	if info.Manifest != nil {
		mf := info.Manifest
		field(&b, "Author", mf.Extension.Author)
		field(&b, "License", mf.Extension.License)
		field(&b, "Repository", mf.Extension.Repository)
		field(&b, "Requires", "specify "+mf.Requires.SpecifyVersion)
	} else if info.Catalog != nil {
		field(&b, "Author", info.Catalog.Author)
		field(&b, "License", info.Catalog.License)
		field(&b, "Repository", info.Catalog.Repository)
	}

	b.WriteString("\n## Status\n\n")
	if info.Installed != nil {
		fmt.Fprintf(&b, "Installed %s from %s on %s.\n", info.Installed.Version, info.Installed.Source, info.Installed.InstalledAt)
		if info.Catalog != nil && info.Catalog.Version != info.Installed.Version {
			fmt.Fprintf(&b, "\nThe catalog offers %s.\n", info.Catalog.Version)
		}
	} else {
		b.WriteString("Not installed.\n")
	}

	if info.Manifest != nil && len(info.Manifest.Commands) > 0 {
		b.WriteString("\n## Commands\n\n")
		for _, c := range info.Manifest.Commands {
			fmt.Fprintf(&b, "- `%s`", c.Name)
			if c.Description != "" {
				fmt.Fprintf(&b, ": %s", c.Description)
			}
			b.WriteString("\n")
		}
	}
	if info.Installed != nil && len(info.Installed.Commands) > 0 {
		agents := slices.Sorted(maps.Keys(info.Installed.Commands))
		fmt.Fprintf(&b, "\nRegistered for: %s\n", strings.Join(agents, ", "))
	}

	var tags []string
	if info.Catalog != nil {
		tags = info.Catalog.Tags
	} else if info.Manifest != nil {
		tags = info.Manifest.Tags
	}
	if len(tags) > 0 {
		fmt.Fprintf(&b, "\n**Tags:** %s\n", strings.Join(tags, ", "))
	}
	return b.String()
}

func field(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "- **%s:** %s\n", label, value)
}
