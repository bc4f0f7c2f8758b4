// Package tui holds the terminal presentation used by the specify CLI:
// shared styles, the remove confirmation prompt and markdown rendering
// for extension details.
package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Color palette.
var (
	colorPrimary   = lipgloss.Color("#7C3AED") // Purple
	colorSecondary = lipgloss.Color("#A78BFA") // Light purple
	colorSuccess   = lipgloss.Color("#10B981") // Green (installed)
	colorDanger    = lipgloss.Color("#EF4444") // Red (errors)
	colorMuted     = lipgloss.Color("#6B7280") // Gray
	colorWarning   = lipgloss.Color("#F59E0B") // Amber
)

// Shared styles used across CLI output.
var (
	// Section title, e.g. "Installed extensions".
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	// Extension id in listings.
	idStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(colorSecondary)

	// Muted text (descriptions, secondary info).
	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	// Installed / success indicator.
	installedStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	// Warning text.
	warningStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	// Confirmation dialog.
	dialogBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(0, 2)

	dialogButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFF7DB")).
				Background(colorMuted).
				Padding(0, 2)

	dialogActiveButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFF7DB")).
				Background(colorDanger).
				Padding(0, 2).
				Bold(true)
)

// Title renders a section title.
func Title(s string) string { return titleStyle.Render(s) }

// ID renders an extension id.
func ID(s string) string { return idStyle.Render(s) }

// Muted renders secondary text.
func Muted(s string) string { return mutedStyle.Render(s) }

// Success renders a positive status.
func Success(s string) string { return installedStyle.Render(s) }

// Warning renders a warning.
func Warning(s string) string { return warningStyle.Render(s) }
