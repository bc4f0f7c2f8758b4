package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// confirmModel is a yes/no prompt rendered as a bordered dialog. Focus
// starts on No, the safe choice for destructive actions.
//
// Navigation: left/right/tab move focus between Yes and No. Enter
// activates the focused button; y/n/esc are shortcut accelerators.
type confirmModel struct {
	message   string
	focusYes  bool
	done      bool
	confirmed bool
}

func newConfirmModel(message string) confirmModel {
	return confirmModel{message: message}
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, keys.Yes):
		return m.finish(true)
	case key.Matches(keyMsg, keys.No), key.Matches(keyMsg, keys.Back), key.Matches(keyMsg, keys.Interrupt):
		return m.finish(false)
	case key.Matches(keyMsg, keys.Enter):
		return m.finish(m.focusYes)
	case key.Matches(keyMsg, keys.Toggle):
		m.focusYes = !m.focusYes
	}
	return m, nil
}

func (m confirmModel) finish(confirmed bool) (tea.Model, tea.Cmd) {
	m.done = true
	m.confirmed = confirmed
	return m, tea.Quit
}

func (m confirmModel) View() string {
	if m.done {
		return ""
	}

	question := lipgloss.NewStyle().
		Width(48).
		Align(lipgloss.Center).
		Render(m.message)

	var yesBtn, noBtn string
	if m.focusYes {
		yesBtn = dialogActiveButtonStyle.Render("Yes")
		noBtn = dialogButtonStyle.Render("No")
	} else {
		yesBtn = dialogButtonStyle.Render("Yes")
		noBtn = dialogActiveButtonStyle.Render("No")
	}

	buttons := lipgloss.JoinHorizontal(lipgloss.Top, yesBtn, "  ", noBtn)
	ui := lipgloss.JoinVertical(lipgloss.Center, question, "", buttons)
	return dialogBoxStyle.Render(ui) + "\n"
}

// Confirm asks message on out, reading keys from in, and reports whether
// the user accepted.
func Confirm(in io.Reader, out io.Writer, message string) (bool, error) {
	p := tea.NewProgram(newConfirmModel(message),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	final, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("running prompt: %w", err)
	}
	m, ok := final.(confirmModel)
	return ok && m.confirmed, nil
}
