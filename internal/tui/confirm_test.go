package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

// press feeds keys to m and returns the resulting model.
func press(t *testing.T, m confirmModel, keys ...string) confirmModel {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(keyMsg(k))
		var ok bool
		m, ok = next.(confirmModel)
		if !ok {
			t.Fatalf("Update returned %T", next)
		}
	}
	return m
}

func TestNewConfirmModel(t *testing.T) {
	m := newConfirmModel("Remove jira?")
	if m.done || m.confirmed || m.focusYes {
		t.Errorf("new confirm should be pending with No focused: %+v", m)
	}
	if !strings.Contains(m.View(), "Remove jira?") {
		t.Error("view should contain the message")
	}
}

func TestConfirmKeys(t *testing.T) {
	tests := []struct {
		name      string
		keys      []string
		confirmed bool
	}{
		{"y accepts", []string{"y"}, true},
		{"Y accepts", []string{"Y"}, true},
		{"n declines", []string{"n"}, false},
		{"esc declines", []string{"esc"}, false},
		{"ctrl+c declines", []string{"ctrl+c"}, false},
		{"enter on default No", []string{"enter"}, false},
		{"tab then enter", []string{"tab", "enter"}, true},
		{"toggle twice then enter", []string{"left", "tab", "enter"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := press(t, newConfirmModel("Remove?"), tt.keys...)
			if !m.done {
				t.Fatal("prompt should be finished")
			}
			if m.confirmed != tt.confirmed {
				t.Errorf("confirmed = %v, want %v", m.confirmed, tt.confirmed)
			}
			if m.View() != "" {
				t.Error("finished prompt should render nothing")
			}
		})
	}
}

func TestConfirmIgnoresOtherKeys(t *testing.T) {
	m := press(t, newConfirmModel("Remove?"), "x", "z")
	if m.done {
		t.Error("unrelated keys should not finish the prompt")
	}
	next, cmd := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	if cmd != nil || next.(confirmModel).done {
		t.Error("non-key messages should be ignored")
	}
}
