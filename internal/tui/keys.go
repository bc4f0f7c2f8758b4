package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the keybindings of the confirmation prompt.
type keyMap struct {
	Yes       key.Binding
	No        key.Binding
	Back      key.Binding
	Enter     key.Binding
	Toggle    key.Binding
	Interrupt key.Binding
}

var keys = keyMap{
	Yes: key.NewBinding(
		key.WithKeys("y", "Y"),
		key.WithHelp("y", "confirm"),
	),
	No: key.NewBinding(
		key.WithKeys("n", "N"),
		key.WithHelp("n", "cancel"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc", "q"),
		key.WithHelp("esc", "cancel"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select"),
	),
	Toggle: key.NewBinding(
		key.WithKeys("left", "right", "h", "l", "tab", "shift+tab"),
		key.WithHelp("←/→", "switch"),
	),
	Interrupt: key.NewBinding(
		key.WithKeys("ctrl+c"),
	),
}
