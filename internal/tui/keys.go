package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the search screen. Printable keys
// always go to the query input, so navigation uses arrows and control keys.
type KeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Submit key.Binding // Commit the query now instead of waiting.
	Clear  key.Binding // Clear the query, or quit when it is already empty.
	Quit   key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "ctrl+p"),
		key.WithHelp("↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "ctrl+n"),
		key.WithHelp("↓", "down"),
	),
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "search now"),
	),
	Clear: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "clear"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
}
