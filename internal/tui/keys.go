package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings shared by all screens.
type KeyMap struct {
	Quit      key.Binding
	ForceQuit key.Binding
	Escape    key.Binding
	Up        key.Binding
	Down      key.Binding
	Enter     key.Binding
	NextField key.Binding
	PrevField key.Binding
	Retry     key.Binding
	More      key.Binding
	Info      key.Binding
	Rules     key.Binding
	Dismiss   key.Binding

	Exercises  key.Binding
	Stats      key.Binding
	Vocabulary key.Binding
	Logout     key.Binding
	Forgot     key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "force quit"),
		),
		Escape: key.NewBinding(
			key.WithKeys("escape", "esc"),
			key.WithHelp("esc", "back"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		NextField: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "prev field"),
		),
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "retry"),
		),
		More: key.NewBinding(
			key.WithKeys("m", "end"),
			key.WithHelp("m", "load more"),
		),
		Info: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "word info"),
		),
		Rules: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "grammar rules"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("x", "ctrl+x"),
			key.WithHelp("x", "dismiss notice"),
		),
		Exercises: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "exercises"),
		),
		Stats: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "stats"),
		),
		Vocabulary: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "vocabulary"),
		),
		Logout: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "log out"),
		),
		Forgot: key.NewBinding(
			key.WithKeys("ctrl+f"),
			key.WithHelp("ctrl+f", "forgot password"),
		),
	}
}

var keys = DefaultKeyMap()
