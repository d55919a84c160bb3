package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap mirrors the shared-keybinding-struct idiom of sibling example repo
// zjrosen-perles' internal/keys package, trimmed to the session-list
// dashboard's own action set.
type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Pause   key.Binding
	Resume  key.Binding
	Detail  key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

var defaultKeys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "move up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "move down"),
	),
	Pause: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "pause"),
	),
	Resume: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "resume"),
	),
	Detail: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "details"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("R"),
		key.WithHelp("R", "refresh"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
