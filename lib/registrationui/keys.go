// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package registrationui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings for the registration screen.
type KeyMap struct {
	Submit    key.Binding
	NextField key.Binding
	PrevField key.Binding
	Reset     key.Binding
	Quit      key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "submit"),
	),
	NextField: key.NewBinding(
		key.WithKeys("tab", "down"),
		key.WithHelp("tab", "next field"),
	),
	PrevField: key.NewBinding(
		key.WithKeys("shift+tab", "up"),
		key.WithHelp("shift+tab", "previous field"),
	),
	Reset: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("ctrl+r", "start over"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "esc"),
		key.WithHelp("esc", "quit"),
	),
}

// ShortHelp implements help.KeyMap.
func (keys KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{keys.Submit, keys.NextField, keys.Reset, keys.Quit}
}

// FullHelp implements help.KeyMap.
func (keys KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{keys.ShortHelp(), {keys.PrevField}}
}
