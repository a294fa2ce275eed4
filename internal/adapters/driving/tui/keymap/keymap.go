// Package keymap defines keybindings for the interactive terminal views.
package keymap

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the keybindings of the download view.
type KeyMap struct {
	// Cancel stops the running download.
	Cancel key.Binding

	// Hide dismisses the view once the download has finished.
	Hide key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Cancel: key.NewBinding(
			key.WithKeys("ctrl+c", "esc", "q"),
			key.WithHelp("q/esc", "cancel download"),
		),
		Hide: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "close"),
		),
	}
}

// ShortHelp returns the bindings shown under the progress bar.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Cancel}
}

// FullHelp returns the full list of keybindings.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Cancel, k.Hide}}
}
