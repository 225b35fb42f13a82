package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
)

// navKeyMap holds the bindings every step shares.
type navKeyMap struct {
	Next key.Binding
	Back key.Binding
	Quit key.Binding
}

func newNavKeyMap() navKeyMap {
	return navKeyMap{
		Next: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "next"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// listKeyMap is used by steps that pick from a menu.
type listKeyMap struct {
	navKeyMap
	Up   key.Binding
	Down key.Binding
}

func newListKeyMap() listKeyMap {
	return listKeyMap{
		navKeyMap: newNavKeyMap(),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "move down"),
		),
	}
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k listKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Next, k.Back, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k listKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down}, {k.Next, k.Back, k.Quit}}
}

// formKeyMap is used by steps with text fields.
type formKeyMap struct {
	navKeyMap
	NextField key.Binding
	PrevField key.Binding
}

func newFormKeyMap() formKeyMap {
	return formKeyMap{
		navKeyMap: newNavKeyMap(),
		NextField: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "previous field"),
		),
	}
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k formKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextField, k.Next, k.Back, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k formKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.NextField, k.PrevField}, {k.Next, k.Back, k.Quit}}
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k navKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Back, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k navKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Next, k.Back, k.Quit}}
}

// failureKeyMap is shown when a download failed.
type failureKeyMap struct {
	Exit  key.Binding
	Retry key.Binding
	Quit  key.Binding
}

func newFailureKeyMap() failureKeyMap {
	return failureKeyMap{
		Exit: key.NewBinding(
			key.WithKeys("enter", "q"),
			key.WithHelp("enter", "exit"),
		),
		Retry: key.NewBinding(
			key.WithKeys("r", "esc"),
			key.WithHelp("r", "edit and retry"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k failureKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Exit, k.Retry, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k failureKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Exit, k.Retry, k.Quit}}
}

// progressKeyMap is shown while a download runs: only quitting is possible.
type progressKeyMap struct {
	Quit key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k progressKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k progressKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Quit}}
}

var (
	_ help.KeyMap = listKeyMap{}
	_ help.KeyMap = formKeyMap{}
	_ help.KeyMap = failureKeyMap{}
	_ help.KeyMap = progressKeyMap{}
)
