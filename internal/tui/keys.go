package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keybindings for the TUI.
type KeyMap struct {
	Next            key.Binding
	Previous        key.Binding
	NextStarred     key.Binding
	PreviousStarred key.Binding
	Star            key.Binding
	Flag            key.Binding
	Comment         key.Binding
	Redshift        key.Binding
	GoToID          key.Binding
	GoToIndex       key.Binding
	Save            key.Binding
	Screenshot      key.Binding
	PauseSubset     key.Binding
	StopSubset      key.Binding
	Quit            key.Binding

	// Prompt keys.
	Confirm key.Binding
	Cancel  key.Binding
}

// DefaultKeyMap returns the default keybinding configuration.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Next: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next"),
		),
		Previous: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "prev"),
		),
		NextStarred: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "next ★"),
		),
		PreviousStarred: key.NewBinding(
			key.WithKeys("H"),
			key.WithHelp("H", "prev ★"),
		),
		Star: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "star"),
		),
		Flag: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("1-9", "flag"),
		),
		Comment: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "comment"),
		),
		Redshift: key.NewBinding(
			key.WithKeys("z"),
			key.WithHelp("z", "redshift"),
		),
		GoToID: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "go to ID"),
		),
		GoToIndex: key.NewBinding(
			key.WithKeys("#"),
			key.WithHelp("#", "go to #"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "save"),
		),
		Screenshot: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "screenshot"),
		),
		PauseSubset: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "pause subset"),
		),
		StopSubset: key.NewBinding(
			key.WithKeys("U"),
			key.WithHelp("U", "stop subset"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "apply"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

// PromptKeyMap returns keybindings active while a text prompt has focus.
// Printable keys belong to the prompt, so navigation moves to page keys
// and quitting needs ctrl+c.
func PromptKeyMap() KeyMap {
	km := DefaultKeyMap()
	km.Next = key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "next"))
	km.Previous = key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "prev"))
	km.Quit = key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit"))
	for _, b := range []*key.Binding{
		&km.NextStarred, &km.PreviousStarred, &km.Star, &km.Flag, &km.Comment,
		&km.Redshift, &km.GoToID, &km.GoToIndex, &km.Screenshot, &km.PauseSubset, &km.StopSubset,
	} {
		b.SetEnabled(false)
	}
	return km
}
