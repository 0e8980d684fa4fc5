package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// CompactWidth triggers compact rendering of the footer.
const CompactWidth = 60

// Footer renders context-sensitive keybinding hints.
type Footer struct {
	Width    int
	Bindings []key.Binding
}

// View renders the footer as a single line of keybinding hints.
// In compact mode (narrow terminals), shows only key hints without descriptions.
func (f Footer) View() string {
	compact := f.Width < CompactWidth

	var parts []string
	for _, b := range f.Bindings {
		if !b.Enabled() {
			continue
		}
		help := b.Help()
		var part string
		if compact {
			part = styleFooterKey.Render(help.Key)
		} else {
			part = styleFooterKey.Render(help.Key) + styleFooterSep.Render(":") + styleFooterDesc.Render(help.Desc)
		}
		parts = append(parts, part)
	}
	sep := styleFooterSep.Render("  ")
	if compact {
		sep = styleFooterSep.Render(" ")
	}
	line := strings.Join(parts, sep)
	return styleFooter.Width(f.Width).Render(line)
}

// BrowseFooterBindings returns footer bindings while browsing objects.
func BrowseFooterBindings(km KeyMap) []key.Binding {
	return []key.Binding{
		km.Next, km.Previous, km.NextStarred, km.PreviousStarred, km.Star, km.Flag,
		km.Comment, km.Redshift, km.GoToID, km.GoToIndex, km.Save, km.Screenshot, km.Quit,
	}
}

// SubsetFooterBindings are appended while a subset is active.
func SubsetFooterBindings(km KeyMap) []key.Binding {
	return []key.Binding{km.PauseSubset, km.StopSubset}
}

// PromptFooterBindings returns footer bindings while a prompt has focus.
func PromptFooterBindings(km KeyMap) []key.Binding {
	return []key.Binding{km.Confirm, km.Cancel, km.Next, km.Previous, km.Save, km.Quit}
}
