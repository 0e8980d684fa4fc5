package tui

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

// StatusBar renders the persistent top bar with the window title, the
// loading state and the subset badge.
type StatusBar struct {
	Title   string
	Loading bool
	Subset  string // empty without a subset
	Paused  bool
	Width   int
}

// View renders the status bar as a single line. The title is truncated
// first when the terminal is narrow.
func (s StatusBar) View() string {
	// The outer styleStatusBar applies Padding(0,1), consuming 2 columns.
	const barPadding = 2
	inner := max(s.Width-barPadding, 0)
	barBg := lipgloss.NewStyle().Background(colorSurface)

	var right []string
	if s.Loading {
		right = append(right, styleStatusLoading.Render("loading…"))
	}
	if s.Subset != "" {
		badge := "subset " + s.Subset
		if s.Paused {
			badge += " (paused)"
		}
		right = append(right, styleStatusBadge.Render(badge))
	}
	r := strings.Join(right, barBg.Render("  "))
	rw := lipgloss.Width(r)

	title := TruncateWithEllipsis(s.Title, max(inner-rw-1, 0))
	left := barBg.Render(title)
	gap := max(inner-lipgloss.Width(left)-rw, 1)
	return styleStatusBar.Width(s.Width).Render(left + barBg.Render(strings.Repeat(" ", gap)) + r)
}

// TruncateWithEllipsis truncates s to maxLen runes, appending "..." if truncated.
// If maxLen is less than 4, returns s truncated to maxLen runes without ellipsis.
func TruncateWithEllipsis(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen < 4 {
		if maxLen <= 0 {
			return ""
		}
		return string([]rune(s)[:maxLen])
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}
