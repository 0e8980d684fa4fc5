// Package tui provides the BubbleTea-based terminal UI for inspecting
// objects: navigation, review edits and per-widget load status.
package tui

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/papapumpkin/specvizitor/internal/session"
)

// Program is an alias for tea.Program, exposed so callers don't need
// to import bubbletea directly.
type Program = tea.Program

// NewProgram creates a BubbleTea program over s. Pass the bridge whose
// OnLoad and Handler the session was built with.
// The program uses the alternate screen buffer for a clean TUI experience.
func NewProgram(s *session.Session, b *Bridge, screenshotDir string, opts ...tea.ProgramOption) *Program {
	model := NewAppModel(s, b)
	if screenshotDir != "" {
		model.ScreenshotDir = screenshotDir
	}
	allOpts := []tea.ProgramOption{
		tea.WithAltScreen(),
	}
	allOpts = append(allOpts, opts...)
	return tea.NewProgram(model, allOpts...)
}

// Run creates and runs a TUI program, blocking until it exits.
func Run(s *session.Session, b *Bridge, screenshotDir string) error {
	if _, err := NewProgram(s, b, screenshotDir).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// WithOutput returns a program option that directs TUI output to the given writer.
func WithOutput(w io.Writer) tea.ProgramOption {
	return tea.WithOutput(w)
}
