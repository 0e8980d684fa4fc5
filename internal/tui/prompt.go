package tui

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/papapumpkin/specvizitor/internal/navigation"
)

// handlePromptKey routes keys while a prompt has focus. Navigation and
// save commit a pending comment first.
func (m AppModel) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	nav := m.Session.Nav
	km := m.PromptKeys
	switch {
	case key.Matches(msg, km.Quit):
		m.flushComment()
		return m, m.quit()
	case key.Matches(msg, km.Cancel):
		m.closePrompt()
	case key.Matches(msg, km.Confirm):
		m.submit()
	case key.Matches(msg, km.Next):
		m.flushComment()
		m.report(nav.Switch(navigation.Next, false))
	case key.Matches(msg, km.Previous):
		m.flushComment()
		m.report(nav.Switch(navigation.Previous, false))
	case key.Matches(msg, km.Save):
		m.flushComment()
		m.report(nav.Save())
	default:
		var cmd tea.Cmd
		m.Input, cmd = m.Input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *AppModel) openPrompt(mode InputMode, value string) tea.Cmd {
	m.Mode = mode
	m.Input.Placeholder = ""
	switch mode {
	case InputGoToID:
		m.Input.Placeholder = "object ID"
	case InputGoToIndex:
		m.Input.Placeholder = "1-based index"
	}
	m.Input.SetValue(value)
	m.Input.CursorEnd()
	return m.Input.Focus()
}

func (m *AppModel) closePrompt() {
	m.Mode = InputNone
	m.Input.Blur()
	m.Input.SetValue("")
}

// flushComment stores the comment being edited and closes any prompt.
func (m *AppModel) flushComment() {
	if m.Mode == InputComment {
		m.report(m.Session.Nav.SetComment(m.Input.Value()))
	}
	m.closePrompt()
}

// submit applies the prompt value.
func (m *AppModel) submit() {
	nav := m.Session.Nav
	value := strings.TrimSpace(m.Input.Value())
	mode := m.Mode

	var err error
	switch mode {
	case InputComment:
		err = nav.SetComment(m.Input.Value())
	case InputRedshift:
		err = m.saveRedshift(value)
	case InputGoToID:
		err = nav.GoToID(value)
	case InputGoToIndex:
		var n int
		if n, err = strconv.Atoi(value); err != nil {
			err = fmt.Errorf("%w: %q is not a number", navigation.ErrIndexOutOfRange, value)
		} else {
			err = nav.GoToIndex(n)
		}
	}
	if err != nil {
		// Keep the prompt open so the value can be corrected.
		m.report(err)
		if mode == InputGoToID || mode == InputGoToIndex || mode == InputRedshift {
			return
		}
	}
	m.closePrompt()
}

// saveRedshift moves the spectrum slider to value and stores it. An empty
// value stores the slider as it is.
func (m *AppModel) saveRedshift(value string) error {
	if value == "" {
		z, err := m.Session.SaveRedshift()
		if err == nil {
			m.setStatus(slog.LevelInfo, "redshift saved: "+formatRedshift(z))
		}
		return err
	}
	z, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid redshift %q", value)
	}
	if err := m.Session.SetRedshift(z); err != nil {
		return err
	}
	m.setStatus(slog.LevelInfo, "redshift saved: "+formatRedshift(z))
	return nil
}

// currentRedshift prefills the redshift prompt from the slider, then from
// the review store.
func (m AppModel) currentRedshift() string {
	if z, ok := m.Session.Redshift(); ok {
		return strconv.FormatFloat(z, 'f', 4, 64)
	}
	return ""
}
