package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/papapumpkin/specvizitor/internal/catalog"
	"github.com/papapumpkin/specvizitor/internal/navigation"
	"github.com/papapumpkin/specvizitor/internal/review"
	"github.com/papapumpkin/specvizitor/internal/session"
)

// maxDefaultColumns caps the catalogue columns shown when none are configured.
const maxDefaultColumns = 12

// InputMode identifies the prompt that has focus.
type InputMode int

// Prompt modes. InputNone means keys go to navigation.
const (
	InputNone InputMode = iota
	InputComment
	InputRedshift
	InputGoToID
	InputGoToIndex
)

// String returns the prompt label.
func (m InputMode) String() string {
	switch m {
	case InputComment:
		return "Comment"
	case InputRedshift:
		return "Redshift"
	case InputGoToID:
		return "Go to ID"
	case InputGoToIndex:
		return "Go to #"
	default:
		return ""
	}
}

// AppModel is the root BubbleTea model of the inspection TUI.
type AppModel struct {
	Session    *session.Session
	Bridge     *Bridge // Optional; nil disables background updates.
	Keys       KeyMap
	PromptKeys KeyMap
	StatusBar  StatusBar
	Input      textinput.Model
	Mode       InputMode
	Width      int
	Height     int

	Outcome       navigation.Outcome // last settled load
	LastLog       MsgLog
	ScreenshotDir string

	// quitArmed is set when a save on quit failed; the next quit exits
	// without saving.
	quitArmed bool
}

// NewAppModel creates the root model over an open or empty session.
func NewAppModel(s *session.Session, b *Bridge) AppModel {
	ti := textinput.New()
	ti.Prompt = "▸ "
	ti.CharLimit = 512
	return AppModel{
		Session:       s,
		Bridge:        b,
		Keys:          DefaultKeyMap(),
		PromptKeys:    PromptKeyMap(),
		Input:         ti,
		ScreenshotDir: ".",
	}
}

// Init subscribes to the bridge.
func (m AppModel) Init() tea.Cmd {
	if m.Bridge == nil {
		return nil
	}
	return m.Bridge.Listen()
}

// Update handles all messages.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.StatusBar.Width = msg.Width
		m.Input.Width = max(msg.Width-8, 10)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case MsgLoaded:
		m.Outcome = msg.Outcome
		if err := msg.Outcome.Err; err != nil && !errors.Is(err, navigation.ErrCancelled) {
			m.setStatus(slog.LevelError, err.Error())
		}
		cmds = append(cmds, m.listen())

	case MsgLog:
		m.LastLog = msg
		cmds = append(cmds, m.listen())

	default:
		if m.Mode != InputNone {
			var cmd tea.Cmd
			m.Input, cmd = m.Input.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m AppModel) listen() tea.Cmd {
	if m.Bridge == nil {
		return nil
	}
	return m.Bridge.Listen()
}

// handleKey processes keyboard input.
func (m AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// An open prompt overrides normal keys.
	if m.Mode != InputNone {
		return m.handlePromptKey(msg)
	}

	nav := m.Session.Nav
	km := m.Keys
	switch {
	case key.Matches(msg, km.Quit):
		return m, m.quit()

	case key.Matches(msg, km.Next):
		m.report(nav.Switch(navigation.Next, false))
	case key.Matches(msg, km.Previous):
		m.report(nav.Switch(navigation.Previous, false))
	case key.Matches(msg, km.NextStarred):
		m.report(nav.Switch(navigation.Next, true))
	case key.Matches(msg, km.PreviousStarred):
		m.report(nav.Switch(navigation.Previous, true))

	case key.Matches(msg, km.Star):
		if v, err := nav.ToggleStarred(); err != nil {
			m.report(err)
		} else if v {
			m.setStatus(slog.LevelInfo, "starred")
		} else {
			m.setStatus(slog.LevelInfo, "unstarred")
		}

	case key.Matches(msg, km.Flag):
		n, _ := strconv.Atoi(msg.String())
		m.toggleCheckbox(n)

	case key.Matches(msg, km.Comment):
		if rd := nav.Review(); rd != nil {
			return m, m.openPrompt(InputComment, rd.Text(nav.Index(), review.Comment))
		}
		m.report(navigation.ErrNoProject)
	case key.Matches(msg, km.Redshift):
		if nav.Review() == nil {
			m.report(navigation.ErrNoProject)
			break
		}
		return m, m.openPrompt(InputRedshift, m.currentRedshift())
	case key.Matches(msg, km.GoToID):
		return m, m.openPrompt(InputGoToID, "")
	case key.Matches(msg, km.GoToIndex):
		return m, m.openPrompt(InputGoToIndex, "")

	case key.Matches(msg, km.Save):
		m.report(nav.Save())
	case key.Matches(msg, km.Screenshot):
		m.screenshot()

	case key.Matches(msg, km.PauseSubset):
		if _, paused, ok := nav.SubsetInfo(); !ok {
			m.report(navigation.ErrNoSubset)
		} else {
			m.report(nav.PauseSubset(!paused))
		}
	case key.Matches(msg, km.StopSubset):
		m.report(nav.StopSubset())
	}

	return m, nil
}

// toggleCheckbox flips the n-th (1-based) checkbox of the review panel.
func (m *AppModel) toggleCheckbox(n int) {
	nav := m.Session.Nav
	rd := nav.Review()
	if rd == nil {
		m.report(navigation.ErrNoProject)
		return
	}
	boxes := rd.Checkboxes(m.Session.Config().Review.Checkboxes)
	if n < 1 || n > len(boxes) {
		m.report(fmt.Errorf("%w: #%d (%d checkboxes)", navigation.ErrUnknownFlag, n, len(boxes)))
		return
	}
	v, err := nav.ToggleColumn(boxes[n-1].Column)
	if err != nil {
		m.report(err)
		return
	}
	m.setStatus(slog.LevelInfo, fmt.Sprintf("%s: %t", boxes[n-1].Column, v))
}

// screenshot renders the displayed object, which may still be the
// previous one while a switch loads.
func (m *AppModel) screenshot() {
	path, err := m.Session.Screenshot(m.ScreenshotDir)
	if err != nil {
		m.report(err)
		return
	}
	m.setStatus(slog.LevelInfo, "screenshot saved to "+path)
}

// quit saves the inspection file and exits. A failed save keeps the
// program running once so the error can be read.
func (m *AppModel) quit() tea.Cmd {
	nav := m.Session.Nav
	if nav.State() == navigation.StateNoProject || m.quitArmed {
		return tea.Quit
	}
	if err := nav.Save(); err != nil {
		m.quitArmed = true
		m.setStatus(slog.LevelError, fmt.Sprintf("save failed: %v (quit again to discard)", err))
		return nil
	}
	return tea.Quit
}

// report shows err on the status line. Refusals are already logged by the
// controller, so only the error text is kept here.
func (m *AppModel) report(err error) {
	if err != nil {
		m.setStatus(slog.LevelWarn, err.Error())
	}
}

func (m *AppModel) setStatus(level slog.Level, text string) {
	m.LastLog = MsgLog{Level: level, Text: text}
}

// View renders the full TUI.
func (m AppModel) View() string {
	if m.Width == 0 {
		return "initializing..."
	}
	nav := m.Session.Nav

	m.StatusBar.Title = nav.Title()
	m.StatusBar.Loading = nav.State() == navigation.StateLoading
	m.StatusBar.Subset, m.StatusBar.Paused = "", false
	if info, paused, ok := nav.SubsetInfo(); ok {
		first, _, _ := strings.Cut(info, "\n")
		m.StatusBar.Subset = strings.TrimPrefix(first, "Subset: ")
		m.StatusBar.Paused = paused
	}

	sections := []string{m.StatusBar.View()}
	if v, ok := m.objectView(); ok {
		sections = append(sections, v.View())
	} else {
		sections = append(sections, styleDim.Render("No inspection file open."))
	}
	if m.Mode != InputNone {
		sections = append(sections, stylePrompt.Width(max(m.Width-2, 10)).Render(styleSectionTitle.Render(m.Mode.String())+"\n"+m.Input.View()))
	}
	if line := m.statusLine(); line != "" {
		sections = append(sections, line)
	}
	sections = append(sections, m.buildFooter().View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m AppModel) statusLine() string {
	if m.LastLog.Text == "" {
		return ""
	}
	text := TruncateWithEllipsis(m.LastLog.Text, max(m.Width, 10))
	switch {
	case m.LastLog.Level >= slog.LevelError:
		return styleLogError.Render(text)
	case m.LastLog.Level >= slog.LevelWarn:
		return styleLogWarn.Render(text)
	default:
		return styleLogInfo.Render(text)
	}
}

// objectView collects the panel data of the current object.
func (m AppModel) objectView() (ObjectView, bool) {
	nav := m.Session.Nav
	obj, err := nav.Current()
	rd := nav.Review()
	if err != nil || rd == nil {
		return ObjectView{}, false
	}
	j := nav.Index()
	cfg := m.Session.Config()

	v := ObjectView{
		Width:   m.Width,
		Starred: rd.Bool(j, review.Starred),
		Comment: rd.Text(j, review.Comment),
	}
	for i, cb := range rd.Checkboxes(cfg.Review.Checkboxes) {
		v.Flags = append(v.Flags, FlagState{Key: i + 1, Label: cb.Label, Set: rd.Bool(j, cb.Column)})
	}
	if z, ok := rd.Number(j, review.Redshift); ok {
		v.Redshift, v.HasRedshift = z, true
	}

	visible := m.Session.Cache.VisibleColumns
	if len(visible) == 0 {
		visible = cfg.ObjectInfo.Columns
	}
	v.Columns = entryFields(obj.Entry, visible)

	if d := m.Outcome.Delivery; d.Object.ID.Equal(obj.ID) {
		v.Widgets = d.Widgets
	}
	if info, _, ok := nav.SubsetInfo(); ok {
		v.Subset = info
	}
	return v, true
}

// entryFields formats the requested columns of entry. Without a request the
// first catalogue columns are shown. Missing columns are skipped.
func entryFields(entry *catalog.Catalog, columns []string) []Field {
	if entry == nil {
		return nil
	}
	if len(columns) == 0 {
		columns = entry.Colnames()
		if len(columns) > maxDefaultColumns {
			columns = columns[:maxDefaultColumns]
		}
	}
	var out []Field
	for _, name := range columns {
		val, err := entry.Value(name)
		if err != nil {
			continue
		}
		out = append(out, Field{Name: name, Value: formatValue(val)})
	}
	return out
}

func formatValue(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'g', 8, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', 7, 32)
	default:
		return fmt.Sprint(v)
	}
}

// buildFooter creates the footer with appropriate bindings.
func (m AppModel) buildFooter() Footer {
	f := Footer{Width: m.Width}
	if m.Mode != InputNone {
		f.Bindings = PromptFooterBindings(m.PromptKeys)
		return f
	}
	f.Bindings = BrowseFooterBindings(m.Keys)
	if _, _, ok := m.Session.Nav.SubsetInfo(); ok {
		f.Bindings = append(f.Bindings, SubsetFooterBindings(m.Keys)...)
	}
	return f
}
