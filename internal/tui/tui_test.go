package tui

import (
	"context"
	"errors"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/papapumpkin/specvizitor/internal/config"
	"github.com/papapumpkin/specvizitor/internal/navigation"
	"github.com/papapumpkin/specvizitor/internal/review"
	"github.com/papapumpkin/specvizitor/internal/session"
	"github.com/papapumpkin/specvizitor/internal/viewer"
)

// newSession opens a fresh inspection file over three PNG cutouts.
func newSession(t *testing.T) (*session.Session, string) {
	t.Helper()
	root := t.TempDir()
	data := filepath.Join(root, "data")
	if err := os.MkdirAll(data, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"1", "2", "3"} {
		f, err := os.Create(filepath.Join(data, "obj_"+id+".png"))
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 4, 4))); err != nil {
			t.Fatal(err)
		}
		f.Close()
	}
	cfg := config.Config{
		Data:   config.DataConfig{Dir: data, IDPattern: `\d+`},
		Review: config.ReviewConfig{Flags: []string{"emission", "contaminated"}},
		Viewer: config.ViewerConfig{Widgets: []config.Widget{
			{Title: "Image", Kind: config.KindImage, Data: config.DataBinding{Filename: `obj_{id}\.png`}},
		}},
	}
	s, err := session.New(cfg, session.Options{})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(root, "review.csv")
	if err := s.Create(path); err != nil {
		t.Fatal(err)
	}
	s.Nav.Wait()
	t.Cleanup(func() { s.Close() })
	return s, path
}

func newModel(t *testing.T) (AppModel, string) {
	t.Helper()
	s, path := newSession(t)
	m := NewAppModel(s, nil)
	m.ScreenshotDir = t.TempDir()
	return send(m, tea.WindowSizeMsg{Width: 100, Height: 40}), path
}

func send(m AppModel, msg tea.Msg) AppModel {
	next, _ := m.Update(msg)
	return next.(AppModel)
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func typeText(m AppModel, s string) AppModel {
	for _, r := range s {
		m = send(m, runes(string(r)))
	}
	return m
}

func TestModel_Navigation(t *testing.T) {
	t.Parallel()
	m, _ := newModel(t)
	nav := m.Session.Nav

	tests := []struct {
		name string
		key  tea.KeyMsg
		want int
	}{
		{"right", tea.KeyMsg{Type: tea.KeyRight}, 1},
		{"l", runes("l"), 2},
		{"wraps", runes("l"), 0},
		{"h wraps back", runes("h"), 2},
		{"left", tea.KeyMsg{Type: tea.KeyLeft}, 1},
	}
	for _, tt := range tests {
		m = send(m, tt.key)
		nav.Wait()
		if got := nav.Index(); got != tt.want {
			t.Fatalf("%s: index = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestModel_StarredNavigationRefused(t *testing.T) {
	t.Parallel()
	m, _ := newModel(t)
	m = send(m, runes("L"))
	if !strings.Contains(m.LastLog.Text, navigation.ErrNoStarred.Error()) {
		t.Errorf("status = %q, want the refusal", m.LastLog.Text)
	}
	if m.Session.Nav.Index() != 0 {
		t.Error("refused navigation moved the cursor")
	}
}

func TestModel_ReviewEdits(t *testing.T) {
	t.Parallel()
	m, _ := newModel(t)
	nav := m.Session.Nav

	m = send(m, runes("s"))
	m = send(m, runes("2"))
	rd := nav.Review()
	if !rd.Bool(0, review.Starred) {
		t.Error("s did not star the object")
	}
	if !rd.Bool(0, "contaminated") || rd.Bool(0, "emission") {
		t.Error("2 did not toggle the second flag only")
	}

	m = send(m, runes("9"))
	if !strings.Contains(m.LastLog.Text, navigation.ErrUnknownFlag.Error()) {
		t.Errorf("status = %q, want an unknown flag message", m.LastLog.Text)
	}
}

func TestModel_CommentFlushedBeforeNavigation(t *testing.T) {
	t.Parallel()
	m, _ := newModel(t)
	nav := m.Session.Nav

	m = send(m, runes("c"))
	if m.Mode != InputComment {
		t.Fatalf("mode = %v, want comment", m.Mode)
	}
	m = typeText(m, "hi l")
	if nav.Index() != 0 {
		t.Fatal("typing l in the comment navigated")
	}
	m = send(m, tea.KeyMsg{Type: tea.KeyPgDown})
	nav.Wait()

	if m.Mode != InputNone {
		t.Error("prompt still open after navigation")
	}
	if nav.Index() != 1 {
		t.Errorf("index = %d, want 1", nav.Index())
	}
	if got := nav.Review().Text(0, review.Comment); got != "hi l" {
		t.Errorf("comment of the previous object = %q, want %q", got, "hi l")
	}
}

func TestModel_CommentCancel(t *testing.T) {
	t.Parallel()
	m, _ := newModel(t)
	m = send(m, runes("c"))
	m = typeText(m, "draft")
	m = send(m, tea.KeyMsg{Type: tea.KeyEsc})
	if got := m.Session.Nav.Review().Text(0, review.Comment); got != "" {
		t.Errorf("cancelled comment stored: %q", got)
	}
}

func TestModel_GoTo(t *testing.T) {
	t.Parallel()
	m, _ := newModel(t)
	nav := m.Session.Nav

	m = send(m, runes("#"))
	m = typeText(m, "3")
	m = send(m, tea.KeyMsg{Type: tea.KeyEnter})
	nav.Wait()
	if nav.Index() != 2 || m.Mode != InputNone {
		t.Errorf("index = %d mode = %v, want 2 and closed", nav.Index(), m.Mode)
	}

	m = send(m, runes("g"))
	m = typeText(m, "42")
	m = send(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.Mode != InputGoToID {
		t.Error("prompt closed after an unknown ID")
	}
	if !strings.Contains(m.LastLog.Text, "42") {
		t.Errorf("status = %q, want the rejected ID", m.LastLog.Text)
	}
	m = send(m, tea.KeyMsg{Type: tea.KeyEsc})

	m = send(m, runes("g"))
	m = typeText(m, "2")
	m = send(m, tea.KeyMsg{Type: tea.KeyEnter})
	nav.Wait()
	if nav.Index() != 1 {
		t.Errorf("index = %d, want 1", nav.Index())
	}
}

func TestModel_RedshiftWithoutSpectrum(t *testing.T) {
	t.Parallel()
	m, _ := newModel(t)
	m = send(m, runes("z"))
	m = typeText(m, "1.25")
	m = send(m, tea.KeyMsg{Type: tea.KeyEnter})
	z, ok := m.Session.Nav.Review().Number(0, review.Redshift)
	if !ok || z != 1.25 {
		t.Errorf("redshift = %v, %v, want 1.25", z, ok)
	}

	m = send(m, runes("z"))
	if m.Input.Value() != "1.2500" {
		t.Errorf("prefill = %q, want the stored redshift", m.Input.Value())
	}
	m.Input.SetValue("")
	m = send(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.Mode != InputRedshift {
		t.Error("empty redshift without a spectrum closed the prompt")
	}
}

func TestModel_QuitSaves(t *testing.T) {
	t.Parallel()
	m, path := newModel(t)
	m = send(m, runes("s"))

	next, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
	_ = next

	rd, err := review.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if !rd.Bool(0, review.Starred) {
		t.Error("quit did not save the star")
	}
}

func TestModel_Screenshot(t *testing.T) {
	t.Parallel()
	m, _ := newModel(t)
	m = send(m, runes("p"))
	want := filepath.Join(m.ScreenshotDir, "review_ID1.png")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("screenshot not written: %v (status %q)", err, m.LastLog.Text)
	}
	if !strings.Contains(m.LastLog.Text, want) {
		t.Errorf("status = %q", m.LastLog.Text)
	}
}

func TestModel_SubsetKeysWithoutSubset(t *testing.T) {
	t.Parallel()
	m, _ := newModel(t)
	for _, k := range []string{"u", "U"} {
		m = send(m, runes(k))
		if m.LastLog.Text != navigation.ErrNoSubset.Error() {
			t.Errorf("%s: status = %q", k, m.LastLog.Text)
		}
	}
}

func TestModel_View(t *testing.T) {
	t.Parallel()
	m, _ := newModel(t)
	m = send(m, MsgLoaded{Outcome: m.Session.Nav.Wait()})
	view := m.View()
	for _, want := range []string{"review.csv", "Review", "Emission", "Contaminated", "Widgets", "Image", "obj_1.png"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModel_ViewWithoutProject(t *testing.T) {
	t.Parallel()
	s, err := session.New(config.Config{}, session.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	m := NewAppModel(s, nil)
	if m.View() != "initializing..." {
		t.Error("view before the first resize")
	}
	m = send(m, tea.WindowSizeMsg{Width: 80, Height: 20})
	if !strings.Contains(m.View(), "No inspection file open") {
		t.Error("empty session not reported")
	}
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("q without a project did not quit")
	}
}

func TestModel_LoadErrorShown(t *testing.T) {
	t.Parallel()
	m, _ := newModel(t)
	m = send(m, MsgLoaded{Outcome: navigation.Outcome{Err: errors.New("disk gone")}})
	if m.LastLog.Level != slog.LevelError || m.LastLog.Text != "disk gone" {
		t.Errorf("status = %+v", m.LastLog)
	}
	m = send(m, MsgLoaded{Outcome: navigation.Outcome{Err: navigation.ErrCancelled}})
	if m.LastLog.Text != "disk gone" {
		t.Error("cancelled load replaced the status")
	}
}

func TestPromptKeyMap(t *testing.T) {
	t.Parallel()
	km := PromptKeyMap()
	if km.Star.Enabled() || km.Flag.Enabled() || km.Comment.Enabled() {
		t.Error("printable keys enabled while a prompt has focus")
	}
	if !km.Next.Enabled() || !km.Save.Enabled() {
		t.Error("navigation and save disabled in prompts")
	}
}

func TestBridge(t *testing.T) {
	t.Parallel()
	b := NewBridge()

	b.OnLoad(navigation.Outcome{Err: navigation.ErrCancelled})
	msg, ok := b.Listen()().(MsgLoaded)
	if !ok || !errors.Is(msg.Outcome.Err, navigation.ErrCancelled) {
		t.Fatalf("Listen = %#v", msg)
	}

	log := slog.New(b.Handler(slog.LevelWarn, nil)).With("component", "loader")
	log.Info("hidden")
	log.Warn("widget disabled", "widget", "Image")
	got, ok := b.Listen()().(MsgLog)
	if !ok {
		t.Fatal("no log message")
	}
	if got.Level != slog.LevelWarn || got.Text != "widget disabled component=loader widget=Image" {
		t.Errorf("log = %+v", got)
	}

	// A full buffer drops instead of blocking.
	for range bridgeBuffer + 5 {
		b.OnLoad(navigation.Outcome{})
	}
}

func TestBridge_PassesThrough(t *testing.T) {
	t.Parallel()
	var sb strings.Builder
	next := slog.NewTextHandler(&sb, &slog.HandlerOptions{Level: slog.LevelDebug})
	h := NewBridge().Handler(slog.LevelError, next)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug disabled although the next handler accepts it")
	}
	slog.New(h).WithGroup("nav").Debug("switch", "to", 2)
	if !strings.Contains(sb.String(), "nav.to=2") {
		t.Errorf("next handler output = %q", sb.String())
	}
}

func TestStatusBarView(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		bar  StatusBar
		want []string
		not  []string
	}{
		{"title", StatusBar{Title: "review.csv – ID 1 [#1/3] – Specvizitor", Width: 80}, []string{"ID 1 [#1/3]"}, []string{"loading", "subset"}},
		{"loading", StatusBar{Title: "t", Loading: true, Width: 80}, []string{"loading"}, nil},
		{"paused subset", StatusBar{Title: "t", Subset: "sub.csv", Paused: true, Width: 80}, []string{"subset sub.csv (paused)"}, nil},
		{"narrow", StatusBar{Title: strings.Repeat("x", 100), Width: 30}, []string{"..."}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			view := tt.bar.View()
			for _, w := range tt.want {
				if !strings.Contains(view, w) {
					t.Errorf("view %q missing %q", view, w)
				}
			}
			for _, n := range tt.not {
				if strings.Contains(view, n) {
					t.Errorf("view %q contains %q", view, n)
				}
			}
		})
	}
}

func TestTruncateWithEllipsis(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"truncated text", 8, "trunc..."},
		{"abc", 2, "ab"},
		{"abc", 0, ""},
		{"λλλλλλ", 5, "λλ..."},
	}
	for _, tt := range tests {
		if got := TruncateWithEllipsis(tt.in, tt.n); got != tt.want {
			t.Errorf("TruncateWithEllipsis(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestFooterCompact(t *testing.T) {
	t.Parallel()
	km := DefaultKeyMap()
	wide := Footer{Width: 200, Bindings: BrowseFooterBindings(km)}.View()
	narrow := Footer{Width: 40, Bindings: BrowseFooterBindings(km)}.View()
	if !strings.Contains(wide, "screenshot") {
		t.Error("wide footer lacks descriptions")
	}
	if strings.Contains(narrow, "screenshot") {
		t.Error("compact footer shows descriptions")
	}
}

func TestObjectView(t *testing.T) {
	t.Parallel()
	v := ObjectView{
		Starred:     true,
		Flags:       []FlagState{{Key: 1, Label: "Emission", Set: true}},
		Comment:     "broad line",
		Redshift:    -1,
		HasRedshift: true,
		Columns:     []Field{{Name: "ra", Value: "150.1"}},
		Widgets: []viewer.WidgetStatus{
			{Title: "Image", Active: true, Path: "/data/obj_1.png"},
			{Title: "Spectrum 1D", Err: errors.New("file not found")},
		},
		Subset: "Subset: sub.csv\nObject: 1/2",
		Width:  100,
	}
	view := v.View()
	for _, want := range []string{iconStar, "[x]", "Emission", "broad line", "z:", "-", "ra", "150.1", "/data/obj_1.png", "file not found", "Object: 1/2"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}
