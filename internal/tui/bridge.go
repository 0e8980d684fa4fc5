package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/papapumpkin/specvizitor/internal/navigation"
)

// bridgeBuffer bounds the number of undelivered messages. Further messages
// are dropped until the program catches up.
const bridgeBuffer = 64

// Bridge carries events from background goroutines into the program.
// It exists before the program does, so the session can be built with the
// bridge's callbacks and the model can subscribe once it starts.
type Bridge struct {
	events chan tea.Msg
}

// NewBridge creates a bridge with an empty buffer.
func NewBridge() *Bridge {
	return &Bridge{events: make(chan tea.Msg, bridgeBuffer)}
}

// OnLoad forwards a load outcome. It matches navigation.Options.OnLoad.
func (b *Bridge) OnLoad(o navigation.Outcome) {
	b.send(MsgLoaded{Outcome: o})
}

func (b *Bridge) send(msg tea.Msg) {
	select {
	case b.events <- msg:
	default:
	}
}

// Listen returns a command that waits for the next bridged message.
// The model re-issues it after each message.
func (b *Bridge) Listen() tea.Cmd {
	return func() tea.Msg { return <-b.events }
}

// Handler returns a slog handler that shows records at level and above on
// the status line and passes every record on to next. next may be nil.
func (b *Bridge) Handler(level slog.Level, next slog.Handler) slog.Handler {
	return &statusHandler{bridge: b, level: level, next: next}
}

type statusHandler struct {
	bridge *Bridge
	level  slog.Level
	next   slog.Handler
	attrs  []slog.Attr
	group  string
}

func (h *statusHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level || (h.next != nil && h.next.Enabled(ctx, level))
}

func (h *statusHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.level {
		h.bridge.send(MsgLog{Level: r.Level, Text: h.format(r)})
	}
	if h.next != nil && h.next.Enabled(ctx, r.Level) {
		return h.next.Handle(ctx, r)
	}
	return nil
}

func (h *statusHandler) format(r slog.Record) string {
	var sb strings.Builder
	sb.WriteString(r.Message)
	write := func(a slog.Attr) {
		if a.Equal(slog.Attr{}) {
			return
		}
		k := a.Key
		if h.group != "" {
			k = h.group + "." + k
		}
		fmt.Fprintf(&sb, " %s=%v", k, a.Value.Resolve())
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		write(a)
		return true
	})
	return sb.String()
}

func (h *statusHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	if h.next != nil {
		c.next = h.next.WithAttrs(attrs)
	}
	return &c
}

func (h *statusHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.group = name
	if h.group != "" {
		c.group = h.group + "." + name
	}
	if h.next != nil {
		c.next = h.next.WithGroup(name)
	}
	return &c
}
