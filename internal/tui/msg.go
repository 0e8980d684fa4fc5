package tui

import (
	"log/slog"

	"github.com/papapumpkin/specvizitor/internal/navigation"
)

// MsgLoaded is sent when a background object load settles.
type MsgLoaded struct {
	Outcome navigation.Outcome
}

// MsgLog carries one log record for the status line.
type MsgLog struct {
	Level slog.Level
	Text  string
}

