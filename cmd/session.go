package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/specvizitor/internal/cache"
	"github.com/papapumpkin/specvizitor/internal/config"
	"github.com/papapumpkin/specvizitor/internal/session"
)

// batchConfig loads the configuration for a non-interactive command.
// Objects load without the grace delay and the session cache is left
// untouched, so a batch run never moves the resume position.
func batchConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Loading.GraceMS = 0
	cfg.Cache.Path = ""
	return cfg, nil
}

// openBatch builds a batch session over the inspection file at path.
// The caller closes it.
func openBatch(cmd *cobra.Command, path string) (*session.Session, error) {
	cfg, err := batchConfig()
	if err != nil {
		return nil, err
	}
	s, err := session.New(cfg, session.Options{Log: newLogger(cmd.ErrOrStderr(), cfg)})
	if err != nil {
		return nil, err
	}
	if err := s.Open(path); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// hasResumable reports whether the cache names an existing inspection file.
func hasResumable(cfg config.Config) bool {
	cc, err := cache.Load(cfg.Cache.Path)
	if err != nil || cc.LastInspectionFile == "" {
		return false
	}
	_, err = os.Stat(cc.LastInspectionFile)
	return err == nil
}

// isStderrTTY returns true if stderr is connected to a terminal.
func isStderrTTY() bool {
	stat, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// commandContext returns the context of cmd, or a background context when
// the command was invoked directly rather than through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
