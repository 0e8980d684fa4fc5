package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papapumpkin/specvizitor/internal/config"
	"github.com/papapumpkin/specvizitor/internal/session"
	"github.com/papapumpkin/specvizitor/internal/tui"
)

// inspectCmd launches the interactive inspector.
var inspectCmd = &cobra.Command{
	Use:   "inspect [inspection-file]",
	Short: "Open the interactive inspector",
	Long: `Open an inspection file in the terminal inspector. Without an argument the
file and object recorded in the session cache are resumed. Edits are saved
on ctrl+s and on quit. The config file is watched and the viewer is rebuilt
when it changes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().String("subset", "", "restrict navigation to the IDs of this catalogue")
	inspectCmd.Flags().String("screenshots", ".", "directory for screenshots")
	inspectCmd.Flags().String("log-file", "", "also write the log to this file")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	if !isStderrTTY() {
		return fmt.Errorf("specviz inspect requires a TTY (terminal)")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var next slog.Handler
	if path, _ := cmd.Flags().GetString("log-file"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		next = newLogger(f, cfg).Handler()
	}

	// The session reports into the bridge, which the program drains.
	bridge := tui.NewBridge()
	s, err := session.New(cfg, session.Options{
		Log:        slog.New(bridge.Handler(slog.LevelInfo, next)),
		OnLoad:     bridge.OnLoad,
		ConfigFile: viper.ConfigFileUsed(),
		Reload:     reloadConfig,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), err)
		}
	}()

	if err := openProject(s, args); err != nil {
		return err
	}
	if subset, _ := cmd.Flags().GetString("subset"); subset != "" {
		if err := s.Nav.LoadSubset(subset); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()
	go func() {
		if err := s.Watch(ctx); err != nil {
			s.Log.Warn("config watcher stopped", "error", err)
		}
	}()

	dir, _ := cmd.Flags().GetString("screenshots")
	return tui.Run(s, bridge, dir)
}

// openProject opens the named inspection file or resumes the cached one.
// With neither, the inspector starts empty.
func openProject(s *session.Session, args []string) error {
	if len(args) == 1 {
		return s.Open(args[0])
	}
	_, err := s.Resume()
	return err
}
