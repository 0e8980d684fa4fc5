package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papapumpkin/specvizitor/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "specviz",
	Short: "Visual inspection of astronomical objects",
	Long: `Specviz steps through the objects of a catalogue, shows their images and
spectra, and records flags, comments and redshifts in an inspection file.`,
	SilenceUsage: true,
	RunE:         runRootDefault,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default .specviz.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile, _ := rootCmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".specviz")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("SPECVIZ")
	viper.SetEnvKeyReplacer(config.EnvReplacer())
	viper.AutomaticEnv()

	// It's fine if no config file is found; we use defaults.
	_ = viper.ReadInConfig()
}

// runRootDefault opens the inspector when the cache names an inspection
// file to resume, and shows help otherwise.
func runRootDefault(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !hasResumable(cfg) {
		return cmd.Help()
	}
	return runInspect(inspectCmd, nil)
}

// newLogger builds the stderr text logger of batch commands.
func newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// reloadConfig re-reads the config file and decodes it again.
func reloadConfig() (config.Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		return config.Config{}, fmt.Errorf("reading %s: %w", viper.ConfigFileUsed(), err)
	}
	return config.Load()
}
