package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/specvizitor/internal/session"
)

// newCmd creates an inspection file.
var newCmd = &cobra.Command{
	Use:   "new <inspection-file>",
	Short: "Create an inspection file",
	Long: `Create an inspection file with one row per object of the configured
catalogue. Without a catalogue the objects are the IDs found in the data
directory. Flag columns come from review.flags unless --flag is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runNew,
}

func init() {
	newCmd.Flags().StringSlice("flag", nil, "flag column to add (repeatable)")
	rootCmd.AddCommand(newCmd)
}

func runNew(cmd *cobra.Command, args []string) error {
	cfg, err := batchConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("flag") {
		cfg.Review.Flags, _ = cmd.Flags().GetStringSlice("flag")
	}

	s, err := session.New(cfg, session.Options{Log: newLogger(cmd.ErrOrStderr(), cfg)})
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Create(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s with %d objects\n", args[0], s.Nav.Review().Len())
	return nil
}
