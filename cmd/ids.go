package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/specvizitor/internal/config"
	"github.com/papapumpkin/specvizitor/internal/datadir"
)

// idsCmd lists the object IDs found in the data directory.
var idsCmd = &cobra.Command{
	Use:   "ids",
	Short: "List the object IDs found in the data directory",
	Long: `Scan the data directory and print one object ID per line. An ID is the
longest match of the ID pattern in a file name. IDs are sorted numerically
when all of them are integers.`,
	Args: cobra.NoArgs,
	RunE: runIDs,
}

func init() {
	idsCmd.Flags().String("dir", "", "data directory (default data.dir)")
	idsCmd.Flags().String("pattern", "", "ID pattern (default data.id_pattern)")
	idsCmd.Flags().Bool("recursive", false, "scan subdirectories")
	rootCmd.AddCommand(idsCmd)
}

func runIDs(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	dir, pattern, recursive := cfg.Data.Dir, cfg.Data.IDPattern, cfg.Data.Recursive
	if v, _ := cmd.Flags().GetString("dir"); v != "" {
		dir = v
	}
	if v, _ := cmd.Flags().GetString("pattern"); v != "" {
		pattern = v
	}
	if cmd.Flags().Changed("recursive") {
		recursive, _ = cmd.Flags().GetBool("recursive")
	}

	ids, err := datadir.IDsFromDir(dir, pattern, recursive)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, id := range ids {
		fmt.Fprintln(out, id)
	}
	return nil
}
