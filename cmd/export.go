package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/specvizitor/internal/review"
)

// exportCmd writes an inspection file in another format.
var exportCmd = &cobra.Command{
	Use:   "export <inspection-file> <output>",
	Short: "Export an inspection file",
	Long: fmt.Sprintf(`Write the review table of an inspection file to another file. The format
is taken from --format or from the output extension (.db and .sqlite are
sqlite, .fits and .fit are fits). Formats: %s.`, strings.Join(review.Formats(), ", ")),
	Args: cobra.ExactArgs(2),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().String("format", "", "output format (default from the output extension)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	rd, err := review.Read(args[0])
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	if format == "" {
		format = formatFromExt(args[1])
	}
	if err := rd.Write(commandContext(cmd), args[1], format); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported %d objects to %s (%s)\n", rd.Len(), args[1], format)
	return nil
}

// formatFromExt maps an output file name to an export format. Unknown
// extensions are passed through so Write can name the supported formats.
func formatFromExt(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "db", "sqlite", "sqlite3":
		return "sqlite"
	case "fit", "fits":
		return "fits"
	default:
		return ext
	}
}
