package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/specvizitor/internal/review"
)

// errHasData refuses to delete a column that holds review results.
var errHasData = errors.New("column has non-default values (use --force to delete anyway)")

var columnsCmd = &cobra.Command{
	Use:   "columns <inspection-file>",
	Short: "List or edit the review columns of an inspection file",
	Long: `Without a subcommand, print the columns of an inspection file with their
types. The add, rename and delete subcommands change the schema in place;
all other data is kept.`,
	Args: cobra.ExactArgs(1),
	RunE: runColumnsList,
}

var columnsAddCmd = &cobra.Command{
	Use:   "add <inspection-file> <name>",
	Short: "Add a flag column",
	Args:  cobra.ExactArgs(2),
	RunE:  runColumnsAdd,
}

var columnsRenameCmd = &cobra.Command{
	Use:   "rename <inspection-file> <old> <new>",
	Short: "Rename a user-defined column",
	Args:  cobra.ExactArgs(3),
	RunE:  runColumnsRename,
}

var columnsDeleteCmd = &cobra.Command{
	Use:   "delete <inspection-file> <name>",
	Short: "Delete a user-defined column",
	Long: `Delete a user-defined column. A column that holds any non-default value
is only deleted with --force.`,
	Args: cobra.ExactArgs(2),
	RunE: runColumnsDelete,
}

func init() {
	columnsDeleteCmd.Flags().Bool("force", false, "delete even if the column holds data")

	columnsCmd.AddCommand(columnsAddCmd)
	columnsCmd.AddCommand(columnsRenameCmd)
	columnsCmd.AddCommand(columnsDeleteCmd)
	rootCmd.AddCommand(columnsCmd)
}

func runColumnsList(cmd *cobra.Command, args []string) error {
	rd, err := review.Read(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, name := range rd.Columns() {
		kind, _ := rd.Kind(name)
		fmt.Fprintf(out, "%s\t%s\n", name, kind)
	}
	return nil
}

func runColumnsAdd(cmd *cobra.Command, args []string) error {
	return editColumns(cmd, args[0], func(rd *review.Data) error {
		return rd.AddFlagColumn(args[1])
	}, "added "+args[1])
}

func runColumnsRename(cmd *cobra.Command, args []string) error {
	return editColumns(cmd, args[0], func(rd *review.Data) error {
		return rd.RenameColumn(args[1], args[2])
	}, fmt.Sprintf("renamed %s to %s", args[1], args[2]))
}

func runColumnsDelete(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	return editColumns(cmd, args[0], func(rd *review.Data) error {
		return deleteColumn(rd, args[1], force)
	}, "deleted "+args[1])
}

// deleteColumn removes name, refusing unless force when it holds data.
func deleteColumn(rd *review.Data, name string, force bool) error {
	if !force && rd.HasNonDefault(name) {
		return fmt.Errorf("`%s`: %w", name, errHasData)
	}
	return rd.DeleteColumn(name)
}

// editColumns reads the inspection file, applies edit and saves it back.
// The file is left untouched when edit fails.
func editColumns(cmd *cobra.Command, path string, edit func(*review.Data) error, done string) error {
	rd, err := review.Read(path)
	if err != nil {
		return err
	}
	if err := edit(rd); err != nil {
		return err
	}
	if err := rd.Save(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s in %s\n", done, path)
	return nil
}
