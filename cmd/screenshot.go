package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/specvizitor/internal/review"
	"github.com/papapumpkin/specvizitor/internal/session"
)

// screenshotCmd renders objects to PNG without the inspector.
var screenshotCmd = &cobra.Command{
	Use:   "screenshot <inspection-file> [id...]",
	Short: "Save PNG screenshots of objects",
	Long: `Load each object and save a screenshot of its active widgets as
<inspection file>_ID<id>.png. Without IDs every object is rendered, or only
the starred ones with --starred. An object without any data is reported
and the remaining objects are still rendered.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScreenshot,
}

func init() {
	screenshotCmd.Flags().String("out", ".", "output directory")
	screenshotCmd.Flags().Bool("starred", false, "only starred objects")
	rootCmd.AddCommand(screenshotCmd)
}

func runScreenshot(cmd *cobra.Command, args []string) error {
	s, err := openBatch(cmd, args[0])
	if err != nil {
		return err
	}
	defer s.Close()

	dir, _ := cmd.Flags().GetString("out")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	starred, _ := cmd.Flags().GetBool("starred")

	ids := args[1:]
	if len(ids) == 0 {
		ids = objectIDs(s, starred)
	}

	var errs []error
	saved := 0
	for _, id := range ids {
		path, err := screenshotOne(s, id, dir)
		if err != nil {
			errs = append(errs, fmt.Errorf("ID %s: %w", id, err))
			continue
		}
		saved++
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	s.Log.Info("screenshots done", "saved", saved, "failed", len(errs))
	return errors.Join(errs...)
}

// objectIDs lists the IDs of the open inspection file in row order.
func objectIDs(s *session.Session, starredOnly bool) []string {
	rd := s.Nav.Review()
	var ids []string
	for j, id := range rd.IDs() {
		if starredOnly && !rd.Bool(j, review.Starred) {
			continue
		}
		ids = append(ids, id.String())
	}
	return ids
}

// screenshotOne selects id, waits for its data and renders it into dir.
func screenshotOne(s *session.Session, id, dir string) (string, error) {
	if err := s.Nav.GoToID(id); err != nil {
		return "", err
	}
	if out := s.Nav.Wait(); out.Err != nil {
		return "", out.Err
	}
	return s.Screenshot(dir)
}
