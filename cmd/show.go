package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/specvizitor/internal/viewer"
)

// showCmd prints one object of an inspection file.
var showCmd = &cobra.Command{
	Use:   "show <inspection-file> <id>",
	Short: "Print the review, catalogue entry and data files of one object",
	Args:  cobra.ExactArgs(2),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	s, err := openBatch(cmd, args[0])
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Nav.GoToID(args[1]); err != nil {
		return err
	}
	out := s.Nav.Wait()
	if out.Err != nil {
		return out.Err
	}
	r := buildReport(out.Delivery, s.Nav.Review().Len(), s.Config().ObjectInfo.Columns)

	if jsonFlag, _ := cmd.Flags().GetBool("json"); jsonFlag {
		return writeReportJSON(cmd.OutOrStdout(), r)
	}
	return writeReportText(cmd.OutOrStdout(), r)
}

// objectReport is the printable state of one object.
type objectReport struct {
	ID        string         `json:"id"`
	Index     int            `json:"index"` // 1-based
	Objects   int            `json:"objects"`
	Review    []reportField  `json:"review"`
	Catalogue []reportField  `json:"catalogue,omitempty"`
	Widgets   []reportWidget `json:"widgets"`
}

type reportField struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type reportWidget struct {
	Title  string `json:"title"`
	Active bool   `json:"active"`
	Path   string `json:"path,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// buildReport collects the review row, the requested catalogue columns
// (all of them when none are requested) and the widget statuses of d.
func buildReport(d viewer.Delivery, objects int, columns []string) objectReport {
	obj := d.Object
	r := objectReport{ID: obj.ID.String(), Index: obj.Index + 1, Objects: objects}

	if rd := obj.Review; rd != nil {
		for _, name := range rd.Columns() {
			v, err := rd.Value(obj.Index, name)
			if err != nil {
				continue
			}
			r.Review = append(r.Review, reportField{Name: name, Value: jsonSafe(v)})
		}
	}

	if entry := obj.Entry; entry != nil {
		if len(columns) == 0 {
			columns = entry.Colnames()
		}
		for _, name := range columns {
			v, err := entry.Value(name)
			if err != nil {
				continue
			}
			r.Catalogue = append(r.Catalogue, reportField{Name: name, Value: jsonSafe(v)})
		}
	}

	for _, w := range d.Widgets {
		rw := reportWidget{Title: w.Title, Active: w.Active, Path: w.Path}
		if !w.Active {
			rw.Reason = "no data"
			if w.Err != nil {
				rw.Reason = w.Err.Error()
			}
		}
		r.Widgets = append(r.Widgets, rw)
	}
	return r
}

// jsonSafe replaces non-finite floats, which JSON cannot encode, by nil.
func jsonSafe(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
	case float32:
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return nil
		}
	}
	return v
}

// writeReportJSON encodes r as indented JSON.
func writeReportJSON(w io.Writer, r objectReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// writeReportText prints r as aligned name/value sections.
func writeReportText(w io.Writer, r objectReport) error {
	var b strings.Builder
	fmt.Fprintf(&b, "ID %s [#%d/%d]\n", r.ID, r.Index, r.Objects)
	writeFields(&b, "review", r.Review)
	writeFields(&b, "catalogue", r.Catalogue)
	b.WriteString("\nwidgets\n")
	for _, wd := range r.Widgets {
		if wd.Active {
			fmt.Fprintf(&b, "  ✓ %s  %s\n", wd.Title, wd.Path)
		} else {
			fmt.Fprintf(&b, "  ✗ %s  %s\n", wd.Title, wd.Reason)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeFields(b *strings.Builder, title string, fields []reportField) {
	if len(fields) == 0 {
		return
	}
	width := 0
	for _, f := range fields {
		width = max(width, len(f.Name))
	}
	fmt.Fprintf(b, "\n%s\n", title)
	for _, f := range fields {
		v := f.Value
		if v == nil {
			v = "-"
		}
		fmt.Fprintf(b, "  %-*s  %v\n", width, f.Name, v)
	}
}
