package review

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/papapumpkin/specvizitor/internal/objid"
)

// Read parses an inspection file. Files written by older releases may lack
// `starred` or `comment`; both are backfilled with their defaults. Columns
// are reordered to defaults first, then user-defined columns in file order.
func Read(path string) (*Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading inspection file: %w", err)
	}
	defer f.Close()

	d, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing inspection file %s: %w", path, err)
	}
	return d, nil
}

func parse(r io.Reader) (*Data, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoIDColumn
	}
	header, rows := records[0], records[1:]

	idCol := -1
	for i, name := range header {
		if strings.TrimSpace(name) == "id" {
			idCol = i
			break
		}
	}
	if idCol < 0 {
		return nil, ErrNoIDColumn
	}

	raw := make([]string, len(rows))
	for j, rec := range rows {
		raw[j] = strings.TrimSpace(rec[idCol])
	}
	d, err := newData(objid.ParseAll(raw))
	if err != nil {
		return nil, err
	}

	var user []*column
	var starred, comment *column
	for i, name := range header {
		if i == idCol {
			continue
		}
		name = strings.TrimSpace(name)
		cells := make([]string, len(rows))
		for j, rec := range rows {
			cells[j] = rec[i]
		}
		c, err := parseColumn(name, cells)
		if err != nil {
			return nil, err
		}
		switch name {
		case Starred:
			starred = c
		case Comment:
			comment = c
		default:
			user = append(user, c)
		}
	}

	if starred == nil {
		starred = newColumn(Starred, Bool, d.Len(), 0)
	}
	if comment == nil {
		comment = newColumn(Comment, Text, d.Len(), 0)
	}
	d.addColumn(starred)
	d.addColumn(comment)
	for _, c := range user {
		if _, dup := d.byName[c.name]; dup {
			return nil, fmt.Errorf("%w: `%s`", ErrColumnExists, c.name)
		}
		d.addColumn(c)
	}
	return d, nil
}

// parseColumn types a column: starred is boolean, comment is text, and
// other columns are boolean when every non-empty cell is True/False,
// numeric when every cell parses as a number, text otherwise.
func parseColumn(name string, cells []string) (*column, error) {
	kind := inferKind(cells)
	switch name {
	case Starred:
		kind = Bool
	case Comment:
		kind = Text
	}

	c := newColumn(name, kind, len(cells), math.NaN())
	for j, s := range cells {
		t := strings.TrimSpace(s)
		switch kind {
		case Bool:
			if t == "" {
				continue
			}
			b, ok := parseBool(t)
			if !ok {
				return nil, fmt.Errorf("%w: `%s` row %d: %q is not a boolean", ErrColumnType, name, j, s)
			}
			c.bools[j] = b
		case Number:
			if t == "" {
				continue
			}
			f, err := strconv.ParseFloat(t, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: `%s` row %d: %q is not a number", ErrColumnType, name, j, s)
			}
			c.nums[j] = f
		case Text:
			c.texts[j] = s
		}
	}
	return c, nil
}

func inferKind(cells []string) Kind {
	allBool, allNum, seen := true, true, false
	for _, s := range cells {
		t := strings.TrimSpace(s)
		if t == "" {
			continue
		}
		seen = true
		if _, ok := parseBool(t); !ok {
			allBool = false
		}
		if _, err := strconv.ParseFloat(t, 64); err != nil {
			allNum = false
		}
	}
	switch {
	case !seen:
		return Number
	case allBool:
		return Bool
	case allNum:
		return Number
	}
	return Text
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

func formatCell(c *column, j int) string {
	switch c.kind {
	case Bool:
		if c.bools[j] {
			return "True"
		}
		return "False"
	case Text:
		return c.texts[j]
	}
	if math.IsNaN(c.nums[j]) {
		return ""
	}
	return strconv.FormatFloat(c.nums[j], 'g', -1, 64)
}

// Save writes the whole table as CSV atomically (write temp + rename). The
// index column is labelled `id`.
func (d *Data) Save(path string) error {
	var buf bytes.Buffer
	if err := d.encodeCSV(&buf); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing temp inspection file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming inspection file: %w", err)
	}
	return nil
}

func (d *Data) encodeCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := append([]string{"id"}, d.Columns()...)
	if err := cw.Write(header); err != nil {
		return err
	}
	rec := make([]string, len(header))
	for j, id := range d.ids {
		rec[0] = id.String()
		for i, c := range d.columns {
			rec[i+1] = formatCell(c, j)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("encoding inspection CSV: %w", err)
	}
	return nil
}
