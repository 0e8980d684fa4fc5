package catalog

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/papapumpkin/specvizitor/internal/objid"
)

// Column is one named catalogue column. Cells hold int64, float64, string
// or bool values; a nil cell is missing.
type Column struct {
	Name   string
	values []any
}

// NewColumn builds a column, normalizing numeric cells to int64 or float64
// and trimming the padding of string cells.
func NewColumn(name string, values []any) *Column {
	norm := make([]any, len(values))
	for i, v := range values {
		norm[i] = normalize(v)
	}
	return &Column{Name: name, values: norm}
}

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.values) }

// Value returns the raw cell value.
func (c *Column) Value(i int) any { return c.values[i] }

// Missing reports whether cell i is absent: nil, NaN, or an empty string.
func (c *Column) Missing(i int) bool {
	switch v := c.values[i].(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(v)
	case string:
		return v == ""
	}
	return false
}

// Float returns cell i as a float. Strings are parsed; bools and missing
// cells report false.
func (c *Column) Float(i int) (float64, bool) {
	switch v := c.values[i].(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, !math.IsNaN(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

// Text formats cell i. Missing cells format as the empty string.
func (c *Column) Text(i int) string {
	if c.Missing(i) {
		return ""
	}
	switch v := c.values[i].(type) {
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return v
	}
	return fmt.Sprint(c.values[i])
}

// ID returns cell i as an object ID. Integral floats become integer IDs.
func (c *Column) ID(i int) (objid.ID, bool) {
	if c.Missing(i) {
		return objid.ID{}, false
	}
	switch v := c.values[i].(type) {
	case int64:
		return objid.Int(v), true
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return objid.Int(int64(v)), true
		}
		return objid.String(c.Text(i)), true
	case string:
		return objid.Parse(v), true
	}
	return objid.Parse(c.Text(i)), true
}

// take returns a new column holding the given rows in order.
func (c *Column) take(rows []int) *Column {
	vals := make([]any, len(rows))
	for i, r := range rows {
		vals[i] = c.values[r]
	}
	return &Column{Name: c.Name, values: vals}
}

func normalize(v any) any {
	switch x := v.(type) {
	case nil, int64, float64, bool:
		return v
	case string:
		return strings.TrimRight(x, " \x00")
	case float32:
		return float64(x)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	}
	return v
}

// inferColumn types the raw text cells of a CSV column: integers first,
// then floats, then booleans, falling back to strings. Empty cells are missing.
func inferColumn(name string, raw []string) *Column {
	vals := make([]any, len(raw))
	kinds := []func(string) (any, bool){parseInt, parseFloat, parseBool}
	for _, parse := range kinds {
		ok := true
		for i, s := range raw {
			s = strings.TrimSpace(s)
			if s == "" {
				vals[i] = nil
				continue
			}
			v, good := parse(s)
			if !good {
				ok = false
				break
			}
			vals[i] = v
		}
		if ok {
			return &Column{Name: name, values: vals}
		}
	}
	for i, s := range raw {
		if s == "" {
			vals[i] = nil
		} else {
			vals[i] = s
		}
	}
	return &Column{Name: name, values: vals}
}

func parseInt(s string) (any, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}

func parseFloat(s string) (any, bool) {
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

func parseBool(s string) (any, bool) {
	switch strings.ToLower(s) {
	case "true", "t":
		return true, true
	case "false", "f":
		return false, true
	}
	return nil, false
}
