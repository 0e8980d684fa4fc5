package review

import (
	"slices"
	"strings"
	"unicode"
)

// Checkbox is the review-form entry for one flag column.
type Checkbox struct {
	Column string
	Label  string
}

// Checkboxes returns one entry per flag column, labelled with the
// capitalized column name. overrides relabels user-defined columns; an
// overridden user-defined column that is not a flag column gets an entry
// too, after the flags in column order.
func (d *Data) Checkboxes(overrides map[string]string) []Checkbox {
	flags := d.FlagColumns()
	var boxes []Checkbox
	for _, name := range flags {
		label := capitalize(name)
		if l, ok := overrides[name]; ok {
			label = l
		}
		boxes = append(boxes, Checkbox{Column: name, Label: label})
	}
	for _, name := range d.UserDefinedColumns() {
		if l, ok := overrides[name]; ok && !slices.Contains(flags, name) {
			boxes = append(boxes, Checkbox{Column: name, Label: l})
		}
	}
	return boxes
}

func capitalize(s string) string {
	r := []rune(strings.ToLower(s))
	if len(r) > 0 {
		r[0] = unicode.ToUpper(r[0])
	}
	return string(r)
}
