// Package review holds the inspection results: one row per object with the
// fixed `starred` and `comment` columns, user-defined boolean flags and
// numeric fields such as `redshift`. The table is persisted as CSV with an
// explicit `id` index column.
package review

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/papapumpkin/specvizitor/internal/objid"
)

// Fixed column names.
const (
	Starred  = "starred"
	Comment  = "comment"
	Redshift = "redshift"
)

// RedshiftFill marks an unmeasured redshift.
const RedshiftFill = -1.0

var (
	// ErrUnknownColumn indicates the named column does not exist.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrColumnExists indicates a column with that name already exists.
	ErrColumnExists = errors.New("column already exists")
	// ErrColumnType indicates a value does not fit the column's type.
	ErrColumnType = errors.New("value does not match the column type")
	// ErrDefaultColumn indicates an attempt to rename or delete starred or comment.
	ErrDefaultColumn = errors.New("default columns cannot be renamed or deleted")
	// ErrDuplicateID indicates the inspection file repeats an ID.
	ErrDuplicateID = errors.New("duplicate ID in the inspection file")
	// ErrNotFound indicates an ID is not in the store.
	ErrNotFound = errors.New("ID not found")
	// ErrInvalidID indicates an ID that cannot be coerced to the store's ID type.
	ErrInvalidID = errors.New("invalid ID")
	// ErrIndexOutOfRange indicates a row index outside the store.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrNoIDColumn indicates the inspection file lacks an `id` column.
	ErrNoIDColumn = errors.New("inspection file has no `id` column")
)

// Kind is the type of a review column.
type Kind int

// Column kinds.
const (
	Bool Kind = iota
	Text
	Number
)

// String returns the column type name.
func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Text:
		return "text"
	case Number:
		return "number"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

type column struct {
	name  string
	kind  Kind
	bools []bool
	texts []string
	nums  []float64
}

func newColumn(name string, kind Kind, n int, fill float64) *column {
	c := &column{name: name, kind: kind}
	switch kind {
	case Bool:
		c.bools = make([]bool, n)
	case Text:
		c.texts = make([]string, n)
	case Number:
		c.nums = make([]float64, n)
		for i := range c.nums {
			c.nums[i] = fill
		}
	}
	return c
}

func (c *column) value(j int) any {
	switch c.kind {
	case Bool:
		return c.bools[j]
	case Text:
		return c.texts[j]
	}
	return c.nums[j]
}

func (c *column) isDefault(j int) bool {
	switch c.kind {
	case Bool:
		return !c.bools[j]
	case Text:
		return c.texts[j] == ""
	}
	v := c.nums[j]
	return math.IsNaN(v) || (c.name == Redshift && v == RedshiftFill)
}

// Data is the in-memory review table. It has a single writer: the
// navigation controller's active-object edit path.
type Data struct {
	ids     []objid.ID
	pos     map[objid.ID]int
	idsInt  bool
	columns []*column
	byName  map[string]*column
}

// Create builds a review table sorted by ID with the default columns plus
// one false-initialized flag column per name in flags.
func Create(ids []objid.ID, flags []string) (*Data, error) {
	sorted := objid.SortUnique(slices.Clone(ids))
	d, err := newData(sorted)
	if err != nil {
		return nil, err
	}
	d.addColumn(newColumn(Starred, Bool, len(sorted), 0))
	d.addColumn(newColumn(Comment, Text, len(sorted), 0))
	for _, name := range flags {
		if err := d.AddFlagColumn(name); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func newData(ids []objid.ID) (*Data, error) {
	d := &Data{ids: ids, pos: make(map[objid.ID]int, len(ids)), idsInt: len(ids) > 0, byName: make(map[string]*column)}
	for j, id := range ids {
		if _, dup := d.pos[id]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		d.pos[id] = j
		if !id.IsInt() {
			d.idsInt = false
		}
	}
	return d, nil
}

func (d *Data) addColumn(c *column) {
	d.columns = append(d.columns, c)
	d.byName[c.name] = c
}

// Len returns the number of objects under inspection.
func (d *Data) Len() int { return len(d.ids) }

// IDs returns the object IDs in row order.
func (d *Data) IDs() []objid.ID { return slices.Clone(d.ids) }

// IDsAreInt reports whether the ID column is numeric.
func (d *Data) IDsAreInt() bool { return d.idsInt }

// ID returns the ID of row j.
func (d *Data) ID(j int) (objid.ID, error) {
	if j < 0 || j >= len(d.ids) {
		return objid.ID{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, j)
	}
	return d.ids[j], nil
}

// Loc returns the row of id.
func (d *Data) Loc(id objid.ID) (int, error) {
	if d.idsInt {
		id = objid.Parse(id.String())
	} else {
		id = objid.String(id.String())
	}
	j, ok := d.pos[id]
	if !ok {
		return 0, fmt.Errorf("%w: `%s`", ErrNotFound, id)
	}
	return j, nil
}

// ValidateID parses raw into an ID of the store's type and checks that it
// is present.
func (d *Data) ValidateID(raw string) (objid.ID, error) {
	raw = strings.TrimSpace(raw)
	id := objid.String(raw)
	if d.idsInt {
		id = objid.Parse(raw)
		if !id.IsInt() {
			return objid.ID{}, fmt.Errorf("%w: %s", ErrInvalidID, raw)
		}
	}
	if _, ok := d.pos[id]; !ok {
		return objid.ID{}, fmt.Errorf("%w: `%s`", ErrNotFound, raw)
	}
	return id, nil
}

// ValidateIndex checks a 1-based index against the store size.
func (d *Data) ValidateIndex(index int) error {
	if index <= 0 || index > len(d.ids) {
		return fmt.Errorf("%w: `%d`", ErrIndexOutOfRange, index)
	}
	return nil
}

// Columns returns all column names in canonical order.
func (d *Data) Columns() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.name
	}
	return names
}

// DefaultColumns returns the fixed columns.
func (d *Data) DefaultColumns() []string { return []string{Starred, Comment} }

// UserDefinedColumns returns every column other than starred and comment.
func (d *Data) UserDefinedColumns() []string {
	var names []string
	for _, c := range d.columns {
		if !isDefaultColumn(c.name) {
			names = append(names, c.name)
		}
	}
	return names
}

// FlagColumns returns the user-defined boolean columns.
func (d *Data) FlagColumns() []string {
	var names []string
	for _, c := range d.columns {
		if !isDefaultColumn(c.name) && c.kind == Bool {
			names = append(names, c.name)
		}
	}
	return names
}

// Kind returns the type of column name.
func (d *Data) Kind(name string) (Kind, error) {
	c, err := d.column(name)
	if err != nil {
		return 0, err
	}
	return c.kind, nil
}

func isDefaultColumn(name string) bool { return name == Starred || name == Comment }

func (d *Data) column(name string) (*column, error) {
	c, ok := d.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: `%s`", ErrUnknownColumn, name)
	}
	return c, nil
}

func (d *Data) checkRow(j int) error {
	if j < 0 || j >= len(d.ids) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, j)
	}
	return nil
}

// Value returns the cell at row j: a bool, string or float64.
func (d *Data) Value(j int, name string) (any, error) {
	c, err := d.column(name)
	if err != nil {
		return nil, err
	}
	if err := d.checkRow(j); err != nil {
		return nil, err
	}
	return c.value(j), nil
}

// Bool returns a boolean cell. It is false for unknown columns.
func (d *Data) Bool(j int, name string) bool {
	v, _ := d.Value(j, name)
	b, _ := v.(bool)
	return b
}

// Text returns a text cell. It is empty for unknown columns.
func (d *Data) Text(j int, name string) string {
	v, _ := d.Value(j, name)
	s, _ := v.(string)
	return s
}

// Number returns a numeric cell and whether it holds a measurement.
func (d *Data) Number(j int, name string) (float64, bool) {
	c, err := d.column(name)
	if err != nil || c.kind != Number || d.checkRow(j) != nil {
		return 0, false
	}
	return c.nums[j], !c.isDefault(j)
}

// UpdateValue sets the cell at row j. Boolean columns accept only bools,
// text columns only strings, numeric columns any Go number.
func (d *Data) UpdateValue(j int, name string, value any) error {
	c, err := d.column(name)
	if err != nil {
		return err
	}
	if err := d.checkRow(j); err != nil {
		return err
	}
	switch c.kind {
	case Bool:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%w: `%s` is %s, got %T", ErrColumnType, name, c.kind, value)
		}
		c.bools[j] = b
	case Text:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: `%s` is %s, got %T", ErrColumnType, name, c.kind, value)
		}
		c.texts[j] = s
	case Number:
		f, ok := toFloat(value)
		if !ok {
			return fmt.Errorf("%w: `%s` is %s, got %T", ErrColumnType, name, c.kind, value)
		}
		c.nums[j] = f
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	}
	return 0, false
}

// AddFlagColumn appends a false-initialized boolean column.
func (d *Data) AddFlagColumn(name string) error {
	return d.addNew(name, Bool, 0)
}

// EnsureNumberColumn appends a numeric column filled with fill unless a
// column of that name already exists. An existing non-numeric column is
// an error.
func (d *Data) EnsureNumberColumn(name string, fill float64) error {
	if c, ok := d.byName[name]; ok {
		if c.kind != Number {
			return fmt.Errorf("%w: `%s` is %s", ErrColumnType, name, c.kind)
		}
		return nil
	}
	return d.addNew(name, Number, fill)
}

func (d *Data) addNew(name string, kind Kind, fill float64) error {
	name = strings.TrimSpace(name)
	if name == "" || name == "id" {
		return fmt.Errorf("invalid column name %q", name)
	}
	if _, ok := d.byName[name]; ok {
		return fmt.Errorf("%w: `%s`", ErrColumnExists, name)
	}
	d.addColumn(newColumn(name, kind, len(d.ids), fill))
	return nil
}

// RenameColumn renames a user-defined column, keeping its data and position.
func (d *Data) RenameColumn(old, name string) error {
	if isDefaultColumn(old) {
		return fmt.Errorf("%w: `%s`", ErrDefaultColumn, old)
	}
	c, err := d.column(old)
	if err != nil {
		return err
	}
	if old == name {
		return nil
	}
	if _, ok := d.byName[name]; ok {
		return fmt.Errorf("%w: `%s`", ErrColumnExists, name)
	}
	if strings.TrimSpace(name) == "" || name == "id" {
		return fmt.Errorf("invalid column name %q", name)
	}
	delete(d.byName, old)
	c.name = name
	d.byName[name] = c
	return nil
}

// DeleteColumn removes a user-defined column unconditionally. Callers that
// want to warn before destroying data check HasNonDefault first.
func (d *Data) DeleteColumn(name string) error {
	if isDefaultColumn(name) {
		return fmt.Errorf("%w: `%s`", ErrDefaultColumn, name)
	}
	if _, err := d.column(name); err != nil {
		return err
	}
	delete(d.byName, name)
	d.columns = slices.DeleteFunc(d.columns, func(c *column) bool { return c.name == name })
	return nil
}

// HasNonDefault reports whether any row of column name holds a value other
// than the column default (false, empty, or unset).
func (d *Data) HasNonDefault(name string) bool {
	c, ok := d.byName[name]
	if !ok {
		return false
	}
	for j := range d.ids {
		if !c.isDefault(j) {
			return true
		}
	}
	return false
}

// HasStarred reports whether any object is starred.
func (d *Data) HasStarred() bool { return d.HasNonDefault(Starred) }

// Equal reports whether two stores hold the same IDs, columns and values.
// NaN equals NaN.
func (d *Data) Equal(other *Data) bool {
	if d.Len() != other.Len() || !slices.Equal(d.Columns(), other.Columns()) {
		return false
	}
	for j := range d.ids {
		if !d.ids[j].Equal(other.ids[j]) {
			return false
		}
	}
	for i, c := range d.columns {
		o := other.columns[i]
		if c.kind != o.kind {
			return false
		}
		for j := range d.ids {
			a, b := c.value(j), o.value(j)
			if fa, ok := a.(float64); ok {
				fb := b.(float64)
				if fa != fb && !(math.IsNaN(fa) && math.IsNaN(fb)) {
					return false
				}
				continue
			}
			if a != b {
				return false
			}
		}
	}
	return true
}
