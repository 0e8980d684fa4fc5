// Package catalog provides the object catalogue: a table with one row per
// astronomical object, indexed by `id` and optionally by the composite keys
// `id2` .. `id10`, with configurable column aliases.
package catalog

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/papapumpkin/specvizitor/internal/datadir"
	"github.com/papapumpkin/specvizitor/internal/objid"
)

// maxIndexLevel is the deepest composite index column, `id10`.
const maxIndexLevel = 10

var (
	// ErrNotFound indicates no row matches the requested key.
	ErrNotFound = errors.New("object not found in the catalogue")
	// ErrAmbiguous indicates the key matches several rows.
	ErrAmbiguous = errors.New("object corresponds to multiple entries in the catalogue")
	// ErrColumnNotFound indicates a column and all of its aliases are absent.
	ErrColumnNotFound = errors.New("column not found")
	// ErrIncompleteIndex indicates an index column has missing values.
	ErrIncompleteIndex = errors.New("index column has missing values")
	// ErrEmpty indicates the processed catalogue has no rows.
	ErrEmpty = errors.New("the processed catalogue is empty")
	// ErrNoIndex indicates a lookup on a catalogue without indices.
	ErrNoIndex = errors.New("no indices found in the catalogue")
	// ErrUnsupportedFormat indicates the catalogue file type is not readable.
	ErrUnsupportedFormat = errors.New("unsupported catalogue format")
)

// ColumnError reports a column that could not be resolved directly or
// through its aliases.
type ColumnError struct {
	Name    string
	Aliases []string
}

// Error formats the missing column and the aliases tried.
func (e *ColumnError) Error() string {
	if len(e.Aliases) > 0 {
		return fmt.Sprintf("`%s` column and its aliases (%s) not found", e.Name, strings.Join(e.Aliases, ", "))
	}
	return fmt.Sprintf("`%s` column not found", e.Name)
}

// Unwrap returns ErrColumnNotFound.
func (e *ColumnError) Unwrap() error { return ErrColumnNotFound }

// Catalog is an indexed, read-only table. Entries returned by Entry are
// single-row catalogues sharing the parent's aliases.
type Catalog struct {
	columns   []*Column
	byName    map[string]*Column
	nrows     int
	translate map[string][]string

	indices []string
	index   []map[objid.ID][]int
}

// Options control how a catalogue file is read.
type Options struct {
	// Translate maps canonical column names to accepted synonyms.
	Translate map[string][]string
	// DataDir, when set, restricts the catalogue to objects with files there.
	DataDir   string
	IDPattern string
	Recursive bool
}

// New assembles a catalogue from columns of equal length and builds its
// indices. It fails when the `id` column is unresolvable or incomplete.
func New(columns []*Column, translate map[string][]string) (*Catalog, error) {
	c, err := newTable(columns, translate)
	if err != nil {
		return nil, err
	}
	if c.nrows == 0 {
		return nil, ErrEmpty
	}
	if err := c.buildIndices(); err != nil {
		return nil, err
	}
	return c, nil
}

func newTable(columns []*Column, translate map[string][]string) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]*Column, len(columns)), translate: translate}
	for i, col := range columns {
		if i == 0 {
			c.nrows = col.Len()
		} else if col.Len() != c.nrows {
			return nil, fmt.Errorf("column `%s` has %d rows, expected %d", col.Name, col.Len(), c.nrows)
		}
		if _, dup := c.byName[col.Name]; dup {
			return nil, fmt.Errorf("duplicate column `%s`", col.Name)
		}
		c.columns = append(c.columns, col)
		c.byName[col.Name] = col
	}
	return c, nil
}

// Read loads a catalogue file (FITS table or CSV), applies aliases,
// optionally filters by the IDs present in a data directory and builds the
// `id` .. `id10` indices.
func Read(path string, opts Options) (*Catalog, error) {
	if path == "" {
		return nil, errors.New("catalogue filename not specified")
	}
	columns, err := readColumns(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load the catalogue: %w", err)
	}
	c, err := newTable(columns, opts.Translate)
	if err != nil {
		return nil, fmt.Errorf("failed to load the catalogue: %w", err)
	}

	idCol, err := c.GetCol("id")
	if err != nil {
		return nil, err
	}

	if opts.DataDir != "" {
		pattern := opts.IDPattern
		if pattern == "" {
			pattern = datadir.DefaultIDPattern
		}
		ids, err := datadir.IDsFromDir(opts.DataDir, pattern, opts.Recursive)
		if err != nil {
			return nil, err
		}
		keep := make(map[string]bool, len(ids))
		for _, id := range ids {
			keep[id.String()] = true
		}
		var rows []int
		for i := 0; i < c.nrows; i++ {
			if id, ok := idCol.ID(i); ok && keep[id.String()] {
				rows = append(rows, i)
			}
		}
		c = c.take(rows)
	}

	if c.nrows == 0 {
		return nil, ErrEmpty
	}
	if err := c.buildIndices(); err != nil {
		return nil, err
	}
	return c, nil
}

func readColumns(path string) ([]*Column, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".fits", ".fit", ".fts":
		return readFITS(path)
	case ".csv":
		return readCSV(path)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
}

// Create builds a degenerate catalogue from a list of keys: a single `id`
// column, or `id`, `id2`, ... when the keys are composite.
func Create(keys []objid.Key) (*Catalog, error) {
	if len(keys) == 0 {
		return nil, ErrEmpty
	}
	width := len(keys[0])
	columns := make([]*Column, width)
	for level := range width {
		vals := make([]any, len(keys))
		for i, k := range keys {
			if len(k) != width {
				return nil, fmt.Errorf("key %s has %d components, expected %d", k, len(k), width)
			}
			if k[level].IsInt() {
				vals[i] = k[level].Int64()
			} else {
				vals[i] = k[level].String()
			}
		}
		columns[level] = &Column{Name: indexName(level), values: vals}
	}
	return New(columns, nil)
}

func indexName(level int) string {
	if level == 0 {
		return "id"
	}
	return fmt.Sprintf("id%d", level+1)
}

func (c *Catalog) buildIndices() error {
	c.indices, c.index = nil, nil
	idCol, err := c.GetCol("id")
	if err != nil {
		return err
	}
	if err := c.AddIndex(idCol.Name); err != nil {
		return err
	}
	for level := 1; level < maxIndexLevel; level++ {
		col, err := c.GetCol(indexName(level))
		if err != nil {
			break
		}
		if err := c.AddIndex(col.Name); err != nil {
			return err
		}
	}
	return nil
}

// AddIndex appends the named column to the index tuple. Every cell of an
// index column must be present.
func (c *Catalog) AddIndex(name string) error {
	col, ok := c.byName[name]
	if !ok {
		return &ColumnError{Name: name}
	}
	idx := make(map[objid.ID][]int, col.Len())
	for i := 0; i < col.Len(); i++ {
		id, ok := col.ID(i)
		if !ok {
			return fmt.Errorf("%w: `%s` row %d", ErrIncompleteIndex, name, i)
		}
		idx[id] = append(idx[id], i)
	}
	c.indices = append(c.indices, name)
	c.index = append(c.index, idx)
	return nil
}

// UpdateTranslate returns a catalogue over the same data with a new alias
// mapping and freshly validated indices. The receiver is left unchanged.
func (c *Catalog) UpdateTranslate(translate map[string][]string) (*Catalog, error) {
	next, err := newTable(c.columns, translate)
	if err != nil {
		return nil, err
	}
	if err := next.buildIndices(); err != nil {
		return nil, err
	}
	return next, nil
}

// Len returns the number of rows.
func (c *Catalog) Len() int { return c.nrows }

// Translate returns the alias mapping.
func (c *Catalog) Translate() map[string][]string { return c.translate }

// Indices returns the names of the index columns in key order.
func (c *Catalog) Indices() []string { return append([]string(nil), c.indices...) }

// Colnames returns the source column names in file order.
func (c *Catalog) Colnames() []string {
	names := make([]string, len(c.columns))
	for i, col := range c.columns {
		names[i] = col.Name
	}
	return names
}

// ExtendedColnames returns the source columns followed by every canonical
// name that one of its aliases resolves.
func (c *Catalog) ExtendedColnames() []string {
	names := c.Colnames()
	for _, canon := range canonicalNames(c.translate) {
		if _, direct := c.byName[canon]; direct {
			continue
		}
		if c.aliasFor(canon) != nil {
			names = append(names, canon)
		}
	}
	return names
}

// AnnotatedColnames maps each source column to a display label. Columns
// adopted as an alias read "OBJID (id)".
func (c *Catalog) AnnotatedColnames() map[string]string {
	labels := make(map[string]string, len(c.columns))
	for _, col := range c.columns {
		labels[col.Name] = col.Name
	}
	for _, canon := range canonicalNames(c.translate) {
		if col := c.aliasFor(canon); col != nil {
			labels[col.Name] = fmt.Sprintf("%s (%s)", col.Name, canon)
		}
	}
	return labels
}

// canonicalNames returns the translate keys sorted.
func canonicalNames(tr map[string][]string) []string {
	names := make([]string, 0, len(tr))
	for name := range tr {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Catalog) aliasFor(canon string) *Column {
	for _, alias := range c.translate[canon] {
		if col, ok := c.byName[alias]; ok {
			return col
		}
	}
	return nil
}

// GetCol resolves name directly or through its alias list; the first alias
// present in the table wins.
func (c *Catalog) GetCol(name string) (*Column, error) {
	if col, ok := c.byName[name]; ok {
		return col, nil
	}
	if aliases, ok := c.translate[name]; ok {
		if col := c.aliasFor(name); col != nil {
			return col, nil
		}
		return nil, &ColumnError{Name: name, Aliases: aliases}
	}
	return nil, &ColumnError{Name: name}
}

// Has reports whether id is present in the first index.
func (c *Catalog) Has(id objid.ID) bool {
	if c == nil || len(c.index) == 0 {
		return false
	}
	_, ok := c.index[0][objid.Parse(id.String())]
	return ok
}

// IDs returns the first index column as object IDs in row order.
func (c *Catalog) IDs() []objid.ID {
	if len(c.indices) == 0 {
		return nil
	}
	col := c.byName[c.indices[0]]
	raw := make([]string, col.Len())
	for i := range raw {
		raw[i] = col.Text(i)
	}
	return objid.ParseAll(raw)
}

// Entry locates the row matching key. A scalar key is looked up in the
// first index; a composite key narrows index by index and must have one
// component per index column. No match is ErrNotFound and several
// matches are ErrAmbiguous.
func (c *Catalog) Entry(key objid.Key) (*Catalog, error) {
	if len(c.indices) == 0 {
		return nil, fmt.Errorf("%w (ID: %s)", ErrNoIndex, key)
	}
	if len(key) == 0 || (len(key) > 1 && len(key) != len(c.indices)) {
		return nil, fmt.Errorf("%w (ID: %s)", ErrNotFound, key)
	}

	rows := c.index[0][objid.Parse(key[0].String())]
	for level := 1; level < len(key) && len(rows) > 0; level++ {
		want := objid.Parse(key[level].String())
		col := c.byName[c.indices[level]]
		var narrowed []int
		for _, r := range rows {
			if id, _ := col.ID(r); id.Equal(want) {
				narrowed = append(narrowed, r)
			}
		}
		rows = narrowed
	}

	switch len(rows) {
	case 0:
		return nil, fmt.Errorf("%w (ID: %s)", ErrNotFound, key)
	case 1:
		return c.take(rows), nil
	}
	return nil, fmt.Errorf("%w (ID: %s)", ErrAmbiguous, key)
}

// take builds a catalogue view of the given rows. Indices are rebuilt
// over the subset; they cannot fail because the parent's were complete.
func (c *Catalog) take(rows []int) *Catalog {
	sub := &Catalog{byName: make(map[string]*Column, len(c.columns)), translate: c.translate, nrows: len(rows)}
	for _, col := range c.columns {
		t := col.take(rows)
		sub.columns = append(sub.columns, t)
		sub.byName[t.Name] = t
	}
	for _, name := range c.indices {
		_ = sub.AddIndex(name)
	}
	return sub
}

// Value returns the cell of column name in the first row, resolving aliases.
func (c *Catalog) Value(name string) (any, error) {
	col, err := c.GetCol(name)
	if err != nil {
		return nil, err
	}
	if c.nrows == 0 {
		return nil, ErrEmpty
	}
	return col.Value(0), nil
}

// Float returns column name of the first row as a float.
func (c *Catalog) Float(name string) (float64, error) {
	col, err := c.GetCol(name)
	if err != nil {
		return 0, err
	}
	if c.nrows == 0 {
		return 0, ErrEmpty
	}
	f, ok := col.Float(0)
	if !ok {
		return 0, fmt.Errorf("`%s` value %q is not a number", name, col.Text(0))
	}
	return f, nil
}

// Text returns column name of the first row formatted as text.
func (c *Catalog) Text(name string) (string, error) {
	col, err := c.GetCol(name)
	if err != nil {
		return "", err
	}
	if c.nrows == 0 {
		return "", ErrEmpty
	}
	return col.Text(0), nil
}
