// Package loader turns data files into in-memory arrays for the viewer.
//
// A loader is picked by name from a fixed registry (`auto`, `generic_fits`,
// `image`) and receives the widget's loader parameters. Images come back as
// gonum matrices with row 0 at the bottom of the picture, tables as named
// numeric columns, and both carry the header cards of the HDU they came from.
package loader

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Loader names.
const (
	Auto        = "auto"
	GenericFITS = "generic_fits"
	Picture     = "image"
)

var (
	// ErrUnknownLoader indicates a loader name missing from the registry.
	ErrUnknownLoader = errors.New("unknown loader type")
	// ErrUnexpectedParam indicates a loader parameter the loader does not accept.
	ErrUnexpectedParam = errors.New("unexpected parameter")
	// ErrNoData indicates a file that holds no image or table.
	ErrNoData = errors.New("no data found")
)

// Result is the outcome of loading one file. Exactly one of Image and
// Table is set. Close releases the file the result was read from.
type Result struct {
	Path  string
	Image *mat.Dense
	Table *Table
	Meta  Meta

	closer func() error
}

// Kind reports "image", "table" or "" for an empty result.
func (r Result) Kind() string {
	switch {
	case r.Image != nil:
		return "image"
	case r.Table != nil:
		return "table"
	}
	return ""
}

// Close releases the underlying file. It is safe to call on a zero Result.
func (r Result) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}

// Params are the loader parameters declared for a widget.
type Params map[string]any

type loadFunc func(path string, params Params) (Result, error)

type entry struct {
	load   loadFunc
	params []string
}

func registry() map[string]entry {
	return map[string]entry{
		GenericFITS: {load: loadFITS, params: []string{"extname", "extver", "extver_index"}},
		Picture:     {load: loadPicture},
	}
}

// Names lists the registered loaders, `auto` included.
func Names() []string {
	names := []string{Auto}
	for name := range registry() {
		names = append(names, name)
	}
	sort.Strings(names[1:])
	return names
}

// Detect picks a loader from the file extension.
func Detect(path string) string {
	name := strings.ToLower(filepath.Base(path))
	for _, ext := range []string{".fits", ".fits.gz", ".fit", ".fts"} {
		if strings.HasSuffix(name, ext) {
			return GenericFITS
		}
	}
	return Picture
}

// Load reads path with the named loader. An empty name means `auto`.
func Load(path, name string, params Params) (Result, error) {
	if name == "" || name == Auto {
		name = Detect(path)
	}
	e, ok := registry()[name]
	if !ok {
		return Result{}, fmt.Errorf("%w: `%s` (available loaders: %s)", ErrUnknownLoader, name, strings.Join(Names(), ", "))
	}
	if err := checkParams(params, e.params); err != nil {
		return Result{}, err
	}
	res, err := e.load(path, params)
	if err != nil {
		return Result{}, err
	}
	res.Path = path
	return res, nil
}

func checkParams(params Params, allowed []string) error {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		found := false
		for _, a := range allowed {
			if strings.EqualFold(k, a) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w `%s`", ErrUnexpectedParam, k)
		}
	}
	return nil
}

// param fetches a parameter case-insensitively; viper lowercases keys.
func (p Params) param(name string) (any, bool) {
	for k, v := range p {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// Table is a set of equal-length numeric columns.
type Table struct {
	names []string
	cols  map[string][]float64
}

// NewTable builds a table from columns in the given order.
func NewTable(names []string, cols [][]float64) (*Table, error) {
	if len(names) != len(cols) {
		return nil, fmt.Errorf("table: %d names for %d columns", len(names), len(cols))
	}
	t := &Table{cols: make(map[string][]float64, len(names))}
	for i, name := range names {
		if i > 0 && len(cols[i]) != len(cols[0]) {
			return nil, fmt.Errorf("table: column `%s` has %d rows, want %d", name, len(cols[i]), len(cols[0]))
		}
		t.names = append(t.names, name)
		t.cols[name] = cols[i]
	}
	return t, nil
}

// Columns returns the column names in file order.
func (t *Table) Columns() []string { return append([]string(nil), t.names...) }

// Len returns the number of rows.
func (t *Table) Len() int {
	if len(t.names) == 0 {
		return 0
	}
	return len(t.cols[t.names[0]])
}

// Column returns the values of a column, matched case-insensitively.
func (t *Table) Column(name string) ([]float64, error) {
	if c, ok := t.cols[name]; ok {
		return c, nil
	}
	for _, n := range t.names {
		if strings.EqualFold(n, name) {
			return t.cols[n], nil
		}
	}
	return nil, fmt.Errorf("`%s` column not found", name)
}
