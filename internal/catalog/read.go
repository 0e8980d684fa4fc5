package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/astrogo/fitsio"
)

// readFITS reads the first table HDU of a FITS file.
func readFITS(path string) ([]*Column, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	f, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("opening FITS file: %w", err)
	}
	defer f.Close()

	for _, hdu := range f.HDUs() {
		tbl, ok := hdu.(*fitsio.Table)
		if !ok {
			continue
		}
		return readTable(tbl)
	}
	return nil, errors.New("no table HDU found")
}

// readTable converts a FITS table into columns, preserving column order.
func readTable(tbl *fitsio.Table) ([]*Column, error) {
	nrows := tbl.NumRows()
	cols := tbl.Cols()
	values := make([][]any, len(cols))
	for i := range values {
		values[i] = make([]any, 0, nrows)
	}

	rows, err := tbl.Read(0, nrows)
	if err != nil {
		return nil, fmt.Errorf("reading table rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		row := make(map[string]any, len(cols))
		if err := rows.Scan(&row); err != nil {
			return nil, fmt.Errorf("scanning table row: %w", err)
		}
		for i, col := range cols {
			values[i] = append(values[i], row[col.Name])
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*Column, len(cols))
	for i, col := range cols {
		out[i] = NewColumn(col.Name, values[i])
	}
	return out, nil
}

// readCSV reads a header row followed by data rows. Lines starting with
// '#' are comments.
func readCSV(path string) ([]*Column, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseCSV(f)
}

func parseCSV(r io.Reader) ([]*Column, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	raw := make([][]string, len(header))
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV: %w", err)
		}
		for i := range header {
			raw[i] = append(raw[i], rec[i])
		}
	}

	cols := make([]*Column, len(header))
	for i, name := range header {
		cols[i] = inferColumn(strings.TrimSpace(name), raw[i])
	}
	return cols, nil
}
