package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/astrogo/fitsio"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// ErrUnknownFormat indicates an export format with no registered writer.
var ErrUnknownFormat = errors.New("unknown output format")

// writer exports a review table to one file format.
type writer func(ctx context.Context, d *Data, path string) error

func writers() map[string]writer {
	return map[string]writer{
		"csv":    func(_ context.Context, d *Data, path string) error { return d.Save(path) },
		"fits":   writeFITS,
		"sqlite": writeSQLite,
	}
}

// Formats lists the supported export formats.
func Formats() []string {
	var names []string
	for name := range writers() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Write exports the table to path in the given format.
func (d *Data) Write(ctx context.Context, path, format string) error {
	w, ok := writers()[strings.ToLower(format)]
	if !ok {
		return fmt.Errorf("%w: %s (available: %s)", ErrUnknownFormat, format, strings.Join(Formats(), ", "))
	}
	return w(ctx, d, path)
}

// writeFITS writes a primary HDU followed by a binary table named INSPECTION.
func writeFITS(_ context.Context, d *Data, path string) error {
	cols := []fitsio.Column{idColumnFITS(d)}
	for _, c := range d.columns {
		cols = append(cols, fitsColumn(c))
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer out.Close()

	f, err := fitsio.Create(out)
	if err != nil {
		return fmt.Errorf("creating FITS file: %w", err)
	}
	phdu, err := fitsio.NewPrimaryHDU(nil)
	if err != nil {
		return fmt.Errorf("creating primary HDU: %w", err)
	}
	if err := f.Write(phdu); err != nil {
		return fmt.Errorf("writing primary HDU: %w", err)
	}

	tbl, err := fitsio.NewTable("INSPECTION", cols, fitsio.BINARY_TBL)
	if err != nil {
		return fmt.Errorf("creating table: %w", err)
	}
	defer tbl.Close()

	for j, id := range d.ids {
		args := make([]any, 0, len(cols))
		if d.idsInt {
			v := id.Int64()
			args = append(args, &v)
		} else {
			v := id.String()
			args = append(args, &v)
		}
		for _, c := range d.columns {
			switch c.kind {
			case Bool:
				v := c.bools[j]
				args = append(args, &v)
			case Text:
				v := c.texts[j]
				args = append(args, &v)
			case Number:
				v := c.nums[j]
				args = append(args, &v)
			}
		}
		if err := tbl.Write(args...); err != nil {
			return fmt.Errorf("writing row %d: %w", j, err)
		}
	}

	if err := f.Write(tbl); err != nil {
		return fmt.Errorf("writing table: %w", err)
	}
	return f.Close()
}

func idColumnFITS(d *Data) fitsio.Column {
	if d.idsInt {
		return fitsio.Column{Name: "id", Format: "K"}
	}
	width := 1
	for _, id := range d.ids {
		width = max(width, len(id.String()))
	}
	return fitsio.Column{Name: "id", Format: fmt.Sprintf("%dA", width)}
}

func fitsColumn(c *column) fitsio.Column {
	switch c.kind {
	case Bool:
		return fitsio.Column{Name: c.name, Format: "L"}
	case Number:
		return fitsio.Column{Name: c.name, Format: "D"}
	}
	width := 1
	for _, s := range c.texts {
		width = max(width, len(s))
	}
	return fitsio.Column{Name: c.name, Format: fmt.Sprintf("%dA", width)}
}

// writeSQLite replaces path with a database holding one `inspection` table.
// Flags are stored as 0/1 integers and unset numbers as NULL.
func writeSQLite(ctx context.Context, d *Data, path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("review: replace %s: %w", path, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("review: open database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	idType := "TEXT"
	if d.idsInt {
		idType = "INTEGER"
	}
	defs := []string{quoteIdent("id") + " " + idType + " PRIMARY KEY"}
	names := []string{quoteIdent("id")}
	for _, c := range d.columns {
		defs = append(defs, quoteIdent(c.name)+" "+sqliteType(c.kind))
		names = append(names, quoteIdent(c.name))
	}

	create := fmt.Sprintf("CREATE TABLE inspection (%s)", strings.Join(defs, ", "))
	if _, err := db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("review: create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("review: begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	insert := fmt.Sprintf("INSERT INTO inspection (%s) VALUES (%s)", strings.Join(names, ", "), placeholders)
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("review: prepare insert: %w", err)
	}
	defer stmt.Close()

	for j, id := range d.ids {
		args := make([]any, 0, len(names))
		if d.idsInt {
			args = append(args, id.Int64())
		} else {
			args = append(args, id.String())
		}
		for _, c := range d.columns {
			args = append(args, sqliteValue(c, j))
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("review: insert %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("review: commit: %w", err)
	}
	return nil
}

func sqliteType(k Kind) string {
	switch k {
	case Bool:
		return "INTEGER NOT NULL"
	case Text:
		return "TEXT NOT NULL"
	}
	return "REAL"
}

func sqliteValue(c *column, j int) any {
	switch c.kind {
	case Bool:
		if c.bools[j] {
			return 1
		}
		return 0
	case Text:
		return c.texts[j]
	}
	if math.IsNaN(c.nums[j]) {
		return nil
	}
	return c.nums[j]
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
