package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/astrogo/fitsio"

	"github.com/papapumpkin/specvizitor/internal/objid"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func key(parts ...int64) objid.Key {
	k := make(objid.Key, len(parts))
	for i, p := range parts {
		k[i] = objid.Int(p)
	}
	return k
}

func TestGetCol_AliasPrecedence(t *testing.T) {
	t.Parallel()
	cat, err := New([]*Column{
		NewColumn("OBJID", []any{int64(1), int64(2)}),
		NewColumn("ra", []any{10.0, 11.0}),
	}, map[string][]string{"id": {"OBJID", "ID_NUMBER"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	col, err := cat.GetCol("id")
	if err != nil {
		t.Fatalf("GetCol(id): %v", err)
	}
	if col.Name != "OBJID" {
		t.Errorf("GetCol(id) = %q, want OBJID", col.Name)
	}
}

func TestGetCol_FirstAliasWins(t *testing.T) {
	t.Parallel()
	cat, err := New([]*Column{
		NewColumn("ID_NUMBER", []any{int64(7)}),
		NewColumn("OBJID", []any{int64(1)}),
	}, map[string][]string{"id": {"OBJID", "ID_NUMBER"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	col, _ := cat.GetCol("id")
	if col.Name != "OBJID" {
		t.Errorf("GetCol(id) = %q, want the first listed alias OBJID", col.Name)
	}
}

func TestGetCol_ErrorMessages(t *testing.T) {
	t.Parallel()
	cat, err := New([]*Column{NewColumn("id", []any{int64(1)})},
		map[string][]string{"z": {"Z_PHOT", "zbest"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tests := []struct {
		name string
		col  string
		want string
	}{
		{"no alias rule", "ra", "`ra` column not found"},
		{"alias rule", "z", "`z` column and its aliases (Z_PHOT, zbest) not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := cat.GetCol(tt.col)
			if !errors.Is(err, ErrColumnNotFound) {
				t.Fatalf("err = %v, want ErrColumnNotFound", err)
			}
			if err.Error() != tt.want {
				t.Errorf("message = %q, want %q", err.Error(), tt.want)
			}
		})
	}
}

func TestNew_MissingIDColumnListsAliases(t *testing.T) {
	t.Parallel()
	_, err := New([]*Column{NewColumn("NUMBER", []any{int64(1)})},
		map[string][]string{"id": {"OBJID", "ID_NUMBER"}})
	if err == nil {
		t.Fatal("expected an error without an id column")
	}
	if !strings.Contains(err.Error(), "OBJID, ID_NUMBER") {
		t.Errorf("error %q should list both aliases", err)
	}
}

func TestNew_IncompleteIndex(t *testing.T) {
	t.Parallel()
	_, err := New([]*Column{NewColumn("id", []any{int64(1), nil})}, nil)
	if !errors.Is(err, ErrIncompleteIndex) {
		t.Errorf("err = %v, want ErrIncompleteIndex", err)
	}

	_, err = New([]*Column{
		NewColumn("id", []any{int64(1), int64(2)}),
		NewColumn("id2", []any{int64(1), nil}),
	}, nil)
	if !errors.Is(err, ErrIncompleteIndex) {
		t.Errorf("composite: err = %v, want ErrIncompleteIndex", err)
	}
}

func compositeCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat, err := New([]*Column{
		NewColumn("id", []any{int64(1), int64(1), int64(2), int64(3), int64(3)}),
		NewColumn("id2", []any{int64(10), int64(20), int64(10), int64(5), int64(5)}),
		NewColumn("ra", []any{1.5, 2.5, 3.5, 4.5, 5.5}),
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return cat
}

func TestEntry_CompositeKey(t *testing.T) {
	t.Parallel()
	cat := compositeCatalog(t)

	if got := cat.Indices(); len(got) != 2 || got[1] != "id2" {
		t.Fatalf("Indices = %v", got)
	}

	entry, err := cat.Entry(key(1, 20))
	if err != nil {
		t.Fatalf("Entry(1,20): %v", err)
	}
	if entry.Len() != 1 {
		t.Fatalf("entry has %d rows", entry.Len())
	}
	if ra, _ := entry.Float("ra"); ra != 2.5 {
		t.Errorf("ra = %v, want 2.5", ra)
	}

	tests := []struct {
		name string
		key  objid.Key
		want error
	}{
		{"unknown first component", key(9, 10), ErrNotFound},
		{"unknown second component", key(2, 20), ErrNotFound},
		{"wrong arity", key(1, 10, 3), ErrNotFound},
		{"duplicate pair", key(3, 5), ErrAmbiguous},
		{"scalar key spanning rows", key(1), ErrAmbiguous},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := cat.Entry(tt.key)
			if !errors.Is(err, tt.want) {
				t.Errorf("Entry(%s) err = %v, want %v", tt.key, err, tt.want)
			}
		})
	}
}

func TestEntry_ScalarKeyAndStringIDs(t *testing.T) {
	t.Parallel()
	cat, err := New([]*Column{
		NewColumn("id", []any{"a1", "b2"}),
		NewColumn("z", []any{1.0, 2.0}),
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	entry, err := cat.Entry(objid.Key{objid.String("b2")})
	if err != nil {
		t.Fatalf("Entry: %v", err)
	}
	if z, _ := entry.Float("z"); z != 2 {
		t.Errorf("z = %v", z)
	}
	if !cat.Has(objid.String("a1")) || cat.Has(objid.String("c3")) {
		t.Error("Has reported the wrong membership")
	}
}

func TestEntry_StringKeyMatchesIntegerIndex(t *testing.T) {
	t.Parallel()
	cat, err := New([]*Column{NewColumn("id", []any{int64(12)})}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := cat.Entry(objid.Key{objid.String("12")}); err != nil {
		t.Errorf("string key should match integer index: %v", err)
	}
}

func TestRead_CSV(t *testing.T) {
	t.Parallel()
	path := writeFile(t, filepath.Join(t.TempDir(), "cat.csv"),
		"# FRESCO test catalogue\nNUMBER,RA,DEC,z_phot\n1,150.1,2.2,1.5\n2,150.2,2.3,\n3,150.3,2.4,3.1\n")

	cat, err := Read(path, Options{Translate: map[string][]string{
		"id": {"NUMBER"}, "ra": {"RA"}, "dec": {"DEC"}, "z": {"z_phot"},
	}})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if cat.Len() != 3 {
		t.Fatalf("Len = %d", cat.Len())
	}
	entry, err := cat.Entry(objid.Key{objid.Int(2)})
	if err != nil {
		t.Fatalf("Entry: %v", err)
	}
	if dec, _ := entry.Float("dec"); dec != 2.3 {
		t.Errorf("dec = %v", dec)
	}
	if _, err := entry.Float("z"); err == nil {
		t.Error("expected an error for a missing redshift value")
	}

	ext := cat.ExtendedColnames()
	if len(ext) != 8 || ext[4] != "dec" {
		t.Errorf("ExtendedColnames = %v", ext)
	}
	if got := cat.AnnotatedColnames()["NUMBER"]; got != "NUMBER (id)" {
		t.Errorf("annotated NUMBER = %q", got)
	}
}

func TestRead_FilterByDataDir(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	path := writeFile(t, filepath.Join(root, "cat.csv"), "id,ra\n1,1.0\n2,2.0\n3,3.0\n")
	dataDir := filepath.Join(root, "data")
	writeFile(t, filepath.Join(dataDir, "obj_3.fits"), "")
	writeFile(t, filepath.Join(dataDir, "obj_1.fits"), "")

	cat, err := Read(path, Options{DataDir: dataDir})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	ids := cat.IDs()
	if len(ids) != 2 || ids[0].Int64() != 1 || ids[1].Int64() != 3 {
		t.Errorf("IDs = %v, want [1 3]", ids)
	}
}

func TestRead_Empty(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	path := writeFile(t, filepath.Join(root, "cat.csv"), "id,ra\n1,1.0\n")
	dataDir := filepath.Join(root, "data")
	writeFile(t, filepath.Join(dataDir, "obj_7.fits"), "")

	if _, err := Read(path, Options{DataDir: dataDir}); !errors.Is(err, ErrEmpty) {
		t.Errorf("err = %v, want ErrEmpty", err)
	}
}

func TestRead_Errors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if _, err := Read("", Options{}); err == nil {
		t.Error("expected an error for an empty filename")
	}
	if _, err := Read(filepath.Join(dir, "missing.csv"), Options{}); err == nil {
		t.Error("expected an error for a missing file")
	}
	txt := writeFile(t, filepath.Join(dir, "cat.txt"), "id\n1\n")
	if _, err := Read(txt, Options{}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestUpdateTranslate(t *testing.T) {
	t.Parallel()
	cat, err := New([]*Column{
		NewColumn("id", []any{int64(1), int64(2)}),
		NewColumn("Z_SPEC", []any{0.5, 1.5}),
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := cat.GetCol("z"); err == nil {
		t.Fatal("z should not resolve before the alias is added")
	}

	next, err := cat.UpdateTranslate(map[string][]string{"z": {"Z_SPEC"}})
	if err != nil {
		t.Fatalf("UpdateTranslate: %v", err)
	}
	if col, err := next.GetCol("z"); err != nil || col.Name != "Z_SPEC" {
		t.Errorf("GetCol(z) after update = %v, %v", col, err)
	}
	if _, err := cat.GetCol("z"); err == nil {
		t.Error("UpdateTranslate mutated the original catalogue")
	}

	if _, err := cat.UpdateTranslate(map[string][]string{"id": {"NOPE"}}); err != nil {
		t.Errorf("a direct id column should survive an unrelated alias: %v", err)
	}
}

func TestCreate(t *testing.T) {
	t.Parallel()
	cat, err := Create([]objid.Key{key(5), key(3)})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := cat.Colnames(); len(got) != 1 || got[0] != "id" {
		t.Errorf("Colnames = %v", got)
	}
	if _, err := cat.Entry(key(3)); err != nil {
		t.Errorf("Entry(3): %v", err)
	}

	comp, err := Create([]objid.Key{key(1, 2), key(1, 3)})
	if err != nil {
		t.Fatalf("Create composite: %v", err)
	}
	if got := comp.Colnames(); len(got) != 2 || got[1] != "id2" {
		t.Errorf("composite Colnames = %v", got)
	}
	if _, err := comp.Entry(key(1, 3)); err != nil {
		t.Errorf("Entry(1,3): %v", err)
	}

	if _, err := Create(nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("Create(nil) err = %v", err)
	}
}

func writeFITSCatalog(t *testing.T, path string) {
	t.Helper()
	w, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	f, err := fitsio.Create(w)
	if err != nil {
		t.Fatalf("fitsio.Create: %v", err)
	}
	phdu, err := fitsio.NewPrimaryHDU(nil)
	if err != nil {
		t.Fatalf("NewPrimaryHDU: %v", err)
	}
	if err := f.Write(phdu); err != nil {
		t.Fatalf("write primary: %v", err)
	}

	cols := []fitsio.Column{
		{Name: "ID", Format: "K"},
		{Name: "RA", Format: "D"},
		{Name: "DEC", Format: "D"},
	}
	tbl, err := fitsio.NewTable("CATALOG", cols, fitsio.BINARY_TBL)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	defer tbl.Close()
	for i := range 3 {
		id := int64(100 + i)
		ra := 53.1 + float64(i)*0.01
		dec := -27.8
		if err := tbl.Write(&id, &ra, &dec); err != nil {
			t.Fatalf("table write: %v", err)
		}
	}
	if err := f.Write(tbl); err != nil {
		t.Fatalf("write table: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestRead_FITS(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "cat.fits")
	writeFITSCatalog(t, path)

	cat, err := Read(path, Options{Translate: map[string][]string{"id": {"ID"}, "ra": {"RA"}}})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if cat.Len() != 3 {
		t.Fatalf("Len = %d", cat.Len())
	}
	entry, err := cat.Entry(key(101))
	if err != nil {
		t.Fatalf("Entry: %v", err)
	}
	if ra, _ := entry.Float("ra"); ra < 53.109 || ra > 53.111 {
		t.Errorf("ra = %v", ra)
	}
}
