package loader

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/astrogo/fitsio"
	"gonum.org/v1/gonum/mat"
)

// ErrHDUNotFound indicates that no HDU matched the requested extension.
var ErrHDUNotFound = errors.New("HDU not found")

// fitsFile keeps the handles of an opened FITS file together.
type fitsFile struct {
	os   *os.File
	fits *fitsio.File
}

func (f *fitsFile) Close() error {
	err := f.fits.Close()
	if cerr := f.os.Close(); err == nil {
		err = cerr
	}
	return err
}

func openFITS(path string) (*fitsFile, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	var src io.ReadSeeker = r
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		zr, err := gzip.NewReader(r)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("decompressing %s: %w", path, err)
		}
		raw, err := io.ReadAll(zr)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("decompressing %s: %w", path, err)
		}
		src = bytes.NewReader(raw)
	}
	f, err := fitsio.Open(src)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("opening FITS file %s: %w", path, err)
	}
	return &fitsFile{os: r, fits: f}, nil
}

// loadFITS reads one HDU. Parameters: extname selects HDUs by EXTNAME,
// extver by EXTVER, extver_index picks the n-th HDU with that EXTNAME.
// Without extname the first extension is read, or the primary HDU when
// the file has no extensions.
func loadFITS(path string, params Params) (Result, error) {
	f, err := openFITS(path)
	if err != nil {
		return Result{}, err
	}
	res, err := readHDU(f.fits, params)
	if err != nil {
		f.Close()
		return Result{}, err
	}
	res.closer = f.Close
	return res, nil
}

func readHDU(f *fitsio.File, params Params) (Result, error) {
	hdu, err := selectHDU(f.HDUs(), params)
	if err != nil {
		return Result{}, err
	}

	res := Result{Meta: MetaFromHeader(hdu.Header())}
	switch h := hdu.(type) {
	case *fitsio.Table:
		res.Table, err = readTable(h)
	case fitsio.Image:
		res.Image, err = readImage(h)
	default:
		err = fmt.Errorf("%w: unsupported HDU type %v", ErrNoData, hdu.Type())
	}
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func selectHDU(hdus []fitsio.HDU, params Params) (fitsio.HDU, error) {
	if len(hdus) == 0 {
		return nil, ErrNoData
	}

	extname := ""
	if v, ok := params.param("extname"); ok {
		extname = strings.TrimSpace(fmt.Sprint(v))
	}
	if extname == "" {
		if len(hdus) > 1 {
			return hdus[1], nil
		}
		return hdus[0], nil
	}

	var named []fitsio.HDU
	for _, h := range hdus {
		m := MetaFromHeader(h.Header())
		if name, _ := m.String("EXTNAME"); strings.EqualFold(name, extname) {
			named = append(named, h)
		}
	}

	if v, ok := params.param("extver"); ok {
		want, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("extver %v is not a number", v)
		}
		for _, h := range named {
			ver, ok := MetaFromHeader(h.Header()).Int("EXTVER")
			if !ok {
				ver = 1
			}
			if ver == int(want) {
				return h, nil
			}
		}
		return nil, fmt.Errorf("%w: (%s, %d)", ErrHDUNotFound, extname, int(want))
	}

	if v, ok := params.param("extver_index"); ok {
		idx, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("extver_index %v is not a number", v)
		}
		if int(idx) < 0 || int(idx) >= len(named) {
			return nil, fmt.Errorf("%w: extver_index %d out of range for extension `%s` (%d found)", ErrHDUNotFound, int(idx), extname, len(named))
		}
		return named[int(idx)], nil
	}

	if len(named) == 0 {
		return nil, fmt.Errorf("%w: `%s`", ErrHDUNotFound, extname)
	}
	return named[0], nil
}

func readImage(img fitsio.Image) (*mat.Dense, error) {
	axes := img.Header().Axes()
	if len(axes) < 2 {
		return nil, fmt.Errorf("%w: image has %d axes", ErrNoData, len(axes))
	}
	n := 1
	for _, a := range axes {
		n *= a
	}
	if n == 0 {
		return nil, ErrNoData
	}
	nx, ny := axes[0], axes[1]

	pix := make([]float64, n)
	if err := img.Read(&pix); err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	// Higher axes are ignored: only the first plane is shown.
	return mat.NewDense(ny, nx, pix[:nx*ny]), nil
}

func readTable(tbl *fitsio.Table) (*Table, error) {
	rows, err := tbl.Read(0, tbl.NumRows())
	if err != nil {
		return nil, fmt.Errorf("reading table: %w", err)
	}
	defer rows.Close()

	cols := tbl.Cols()
	values := make([][]float64, len(cols))
	numeric := make([]bool, len(cols))
	for i := range numeric {
		numeric[i] = true
	}
	for rows.Next() {
		row := make(map[string]any, len(cols))
		if err := rows.Scan(&row); err != nil {
			return nil, fmt.Errorf("scanning table row: %w", err)
		}
		for i, c := range cols {
			if !numeric[i] {
				continue
			}
			f, ok := toFloat(row[c.Name])
			if !ok {
				numeric[i] = false
				continue
			}
			values[i] = append(values[i], f)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading table rows: %w", err)
	}

	var names []string
	var data [][]float64
	for i, c := range cols {
		if numeric[i] {
			names = append(names, c.Name)
			data = append(data, values[i])
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: table has no numeric columns", ErrNoData)
	}
	return NewTable(names, data)
}
