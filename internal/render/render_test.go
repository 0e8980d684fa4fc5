package render

import (
	"errors"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/papapumpkin/specvizitor/internal/config"
	"github.com/papapumpkin/specvizitor/internal/loader"
	"github.com/papapumpkin/specvizitor/internal/objid"
	"github.com/papapumpkin/specvizitor/internal/viewer"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot/vg"
)

func loaded(t *testing.T, cfg config.Widget, result loader.Result) viewer.Element {
	t.Helper()
	e, err := viewer.NewElement(cfg, config.SpectralLinesConfig{
		WaveUnit: "angstrom",
		Lines:    []config.SpectralLine{{Name: "Ha", Wavelength: 6563}},
	})
	if err != nil {
		t.Fatalf("NewElement: %v", err)
	}
	e.LoadForObject(viewer.Object{ID: objid.Int(1)}, loader.Slot{ID: objid.Int(1), Result: result})
	if !e.Active() {
		t.Fatalf("%s inactive: %s", cfg.Title, e.Status())
	}
	return e
}

func table(t *testing.T, names []string, cols ...[]float64) *loader.Table {
	t.Helper()
	tbl, err := loader.NewTable(names, cols)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return tbl
}

func testElements(t *testing.T) []viewer.Element {
	t.Helper()
	pix := mat.NewDense(8, 12, nil)
	for i := 0; i < 8; i++ {
		for j := 0; j < 12; j++ {
			pix.Set(i, j, float64(i+j))
		}
	}
	pix.Set(0, 0, math.NaN())

	img := loaded(t, config.Widget{Title: "Image Cutout", Kind: config.KindImage}, loader.Result{Path: "a.fits", Image: pix})
	img.AddOverlay(viewer.Overlay{Label: "trace", X: []float64{0, 12}, Y: []float64{4, 4}})

	spec := loaded(t,
		config.Widget{Title: "Spectrum 1D", Kind: config.KindSpectrum, XAxis: config.Axis{Unit: "angstrom"}},
		loader.Result{Path: "b.fits", Table: table(t, []string{"wave", "flux"}, []float64{6000, 6500, 7000, 7500}, []float64{1, 3, 2, math.NaN()})},
	)
	curve := loaded(t,
		config.Widget{Title: "Redshift PDF", Kind: config.KindPlot, XColumn: "z", YColumn: "pdf"},
		loader.Result{Path: "c.fits", Table: table(t, []string{"z", "pdf"}, []float64{0, 1, 2}, []float64{0, 1, 0})},
	)
	empty, err := viewer.NewElement(config.Widget{Title: "Missing", Kind: config.KindImage}, config.SpectralLinesConfig{})
	if err != nil {
		t.Fatalf("NewElement: %v", err)
	}
	return []viewer.Element{img, empty, spec, curve}
}

func TestScreenshot(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "shots", "obj_1.png")
	n, err := Screenshot(testElements(t), path, Options{Title: "ID 1", Width: 4 * vg.Inch, PanelHeight: 2 * vg.Inch})
	if err != nil {
		t.Fatalf("Screenshot: %v", err)
	}
	if n != 3 {
		t.Errorf("panels = %d, want 3", n)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() <= b.Dx() {
		t.Errorf("bounds = %v, want three stacked panels taller than wide", b)
	}
}

func TestScreenshot_NothingActive(t *testing.T) {
	t.Parallel()
	e, err := viewer.NewElement(config.Widget{Title: "Missing", Kind: config.KindImage}, config.SpectralLinesConfig{})
	if err != nil {
		t.Fatalf("NewElement: %v", err)
	}
	path := filepath.Join(t.TempDir(), "none.png")
	if _, err := Screenshot([]viewer.Element{e}, path, Options{}); !errors.Is(err, ErrNothingToRender) {
		t.Fatalf("err = %v, want ErrNothingToRender", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file written without panels")
	}
}

func TestPanel_UsesViewRange(t *testing.T) {
	t.Parallel()
	els := testElements(t)
	img := els[0]
	img.Control(viewer.XAxis).Set(viewer.Range{Min: 2, Max: 6})
	p, err := Panel(img)
	if err != nil {
		t.Fatalf("Panel: %v", err)
	}
	if p.X.Min != 2 || p.X.Max != 6 {
		t.Errorf("x range = [%v, %v], want [2, 6]", p.X.Min, p.X.Max)
	}
	if p.Title.Text != "Image Cutout" {
		t.Errorf("title = %q", p.Title.Text)
	}
}

func TestAxisLabel(t *testing.T) {
	t.Parallel()
	tests := []struct{ label, unit, want string }{
		{"", "", ""},
		{"Wavelength", "", "Wavelength"},
		{"", "um", "[um]"},
		{"Wavelength", "um", "Wavelength [um]"},
	}
	for _, tt := range tests {
		if got := axisLabel(tt.label, tt.unit); got != tt.want {
			t.Errorf("axisLabel(%q, %q) = %q, want %q", tt.label, tt.unit, got, tt.want)
		}
	}
}

func TestXYs_DropsNonFinite(t *testing.T) {
	t.Parallel()
	pts := xys([]float64{1, 2, math.NaN(), 4}, []float64{1, math.Inf(1), 3})
	if len(pts) != 1 || pts[0].X != 1 {
		t.Errorf("xys = %v, want only the first point", pts)
	}
}
