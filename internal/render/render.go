// Package render draws the current viewer state to a PNG file: one panel
// per active element, stacked top to bottom.
package render

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/papapumpkin/specvizitor/internal/viewer"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// ErrNothingToRender indicates that no element holds data.
var ErrNothingToRender = errors.New("no active widgets to render")

// Options control the output size.
type Options struct {
	Title       string
	Width       vg.Length
	PanelHeight vg.Length
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 8 * vg.Inch
	}
	if o.PanelHeight <= 0 {
		o.PanelHeight = 3 * vg.Inch
	}
	return o
}

// Screenshot renders the active elements to path and returns the number
// of panels drawn.
func Screenshot(elements []viewer.Element, path string, opts Options) (int, error) {
	opts = opts.withDefaults()

	var panels [][]*plot.Plot
	for _, e := range elements {
		if !e.Active() {
			continue
		}
		p, err := Panel(e)
		if err != nil {
			return 0, fmt.Errorf("rendering `%s`: %w", e.Title(), err)
		}
		panels = append(panels, []*plot.Plot{p})
	}
	if len(panels) == 0 {
		return 0, ErrNothingToRender
	}
	if opts.Title != "" {
		panels[0][0].Title.Text = opts.Title + ": " + panels[0][0].Title.Text
	}

	canvas := vgimg.New(opts.Width, opts.PanelHeight*vg.Length(len(panels)))
	dc := draw.New(canvas)
	tiles := draw.Tiles{Rows: len(panels), Cols: 1, PadY: vg.Points(6)}
	cells := plot.Align(panels, tiles, dc)
	for i := range panels {
		panels[i][0].Draw(cells[i][0])
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("creating screenshot directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating screenshot: %w", err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: canvas}).WriteTo(f); err != nil {
		_ = f.Close()
		return 0, fmt.Errorf("writing screenshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("closing screenshot: %w", err)
	}
	return len(panels), nil
}

// Panel builds the plot of one element.
func Panel(e viewer.Element) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = e.Title()
	cfg := e.Config()
	p.X.Label.Text = axisLabel(cfg.XAxis.Label, cfg.XAxis.Unit)
	p.Y.Label.Text = axisLabel(cfg.YAxis.Label, cfg.YAxis.Unit)

	var err error
	switch el := e.(type) {
	case *viewer.Image2D:
		err = addImage(p, el)
	case *viewer.Spectrum1D:
		err = addSpectrum(p, el)
	case *viewer.Plot1D:
		err = addCurves(p, el)
	default:
		err = fmt.Errorf("%w: %s", viewer.ErrUnknownKind, e.Kind())
	}
	if err != nil {
		return nil, err
	}
	if err := addOverlays(p, e.Overlays()); err != nil {
		return nil, err
	}
	applyRange(&p.X, e.Control(viewer.XAxis))
	applyRange(&p.Y, e.Control(viewer.YAxis))
	return p, nil
}

func axisLabel(label, unit string) string {
	switch {
	case label != "" && unit != "":
		return label + " [" + unit + "]"
	case unit != "":
		return "[" + unit + "]"
	}
	return label
}

func applyRange(ax *plot.Axis, c *viewer.Control) {
	if c == nil {
		return
	}
	r := c.Value()
	if r.Max > r.Min && !math.IsInf(r.Min, 0) && !math.IsInf(r.Max, 0) {
		ax.Min, ax.Max = r.Min, r.Max
	}
}

// grid adapts an image to plotter.GridXYZ. Columns go through the
// element's x transform so a wavelength-mapped spectrum lines up with its
// linked 1D plot.
type grid struct {
	pix  *mat.Dense
	tr   viewer.Transform
	fill float64
}

func (g grid) Dims() (c, r int) {
	r, c = g.pix.Dims()
	return c, r
}

func (g grid) Z(c, r int) float64 {
	v := g.pix.At(r, c)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return g.fill
	}
	return v
}

func (g grid) X(c int) float64 { return g.tr.Apply(float64(c) + 0.5) }
func (g grid) Y(r int) float64 { return float64(r) + 0.5 }

func addImage(p *plot.Plot, im *viewer.Image2D) error {
	pix := im.Pixels()
	if pix == nil {
		return viewer.ErrUnsupportedData
	}
	lv := im.Levels()
	lo, hi := lv.Min, lv.Max
	if math.IsNaN(lo) || math.IsNaN(hi) {
		lo, hi = 0, 1
	}
	if hi <= lo {
		hi = lo + 1
	}
	hm := plotter.NewHeatMap(grid{pix: pix, tr: im.XTransform(), fill: lo}, palette.Heat(64, 1))
	hm.Min, hm.Max = lo, hi
	hm.Underflow = hm.Palette.Colors()[0]
	hm.Overflow = hm.Palette.Colors()[len(hm.Palette.Colors())-1]
	p.Add(hm)
	return nil
}

func addSpectrum(p *plot.Plot, s *viewer.Spectrum1D) error {
	wave, flux := s.Data()
	if len(wave) == 0 {
		return viewer.ErrUnsupportedData
	}
	line, err := plotter.NewLine(xys(wave, flux))
	if err != nil {
		return fmt.Errorf("spectrum: %w", err)
	}
	line.Color = color.Black
	p.Add(line)

	lo, hi := finiteSpan(flux)
	if ctl := s.Control(viewer.YAxis); ctl != nil {
		if r := ctl.Value(); r.Max > r.Min {
			lo, hi = r.Min, r.Max
		}
	}
	var labels plotter.XYLabels
	for _, m := range s.Lines() {
		marker, err := plotter.NewLine(plotter.XYs{{X: m.X, Y: lo}, {X: m.X, Y: hi}})
		if err != nil {
			continue
		}
		marker.Color = color.RGBA{R: 200, A: 255}
		marker.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(marker)
		labels.XYs = append(labels.XYs, plotter.XY{X: m.X, Y: hi})
		labels.Labels = append(labels.Labels, m.Name)
	}
	if len(labels.Labels) > 0 {
		lbl, err := plotter.NewLabels(labels)
		if err != nil {
			return fmt.Errorf("line labels: %w", err)
		}
		p.Add(lbl)
	}
	p.Legend.Add(fmt.Sprintf("z = %.4f", s.Redshift()), line)
	return nil
}

func addCurves(p *plot.Plot, pl *viewer.Plot1D) error {
	curves := pl.Curves()
	if len(curves) == 0 {
		return viewer.ErrUnsupportedData
	}
	var args []any
	for _, c := range curves {
		args = append(args, c.Label, xys(c.X, c.Y))
	}
	if err := plotutil.AddLines(p, args...); err != nil {
		return fmt.Errorf("curves: %w", err)
	}
	return nil
}

func addOverlays(p *plot.Plot, overlays []viewer.Overlay) error {
	for _, o := range overlays {
		l, err := plotter.NewLine(xys(o.X, o.Y))
		if err != nil {
			return fmt.Errorf("overlay `%s`: %w", o.Label, err)
		}
		l.Color = color.RGBA{G: 160, B: 255, A: 255}
		p.Add(l)
	}
	return nil
}

// xys pairs x and y up to the shorter length, dropping non-finite points.
func xys(x, y []float64) plotter.XYs {
	n := min(len(x), len(y))
	pts := make(plotter.XYs, 0, n)
	for i := 0; i < n; i++ {
		if finite(x[i]) && finite(y[i]) {
			pts = append(pts, plotter.XY{X: x[i], Y: y[i]})
		}
	}
	return pts
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func finiteSpan(v []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range v {
		if finite(x) {
			lo, hi = math.Min(lo, x), math.Max(hi, x)
		}
	}
	if lo > hi {
		return 0, 1
	}
	return lo, hi
}
