package plugin

import (
	"log/slog"

	"github.com/papapumpkin/specvizitor/internal/viewer"
)

// Grizli aligns a grizli 2D spectrum with its 1D extraction: the 2D
// columns are mapped to wavelength from the CRVAL1, CD1_1 and CRPIX1
// cards (in microns) and the two x axes are linked. A trace line is drawn
// along the middle row of the 2D spectrum.
type Grizli struct {
	viewer.NopPlugin
	Spec1D string
	Spec2D string
	log    *slog.Logger

	// linked is the x-axis pair this plugin connected, nil when the link
	// was declared in the configuration or is not established.
	linked []*viewer.Control
}

// NewGrizli returns the plugin with the default widget titles.
func NewGrizli(log *slog.Logger) *Grizli {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Grizli{Spec1D: "Spectrum 1D", Spec2D: "Spectrum 2D", log: log}
}

// Name returns "grizli".
func (g *Grizli) Name() string { return "grizli" }

// TweakWidgets applies the wavelength transform when both spectra are
// active and undoes it otherwise.
func (g *Grizli) TweakWidgets(t viewer.Tweak) {
	spec2d, _ := t.Active[g.Spec2D].(*viewer.Image2D)
	if spec2d == nil {
		return
	}
	spec1d, _ := t.Active[g.Spec1D].(*viewer.Spectrum1D)

	if spec1d != nil {
		if tr, ok := g.wavelengthTransform(spec1d, spec2d); ok {
			spec2d.SetXTransform(tr)
			g.link(t.Links, spec2d.Control(viewer.XAxis), spec1d.Control(viewer.XAxis))
			spec1d.ResetView()
			g.addTrace(spec2d)
			return
		}
	}

	spec2d.SetXTransform(viewer.Identity)
	g.unlink(t.Links)
	spec2d.ResetView()
	g.addTrace(spec2d)
}

func (g *Grizli) link(links *viewer.Links, from, to *viewer.Control) {
	if links.Linked(from, to) {
		return
	}
	if err := links.Connect(from, to); err != nil {
		g.log.Warn("linking spectra", "error", err)
		return
	}
	g.linked = []*viewer.Control{from, to}
}

// unlink drops only the link this plugin made.
func (g *Grizli) unlink(links *viewer.Links) {
	if g.linked == nil {
		return
	}
	links.Unlink(g.linked[0], g.linked[1])
	g.linked = nil
}

func (g *Grizli) wavelengthTransform(spec1d *viewer.Spectrum1D, spec2d *viewer.Image2D) (viewer.Transform, bool) {
	meta := spec2d.Meta()
	crval, ok1 := meta.Float("CRVAL1")
	cd, ok2 := meta.Float("CD1_1")
	crpix, ok3 := meta.Float("CRPIX1")
	if !ok1 || !ok2 || !ok3 {
		g.log.Debug("2D spectrum has no wavelength solution", "widget", spec2d.Title())
		return viewer.Transform{}, false
	}

	scale := 1.0
	if unit := spec1d.XUnit(); unit != "" {
		k, err := viewer.WavelengthScale("micron", unit)
		if err != nil {
			g.log.Warn("converting 2D spectrum wavelengths", "widget", spec1d.Title(), "error", err)
			return viewer.Transform{}, false
		}
		scale = k
	}
	dlam := cd * scale
	// Column c (0-based) is FITS pixel c+1.
	return viewer.Transform{Offset: crval*scale + dlam*(1-crpix), Scale: dlam}, true
}

func (g *Grizli) addTrace(spec2d *viewer.Image2D) {
	pix := spec2d.Pixels()
	if pix == nil {
		return
	}
	rows, cols := pix.Dims()
	meta := spec2d.Meta()
	if n, ok := meta.Float("NAXIS2"); ok {
		rows = int(n)
	}
	if n, ok := meta.Float("NAXIS1"); ok {
		cols = int(n)
	}
	tr := spec2d.XTransform()
	y := float64(rows) / 2
	spec2d.AddOverlay(viewer.Overlay{
		Label: "trace",
		X:     []float64{tr.Apply(0), tr.Apply(float64(cols))},
		Y:     []float64{y, y},
	})
}
