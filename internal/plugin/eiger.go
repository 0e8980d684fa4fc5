package plugin

import (
	"log/slog"
	"strings"

	"github.com/papapumpkin/specvizitor/internal/catalog"
	"github.com/papapumpkin/specvizitor/internal/viewer"
)

// crosshairSize is the half-length of the crosshair arms in pixels.
const crosshairSize = 5

// Eiger marks the emission-line position from the catalogue columns
// X_IMAGE and Y_IMAGE with a crosshair on every 2D spectrum panel.
type Eiger struct {
	viewer.NopPlugin
	Panels []string
	log    *slog.Logger
}

// NewEiger returns the plugin with the default panel titles.
func NewEiger(log *slog.Logger) *Eiger {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Eiger{
		Panels: []string{"Spectrum 2D [Stack]", "Spectrum 2D [Module A]", "Spectrum 2D [Module B]"},
		log:    log,
	}
}

// Name returns "eiger".
func (e *Eiger) Name() string { return "eiger" }

// TweakWidgets draws the crosshairs.
func (e *Eiger) TweakWidgets(t viewer.Tweak) {
	x0, y0, ok := e.emissionLine(t.Entry)
	if !ok {
		return
	}
	for _, title := range e.Panels {
		el, ok := t.Active[title]
		if !ok {
			continue
		}
		el.AddOverlay(viewer.Overlay{Label: "crosshair", X: []float64{x0 - crosshairSize, x0 + crosshairSize}, Y: []float64{y0, y0}})
		el.AddOverlay(viewer.Overlay{Label: "crosshair", X: []float64{x0, x0}, Y: []float64{y0 - crosshairSize, y0 + crosshairSize}})
	}
}

// emissionLine reads the first columns whose names contain X_IMAGE and Y_IMAGE.
func (e *Eiger) emissionLine(entry *catalog.Catalog) (x, y float64, ok bool) {
	if entry == nil {
		return 0, 0, false
	}
	var coords [2]float64
	for i, keyword := range []string{"X_IMAGE", "Y_IMAGE"} {
		found := false
		for _, name := range entry.Colnames() {
			if !strings.Contains(name, keyword) {
				continue
			}
			v, err := entry.Float(name)
			if err != nil {
				e.log.Error("reading emission-line coordinate", "column", name, "error", err)
				return 0, 0, false
			}
			coords[i], found = v, true
			break
		}
		if !found {
			e.log.Error("object coordinates not found", "coordinate", keyword)
			return 0, 0, false
		}
	}
	return coords[0], coords[1], true
}
