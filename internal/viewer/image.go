package viewer

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"github.com/papapumpkin/specvizitor/internal/config"
	"github.com/papapumpkin/specvizitor/internal/loader"
	"gonum.org/v1/gonum/mat"
)

// Transform maps image columns to x-axis coordinates: x = Offset + Scale*column.
type Transform struct {
	Offset, Scale float64
}

// Identity is the pixel-coordinate transform.
var Identity = Transform{Scale: 1}

// Apply returns the x coordinate of column c.
func (t Transform) Apply(c float64) float64 { return t.Offset + t.Scale*c }

// Image2D shows an image or a cutout with a colour bar.
type Image2D struct {
	base
	pix       *mat.Dense
	levels    Range
	transform Transform
}

// NewImage2D creates an image element.
func NewImage2D(cfg config.Widget) *Image2D {
	return &Image2D{
		base:      newBase(cfg, XAxis, YAxis, ColorBar),
		transform: Identity,
	}
}

// Kind returns config.KindImage.
func (im *Image2D) Kind() string { return config.KindImage }

// LoadForObject displays the slot image and computes its levels.
func (im *Image2D) LoadForObject(_ Object, slot loader.Slot) {
	im.pix = nil
	im.transform = Identity
	if !im.accept(slot) {
		return
	}
	if slot.Result.Image == nil {
		im.disable(fmt.Errorf("%w: %s (widget: %s)", ErrUnsupportedData, slot.Result.Kind(), im.Title()))
		return
	}
	im.pix = slot.Result.Image
	im.levels = Levels(im.pix, im.cfg.ColorBar.Limits)
	im.ResetView()
}

// Clear drops the image.
func (im *Image2D) Clear() {
	im.clearBase()
	im.pix = nil
	im.transform = Identity
}

// ResetView restores the full-image axes and the default levels.
func (im *Image2D) ResetView() {
	if im.pix == nil {
		return
	}
	rows, cols := im.pix.Dims()
	im.controls[XAxis].Set(Range{Min: im.transform.Apply(0), Max: im.transform.Apply(float64(cols))})
	im.controls[YAxis].Set(Range{Min: 0, Max: float64(rows)})
	im.controls[ColorBar].Set(im.levels)
}

// Pixels returns the displayed image, nil when inactive.
func (im *Image2D) Pixels() *mat.Dense { return im.pix }

// Meta returns the header of the displayed image.
func (im *Image2D) Meta() loader.Meta { return im.slot.Result.Meta }

// Levels returns the current colour-bar levels.
func (im *Image2D) Levels() Range { return im.controls[ColorBar].Value() }

// XTransform returns the column to x-axis transform.
func (im *Image2D) XTransform() Transform { return im.transform }

// SetXTransform changes the column to x-axis transform and refits the x axis.
func (im *Image2D) SetXTransform(t Transform) {
	im.transform = t
	if im.pix != nil {
		_, cols := im.pix.Dims()
		im.controls[XAxis].Set(Range{Min: t.Apply(0), Max: t.Apply(float64(cols))})
	}
}

// Levels computes colour-bar levels. minmax spans the finite pixels,
// percentile keeps the central Percent per cent, user takes Min and Max
// from the configuration and falls back to minmax for unset bounds.
func Levels(pix *mat.Dense, lim config.Limits) Range {
	var data stats.Float64Data
	rows, _ := pix.Dims()
	for i := 0; i < rows; i++ {
		for _, v := range pix.RawRowView(i) {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				data = append(data, v)
			}
		}
	}
	if len(data) == 0 {
		return Range{Min: 0, Max: 1}
	}
	lo, _ := data.Min()
	hi, _ := data.Max()

	switch lim.Type {
	case "percentile":
		p := lim.Percent
		if p <= 0 || p >= 100 {
			break
		}
		if v, err := stats.Percentile(data, (100-p)/2); err == nil {
			lo = v
		}
		if v, err := stats.Percentile(data, 100-(100-p)/2); err == nil {
			hi = v
		}
	case "user":
		if lim.Min != nil {
			lo = *lim.Min
		}
		if lim.Max != nil {
			hi = *lim.Max
		}
	}
	return Range{Min: lo, Max: hi}
}
