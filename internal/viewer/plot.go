package viewer

import (
	"errors"
	"fmt"

	"github.com/papapumpkin/specvizitor/internal/config"
	"github.com/papapumpkin/specvizitor/internal/loader"
)

// Curve is one line of a plot element.
type Curve struct {
	Label string
	X, Y  []float64
}

// Plot1D draws one or more curves from table columns, e.g. a redshift PDF.
type Plot1D struct {
	base
	curves []Curve
}

// NewPlot1D creates a plot element.
func NewPlot1D(cfg config.Widget) *Plot1D {
	return &Plot1D{base: newBase(cfg, XAxis, YAxis)}
}

// Kind returns config.KindPlot.
func (p *Plot1D) Kind() string { return config.KindPlot }

func (p *Plot1D) curveSpecs() []config.LinePlot {
	if len(p.cfg.Lines) > 0 {
		return p.cfg.Lines
	}
	if p.cfg.XColumn != "" && p.cfg.YColumn != "" {
		return []config.LinePlot{{Label: p.cfg.YColumn, X: p.cfg.XColumn, Y: p.cfg.YColumn}}
	}
	return nil
}

// LoadForObject builds the configured curves. Curves whose columns are
// missing are skipped; the element is disabled when none remain.
func (p *Plot1D) LoadForObject(_ Object, slot loader.Slot) {
	p.curves = nil
	if !p.accept(slot) {
		return
	}
	tbl := slot.Result.Table
	if tbl == nil {
		p.disable(fmt.Errorf("%w: %s (widget: %s)", ErrUnsupportedData, slot.Result.Kind(), p.Title()))
		return
	}

	var errs []error
	for _, spec := range p.curveSpecs() {
		x, errX := tbl.Column(spec.X)
		y, errY := tbl.Column(spec.Y)
		if err := errors.Join(errX, errY); err != nil {
			errs = append(errs, err)
			continue
		}
		label := spec.Label
		if label == "" {
			label = spec.Y
		}
		p.curves = append(p.curves, Curve{Label: label, X: x, Y: y})
	}
	if len(p.curves) == 0 {
		errs = append(errs, fmt.Errorf("no curves to plot (widget: %s)", p.Title()))
		p.disable(errors.Join(errs...))
		return
	}
	p.ResetView()
}

// Clear drops the curves.
func (p *Plot1D) Clear() {
	p.clearBase()
	p.curves = nil
}

// ResetView fits the axes to all curves.
func (p *Plot1D) ResetView() {
	if len(p.curves) == 0 {
		return
	}
	var xs, ys []float64
	for _, c := range p.curves {
		xs = append(xs, c.X...)
		ys = append(ys, c.Y...)
	}
	p.controls[XAxis].Set(span(xs))
	p.controls[YAxis].Set(span(ys))
}

// Curves returns the plotted curves.
func (p *Plot1D) Curves() []Curve { return append([]Curve(nil), p.curves...) }
