package viewer

import (
	"errors"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"github.com/papapumpkin/specvizitor/internal/config"
	"github.com/papapumpkin/specvizitor/internal/loader"
)

// LineMarker is a spectral line drawn at its observed position.
type LineMarker struct {
	Name string
	X    float64
}

// Spectrum1D plots flux against wavelength with spectral-line markers
// placed by a redshift slider and optional Gaussian smoothing.
type Spectrum1D struct {
	base
	lines config.SpectralLinesConfig

	wave     []float64
	flux     []float64
	smoothed []float64
	// lineScale converts line wavelengths to the x-axis unit.
	lineScale float64
	zDefault  float64
}

// NewSpectrum1D creates a spectrum element.
func NewSpectrum1D(cfg config.Widget, lines config.SpectralLinesConfig) *Spectrum1D {
	s := &Spectrum1D{
		base:      newBase(cfg, XAxis, YAxis, RedshiftSlider, SmoothingSlider),
		lines:     lines,
		lineScale: 1,
		zDefault:  cfg.Redshift.Default,
	}
	s.controls[RedshiftSlider].value = Point(cfg.Redshift.Default)
	s.controls[SmoothingSlider].value = Point(cfg.Smoothing.Default)
	s.controls[SmoothingSlider].onChange(func(r Range) { s.smooth(r.Min) })
	return s
}

// Kind returns config.KindSpectrum.
func (s *Spectrum1D) Kind() string { return config.KindSpectrum }

func (s *Spectrum1D) columns() (x, y string) {
	x, y = s.cfg.XColumn, s.cfg.YColumn
	if x == "" {
		x = "wave"
	}
	if y == "" {
		y = "flux"
	}
	return x, y
}

// LoadForObject reads the wavelength and flux columns of the slot table.
// The redshift slider starts at the redshift saved in the review store,
// then at the catalogue value, then at the configured default.
func (s *Spectrum1D) LoadForObject(obj Object, slot loader.Slot) {
	s.wave, s.flux, s.smoothed = nil, nil, nil
	if !s.accept(slot) {
		return
	}
	tbl := slot.Result.Table
	if tbl == nil {
		s.disable(fmt.Errorf("%w: %s (widget: %s)", ErrUnsupportedData, slot.Result.Kind(), s.Title()))
		return
	}
	xcol, ycol := s.columns()
	wave, errX := tbl.Column(xcol)
	flux, errY := tbl.Column(ycol)
	if err := errors.Join(errX, errY); err != nil {
		s.disable(fmt.Errorf("%w (widget: %s)", err, s.Title()))
		return
	}
	s.wave, s.flux = wave, flux

	s.lineScale = 1
	if s.lines.WaveUnit != "" && s.cfg.XAxis.Unit != "" {
		if k, err := WavelengthScale(s.lines.WaveUnit, s.cfg.XAxis.Unit); err == nil {
			s.lineScale = k
		}
	}

	s.zDefault = s.cfg.Redshift.Default
	if name := s.cfg.Redshift.CatalogName; name != "" && obj.Entry != nil {
		if z, err := obj.Entry.Float(name); err == nil && !math.IsNaN(z) {
			s.zDefault = z
		}
	}

	s.ResetView()
	if z, ok := obj.ReviewRedshift(); ok {
		s.SetRedshift(z)
	}
}

// Clear drops the spectrum.
func (s *Spectrum1D) Clear() {
	s.clearBase()
	s.wave, s.flux, s.smoothed = nil, nil, nil
}

// ResetView fits the axes to the data and returns the sliders to their defaults.
func (s *Spectrum1D) ResetView() {
	if s.wave == nil {
		return
	}
	s.SetRedshift(s.zDefault)
	s.controls[SmoothingSlider].Set(Point(snap(s.cfg.Smoothing, s.cfg.Smoothing.Default)))
	s.smooth(s.Smoothing())
	s.controls[XAxis].Set(span(s.wave))
}

// Data returns the wavelengths and the displayed (smoothed) flux.
func (s *Spectrum1D) Data() (wave, flux []float64) { return s.wave, s.smoothed }

// Redshift returns the slider redshift.
func (s *Spectrum1D) Redshift() float64 { return s.controls[RedshiftSlider].Value().Min }

// SetRedshift moves the redshift slider, snapped to its step and bounds.
func (s *Spectrum1D) SetRedshift(z float64) {
	s.controls[RedshiftSlider].Set(Point(snap(s.cfg.Redshift, z)))
}

// Smoothing returns the smoothing sigma in samples.
func (s *Spectrum1D) Smoothing() float64 { return s.controls[SmoothingSlider].Value().Min }

// SetSmoothing moves the smoothing slider.
func (s *Spectrum1D) SetSmoothing(sigma float64) {
	s.controls[SmoothingSlider].Set(Point(snap(s.cfg.Smoothing, sigma)))
}

// Lines returns the configured lines at their observed positions for the
// current redshift, in the x-axis unit.
func (s *Spectrum1D) Lines() []LineMarker {
	z := s.Redshift()
	markers := make([]LineMarker, 0, len(s.lines.Lines))
	for _, l := range s.lines.Lines {
		markers = append(markers, LineMarker{Name: l.Name, X: Observed(l.Wavelength*s.lineScale, z)})
	}
	return markers
}

// XUnit returns the x-axis unit.
func (s *Spectrum1D) XUnit() string { return s.cfg.XAxis.Unit }

func (s *Spectrum1D) smooth(sigma float64) {
	if s.flux == nil {
		return
	}
	s.smoothed = gaussianSmooth(s.flux, sigma)
	s.controls[YAxis].Set(span(s.smoothed))
}

// snap clamps v to the slider bounds and rounds it to the slider step.
func snap(cfg config.Slider, v float64) float64 {
	if math.IsNaN(v) {
		return cfg.Default
	}
	if cfg.Max > cfg.Min {
		v = math.Max(cfg.Min, math.Min(cfg.Max, v))
	}
	if cfg.Step > 0 {
		v = cfg.Min + math.Round((v-cfg.Min)/cfg.Step)*cfg.Step
	}
	return v
}

// span returns the range of the finite values of v.
func span(v []float64) Range {
	var data stats.Float64Data
	for _, x := range v {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			data = append(data, x)
		}
	}
	if len(data) == 0 {
		return Range{Min: 0, Max: 1}
	}
	lo, _ := data.Min()
	hi, _ := data.Max()
	return Range{Min: lo, Max: hi}
}
