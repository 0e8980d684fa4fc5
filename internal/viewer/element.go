// Package viewer holds the viewer elements shown for the current object
// and the bus that keeps them in sync.
//
// Elements are a closed set of kinds (image, spectrum, plot) behind the
// Element interface. The Bus owns them in declaration order, loads each
// element's data slot for every selected object, wires the configured
// axis, slider and colour-bar links, and runs plugin hooks.
package viewer

import (
	"errors"
	"fmt"
	"math"

	"github.com/papapumpkin/specvizitor/internal/catalog"
	"github.com/papapumpkin/specvizitor/internal/config"
	"github.com/papapumpkin/specvizitor/internal/loader"
	"github.com/papapumpkin/specvizitor/internal/objid"
	"github.com/papapumpkin/specvizitor/internal/review"
)

var (
	// ErrUnknownKind indicates a widget kind with no element implementation.
	ErrUnknownKind = errors.New("unknown widget kind")
	// ErrUnsupportedData indicates data of the wrong shape for an element.
	ErrUnsupportedData = errors.New("unsupported data")
)

// Object is the snapshot every element receives on an object switch.
type Object struct {
	Index  int
	ID     objid.ID
	Review *review.Data
	// Entry is the catalogue row of the object, nil without a catalogue.
	Entry *catalog.Catalog
}

// ReviewRedshift returns the redshift saved for the object, if any.
func (o Object) ReviewRedshift() (float64, bool) {
	if o.Review == nil {
		return 0, false
	}
	z, ok := o.Review.Number(o.Index, review.Redshift)
	if !ok || math.IsNaN(z) || z == review.RedshiftFill {
		return 0, false
	}
	return z, true
}

// Overlay is a polyline drawn over an element, in data coordinates.
type Overlay struct {
	Label string
	X, Y  []float64
}

// Element is one viewer widget.
type Element interface {
	Title() string
	Kind() string
	Config() config.Widget
	// LoadForObject replaces the element's data with slot. An inactive
	// slot disables the element and clears its display.
	LoadForObject(obj Object, slot loader.Slot)
	Clear()
	ResetView()
	Active() bool
	DataSlot() loader.Slot
	// Status is the resolved path of an active element or the reason it is disabled.
	Status() string
	// Control returns the control of the given kind, or nil.
	Control(kind LinkKind) *Control
	Overlays() []Overlay
	AddOverlay(o Overlay)
}

// NewElement builds the element for a widget configuration.
func NewElement(cfg config.Widget, lines config.SpectralLinesConfig) (Element, error) {
	switch cfg.Kind {
	case config.KindImage, "":
		return NewImage2D(cfg), nil
	case config.KindSpectrum:
		return NewSpectrum1D(cfg, lines), nil
	case config.KindPlot:
		return NewPlot1D(cfg), nil
	}
	return nil, fmt.Errorf("%w `%s` (widget: %s)", ErrUnknownKind, cfg.Kind, cfg.Title)
}

// base carries the state shared by all element kinds.
type base struct {
	cfg      config.Widget
	slot     loader.Slot
	active   bool
	status   string
	controls map[LinkKind]*Control
	overlays []Overlay
}

func newBase(cfg config.Widget, kinds ...LinkKind) base {
	b := base{cfg: cfg, controls: make(map[LinkKind]*Control, len(kinds)), status: "no object"}
	for _, k := range kinds {
		b.controls[k] = newControl(k, cfg.Title)
	}
	return b
}

func (b *base) Title() string                  { return b.cfg.Title }
func (b *base) Config() config.Widget          { return b.cfg }
func (b *base) Active() bool                   { return b.active }
func (b *base) DataSlot() loader.Slot          { return b.slot }
func (b *base) Status() string                 { return b.status }
func (b *base) Control(kind LinkKind) *Control { return b.controls[kind] }
func (b *base) Overlays() []Overlay            { return append([]Overlay(nil), b.overlays...) }
func (b *base) AddOverlay(o Overlay)           { b.overlays = append(b.overlays, o) }

// accept stores slot and reports whether it holds usable data.
func (b *base) accept(slot loader.Slot) bool {
	b.slot = slot
	b.overlays = nil
	if !slot.Active() {
		b.disable(slot.Err)
		return false
	}
	b.active = true
	b.status = slot.Result.Path
	return true
}

func (b *base) disable(err error) {
	b.active = false
	b.overlays = nil
	if err != nil {
		b.status = err.Error()
	} else {
		b.status = "no data"
	}
}

func (b *base) clearBase() {
	b.slot = loader.Slot{}
	b.active = false
	b.overlays = nil
	b.status = "no object"
}

// Registry keeps elements in declaration order, keyed by title.
type Registry struct {
	order   []Element
	byTitle map[string]Element
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byTitle: make(map[string]Element)}
}

// Add registers e. Titles must be unique.
func (r *Registry) Add(e Element) error {
	if _, dup := r.byTitle[e.Title()]; dup {
		return fmt.Errorf("duplicate widget title `%s`", e.Title())
	}
	r.order = append(r.order, e)
	r.byTitle[e.Title()] = e
	return nil
}

// Get returns the element with the given title.
func (r *Registry) Get(title string) (Element, bool) {
	e, ok := r.byTitle[title]
	return e, ok
}

// All returns the elements in declaration order.
func (r *Registry) All() []Element { return append([]Element(nil), r.order...) }

// Len returns the number of elements.
func (r *Registry) Len() int { return len(r.order) }

// Active returns the elements holding data, keyed by title.
func (r *Registry) Active() map[string]Element {
	active := make(map[string]Element)
	for _, e := range r.order {
		if e.Active() {
			active[e.Title()] = e
		}
	}
	return active
}
