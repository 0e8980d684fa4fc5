package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/papapumpkin/specvizitor/internal/catalog"
	"github.com/papapumpkin/specvizitor/internal/config"
	"github.com/papapumpkin/specvizitor/internal/loader"
	"github.com/papapumpkin/specvizitor/internal/objid"
	"github.com/qdm12/reprint"
)

// ErrNoObject indicates a reload before any object was delivered.
var ErrNoObject = errors.New("no object selected")

// SlotLoader resolves and loads the data of one widget for one object.
type SlotLoader interface {
	Slot(ctx context.Context, w config.Widget, id objid.ID, entry *catalog.Catalog) loader.Slot
}

// WidgetStatus reports the outcome of one delivery for one element.
type WidgetStatus struct {
	Title  string
	Active bool
	Path   string
	Err    error
}

// Delivery summarises one object switch.
type Delivery struct {
	Object  Object
	Widgets []WidgetStatus
}

// Missing returns the statuses of elements without data.
func (d Delivery) Missing() []WidgetStatus {
	var out []WidgetStatus
	for _, w := range d.Widgets {
		if !w.Active {
			out = append(out, w)
		}
	}
	return out
}

// Shown is what the viewer displays, as handed to a View callback.
type Shown struct {
	Elements []Element
	Object   Object
	Loaded   bool // False before the first delivery and after Clear.
}

// Bus fans an object selection out to every element. Deliveries are
// serialised: the bus mutex is held for a whole switch. The apply mutex
// is held only while elements take their new slots, so Cancel never waits
// for file I/O.
type Bus struct {
	mu       sync.Mutex
	applyMu  sync.Mutex
	loader   SlotLoader
	log      *slog.Logger
	registry *Registry
	links    Links
	plugins  []Plugin
	docks    []Dock
	current  *Object
}

// NewBus creates a bus with no elements. Call Configure before Deliver.
func NewBus(l SlotLoader, log *slog.Logger) *Bus {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Bus{loader: l, log: log, registry: NewRegistry()}
}

// Configure rebuilds the elements from widgets. Existing links are torn
// down and existing slots released before anything new is wired, so
// repeated reconfiguration never accumulates connections. Plugins may
// rewrite a private copy of the widget list first. Widgets that fail to
// build are skipped and reported in the returned error.
func (b *Bus) Configure(widgets []config.Widget, lines config.SpectralLinesConfig, plugins []Plugin) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.links.Clear()
	b.releaseAll()
	b.registry = NewRegistry()
	b.plugins = plugins

	cfgs, _ := reprint.This(widgets).([]config.Widget)
	for _, p := range plugins {
		cfgs = p.OverwriteWidgetConfigs(cfgs)
	}

	var errs []error
	for _, cfg := range cfgs {
		if cfg.Hidden {
			continue
		}
		e, err := NewElement(cfg, lines)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := b.registry.Add(e); err != nil {
			errs = append(errs, err)
		}
	}

	for _, e := range b.registry.All() {
		for _, l := range declaredLinks(e.Config()) {
			if err := b.link(e, l.kind, l.target); err != nil {
				b.log.Warn("widget link not established", "widget", e.Title(), "link", l.kind.String(), "error", err)
			}
		}
	}

	b.docks = b.docks[:0]
	for _, e := range b.registry.All() {
		cfg := e.Config()
		b.docks = append(b.docks, Dock{Title: cfg.Title, Position: cfg.Position, RelativeTo: cfg.RelativeTo, Visible: true})
	}
	for _, p := range plugins {
		b.docks = p.TweakDocks(b.docks)
	}

	b.current = nil
	return errors.Join(errs...)
}

type declared struct {
	kind   LinkKind
	target string
}

func declaredLinks(cfg config.Widget) []declared {
	var out []declared
	for _, d := range []declared{
		{XAxis, cfg.XAxis.LinkTo},
		{YAxis, cfg.YAxis.LinkTo},
		{ColorBar, cfg.ColorBar.LinkTo},
		{RedshiftSlider, cfg.Redshift.LinkTo},
		{SmoothingSlider, cfg.Smoothing.LinkTo},
	} {
		if d.target != "" {
			out = append(out, d)
		}
	}
	return out
}

func (b *Bus) link(e Element, kind LinkKind, target string) error {
	t, ok := b.registry.Get(target)
	if !ok {
		return fmt.Errorf("%w: no widget titled `%s`", ErrLink, target)
	}
	from, to := e.Control(kind), t.Control(kind)
	if from == nil || to == nil {
		return fmt.Errorf("%w: `%s` and `%s` do not both have a %s", ErrLink, e.Title(), target, kind)
	}
	return b.links.Connect(from, to)
}

// Deliver loads every element's data for obj and hands each element its
// slot. All slots are loaded before any element changes; when ctx is
// cancelled before the elements are updated the new slots are released and
// no element is touched. Contexts cancelled through Cancel never interrupt
// an update halfway. After delivery the plugins tweak the active elements.
func (b *Bus) Deliver(ctx context.Context, obj Object) (Delivery, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	elems := b.registry.All()
	slots := make([]loader.Slot, 0, len(elems))
	for _, e := range elems {
		s := b.loader.Slot(ctx, e.Config(), obj.ID, obj.Entry)
		slots = append(slots, s)
		if err := ctx.Err(); err != nil {
			if rerr := loader.ReleaseAll(slots); rerr != nil {
				b.log.Warn("releasing cancelled slots", "error", rerr)
			}
			return Delivery{}, err
		}
	}

	b.applyMu.Lock()
	defer b.applyMu.Unlock()
	if err := ctx.Err(); err != nil {
		if rerr := loader.ReleaseAll(slots); rerr != nil {
			b.log.Warn("releasing cancelled slots", "error", rerr)
		}
		return Delivery{}, err
	}

	d := Delivery{Object: obj}
	for i, e := range elems {
		if err := e.DataSlot().Release(); err != nil {
			b.log.Warn("releasing widget data", "widget", e.Title(), "error", err)
		}
		e.LoadForObject(obj, slots[i])
		st := WidgetStatus{Title: e.Title(), Active: e.Active(), Path: slots[i].Ref.Path}
		if !e.Active() {
			st.Err = slots[i].Err
			if st.Err == nil {
				st.Err = errors.New(e.Status())
			}
		}
		d.Widgets = append(d.Widgets, st)
	}

	tw := Tweak{Active: b.registry.Active(), Entry: obj.Entry, Links: &b.links}
	for _, p := range b.plugins {
		p.TweakWidgets(tw)
	}

	b.current = &obj
	return d, nil
}

// Cancel runs cancel outside the element update of any delivery. A
// delivery using the cancelled context either finished updating before
// cancel ran or leaves every element untouched.
func (b *Bus) Cancel(cancel context.CancelFunc) {
	b.applyMu.Lock()
	defer b.applyMu.Unlock()
	cancel()
}

// Reload delivers the current object again.
func (b *Bus) Reload(ctx context.Context) (Delivery, error) {
	b.mu.Lock()
	cur := b.current
	b.mu.Unlock()
	if cur == nil {
		return Delivery{}, ErrNoObject
	}
	return b.Deliver(ctx, *cur)
}

// Current returns the last delivered object.
func (b *Bus) Current() (Object, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return Object{}, false
	}
	return *b.current, true
}

// Clear releases all slots and empties every element.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.releaseAll()
	b.current = nil
}

func (b *Bus) releaseAll() {
	for _, e := range b.registry.All() {
		if err := e.DataSlot().Release(); err != nil {
			b.log.Warn("releasing widget data", "widget", e.Title(), "error", err)
		}
		e.Clear()
	}
}

// View calls fn with the elements in display order and the object they
// show. No delivery runs while fn does, so fn may read and adjust the
// elements; it must not call back into the bus.
func (b *Bus) View(fn func(Shown) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := Shown{Elements: b.registry.All()}
	if b.current != nil {
		v.Object, v.Loaded = *b.current, true
	}
	return fn(v)
}

// Element returns the element with the given title. The element is live:
// use it only while no delivery is in flight, or go through View.
func (b *Bus) Element(title string) (Element, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.registry.Get(title)
}

// Docks returns the layout computed by the last Configure.
func (b *Bus) Docks() []Dock {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Dock(nil), b.docks...)
}

// LinkCount returns the number of established links.
func (b *Bus) LinkCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.links.Len()
}
