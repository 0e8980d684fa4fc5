package viewer

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// LinkKind names a control that widgets can share.
type LinkKind int

// Linkable controls.
const (
	XAxis LinkKind = iota
	YAxis
	ColorBar
	RedshiftSlider
	SmoothingSlider
)

// String returns the link kind as used in log fields.
func (k LinkKind) String() string {
	switch k {
	case XAxis:
		return "x_axis"
	case YAxis:
		return "y_axis"
	case ColorBar:
		return "color_bar"
	case RedshiftSlider:
		return "redshift_slider"
	case SmoothingSlider:
		return "smoothing_slider"
	}
	return fmt.Sprintf("link(%d)", int(k))
}

// ErrLink indicates a link that cannot be established.
var ErrLink = errors.New("invalid link")

// Range is the value of a control: an axis range, colour-bar levels, or a
// slider position (Min == Max).
type Range struct {
	Min, Max float64
}

// Point is the degenerate range of a slider value.
func Point(v float64) Range { return Range{Min: v, Max: v} }

func (r Range) same(o Range) bool {
	eq := func(a, b float64) bool { return a == b || (math.IsNaN(a) && math.IsNaN(b)) }
	return eq(r.Min, o.Min) && eq(r.Max, o.Max)
}

// Control is one shared value of an element. Setting it notifies the
// element and every linked control; a control that already holds the
// value does nothing, which stops propagation around link cycles.
type Control struct {
	Kind  LinkKind
	Owner string

	value     Range
	peers     []*Control
	listeners []func(Range)
}

func newControl(kind LinkKind, owner string) *Control {
	return &Control{Kind: kind, Owner: owner}
}

// Value returns the current value.
func (c *Control) Value() Range { return c.value }

// Set changes the value and reports whether it changed.
func (c *Control) Set(r Range) bool {
	if c.value.same(r) {
		return false
	}
	c.value = r
	for _, fn := range c.listeners {
		fn(r)
	}
	for _, p := range c.peers {
		p.Set(r)
	}
	return true
}

// Peers lists the owners of linked controls.
func (c *Control) Peers() []string {
	owners := make([]string, len(c.peers))
	for i, p := range c.peers {
		owners[i] = p.Owner
	}
	return owners
}

func (c *Control) onChange(fn func(Range)) { c.listeners = append(c.listeners, fn) }

func (c *Control) detach(other *Control) {
	c.peers = slices.DeleteFunc(c.peers, func(p *Control) bool { return p == other })
}

// Link is one established connection between two controls of one kind.
type Link struct {
	Kind LinkKind
	From *Control
	To   *Control
}

// Links registers the connections between element controls. Links are
// declared one way (From links to To) and propagate both ways.
type Links struct {
	links []Link
}

// Connect links from to to. from adopts the value of to.
func (l *Links) Connect(from, to *Control) error {
	switch {
	case from == nil || to == nil:
		return fmt.Errorf("%w: missing control", ErrLink)
	case from.Kind != to.Kind:
		return fmt.Errorf("%w: %s cannot link to %s", ErrLink, from.Kind, to.Kind)
	case from == to:
		return fmt.Errorf("%w: `%s` links to itself", ErrLink, from.Owner)
	case l.Linked(from, to):
		return nil
	}
	from.peers = append(from.peers, to)
	to.peers = append(to.peers, from)
	l.links = append(l.links, Link{Kind: from.Kind, From: from, To: to})
	from.Set(to.Value())
	return nil
}

// Linked reports whether a and b are connected, in either direction.
func (l *Links) Linked(a, b *Control) bool {
	for _, k := range l.links {
		if (k.From == a && k.To == b) || (k.From == b && k.To == a) {
			return true
		}
	}
	return false
}

// Unlink removes the link between a and b, in either direction, and
// reports whether there was one. Other links of a and b are kept.
func (l *Links) Unlink(a, b *Control) bool {
	n := len(l.links)
	l.links = slices.DeleteFunc(l.links, func(k Link) bool {
		if (k.From != a || k.To != b) && (k.From != b || k.To != a) {
			return false
		}
		k.From.detach(k.To)
		k.To.detach(k.From)
		return true
	})
	return len(l.links) < n
}

// Clear removes every link.
func (l *Links) Clear() {
	for _, k := range l.links {
		k.From.detach(k.To)
		k.To.detach(k.From)
	}
	l.links = nil
}

// All returns the established links.
func (l *Links) All() []Link { return slices.Clone(l.links) }

// Len returns the number of links.
func (l *Links) Len() int { return len(l.links) }
