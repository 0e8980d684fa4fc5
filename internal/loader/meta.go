package loader

import (
	"strconv"
	"strings"

	"github.com/astrogo/fitsio"
)

// Meta holds header cards in file order. Keys are upper-cased.
type Meta struct {
	keys   []string
	values map[string]any
}

// MetaFromHeader copies the cards of a FITS header.
func MetaFromHeader(h *fitsio.Header) Meta {
	var m Meta
	if h == nil {
		return m
	}
	for i := range h.Keys() {
		c := h.Card(i)
		if c == nil || c.Name == "" || c.Name == "COMMENT" || c.Name == "HISTORY" {
			continue
		}
		m.Set(c.Name, c.Value)
	}
	return m
}

// Set stores a card, replacing an earlier value of the same key.
func (m *Meta) Set(key string, value any) {
	key = strings.ToUpper(key)
	if m.values == nil {
		m.values = make(map[string]any)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Keys returns the card names in insertion order.
func (m Meta) Keys() []string { return append([]string(nil), m.keys...) }

// Len returns the number of cards.
func (m Meta) Len() int { return len(m.keys) }

// Get returns the raw value of a card.
func (m Meta) Get(key string) (any, bool) {
	v, ok := m.values[strings.ToUpper(key)]
	return v, ok
}

// Float returns a numeric card as float64.
func (m Meta) Float(key string) (float64, bool) {
	v, ok := m.Get(key)
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

// Int returns a numeric card as int.
func (m Meta) Int(key string) (int, bool) {
	f, ok := m.Float(key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// String returns a card as trimmed text.
func (m Meta) String(key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok {
		return "", false
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s), true
	}
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'g', -1, 64), true
	}
	return "", false
}

// Clone returns an independent copy.
func (m Meta) Clone() Meta {
	var c Meta
	for _, k := range m.keys {
		c.Set(k, m.values[k])
	}
	return c
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}
