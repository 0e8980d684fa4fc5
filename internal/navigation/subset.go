package navigation

import (
	"fmt"
	"path/filepath"

	"github.com/papapumpkin/specvizitor/internal/catalog"
	"github.com/papapumpkin/specvizitor/internal/objid"
	"github.com/papapumpkin/specvizitor/internal/telemetry"
)

// Subset restricts next/previous navigation to the objects of a second
// catalogue.
type Subset struct {
	Name   string
	Path   string
	cat    *catalog.Catalog
	ids    []objid.ID
	pos    map[objid.ID]int
	paused bool
}

// NewSubset wraps a subset catalogue. Only the first index level is used.
func NewSubset(path string, cat *catalog.Catalog) *Subset {
	s := &Subset{Name: filepath.Base(path), Path: path, cat: cat, pos: make(map[objid.ID]int)}
	for _, id := range cat.IDs() {
		if _, dup := s.pos[id]; dup {
			continue
		}
		s.pos[id] = len(s.ids)
		s.ids = append(s.ids, id)
	}
	return s
}

// Len returns the number of subset objects.
func (s *Subset) Len() int { return len(s.ids) }

// Has reports whether id belongs to the subset.
func (s *Subset) Has(id objid.ID) bool {
	_, ok := s.lookup(id)
	return ok
}

// Position returns the 1-based position of id in the subset.
func (s *Subset) Position(id objid.ID) (int, bool) {
	k, ok := s.lookup(id)
	return k + 1, ok
}

// lookup matches int IDs against string subsets and the reverse.
func (s *Subset) lookup(id objid.ID) (int, bool) {
	if k, ok := s.pos[id]; ok {
		return k, true
	}
	if k, ok := s.pos[objid.Parse(id.String())]; ok {
		return k, true
	}
	k, ok := s.pos[objid.String(id.String())]
	return k, ok
}

// Paused reports whether the subset filter is suspended.
func (s *Subset) Paused() bool { return s.paused }

// Info formats the subset name and the position of id.
func (s *Subset) Info(id objid.ID) string {
	k := "-"
	if n, ok := s.Position(id); ok {
		k = fmt.Sprint(n)
	}
	return fmt.Sprintf("Subset: %s\nObject: %s/%d", s.Name, k, s.Len())
}

// LoadSubset reads the subset catalogue at path and starts restricting
// navigation to it. The current object is kept; the first switch moves to
// a subset member.
func (c *Controller) LoadSubset(path string) error {
	cat, err := catalog.Read(path, catalog.Options{Translate: c.opts.Translate})
	if err != nil {
		c.log.Error("failed to read the subset", "path", path, "error", err)
		return fmt.Errorf("loading subset %s: %w", path, err)
	}
	return c.SetSubset(NewSubset(path, cat))
}

// SetSubset installs s as the active subset.
func (c *Controller) SetSubset(s *Subset) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rd == nil {
		return ErrNoProject
	}
	c.subset = s
	if cc := c.opts.Cache; cc != nil {
		cc.LastSubsetFile = s.Path
		c.saveCache()
	}
	c.emit(telemetry.Event{Kind: telemetry.KindSubsetLoaded, Data: map[string]any{"path": s.Path, "objects": s.Len()}})
	c.log.Info("subset loaded", "path", s.Path, "objects", s.Len())
	return nil
}

// PauseSubset suspends or resumes the subset filter.
func (c *Controller) PauseSubset(paused bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subset == nil {
		return ErrNoSubset
	}
	c.subset.paused = paused
	c.emit(telemetry.Event{Kind: telemetry.KindSubsetPaused, Data: map[string]any{"paused": paused}})
	return nil
}

// StopSubset drops the subset.
func (c *Controller) StopSubset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subset == nil {
		return ErrNoSubset
	}
	c.subset = nil
	if cc := c.opts.Cache; cc != nil {
		cc.LastSubsetFile = ""
		c.saveCache()
	}
	c.emit(telemetry.Event{Kind: telemetry.KindSubsetStopped})
	return nil
}

// SubsetInfo describes the active subset and the current object's place
// in it. ok is false without a subset.
func (c *Controller) SubsetInfo() (info string, paused, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subset == nil || c.rd == nil {
		return "", false, false
	}
	id, _ := c.rd.ID(c.j)
	return c.subset.Info(id), c.subset.paused, true
}
