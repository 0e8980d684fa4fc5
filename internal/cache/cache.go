// Package cache persists small session state between runs: the last
// inspection file, the last object index, the last subset file, the
// visible catalogue columns and the dock layout blob.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// ErrMalformed indicates the cache file could not be parsed. The returned
// cache is empty and usable.
var ErrMalformed = errors.New("malformed cache file")

// Cache is the persisted session state. Path is not serialized.
type Cache struct {
	Path string `toml:"-"`

	LastInspectionFile string   `toml:"last_inspection_file,omitempty"`
	LastObjectIndex    *int     `toml:"last_object_index,omitempty"`
	LastSubsetFile     string   `toml:"last_subset_file,omitempty"`
	VisibleColumns     []string `toml:"visible_columns,omitempty"`
	DockLayout         string   `toml:"dock_layout,omitempty"`
}

// Load reads the cache file at path. A missing file yields an empty cache.
// A malformed file yields an empty cache together with ErrMalformed so the
// caller can warn and carry on.
func Load(path string) (*Cache, error) {
	c := &Cache{Path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return c, fmt.Errorf("reading cache file: %w", err)
	}

	var parsed Cache
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return c, fmt.Errorf("%w %s: %v", ErrMalformed, path, err)
	}
	parsed.Path = path
	return &parsed, nil
}

// Save writes the cache atomically (write temp + rename), creating the
// parent directory when needed. A nil cache or an empty Path is a no-op.
func (c *Cache) Save() error {
	if c == nil || c.Path == "" {
		return nil
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	tmp := c.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing temp cache file: %w", err)
	}
	if err := os.Rename(tmp, c.Path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming cache file: %w", err)
	}
	return nil
}

// ObjectIndex returns the cached object index when it lies in [0, n).
func (c *Cache) ObjectIndex(n int) (int, bool) {
	if c == nil || c.LastObjectIndex == nil {
		return 0, false
	}
	j := *c.LastObjectIndex
	if j < 0 || j >= n {
		return 0, false
	}
	return j, true
}

// SetObjectIndex records j as the last object index.
func (c *Cache) SetObjectIndex(j int) {
	if c == nil {
		return
	}
	c.LastObjectIndex = &j
}

// Forget clears the project-specific fields, used when the inspection file changes.
func (c *Cache) Forget() {
	if c == nil {
		return
	}
	c.LastInspectionFile = ""
	c.LastObjectIndex = nil
	c.LastSubsetFile = ""
}
