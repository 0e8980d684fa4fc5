package navigation

import (
	"fmt"
	"path/filepath"

	"github.com/papapumpkin/specvizitor/internal/viewer"
)

// Displayed returns the object the viewer shows: the last one whose load
// completed. ok is false until the first load of the file completes.
func (c *Controller) Displayed() (viewer.Object, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shown == nil {
		return viewer.Object{}, false
	}
	return *c.shown, true
}

// Title formats the window title of the displayed object. It changes
// when a load completes, not when a switch is requested.
func (c *Controller) Title() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rd == nil {
		return "Specvizitor"
	}
	if c.shown == nil {
		return filepath.Base(c.path) + " – Specvizitor"
	}
	return FormatTitle(c.path, *c.shown)
}

// FormatTitle formats the window title of obj from inspection file path.
func FormatTitle(path string, obj viewer.Object) string {
	n := 0
	if obj.Review != nil {
		n = obj.Review.Len()
	}
	return fmt.Sprintf("%s – ID %s [#%d/%d] – Specvizitor", filepath.Base(path), obj.ID, obj.Index+1, n)
}
