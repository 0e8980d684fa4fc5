// Package navigation owns the current object of an inspection session. It
// computes next and previous transitions (wrapping, starred-only and
// subset-constrained), validates direct jumps and runs the per-object load
// on a background worker after a short grace delay, cancelling it when a
// newer command arrives.
package navigation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/papapumpkin/specvizitor/internal/cache"
	"github.com/papapumpkin/specvizitor/internal/catalog"
	"github.com/papapumpkin/specvizitor/internal/objid"
	"github.com/papapumpkin/specvizitor/internal/review"
	"github.com/papapumpkin/specvizitor/internal/telemetry"
	"github.com/papapumpkin/specvizitor/internal/viewer"
)

// Deliverer hands a selected object to the viewer. *viewer.Bus implements it.
type Deliverer interface {
	Deliver(ctx context.Context, obj viewer.Object) (viewer.Delivery, error)
	// Cancel runs cancel so that no delivery is left half applied.
	Cancel(cancel context.CancelFunc)
	Clear()
}

// Outcome is the result of one background load.
type Outcome struct {
	Delivery viewer.Delivery
	Err      error
}

// Options configures a Controller.
type Options struct {
	Bus       Deliverer
	Cache     *cache.Cache        // Optional; nil disables index persistence.
	Telemetry *telemetry.Emitter  // Optional; nil disables the audit stream.
	Log       *slog.Logger        // Optional; nil discards.
	Grace     time.Duration       // Delay before a switch starts loading.
	OnLoad    func(Outcome)       // Optional; called after every completed load.
	Translate map[string][]string // Column aliases for subset catalogues.
}

// Controller is the navigation state machine. All methods are safe for
// concurrent use; transitions are serialised.
type Controller struct {
	opts Options
	log  *slog.Logger

	mu      sync.Mutex
	state   State
	path    string
	rd      *review.Data
	cat     *catalog.Catalog
	j       int
	shown   *viewer.Object // Last object delivered for the current file.
	subset  *Subset
	gen     uint64
	cancel  context.CancelFunc
	last    Outcome
	loading sync.WaitGroup
}

// New returns a controller in StateNoProject.
func New(opts Options) *Controller {
	log := opts.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Controller{opts: opts, log: log}
}

// Open reads the inspection file at path and selects the cached object
// index when it belongs to the same file, else the first object. cat may be
// nil, in which case a catalogue of the review IDs is used.
func (c *Controller) Open(path string, cat *catalog.Catalog) error {
	rd, err := review.Read(path)
	if err != nil {
		c.log.Error("failed to read the inspection file", "path", path, "error", err)
		return fmt.Errorf("opening %s: %w", path, err)
	}
	return c.start(path, rd, cat)
}

// Create builds a new inspection file for the objects of cat, saves it to
// path and opens it.
func (c *Controller) Create(path string, cat *catalog.Catalog, flags []string) error {
	if cat == nil {
		return fmt.Errorf("creating %s: %w", path, catalog.ErrEmpty)
	}
	rd, err := review.Create(cat.IDs(), flags)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := rd.Save(path); err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	c.opts.Cache.Forget()
	return c.start(path, rd, cat)
}

func (c *Controller) start(path string, rd *review.Data, cat *catalog.Catalog) error {
	if cat == nil {
		keys := make([]objid.Key, 0, rd.Len())
		for _, id := range rd.IDs() {
			keys = append(keys, objid.Key{id})
		}
		var err error
		if cat, err = catalog.Create(keys); err != nil {
			return fmt.Errorf("building a catalogue from %s: %w", path, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()

	c.path, c.rd, c.cat = path, rd, cat
	c.subset, c.shown = nil, nil
	c.j = 0
	if cc := c.opts.Cache; cc != nil {
		if sameFile(cc.LastInspectionFile, path) {
			if j, ok := cc.ObjectIndex(rd.Len()); ok {
				c.j = j
			}
		} else {
			cc.Forget()
		}
		cc.LastInspectionFile = path
	}
	c.emit(telemetry.Event{Kind: telemetry.KindProjectOpened, Data: map[string]any{"path": path, "objects": rd.Len()}})
	c.log.Info("inspection file loaded", "path", path, "objects", rd.Len())
	c.scheduleLocked(c.j)
	return nil
}

func sameFile(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	aa, errA := filepath.Abs(a)
	bb, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return aa == bb
}

// Close cancels any pending load, clears the viewer and returns to
// StateNoProject. Unsaved edits are discarded; call Save first.
func (c *Controller) Close() {
	c.mu.Lock()
	c.stopLocked()
	c.state = StateNoProject
	c.path, c.rd, c.cat, c.subset, c.shown = "", nil, nil, nil, nil
	c.mu.Unlock()

	c.loading.Wait()
	if c.opts.Bus != nil {
		c.opts.Bus.Clear()
	}
}

// Save writes the inspection file and the session cache.
func (c *Controller) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rd == nil {
		return ErrNoProject
	}
	if err := c.rd.Save(c.path); err != nil {
		c.log.Error("failed to save the inspection file", "path", c.path, "error", err)
		return err
	}
	c.saveCache()
	c.emit(telemetry.Event{Kind: telemetry.KindProjectSaved, Data: map[string]any{"path": c.path}})
	c.log.Info("inspection file saved", "path", c.path)
	return nil
}

// Switch moves one object in dir. With starredOnly the next starred object
// is selected. An active, unpaused subset restricts the candidates to its
// members. Refused transitions leave the state unchanged.
func (c *Controller) Switch(dir Direction, starredOnly bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rd == nil {
		return ErrNoProject
	}
	j, err := c.nextLocked(dir, starredOnly)
	if err != nil {
		c.refuse(err, map[string]any{"direction": dir.String(), "starred_only": starredOnly})
		return err
	}
	c.scheduleLocked(j)
	return nil
}

func (c *Controller) nextLocked(dir Direction, starredOnly bool) (int, error) {
	n := c.rd.Len()
	if starredOnly && !c.rd.HasStarred() {
		return c.j, ErrNoStarred
	}
	filtered := c.subset != nil && !c.subset.paused

	accept := func(j int) bool {
		if starredOnly && !c.rd.Bool(j, review.Starred) {
			return false
		}
		if filtered {
			id, _ := c.rd.ID(j)
			return c.subset.Has(id)
		}
		return true
	}

	j := c.j
	for range n {
		j = wrap(j+int(dir), n)
		if accept(j) {
			return j, nil
		}
	}
	if filtered {
		return c.j, ErrSubsetNoOverlap
	}
	return c.j, ErrNoStarred
}

// wrap maps j onto [0, n).
func wrap(j, n int) int {
	return ((j % n) + n) % n
}

// GoToID selects the object with the given ID.
func (c *Controller) GoToID(raw string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rd == nil {
		return ErrNoProject
	}
	id, err := c.rd.ValidateID(raw)
	if err != nil {
		switch {
		case errors.Is(err, review.ErrInvalidID):
			err = fmt.Errorf("%w: %w", ErrInvalidID, err)
		default:
			err = fmt.Errorf("%w: %w", ErrIDNotFound, err)
		}
		c.refuse(err, map[string]any{"id": raw})
		return err
	}
	j, err := c.rd.Loc(id)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrIDNotFound, err)
		c.refuse(err, map[string]any{"id": raw})
		return err
	}
	c.scheduleLocked(j)
	return nil
}

// GoToIndex selects the object at the 1-based index n.
func (c *Controller) GoToIndex(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rd == nil {
		return ErrNoProject
	}
	if err := c.rd.ValidateIndex(n); err != nil {
		err = fmt.Errorf("%w: %w", ErrIndexOutOfRange, err)
		c.refuse(err, map[string]any{"index": n})
		return err
	}
	c.scheduleLocked(n - 1)
	return nil
}

// Reload delivers the current object again, for example after the viewer
// was reconfigured.
func (c *Controller) Reload() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rd == nil {
		return ErrNoProject
	}
	c.scheduleLocked(c.j)
	return nil
}

func (c *Controller) refuse(err error, data map[string]any) {
	c.log.Warn("navigation refused", "error", err)
	data["error"] = err.Error()
	c.emit(telemetry.Event{Kind: telemetry.KindNavRefused, Data: data})
}

func (c *Controller) saveCache() {
	if err := c.opts.Cache.Save(); err != nil {
		c.log.Warn("failed to save the cache", "error", err)
	}
}

func (c *Controller) emit(evt telemetry.Event) {
	if err := c.opts.Telemetry.Emit(evt); err != nil {
		c.log.Warn("telemetry", "error", err)
	}
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Index returns the selected row, or -1 without a project. While a switch
// is loading the viewer still displays the previous object; see Displayed.
func (c *Controller) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rd == nil {
		return -1
	}
	return c.j
}

// Current returns a snapshot of the selected object.
func (c *Controller) Current() (viewer.Object, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rd == nil {
		return viewer.Object{}, ErrNoProject
	}
	return c.objectLocked(c.j), nil
}

// Review returns the review store, nil without a project.
func (c *Controller) Review() *review.Data {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rd
}

// Catalog returns the catalogue in use, nil without a project.
func (c *Controller) Catalog() *catalog.Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cat
}

// Path returns the inspection file path.
func (c *Controller) Path() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.path
}

// SetCatalog swaps the catalogue, for example after its aliases changed.
// The current object is reloaded.
func (c *Controller) SetCatalog(cat *catalog.Catalog) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rd == nil {
		return ErrNoProject
	}
	if cat != nil {
		c.cat = cat
	}
	c.scheduleLocked(c.j)
	return nil
}
