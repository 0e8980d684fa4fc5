package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/papapumpkin/specvizitor/internal/catalog"
	"github.com/papapumpkin/specvizitor/internal/config"
	"github.com/papapumpkin/specvizitor/internal/datadir"
	"github.com/papapumpkin/specvizitor/internal/objid"
)

var (
	// ErrFileNotFound indicates that no file in the data directory matched
	// a widget's pattern for the current object.
	ErrFileNotFound = errors.New("not found")
	// ErrNoEntry indicates a filename template with catalogue placeholders
	// but no catalogue entry for the object.
	ErrNoEntry = errors.New("catalog entry not loaded")
)

// WidgetError attributes a loading failure to one widget and object.
type WidgetError struct {
	Widget string
	ID     objid.ID
	Err    error
}

// Error formats the widget and the cause.
func (e *WidgetError) Error() string {
	if errors.Is(e.Err, ErrFileNotFound) {
		return fmt.Sprintf("`%s` not found (object ID: %s)", e.Widget, e.ID)
	}
	return fmt.Sprintf("failed to load `%s`: %v", e.Widget, e.Err)
}

// Unwrap returns the underlying cause.
func (e *WidgetError) Unwrap() error { return e.Err }

// Slot is the data one widget shows for one object. Slots are values:
// a new slot replaces the old one on every object switch and the old one
// is released exactly once.
type Slot struct {
	Widget string
	ID     objid.ID
	Ref    datadir.Reference
	Result Result
	// Source is the label of the field image a cutout was taken from.
	Source string
	Err    error

	field *FieldImage
}

// Active reports whether the slot holds data.
func (s Slot) Active() bool {
	return s.Err == nil && (s.Result.Image != nil || s.Result.Table != nil)
}

// Shared reports whether the slot reads from a session field image.
func (s Slot) Shared() bool { return s.field != nil }

// Release frees what the slot holds: an exclusively owned file is closed,
// a field image only receives the Reopen keep-alive.
func (s Slot) Release() error {
	if s.field != nil {
		s.field.Reopen()
		return nil
	}
	return s.Result.Close()
}

// Loader resolves and loads the data of every widget for one object.
type Loader struct {
	resolver datadir.Resolver
	fields   *Fields
	log      *slog.Logger
}

// New creates a loader over the data directory. Field images are added
// through Fields().Open.
func New(data config.DataConfig, log *slog.Logger) *Loader {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Loader{
		resolver: datadir.Resolver{Dir: data.Dir, Recursive: data.Recursive},
		fields:   NewFields(),
		log:      log,
	}
}

// Fields returns the session field-image cache.
func (l *Loader) Fields() *Fields { return l.fields }

// Slot loads the data of widget w for object id. entry is the object's
// catalogue row and may be nil. Failures are returned inside the slot as
// a *WidgetError so that the caller can carry on with other widgets.
func (l *Loader) Slot(ctx context.Context, w config.Widget, id objid.ID, entry *catalog.Catalog) Slot {
	s := Slot{Widget: w.Title, ID: id}
	if err := ctx.Err(); err != nil {
		s.Err = err
		return s
	}

	var err error
	if w.Data.Source != "" {
		err = l.cutout(&s, w, entry)
	} else {
		err = l.file(&s, w, id, entry)
	}
	if err != nil {
		s.Err = &WidgetError{Widget: w.Title, ID: id, Err: err}
		msg := "widget data not loaded"
		if errors.Is(err, ErrFileNotFound) {
			msg = "widget data not found"
		}
		l.log.Warn(msg, "widget", w.Title, "id", id.String(), "error", err)
	}
	return s
}

func (l *Loader) cutout(s *Slot, w config.Widget, entry *catalog.Catalog) error {
	s.Source = w.Data.Source
	f, ok := l.fields.Get(w.Data.Source)
	if !ok {
		return fmt.Errorf("%w `%s`", ErrUnknownSource, w.Data.Source)
	}
	if entry == nil {
		return fmt.Errorf("%w: %w", ErrNoCoordinates, ErrNoEntry)
	}
	ra, err := entry.Float("ra")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoCoordinates, err)
	}
	dec, err := entry.Float("dec")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoCoordinates, err)
	}
	if math.IsNaN(ra) || math.IsNaN(dec) {
		return ErrNoCoordinates
	}

	pix, err := f.Cutout(ra, dec, w.CutoutSize)
	if err != nil {
		return err
	}
	s.field = f
	s.Result = Result{Path: f.Path, Image: pix, Meta: f.meta}
	return nil
}

func (l *Loader) file(s *Slot, w config.Widget, id objid.ID, entry *catalog.Catalog) error {
	var lookup func(string) (string, error)
	if entry != nil {
		lookup = entry.Text
	}
	if len(datadir.Fields(w.Data.Filename)) > 0 && entry == nil {
		return fmt.Errorf("failed to resolve the filename: %w", ErrNoEntry)
	}
	pattern, err := datadir.Expand(w.Data.Filename, id.String(), lookup)
	if err != nil {
		return fmt.Errorf("failed to resolve the filename: %w", err)
	}

	ref, err := l.resolver.Resolve(w.Title, pattern, id.String())
	s.Ref = ref
	if err != nil {
		return fmt.Errorf("failed to resolve the filename: %w", err)
	}
	if !ref.Found() {
		return ErrFileNotFound
	}

	res, err := Load(ref.Path, w.Data.Loader, w.Data.LoaderParams)
	if err != nil {
		return err
	}
	s.Result = res
	return nil
}

// ReleaseAll releases every slot, returning the first error.
func ReleaseAll(slots []Slot) error {
	var first error
	for _, s := range slots {
		if err := s.Release(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
