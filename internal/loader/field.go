package loader

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/papapumpkin/specvizitor/internal/config"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNoCoordinates indicates an object without usable ra/dec.
	ErrNoCoordinates = errors.New("object coordinates not available")
	// ErrOutsideField indicates a cutout that does not overlap the field image.
	ErrOutsideField = errors.New("cutout outside the field image")
	// ErrUnknownSource indicates a widget bound to an unregistered field image.
	ErrUnknownSource = errors.New("unknown data source")
)

// DefaultCutoutSize is the cutout half-width used when a widget sets none.
const DefaultCutoutSize = 100

// FieldImage is a large image kept in memory for the whole session and
// queried for cutouts. It is never modified after OpenField returns, so
// cutouts may be taken concurrently.
type FieldImage struct {
	Label string
	Path  string

	pix     *mat.Dense
	meta    Meta
	wcs     *WCS
	wcsErr  error
	reopens atomic.Int64
}

// OpenField loads a field image. The projection is read from WCSSource
// when set, from the image header otherwise. A header without a usable
// projection does not fail the load; cutouts then report the reason.
func OpenField(cfg config.FieldImageConfig) (*FieldImage, error) {
	res, err := Load(cfg.Filename, cfg.Loader, cfg.LoaderParams)
	if err != nil {
		return nil, fmt.Errorf("loading field image `%s`: %w", cfg.Label, err)
	}
	defer res.Close()
	if res.Image == nil {
		return nil, fmt.Errorf("loading field image `%s`: %w: not an image", cfg.Label, ErrNoData)
	}

	f := &FieldImage{Label: cfg.Label, Path: cfg.Filename, pix: res.Image, meta: res.Meta}
	if cfg.WCSSource != "" {
		src, err := Load(cfg.WCSSource, "", nil)
		if err != nil {
			return nil, fmt.Errorf("loading WCS source of `%s`: %w", cfg.Label, err)
		}
		src.Close()
		f.meta = src.Meta
	}
	f.wcs, f.wcsErr = ParseWCS(f.meta)
	return f, nil
}

// NewFieldImage wraps an in-memory image and its header.
func NewFieldImage(label string, pix *mat.Dense, meta Meta) *FieldImage {
	f := &FieldImage{Label: label, pix: pix, meta: meta}
	f.wcs, f.wcsErr = ParseWCS(meta)
	return f
}

// Meta returns the header cards the projection was built from.
func (f *FieldImage) Meta() Meta { return f.meta }

// WCS returns the projection, or the reason it could not be built.
func (f *FieldImage) WCS() (*WCS, error) { return f.wcs, f.wcsErr }

// Cutout returns a copy of the square of half-width half centred on the
// pixel that (ra, dec) projects to. The square is clipped to the image.
func (f *FieldImage) Cutout(ra, dec float64, half int) (*mat.Dense, error) {
	if f.wcsErr != nil {
		return nil, fmt.Errorf("field image `%s`: %w", f.Label, f.wcsErr)
	}
	if math.IsNaN(ra) || math.IsNaN(dec) {
		return nil, ErrNoCoordinates
	}
	if half <= 0 {
		half = DefaultCutoutSize
	}
	x, y, err := f.wcs.WorldToPixel(ra, dec)
	if err != nil {
		return nil, err
	}
	cx, cy := int(math.Round(x)), int(math.Round(y))

	rows, cols := f.pix.Dims()
	x1, x2 := max(cx-half, 0), min(cx+half, cols)
	y1, y2 := max(cy-half, 0), min(cy+half, rows)
	if x1 >= x2 || y1 >= y2 {
		return nil, fmt.Errorf("%w: pixel (%d, %d) of %dx%d image `%s`", ErrOutsideField, cx, cy, cols, rows, f.Label)
	}
	return mat.DenseCopyOf(f.pix.Slice(y1, y2, x1, x2)), nil
}

// Reopen is the release signal of widgets that display cutouts. The field
// image stays loaded, so it only records the keep-alive.
func (f *FieldImage) Reopen() { f.reopens.Add(1) }

// Reopens reports how many times Reopen was called.
func (f *FieldImage) Reopens() int64 { return f.reopens.Load() }

// Fields is the session cache of field images keyed by label.
type Fields struct {
	mu     sync.RWMutex
	images map[string]*FieldImage
}

// NewFields returns an empty cache.
func NewFields() *Fields {
	return &Fields{images: make(map[string]*FieldImage)}
}

// Open replaces the cache content with the configured images. An image
// that fails to load is logged and skipped; the others stay usable.
func (fs *Fields) Open(images []config.FieldImageConfig, log *slog.Logger) {
	loaded := make(map[string]*FieldImage, len(images))
	for _, cfg := range images {
		f, err := OpenField(cfg)
		if err != nil {
			log.Error("field image not loaded", "label", cfg.Label, "error", err)
			continue
		}
		if f.wcsErr != nil {
			log.Warn("field image has no usable projection", "label", cfg.Label, "error", f.wcsErr)
		}
		loaded[cfg.Label] = f
	}
	fs.mu.Lock()
	fs.images = loaded
	fs.mu.Unlock()
}

// Add registers one image, replacing any image with the same label.
func (fs *Fields) Add(f *FieldImage) {
	fs.mu.Lock()
	fs.images[f.Label] = f
	fs.mu.Unlock()
}

// Get returns the image with the given label.
func (fs *Fields) Get(label string) (*FieldImage, bool) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	f, ok := fs.images[label]
	return f, ok
}

// Labels lists the cached images.
func (fs *Fields) Labels() []string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	labels := make([]string, 0, len(fs.images))
	for l := range fs.images {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}
