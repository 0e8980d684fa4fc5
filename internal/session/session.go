// Package session wires the inspection components together: catalogue,
// review store, loader, viewer bus, plugins, navigation, cache and
// telemetry. It is the single owner of their lifetimes.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"sync"
	"time"

	"github.com/papapumpkin/specvizitor/internal/cache"
	"github.com/papapumpkin/specvizitor/internal/catalog"
	"github.com/papapumpkin/specvizitor/internal/config"
	"github.com/papapumpkin/specvizitor/internal/datadir"
	"github.com/papapumpkin/specvizitor/internal/loader"
	"github.com/papapumpkin/specvizitor/internal/navigation"
	"github.com/papapumpkin/specvizitor/internal/objid"
	"github.com/papapumpkin/specvizitor/internal/plugin"
	"github.com/papapumpkin/specvizitor/internal/telemetry"
	"github.com/papapumpkin/specvizitor/internal/viewer"
	"github.com/papapumpkin/specvizitor/internal/watch"
)

// Options configures a Session.
type Options struct {
	Log        *slog.Logger
	OnLoad     func(navigation.Outcome)      // Optional; forwarded to the controller.
	ConfigFile string                        // Optional; enables Watch.
	Reload     func() (config.Config, error) // Re-reads the configuration on file changes.
}

// Session is one interactive or batch run over an inspection file.
type Session struct {
	Log       *slog.Logger
	Bus       *viewer.Bus
	Nav       *navigation.Controller
	Cache     *cache.Cache
	Telemetry *telemetry.Emitter

	opts   Options
	mu     sync.Mutex
	cfg    config.Config
	loader *loaderRef
}

// loaderRef lets Reconfigure swap the loader under a bus that keeps
// a reference to it.
type loaderRef struct {
	mu sync.RWMutex
	l  *loader.Loader
}

func (r *loaderRef) Slot(ctx context.Context, w config.Widget, id objid.ID, entry *catalog.Catalog) loader.Slot {
	r.mu.RLock()
	l := r.l
	r.mu.RUnlock()
	return l.Slot(ctx, w, id, entry)
}

func (r *loaderRef) set(l *loader.Loader) {
	r.mu.Lock()
	r.l = l
	r.mu.Unlock()
}

func (r *loaderRef) get() *loader.Loader {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.l
}

// New builds a session without a project. A malformed cache is discarded
// with a warning. Widget and plugin configuration errors are logged and
// the rest of the viewer is built.
func New(cfg config.Config, opts Options) (*Session, error) {
	log := opts.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	cc, err := cache.Load(cfg.Cache.Path)
	if err != nil {
		log.Warn("cache discarded", "path", cfg.Cache.Path, "error", err)
	}

	var tel *telemetry.Emitter
	if cfg.Telemetry.Path != "" {
		if tel, err = telemetry.NewEmitter(cfg.Telemetry.Path); err != nil {
			return nil, err
		}
	}

	s := &Session{
		Log:       log,
		Cache:     cc,
		Telemetry: tel,
		opts:      opts,
		cfg:       cfg,
		loader:    &loaderRef{},
	}
	s.loader.set(s.newLoader(cfg))
	s.Bus = viewer.NewBus(s.loader, log.With("component", "viewer"))
	s.configureViewer(cfg)
	s.Nav = navigation.New(navigation.Options{
		Bus:       s.Bus,
		Cache:     cc,
		Telemetry: tel,
		Log:       log.With("component", "navigation"),
		Grace:     time.Duration(cfg.Loading.GraceMS) * time.Millisecond,
		OnLoad:    opts.OnLoad,
		Translate: cfg.Catalogue.Translate,
	})
	return s, nil
}

func (s *Session) newLoader(cfg config.Config) *loader.Loader {
	l := loader.New(cfg.Data, s.Log.With("component", "loader"))
	l.Fields().Open(cfg.Data.Images, s.Log)
	return l
}

func (s *Session) configureViewer(cfg config.Config) {
	plugins, err := plugin.Load(cfg.Plugins, s.Log)
	if err != nil {
		s.Log.Warn("plugins not loaded", "error", err)
	}
	if err := s.Bus.Configure(cfg.Viewer.Widgets, cfg.SpectralLines, plugins); err != nil {
		s.Log.Warn("viewer configured with errors", "error", err)
	}
}

// Config returns the configuration in use.
func (s *Session) Config() config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Fields returns the field images of the current loader.
func (s *Session) Fields() *loader.Fields { return s.loader.get().Fields() }

// LoadCatalog reads the configured catalogue. Without a catalogue file it
// returns nil and no error.
func (s *Session) LoadCatalog() (*catalog.Catalog, error) {
	cfg := s.Config()
	if cfg.Catalogue.Filename == "" {
		return nil, nil
	}
	opts := catalog.Options{Translate: cfg.Catalogue.Translate}
	if cfg.Catalogue.FilterByData {
		opts.DataDir = cfg.Data.Dir
		opts.IDPattern = cfg.Data.IDPattern
		opts.Recursive = cfg.Data.Recursive
	}
	cat, err := catalog.Read(cfg.Catalogue.Filename, opts)
	if err != nil {
		s.Log.Error("failed to load the catalogue", "path", cfg.Catalogue.Filename, "error", err)
		return nil, err
	}
	return cat, nil
}

// Open opens an existing inspection file. A catalogue that fails to load
// is reported and the session continues without it.
func (s *Session) Open(path string) error {
	cat, _ := s.LoadCatalog()
	return s.Nav.Open(path, cat)
}

// Create starts a new inspection file from the catalogue, or from the IDs
// found in the data directory when no catalogue is configured.
func (s *Session) Create(path string) error {
	cat, err := s.LoadCatalog()
	if err != nil {
		return err
	}
	if cat == nil {
		cfg := s.Config()
		ids, err := datadir.IDsFromDir(cfg.Data.Dir, cfg.Data.IDPattern, cfg.Data.Recursive)
		if err != nil {
			return fmt.Errorf("scanning %s: %w", cfg.Data.Dir, err)
		}
		keys := make([]objid.Key, len(ids))
		for i, id := range ids {
			keys[i] = objid.Key{id}
		}
		if cat, err = catalog.Create(keys); err != nil {
			return err
		}
	}
	return s.Nav.Create(path, cat, s.Config().Review.Flags)
}

// Resume reopens the inspection file recorded in the cache. It reports
// false when there is nothing to resume.
func (s *Session) Resume() (bool, error) {
	path := s.Cache.LastInspectionFile
	if path == "" {
		return false, nil
	}
	if _, err := os.Stat(path); err != nil {
		s.Log.Warn("inspection file not found", "path", path)
		return false, nil
	}
	if err := s.Open(path); err != nil {
		return false, err
	}
	if sub := s.Cache.LastSubsetFile; sub != "" {
		if err := s.Nav.LoadSubset(sub); err != nil {
			s.Log.Warn("cached subset not restored", "path", sub, "error", err)
		}
	}
	return true, nil
}

// Reconfigure applies a new configuration: the loader and its field
// images are rebuilt, the viewer is torn down and rebuilt, the catalogue
// aliases are updated and the current object is delivered again.
func (s *Session) Reconfigure(cfg config.Config) error {
	s.mu.Lock()
	prev := s.cfg
	s.cfg = cfg
	s.mu.Unlock()

	s.loader.set(s.newLoader(cfg))
	s.configureViewer(cfg)

	if !reflect.DeepEqual(prev.Catalogue.Translate, cfg.Catalogue.Translate) {
		if cat := s.Nav.Catalog(); cat != nil {
			next, err := cat.UpdateTranslate(cfg.Catalogue.Translate)
			if err != nil {
				s.Log.Error("catalogue aliases not applied", "error", err)
			} else {
				return ignoreNoProject(s.Nav.SetCatalog(next))
			}
		}
	}
	return ignoreNoProject(s.Nav.Reload())
}

func ignoreNoProject(err error) error {
	if errors.Is(err, navigation.ErrNoProject) {
		return nil
	}
	return err
}

// Watch reconfigures the session whenever the configuration file changes,
// until ctx is done.
func (s *Session) Watch(ctx context.Context) error {
	if s.opts.ConfigFile == "" || s.opts.Reload == nil {
		return nil
	}
	w, err := watch.New(s.opts.ConfigFile)
	if err != nil {
		return fmt.Errorf("watching %s: %w", s.opts.ConfigFile, err)
	}
	if err := w.Start(); err != nil {
		return fmt.Errorf("watching %s: %w", s.opts.ConfigFile, err)
	}
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ch, ok := <-w.Changes:
			if !ok {
				return nil
			}
			if ch.Removed {
				s.Log.Warn("configuration file removed", "path", ch.File)
				continue
			}
			cfg, err := s.opts.Reload()
			if err != nil {
				s.Log.Error("configuration not reloaded", "path", ch.File, "error", err)
				continue
			}
			if err := s.Reconfigure(cfg); err != nil {
				s.Log.Error("viewer not reconfigured", "error", err)
				continue
			}
			s.Log.Info("configuration reloaded", "path", ch.File)
		}
	}
}

// Close cancels pending loads, releases viewer data and flushes the cache
// and the telemetry stream. Review edits are not saved; call Nav.Save.
func (s *Session) Close() error {
	s.Nav.Close()
	var errs []error
	if err := s.Cache.Save(); err != nil {
		errs = append(errs, err)
	}
	if err := s.Telemetry.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
