// Package watch reports edits to the configuration file so the session can
// rebuild its viewer without a restart.
package watch

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce coalesces the burst of events editors produce on save.
const debounce = 100 * time.Millisecond

// Change is one debounced modification of the watched file.
type Change struct {
	File    string
	Removed bool
}

// Watcher monitors a single file through its parent directory, so that
// editors which replace the file on save are still observed.
type Watcher struct {
	File    string
	Changes <-chan Change // Read-only external channel

	changes chan Change // Internal write channel
	done    chan struct{}
	watcher *fsnotify.Watcher
}

// New creates a watcher for file. Call Start to begin receiving changes.
func New(file string) (*Watcher, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ch := make(chan Change, 4)
	return &Watcher{
		File:    abs,
		Changes: ch,
		changes: ch,
		done:    make(chan struct{}),
		watcher: fw,
	}, nil
}

// Start begins watching the file's directory.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.File)); err != nil {
		return err
	}
	go w.loop()
	return nil
}

// Stop closes the watcher and the Changes channel.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.done
	close(w.changes)
}

func (w *Watcher) loop() {
	defer close(w.done)

	var (
		last    time.Time
		removed bool
		pending bool
	)
	ticker := time.NewTicker(debounce)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				if pending {
					w.emit(removed)
				}
				return
			}
			if filepath.Clean(event.Name) != w.File {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				pending, removed, last = true, false, time.Now()
			} else if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				pending, removed, last = true, true, time.Now()
			}

		case <-ticker.C:
			if pending && time.Since(last) >= debounce {
				w.emit(removed)
				pending = false
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal.
		}
	}
}

func (w *Watcher) emit(removed bool) {
	select {
	case w.changes <- Change{File: w.File, Removed: removed}:
	default:
		// A reload is already queued; it will pick up this edit too.
	}
}
