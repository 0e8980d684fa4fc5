// Package plugin provides the built-in viewer plugins and looks them up
// by the names used in the configuration.
package plugin

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/papapumpkin/specvizitor/internal/viewer"
)

// ErrUnknownPlugin indicates a configured plugin name with no implementation.
var ErrUnknownPlugin = errors.New("unknown plugin")

type factory func(log *slog.Logger) viewer.Plugin

func factories() map[string]factory {
	return map[string]factory{
		"grizli": func(log *slog.Logger) viewer.Plugin { return NewGrizli(log) },
		"eiger":  func(log *slog.Logger) viewer.Plugin { return NewEiger(log) },
	}
}

// Names lists the built-in plugins.
func Names() []string {
	var names []string
	for n := range factories() {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Load instantiates the named plugins in order. Unknown names are
// reported together; the known ones are still returned.
func Load(names []string, log *slog.Logger) ([]viewer.Plugin, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	var plugins []viewer.Plugin
	var errs []error
	for _, name := range names {
		f, ok := factories()[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			errs = append(errs, fmt.Errorf("%w `%s` (available: %s)", ErrUnknownPlugin, name, strings.Join(Names(), ", ")))
			continue
		}
		plugins = append(plugins, f(log.With("plugin", name)))
	}
	return plugins, errors.Join(errs...)
}
