package viewer

import (
	"github.com/papapumpkin/specvizitor/internal/catalog"
	"github.com/papapumpkin/specvizitor/internal/config"
)

// Dock is the layout entry of one element.
type Dock struct {
	Title      string
	Position   string
	RelativeTo string
	Visible    bool
}

// Tweak is what plugins receive after every object switch.
type Tweak struct {
	// Active holds the elements whose data resolved, keyed by title.
	Active map[string]Element
	// Entry is the catalogue row of the object, nil without a catalogue.
	Entry *catalog.Catalog
	Links *Links
}

// Plugin adjusts the viewer at three points: before elements are built,
// after the layout is computed and after every object switch.
type Plugin interface {
	Name() string
	// OverwriteWidgetConfigs receives a private copy of the widget list.
	OverwriteWidgetConfigs(widgets []config.Widget) []config.Widget
	TweakDocks(docks []Dock) []Dock
	TweakWidgets(t Tweak)
}

// NopPlugin implements every hook as a no-op. Embed it to implement only
// some of the hooks.
type NopPlugin struct{}

// OverwriteWidgetConfigs returns widgets unchanged.
func (NopPlugin) OverwriteWidgetConfigs(widgets []config.Widget) []config.Widget { return widgets }

// TweakDocks returns docks unchanged.
func (NopPlugin) TweakDocks(docks []Dock) []Dock { return docks }

// TweakWidgets does nothing.
func (NopPlugin) TweakWidgets(Tweak) {}
