package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Widget kinds understood by the viewer.
const (
	KindImage    = "image"
	KindSpectrum = "spectrum"
	KindPlot     = "plot"
)

// CatalogueConfig locates the catalogue and its column aliases.
type CatalogueConfig struct {
	Filename string `mapstructure:"filename"`
	// Translate maps a canonical column name to its accepted synonyms.
	Translate map[string][]string `mapstructure:"translate"`
	// FilterByData keeps only catalogue rows whose ID was found in the data directory.
	FilterByData bool `mapstructure:"filter_by_data"`
}

// FieldImageConfig declares a shared image that widgets cut regions from.
type FieldImageConfig struct {
	Label        string         `mapstructure:"label"`
	Filename     string         `mapstructure:"filename"`
	WCSSource    string         `mapstructure:"wcs_source"`
	Loader       string         `mapstructure:"loader"`
	LoaderParams map[string]any `mapstructure:"loader_params"`
}

// DataConfig describes the per-object data directory.
type DataConfig struct {
	Dir       string             `mapstructure:"dir"`
	IDPattern string             `mapstructure:"id_pattern"`
	Recursive bool               `mapstructure:"recursive"`
	Images    []FieldImageConfig `mapstructure:"images"`
}

// ReviewConfig holds the default flag set of a new inspection file and
// the checkbox labels shown for flag columns.
type ReviewConfig struct {
	Flags      []string          `mapstructure:"flags"`
	Checkboxes map[string]string `mapstructure:"checkboxes"`
}

// DataBinding names the data a widget displays: either a filename pattern
// in the data directory or the label of a shared field image.
type DataBinding struct {
	Source       string         `mapstructure:"source"`
	Filename     string         `mapstructure:"filename"`
	Loader       string         `mapstructure:"loader"`
	LoaderParams map[string]any `mapstructure:"loader_params"`
}

// Axis configures one plot axis.
type Axis struct {
	LinkTo string `mapstructure:"link_to"`
	Unit   string `mapstructure:"unit"`
	Label  string `mapstructure:"label"`
	Scale  string `mapstructure:"scale"`
}

// Limits configures colour-bar levels. Type is minmax, percentile or user.
type Limits struct {
	Type    string   `mapstructure:"type"`
	Min     *float64 `mapstructure:"min"`
	Max     *float64 `mapstructure:"max"`
	Percent float64  `mapstructure:"percent"`
}

// ColorBar configures the colour bar of an image widget.
type ColorBar struct {
	LinkTo string `mapstructure:"link_to"`
	Limits Limits `mapstructure:"limits"`
}

// Slider configures a redshift or smoothing slider.
type Slider struct {
	Visible     bool    `mapstructure:"visible"`
	LinkTo      string  `mapstructure:"link_to"`
	Min         float64 `mapstructure:"min"`
	Max         float64 `mapstructure:"max"`
	Step        float64 `mapstructure:"step"`
	Default     float64 `mapstructure:"default"`
	CatalogName string  `mapstructure:"catalog_name"`
}

// LinePlot is one curve of a plot widget, read from two table columns.
type LinePlot struct {
	Label string `mapstructure:"label"`
	X     string `mapstructure:"x"`
	Y     string `mapstructure:"y"`
}

// Widget declares one viewer element. Widgets are configured as a list so
// that titles keep their case and the declared order is the display order.
type Widget struct {
	Title      string      `mapstructure:"title"`
	Kind       string      `mapstructure:"kind"`
	Hidden     bool        `mapstructure:"hidden"`
	Position   string      `mapstructure:"position"`
	RelativeTo string      `mapstructure:"relative_to"`
	Data       DataBinding `mapstructure:"data"`
	// CutoutSize is the half-width in pixels of a field-image cutout.
	CutoutSize int        `mapstructure:"cutout_size"`
	XAxis      Axis       `mapstructure:"x_axis"`
	YAxis      Axis       `mapstructure:"y_axis"`
	ColorBar   ColorBar   `mapstructure:"color_bar"`
	Redshift   Slider     `mapstructure:"redshift_slider"`
	Smoothing  Slider     `mapstructure:"smoothing_slider"`
	XColumn    string     `mapstructure:"x_column"`
	YColumn    string     `mapstructure:"y_column"`
	Lines      []LinePlot `mapstructure:"lines"`
}

// ViewerConfig is the ordered widget list.
type ViewerConfig struct {
	Widgets []Widget `mapstructure:"widgets"`
}

// SpectralLine is a rest-frame line position.
type SpectralLine struct {
	Name       string  `mapstructure:"name"`
	Wavelength float64 `mapstructure:"wavelength"`
}

// SpectralLinesConfig lists the lines drawn on spectra.
type SpectralLinesConfig struct {
	WaveUnit string         `mapstructure:"wave_unit"`
	Lines    []SpectralLine `mapstructure:"lines"`
}

// CacheConfig locates the session cache file.
type CacheConfig struct {
	Path string `mapstructure:"path"`
}

// LoadingConfig tunes background object loading.
type LoadingConfig struct {
	GraceMS int `mapstructure:"grace_ms"`
}

// TelemetryConfig enables the JSONL audit stream when Path is set.
type TelemetryConfig struct {
	Path string `mapstructure:"path"`
}

// ObjectInfoConfig lists the catalogue columns shown for the current object.
type ObjectInfoConfig struct {
	Columns []string `mapstructure:"columns"`
}

// Config holds all runtime configuration for an inspection session.
// Values are populated from .specviz.yaml, SPECVIZ_* env vars, and CLI flags.
type Config struct {
	Catalogue     CatalogueConfig     `mapstructure:"catalogue"`
	Data          DataConfig          `mapstructure:"data"`
	Review        ReviewConfig        `mapstructure:"review"`
	Viewer        ViewerConfig        `mapstructure:"viewer"`
	ObjectInfo    ObjectInfoConfig    `mapstructure:"object_info"`
	Plugins       []string            `mapstructure:"plugins"`
	SpectralLines SpectralLinesConfig `mapstructure:"spectral_lines"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Loading       LoadingConfig       `mapstructure:"loading"`
	Telemetry     TelemetryConfig     `mapstructure:"telemetry"`
	Verbose       bool                `mapstructure:"verbose"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("catalogue.filename", "")
	viper.SetDefault("catalogue.filter_by_data", true)
	viper.SetDefault("data.dir", ".")
	viper.SetDefault("data.id_pattern", `\d+`)
	viper.SetDefault("data.recursive", false)
	viper.SetDefault("review.flags", []string{})
	viper.SetDefault("viewer.widgets", defaultWidgets())
	viper.SetDefault("object_info.columns", []string{"ra", "dec"})
	viper.SetDefault("plugins", []string{})
	viper.SetDefault("spectral_lines.wave_unit", "angstrom")
	viper.SetDefault("spectral_lines.lines", defaultLines())
	viper.SetDefault("cache.path", defaultCachePath())
	viper.SetDefault("loading.grace_ms", 100)
	viper.SetDefault("telemetry.path", "")
	viper.SetDefault("verbose", false)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding configuration: %w", err)
	}
	return cfg, nil
}

// EnvReplacer maps nested keys such as data.dir to SPECVIZ_DATA_DIR.
func EnvReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}

// WidgetByTitle returns the widget with the given title.
func (c Config) WidgetByTitle(title string) (Widget, bool) {
	for _, w := range c.Viewer.Widgets {
		if w.Title == title {
			return w, true
		}
	}
	return Widget{}, false
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".specviz.cache.toml"
	}
	return filepath.Join(dir, "specvizitor", "cache.toml")
}

func defaultWidgets() []map[string]any {
	return []map[string]any{
		{
			"title": "Image Cutout",
			"kind":  KindImage,
			"data":  map[string]any{"filename": `.*{id}.*\.fits`, "loader_params": map[string]any{"extname": "DSCI"}},
			"color_bar": map[string]any{
				"limits": map[string]any{"type": "percentile", "percent": 99.5},
			},
		},
		{
			"title":       "Spectrum 2D",
			"kind":        KindImage,
			"relative_to": "Image Cutout",
			"position":    "bottom",
			"data":        map[string]any{"filename": `.*{id}\.stack\.fits`, "loader_params": map[string]any{"extname": "SCI"}},
			"color_bar":   map[string]any{"limits": map[string]any{"type": "percentile", "percent": 99.5}},
		},
		{
			"title":       "Spectrum 1D",
			"kind":        KindSpectrum,
			"relative_to": "Spectrum 2D",
			"position":    "bottom",
			"data":        map[string]any{"filename": `.*{id}\.1D\.fits`},
			"x_axis":      map[string]any{"unit": "angstrom"},
			"x_column":    "wave",
			"y_column":    "flux",
			"redshift_slider": map[string]any{
				"visible": true, "max": 10.0, "step": 1e-6, "catalog_name": "z",
			},
			"smoothing_slider": map[string]any{"visible": true, "max": 3.0, "step": 0.05},
		},
	}
}

func defaultLines() []map[string]any {
	return []map[string]any{
		{"name": "Lya", "wavelength": 1215.24},
		{"name": "CIV", "wavelength": 1549.48},
		{"name": "MgII", "wavelength": 2799.117},
		{"name": "OII", "wavelength": 3728.48},
		{"name": "Hb", "wavelength": 4862.68},
		{"name": "OIII", "wavelength": 5008.24},
		{"name": "Ha", "wavelength": 6564.61},
		{"name": "SII", "wavelength": 6718.29},
		{"name": "PaB", "wavelength": 12821.7},
		{"name": "PaA", "wavelength": 18756.1},
	}
}
