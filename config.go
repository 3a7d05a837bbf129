package gallery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/agiangrant/gallery/layout"
	"github.com/agiangrant/gallery/lightbox"
	"github.com/agiangrant/gallery/mapsync"
	"github.com/agiangrant/gallery/markup"
	"github.com/agiangrant/gallery/scroll"
)

// DefaultConfigFile is the file `gallery init` writes.
const DefaultConfigFile = "gallery.toml"

// Config is the gallery runtime configuration. It is read from TOML or YAML.
type Config struct {
	Layout   LayoutConfig   `toml:"layout" yaml:"layout"`
	Scroll   ScrollConfig   `toml:"scroll" yaml:"scroll"`
	Lightbox LightboxConfig `toml:"lightbox" yaml:"lightbox"`
	Map      MapConfig      `toml:"map" yaml:"map"`
	Loop     LoopConfig     `toml:"loop" yaml:"loop"`
	Log      LogConfig      `toml:"log" yaml:"log"`
}

// LayoutConfig configures packing and progressive reveal.
type LayoutConfig struct {
	Container string `toml:"container" yaml:"container"`
	Item      string `toml:"item" yaml:"item"`
	Sizing    string `toml:"sizing" yaml:"sizing"`

	ColumnWidth    float64 `toml:"column_width" yaml:"column_width"`
	Gutter         float64 `toml:"gutter" yaml:"gutter"`
	ContainerWidth float64 `toml:"container_width" yaml:"container_width"`
	FitWidth       bool    `toml:"fit_width" yaml:"fit_width"`

	// Completed loads between re-layouts
	BatchSize int `toml:"batch_size" yaml:"batch_size"`
	// Quiet interval after the last resize signal, in milliseconds
	ResizeQuietMS int `toml:"resize_quiet_ms" yaml:"resize_quiet_ms"`
}

// ScrollConfig configures infinite scroll.
type ScrollConfig struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`
	// URL of further pages; {page} is replaced by the page number
	URLTemplate string  `toml:"url_template" yaml:"url_template"`
	Threshold   float64 `toml:"threshold" yaml:"threshold"`
	TimeoutMS   int     `toml:"timeout_ms" yaml:"timeout_ms"`
}

// LightboxConfig configures the viewer.
type LightboxConfig struct {
	Separator string `toml:"separator" yaml:"separator"`
	Autoplay  bool   `toml:"autoplay" yaml:"autoplay"`
}

// MapConfig configures marker sync.
type MapConfig struct {
	Enabled     bool   `toml:"enabled" yaml:"enabled"`
	ContainerID string `toml:"container_id" yaml:"container_id"`
	FocusZoom   int    `toml:"focus_zoom" yaml:"focus_zoom"`
}

// LoopConfig configures the UI loop.
type LoopConfig struct {
	TargetFPS int `toml:"target_fps" yaml:"target_fps"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level       string `toml:"level" yaml:"level"`
	Development bool   `toml:"development" yaml:"development"`
	// "json" or "console"; empty picks the zap default for the mode
	Encoding string `toml:"encoding" yaml:"encoding"`
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	sel := layout.DefaultSelectors()
	masonry := layout.DefaultMasonryConfig()
	reveal := layout.DefaultRevealConfig()
	return Config{
		Layout: LayoutConfig{
			Container:      sel.Container,
			Item:           sel.Item,
			Sizing:         sel.Sizing,
			ColumnWidth:    masonry.ColumnWidth,
			Gutter:         masonry.Gutter,
			ContainerWidth: masonry.ContainerWidth,
			FitWidth:       masonry.FitWidth,
			BatchSize:      reveal.BatchSize,
			ResizeQuietMS:  int(reveal.ResizeQuiet / time.Millisecond),
		},
		Scroll: ScrollConfig{
			Enabled:   true,
			Threshold: scroll.DefaultThreshold,
			TimeoutMS: 30000,
		},
		Lightbox: LightboxConfig{
			Separator: lightbox.DefaultSeparator,
		},
		Map: MapConfig{
			Enabled:     true,
			ContainerID: "map",
			FocusZoom:   mapsync.DefaultFocusZoom,
		},
		Loop: LoopConfig{TargetFPS: 60},
		Log:  LogConfig{Level: "info"},
	}
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if c.Layout.Container == "" || c.Layout.Item == "" {
		errs = append(errs, errors.New("layout: container and item selectors are required"))
	}
	if c.Layout.ColumnWidth <= 0 {
		errs = append(errs, fmt.Errorf("layout.column_width must be positive, got %v", c.Layout.ColumnWidth))
	}
	if c.Layout.Gutter < 0 {
		errs = append(errs, fmt.Errorf("layout.gutter must not be negative, got %v", c.Layout.Gutter))
	}
	if c.Layout.ContainerWidth <= 0 {
		errs = append(errs, fmt.Errorf("layout.container_width must be positive, got %v", c.Layout.ContainerWidth))
	}
	if c.Layout.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("layout.batch_size must be at least 1, got %d", c.Layout.BatchSize))
	}
	if c.Layout.ResizeQuietMS <= 0 {
		errs = append(errs, fmt.Errorf("layout.resize_quiet_ms must be positive, got %d", c.Layout.ResizeQuietMS))
	}
	if c.Scroll.Threshold < 0 {
		errs = append(errs, fmt.Errorf("scroll.threshold must not be negative, got %v", c.Scroll.Threshold))
	}
	if c.Scroll.URLTemplate != "" && !strings.Contains(c.Scroll.URLTemplate, scroll.PagePlaceholder) {
		errs = append(errs, fmt.Errorf("scroll.url_template %q has no %s", c.Scroll.URLTemplate, scroll.PagePlaceholder))
	}
	if c.Map.Enabled && c.Map.ContainerID == "" {
		errs = append(errs, errors.New("map.container_id is required when the map is enabled"))
	}
	if c.Loop.TargetFPS < 1 {
		errs = append(errs, fmt.Errorf("loop.target_fps must be at least 1, got %d", c.Loop.TargetFPS))
	}
	switch c.Log.Encoding {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.encoding must be json or console, got %q", c.Log.Encoding))
	}
	return errors.Join(errs...)
}

// ResizeQuiet returns the resize debounce interval.
func (c LayoutConfig) ResizeQuiet() time.Duration {
	return time.Duration(c.ResizeQuietMS) * time.Millisecond
}

// Timeout returns the page fetch timeout.
func (c ScrollConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// MarkupOptions returns the page parsing options matching the configured
// selectors. Only class selectors carry over; anything else keeps the
// parser default.
func (c Config) MarkupOptions() markup.Options {
	o := markup.DefaultOptions()
	if name := className(c.Layout.Item); name != "" {
		o.ItemClass = name
	}
	if name := className(c.Layout.Container); name != "" {
		o.GridClass = name
	}
	if c.Map.ContainerID != "" {
		o.MapID = c.Map.ContainerID
	}
	return o
}

func className(selector string) string {
	if len(selector) > 1 && selector[0] == '.' && !strings.ContainsAny(selector[1:], " .#[:>") {
		return selector[1:]
	}
	return ""
}

// LoadConfig reads path over the defaults. YAML is used for .yaml and .yml
// files and TOML otherwise. A missing file yields the defaults.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return config, fmt.Errorf("failed to read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		err = toml.Unmarshal(data, &config)
	}
	if err != nil {
		return config, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return config, fmt.Errorf("invalid %s: %w", path, err)
	}
	return config, nil
}

// SaveConfig writes config to path as TOML.
func SaveConfig(path string, config Config) error {
	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}
