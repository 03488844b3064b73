// Package config loads the bubbleflow TOML configuration.
//
// Every section is optional; missing values fall back to built-in defaults.
// Unknown keys are rejected so typos fail loudly at load time.
//
//	metrics = ["abs", "pct"]
//
//	[layout]
//	margin = 40.0
//
//	[rules]
//	theme = "dark"
//
//	[rules.palette.light]
//	in = "#d1495b"
//
//	[[views]]
//	name = "pairs"
//	data_source = "paired"
//	supports_centre_flow = true
//	default_flow_type = "both"
//	flow_types = ["in", "out", "net", "both"]
//	default_metric = "abs"
//	metrics = ["abs", "pct"]
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/bubbleflow/pkg/cache"
	"github.com/matzehuels/bubbleflow/pkg/errors"
	"github.com/matzehuels/bubbleflow/pkg/geometry"
	"github.com/matzehuels/bubbleflow/pkg/layout"
	"github.com/matzehuels/bubbleflow/pkg/rules"
	"github.com/matzehuels/bubbleflow/pkg/view"
)

// Default canvas size.
const (
	DefaultWidth  = 800.0
	DefaultHeight = 800.0
)

// Render holds canvas and segment style settings.
type Render struct {
	Width          float64 `toml:"width" json:"width"`
	Height         float64 `toml:"height" json:"height"`
	Style          string  `toml:"style" json:"style"`
	ParallelOffset float64 `toml:"parallel_offset" json:"parallel_offset"`
}

// Cache holds render cache settings.
type Cache struct {
	Dir      string `toml:"dir" json:"dir"`
	RedisURL string `toml:"redis_url" json:"redis_url"`
	Prefix   string `toml:"prefix" json:"prefix"`
	TTL      string `toml:"ttl" json:"ttl"`
}

// TTLDuration parses TTL, falling back to [cache.DefaultRenderTTL].
func (c Cache) TTLDuration() (time.Duration, error) {
	if c.TTL == "" {
		return cache.DefaultRenderTTL, nil
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidConfig, err, "cache.ttl")
	}
	return d, nil
}

// Config is the complete configuration.
type Config struct {
	Metrics []string      `toml:"metrics" json:"metrics"`
	Layout  layout.Config `toml:"layout" json:"layout"`
	Rules   rules.Config  `toml:"rules" json:"rules"`
	Views   []view.View   `toml:"views" json:"views"`
	Render  Render        `toml:"render" json:"render"`
	Cache   Cache         `toml:"cache" json:"cache"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Metrics: []string{view.DefaultMetric},
		Layout:  layout.DefaultConfig(),
		Rules:   rules.DefaultConfig(),
		Views:   view.DefaultViews(),
		Render: Render{
			Width:          DefaultWidth,
			Height:         DefaultHeight,
			Style:          string(geometry.StyleSplit),
			ParallelOffset: geometry.DefaultParallelOffset,
		},
	}
}

// Load reads and validates a TOML file. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML over the defaults and validates the result. Views and
// metrics replace the defaults entirely when present.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	cfg.Views = nil
	cfg.Metrics = nil

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown keys: %s", strings.Join(keys, ", "))
	}

	if len(cfg.Views) == 0 {
		cfg.Views = view.DefaultViews()
	}
	if len(cfg.Metrics) == 0 {
		cfg.Metrics = metricsOf(cfg.Views)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func metricsOf(views []view.View) []string {
	var out []string
	seen := map[string]bool{}
	for _, v := range views {
		for _, m := range v.SupportedMetrics {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Layout.Validate(); err != nil {
		return err
	}
	if err := c.Rules.Validate(); err != nil {
		return err
	}
	if _, err := view.NewSet(c.Metrics, c.Views); err != nil {
		return err
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "render: width and height must be positive")
	}
	if _, ok := geometry.ParseStyle(c.Render.Style); !ok {
		return errors.New(errors.ErrCodeInvalidConfig, "render.style: unknown style %q", c.Render.Style)
	}
	if c.Render.ParallelOffset < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "render.parallel_offset must not be negative")
	}
	if _, err := c.Cache.TTLDuration(); err != nil {
		return err
	}
	return nil
}

// ViewSet builds the validated view set.
func (c *Config) ViewSet() (*view.Set, error) {
	return view.NewSet(c.Metrics, c.Views)
}

// Style returns the parsed segment style.
func (c *Config) Style() geometry.Style {
	s, _ := geometry.ParseStyle(c.Render.Style)
	return s
}

// Digest hashes the settings that affect render output, for cache keys.
func (c *Config) Digest() string {
	data, _ := json.Marshal(struct {
		Layout layout.Config
		Rules  rules.Config
		Views  []view.View
		Render Render
	}{c.Layout, c.Rules, c.Views, c.Render})
	return cache.Hash(data)
}

// Encode writes cfg as TOML.
func (c *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
