package rules

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/bubbleflow/pkg/errors"
	"github.com/matzehuels/bubbleflow/pkg/model"
)

// Opacity holds the opacity tiers (0-1) for each focus state.
type Opacity struct {
	Highlight float64 `toml:"highlight" json:"highlight"`
	Default   float64 `toml:"default" json:"default"`
	Dimmed    float64 `toml:"dimmed" json:"dimmed"`
	Base      float64 `toml:"base" json:"base"`
}

// Range is a closed interval in pixels.
type Range struct {
	Min float64 `toml:"min" json:"min"`
	Max float64 `toml:"max" json:"max"`
}

// Thickness holds the stroke width ranges for each focus state.
type Thickness struct {
	Default   Range `toml:"default" json:"default"`
	Focused   Range `toml:"focused" json:"focused"`
	Unfocused Range `toml:"unfocused" json:"unfocused"`
}

// EntityScale holds bubble radius multipliers for each focus state.
type EntityScale struct {
	Default   float64 `toml:"default" json:"default"`
	Focused   float64 `toml:"focused" json:"focused"`
	Unfocused float64 `toml:"unfocused" json:"unfocused"`
}

// Palette holds the colors of one theme. Colors are "#rrggbb" hex strings.
type Palette struct {
	In          string `toml:"in" json:"in"`
	Out         string `toml:"out" json:"out"`
	NetPositive string `toml:"net_positive" json:"net_positive"`
	NetNegative string `toml:"net_negative" json:"net_negative"`
	Both        string `toml:"both" json:"both"`
	Centre      string `toml:"centre" json:"centre"`
	Background  string `toml:"background" json:"background"`
	Text        string `toml:"text" json:"text"`

	// Entity bubbles are spread evenly around the HCL hue wheel at this
	// chroma and lightness.
	EntityChroma    float64 `toml:"entity_chroma" json:"entity_chroma"`
	EntityLightness float64 `toml:"entity_lightness" json:"entity_lightness"`
}

// Palettes holds one palette per theme.
type Palettes struct {
	Light Palette `toml:"light" json:"light"`
	Dark  Palette `toml:"dark" json:"dark"`
}

// Config is the complete rendering rule configuration.
type Config struct {
	Theme       model.Theme `toml:"theme" json:"theme"`
	Opacity     Opacity     `toml:"opacity" json:"opacity"`
	Thickness   Thickness   `toml:"thickness" json:"thickness"`
	EntityScale EntityScale `toml:"entity_scale" json:"entity_scale"`
	Palette     Palettes    `toml:"palette" json:"palette"`
}

// DefaultConfig returns the built-in rules.
func DefaultConfig() Config {
	return Config{
		Theme: model.ThemeLight,
		Opacity: Opacity{
			Highlight: 1.0,
			Default:   0.75,
			Dimmed:    0.15,
			Base:      0.85,
		},
		Thickness: Thickness{
			Default:   Range{Min: 1, Max: 12},
			Focused:   Range{Min: 2, Max: 16},
			Unfocused: Range{Min: 0.5, Max: 6},
		},
		EntityScale: EntityScale{
			Default:   1.0,
			Focused:   1.15,
			Unfocused: 0.9,
		},
		Palette: Palettes{
			Light: Palette{
				In:              "#d1495b",
				Out:             "#00798c",
				NetPositive:     "#2e933c",
				NetNegative:     "#c8553d",
				Both:            "#6c757d",
				Centre:          "#8d99ae",
				Background:      "#ffffff",
				Text:            "#212529",
				EntityChroma:    0.45,
				EntityLightness: 0.65,
			},
			Dark: Palette{
				In:              "#ff6b6b",
				Out:             "#4ecdc4",
				NetPositive:     "#7bd389",
				NetNegative:     "#f4a261",
				Both:            "#adb5bd",
				Centre:          "#5c677d",
				Background:      "#1b1e23",
				Text:            "#e9ecef",
				EntityChroma:    0.4,
				EntityLightness: 0.5,
			},
		},
	}
}

// For returns the palette of theme t.
func (p Palettes) For(t model.Theme) Palette {
	if t == model.ThemeDark {
		return p.Dark
	}
	return p.Light
}

// Validate reports every bad range, ratio and color as one INVALID_CONFIG
// error.
func (c Config) Validate() error {
	v := errors.NewValidator("rules")

	_, ok := model.ParseTheme(string(c.Theme))
	v.Check(ok, "theme", "must be light or dark, got %q", c.Theme)

	unit := func(field string, x float64) {
		v.Check(x >= 0 && x <= 1, field, "must be within [0, 1], got %v", x)
	}
	unit("opacity.highlight", c.Opacity.Highlight)
	unit("opacity.default", c.Opacity.Default)
	unit("opacity.dimmed", c.Opacity.Dimmed)
	unit("opacity.base", c.Opacity.Base)

	rng := func(field string, r Range) {
		v.Check(r.Min >= 0 && r.Min <= r.Max, field, "needs 0 <= min <= max, got [%v, %v]", r.Min, r.Max)
	}
	rng("thickness.default", c.Thickness.Default)
	rng("thickness.focused", c.Thickness.Focused)
	rng("thickness.unfocused", c.Thickness.Unfocused)

	pos := func(field string, x float64) {
		v.Check(x > 0, field, "must be positive, got %v", x)
	}
	pos("entity_scale.default", c.EntityScale.Default)
	pos("entity_scale.focused", c.EntityScale.Focused)
	pos("entity_scale.unfocused", c.EntityScale.Unfocused)

	for _, theme := range []model.Theme{model.ThemeLight, model.ThemeDark} {
		name := "palette." + string(theme)
		p := c.Palette.For(theme)
		for _, f := range []struct{ field, hex string }{
			{"in", p.In}, {"out", p.Out},
			{"net_positive", p.NetPositive}, {"net_negative", p.NetNegative},
			{"both", p.Both}, {"centre", p.Centre},
			{"background", p.Background}, {"text", p.Text},
		} {
			_, err := colorful.Hex(f.hex)
			v.Check(err == nil, name+"."+f.field, "invalid color %q", f.hex)
		}
		unit(name+".entity_chroma", p.EntityChroma)
		unit(name+".entity_lightness", p.EntityLightness)
	}

	if err := v.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "rules")
	}
	return nil
}

// OnThemeChange returns cfg with the theme switched to t.
func OnThemeChange(cfg Config, t model.Theme) Config {
	cfg.Theme = t
	return cfg
}
