package rules

import (
	"strings"
	"testing"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/bubbleflow/pkg/errors"
	"github.com/matzehuels/bubbleflow/pkg/model"
)

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	r, err := NewResolver(DefaultConfig())
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return r
}

func TestValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad theme", func(c *Config) { c.Theme = "sepia" }, "theme"},
		{"opacity above 1", func(c *Config) { c.Opacity.Highlight = 1.5 }, "opacity.highlight"},
		{"inverted range", func(c *Config) { c.Thickness.Focused = Range{Min: 5, Max: 1} }, "thickness.focused"},
		{"zero scale", func(c *Config) { c.EntityScale.Unfocused = 0 }, "entity_scale.unfocused"},
		{"bad hex", func(c *Config) { c.Palette.Dark.In = "tomato" }, "palette.dark.in"},
		{"chroma out of range", func(c *Config) { c.Palette.Light.EntityChroma = 2 }, "palette.light.entity_chroma"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Fatalf("Validate() = %v, want INVALID_CONFIG", err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not name %s", err, tt.field)
			}
			if _, err := NewResolver(cfg); err == nil {
				t.Error("NewResolver should reject the config")
			}
		})
	}
}

func TestArrowAndMarker(t *testing.T) {
	sender := model.NewFlowRecord(1, 2, 10, 40)
	receiver := model.NewFlowRecord(1, 2, 40, 10)

	tests := []struct {
		name   string
		f      model.FlowRecord
		ft     model.FlowType
		arrow  Arrow
		marker model.Marker
	}{
		{"in", sender, model.FlowIn, ArrowReversed, model.MarkerStart},
		{"out", sender, model.FlowOut, ArrowNormal, model.MarkerEnd},
		{"net sender", sender, model.FlowNet, ArrowNormal, model.MarkerEnd},
		{"net receiver", receiver, model.FlowNet, ArrowReversed, model.MarkerStart},
		{"net balanced", model.NewFlowRecord(1, 2, 5, 5), model.FlowNet, ArrowNormal, model.MarkerEnd},
		{"both", sender, model.FlowBoth, ArrowBidirectional, model.MarkerBoth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := ArrowFor(tt.f, tt.ft)
			if a != tt.arrow {
				t.Errorf("ArrowFor = %v, want %v", a, tt.arrow)
			}
			if m := MarkerFor(a); m != tt.marker {
				t.Errorf("MarkerFor(%v) = %v, want %v", a, m, tt.marker)
			}
		})
	}
}

func TestSegmentMarker(t *testing.T) {
	if m := SegmentMarker(ArrowBidirectional, model.SegmentOutgoing); m != model.MarkerEnd {
		t.Errorf("outgoing = %v, want end", m)
	}
	if m := SegmentMarker(ArrowBidirectional, model.SegmentIncoming); m != model.MarkerStart {
		t.Errorf("incoming = %v, want start", m)
	}
	if m := SegmentMarker(ArrowReversed, model.SegmentSingle); m != model.MarkerStart {
		t.Errorf("single reversed = %v, want start", m)
	}
}

func TestColor(t *testing.T) {
	r := newResolver(t)
	light := DefaultConfig().Palette.Light
	dark := DefaultConfig().Palette.Dark

	sender := model.NewFlowRecord(1, 2, 10, 40)
	receiver := model.NewFlowRecord(1, 2, 40, 10)

	if got := r.Color(sender, model.FlowIn, model.ThemeLight); got != light.In {
		t.Errorf("in color = %s", got)
	}
	if got := r.Color(sender, model.FlowNet, model.ThemeLight); got != light.NetPositive {
		t.Errorf("net sender color = %s", got)
	}
	if got := r.Color(receiver, model.FlowNet, model.ThemeDark); got != dark.NetNegative {
		t.Errorf("net receiver dark color = %s", got)
	}
	if got := r.SegmentColor(sender, model.FlowBoth, model.SegmentOutgoing, model.ThemeDark); got != dark.Out {
		t.Errorf("outgoing half color = %s", got)
	}
	if got := r.SegmentColor(sender, model.FlowBoth, model.SegmentIncoming, model.ThemeLight); got != light.In {
		t.Errorf("incoming half color = %s", got)
	}
	if got := r.SegmentColor(sender, model.FlowBoth, model.SegmentSingle, model.ThemeLight); got != light.Both {
		t.Errorf("single both color = %s", got)
	}
}

func TestEntityColor(t *testing.T) {
	r := newResolver(t)
	seen := map[string]bool{}
	for i := 0; i < 6; i++ {
		c := r.EntityColor(i, 6, model.ThemeLight)
		if _, err := colorful.Hex(c); err != nil {
			t.Fatalf("EntityColor(%d) = %q is not a hex color", i, c)
		}
		seen[c] = true
	}
	if len(seen) != 6 {
		t.Errorf("expected 6 distinct colors, got %d", len(seen))
	}
	if r.EntityColor(0, 6, model.ThemeLight) == r.EntityColor(0, 6, model.ThemeDark) {
		t.Error("light and dark entity colors should differ")
	}
	if got := r.EntityColor(0, 0, model.ThemeLight); got == "" {
		t.Error("EntityColor with n=0 should still return a color")
	}
}

func TestOpacityTiers(t *testing.T) {
	r := newResolver(t)
	o := DefaultConfig().Opacity
	tests := map[FocusState]float64{
		StateNone:      o.Base,
		StateFocused:   o.Highlight,
		StateConnected: o.Default,
		StateUnrelated: o.Dimmed,
	}
	for s, want := range tests {
		if got := r.Opacity(s); got != want {
			t.Errorf("Opacity(%s) = %v, want %v", s, got, want)
		}
	}
	if !(r.Opacity(StateFocused) > r.Opacity(StateConnected) && r.Opacity(StateConnected) > r.Opacity(StateUnrelated)) {
		t.Error("opacity tiers must be ordered highlight > default > dimmed")
	}
}

func TestThicknessStaysInRange(t *testing.T) {
	r := newResolver(t)
	for _, s := range []FocusState{StateNone, StateFocused, StateConnected, StateUnrelated} {
		rg := r.ThicknessRange(s)
		for _, pct := range []float64{-20, 0, 37.5, 100, 140} {
			got := r.Thickness(pct, s)
			if got < rg.Min || got > rg.Max {
				t.Errorf("Thickness(%v, %s) = %v outside [%v, %v]", pct, s, got, rg.Min, rg.Max)
			}
		}
		if r.Thickness(0, s) != rg.Min || r.Thickness(100, s) != rg.Max {
			t.Errorf("Thickness endpoints for %s do not match range", s)
		}
	}
}

func TestScale(t *testing.T) {
	r := newResolver(t)
	if r.Scale(StateFocused) <= r.Scale(StateNone) {
		t.Error("focused entity should be scaled up")
	}
	if r.Scale(StateUnrelated) >= r.Scale(StateNone) {
		t.Error("unrelated entity should be scaled down")
	}
}

func TestEntityAndFlowState(t *testing.T) {
	one := model.EntityID(1)
	connected := map[model.EntityID]bool{2: true}

	none := model.Params{}
	if s := EntityState(1, none, connected); s != StateNone {
		t.Errorf("no focus: %v", s)
	}

	focusEntity := model.Params{FocusEntity: &one}
	if s := EntityState(1, focusEntity, connected); s != StateFocused {
		t.Errorf("focused entity: %v", s)
	}
	if s := EntityState(2, focusEntity, connected); s != StateConnected {
		t.Errorf("connected entity: %v", s)
	}
	if s := EntityState(3, focusEntity, connected); s != StateUnrelated {
		t.Errorf("unrelated entity: %v", s)
	}

	f12 := model.NewFlowRecord(1, 2, 1, 1)
	f23 := model.NewFlowRecord(2, 3, 1, 1)
	if s := FlowState(f12, none); s != StateNone {
		t.Errorf("flow, no focus: %v", s)
	}
	if s := FlowState(f12, focusEntity); s != StateConnected {
		t.Errorf("flow touching focus: %v", s)
	}
	if s := FlowState(f23, focusEntity); s != StateUnrelated {
		t.Errorf("flow away from focus: %v", s)
	}

	focusFlow := model.Params{FocusFlow: f12.ID}
	if s := FlowState(f12, focusFlow); s != StateFocused {
		t.Errorf("focused flow: %v", s)
	}
	if s := FlowState(f23, focusFlow); s != StateUnrelated {
		t.Errorf("other flow: %v", s)
	}
}

func TestOnThemeChangeIsPure(t *testing.T) {
	cfg := DefaultConfig()
	dark := OnThemeChange(cfg, model.ThemeDark)
	if dark.Theme != model.ThemeDark {
		t.Errorf("Theme = %v, want dark", dark.Theme)
	}
	if cfg.Theme != model.ThemeLight {
		t.Error("OnThemeChange mutated its input")
	}
}
