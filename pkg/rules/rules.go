// Package rules resolves presentation attributes of entities and flow
// segments: color, opacity, thickness, bubble scale, arrow direction and
// marker placement.
//
// Every function here is pure. Theme changes produce a new [Config] via
// [OnThemeChange] rather than notifying listeners; callers recompute.
package rules

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/bubbleflow/pkg/model"
	"github.com/matzehuels/bubbleflow/pkg/rank"
)

// FocusState is the relation of an element to the current focus.
type FocusState string

// Focus states.
const (
	StateNone      FocusState = "none"
	StateFocused   FocusState = "focused"
	StateConnected FocusState = "connected"
	StateUnrelated FocusState = "unrelated"
)

// Arrow is the logical direction of a flow.
type Arrow string

// Arrows.
const (
	ArrowNormal        Arrow = "normal"
	ArrowReversed      Arrow = "reversed"
	ArrowBidirectional Arrow = "bidirectional"
)

// Resolver applies a validated Config.
type Resolver struct {
	cfg Config
}

// NewResolver validates cfg and returns a resolver for it.
func NewResolver(cfg Config) (*Resolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Resolver{cfg: cfg}, nil
}

// Config returns the resolver's configuration.
func (r *Resolver) Config() Config { return r.cfg }

// Palette returns the palette for theme t.
func (r *Resolver) Palette(t model.Theme) Palette { return r.cfg.Palette.For(t) }

// =============================================================================
// Direction
// =============================================================================

// ArrowFor returns the direction of flow shown as flow type ft. Net flows
// point from From when From is a net sender (or balanced).
func ArrowFor(f model.FlowRecord, ft model.FlowType) Arrow {
	switch ft {
	case model.FlowIn:
		return ArrowReversed
	case model.FlowOut:
		return ArrowNormal
	case model.FlowNet:
		if f.SignedNet() >= 0 {
			return ArrowNormal
		}
		return ArrowReversed
	case model.FlowBoth:
		return ArrowBidirectional
	}
	panic(fmt.Sprintf("rules: unhandled flow type %q", ft))
}

// MarkerFor maps an arrow to a marker position on a single segment.
func MarkerFor(a Arrow) model.Marker {
	switch a {
	case ArrowNormal:
		return model.MarkerEnd
	case ArrowReversed:
		return model.MarkerStart
	case ArrowBidirectional:
		return model.MarkerBoth
	}
	panic(fmt.Sprintf("rules: unhandled arrow %q", a))
}

// SegmentMarker places the marker for a segment. The halves of a
// bidirectional flow each carry one arrowhead: outgoing at its end, incoming
// at its start.
func SegmentMarker(a Arrow, dir model.SegmentDirection) model.Marker {
	switch dir {
	case model.SegmentOutgoing:
		return model.MarkerEnd
	case model.SegmentIncoming:
		return model.MarkerStart
	case model.SegmentSingle:
		return MarkerFor(a)
	}
	panic(fmt.Sprintf("rules: unhandled segment direction %q", dir))
}

// =============================================================================
// Color
// =============================================================================

// Color returns the color of flow f shown as flow type ft in theme t.
func (r *Resolver) Color(f model.FlowRecord, ft model.FlowType, t model.Theme) string {
	p := r.Palette(t)
	switch ft {
	case model.FlowIn:
		return p.In
	case model.FlowOut:
		return p.Out
	case model.FlowNet:
		if f.SignedNet() >= 0 {
			return p.NetPositive
		}
		return p.NetNegative
	case model.FlowBoth:
		return p.Both
	}
	panic(fmt.Sprintf("rules: unhandled flow type %q", ft))
}

// SegmentColor colors one segment. Bidirectional halves take the out and in
// colors; single segments fall back to [Resolver.Color].
func (r *Resolver) SegmentColor(f model.FlowRecord, ft model.FlowType, dir model.SegmentDirection, t model.Theme) string {
	p := r.Palette(t)
	switch dir {
	case model.SegmentOutgoing:
		return p.Out
	case model.SegmentIncoming:
		return p.In
	}
	return r.Color(f, ft, t)
}

// EntityColor returns the color of the i-th of n ring entities: evenly spaced
// HCL hues at the palette's chroma and lightness.
func (r *Resolver) EntityColor(i, n int, t model.Theme) string {
	p := r.Palette(t)
	if n <= 0 {
		n = 1
	}
	hue := 360 * float64(i%n) / float64(n)
	return colorful.Hcl(hue, p.EntityChroma, p.EntityLightness).Clamped().Hex()
}

// CentreColor returns the color of the synthetic centre entity.
func (r *Resolver) CentreColor(t model.Theme) string {
	return r.Palette(t).Centre
}

// =============================================================================
// Focus-dependent attributes
// =============================================================================

// Opacity maps a focus state to its opacity tier.
func (r *Resolver) Opacity(s FocusState) float64 {
	o := r.cfg.Opacity
	switch s {
	case StateNone:
		return o.Base
	case StateFocused:
		return o.Highlight
	case StateConnected:
		return o.Default
	case StateUnrelated:
		return o.Dimmed
	}
	panic(fmt.Sprintf("rules: unhandled focus state %q", s))
}

// ThicknessRange returns the stroke range used in focus state s.
func (r *Resolver) ThicknessRange(s FocusState) Range {
	t := r.cfg.Thickness
	switch s {
	case StateNone:
		return t.Default
	case StateFocused, StateConnected:
		return t.Focused
	case StateUnrelated:
		return t.Unfocused
	}
	panic(fmt.Sprintf("rules: unhandled focus state %q", s))
}

// Thickness interpolates the range of state s by a relative size (0-100).
// The result never leaves the range.
func (r *Resolver) Thickness(pct float64, s FocusState) float64 {
	rg := r.ThicknessRange(s)
	return rank.Lerp(rg.Min, rg.Max, pct)
}

// Scale returns the bubble radius multiplier for state s.
func (r *Resolver) Scale(s FocusState) float64 {
	e := r.cfg.EntityScale
	switch s {
	case StateNone, StateConnected:
		return e.Default
	case StateFocused:
		return e.Focused
	case StateUnrelated:
		return e.Unfocused
	}
	panic(fmt.Sprintf("rules: unhandled focus state %q", s))
}

// EntityState classifies entity id. connected holds the entities that share
// a displayed flow with the focus.
func EntityState(id model.EntityID, p model.Params, connected map[model.EntityID]bool) FocusState {
	switch {
	case !p.HasFocus():
		return StateNone
	case p.IsFocusedEntity(id):
		return StateFocused
	case connected[id]:
		return StateConnected
	}
	return StateUnrelated
}

// FlowState classifies flow f.
func FlowState(f model.FlowRecord, p model.Params) FocusState {
	switch {
	case !p.HasFocus():
		return StateNone
	case p.FocusFlow != "":
		if p.FocusFlow == f.ID {
			return StateFocused
		}
		return StateUnrelated
	case f.Touches(*p.FocusEntity):
		return StateConnected
	}
	return StateUnrelated
}
