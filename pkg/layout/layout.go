// Package layout computes the circular bubble layout.
//
// Entities are spaced evenly on a position circle. Each entity owns an outer
// ring (the anchor for flow endpoints) whose radius is derived from the
// circle circumference and clamped by configuration. Bubble radii inside the
// ring are scaled by the percentile rank of each entity's absolute value.
//
// An optional synthetic centre entity sits at the canvas centre and is
// excluded from ring spacing and ranking.
//
// Layouts are immutable: every call to [Engine.Build] returns fresh values.
package layout

import (
	"fmt"
	"math"

	"github.com/matzehuels/bubbleflow/pkg/errors"
	"github.com/matzehuels/bubbleflow/pkg/model"
	"github.com/matzehuels/bubbleflow/pkg/rank"
)

// Default configuration values.
const (
	DefaultMargin                    = 40.0
	DefaultMinRingGap                = 8.0
	DefaultMaxOuterRingRadius        = 60.0
	DefaultMinBubbleToRingGap        = 4.0
	DefaultMinBubbleRadiusPercentage = 0.25
	DefaultCentreRadiusFraction      = 0.12
	DefaultCentreLabel               = "Centre"
)

// Config holds the margin and spacing parameters of the layout.
type Config struct {
	Margin                    float64 `toml:"margin" json:"margin"`
	MinRingGap                float64 `toml:"min_ring_gap" json:"min_ring_gap"`
	MaxOuterRingRadius        float64 `toml:"max_outer_ring_radius" json:"max_outer_ring_radius"`
	MinBubbleToRingGap        float64 `toml:"min_bubble_to_ring_gap" json:"min_bubble_to_ring_gap"`
	MinBubbleRadiusPercentage float64 `toml:"min_bubble_radius_percentage" json:"min_bubble_radius_percentage"`
	CentreRadiusFraction      float64 `toml:"centre_radius_fraction" json:"centre_radius_fraction"`
	CentreLabel               string  `toml:"centre_label" json:"centre_label"`
}

// DefaultConfig returns the built-in layout configuration.
func DefaultConfig() Config {
	return Config{
		Margin:                    DefaultMargin,
		MinRingGap:                DefaultMinRingGap,
		MaxOuterRingRadius:        DefaultMaxOuterRingRadius,
		MinBubbleToRingGap:        DefaultMinBubbleToRingGap,
		MinBubbleRadiusPercentage: DefaultMinBubbleRadiusPercentage,
		CentreRadiusFraction:      DefaultCentreRadiusFraction,
		CentreLabel:               DefaultCentreLabel,
	}
}

// Validate reports every out-of-range field as one INVALID_CONFIG error.
func (c Config) Validate() error {
	var bad []string
	check := func(ok bool, field string) {
		if !ok {
			bad = append(bad, field)
		}
	}
	check(c.Margin >= 0, "margin")
	check(c.MinRingGap >= 0, "min_ring_gap")
	check(c.MaxOuterRingRadius > 0, "max_outer_ring_radius")
	check(c.MinBubbleToRingGap >= 0, "min_bubble_to_ring_gap")
	check(c.MinBubbleRadiusPercentage >= 0 && c.MinBubbleRadiusPercentage <= 1, "min_bubble_radius_percentage")
	check(c.CentreRadiusFraction >= 0 && c.CentreRadiusFraction <= 1, "centre_radius_fraction")
	if len(bad) > 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "layout: out of range: %v", bad)
	}
	return nil
}

// Item is an entity to place: its id, label and raw magnitude.
type Item struct {
	ID    model.EntityID
	Label string
	Value float64
}

// Layout is the geometric result of [Engine.Build].
type Layout struct {
	Width, Height        float64
	Center               model.Point
	PositionCircleRadius float64
	OuterRingRadius      float64
	MaxBubbleRadius      float64
	MinBubbleRadius      float64

	// Entities holds the ring entities in input order, followed by the
	// centre entity when one was requested.
	Entities []model.Entity

	index map[model.EntityID]int
	gap   float64
}

// Empty reports whether the layout has no entities.
func (l Layout) Empty() bool { return len(l.Entities) == 0 }

// Lookup returns the entity with the given id.
func (l Layout) Lookup(id model.EntityID) (model.Entity, bool) {
	i, ok := l.index[id]
	if !ok {
		return model.Entity{}, false
	}
	return l.Entities[i], true
}

// RingRadius returns the radius of the boundary used as the anchor for flow
// endpoints of entity id. Ring entities share OuterRingRadius; the centre
// entity's ring sits the configured bubble-to-ring gap outside its bubble.
func (l Layout) RingRadius(id model.EntityID) float64 {
	e, ok := l.Lookup(id)
	if !ok {
		return 0
	}
	if e.IsCentre {
		return e.Radius + l.gap
	}
	return l.OuterRingRadius
}

// Engine builds layouts with a fixed configuration. It holds no mutable state
// and is safe for concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine validates cfg and returns an engine using it.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.CentreLabel == "" {
		cfg.CentreLabel = DefaultCentreLabel
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config { return e.cfg }

// Build places items on a circle inside a width×height canvas.
//
// With zero items the result is an empty layout (not an error): an empty
// entity set is a valid, drawable "no data" state. When withCentre is true a
// synthetic centre entity with id [model.CentreID] is appended.
func (e *Engine) Build(items []Item, width, height float64, withCentre bool) Layout {
	cfg := e.cfg
	l := Layout{
		Width:  width,
		Height: height,
		Center: model.Point{X: width / 2, Y: height / 2},
		index:  make(map[model.EntityID]int, len(items)+1),
		gap:    cfg.MinBubbleToRingGap,
	}
	n := len(items)
	if n == 0 {
		return l
	}

	l.PositionCircleRadius = math.Max(0, math.Min(width, height)/2-cfg.Margin)
	l.OuterRingRadius = OuterRingRadius(l.PositionCircleRadius, n, cfg.MinRingGap, cfg.MaxOuterRingRadius)
	l.MaxBubbleRadius = math.Max(0, l.OuterRingRadius-cfg.MinBubbleToRingGap)
	l.MinBubbleRadius = cfg.MinBubbleRadiusPercentage * l.MaxBubbleRadius

	values := make([]float64, n)
	for i, it := range items {
		values[i] = it.Value
	}
	ranks := rank.PercentileRanks(values)

	l.Entities = make([]model.Entity, 0, n+1)
	for i, it := range items {
		angle := 2 * math.Pi * float64(i) / float64(n)
		l.index[it.ID] = len(l.Entities)
		l.Entities = append(l.Entities, model.Entity{
			ID:             it.ID,
			Label:          it.Label,
			AbsoluteValue:  it.Value,
			PercentileRank: ranks[i],
			Radius:         l.MinBubbleRadius + (l.MaxBubbleRadius-l.MinBubbleRadius)*ranks[i]/100,
			Position: model.Point{
				X: l.Center.X + l.PositionCircleRadius*math.Cos(angle),
				Y: l.Center.Y + l.PositionCircleRadius*math.Sin(angle),
			},
			Angle: angle,
		})
	}

	if withCentre {
		var total float64
		for _, v := range values {
			total += v
		}
		l.index[model.CentreID] = len(l.Entities)
		l.Entities = append(l.Entities, model.Entity{
			ID:            model.CentreID,
			Label:         cfg.CentreLabel,
			AbsoluteValue: total,
			Radius:        cfg.CentreRadiusFraction * l.PositionCircleRadius,
			Position:      l.Center,
			IsCentre:      true,
		})
	}
	return l
}

// OuterRingRadius clamps the ring radius by two bounds, in order: the share
// of the circle circumference each of the n rings may occupy after leaving
// minRingGap between neighbours, then the configured maximum. The result is
// never negative.
func OuterRingRadius(positionCircleRadius float64, n int, minRingGap, maxOuterRingRadius float64) float64 {
	if n <= 0 {
		return 0
	}
	fit := (2*math.Pi*positionCircleRadius - float64(n-1)*minRingGap) / float64(2*n)
	return math.Max(0, math.Min(fit, maxOuterRingRadius))
}

// String summarises the layout for debug logging.
func (l Layout) String() string {
	return fmt.Sprintf("layout(%d entities, R=%.1f, ring=%.1f, bubble=%.1f..%.1f)",
		len(l.Entities), l.PositionCircleRadius, l.OuterRingRadius, l.MinBubbleRadius, l.MaxBubbleRadius)
}
