package pipeline

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/matzehuels/bubbleflow/pkg/errors"
	"github.com/matzehuels/bubbleflow/pkg/flow"
	"github.com/matzehuels/bubbleflow/pkg/geometry"
	"github.com/matzehuels/bubbleflow/pkg/layout"
	"github.com/matzehuels/bubbleflow/pkg/model"
	"github.com/matzehuels/bubbleflow/pkg/rules"
	"github.com/matzehuels/bubbleflow/pkg/source"
)

// Compute builds the render model of ds for parameters p.
//
// A nil or entity-less dataset yields an empty model, which is a valid "no
// data" state. A focused flow that is not displayed (for example because it
// fell under the threshold) is dropped from the returned model's params.
func Compute(ds *source.Dataset, env *Env, p model.Params) (*model.RenderModel, error) {
	v, err := env.Views.Get(p.View)
	if err != nil {
		return nil, err
	}
	opts := flow.Options{
		View:       v,
		Metric:     p.Metric,
		FlowType:   p.FlowType,
		Threshold:  p.Threshold,
		Focus:      p.FocusEntity,
		CentreFlow: p.CentreFlow,
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if p.FocusEntity != nil && *p.FocusEntity == model.CentreID && !p.CentreFlow {
		return nil, errors.New(errors.ErrCodeInvalidInput, "centre entity can only be focused in centre mode")
	}

	m := &model.RenderModel{
		ID:     uuid.NewString(),
		Params: p,
		Width:  env.Width,
		Height: env.Height,
		Center: model.Point{X: env.Width / 2, Y: env.Height / 2},
	}
	if ds == nil || len(ds.Entities) == 0 {
		m.Params.FocusFlow = ""
		return m, nil
	}

	records, err := flow.Run(ds, opts)
	if err != nil {
		return nil, err
	}
	if p.FocusFlow != "" && !containsFlow(records, p.FocusFlow) {
		p.FocusFlow = ""
		m.Params.FocusFlow = ""
	}

	l := env.Layout.Build(layoutItems(ds), env.Width, env.Height, p.CentreFlow)
	m.Center = l.Center
	m.PositionCircleRadius = l.PositionCircleRadius
	m.OuterRingRadius = l.OuterRingRadius
	m.Flows = records
	m.Entities = resolveEntities(l, records, env.Rules, p)
	m.Segments = resolveSegments(l, records, env, p)
	return m, nil
}

func layoutItems(ds *source.Dataset) []layout.Item {
	items := make([]layout.Item, len(ds.Entities))
	for i, e := range ds.Entities {
		items[i] = layout.Item{ID: e.ID, Label: e.Label, Value: e.AbsoluteSize}
	}
	return items
}

func containsFlow(records []model.FlowRecord, id string) bool {
	for _, r := range records {
		if r.ID == id {
			return true
		}
	}
	return false
}

// connectedEntities returns the endpoints of every displayed flow that is
// focused or connected to the focus.
func connectedEntities(records []model.FlowRecord, p model.Params) map[model.EntityID]bool {
	out := make(map[model.EntityID]bool)
	if !p.HasFocus() {
		return out
	}
	for _, r := range records {
		switch rules.FlowState(r, p) {
		case rules.StateFocused, rules.StateConnected:
			out[r.From] = true
			out[r.To] = true
		}
	}
	return out
}

func resolveEntities(l layout.Layout, records []model.FlowRecord, r *rules.Resolver, p model.Params) []model.Entity {
	connected := connectedEntities(records, p)
	n := 0
	for _, e := range l.Entities {
		if !e.IsCentre {
			n++
		}
	}

	out := make([]model.Entity, len(l.Entities))
	for i, e := range l.Entities {
		state := rules.EntityState(e.ID, p, connected)
		if e.IsCentre {
			e.Color = r.CentreColor(p.Theme)
		} else {
			e.Color = r.EntityColor(i, n, p.Theme)
		}
		e.Opacity = r.Opacity(state)
		e.Radius *= r.Scale(state)
		e.Focus = state == rules.StateFocused
		e.Tooltip = entityTooltip(e)
		out[i] = e
	}
	return out
}

func resolveSegments(l layout.Layout, records []model.FlowRecord, env *Env, p model.Params) []model.FlowSegment {
	kind := p.FlowType.Kind()
	var out []model.FlowSegment
	for _, rec := range records {
		from, okFrom := l.Lookup(rec.From)
		to, okTo := l.Lookup(rec.To)
		if !okFrom || !okTo {
			continue
		}
		state := rules.FlowState(rec, p)
		arrow := rules.ArrowFor(rec, p.FlowType)
		tooltip := flowTooltip(rec, from.Label, to.Label, p)

		segs := geometry.Segments(rec,
			geometry.Anchor{Center: from.Position, Ring: l.RingRadius(rec.From)},
			geometry.Anchor{Center: to.Position, Ring: l.RingRadius(rec.To)},
			kind, env.Geometry)
		for _, s := range segs {
			var pct, value float64
			switch s.Direction {
			case model.SegmentOutgoing:
				pct, value = rec.RelativeOut, rec.AbsoluteOutFlow
			case model.SegmentIncoming:
				pct, value = rec.RelativeIn, rec.AbsoluteInFlow
			default:
				pct, value = rec.RelativeValue, rec.Value(p.FlowType)
			}
			s.Color = env.Rules.SegmentColor(rec, p.FlowType, s.Direction, p.Theme)
			s.Opacity = env.Rules.Opacity(state)
			s.Thickness = env.Rules.Thickness(pct, state)
			s.Marker = rules.SegmentMarker(arrow, s.Direction)
			s.Labels = []string{FormatValue(value)}
			s.Tooltip = tooltip
			out = append(out, s)
		}
	}
	return out
}

// =============================================================================
// Labels and tooltips
// =============================================================================

// FormatValue formats a flow or entity magnitude for labels: thousands
// separators and at most two decimals.
func FormatValue(v float64) string {
	return humanize.CommafWithDigits(v, 2)
}

func entityTooltip(e model.Entity) string {
	if e.IsCentre {
		return fmt.Sprintf("%s: %s total", e.Label, FormatValue(e.AbsoluteValue))
	}
	return fmt.Sprintf("%s: %s (%s percentile)", e.Label, FormatValue(e.AbsoluteValue), humanize.Ordinal(int(e.PercentileRank+0.5)))
}

func flowTooltip(rec model.FlowRecord, fromLabel, toLabel string, p model.Params) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s → %s", fromLabel, toLabel)
	switch p.FlowType {
	case model.FlowIn:
		fmt.Fprintf(&b, ": %s in", FormatValue(rec.AbsoluteInFlow))
	case model.FlowOut:
		fmt.Fprintf(&b, ": %s out", FormatValue(rec.AbsoluteOutFlow))
	case model.FlowNet:
		fmt.Fprintf(&b, ": %s net %s", FormatValue(rec.NetFlow), rec.NetDirection)
	case model.FlowBoth:
		fmt.Fprintf(&b, ": %s out, %s in", FormatValue(rec.AbsoluteOutFlow), FormatValue(rec.AbsoluteInFlow))
	}
	fmt.Fprintf(&b, " [%s, %s percentile]", p.Metric, humanize.Ordinal(int(rec.PercentileRank+0.5)))
	return b.String()
}
