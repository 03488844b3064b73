// Package geometry converts flow records into drawable segments.
//
// Flow endpoints sit on each entity's outer ring, on the line joining the two
// entity centres. A unidirectional flow becomes one segment. A bidirectional
// flow becomes two segments, drawn either as two halves meeting at a split
// point ([StyleSplit]) or as two full-length lines offset to each side of the
// centre line ([StyleParallel]).
//
// This package only decides where segments go. Color, opacity, thickness and
// markers are resolved by the rules package.
package geometry

import (
	"fmt"
	"math"

	"github.com/matzehuels/bubbleflow/pkg/model"
)

// Split ratio bounds: the split point never leaves [SplitMin, SplitMin+SplitRange]
// of the way from the source ring to the target ring.
const (
	SplitMin   = 0.3
	SplitRange = 0.4
)

// DefaultParallelOffset is the distance between the centre line and each
// line of a parallel bidirectional flow.
const DefaultParallelOffset = 3.0

// Style selects how bidirectional flows are drawn.
type Style string

// Styles.
const (
	StyleSplit    Style = "split"
	StyleParallel Style = "parallel"
)

// ParseStyle validates s as a segment style.
func ParseStyle(s string) (Style, bool) {
	switch st := Style(s); st {
	case StyleSplit, StyleParallel:
		return st, true
	}
	return "", false
}

// Anchor is an entity centre together with the radius of its outer ring.
type Anchor struct {
	Center model.Point
	Ring   float64
}

// RingPoint projects from center towards a target point and returns the
// point at distance radius. Coincident points return center.
func RingPoint(center, towards model.Point, radius float64) model.Point {
	d := towards.Sub(center)
	length := math.Hypot(d.X, d.Y)
	if length == 0 {
		return center
	}
	return center.Add(d.Scale(radius / length))
}

// Endpoints returns where a flow between a and b leaves a's ring and enters
// b's ring.
func Endpoints(a, b Anchor) (start, end model.Point) {
	return RingPoint(a.Center, b.Center, a.Ring), RingPoint(b.Center, a.Center, b.Ring)
}

// SplitRatio places the split point of a bidirectional flow. The larger the
// outgoing share, the closer the split moves to the source:
//
//	0.3 + 0.4 × (1 − out/(in+out))
//
// A zero total splits in the middle.
func SplitRatio(in, out float64) float64 {
	total := in + out
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return 0.5
	}
	return SplitMin + SplitRange*(1-out/total)
}

// SplitPoint interpolates between start and end.
func SplitPoint(start, end model.Point, ratio float64) model.Point {
	return start.Add(end.Sub(start).Scale(ratio))
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b model.Point) model.Point {
	return SplitPoint(a, b, 0.5)
}

// Line is a straight segment from Start to End.
type Line struct {
	Start, End model.Point
}

// ParallelOffset shifts the line start→end by d to each side. Positive is
// offset by (+dy, −dx)·d/len, negative by the opposite. A degenerate line is
// returned unshifted on both sides.
func ParallelOffset(start, end model.Point, d float64) (positive, negative Line) {
	delta := end.Sub(start)
	length := math.Hypot(delta.X, delta.Y)
	if length == 0 {
		l := Line{Start: start, End: end}
		return l, l
	}
	off := model.Point{X: delta.Y * d / length, Y: -delta.X * d / length}
	positive = Line{Start: start.Add(off), End: end.Add(off)}
	negative = Line{Start: start.Sub(off), End: end.Sub(off)}
	return positive, negative
}

// Options tunes [Segments].
type Options struct {
	Style          Style
	ParallelOffset float64
}

// Segments lays out the segments of one flow record from its From anchor to
// its To anchor.
//
// A unidirectional flow yields one [model.SegmentSingle] segment. A
// bidirectional flow yields an outgoing and an incoming segment: in split
// style the outgoing half runs from the source ring to the split point and the
// incoming half from the split point to the target ring; in parallel style
// each runs the full length on its own side of the centre line.
//
// Returned segments carry geometry, IDs and direction only.
func Segments(rec model.FlowRecord, from, to Anchor, kind model.FlowKind, opts Options) []model.FlowSegment {
	start, end := Endpoints(from, to)

	switch kind {
	case model.Unidirectional:
		return []model.FlowSegment{newSegment(rec.ID, model.SegmentSingle, start, end)}
	case model.Bidirectional:
	default:
		panic(fmt.Sprintf("geometry: unhandled flow kind %q", kind))
	}

	switch opts.Style {
	case StyleParallel:
		d := opts.ParallelOffset
		if d <= 0 {
			d = DefaultParallelOffset
		}
		pos, neg := ParallelOffset(start, end, d)
		return []model.FlowSegment{
			newSegment(rec.ID, model.SegmentOutgoing, pos.Start, pos.End),
			newSegment(rec.ID, model.SegmentIncoming, neg.Start, neg.End),
		}
	case StyleSplit, "":
		split := SplitPoint(start, end, SplitRatio(rec.AbsoluteInFlow, rec.AbsoluteOutFlow))
		return []model.FlowSegment{
			newSegment(rec.ID, model.SegmentOutgoing, start, split),
			newSegment(rec.ID, model.SegmentIncoming, split, end),
		}
	}
	panic(fmt.Sprintf("geometry: unhandled style %q", opts.Style))
}

func newSegment(parentID string, dir model.SegmentDirection, start, end model.Point) model.FlowSegment {
	return model.FlowSegment{
		ID:           parentID + "/" + string(dir),
		ParentFlowID: parentID,
		StartPoint:   start,
		EndPoint:     end,
		MidPoint:     Midpoint(start, end),
		Direction:    dir,
	}
}
