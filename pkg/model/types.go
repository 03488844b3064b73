package model

import (
	"fmt"
	"strconv"
)

// =============================================================================
// Identifiers
// =============================================================================

// EntityID is the stable key of an entity. Raw data ids are non-negative.
type EntityID int64

// CentreID is the reserved id of the synthetic centre entity.
const CentreID EntityID = -1

// String returns the decimal form of the id, or "centre" for [CentreID].
func (id EntityID) String() string {
	if id == CentreID {
		return "centre"
	}
	return strconv.FormatInt(int64(id), 10)
}

// ParseEntityID parses the decimal form produced by [EntityID.String].
func ParseEntityID(s string) (EntityID, error) {
	if s == "centre" {
		return CentreID, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse entity id %q: %w", s, err)
	}
	return EntityID(n), nil
}

// PairKey returns the order-independent key of the pair {a, b}:
// "min(a,b),max(a,b)". It is also the id of the flow record for that pair.
func PairKey(a, b EntityID) string {
	if b < a {
		a, b = b, a
	}
	return a.String() + "," + b.String()
}

// =============================================================================
// Geometry
// =============================================================================

// Point is a 2D coordinate in canvas space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p + q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Scale returns p * k.
func (p Point) Scale(k float64) Point { return Point{p.X * k, p.Y * k} }

// =============================================================================
// Closed variants
// =============================================================================

// FlowType selects which flow quantity is displayed.
type FlowType string

// Flow types.
const (
	FlowIn   FlowType = "in"
	FlowOut  FlowType = "out"
	FlowNet  FlowType = "net"
	FlowBoth FlowType = "both"
)

// FlowTypes lists every flow type in display order.
var FlowTypes = []FlowType{FlowIn, FlowOut, FlowNet, FlowBoth}

// ParseFlowType validates s against the closed set of flow types.
func ParseFlowType(s string) (FlowType, bool) {
	switch ft := FlowType(s); ft {
	case FlowIn, FlowOut, FlowNet, FlowBoth:
		return ft, true
	}
	return "", false
}

// Kind reports whether flows of this type are drawn with one or two segments.
func (ft FlowType) Kind() FlowKind {
	if ft == FlowBoth {
		return Bidirectional
	}
	return Unidirectional
}

// FlowKind distinguishes single-arc from split flows.
type FlowKind string

// Flow kinds.
const (
	Unidirectional FlowKind = "unidirectional"
	Bidirectional  FlowKind = "bidirectional"
)

// NetDirection is the dominant direction of a flow.
type NetDirection string

// Net directions.
const (
	NetIn  NetDirection = "in"
	NetOut NetDirection = "out"
)

// SegmentDirection is the role a segment plays within its parent flow.
type SegmentDirection string

// Segment directions.
const (
	SegmentSingle   SegmentDirection = "single"
	SegmentOutgoing SegmentDirection = "outgoing"
	SegmentIncoming SegmentDirection = "incoming"
)

// Marker places arrowheads on a segment.
type Marker string

// Marker positions.
const (
	MarkerStart Marker = "start"
	MarkerEnd   Marker = "end"
	MarkerBoth  Marker = "both"
	MarkerNone  Marker = "none"
)

// Theme is the dark/light presentation flag.
type Theme string

// Themes.
const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme validates s as a theme name.
func ParseTheme(s string) (Theme, bool) {
	switch t := Theme(s); t {
	case ThemeLight, ThemeDark:
		return t, true
	}
	return "", false
}

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// =============================================================================
// Entity
// =============================================================================

// Entity is a positioned bubble. Entities are immutable once published.
type Entity struct {
	ID             EntityID `json:"id"`
	Label          string   `json:"label"`
	AbsoluteValue  float64  `json:"absolute_value"`
	PercentileRank float64  `json:"percentile_rank"`
	Radius         float64  `json:"radius"`
	Position       Point    `json:"position"`
	Angle          float64  `json:"angle"`
	Color          string   `json:"color,omitempty"`
	IsCentre       bool     `json:"is_centre,omitempty"`
	Focus          bool     `json:"focus,omitempty"`
	Opacity        float64  `json:"opacity"`
	Tooltip        string   `json:"tooltip,omitempty"`
}

// =============================================================================
// FlowRecord
// =============================================================================

// FlowRecord is a directed quantitative relationship between two entities,
// valued for the active metric. "In" and "out" are from the perspective of
// From: AbsoluteOutFlow leaves From towards To.
type FlowRecord struct {
	ID              string       `json:"id"`
	From            EntityID     `json:"from"`
	To              EntityID     `json:"to"`
	AbsoluteInFlow  float64      `json:"absolute_in_flow"`
	AbsoluteOutFlow float64      `json:"absolute_out_flow"`
	NetFlow         float64      `json:"net_flow"`
	NetDirection    NetDirection `json:"net_flow_direction"`
	PercentileRank  float64      `json:"percentile_rank"`

	// Relative sizes (0-100) of the thickness fields, sharing one scale.
	RelativeIn    float64 `json:"relative_in"`
	RelativeOut   float64 `json:"relative_out"`
	RelativeValue float64 `json:"relative_value"`
}

// NewFlowRecord builds a record for from→to, deriving the net fields.
func NewFlowRecord(from, to EntityID, in, out float64) FlowRecord {
	r := FlowRecord{
		ID:              PairKey(from, to),
		From:            from,
		To:              to,
		AbsoluteInFlow:  in,
		AbsoluteOutFlow: out,
	}
	r.deriveNet()
	return r
}

func (r *FlowRecord) deriveNet() {
	signed := r.AbsoluteOutFlow - r.AbsoluteInFlow
	if signed < 0 {
		r.NetFlow = -signed
		r.NetDirection = NetIn
	} else {
		r.NetFlow = signed
		r.NetDirection = NetOut
	}
}

// SignedNet returns out − in: positive when From is a net sender.
func (r FlowRecord) SignedNet() float64 {
	return r.AbsoluteOutFlow - r.AbsoluteInFlow
}

// Swapped returns the same relationship seen from To's side.
func (r FlowRecord) Swapped() FlowRecord {
	s := r
	s.From, s.To = r.To, r.From
	s.AbsoluteInFlow, s.AbsoluteOutFlow = r.AbsoluteOutFlow, r.AbsoluteInFlow
	s.RelativeIn, s.RelativeOut = r.RelativeOut, r.RelativeIn
	s.deriveNet()
	return s
}

// Touches reports whether id is one of the record's endpoints.
func (r FlowRecord) Touches(id EntityID) bool {
	return r.From == id || r.To == id
}

// Value returns the quantity shown for flow type ft.
func (r FlowRecord) Value(ft FlowType) float64 {
	switch ft {
	case FlowIn:
		return r.AbsoluteInFlow
	case FlowOut:
		return r.AbsoluteOutFlow
	case FlowNet:
		return r.NetFlow
	case FlowBoth:
		return r.AbsoluteInFlow + r.AbsoluteOutFlow
	}
	panic(fmt.Sprintf("model: unhandled flow type %q", ft))
}

// =============================================================================
// FlowSegment
// =============================================================================

// FlowSegment is a renderable unit derived from a FlowRecord.
type FlowSegment struct {
	ID           string           `json:"id"`
	ParentFlowID string           `json:"parent_flow_id"`
	StartPoint   Point            `json:"start_point"`
	EndPoint     Point            `json:"end_point"`
	MidPoint     Point            `json:"mid_point"`
	Thickness    float64          `json:"thickness"`
	Color        string           `json:"color"`
	Opacity      float64          `json:"opacity"`
	Direction    SegmentDirection `json:"direction"`
	Marker       Marker           `json:"marker_position"`
	Labels       []string         `json:"labels,omitempty"`
	Tooltip      string           `json:"tooltip,omitempty"`
}
