package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// =============================================================================
// Params - Interaction State
// =============================================================================

// Params is the complete set of interactive parameters a render model was
// computed from.
type Params struct {
	View        string    `json:"view"`
	Metric      string    `json:"metric"`
	FlowType    FlowType  `json:"flow_type"`
	Threshold   float64   `json:"threshold"`
	FocusEntity *EntityID `json:"focus_entity,omitempty"`
	FocusFlow   string    `json:"focus_flow,omitempty"`
	CentreFlow  bool      `json:"centre_flow,omitempty"`
	Theme       Theme     `json:"theme"`
}

// HasFocus reports whether an entity or a flow is focused.
func (p Params) HasFocus() bool {
	return p.FocusEntity != nil || p.FocusFlow != ""
}

// IsFocusedEntity reports whether id is the focused entity.
func (p Params) IsFocusedEntity(id EntityID) bool {
	return p.FocusEntity != nil && *p.FocusEntity == id
}

// WithFocusEntity returns a copy with the focused entity set (nil clears it).
func (p Params) WithFocusEntity(id *EntityID) Params {
	if id != nil {
		v := *id
		id = &v
	}
	p.FocusEntity = id
	return p
}

// =============================================================================
// RenderModel - Presentation Boundary
// =============================================================================

// RenderModel is the fully resolved output handed to a drawing layer.
//
// It is the only type the presentation side needs: positions, sizes, colors,
// opacities, markers, labels and tooltip fragments are all resolved here.
// A published RenderModel is never mutated.
type RenderModel struct {
	ID         string `json:"id"`
	Generation uint64 `json:"generation"`
	Params     Params `json:"params"`

	Width                float64 `json:"width"`
	Height               float64 `json:"height"`
	Center               Point   `json:"center"`
	PositionCircleRadius float64 `json:"position_circle_radius"`
	OuterRingRadius      float64 `json:"outer_ring_radius"`

	Entities []Entity      `json:"entities"`
	Flows    []FlowRecord  `json:"flows"`
	Segments []FlowSegment `json:"segments"`
}

// Empty reports whether there is nothing to draw. An empty model is a valid
// "no data" state.
func (m *RenderModel) Empty() bool {
	return len(m.Entities) == 0
}

// Entity looks up an entity by id.
func (m *RenderModel) Entity(id EntityID) (Entity, bool) {
	for _, e := range m.Entities {
		if e.ID == id {
			return e, true
		}
	}
	return Entity{}, false
}

// Flow looks up a flow record by id.
func (m *RenderModel) Flow(id string) (FlowRecord, bool) {
	for _, f := range m.Flows {
		if f.ID == id {
			return f, true
		}
	}
	return FlowRecord{}, false
}

// SegmentsOf returns the segments derived from the flow with the given id.
func (m *RenderModel) SegmentsOf(flowID string) []FlowSegment {
	var out []FlowSegment
	for _, s := range m.Segments {
		if s.ParentFlowID == flowID {
			out = append(out, s)
		}
	}
	return out
}

// =============================================================================
// Serialization API
// =============================================================================

// MarshalRenderModel converts a render model to indented JSON bytes.
func MarshalRenderModel(m *RenderModel) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteRenderModel(m, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalRenderModel deserializes JSON bytes to a render model.
func UnmarshalRenderModel(data []byte) (*RenderModel, error) {
	var m RenderModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode render model: %w", err)
	}
	return &m, nil
}

// WriteRenderModel writes a render model as JSON to an io.Writer.
func WriteRenderModel(m *RenderModel, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteRenderModelFile writes a render model to a JSON file.
func WriteRenderModelFile(m *RenderModel, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteRenderModel(m, f)
}
