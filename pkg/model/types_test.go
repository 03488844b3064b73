package model

import (
	"bytes"
	"testing"
)

func TestPairKeySymmetric(t *testing.T) {
	if PairKey(1, 2) != PairKey(2, 1) {
		t.Errorf("PairKey(1,2) = %q, PairKey(2,1) = %q", PairKey(1, 2), PairKey(2, 1))
	}
	if got := PairKey(7, 3); got != "3,7" {
		t.Errorf("PairKey(7,3) = %q, want %q", got, "3,7")
	}
	if got := PairKey(4, CentreID); got != "centre,4" {
		t.Errorf("PairKey(4,centre) = %q, want %q", got, "centre,4")
	}
}

func TestParseEntityID(t *testing.T) {
	tests := []struct {
		in      string
		want    EntityID
		wantErr bool
	}{
		{"12", 12, false},
		{"centre", CentreID, false},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseEntityID(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseEntityID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseEntityID(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewFlowRecordNet(t *testing.T) {
	tests := []struct {
		name    string
		in, out float64
		net     float64
		dir     NetDirection
		signed  float64
	}{
		{"net sender", 10, 40, 30, NetOut, 30},
		{"net receiver", 40, 10, 30, NetIn, -30},
		{"balanced", 5, 5, 0, NetOut, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewFlowRecord(1, 2, tt.in, tt.out)
			if r.NetFlow != tt.net {
				t.Errorf("NetFlow = %v, want %v", r.NetFlow, tt.net)
			}
			if r.NetDirection != tt.dir {
				t.Errorf("NetDirection = %v, want %v", r.NetDirection, tt.dir)
			}
			if r.SignedNet() != tt.signed {
				t.Errorf("SignedNet() = %v, want %v", r.SignedNet(), tt.signed)
			}
		})
	}
}

func TestFlowRecordSwapped(t *testing.T) {
	r := NewFlowRecord(1, 2, 40, 10)
	s := r.Swapped()
	if s.From != 2 || s.To != 1 {
		t.Errorf("Swapped endpoints = %v→%v, want 2→1", s.From, s.To)
	}
	if s.AbsoluteInFlow != 10 || s.AbsoluteOutFlow != 40 {
		t.Errorf("Swapped values in=%v out=%v, want in=10 out=40", s.AbsoluteInFlow, s.AbsoluteOutFlow)
	}
	if s.NetDirection != NetOut {
		t.Errorf("Swapped NetDirection = %v, want out", s.NetDirection)
	}
	if s.ID != r.ID {
		t.Errorf("Swapped ID = %q, want %q", s.ID, r.ID)
	}
	if s.Swapped() != r {
		t.Error("double swap should restore the record")
	}
}

func TestFlowRecordValue(t *testing.T) {
	r := NewFlowRecord(1, 2, 40, 10)
	tests := []struct {
		ft   FlowType
		want float64
	}{
		{FlowIn, 40},
		{FlowOut, 10},
		{FlowNet, 30},
		{FlowBoth, 50},
	}
	for _, tt := range tests {
		if got := r.Value(tt.ft); got != tt.want {
			t.Errorf("Value(%s) = %v, want %v", tt.ft, got, tt.want)
		}
	}
}

func TestParseFlowType(t *testing.T) {
	for _, ft := range FlowTypes {
		if got, ok := ParseFlowType(string(ft)); !ok || got != ft {
			t.Errorf("ParseFlowType(%q) = %v, %v", ft, got, ok)
		}
	}
	if _, ok := ParseFlowType("sideways"); ok {
		t.Error("ParseFlowType should reject unknown flow types")
	}
	if FlowBoth.Kind() != Bidirectional || FlowNet.Kind() != Unidirectional {
		t.Error("only the both flow type is bidirectional")
	}
}

func TestThemeToggle(t *testing.T) {
	if ThemeLight.Toggle() != ThemeDark || ThemeDark.Toggle() != ThemeLight {
		t.Error("Toggle should flip between light and dark")
	}
	if _, ok := ParseTheme("sepia"); ok {
		t.Error("ParseTheme should reject unknown themes")
	}
}

func TestParamsFocus(t *testing.T) {
	var p Params
	if p.HasFocus() {
		t.Error("zero Params should have no focus")
	}
	id := EntityID(3)
	p2 := p.WithFocusEntity(&id)
	id = 9
	if !p2.IsFocusedEntity(3) {
		t.Error("WithFocusEntity should copy the id")
	}
	if p.HasFocus() {
		t.Error("WithFocusEntity should not modify the receiver")
	}
}

func TestRenderModelRoundTrip(t *testing.T) {
	m := &RenderModel{
		ID:       "abc",
		Params:   Params{View: "pairs", Metric: "abs", FlowType: FlowBoth, Theme: ThemeLight},
		Entities: []Entity{{ID: 1, Label: "A", Radius: 4}},
		Flows:    []FlowRecord{NewFlowRecord(1, 2, 3, 4)},
		Segments: []FlowSegment{{ID: "1,2:out", ParentFlowID: "1,2", Direction: SegmentOutgoing, Marker: MarkerEnd}},
	}
	var buf bytes.Buffer
	if err := WriteRenderModel(m, &buf); err != nil {
		t.Fatalf("WriteRenderModel: %v", err)
	}
	got, err := UnmarshalRenderModel(buf.Bytes())
	if err != nil {
		t.Fatalf("UnmarshalRenderModel: %v", err)
	}
	if e, ok := got.Entity(1); !ok || e.Label != "A" {
		t.Errorf("Entity(1) = %+v, %v", e, ok)
	}
	if _, ok := got.Flow("1,2"); !ok {
		t.Error("Flow(1,2) not found")
	}
	if segs := got.SegmentsOf("1,2"); len(segs) != 1 || segs[0].Marker != MarkerEnd {
		t.Errorf("SegmentsOf(1,2) = %+v", segs)
	}
}
