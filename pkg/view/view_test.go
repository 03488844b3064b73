package view

import (
	"testing"

	"github.com/matzehuels/bubbleflow/pkg/errors"
	"github.com/matzehuels/bubbleflow/pkg/model"
)

func validView() View {
	return View{
		Name:               "pairs",
		DataSourceKey:      "paired",
		SupportsCentreFlow: true,
		DefaultFlowType:    model.FlowNet,
		SupportedFlowTypes: []model.FlowType{model.FlowIn, model.FlowOut, model.FlowNet},
		DefaultMetric:      "abs",
		SupportedMetrics:   []string{"abs", "pct"},
	}
}

func TestNewSetDefaults(t *testing.T) {
	s, err := NewSet([]string{DefaultMetric}, DefaultViews())
	if err != nil {
		t.Fatalf("NewSet(defaults): %v", err)
	}
	if s.Default().Name != "pairs" {
		t.Errorf("Default() = %q, want pairs", s.Default().Name)
	}
	if keys := s.DataSourceKeys(); len(keys) != 1 || keys[0] != "paired" {
		t.Errorf("DataSourceKeys() = %v", keys)
	}
}

func TestNewSetValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*View)
		code   errors.Code
	}{
		{"unknown flow type", func(v *View) { v.SupportedFlowTypes = append(v.SupportedFlowTypes, "sideways") }, errors.ErrCodeUnknownFlowType},
		{"default flow type unsupported", func(v *View) { v.DefaultFlowType = model.FlowBoth }, errors.ErrCodeUnknownFlowType},
		{"no flow types", func(v *View) { v.SupportedFlowTypes = nil }, errors.ErrCodeUnknownFlowType},
		{"unknown metric", func(v *View) { v.SupportedMetrics = []string{"abs", "volume"} }, errors.ErrCodeUnknownMetric},
		{"default metric unsupported", func(v *View) { v.DefaultMetric = "volume" }, errors.ErrCodeUnknownMetric},
		{"missing data source", func(v *View) { v.DataSourceKey = "" }, errors.ErrCodeInvalidConfig},
		{"missing name", func(v *View) { v.Name = "" }, errors.ErrCodeInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := validView()
			tt.mutate(&v)
			_, err := NewSet([]string{"abs", "pct"}, []View{v})
			if !errors.Is(err, tt.code) {
				t.Errorf("NewSet() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestNewSetRejectsDuplicatesAndEmpty(t *testing.T) {
	if _, err := NewSet([]string{"abs"}, nil); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("empty view list error = %v", err)
	}
	if _, err := NewSet(nil, DefaultViews()); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("empty metric list error = %v", err)
	}
	v := validView()
	if _, err := NewSet([]string{"abs", "pct"}, []View{v, v}); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("duplicate view error = %v", err)
	}
}

func TestSetGet(t *testing.T) {
	centre := validView()
	centre.Name = "hub"
	centre.SupportsCentreFlow = false
	s, err := NewSet([]string{"abs", "pct"}, []View{validView(), centre})
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	got, err := s.Get("hub")
	if err != nil {
		t.Fatalf("Get(hub): %v", err)
	}
	if got.SupportsCentreFlow {
		t.Error("hub should not support centre flow")
	}
	if _, err := s.Get("missing"); !errors.Is(err, errors.ErrCodeUnknownView) {
		t.Errorf("Get(missing) error = %v, want UNKNOWN_VIEW", err)
	}
	if names := s.Names(); len(names) != 2 || names[1] != "hub" {
		t.Errorf("Names() = %v", names)
	}
	if !got.SupportsMetric("pct") || got.SupportsFlowType(model.FlowBoth) {
		t.Error("SupportsMetric/SupportsFlowType mismatch")
	}
}
