// Package view defines view configurations: which flow list a view reads,
// which flow types and metrics it offers, and whether it supports centre
// flow aggregation.
//
// View sets are validated once when they are built. An unknown flow type,
// an unknown metric key, or a default that is not among a view's supported
// values is a configuration error; nothing downstream re-checks these at
// render time.
package view

import (
	"slices"

	"github.com/matzehuels/bubbleflow/pkg/errors"
	"github.com/matzehuels/bubbleflow/pkg/model"
)

// DefaultMetric is the metric key present in every built-in view.
const DefaultMetric = "abs"

// View is an immutable view configuration.
type View struct {
	Name               string           `toml:"name" json:"name"`
	Title              string           `toml:"title" json:"title,omitempty"`
	DataSourceKey      string           `toml:"data_source" json:"data_source"`
	SupportsCentreFlow bool             `toml:"supports_centre_flow" json:"supports_centre_flow"`
	DefaultFlowType    model.FlowType   `toml:"default_flow_type" json:"default_flow_type"`
	SupportedFlowTypes []model.FlowType `toml:"flow_types" json:"flow_types"`
	DefaultMetric      string           `toml:"default_metric" json:"default_metric"`
	SupportedMetrics   []string         `toml:"metrics" json:"metrics"`
}

// SupportsFlowType reports whether ft is offered by the view.
func (v View) SupportsFlowType(ft model.FlowType) bool {
	return slices.Contains(v.SupportedFlowTypes, ft)
}

// SupportsMetric reports whether metric is offered by the view.
func (v View) SupportsMetric(metric string) bool {
	return slices.Contains(v.SupportedMetrics, metric)
}

// DisplayTitle returns the title if set, otherwise the name.
func (v View) DisplayTitle() string {
	if v.Title != "" {
		return v.Title
	}
	return v.Name
}

// DefaultViews returns the built-in views: pairwise flows and the same flows
// offered for centre aggregation.
func DefaultViews() []View {
	return []View{
		{
			Name:               "pairs",
			Title:              "Pairwise flows",
			DataSourceKey:      "paired",
			SupportsCentreFlow: true,
			DefaultFlowType:    model.FlowBoth,
			SupportedFlowTypes: slices.Clone(model.FlowTypes),
			DefaultMetric:      DefaultMetric,
			SupportedMetrics:   []string{DefaultMetric},
		},
	}
}

// Set is a validated, ordered collection of views.
type Set struct {
	views   []View
	byName  map[string]int
	metrics []string
}

// NewSet validates views against the known metric keys and returns a Set.
// The first view is the default.
func NewSet(knownMetrics []string, views []View) (*Set, error) {
	if len(views) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "no views configured")
	}
	if len(knownMetrics) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "no metrics configured")
	}
	s := &Set{
		views:   make([]View, len(views)),
		byName:  make(map[string]int, len(views)),
		metrics: slices.Clone(knownMetrics),
	}
	for i, v := range views {
		if err := validate(v, knownMetrics); err != nil {
			return nil, err
		}
		if _, dup := s.byName[v.Name]; dup {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "duplicate view %q", v.Name)
		}
		v.SupportedFlowTypes = slices.Clone(v.SupportedFlowTypes)
		v.SupportedMetrics = slices.Clone(v.SupportedMetrics)
		s.views[i] = v
		s.byName[v.Name] = i
	}
	return s, nil
}

func validate(v View, knownMetrics []string) error {
	if v.Name == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "view without a name")
	}
	if v.DataSourceKey == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "view %q: data_source is required", v.Name)
	}
	if len(v.SupportedFlowTypes) == 0 {
		return errors.New(errors.ErrCodeUnknownFlowType, "view %q: no flow types", v.Name)
	}
	for _, ft := range v.SupportedFlowTypes {
		if _, ok := model.ParseFlowType(string(ft)); !ok {
			return errors.New(errors.ErrCodeUnknownFlowType, "view %q: unknown flow type %q", v.Name, ft)
		}
	}
	if !v.SupportsFlowType(v.DefaultFlowType) {
		return errors.New(errors.ErrCodeUnknownFlowType,
			"view %q: default flow type %q is not supported", v.Name, v.DefaultFlowType)
	}
	if len(v.SupportedMetrics) == 0 {
		return errors.New(errors.ErrCodeUnknownMetric, "view %q: no metrics", v.Name)
	}
	for _, m := range v.SupportedMetrics {
		if !slices.Contains(knownMetrics, m) {
			return errors.New(errors.ErrCodeUnknownMetric, "view %q: unknown metric %q", v.Name, m)
		}
	}
	if !v.SupportsMetric(v.DefaultMetric) {
		return errors.New(errors.ErrCodeUnknownMetric,
			"view %q: default metric %q is not supported", v.Name, v.DefaultMetric)
	}
	return nil
}

// Get returns the view with the given name.
func (s *Set) Get(name string) (View, error) {
	i, ok := s.byName[name]
	if !ok {
		return View{}, errors.New(errors.ErrCodeUnknownView, "unknown view %q", name)
	}
	return s.views[i], nil
}

// Default returns the first configured view.
func (s *Set) Default() View { return s.views[0] }

// All returns the views in configuration order.
func (s *Set) All() []View { return slices.Clone(s.views) }

// Names returns the view names in configuration order.
func (s *Set) Names() []string {
	names := make([]string, len(s.views))
	for i, v := range s.views {
		names[i] = v.Name
	}
	return names
}

// Metrics returns the known metric keys.
func (s *Set) Metrics() []string { return slices.Clone(s.metrics) }

// DataSourceKeys returns the distinct flow list keys referenced by views.
func (s *Set) DataSourceKeys() []string {
	var keys []string
	for _, v := range s.views {
		if !slices.Contains(keys, v.DataSourceKey) {
			keys = append(keys, v.DataSourceKey)
		}
	}
	return keys
}
