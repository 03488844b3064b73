package pipeline

import (
	"github.com/matzehuels/bubbleflow/pkg/config"
	"github.com/matzehuels/bubbleflow/pkg/errors"
	"github.com/matzehuels/bubbleflow/pkg/geometry"
	"github.com/matzehuels/bubbleflow/pkg/layout"
	"github.com/matzehuels/bubbleflow/pkg/model"
	"github.com/matzehuels/bubbleflow/pkg/rules"
	"github.com/matzehuels/bubbleflow/pkg/view"
)

// Env holds the immutable components a computation runs with. An Env is built
// once from a validated configuration and passed to every computation; it is
// safe for concurrent use.
type Env struct {
	Layout   *layout.Engine
	Rules    *rules.Resolver
	Views    *view.Set
	Geometry geometry.Options

	Width, Height float64

	// ConfigDigest identifies the configuration in cache keys.
	ConfigDigest string
}

// NewEnv builds the components described by cfg.
func NewEnv(cfg *config.Config) (*Env, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	engine, err := layout.NewEngine(cfg.Layout)
	if err != nil {
		return nil, err
	}
	resolver, err := rules.NewResolver(cfg.Rules)
	if err != nil {
		return nil, err
	}
	views, err := cfg.ViewSet()
	if err != nil {
		return nil, err
	}
	if cfg.Render.Width <= 0 || cfg.Render.Height <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "render: width and height must be positive")
	}
	return &Env{
		Layout:   engine,
		Rules:    resolver,
		Views:    views,
		Geometry: geometry.Options{Style: cfg.Style(), ParallelOffset: cfg.Render.ParallelOffset},
		Width:    cfg.Render.Width,
		Height:   cfg.Render.Height,

		ConfigDigest: cfg.Digest(),
	}, nil
}

// WithCanvas returns a copy of e drawing on a width×height canvas. Zero
// values keep the current size.
func (e *Env) WithCanvas(width, height float64) *Env {
	c := *e
	if width > 0 {
		c.Width = width
	}
	if height > 0 {
		c.Height = height
	}
	return &c
}

// WithRules returns a copy of e using r.
func (e *Env) WithRules(r *rules.Resolver) *Env {
	c := *e
	c.Rules = r
	return &c
}

// DefaultParams returns the parameters of the default view with its default
// metric and flow type and the configured theme.
func (e *Env) DefaultParams() model.Params {
	v := e.Views.Default()
	return model.Params{
		View:     v.Name,
		Metric:   v.DefaultMetric,
		FlowType: v.DefaultFlowType,
		Theme:    e.Rules.Config().Theme,
	}
}

// ResolveParams fills the empty fields of a request from the view and the
// configuration and checks the result against the view.
func (e *Env) ResolveParams(opts Options) (model.Params, error) {
	p := e.DefaultParams()
	v := e.Views.Default()
	if opts.View != "" {
		var err error
		if v, err = e.Views.Get(opts.View); err != nil {
			return model.Params{}, err
		}
		p.View = v.Name
		p.Metric = v.DefaultMetric
		p.FlowType = v.DefaultFlowType
	}
	if opts.Metric != "" {
		if !v.SupportsMetric(opts.Metric) {
			return model.Params{}, errors.New(errors.ErrCodeUnknownMetric, "view %q does not support metric %q", v.Name, opts.Metric)
		}
		p.Metric = opts.Metric
	}
	if opts.FlowType != "" {
		ft, ok := model.ParseFlowType(opts.FlowType)
		if !ok || !v.SupportsFlowType(ft) {
			return model.Params{}, errors.New(errors.ErrCodeUnknownFlowType, "view %q does not support flow type %q", v.Name, opts.FlowType)
		}
		p.FlowType = ft
	}
	if opts.Theme != "" {
		t, ok := model.ParseTheme(opts.Theme)
		if !ok {
			return model.Params{}, errors.New(errors.ErrCodeInvalidInput, "unknown theme %q", opts.Theme)
		}
		p.Theme = t
	}
	if opts.FocusEntity != "" {
		id, err := model.ParseEntityID(opts.FocusEntity)
		if err != nil {
			return model.Params{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "focus_entity")
		}
		p.FocusEntity = &id
	}
	p.Threshold = opts.Threshold
	p.FocusFlow = opts.FocusFlow
	p.CentreFlow = opts.CentreFlow
	return p, nil
}
