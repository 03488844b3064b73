// Package pipeline turns a dataset and a set of interaction parameters into a
// fully resolved render model.
//
// This package centralizes the layout → flow → geometry → rules sequence so the
// CLI, the HTTP server and the interactive controller all compute render
// models the same way.
//
// # Architecture
//
// A computation runs in four steps:
//
//  1. Layout: place every entity on the position circle ([layout.Engine])
//  2. Flows: extract, filter, rank and scale flow records ([flow.Run])
//  3. Geometry: turn each record into one or two segments ([geometry.Segments])
//  4. Rules: resolve colors, opacities, thickness and markers ([rules.Resolver])
//
// [Compute] runs all four in full on every call. There is no incremental
// path: a parameter change always produces a fresh, immutable model.
//
// # Usage
//
// One-shot rendering with caching goes through a [Runner]:
//
//	env, err := pipeline.NewEnv(cfg)
//	runner := pipeline.NewRunner(env, cache, nil, logger)
//	result, err := runner.Execute(ctx, ds, pipeline.Options{
//	    View:     "pairs",
//	    FlowType: "both",
//	    Formats:  []string{"svg"},
//	})
//	svg := result.Artifacts["svg"]
//
// Interactive callers use [Compute] directly:
//
//	params, err := env.ResolveParams(pipeline.Options{View: "pairs"})
//	m, err := pipeline.Compute(ds, env, params)
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/bubbleflow/pkg/cache"
	"github.com/matzehuels/bubbleflow/pkg/errors"
	"github.com/matzehuels/bubbleflow/pkg/model"
	"github.com/matzehuels/bubbleflow/pkg/sink"
)

// =============================================================================
// Default Values
// =============================================================================

// DefaultFormat is the artifact format rendered when none is requested.
const DefaultFormat = sink.FormatJSON

// =============================================================================
// Options - Render Request
// =============================================================================

// Options is a one-shot render request. Empty fields fall back to the view's
// defaults (metric, flow type) or the configuration (view, theme, canvas).
// This struct supports JSON serialization for API requests.
type Options struct {
	View        string  `json:"view,omitempty"`
	Metric      string  `json:"metric,omitempty"`
	FlowType    string  `json:"flow_type,omitempty"`
	Threshold   float64 `json:"threshold,omitempty"`
	FocusEntity string  `json:"focus_entity,omitempty"`
	FocusFlow   string  `json:"focus_flow,omitempty"`
	CentreFlow  bool    `json:"centre_flow,omitempty"`
	Theme       string  `json:"theme,omitempty"`

	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`

	Formats []string `json:"formats,omitempty"`
	Refresh bool     `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	validated bool
}

// ValidateAndSetDefaults checks the view-independent fields and applies
// defaults. This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{DefaultFormat}
	}
	for _, f := range o.Formats {
		if err := sink.ValidateFormat(f); err != nil {
			return err
		}
	}
	if o.FlowType != "" {
		if _, ok := model.ParseFlowType(o.FlowType); !ok {
			return errors.New(errors.ErrCodeUnknownFlowType, "unknown flow type %q", o.FlowType)
		}
	}
	if o.Theme != "" {
		if _, ok := model.ParseTheme(o.Theme); !ok {
			return errors.New(errors.ErrCodeInvalidInput, "unknown theme %q", o.Theme)
		}
	}
	if o.Threshold < 0 || o.Threshold > 100 {
		return errors.New(errors.ErrCodeInvalidInput, "threshold %v outside [0, 100]", o.Threshold)
	}
	if o.Width < 0 || o.Height < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "canvas size must not be negative")
	}
	if o.FocusEntity != "" {
		if _, err := model.ParseEntityID(o.FocusEntity); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "focus_entity")
		}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// RenderKeyOpts returns the cache key options for a resolved request.
func RenderKeyOpts(p model.Params, env *Env, width, height float64) cache.RenderKeyOpts {
	opts := cache.RenderKeyOpts{
		View:         p.View,
		Metric:       p.Metric,
		FlowType:     string(p.FlowType),
		Threshold:    p.Threshold,
		FocusFlow:    p.FocusFlow,
		CentreFlow:   p.CentreFlow,
		Theme:        string(p.Theme),
		Style:        string(env.Geometry.Style),
		Width:        width,
		Height:       height,
		ConfigDigest: env.ConfigDigest,
	}
	if p.FocusEntity != nil {
		opts.FocusEntity = p.FocusEntity.String()
	}
	return opts
}

// =============================================================================
// Result
// =============================================================================

// Result contains the outputs of a render run.
type Result struct {
	// Model is the computed render model.
	Model *model.RenderModel

	// DatasetDigest is the content hash of the input dataset.
	DatasetDigest string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks whether the model came from cache.
	CacheInfo CacheInfo
}

// Stats contains execution statistics.
type Stats struct {
	EntityCount  int
	FlowCount    int
	SegmentCount int
	ComputeTime  time.Duration
	RenderTime   time.Duration
}

// CacheInfo tracks cache hits.
type CacheInfo struct {
	ModelHit bool
}
