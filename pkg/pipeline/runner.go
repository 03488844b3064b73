package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/bubbleflow/pkg/cache"
	"github.com/matzehuels/bubbleflow/pkg/model"
	"github.com/matzehuels/bubbleflow/pkg/observability"
	"github.com/matzehuels/bubbleflow/pkg/sink"
	"github.com/matzehuels/bubbleflow/pkg/source"
)

// Runner encapsulates one-shot rendering with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// The Runner is stateless except for its components, cache and logger; it
// doesn't store results. Multiple goroutines can safely use the same Runner
// with different options.
type Runner struct {
	Env    *Env
	Cache  cache.Cache
	Keyer  cache.Keyer
	TTL    time.Duration
	Logger *log.Logger
	Hooks  observability.Hooks
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(env *Env, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Env:    env,
		Cache:  c,
		Keyer:  keyer,
		TTL:    cache.DefaultRenderTTL,
		Logger: logger,
	}
}

// Execute computes the render model of ds and renders every requested format.
func (r *Runner) Execute(ctx context.Context, ds *source.Dataset, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if ds == nil {
		ds = source.Empty()
	}

	result := &Result{
		DatasetDigest: ds.Digest,
		Artifacts:     make(map[string][]byte),
	}

	computeStart := time.Now()
	m, hit, err := r.ComputeWithCacheInfo(ctx, ds, opts)
	if err != nil {
		return nil, fmt.Errorf("compute: %w", err)
	}
	result.Model = m
	result.CacheInfo.ModelHit = hit
	result.Stats.ComputeTime = time.Since(computeStart)
	result.Stats.EntityCount = len(m.Entities)
	result.Stats.FlowCount = len(m.Flows)
	result.Stats.SegmentCount = len(m.Segments)

	r.Logger.Info("computed render model",
		"view", m.Params.View,
		"entities", len(m.Entities),
		"segments", len(m.Segments),
		"cached", hit,
		"duration", result.Stats.ComputeTime)

	renderStart := time.Now()
	sinkOpts := r.SinkOptions(m.Params.Theme)
	for _, format := range opts.Formats {
		data, err := sink.Render(ctx, m, format, sinkOpts)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		result.Artifacts[format] = data
	}
	result.Stats.RenderTime = time.Since(renderStart)

	r.Logger.Debug("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// ComputeWithCacheInfo computes a render model with caching and returns cache
// hit info. The key covers the dataset digest, the resolved parameters, the
// canvas and the configuration digest.
func (r *Runner) ComputeWithCacheInfo(ctx context.Context, ds *source.Dataset, opts Options) (*model.RenderModel, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	if ds == nil {
		ds = source.Empty()
	}
	env := r.Env.WithCanvas(opts.Width, opts.Height)
	params, err := env.ResolveParams(opts)
	if err != nil {
		return nil, false, err
	}
	hooks := r.Hooks.OrNoop()

	key := r.Keyer.RenderKey(ds.Digest, RenderKeyOpts(params, env, env.Width, env.Height))
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			if m, err := model.UnmarshalRenderModel(data); err == nil {
				hooks.Cache.OnCacheHit(ctx, "render")
				return m, true, nil
			}
			// If deserialization fails, fall through to recompute
		}
		hooks.Cache.OnCacheMiss(ctx, "render")
	}

	m, err := Compute(ds, env, params)
	if err != nil {
		return nil, false, err
	}

	if data, err := model.MarshalRenderModel(m); err == nil {
		if err := r.Cache.Set(ctx, key, data, r.TTL); err != nil {
			r.Logger.Warn("render cache write failed", "error", err)
		} else {
			hooks.Cache.OnCacheSet(ctx, "render", len(data))
		}
	}
	return m, false, nil
}

// Compute is a convenience wrapper that calls ComputeWithCacheInfo and
// discards the cache hit info.
func (r *Runner) Compute(ctx context.Context, ds *source.Dataset, opts Options) (*model.RenderModel, error) {
	m, _, err := r.ComputeWithCacheInfo(ctx, ds, opts)
	return m, err
}

// SinkOptions returns the drawing options for theme t.
func (r *Runner) SinkOptions(t model.Theme) sink.Options {
	return SinkOptions(r.Env, t)
}

// SinkOptions returns the drawing options env's palette prescribes for
// theme t.
func SinkOptions(env *Env, t model.Theme) sink.Options {
	p := env.Rules.Palette(t)
	return sink.Options{Background: p.Background, Text: p.Text}
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
