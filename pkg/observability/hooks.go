// Package observability provides hooks for metrics, tracing, and logging.
//
// Hook interfaces let callers observe recomputation, cache and HTTP activity
// without the core packages depending on a metrics backend. Hooks are passed
// explicitly: components take a [Hooks] value and fall back to no-ops for any
// nil member.
//
//	hooks := observability.Hooks{Pipeline: observability.NewLogHooks(logger)}
//	ctrl, err := controller.New(cfg, controller.WithHooks(hooks))
package observability

import (
	"context"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from dataset loading and recomputation.
type PipelineHooks interface {
	// Load events
	OnLoadStart(ctx context.Context, source string)
	OnLoadComplete(ctx context.Context, source string, entityCount int, duration time.Duration, err error)

	// Recompute events. generation is the counter value the result was
	// computed for.
	OnRecomputeStart(ctx context.Context, generation uint64, view string)
	OnRecomputeComplete(ctx context.Context, generation uint64, segmentCount int, duration time.Duration, err error)

	// OnStaleDiscarded records a result dropped because a newer generation
	// was requested while it was computing.
	OnStaleDiscarded(ctx context.Context, generation, latest uint64)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnLoadStart(context.Context, string)                                    {}
func (NoopPipelineHooks) OnLoadComplete(context.Context, string, int, time.Duration, error)      {}
func (NoopPipelineHooks) OnRecomputeStart(context.Context, uint64, string)                       {}
func (NoopPipelineHooks) OnRecomputeComplete(context.Context, uint64, int, time.Duration, error) {}
func (NoopPipelineHooks) OnStaleDiscarded(context.Context, uint64, uint64)                       {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Hook Set
// =============================================================================

// Hooks bundles the hook interfaces a component emits to. Nil members are
// treated as no-ops.
type Hooks struct {
	Pipeline PipelineHooks
	Cache    CacheHooks
	HTTP     HTTPHooks
}

// Noop returns a hook set where every member is a no-op.
func Noop() Hooks {
	return Hooks{
		Pipeline: NoopPipelineHooks{},
		Cache:    NoopCacheHooks{},
		HTTP:     NoopHTTPHooks{},
	}
}

// OrNoop fills nil members with no-ops.
func (h Hooks) OrNoop() Hooks {
	if h.Pipeline == nil {
		h.Pipeline = NoopPipelineHooks{}
	}
	if h.Cache == nil {
		h.Cache = NoopCacheHooks{}
	}
	if h.HTTP == nil {
		h.HTTP = NoopHTTPHooks{}
	}
	return h
}
