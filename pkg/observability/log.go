package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks writes every event to a structured logger at debug level, errors
// at warn level.
type LogHooks struct {
	logger *log.Logger
}

// NewLogHooks returns hooks that log to logger.
func NewLogHooks(logger *log.Logger) *LogHooks {
	return &LogHooks{logger: logger}
}

// Hooks returns a set using l for every member.
func (l *LogHooks) Hooks() Hooks {
	return Hooks{Pipeline: l, Cache: l, HTTP: l}
}

func (l *LogHooks) OnLoadStart(_ context.Context, source string) {
	l.logger.Debug("load start", "source", source)
}

func (l *LogHooks) OnLoadComplete(_ context.Context, source string, entityCount int, d time.Duration, err error) {
	if err != nil {
		l.logger.Warn("load failed", "source", source, "duration", d, "error", err)
		return
	}
	l.logger.Debug("load complete", "source", source, "entities", entityCount, "duration", d)
}

func (l *LogHooks) OnRecomputeStart(_ context.Context, generation uint64, view string) {
	l.logger.Debug("recompute start", "generation", generation, "view", view)
}

func (l *LogHooks) OnRecomputeComplete(_ context.Context, generation uint64, segmentCount int, d time.Duration, err error) {
	if err != nil {
		l.logger.Warn("recompute failed", "generation", generation, "duration", d, "error", err)
		return
	}
	l.logger.Debug("recompute complete", "generation", generation, "segments", segmentCount, "duration", d)
}

func (l *LogHooks) OnStaleDiscarded(_ context.Context, generation, latest uint64) {
	l.logger.Debug("stale result discarded", "generation", generation, "latest", latest)
}

func (l *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	l.logger.Debug("cache hit", "type", keyType)
}

func (l *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	l.logger.Debug("cache miss", "type", keyType)
}

func (l *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	l.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (l *LogHooks) OnRequest(_ context.Context, method, host, path string) {
	l.logger.Debug("http request", "method", method, "host", host, "path", path)
}

func (l *LogHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	l.logger.Debug("http response", "method", method, "host", host, "path", path, "status", status, "duration", d)
}

func (l *LogHooks) OnError(_ context.Context, method, host, path string, err error) {
	l.logger.Warn("http error", "method", method, "host", host, "path", path, "error", err)
}

var (
	_ PipelineHooks = (*LogHooks)(nil)
	_ CacheHooks    = (*LogHooks)(nil)
	_ HTTPHooks     = (*LogHooks)(nil)
)
