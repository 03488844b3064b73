// Package controller owns the interactive state of a bubble flow diagram.
//
// A [Controller] holds the current parameters, the loaded dataset and the
// components built from the configuration. Every interaction (selecting a
// view, a metric, a flow type, focusing an entity or a flow, changing the
// threshold, theme or canvas, loading data) recomputes the full render model
// through [pipeline.Compute] and publishes it as an immutable snapshot.
//
// # Concurrency
//
// Transitions may be called from any goroutine. Each one is tagged with a
// monotonically increasing generation; a result is only published when no
// newer transition started while it was computing, so the visible snapshot
// always reflects the latest request. [Controller.Snapshot] is a lock-free
// read and never returns nil.
//
// A failed transition keeps the last published snapshot (and its
// parameters) and is reported by [Controller.Err] until the next success.
//
// # Usage
//
//	ctrl, err := controller.New(cfg, controller.WithLogger(logger))
//	if err := ctrl.Load(ctx, source.Open("flows.json")); err != nil {
//	    return err
//	}
//	ctrl.SelectEntity(ctx, 3)
//	m := ctrl.Snapshot()
package controller

import (
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/bubbleflow/pkg/config"
	"github.com/matzehuels/bubbleflow/pkg/errors"
	"github.com/matzehuels/bubbleflow/pkg/model"
	"github.com/matzehuels/bubbleflow/pkg/observability"
	"github.com/matzehuels/bubbleflow/pkg/pipeline"
	"github.com/matzehuels/bubbleflow/pkg/rules"
	"github.com/matzehuels/bubbleflow/pkg/source"
	"github.com/matzehuels/bubbleflow/pkg/view"
)

// Option configures a Controller.
type Option func(*Controller)

// WithHooks sets the observability hooks.
func WithHooks(h observability.Hooks) Option {
	return func(c *Controller) { c.hooks = h }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithCanvas sets the initial canvas size, overriding the configuration.
func WithCanvas(width, height float64) Option {
	return func(c *Controller) { c.width, c.height = width, height }
}

// WithParams sets the initial parameters. They are checked by the first
// computation in [New].
func WithParams(opts pipeline.Options) Option {
	return func(c *Controller) { c.initial = &opts }
}

// state is everything a computation depends on.
type state struct {
	params model.Params
	ds     *source.Dataset
	env    *pipeline.Env
}

// Controller is the interaction state machine. The zero value is not usable;
// create one with [New].
type Controller struct {
	logger *log.Logger
	hooks  observability.Hooks

	width, height float64
	initial       *pipeline.Options

	mu      sync.Mutex
	cur     state // latest requested state
	good    state // state of the published snapshot
	lastErr error
	subs    map[int]chan *model.RenderModel
	nextSub int

	generation atomic.Uint64
	loadSeq    atomic.Uint64
	snapshot   atomic.Pointer[model.RenderModel]
}

// New builds a controller from cfg (nil means the defaults) and publishes an
// initial, empty snapshot.
func New(cfg *config.Config, opts ...Option) (*Controller, error) {
	c := &Controller{subs: make(map[int]chan *model.RenderModel)}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	c.hooks = c.hooks.OrNoop()

	env, err := pipeline.NewEnv(cfg)
	if err != nil {
		return nil, err
	}
	env = env.WithCanvas(c.width, c.height)

	params := env.DefaultParams()
	if c.initial != nil {
		if params, err = env.ResolveParams(*c.initial); err != nil {
			return nil, err
		}
	}

	st := state{params: params, ds: source.Empty(), env: env}
	m, err := pipeline.Compute(st.ds, st.env, st.params)
	if err != nil {
		return nil, err
	}
	c.cur, c.good = st, st
	c.snapshot.Store(m)
	return c, nil
}

// =============================================================================
// Reads
// =============================================================================

// Snapshot returns the latest published render model. It never returns nil
// and the returned model must not be modified.
func (c *Controller) Snapshot() *model.RenderModel {
	return c.snapshot.Load()
}

// Params returns the parameters of the published snapshot.
func (c *Controller) Params() model.Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.good.params
}

// Err returns the error of the latest failed transition, or nil once a later
// transition succeeds.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Generation returns the latest requested generation.
func (c *Controller) Generation() uint64 {
	return c.generation.Load()
}

// Views returns the configured views.
func (c *Controller) Views() []view.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur.env.Views.All()
}

// Env returns the components used for the published snapshot.
func (c *Controller) Env() *pipeline.Env {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.good.env
}

// Dataset returns the loaded dataset.
func (c *Controller) Dataset() *source.Dataset {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.good.ds
}

// Subscribe returns a channel receiving every published snapshot and a
// function that stops the subscription. Slow subscribers only see the most
// recent snapshot.
func (c *Controller) Subscribe() (<-chan *model.RenderModel, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	ch := make(chan *model.RenderModel, 1)
	c.subs[id] = ch
	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(ch)
		}
	}
}

// =============================================================================
// Transitions
// =============================================================================

// SelectView switches to view name and resets the metric and flow type to
// the view's defaults. Centre mode is left when the view does not support it.
// A flow focus is kept unless the new view has no flow with that id.
func (c *Controller) SelectView(ctx context.Context, name string) error {
	return c.transition(ctx, func(s *state) error {
		v, err := s.env.Views.Get(name)
		if err != nil {
			return err
		}
		s.params.View = v.Name
		s.params.Metric = v.DefaultMetric
		s.params.FlowType = v.DefaultFlowType
		if !v.SupportsCentreFlow {
			s.params.CentreFlow = false
			if s.params.IsFocusedEntity(model.CentreID) {
				s.params.FocusEntity = nil
			}
		}
		if !flowInView(s.ds, v, s.params.FocusFlow, s.params.CentreFlow) {
			s.params.FocusFlow = ""
		}
		return nil
	})
}

// SelectMetric switches the metric of the current view.
func (c *Controller) SelectMetric(ctx context.Context, metric string) error {
	return c.transition(ctx, func(s *state) error {
		v, err := s.env.Views.Get(s.params.View)
		if err != nil {
			return err
		}
		if !v.SupportsMetric(metric) {
			return errors.New(errors.ErrCodeUnknownMetric, "view %q does not support metric %q", v.Name, metric)
		}
		s.params.Metric = metric
		return nil
	})
}

// SelectFlowType switches the flow type of the current view.
func (c *Controller) SelectFlowType(ctx context.Context, ft model.FlowType) error {
	return c.transition(ctx, func(s *state) error {
		v, err := s.env.Views.Get(s.params.View)
		if err != nil {
			return err
		}
		if !v.SupportsFlowType(ft) {
			return errors.New(errors.ErrCodeUnknownFlowType, "view %q does not support flow type %q", v.Name, ft)
		}
		s.params.FlowType = ft
		return nil
	})
}

// SetThreshold sets the minimum percentile rank (0-100) of displayed flows.
func (c *Controller) SetThreshold(ctx context.Context, threshold float64) error {
	return c.transition(ctx, func(s *state) error {
		if threshold < 0 || threshold > 100 {
			return errors.New(errors.ErrCodeInvalidInput, "threshold %v outside [0, 100]", threshold)
		}
		s.params.Threshold = threshold
		return nil
	})
}

// SelectEntity focuses entity id, or clears the focus when id is already
// focused. Focusing an entity clears any focused flow.
func (c *Controller) SelectEntity(ctx context.Context, id model.EntityID) error {
	return c.transition(ctx, func(s *state) error {
		if s.params.IsFocusedEntity(id) {
			s.params.FocusEntity = nil
			return nil
		}
		s.params = s.params.WithFocusEntity(&id)
		s.params.FocusFlow = ""
		return nil
	})
}

// SelectFlow focuses the flow with the given id, or clears the focus when it
// is already focused. Focusing a flow clears any focused entity.
func (c *Controller) SelectFlow(ctx context.Context, id string) error {
	return c.transition(ctx, func(s *state) error {
		if s.params.FocusFlow == id {
			s.params.FocusFlow = ""
			return nil
		}
		s.params.FocusFlow = id
		s.params.FocusEntity = nil
		return nil
	})
}

// ClearFocus removes any entity or flow focus.
func (c *Controller) ClearFocus(ctx context.Context) error {
	return c.transition(ctx, func(s *state) error {
		s.params.FocusEntity = nil
		s.params.FocusFlow = ""
		return nil
	})
}

// SetCentreFlow enters or leaves centre mode. Flow focus is kept; leaving
// centre mode drops a focus on the centre or on one of its flows.
func (c *Controller) SetCentreFlow(ctx context.Context, on bool) error {
	return c.transition(ctx, func(s *state) error {
		v, err := s.env.Views.Get(s.params.View)
		if err != nil {
			return err
		}
		if on && !v.SupportsCentreFlow {
			return errors.New(errors.ErrCodeInvalidInput, "view %q does not support centre flow", v.Name)
		}
		s.params.CentreFlow = on
		if !on && s.params.IsFocusedEntity(model.CentreID) {
			s.params.FocusEntity = nil
		}
		if !on && isCentreFlow(s.params.FocusFlow) {
			s.params.FocusFlow = ""
		}
		return nil
	})
}

// flowInView reports whether id can name a flow of view v. Centre flow ids
// are only valid in centre mode; other ids must match a pair in the view's
// flow list.
func flowInView(ds *source.Dataset, v view.View, id string, centre bool) bool {
	if id == "" {
		return true
	}
	if isCentreFlow(id) {
		return centre
	}
	if ds == nil {
		return false
	}
	list, _ := ds.FlowList(v.DataSourceKey)
	for _, f := range list {
		if model.PairKey(f.From, f.To) == id {
			return true
		}
	}
	return false
}

func isCentreFlow(id string) bool {
	return strings.HasPrefix(id, model.CentreID.String()+",")
}

// SetTheme switches the theme. The rule configuration is rebuilt for the new
// theme and everything is recomputed.
func (c *Controller) SetTheme(ctx context.Context, t model.Theme) error {
	return c.transition(ctx, func(s *state) error {
		if _, ok := model.ParseTheme(string(t)); !ok {
			return errors.New(errors.ErrCodeInvalidInput, "unknown theme %q", t)
		}
		r, err := rules.NewResolver(rules.OnThemeChange(s.env.Rules.Config(), t))
		if err != nil {
			return err
		}
		s.env = s.env.WithRules(r)
		s.params.Theme = t
		return nil
	})
}

// ToggleTheme switches between light and dark.
func (c *Controller) ToggleTheme(ctx context.Context) error {
	return c.SetTheme(ctx, c.Params().Theme.Toggle())
}

// Resize changes the canvas size.
func (c *Controller) Resize(ctx context.Context, width, height float64) error {
	return c.transition(ctx, func(s *state) error {
		if width <= 0 || height <= 0 {
			return errors.New(errors.ErrCodeInvalidInput, "canvas size must be positive, got %vx%v", width, height)
		}
		s.env = s.env.WithCanvas(width, height)
		return nil
	})
}

// Load reads a dataset from src and recomputes. Any focus is cleared. When
// several loads overlap only the most recently started one is applied.
func (c *Controller) Load(ctx context.Context, src source.Source) error {
	seq := c.loadSeq.Add(1)
	name := src.Name()

	c.hooks.Pipeline.OnLoadStart(ctx, name)
	start := time.Now()
	ds, err := src.Load(ctx)
	entities := 0
	if ds != nil {
		entities = len(ds.Entities)
	}
	c.hooks.Pipeline.OnLoadComplete(ctx, name, entities, time.Since(start), err)
	if err != nil {
		c.fail(err)
		return err
	}
	if latest := c.loadSeq.Load(); latest != seq {
		c.hooks.Pipeline.OnStaleDiscarded(ctx, seq, latest)
		c.logger.Debug("discarding stale dataset", "source", name)
		return nil
	}

	c.logger.Info("loaded dataset", "source", name, "entities", entities, "lists", ds.Keys())
	return c.transition(ctx, func(s *state) error {
		if err := ds.CheckViews(s.env.Views); err != nil {
			c.logger.Warn("dataset does not cover every view", "source", name, "error", err)
		}
		s.ds = ds
		s.params.FocusEntity = nil
		s.params.FocusFlow = ""
		return nil
	})
}

// Refresh recomputes the current state without changing it.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.transition(ctx, func(*state) error { return nil })
}

// =============================================================================
// Recompute
// =============================================================================

// transition applies fn to a copy of the latest requested state, recomputes
// outside the lock and publishes the result if it is still the latest.
func (c *Controller) transition(ctx context.Context, fn func(*state) error) error {
	c.mu.Lock()
	next := c.cur
	if err := fn(&next); err != nil {
		c.lastErr = err
		c.mu.Unlock()
		return err
	}
	gen := c.generation.Add(1)
	c.cur = next
	c.mu.Unlock()

	c.hooks.Pipeline.OnRecomputeStart(ctx, gen, next.params.View)
	start := time.Now()
	m, err := pipeline.Compute(next.ds, next.env, next.params)
	segments := 0
	if m != nil {
		segments = len(m.Segments)
	}
	c.hooks.Pipeline.OnRecomputeComplete(ctx, gen, segments, time.Since(start), err)

	if err == nil {
		err = ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if latest := c.generation.Load(); latest != gen {
		c.hooks.Pipeline.OnStaleDiscarded(ctx, gen, latest)
		return err
	}
	if err != nil {
		c.logger.Debug("recompute failed", "generation", gen, "error", err)
		c.cur = c.good
		c.lastErr = err
		return err
	}

	m.Generation = gen
	// Compute drops a flow focus the threshold hides.
	next.params.FocusFlow = m.Params.FocusFlow
	c.cur = next
	c.good = next
	c.lastErr = nil
	c.snapshot.Store(m)
	for _, ch := range c.subs {
		publish(ch, m)
	}
	return nil
}

func (c *Controller) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = err
}

// publish replaces any unread snapshot in ch with m.
func publish(ch chan *model.RenderModel, m *model.RenderModel) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- m:
	default:
	}
}
