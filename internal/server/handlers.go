package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/matzehuels/bubbleflow/pkg/buildinfo"
	"github.com/matzehuels/bubbleflow/pkg/errors"
	"github.com/matzehuels/bubbleflow/pkg/model"
	"github.com/matzehuels/bubbleflow/pkg/pipeline"
	"github.com/matzehuels/bubbleflow/pkg/sink"
	"github.com/matzehuels/bubbleflow/pkg/source"
	"github.com/matzehuels/bubbleflow/pkg/view"
)

// =============================================================================
// Reads
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"status":     "ok",
		"generation": s.ctrl.Generation(),
		"build":      buildinfo.Get(),
	}
	if err := s.ctrl.Err(); err != nil {
		payload["status"] = "degraded"
		payload["error"] = errors.UserMessage(err)
	}
	respondJSON(w, http.StatusOK, payload)
}

type viewsResponse struct {
	Default string      `json:"default"`
	Current string      `json:"current"`
	Views   []view.View `json:"views"`
}

func (s *Server) handleViews(w http.ResponseWriter, r *http.Request) {
	env := s.ctrl.Env()
	respondJSON(w, http.StatusOK, viewsResponse{
		Default: env.Views.Default().Name,
		Current: s.ctrl.Params().View,
		Views:   env.Views.All(),
	})
}

// handleSnapshot returns the published model, rendered to ?format.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = sink.FormatJSON
	}
	if err := sink.ValidateFormat(format); err != nil {
		writeErr(w, err)
		return
	}
	snap := s.ctrl.Snapshot()
	data, err := sink.Render(r.Context(), snap, format, pipeline.SinkOptions(s.ctrl.Env(), snap.Params.Theme))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeArtifact(w, format, data)
}

// handleEvents streams every published snapshot as a server-sent event until
// the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	updates, cancel := s.ctrl.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(m *model.RenderModel) error {
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "id: %d\nevent: snapshot\ndata: %s\n\n", m.Generation, data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if err := send(s.ctrl.Snapshot()); err != nil {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case m, ok := <-updates:
			if !ok {
				return
			}
			if err := send(m); err != nil {
				s.logger.Debug("event stream closed", "error", err)
				return
			}
		}
	}
}

// =============================================================================
// Transitions
// =============================================================================

// transition runs fn and answers with the resulting snapshot.
func (s *Server) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context) error) {
	if err := fn(r.Context()); err != nil {
		s.logger.Debug("transition failed", "path", r.URL.Path, "error", err)
		writeErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		writeErr(w, errors.New(errors.ErrCodeInvalidInput, "read dataset: %v", err))
		return
	}
	src := &source.BytesSource{Label: "request", Data: data}
	s.transition(w, r, func(ctx context.Context) error { return s.ctrl.Load(ctx, src) })
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[struct {
		View string `json:"view"`
	}](w, r, s.maxBody)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.transition(w, r, func(ctx context.Context) error { return s.ctrl.SelectView(ctx, req.View) })
}

func (s *Server) handleMetric(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[struct {
		Metric string `json:"metric"`
	}](w, r, s.maxBody)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.transition(w, r, func(ctx context.Context) error { return s.ctrl.SelectMetric(ctx, req.Metric) })
}

func (s *Server) handleFlowType(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[struct {
		FlowType string `json:"flow_type"`
	}](w, r, s.maxBody)
	if err != nil {
		writeErr(w, err)
		return
	}
	ft, ok := model.ParseFlowType(req.FlowType)
	if !ok {
		writeErr(w, errors.New(errors.ErrCodeUnknownFlowType, "unknown flow type %q", req.FlowType))
		return
	}
	s.transition(w, r, func(ctx context.Context) error { return s.ctrl.SelectFlowType(ctx, ft) })
}

func (s *Server) handleThreshold(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[struct {
		Threshold *float64 `json:"threshold"`
	}](w, r, s.maxBody)
	if err != nil {
		writeErr(w, err)
		return
	}
	if req.Threshold == nil {
		writeErr(w, errors.New(errors.ErrCodeInvalidInput, "threshold is required"))
		return
	}
	s.transition(w, r, func(ctx context.Context) error { return s.ctrl.SetThreshold(ctx, *req.Threshold) })
}

func (s *Server) handleFocusEntity(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[struct {
		ID *model.EntityID `json:"id"`
	}](w, r, s.maxBody)
	if err != nil {
		writeErr(w, err)
		return
	}
	if req.ID == nil {
		writeErr(w, errors.New(errors.ErrCodeInvalidInput, "id is required"))
		return
	}
	s.transition(w, r, func(ctx context.Context) error { return s.ctrl.SelectEntity(ctx, *req.ID) })
}

func (s *Server) handleFocusFlow(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[struct {
		ID string `json:"id"`
	}](w, r, s.maxBody)
	if err != nil {
		writeErr(w, err)
		return
	}
	if req.ID == "" {
		writeErr(w, errors.New(errors.ErrCodeInvalidInput, "id is required"))
		return
	}
	s.transition(w, r, func(ctx context.Context) error { return s.ctrl.SelectFlow(ctx, req.ID) })
}

func (s *Server) handleClearFocus(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.ctrl.ClearFocus)
}

func (s *Server) handleCentre(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[struct {
		Enabled bool `json:"enabled"`
	}](w, r, s.maxBody)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.transition(w, r, func(ctx context.Context) error { return s.ctrl.SetCentreFlow(ctx, req.Enabled) })
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[struct {
		Theme string `json:"theme"`
	}](w, r, s.maxBody)
	if err != nil {
		writeErr(w, err)
		return
	}
	if req.Theme == "" {
		s.transition(w, r, s.ctrl.ToggleTheme)
		return
	}
	t, ok := model.ParseTheme(req.Theme)
	if !ok {
		writeErr(w, errors.New(errors.ErrCodeInvalidInput, "unknown theme %q", req.Theme))
		return
	}
	s.transition(w, r, func(ctx context.Context) error { return s.ctrl.SetTheme(ctx, t) })
}

func (s *Server) handleCanvas(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}](w, r, s.maxBody)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.transition(w, r, func(ctx context.Context) error { return s.ctrl.Resize(ctx, req.Width, req.Height) })
}

// =============================================================================
// One-shot rendering
// =============================================================================

// handleRenderLoaded renders the controller's dataset with the query's
// parameters without changing the shared state.
func (s *Server) handleRenderLoaded(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, s.ctrl.Dataset())
}

// handleRenderPosted renders the dataset in the request body.
func (s *Server) handleRenderPosted(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		writeErr(w, errors.New(errors.ErrCodeInvalidInput, "read dataset: %v", err))
		return
	}
	ds, err := source.Parse(data)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.render(w, r, ds)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, ds *source.Dataset) {
	if s.runner == nil {
		writeError(w, http.StatusNotFound, "rendering is not enabled")
		return
	}
	opts, err := parseRenderOptions(r.URL.Query())
	if err != nil {
		writeErr(w, err)
		return
	}
	opts.Logger = s.logger
	result, err := s.runner.Execute(r.Context(), ds, opts)
	if err != nil {
		writeErr(w, err)
		return
	}
	format := opts.Formats[0]
	cacheStatus := "miss"
	if result.CacheInfo.ModelHit {
		cacheStatus = "hit"
	}
	w.Header().Set("X-Bubbleflow-Cache", cacheStatus)
	w.Header().Set("X-Bubbleflow-Dataset", result.DatasetDigest)
	writeArtifact(w, format, result.Artifacts[format])
}

// parseRenderOptions reads render options from query parameters. Exactly one
// format may be requested.
func parseRenderOptions(q url.Values) (pipeline.Options, error) {
	opts := pipeline.Options{
		View:        q.Get("view"),
		Metric:      q.Get("metric"),
		FlowType:    q.Get("flow_type"),
		FocusEntity: q.Get("focus"),
		FocusFlow:   q.Get("focus_flow"),
		Theme:       q.Get("theme"),
	}
	var err error
	if opts.Threshold, err = floatParam(q, "threshold"); err != nil {
		return opts, err
	}
	if opts.Width, err = floatParam(q, "width"); err != nil {
		return opts, err
	}
	if opts.Height, err = floatParam(q, "height"); err != nil {
		return opts, err
	}
	if opts.CentreFlow, err = boolParam(q, "centre"); err != nil {
		return opts, err
	}
	if opts.Refresh, err = boolParam(q, "refresh"); err != nil {
		return opts, err
	}
	if f := q.Get("format"); f != "" {
		if strings.Contains(f, ",") {
			return opts, errors.New(errors.ErrCodeInvalidInput, "request one format at a time")
		}
		opts.Formats = []string{f}
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return opts, err
	}
	return opts, nil
}

func floatParam(q url.Values, name string) (float64, error) {
	v := q.Get(name)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.New(errors.ErrCodeInvalidInput, "%s: not a number: %q", name, v)
	}
	return f, nil
}

func boolParam(q url.Values, name string) (bool, error) {
	v := q.Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.New(errors.ErrCodeInvalidInput, "%s: not a boolean: %q", name, v)
	}
	return b, nil
}

func writeArtifact(w http.ResponseWriter, format string, data []byte) {
	w.Header().Set("Content-Type", sink.ContentType(format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
