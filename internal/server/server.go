// Package server exposes the bubble flow controller and one-shot renderer
// over HTTP.
//
// Interaction endpoints mirror the controller transitions and answer with the
// newly published render model. Every client of one server shares a single
// controller, so the API drives one diagram, the way a dashboard would.
//
//	GET    /healthz
//	GET    /api/views
//	GET    /api/snapshot          ?format=json|svg|dot|graphviz|png|pdf
//	GET    /api/events            server-sent snapshots
//	POST   /api/dataset           raw dataset JSON
//	POST   /api/view              {"view": "hub"}
//	POST   /api/metric            {"metric": "abs"}
//	POST   /api/flow-type         {"flow_type": "net"}
//	POST   /api/threshold         {"threshold": 40}
//	POST   /api/focus/entity      {"id": 3}
//	POST   /api/focus/flow        {"id": "1,2"}
//	DELETE /api/focus
//	POST   /api/centre            {"enabled": true}
//	POST   /api/theme             {"theme": "dark"} (empty toggles)
//	POST   /api/canvas            {"width": 800, "height": 600}
//	GET    /api/render            stateless render of the loaded dataset
//	POST   /api/render            stateless render of the posted dataset
package server

import (
	"io"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/bubbleflow/pkg/controller"
	"github.com/matzehuels/bubbleflow/pkg/pipeline"
)

// DefaultMaxBodyBytes limits posted datasets.
const DefaultMaxBodyBytes = 16 << 20

// Options configures a Server.
type Options struct {
	// Controller holds the shared interactive state. Required.
	Controller *controller.Controller

	// Runner serves /api/render. Without it the render endpoints answer 404.
	Runner *pipeline.Runner

	Logger *log.Logger

	// AllowedOrigins enables CORS for the listed origins ("*" allows any).
	AllowedOrigins   []string
	AllowCredentials bool

	MaxBodyBytes int64
}

// Server serves the HTTP API.
type Server struct {
	ctrl    *controller.Controller
	runner  *pipeline.Runner
	logger  *log.Logger
	maxBody int64
	handler http.Handler
}

// New creates a server. It panics if opts.Controller is nil.
func New(opts Options) *Server {
	if opts.Controller == nil {
		panic("server: nil controller")
	}
	s := &Server{
		ctrl:    opts.Controller,
		runner:  opts.Runner,
		logger:  opts.Logger,
		maxBody: opts.MaxBodyBytes,
	}
	if s.logger == nil {
		s.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBodyBytes
	}
	s.handler = s.routes(opts.AllowedOrigins, opts.AllowCredentials)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
