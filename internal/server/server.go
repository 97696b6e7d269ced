// Package server is the starfield HTTP service: per-user concept graphs,
// their layouts, and rendered starfields.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/lazypower/starfield/internal/gateway"
	"github.com/lazypower/starfield/internal/layout"
	"github.com/lazypower/starfield/internal/logging"
	"github.com/lazypower/starfield/internal/metrics"
	"github.com/lazypower/starfield/internal/scene"
	"github.com/lazypower/starfield/internal/store"
)

// Server is the starfield HTTP API server.
type Server struct {
	db      *store.DB
	graphs  gateway.Gateway
	engine  *layout.Engine
	zoom    scene.Zoom
	metrics *metrics.Collector
	log     *zap.Logger
	origins []string
	now     func() time.Time

	router  chi.Router
	version string
	started time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithMetrics exposes c on /metrics and records into it.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) { s.metrics = c }
}

// WithLayout sets the layout configuration for /api/graph/layout and the
// rendered starfields.
func WithLayout(cfg layout.Config) Option {
	return func(s *Server) { s.engine = layout.New(cfg) }
}

// WithZoom sets the zoom range applied to render requests.
func WithZoom(z scene.Zoom) Option {
	return func(s *Server) { s.zoom = z }
}

// WithCORS sets the allowed origins. The default allows any origin.
func WithCORS(origins ...string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithGraphs replaces the local database as the source for graph reads
// and uploads. Plan and practice still write to the local database.
func WithGraphs(gw gateway.Gateway) Option {
	return func(s *Server) { s.graphs = gw }
}

// WithClock overrides the time source for brightness.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates a new Server with the given database and version string.
func New(db *store.DB, version string, opts ...Option) *Server {
	s := &Server{
		db:      db,
		graphs:  gateway.NewStore(db),
		engine:  layout.New(layout.DefaultConfig()),
		zoom:    scene.DefaultZoom(),
		log:     zap.NewNop(),
		origins: []string{"*"},
		now:     time.Now,
		version: version,
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Requests(s.log))
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/graph", func(r chi.Router) {
			r.Get("/", s.handleGetGraph)
			r.Post("/upload", s.handleUpload)
			r.Post("/plan", s.handlePlan)
			r.Post("/practice", s.handlePractice)
			r.Get("/layout", s.handleLayout)
			r.Get("/starfield.svg", s.handleRender(formatSVG))
			r.Get("/starfield.png", s.handleRender(formatPNG))
		})
	})
	r.Handle("/metrics", s.metrics.Handler())

	r.Get("/*", spaHandler())

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      true,
		"db_path": s.db.Path,
	}
	if err := s.db.Check(r.Context()); err != nil {
		body["db"] = false
		body["db_error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
