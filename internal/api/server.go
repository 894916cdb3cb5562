// Package api provides the HTTP API for field mapping and group imports.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/GetThruTools/ThruText-API/internal/metrics"
	"github.com/GetThruTools/ThruText-API/internal/ratelimit"
	"github.com/GetThruTools/ThruText-API/internal/service"
)

// Options configures the HTTP surface.
type Options struct {
	Version        string
	AllowedOrigins []string
	// RequestsPerSecond limits each client address. Zero disables limiting.
	RequestsPerSecond float64
	Burst             int
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	fields  *service.FieldService
	imports *service.ImportService
	metrics *metrics.Metrics
	router  *chi.Mux
	api     huma.API
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
	version string
	started time.Time
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(fields *service.FieldService, imports *service.ImportService, m *metrics.Metrics, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	s := &Server{
		fields:  fields,
		imports: imports,
		metrics: m,
		router:  chi.NewRouter(),
		logger:  logger,
		version: opts.Version,
		started: time.Now(),
	}
	if opts.RequestsPerSecond > 0 {
		s.limiter = ratelimit.New(opts.RequestsPerSecond, max(opts.Burst, 1))
	}

	// Middleware must be registered before any route, including the ones humachi adds.
	s.setupMiddleware(opts)

	config := huma.DefaultConfig("ThruText API", opts.Version)
	config.Info.Description = "Maps contact CSV headers to ThruText custom fields and imports them as groups."
	s.api = humachi.New(s.router, config)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerFieldRoutes()
	s.registerImportRoutes()

	if m != nil {
		s.router.Method(http.MethodGet, "/metrics", m.Handler())
	}

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the underlying huma API, mainly for OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// Close releases the inbound rate limiter.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware(opts Options) {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.router.Use(requestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.observe)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader, "Retry-After"},
		MaxAge:         300,
	}))
	if s.limiter != nil {
		s.router.Use(s.throttle)
	}
}
