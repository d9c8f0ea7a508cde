// Package api provides the HTTP API for triggering and inspecting book syncs.
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

	"github.com/faithconnect/bookstack-sync/internal/http/response"
)

// Options configures the HTTP surface.
type Options struct {
	// CORSAllowedOrigins lists browser origins allowed to call the API. Empty disables CORS.
	CORSAllowedOrigins []string
	// RateLimit is the number of requests per minute allowed per client. 0 disables limiting.
	RateLimit int
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services    *Services
	router      *chi.Mux
	api         huma.API
	logger      *slog.Logger
	rateLimiter *RateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services *Services, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	router := chi.NewRouter()

	s := &Server{
		services: services,
		router:   router,
		logger:   logger,
	}
	if opts.RateLimit > 0 {
		// Burst of half a minute's allowance keeps short polling loops smooth.
		s.rateLimiter = NewRateLimiter(opts.RateLimit, time.Minute, max(1, opts.RateLimit/2))
	}

	s.setupMiddleware(opts)

	humaConfig := huma.DefaultConfig("BookStack Sync API", APIVersion)
	humaConfig.Info.Description = "Copies BookStack books between instances and records each run."
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerInstanceRoutes()
	s.registerBookRoutes()
	s.registerSyncRoutes()

	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "route not found", s.logger)
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.MethodNotAllowed(w, "method not allowed", s.logger)
	})

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, mainly for OpenAPI export and tests.
func (s *Server) API() huma.API {
	return s.api
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware(opts Options) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)

	if len(opts.CORSAllowedOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	if s.rateLimiter != nil {
		s.router.Use(RateLimitMiddleware(s.rateLimiter, s.logger))
	}
}
