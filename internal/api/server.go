// Package api provides the HTTP API server and handlers for the BookBridge application.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bookbridge/bookbridge-server/internal/ratelimit"
	"github.com/bookbridge/bookbridge-server/internal/sse"
	"github.com/bookbridge/bookbridge-server/internal/store"
)

// Options configures the HTTP surface.
type Options struct {
	Title          string
	Version        string
	AllowedOrigins []string
	// RequestLogging enables chi's access log.
	RequestLogging bool
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store         *store.Store
	services      *Services
	sseManager    *sse.Manager
	navStream     *sse.Handler
	signInLimiter *ratelimit.KeyedRateLimiter
	router        *chi.Mux
	api           huma.API
	logger        *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	st *store.Store,
	services *Services,
	sseManager *sse.Manager,
	navStream *sse.Handler,
	signInLimiter *ratelimit.KeyedRateLimiter,
	opts Options,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Title == "" {
		opts.Title = "BookBridge API"
	}
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}

	s := &Server{
		store:         st,
		services:      services,
		sseManager:    sseManager,
		navStream:     navStream,
		signInLimiter: signInLimiter,
		router:        chi.NewRouter(),
		logger:        logger,
	}

	s.setupMiddleware(opts)

	humaConfig := huma.DefaultConfig(opts.Title, opts.Version)
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerProfileRoutes()
	s.registerBookRoutes()
	s.registerDonationRoutes()
	s.registerRequestRoutes()
	s.registerExchangeRoutes()
	s.registerNotificationRoutes()
	s.registerNavRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for OpenAPI generation and tests.
func (s *Server) API() huma.API {
	return s.api
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware(opts Options) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	if opts.RequestLogging {
		s.router.Use(middleware.Logger)
	}
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	s.router.Use(clientInfoMiddleware)
}
