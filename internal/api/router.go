// Package api provides the HTTP API for the GreenRoute planner.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/greenroute/greenroute/internal/api/handler"
	"github.com/greenroute/greenroute/internal/api/middleware"
	"github.com/greenroute/greenroute/internal/featureflags"
	"github.com/greenroute/greenroute/internal/planner"
	"github.com/greenroute/greenroute/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	// Registry reports provider health on /v1/ops/status (optional).
	Registry *resilience.Registry

	Planner            *planner.Service
	Places             handler.Autocompleter
	FeatureFlagService *featureflags.Service

	// AdminToken guards /v1/admin. Empty disables the admin endpoints.
	AdminToken string
	RequireTLS bool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "greenroute-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement
	r.Use(middleware.ContentTypeJSON)            // JSON content type
	r.Use(middleware.RequireJSON)                // Reject non-JSON request bodies

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Registry)

	// Feature flags fall back to defaults when no service is configured.
	ffService := cfg.FeatureFlagService
	if ffService == nil {
		ffService = featureflags.NewService(featureflags.ServiceConfig{Logger: cfg.Logger})
	}
	featureFlagsHandler := handler.NewFeatureFlagsHandler(ffService, cfg.Logger)
	placesHandler := handler.NewPlacesHandler(cfg.Places, ffService, cfg.Logger)

	sessionHandler := handler.NewSessionHandler(cfg.Planner, cfg.Logger)

	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)         // 100 req/min
	autocompleteRateLimit := middleware.RateLimitByIP(middleware.AutocompleteRateLimit) // 300 req/min
	adminRateLimit := middleware.RateLimitByIP(middleware.AdminRateLimit)               // 10 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Planner sessions - standard rate limiting per IP, search per session too
		r.Route("/sessions", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Post("/", sessionHandler.CreateSession)

			r.Route("/{"+middleware.SessionIDParam+"}", func(r chi.Router) {
				r.Get("/", sessionHandler.GetSession)
				r.Delete("/", sessionHandler.DeleteSession)

				r.Put("/origin", sessionHandler.UpdateOrigin)
				r.Put("/destination", sessionHandler.UpdateDestination)
				r.Post("/swap", sessionHandler.SwapOriginDestination)

				r.Route("/stops", func(r chi.Router) {
					r.Post("/", sessionHandler.AddStop)
					r.Put("/{"+handler.StopIndexParam+"}", sessionHandler.UpdateStop)
					r.Delete("/{"+handler.StopIndexParam+"}", sessionHandler.RemoveStop)
				})

				// Search hits the route backend - expensive, limited per session
				r.With(middleware.RateLimitBySession(middleware.ExpensiveRateLimit)).
					Post("/search", sessionHandler.Search)
				r.Put("/selection", sessionHandler.SelectRoute)

				r.Get("/map", sessionHandler.GetMap)
				r.Get("/map.geojson", sessionHandler.GetMapGeoJSON)
			})
		})

		// Place suggestions are requested per keystroke
		r.With(autocompleteRateLimit).Get("/places/autocomplete", placesHandler.Autocomplete)

		// Admin endpoints (token) - for internal operations
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminToken(cfg.AdminToken))
			r.Use(adminRateLimit)

			// Feature flags management
			r.Route("/feature-flags", func(r chi.Router) {
				r.Get("/", featureFlagsHandler.ListFeatureFlags)
				r.Put("/", featureFlagsHandler.UpsertFeatureFlags)
				r.Post("/invalidate", featureFlagsHandler.InvalidateCache)
			})
		})
	})

	return r
}
