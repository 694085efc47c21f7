// Package main provides the entrypoint for the GreenRoute planner API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/greenroute/greenroute/internal/api"
	"github.com/greenroute/greenroute/internal/api/middleware"
	"github.com/greenroute/greenroute/internal/config"
	"github.com/greenroute/greenroute/internal/featureflags"
	"github.com/greenroute/greenroute/internal/mapview"
	"github.com/greenroute/greenroute/internal/places"
	"github.com/greenroute/greenroute/internal/planner"
	"github.com/greenroute/greenroute/internal/provider/resilience"
	"github.com/greenroute/greenroute/internal/routing/backend"
	"github.com/greenroute/greenroute/internal/telemetry"
	"github.com/greenroute/greenroute/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "greenroute-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting GreenRoute API")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if cfg.App.Env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.App.Env,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.Telemetry.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	providerMetrics, err := telemetry.NewProviderMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize provider metrics")
		os.Exit(1)
	}

	registry := resilience.NewRegistry()

	// Route backend: one request per search, never retried
	routeBackend := backend.NewClient(backend.ClientConfig{
		BaseURL:  cfg.RouteBackend.URL,
		Timeout:  cfg.RouteBackend.Timeout,
		Registry: registry,
		Metrics:  providerMetrics,
		Logger:   log,
	})
	log.Info().
		Str("url", cfg.RouteBackend.URL).
		Dur("timeout", cfg.RouteBackend.Timeout).
		Msg("route backend client initialized")

	placesClient := places.NewClient(places.ClientConfig{
		BaseURL:   cfg.Places.BaseURL,
		Timeout:   cfg.Places.Timeout,
		CacheSize: cfg.Places.CacheSize,
		CacheTTL:  cfg.Places.CacheTTL,
		Registry:  registry,
		Metrics:   providerMetrics,
		Logger:    log,
	})

	// Initialize feature flags, seeded from the config file
	ffService := featureflags.NewService(featureflags.ServiceConfig{
		Repository: featureflags.NewInMemoryRepository(featureflags.SeedFlags(cfg.FeatureFlags)),
		Logger:     log,
		CacheTTL:   1 * time.Minute,
	})
	log.Info().Int("seeded", len(cfg.FeatureFlags)).Msg("feature flags service initialized")

	renderer := mapview.NewRenderer(mapview.Config{
		Tiles: mapview.TileLayer{
			URL:         cfg.Map.TileURL,
			Attribution: cfg.Map.TileAttribution,
		},
		Icons: mapview.Icons{
			IconURL:       cfg.Map.IconURL,
			IconRetinaURL: cfg.Map.IconRetinaURL,
			ShadowURL:     cfg.Map.ShadowURL,
		},
	})

	plannerService := planner.NewService(planner.ServiceConfig{
		Provider: routeBackend,
		Renderer: renderer,
		Flags:    ffService,
		Logger:   log,
		IdleTTL:  cfg.Session.IdleTTL,
	})

	// Expire abandoned sessions in the background
	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	janitor := worker.NewJanitor(worker.JanitorConfig{
		Sweeper:  plannerService,
		Logger:   log,
		Interval: cfg.Session.SweepInterval,
	})
	go janitor.Start(janitorCtx)

	if cfg.AdminToken == "" {
		log.Warn().Msg("ADMIN_TOKEN not set - admin endpoints are disabled")
	}

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:            Version,
		BuildTime:          BuildTime,
		Logger:             log,
		ServiceName:        serviceName,
		Metrics:            metrics,
		Registry:           registry,
		Planner:            plannerService,
		Places:             placesClient,
		FeatureFlagService: ffService,
		AdminToken:         cfg.AdminToken,
		RequireTLS:         cfg.App.RequireTLS,
	})

	// WriteTimeout must outlast a slow backend search.
	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RouteBackend.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("env", cfg.App.Env).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	stopJanitor()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
