// Package config loads service configuration from a .env file, an optional
// YAML file and the process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete service configuration.
type Config struct {
	App          AppConfig              `yaml:"app"`
	RouteBackend RouteBackendConfig     `yaml:"routeBackend"`
	Places       PlacesConfig           `yaml:"places"`
	Session      SessionConfig          `yaml:"session"`
	Telemetry    TelemetryConfig        `yaml:"telemetry"`
	Map          MapConfig              `yaml:"map"`
	AdminToken   string                 `yaml:"adminToken"`
	FeatureFlags map[string]interface{} `yaml:"featureFlags"`
}

// AppConfig holds HTTP server settings.
type AppConfig struct {
	Port       string `yaml:"port" validate:"required,numeric"`
	Env        string `yaml:"env" validate:"oneof=development test staging production"`
	RequireTLS bool   `yaml:"requireTLS"`
}

// RouteBackendConfig points at the route-planning backend.
type RouteBackendConfig struct {
	URL     string        `yaml:"url" validate:"required,url"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

// PlacesConfig points at the autocomplete source.
type PlacesConfig struct {
	BaseURL   string        `yaml:"baseURL" validate:"required,url"`
	Timeout   time.Duration `yaml:"timeout" validate:"gt=0"`
	CacheSize int           `yaml:"cacheSize" validate:"min=1"`
	CacheTTL  time.Duration `yaml:"cacheTTL" validate:"gt=0"`
}

// SessionConfig controls planner session expiry.
type SessionConfig struct {
	IdleTTL time.Duration `yaml:"idleTTL" validate:"gt=0"`
	// SweepInterval is the period of the background idle sweep.
	SweepInterval time.Duration `yaml:"sweepInterval" validate:"gt=0"`
}

// TelemetryConfig controls OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlpEndpoint" validate:"required_if=Enabled true"`
}

// MapConfig holds tile layer and marker icon settings.
type MapConfig struct {
	TileURL         string `yaml:"tileURL" validate:"required"`
	TileAttribution string `yaml:"tileAttribution"`
	IconURL         string `yaml:"iconURL" validate:"required,url"`
	IconRetinaURL   string `yaml:"iconRetinaURL" validate:"omitempty,url"`
	ShadowURL       string `yaml:"shadowURL" validate:"omitempty,url"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		App: AppConfig{
			Port: "3000",
			Env:  "development",
		},
		RouteBackend: RouteBackendConfig{
			URL:     "http://localhost:8080",
			Timeout: 60 * time.Second,
		},
		Places: PlacesConfig{
			BaseURL:   "http://localhost:8080",
			Timeout:   5 * time.Second,
			CacheSize: 512,
			CacheTTL:  10 * time.Minute,
		},
		Session: SessionConfig{
			IdleTTL:       30 * time.Minute,
			SweepInterval: time.Minute,
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: "localhost:4317",
		},
		Map: MapConfig{
			TileURL:         "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
			TileAttribution: "&copy; OpenStreetMap contributors",
			IconURL:         "https://cdnjs.cloudflare.com/ajax/libs/leaflet/1.9.4/images/marker-icon.png",
			IconRetinaURL:   "https://cdnjs.cloudflare.com/ajax/libs/leaflet/1.9.4/images/marker-icon-2x.png",
			ShadowURL:       "https://cdnjs.cloudflare.com/ajax/libs/leaflet/1.9.4/images/marker-shadow.png",
		},
	}
}

// LookupFunc resolves an environment variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load reads .env (if present) into the process environment, then builds the
// configuration from defaults, the CONFIG_FILE overlay and the environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()
	return FromEnv(os.LookupEnv)
}

// FromEnv builds and validates the configuration using lookup for the environment.
func FromEnv(lookup LookupFunc) (*Config, error) {
	cfg := Default()

	if path, ok := lookup("CONFIG_FILE"); ok && path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup LookupFunc) error {
	env := envReader{lookup: lookup}

	env.str("APP_PORT", &cfg.App.Port)
	env.str("APP_ENV", &cfg.App.Env)
	env.boolean("REQUIRE_TLS", &cfg.App.RequireTLS)

	env.str("ROUTE_BACKEND_URL", &cfg.RouteBackend.URL)
	env.duration("ROUTE_BACKEND_TIMEOUT", &cfg.RouteBackend.Timeout)

	env.str("PLACES_BASE_URL", &cfg.Places.BaseURL)
	env.duration("PLACES_TIMEOUT", &cfg.Places.Timeout)
	env.integer("PLACES_CACHE_SIZE", &cfg.Places.CacheSize)
	env.duration("PLACES_CACHE_TTL", &cfg.Places.CacheTTL)

	env.duration("SESSION_IDLE_TTL", &cfg.Session.IdleTTL)
	env.duration("SESSION_SWEEP_INTERVAL", &cfg.Session.SweepInterval)

	env.str("ADMIN_TOKEN", &cfg.AdminToken)

	env.boolean("OTEL_ENABLED", &cfg.Telemetry.Enabled)
	env.str("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.Telemetry.OTLPEndpoint)

	env.str("MAP_TILE_URL", &cfg.Map.TileURL)
	env.str("MAP_TILE_ATTRIBUTION", &cfg.Map.TileAttribution)
	env.str("MAP_ICON_URL", &cfg.Map.IconURL)
	env.str("MAP_ICON_RETINA_URL", &cfg.Map.IconRetinaURL)
	env.str("MAP_SHADOW_URL", &cfg.Map.ShadowURL)

	return errors.Join(env.errs...)
}

// envReader applies set, non-blank variables and collects parse errors.
type envReader struct {
	lookup LookupFunc
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) boolean(key string, dst *bool) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s: %q", key, v))
		return
	}
	*dst = b
}

func (e *envReader) integer(key string, dst *int) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s: %q", key, v))
		return
	}
	*dst = n
}

func (e *envReader) duration(key string, dst *time.Duration) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s: %q", key, v))
		return
	}
	*dst = d
}
