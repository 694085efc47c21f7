package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenroute/greenroute/internal/config"
)

func lookupFrom(env map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := config.FromEnv(lookupFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.App.Port)
	assert.Equal(t, "http://localhost:8080", cfg.RouteBackend.URL)
	assert.Equal(t, 60*time.Second, cfg.RouteBackend.Timeout)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTTL)
	assert.Equal(t, time.Minute, cfg.Session.SweepInterval)
	assert.Contains(t, cfg.Map.TileURL, "tile.openstreetmap.org")
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := config.FromEnv(lookupFrom(map[string]string{
		"APP_PORT":              "9090",
		"APP_ENV":               "production",
		"ROUTE_BACKEND_URL":     "https://routes.example.com",
		"ROUTE_BACKEND_TIMEOUT": "15s",
		"PLACES_CACHE_SIZE":     "64",
		"SESSION_IDLE_TTL":      "5m",
		"ADMIN_TOKEN":           "secret",
		"OTEL_ENABLED":          "true",
		"REQUIRE_TLS":           "1",
		"MAP_ICON_URL":          "https://cdn.example.com/marker.png",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, "production", cfg.App.Env)
	assert.True(t, cfg.App.RequireTLS)
	assert.Equal(t, "https://routes.example.com", cfg.RouteBackend.URL)
	assert.Equal(t, 15*time.Second, cfg.RouteBackend.Timeout)
	assert.Equal(t, 64, cfg.Places.CacheSize)
	assert.Equal(t, 5*time.Minute, cfg.Session.IdleTTL)
	assert.Equal(t, "secret", cfg.AdminToken)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "https://cdn.example.com/marker.png", cfg.Map.IconURL)
}

func TestFromEnv_BlankValuesKeepDefaults(t *testing.T) {
	cfg, err := config.FromEnv(lookupFrom(map[string]string{"APP_PORT": "  "}))
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.App.Port)
}

func TestFromEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "bad duration", env: map[string]string{"ROUTE_BACKEND_TIMEOUT": "soon"}},
		{name: "bad bool", env: map[string]string{"OTEL_ENABLED": "maybe"}},
		{name: "bad int", env: map[string]string{"PLACES_CACHE_SIZE": "lots"}},
		{name: "bad url", env: map[string]string{"ROUTE_BACKEND_URL": "not a url"}},
		{name: "bad env", env: map[string]string{"APP_ENV": "moon"}},
		{name: "zero cache", env: map[string]string{"PLACES_CACHE_SIZE": "0"}},
		{name: "non numeric port", env: map[string]string{"APP_PORT": "http"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.FromEnv(lookupFrom(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestFromEnv_FileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	content := `
app:
  port: "4000"
routeBackend:
  url: https://file.example.com
  timeout: 20s
session:
  idleTTL: 10m
featureFlags:
  cancel_superseded_searches: true
  prediction_truncate_length: 120
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.FromEnv(lookupFrom(map[string]string{
		"CONFIG_FILE":       path,
		"ROUTE_BACKEND_URL": "https://env.example.com",
	}))
	require.NoError(t, err)

	assert.Equal(t, "4000", cfg.App.Port)
	// Environment wins over the file.
	assert.Equal(t, "https://env.example.com", cfg.RouteBackend.URL)
	assert.Equal(t, 20*time.Second, cfg.RouteBackend.Timeout)
	assert.Equal(t, 10*time.Minute, cfg.Session.IdleTTL)
	assert.Equal(t, true, cfg.FeatureFlags["cancel_superseded_searches"])
	assert.Equal(t, 120, cfg.FeatureFlags["prediction_truncate_length"])
	// Untouched defaults survive the overlay.
	assert.Equal(t, 512, cfg.Places.CacheSize)
}

func TestFromEnv_MissingFile(t *testing.T) {
	_, err := config.FromEnv(lookupFrom(map[string]string{
		"CONFIG_FILE": filepath.Join(t.TempDir(), "missing.yml"),
	}))
	assert.Error(t, err)
}
