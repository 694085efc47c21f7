// Package places is the client for the place autocomplete endpoint used to
// suggest origin, destination and stop entries.
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bluele/gcache"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/greenroute/greenroute/internal/provider/resilience"
	"github.com/greenroute/greenroute/internal/telemetry"
)

const (
	// ProviderName identifies the source in logs, metrics and the health registry.
	ProviderName = "places"

	// MinInputLength is the shortest trimmed input that is looked up.
	MinInputLength = 2

	DefaultBaseURL   = "http://localhost:8080"
	DefaultTimeout   = 5 * time.Second
	DefaultCacheSize = 512
	DefaultCacheTTL  = 10 * time.Minute

	maxBodyBytes = 1 << 20
)

// ErrUpstream is returned when the autocomplete source answers with a non-2xx status.
var ErrUpstream = errors.New("places autocomplete failed")

// Suggestion is one autocomplete result.
type Suggestion struct {
	Description string   `json:"description"`
	PlaceID     string   `json:"placeId"`
	Lat         *float64 `json:"lat,omitempty"`
	Lng         *float64 `json:"lng,omitempty"`
}

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the places client.
type ClientConfig struct {
	BaseURL    string
	HTTPClient HTTPDoer
	Timeout    time.Duration
	CacheSize  int
	CacheTTL   time.Duration
	Registry   *resilience.Registry
	Metrics    *telemetry.ProviderMetrics
	Logger     zerolog.Logger
}

// Client fetches place suggestions with an LRU cache in front.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	cache      gcache.Cache
	metrics    *telemetry.ProviderMetrics
	tracer     trace.Tracer
	logger     zerolog.Logger
}

// NewClient creates a places client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	cacheSize := cfg.CacheSize
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		clientCfg.Registry = cfg.Registry
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		cache:      gcache.New(cacheSize).LRU().Expiration(cacheTTL).Build(),
		metrics:    cfg.Metrics,
		tracer:     telemetry.Tracer("places"),
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Autocomplete returns suggestions for input. Inputs shorter than
// MinInputLength after trimming return an empty list without a request.
func (c *Client) Autocomplete(ctx context.Context, input string) ([]Suggestion, error) {
	trimmed := strings.TrimSpace(input)
	if utf8.RuneCountInString(trimmed) < MinInputLength {
		return []Suggestion{}, nil
	}

	key := strings.ToLower(trimmed)
	if cached, err := c.cache.Get(key); err == nil {
		if suggestions, ok := cached.([]Suggestion); ok {
			c.metrics.RecordCacheHit(ProviderName, "autocomplete")
			return suggestions, nil
		}
	}
	c.metrics.RecordCacheMiss(ProviderName, "autocomplete")

	ctx, span := c.tracer.Start(ctx, "places.Autocomplete",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Int("places.input_length", len(trimmed))),
	)
	defer span.End()

	start := time.Now()
	suggestions, err := c.fetch(ctx, trimmed)
	c.metrics.RecordRequest(ProviderName, "autocomplete", time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("places.suggestions", len(suggestions)))
	if err := c.cache.Set(key, suggestions); err != nil {
		c.logger.Warn().Err(err).Msg("failed to cache place suggestions")
	}
	return suggestions, nil
}

func (c *Client) fetch(ctx context.Context, input string) ([]Suggestion, error) {
	endpoint := c.baseURL + "/api/places/autocomplete?input=" + url.QueryEscape(input)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("places autocomplete returned error status")
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var suggestions []Suggestion
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&suggestions); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if suggestions == nil {
		suggestions = []Suggestion{}
	}

	c.logger.Debug().
		Int("suggestion_count", len(suggestions)).
		Msg("received place suggestions")

	return suggestions, nil
}
