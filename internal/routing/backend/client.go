// Package backend is the client for the route-planning backend's GET /route
// endpoint.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/greenroute/greenroute/internal/provider/resilience"
	"github.com/greenroute/greenroute/internal/routing"
	"github.com/greenroute/greenroute/internal/telemetry"
)

const (
	// ProviderName identifies the backend in logs, metrics and the health registry.
	ProviderName = "route-backend"

	// DefaultBaseURL is where the backend listens in local development.
	DefaultBaseURL = "http://localhost:8080"

	// DefaultTimeout bounds a hung backend. Route planning includes an AI
	// call per candidate, so this is generous.
	DefaultTimeout = 60 * time.Second

	maxBodyBytes = 8 << 20
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the backend client.
type ClientConfig struct {
	// BaseURL of the backend, without the /route path.
	BaseURL string

	// HTTPClient overrides the default resilient client (tests).
	HTTPClient HTTPDoer

	// Timeout for the default client.
	Timeout time.Duration

	// Registry receives the health of the default client (optional).
	Registry *resilience.Registry

	// Metrics records request durations (optional).
	Metrics *telemetry.ProviderMetrics

	Logger zerolog.Logger
}

// Client fetches route candidates from the backend.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	metrics    *telemetry.ProviderMetrics
	tracer     trace.Tracer
	logger     zerolog.Logger
}

// NewClient creates a backend client. The default HTTP client never retries
// and its breaker never opens: a search issues exactly one request.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		clientCfg.MaxRetries = 0
		clientCfg.CircuitBreaker.ReadyToTrip = resilience.NeverTrip
		clientCfg.Registry = cfg.Registry
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		metrics:    cfg.Metrics,
		tracer:     telemetry.Tracer("routing/backend"),
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Routes issues GET /route for q and classifies the answer.
func (c *Client) Routes(ctx context.Context, q routing.Query) ([]routing.Candidate, error) {
	ctx, span := c.tracer.Start(ctx, "backend.Routes",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Int("route.stops", len(q.Stops))),
	)
	defer span.End()

	start := time.Now()
	candidates, err := c.routes(ctx, q)
	c.metrics.RecordRequest(ProviderName, "route", time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("route.candidates", len(candidates)))
	return candidates, nil
}

func (c *Client) routes(ctx context.Context, q routing.Query) ([]routing.Candidate, error) {
	endpoint := c.baseURL + "/route?" + q.Values().Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %w", routing.ErrUnreachable, err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("origin", q.Origin).
		Str("destination", q.Destination).
		Str("waypoints", q.Waypoints()).
		Msg("requesting routes from backend")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", routing.ErrUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %w", routing.ErrUnreachable, err)
	}

	if resp.StatusCode >= 300 {
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Msg("route backend returned non-success status")
	}

	candidates, err := Decode(body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int("route_count", len(candidates)).
		Msg("received routes from backend")

	return candidates, nil
}

// Decode parses a GET /route body. Invalid JSON is ErrUnreachable; valid
// JSON that is not a list of route objects is ErrNoRoutes; the list itself is
// then run through routing.Classify.
func Decode(body []byte) ([]routing.Candidate, error) {
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: response is not valid JSON", routing.ErrUnreachable)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("%w: response is not a list", routing.ErrNoRoutes)
	}

	candidates := make([]routing.Candidate, 0, len(items))
	for i, item := range items {
		var c routing.Candidate
		if err := json.Unmarshal(item, &c); err != nil {
			return nil, fmt.Errorf("%w: element %d: %w", routing.ErrNoRoutes, i, err)
		}
		candidates = append(candidates, c)
	}

	return routing.Classify(candidates)
}
