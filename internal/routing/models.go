// Package routing holds the route candidate model shared by the planner, the
// backend client and the map view.
package routing

import (
	"context"
	"errors"
	"strings"

	"github.com/greenroute/greenroute/pkg/polyline"
)

// Generic messages surfaced to the user when the backend gives no usable answer.
const (
	MessageNoRoutes    = "No routes found or unexpected data format."
	MessageUnreachable = "Error fetching data. Is the backend running?"
)

// Sentinel errors for route lookups.
var (
	// ErrNoRoutes indicates an empty, absent or non-list response.
	ErrNoRoutes = errors.New("no routes found")
	// ErrUnreachable indicates the request failed or the body could not be decoded.
	ErrUnreachable = errors.New("route backend unreachable")
)

// BackendError is a failure reported by the backend inside a well-formed
// response: a single route whose content starts with "Error".
type BackendError struct {
	Message string
}

func (e *BackendError) Error() string {
	return e.Message
}

// UserMessage maps a lookup error to the text shown in place of the route list.
func UserMessage(err error) string {
	var backendErr *BackendError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &backendErr):
		return backendErr.Message
	case errors.Is(err, ErrNoRoutes):
		return MessageNoRoutes
	default:
		return MessageUnreachable
	}
}

// Provider fetches route candidates for a query.
type Provider interface {
	// Routes returns the candidates for q, or an error classified as
	// *BackendError, ErrNoRoutes or ErrUnreachable.
	Routes(ctx context.Context, q Query) ([]Candidate, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// LatLng is a geographic point as sent by the backend.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Candidate is one proposed route returned by the backend.
type Candidate struct {
	RouteNumber          int      `json:"routeNumber"`
	Content              string   `json:"content"`
	Distance             string   `json:"distance"`
	Duration             string   `json:"duration"`
	FuelUsed             string   `json:"fuelUsed"`
	FuelSavingPrediction string   `json:"fuelSavingPrediction"`
	Color                string   `json:"color"`
	Coordinates          []LatLng `json:"coordinates"`
	Waypoints            []LatLng `json:"waypoints,omitempty"`
}

// ColorGreen is the efficiency label of a fuel-efficient route.
const ColorGreen = "green"

// IsGreen reports whether the backend labelled the route efficient.
func (c *Candidate) IsGreen() bool {
	return c.Color == ColorGreen
}

// Origin returns the first point of the path.
func (c *Candidate) Origin() (LatLng, bool) {
	if len(c.Coordinates) == 0 {
		return LatLng{}, false
	}
	return c.Coordinates[0], true
}

// Destination returns the last point of the path.
func (c *Candidate) Destination() (LatLng, bool) {
	if len(c.Coordinates) == 0 {
		return LatLng{}, false
	}
	return c.Coordinates[len(c.Coordinates)-1], true
}

// Path returns the coordinates in polyline form.
func (c *Candidate) Path() []polyline.Coordinate {
	path := make([]polyline.Coordinate, len(c.Coordinates))
	for i, p := range c.Coordinates {
		path[i] = polyline.Coordinate{Lat: p.Lat, Lng: p.Lng}
	}
	return path
}

// Classify applies the response rules to a decoded candidate list.
// A single candidate whose content starts with "Error" is a backend failure,
// an empty list means no routes, anything else is returned as is.
func Classify(candidates []Candidate) ([]Candidate, error) {
	if len(candidates) == 0 {
		return nil, ErrNoRoutes
	}
	if len(candidates) == 1 && strings.HasPrefix(candidates[0].Content, "Error") {
		return nil, &BackendError{Message: candidates[0].Content}
	}
	return candidates, nil
}
