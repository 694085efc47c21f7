// Package mapview turns a route list and the selected route into a map scene:
// the paths, markers and viewport a mapping widget needs to draw them.
package mapview

import (
	"github.com/greenroute/greenroute/internal/routing"
	"github.com/greenroute/greenroute/pkg/polyline"
)

// Placeholder is shown instead of a map while there are no routes.
const Placeholder = "Map will appear here after fetching a route"

// DefaultZoom is the initial zoom level of the map.
const DefaultZoom = 10

// Path colors.
const (
	ColorGrey  = "grey"
	ColorGreen = "green"
	ColorRed   = "red"
)

// Path styling.
const (
	WeightDefault  = 3
	WeightSelected = 5
	PathOpacity    = 0.7
)

// MarkerKind identifies what a marker stands for.
type MarkerKind string

// Marker kinds.
const (
	MarkerOrigin      MarkerKind = "origin"
	MarkerDestination MarkerKind = "destination"
	MarkerStop        MarkerKind = "stop"
)

// Scene is everything needed to draw the map for one state of the planner.
type Scene struct {
	// Placeholder is set, and everything else empty, when there are no routes.
	Placeholder string           `json:"placeholder,omitempty"`
	Center      *routing.LatLng  `json:"center,omitempty"`
	Zoom        int              `json:"zoom,omitempty"`
	Bounds      *polyline.Bounds `json:"bounds,omitempty"`
	Paths       []Path           `json:"paths"`
	Markers     []Marker         `json:"markers"`
	Tiles       *TileLayer       `json:"tiles,omitempty"`
	Icons       *Icons           `json:"icons,omitempty"`
}

// HasMap reports whether the scene draws a map rather than the placeholder.
func (s *Scene) HasMap() bool {
	return s.Placeholder == ""
}

// Path is one route drawn as a line.
type Path struct {
	RouteNumber  int              `json:"routeNumber"`
	Selected     bool             `json:"selected"`
	Color        string           `json:"color"`
	Weight       int              `json:"weight"`
	Opacity      float64          `json:"opacity"`
	Coordinates  []routing.LatLng `json:"coordinates"`
	Encoded      string           `json:"encoded"`
	LengthMeters float64          `json:"lengthMeters"`
}

// Marker is a labelled point of the selected route.
type Marker struct {
	Kind     MarkerKind     `json:"kind"`
	Label    string         `json:"label"`
	Position routing.LatLng `json:"position"`
}
