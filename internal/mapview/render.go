package mapview

import (
	"strconv"

	"github.com/greenroute/greenroute/internal/routing"
	"github.com/greenroute/greenroute/pkg/polyline"
)

// TileLayer is the raster tile source drawn under the paths.
type TileLayer struct {
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
}

// Icons is the marker icon set. Widgets use it instead of their built-in
// default icons.
type Icons struct {
	IconURL       string `json:"iconUrl"`
	IconRetinaURL string `json:"iconRetinaUrl,omitempty"`
	ShadowURL     string `json:"shadowUrl,omitempty"`
}

// Config holds the presentation settings attached to every scene.
type Config struct {
	Tiles TileLayer
	Icons Icons
}

// Renderer renders scenes with a fixed tile layer and icon set.
type Renderer struct {
	cfg Config
}

// NewRenderer creates a renderer.
func NewRenderer(cfg Config) *Renderer {
	return &Renderer{cfg: cfg}
}

// Render renders the scene and attaches the tile layer and icons when a map is shown.
func (r *Renderer) Render(routes []routing.Candidate, selected *routing.Candidate) Scene {
	scene := Render(routes, selected)
	if scene.HasMap() {
		tiles := r.cfg.Tiles
		icons := r.cfg.Icons
		scene.Tiles = &tiles
		scene.Icons = &icons
	}
	return scene
}

// Render computes the scene for routes with selected highlighted. selected may
// be nil; it is matched against routes by route number. The result depends
// only on the arguments.
func Render(routes []routing.Candidate, selected *routing.Candidate) Scene {
	if len(routes) == 0 {
		return Scene{Placeholder: Placeholder, Paths: []Path{}, Markers: []Marker{}}
	}

	scene := Scene{
		Zoom:    DefaultZoom,
		Paths:   make([]Path, 0, len(routes)),
		Markers: []Marker{},
	}

	centerRoute := &routes[0]
	if selected != nil {
		centerRoute = selected
	}
	if origin, ok := centerRoute.Origin(); ok {
		scene.Center = &origin
	}

	var (
		bounds    polyline.Bounds
		hasBounds bool
	)
	for i := range routes {
		route := &routes[i]
		path := newPath(route, selected)
		scene.Paths = append(scene.Paths, path)

		for _, c := range route.Path() {
			if !hasBounds {
				bounds = polyline.Bounds{South: c.Lat, North: c.Lat, West: c.Lng, East: c.Lng}
				hasBounds = true
				continue
			}
			bounds = bounds.Extend(c)
		}
	}
	if hasBounds {
		scene.Bounds = &bounds
	}

	if selected != nil {
		scene.Markers = markers(selected)
	}
	return scene
}

func newPath(route, selected *routing.Candidate) Path {
	coords := route.Path()
	path := Path{
		RouteNumber:  route.RouteNumber,
		Color:        ColorGrey,
		Weight:       WeightDefault,
		Opacity:      PathOpacity,
		Coordinates:  append([]routing.LatLng{}, route.Coordinates...),
		Encoded:      polyline.Encode(coords),
		LengthMeters: polyline.Length(coords),
	}

	if selected != nil && selected.RouteNumber == route.RouteNumber {
		path.Selected = true
		path.Weight = WeightSelected
		path.Color = ColorRed
		if route.IsGreen() {
			path.Color = ColorGreen
		}
	}
	return path
}

// markers places origin and destination at the ends of the selected path,
// followed by one marker per waypoint. A route without coordinates only gets
// its waypoint markers.
func markers(selected *routing.Candidate) []Marker {
	result := make([]Marker, 0, len(selected.Waypoints)+2)

	if origin, ok := selected.Origin(); ok {
		result = append(result, Marker{Kind: MarkerOrigin, Label: "Origin", Position: origin})
	}
	if destination, ok := selected.Destination(); ok {
		result = append(result, Marker{Kind: MarkerDestination, Label: "Destination", Position: destination})
	}
	for i, wp := range selected.Waypoints {
		result = append(result, Marker{
			Kind:     MarkerStop,
			Label:    "Stop " + strconv.Itoa(i+1),
			Position: wp,
		})
	}
	return result
}
