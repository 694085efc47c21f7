package mapview

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/greenroute/greenroute/internal/routing"
)

// GeoJSON converts a scene into a FeatureCollection: one LineString per path
// followed by one Point per marker. Styling uses simplestyle property names.
// A placeholder scene yields an empty collection.
func GeoJSON(scene Scene) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, p := range scene.Paths {
		line := make(orb.LineString, len(p.Coordinates))
		for i, c := range p.Coordinates {
			line[i] = point(c)
		}

		f := geojson.NewFeature(line)
		f.Properties["routeNumber"] = p.RouteNumber
		f.Properties["selected"] = p.Selected
		f.Properties["stroke"] = p.Color
		f.Properties["stroke-width"] = p.Weight
		f.Properties["stroke-opacity"] = p.Opacity
		f.Properties["lengthMeters"] = p.LengthMeters
		fc.Append(f)
	}

	for _, m := range scene.Markers {
		f := geojson.NewFeature(point(m.Position))
		f.Properties["kind"] = string(m.Kind)
		f.Properties["title"] = m.Label
		fc.Append(f)
	}

	if scene.Bounds != nil {
		fc.BBox = geojson.NewBBox(orb.Bound{
			Min: orb.Point{scene.Bounds.West, scene.Bounds.South},
			Max: orb.Point{scene.Bounds.East, scene.Bounds.North},
		})
	}
	return fc
}

// GeoJSON orders positions longitude first.
func point(p routing.LatLng) orb.Point {
	return orb.Point{p.Lng, p.Lat}
}
