package mapview_test

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenroute/greenroute/internal/mapview"
)

func TestGeoJSON_FeatureCount(t *testing.T) {
	routes := sampleRoutes()
	scene := mapview.Render(routes, &routes[0])

	fc := mapview.GeoJSON(scene)
	assert.Len(t, fc.Features, len(scene.Paths)+len(scene.Markers))
}

func TestGeoJSON_LongitudeFirst(t *testing.T) {
	routes := sampleRoutes()
	fc := mapview.GeoJSON(mapview.Render(routes, &routes[0]))

	line, ok := fc.Features[0].Geometry.(orb.LineString)
	require.True(t, ok)
	assert.Equal(t, orb.Point{4.89, 52.37}, line[0])
	assert.Equal(t, "green", fc.Features[0].Properties["stroke"])
	assert.Equal(t, 5, fc.Features[0].Properties["stroke-width"])

	marker, ok := fc.Features[2].Geometry.(orb.Point)
	require.True(t, ok)
	assert.Equal(t, orb.Point{4.89, 52.37}, marker)
	assert.Equal(t, "Origin", fc.Features[2].Properties["title"])

	require.Len(t, fc.BBox, 4)
	assert.Equal(t, 4.60, fc.BBox[0])
	assert.Equal(t, 52.09, fc.BBox[1])
}

func TestGeoJSON_Placeholder(t *testing.T) {
	fc := mapview.GeoJSON(mapview.Render(nil, nil))
	assert.Empty(t, fc.Features)

	data, err := json.Marshal(fc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"FeatureCollection"`)
}
