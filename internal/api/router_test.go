package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenroute/greenroute/internal/api"
	"github.com/greenroute/greenroute/internal/api/models"
	"github.com/greenroute/greenroute/internal/featureflags"
	"github.com/greenroute/greenroute/internal/mapview"
	"github.com/greenroute/greenroute/internal/places"
	"github.com/greenroute/greenroute/internal/planner"
	"github.com/greenroute/greenroute/internal/routing"
)

const testAdminToken = "test-admin-token"

type stubProvider struct {
	routes []routing.Candidate
	err    error
	last   routing.Query
}

func (p *stubProvider) Routes(_ context.Context, q routing.Query) ([]routing.Candidate, error) {
	p.last = q
	return p.routes, p.err
}

func (p *stubProvider) Name() string { return "stub" }

type stubPlaces struct {
	suggestions []places.Suggestion
	err         error
}

func (p *stubPlaces) Autocomplete(_ context.Context, _ string) ([]places.Suggestion, error) {
	return p.suggestions, p.err
}

func testRoutes() []routing.Candidate {
	return []routing.Candidate{
		{
			RouteNumber:          1,
			Content:              "Via A10",
			Distance:             "42 km",
			Duration:             "35 min",
			FuelUsed:             "2.9 L",
			FuelSavingPrediction: strings.Repeat("x", 300),
			Color:                "green",
			Coordinates:          []routing.LatLng{{Lat: 52.37, Lng: 4.89}, {Lat: 52.09, Lng: 5.12}},
			Waypoints:            []routing.LatLng{{Lat: 52.2, Lng: 5.0}},
		},
		{
			RouteNumber: 2,
			Content:     "Via N201",
			Color:       "red",
			Coordinates: []routing.LatLng{{Lat: 52.37, Lng: 4.89}, {Lat: 52.3, Lng: 4.9}, {Lat: 52.09, Lng: 5.12}},
		},
	}
}

type testEnv struct {
	router   http.Handler
	provider *stubProvider
	places   *stubPlaces
	flags    *featureflags.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zerolog.Nop()
	provider := &stubProvider{routes: testRoutes()}
	placesClient := &stubPlaces{}
	flags := featureflags.NewService(featureflags.ServiceConfig{
		Repository: featureflags.NewInMemoryRepository(nil),
		Logger:     logger,
	})

	plannerService := planner.NewService(planner.ServiceConfig{
		Provider: provider,
		Renderer: mapview.NewRenderer(mapview.Config{
			Tiles: mapview.TileLayer{URL: "https://tiles.test/{z}/{x}/{y}.png"},
			Icons: mapview.Icons{IconURL: "https://icons.test/marker.png"},
		}),
		Flags:  flags,
		Logger: logger,
	})

	router := api.NewRouter(api.RouterConfig{
		Version:            "test",
		BuildTime:          "2024-01-01T00:00:00Z",
		Logger:             logger,
		Planner:            plannerService,
		Places:             placesClient,
		FeatureFlagService: flags,
		AdminToken:         testAdminToken,
	})

	return &testEnv{router: router, provider: provider, places: placesClient, flags: flags}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.HasPrefix(path, "/v1/admin") {
		req.Header.Set("Authorization", "Bearer "+testAdminToken)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) createSession(t *testing.T) models.Session {
	t.Helper()
	w := e.do(t, http.MethodPost, "/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	return decode[models.Session](t, w)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func value(s string) map[string]string {
	return map[string]string{"value": s}
}

func TestRouter_HealthCheck(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/ops/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	health := decode[models.Health](t, w)
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "test", health.Details["version"])
}

func TestRouter_ReadinessCheck(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/ops/ready", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.HealthStatusOK, decode[models.Health](t, w).Status)
}

func TestRouter_SystemStatus_NoProviders(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/ops/status", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	status := decode[models.SystemStatus](t, w)
	assert.Equal(t, models.HealthStatusOK, status.Status)
	assert.Empty(t, status.Providers)
}

func TestRouter_CreateSession(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/sessions", nil)

	require.Equal(t, http.StatusCreated, w.Code)
	session := decode[models.Session](t, w)
	assert.Equal(t, "/v1/sessions/"+session.ID, w.Header().Get("Location"))
	assert.Equal(t, []string{""}, session.Form.Stops)
	assert.Empty(t, session.Routes)
	assert.Nil(t, session.SelectedRoute)
	assert.False(t, session.Loading)
}

func TestRouter_SessionNotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/sessions/ses_missing", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	problem := decode[models.Problem](t, w)
	assert.Equal(t, models.ProblemTypeNotFound, problem.Type)
}

func TestRouter_DeleteSession(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t)

	w := env.do(t, http.MethodDelete, "/v1/sessions/"+session.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/v1/sessions/"+session.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_FormOperations(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t)
	base := "/v1/sessions/" + session.ID

	w := env.do(t, http.MethodPut, base+"/origin", value("Amsterdam"))
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodPut, base+"/destination", value("Utrecht"))
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, base+"/stops", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"", ""}, decode[models.Session](t, w).Form.Stops)

	w = env.do(t, http.MethodPut, base+"/stops/1", value("Hilversum"))
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodDelete, base+"/stops/0", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, base+"/swap", nil)
	require.Equal(t, http.StatusOK, w.Code)

	form := decode[models.Session](t, w).Form
	assert.Equal(t, "Utrecht", form.Origin)
	assert.Equal(t, "Amsterdam", form.Destination)
	assert.Equal(t, []string{"Hilversum"}, form.Stops)
}

func TestRouter_UpdateField_AllowsEmptyValue(t *testing.T) {
	env := newTestEnv(t)
	base := "/v1/sessions/" + env.createSession(t).ID

	env.do(t, http.MethodPut, base+"/origin", value("Amsterdam"))
	w := env.do(t, http.MethodPut, base+"/origin", value(""))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[models.Session](t, w).Form.Origin)
}

func TestRouter_UpdateField_AcceptsLongValues(t *testing.T) {
	env := newTestEnv(t)
	base := "/v1/sessions/" + env.createSession(t).ID
	long := strings.Repeat("Amsterdam ", 200)

	w := env.do(t, http.MethodPut, base+"/origin", value(long))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, long, decode[models.Session](t, w).Form.Origin)

	w = env.do(t, http.MethodPut, base+"/destination", value(long))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, long, decode[models.Session](t, w).Form.Destination)

	w = env.do(t, http.MethodPut, base+"/stops/0", value(long))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{long}, decode[models.Session](t, w).Form.Stops)
}

func TestRouter_UpdateField_Validation(t *testing.T) {
	env := newTestEnv(t)
	base := "/v1/sessions/" + env.createSession(t).ID

	tests := []struct {
		name string
		body string
	}{
		{name: "missing value", body: `{}`},
		{name: "unknown field", body: `{"value":"a","extra":1}`},
		{name: "malformed", body: `{"value":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, base+"/origin", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			env.router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, models.ProblemTypeValidation, decode[models.Problem](t, w).Type)
		})
	}
}

func TestRouter_StopIndexErrors(t *testing.T) {
	env := newTestEnv(t)
	base := "/v1/sessions/" + env.createSession(t).ID

	w := env.do(t, http.MethodPut, base+"/stops/abc", value("x"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPut, base+"/stops/5", value("x"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, base+"/stops/5", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_SearchAndSelect(t *testing.T) {
	env := newTestEnv(t)
	base := "/v1/sessions/" + env.createSession(t).ID

	env.do(t, http.MethodPut, base+"/origin", value("Amsterdam"))
	env.do(t, http.MethodPut, base+"/destination", value("Utrecht"))
	env.do(t, http.MethodPut, base+"/stops/0", value("Hilversum"))

	w := env.do(t, http.MethodPost, base+"/search", nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "Amsterdam", env.provider.last.Origin)
	assert.Equal(t, "Utrecht", env.provider.last.Destination)
	assert.Equal(t, []string{"Hilversum"}, env.provider.last.Stops)

	session := decode[models.Session](t, w)
	assert.False(t, session.Loading)
	assert.Empty(t, session.Error)
	require.Len(t, session.Routes, 2)
	assert.True(t, session.Routes[0].Selected)
	assert.Equal(t, strings.Repeat("x", 250)+"...", session.Routes[0].FuelSavingPrediction)
	require.NotNil(t, session.SelectedRoute)
	assert.Equal(t, 1, session.SelectedRoute.RouteNumber)
	assert.Equal(t, "GREEN", session.SelectedRoute.Efficiency)
	assert.Len(t, session.SelectedRoute.FuelSavingPrediction, 300)

	w = env.do(t, http.MethodPut, base+"/selection", map[string]int{"routeNumber": 2})
	require.Equal(t, http.StatusOK, w.Code)
	session = decode[models.Session](t, w)
	require.NotNil(t, session.SelectedRoute)
	assert.Equal(t, 2, session.SelectedRoute.RouteNumber)
	assert.Equal(t, "RED", session.SelectedRoute.Efficiency)

	w = env.do(t, http.MethodPut, base+"/selection", map[string]int{"routeNumber": 9})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_SelectByIndex(t *testing.T) {
	env := newTestEnv(t)
	env.provider.routes = []routing.Candidate{
		{RouteNumber: 1, Content: "Via A10", Color: "green"},
		{RouteNumber: 1, Content: "Via A2", Color: "red"},
	}
	base := "/v1/sessions/" + env.createSession(t).ID
	env.do(t, http.MethodPost, base+"/search", nil)

	w := env.do(t, http.MethodPut, base+"/selection", map[string]int{"index": 1})
	require.Equal(t, http.StatusOK, w.Code)
	session := decode[models.Session](t, w)
	assert.False(t, session.Routes[0].Selected)
	assert.True(t, session.Routes[1].Selected)
	require.NotNil(t, session.SelectedRoute)
	assert.Equal(t, "Via A2", session.SelectedRoute.Content)

	w = env.do(t, http.MethodPut, base+"/selection", map[string]int{"index": 5})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPut, base+"/selection", map[string]int{"index": 0, "routeNumber": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPut, base+"/selection", map[string]int{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_SearchFailureIsReportedInSession(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "backend error", err: &routing.BackendError{Message: "Error: no path"}, want: "Error: no path"},
		{name: "no routes", err: routing.ErrNoRoutes, want: routing.MessageNoRoutes},
		{name: "unreachable", err: errors.Join(routing.ErrUnreachable, errors.New("dial tcp")), want: routing.MessageUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.provider.routes = nil
			env.provider.err = tt.err
			base := "/v1/sessions/" + env.createSession(t).ID

			w := env.do(t, http.MethodPost, base+"/search", nil)

			require.Equal(t, http.StatusOK, w.Code)
			session := decode[models.Session](t, w)
			assert.Equal(t, tt.want, session.Error)
			assert.Empty(t, session.Routes)
			assert.False(t, session.Loading)
		})
	}
}

func TestRouter_Map(t *testing.T) {
	env := newTestEnv(t)
	base := "/v1/sessions/" + env.createSession(t).ID

	w := env.do(t, http.MethodGet, base+"/map", nil)
	require.Equal(t, http.StatusOK, w.Code)
	empty := decode[mapview.Scene](t, w)
	assert.Equal(t, mapview.Placeholder, empty.Placeholder)
	assert.Nil(t, empty.Tiles)

	env.do(t, http.MethodPost, base+"/search", nil)

	w = env.do(t, http.MethodGet, base+"/map", nil)
	require.Equal(t, http.StatusOK, w.Code)
	scene := decode[mapview.Scene](t, w)
	assert.Empty(t, scene.Placeholder)
	assert.Len(t, scene.Paths, 2)
	assert.Len(t, scene.Markers, 3)
	require.NotNil(t, scene.Tiles)
	assert.Equal(t, "https://tiles.test/{z}/{x}/{y}.png", scene.Tiles.URL)
}

func TestRouter_MapGeoJSON(t *testing.T) {
	env := newTestEnv(t)
	base := "/v1/sessions/" + env.createSession(t).ID
	env.do(t, http.MethodPost, base+"/search", nil)

	w := env.do(t, http.MethodGet, base+"/map.geojson", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/geo+json", w.Header().Get("Content-Type"))

	var fc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.Len(t, fc.Features, 5)
}

func TestRouter_PlacesAutocomplete(t *testing.T) {
	env := newTestEnv(t)
	lat, lng := 52.37, 4.89
	env.places.suggestions = []places.Suggestion{
		{Description: "Amsterdam Centraal", PlaceID: "p1", Lat: &lat, Lng: &lng},
	}

	w := env.do(t, http.MethodGet, "/v1/places/autocomplete?input=amst", nil)

	require.Equal(t, http.StatusOK, w.Code)
	result := decode[models.PlaceSuggestions](t, w)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "p1", result.Items[0].PlaceID)
}

func TestRouter_PlacesAutocomplete_UpstreamFailure(t *testing.T) {
	env := newTestEnv(t)
	env.places.err = places.ErrUpstream

	w := env.do(t, http.MethodGet, "/v1/places/autocomplete?input=amst", nil)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestRouter_PlacesAutocomplete_Disabled(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.flags.SetFlags(context.Background(), []*featureflags.Flag{
		{Key: featureflags.FlagAutocompleteEnabled, Value: false},
	}))

	w := env.do(t, http.MethodGet, "/v1/places/autocomplete?input=amst", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_Admin_RequiresToken(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/feature-flags", http.NoBody)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_Admin_FeatureFlags(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/admin/feature-flags", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[models.FeatureFlagList](t, w)
	assert.Len(t, list.Items, len(featureflags.DefaultFlags()))

	w = env.do(t, http.MethodPut, "/v1/admin/feature-flags", map[string]interface{}{
		"flags": []map[string]interface{}{
			{"key": featureflags.FlagPredictionTruncateLength, "value": 10},
		},
	})
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 10, env.flags.PredictionTruncateLength(context.Background()))

	// The new length applies to the next presentation of the list.
	base := "/v1/sessions/" + env.createSession(t).ID
	w = env.do(t, http.MethodPost, base+"/search", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, strings.Repeat("x", 10)+"...", decode[models.Session](t, w).Routes[0].FuelSavingPrediction)

	w = env.do(t, http.MethodPost, "/v1/admin/feature-flags/invalidate", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRouter_Admin_RejectsInvalidFlags(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name  string
		flags []map[string]interface{}
	}{
		{name: "unknown key", flags: []map[string]interface{}{{"key": "nope", "value": true}}},
		{name: "wrong type", flags: []map[string]interface{}{{"key": featureflags.FlagCancelSupersededSearches, "value": "yes"}}},
		{name: "empty", flags: []map[string]interface{}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPut, "/v1/admin/feature-flags", map[string]interface{}{"flags": tt.flags})
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestRouter_NotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/nonexistent", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_RejectsNonJSONBody(t *testing.T) {
	env := newTestEnv(t)
	base := "/v1/sessions/" + env.createSession(t).ID

	req := httptest.NewRequest(http.MethodPut, base+"/origin", strings.NewReader("value=Amsterdam"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}
