package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/greenroute/greenroute/internal/api/middleware"
	"github.com/greenroute/greenroute/internal/api/models"
	"github.com/greenroute/greenroute/internal/api/response"
	"github.com/greenroute/greenroute/internal/mapview"
	"github.com/greenroute/greenroute/internal/planner"
)

// StopIndexParam is the URL parameter carrying a stop index.
const StopIndexParam = "index"

// SessionHandler handles planner session endpoints.
type SessionHandler struct {
	service *planner.Service
	logger  zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(service *planner.Service, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{service: service, logger: logger}
}

// CreateSession handles POST /v1/sessions - mount a new planner.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Create(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Created(w, r, "/v1/sessions/"+snap.ID, toAPISession(snap))
}

// GetSession handles GET /v1/sessions/{sessionID}.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Get(r.Context(), middleware.SessionID(r))
	h.writeSnapshot(w, r, snap, err)
}

// DeleteSession handles DELETE /v1/sessions/{sessionID} - unmount a planner.
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), middleware.SessionID(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	response.NoContent(w, r)
}

// UpdateOrigin handles PUT /v1/sessions/{sessionID}/origin.
func (h *SessionHandler) UpdateOrigin(w http.ResponseWriter, r *http.Request) {
	h.updateText(w, r, h.service.UpdateOrigin)
}

// UpdateDestination handles PUT /v1/sessions/{sessionID}/destination.
func (h *SessionHandler) UpdateDestination(w http.ResponseWriter, r *http.Request) {
	h.updateText(w, r, h.service.UpdateDestination)
}

// SwapOriginDestination handles POST /v1/sessions/{sessionID}/swap.
func (h *SessionHandler) SwapOriginDestination(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.SwapOriginDestination(r.Context(), middleware.SessionID(r))
	h.writeSnapshot(w, r, snap, err)
}

// AddStop handles POST /v1/sessions/{sessionID}/stops.
func (h *SessionHandler) AddStop(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.AddStop(r.Context(), middleware.SessionID(r))
	h.writeSnapshot(w, r, snap, err)
}

// UpdateStop handles PUT /v1/sessions/{sessionID}/stops/{index}.
func (h *SessionHandler) UpdateStop(w http.ResponseWriter, r *http.Request) {
	index, ok := stopIndex(w, r)
	if !ok {
		return
	}
	h.updateText(w, r, func(ctx context.Context, id, text string) (*planner.Snapshot, error) {
		return h.service.UpdateStop(ctx, id, index, text)
	})
}

// RemoveStop handles DELETE /v1/sessions/{sessionID}/stops/{index}.
func (h *SessionHandler) RemoveStop(w http.ResponseWriter, r *http.Request) {
	index, ok := stopIndex(w, r)
	if !ok {
		return
	}
	snap, err := h.service.RemoveStop(r.Context(), middleware.SessionID(r), index)
	h.writeSnapshot(w, r, snap, err)
}

// Search handles POST /v1/sessions/{sessionID}/search - submit the form.
// Lookup failures are reported in the session's error field with a 200.
func (h *SessionHandler) Search(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Search(r.Context(), middleware.SessionID(r))
	h.writeSnapshot(w, r, snap, err)
}

// SelectRoute handles PUT /v1/sessions/{sessionID}/selection with either
// {"routeNumber":n} or {"index":i}.
func (h *SessionHandler) SelectRoute(w http.ResponseWriter, r *http.Request) {
	var input models.SelectionRequest
	if !h.decode(w, r, &input) {
		return
	}

	var (
		snap *planner.Snapshot
		err  error
	)
	if input.Index != nil {
		snap, err = h.service.SelectRouteAt(r.Context(), middleware.SessionID(r), *input.Index)
	} else {
		snap, err = h.service.SelectRoute(r.Context(), middleware.SessionID(r), *input.RouteNumber)
	}
	h.writeSnapshot(w, r, snap, err)
}

// GetMap handles GET /v1/sessions/{sessionID}/map - the map scene.
func (h *SessionHandler) GetMap(w http.ResponseWriter, r *http.Request) {
	scene, err := h.service.Map(r.Context(), middleware.SessionID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, scene)
}

// GetMapGeoJSON handles GET /v1/sessions/{sessionID}/map.geojson.
func (h *SessionHandler) GetMapGeoJSON(w http.ResponseWriter, r *http.Request) {
	scene, err := h.service.Map(r.Context(), middleware.SessionID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.GeoJSON(w, r, mapview.GeoJSON(*scene))
}

func (h *SessionHandler) updateText(
	w http.ResponseWriter,
	r *http.Request,
	update func(ctx context.Context, id, text string) (*planner.Snapshot, error),
) {
	var input models.TextUpdateRequest
	if !h.decode(w, r, &input) {
		return
	}

	snap, err := update(r.Context(), middleware.SessionID(r), *input.Value)
	h.writeSnapshot(w, r, snap, err)
}

// decode reads a validated body, answering 400 itself when it cannot.
func (h *SessionHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	fieldErrors, err := decodeJSON(r, dst)
	switch {
	case errors.Is(err, errInvalidJSON):
		response.BadRequest(w, r, "invalid JSON body", nil)
		return false
	case err != nil:
		h.writeError(w, r, err)
		return false
	case len(fieldErrors) > 0:
		response.BadRequest(w, r, "request validation failed", fieldErrors)
		return false
	}
	return true
}

func (h *SessionHandler) writeSnapshot(w http.ResponseWriter, r *http.Request, snap *planner.Snapshot, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toAPISession(snap))
}

func (h *SessionHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, planner.ErrSessionNotFound):
		response.NotFound(w, r, "session not found")
	case errors.Is(err, planner.ErrStopIndexOutOfRange):
		response.NotFound(w, r, "stop not found")
	case errors.Is(err, planner.ErrRouteNotFound):
		response.NotFound(w, r, "route not found")
	default:
		h.logger.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Msg("session request failed")
		response.InternalError(w, r, "an unexpected error occurred")
	}
}

func stopIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, StopIndexParam))
	if err != nil {
		response.BadRequest(w, r, "stop index must be an integer", []models.FieldError{
			{Field: StopIndexParam, Message: "must be an integer", Code: "integer"},
		})
		return 0, false
	}
	return index, true
}

func toAPISession(snap *planner.Snapshot) models.Session {
	session := models.Session{
		ID: snap.ID,
		Form: models.Form{
			Origin:      snap.Origin,
			Destination: snap.Destination,
			Stops:       snap.Stops,
		},
		Loading: snap.Loading,
		Error:   snap.Error,
		Routes:  make([]models.RouteSummary, 0, len(snap.Routes)),
	}

	for _, item := range snap.Routes {
		session.Routes = append(session.Routes, models.RouteSummary{
			RouteNumber:          item.RouteNumber,
			Content:              item.Content,
			Distance:             item.Distance,
			Duration:             item.Duration,
			FuelUsed:             item.FuelUsed,
			Color:                item.Color,
			FuelSavingPrediction: item.Prediction,
			Selected:             item.Selected,
		})
	}

	if d := snap.Selected; d != nil {
		session.SelectedRoute = &models.RouteDetails{
			RouteNumber:          d.RouteNumber,
			Content:              d.Content,
			Distance:             d.Distance,
			Duration:             d.Duration,
			FuelUsed:             d.FuelUsed,
			FuelSavingPrediction: d.Prediction,
			Efficiency:           d.ColorLabel,
		}
	}
	return session
}
