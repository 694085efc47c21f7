package handler

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/greenroute/greenroute/internal/api/models"
	"github.com/greenroute/greenroute/internal/api/response"
	"github.com/greenroute/greenroute/internal/places"
)

// Autocompleter returns place suggestions for partial input.
type Autocompleter interface {
	Autocomplete(ctx context.Context, input string) ([]places.Suggestion, error)
}

// AutocompleteSwitch reports whether suggestions are served.
type AutocompleteSwitch interface {
	AutocompleteEnabled(ctx context.Context) bool
}

// PlacesHandler handles place autocomplete.
type PlacesHandler struct {
	places Autocompleter
	flags  AutocompleteSwitch
	logger zerolog.Logger
}

// NewPlacesHandler creates a new PlacesHandler.
func NewPlacesHandler(client Autocompleter, flags AutocompleteSwitch, logger zerolog.Logger) *PlacesHandler {
	return &PlacesHandler{places: client, flags: flags, logger: logger}
}

// Autocomplete handles GET /v1/places/autocomplete?input=.
func (h *PlacesHandler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	if h.places == nil || (h.flags != nil && !h.flags.AutocompleteEnabled(r.Context())) {
		response.ServiceUnavailable(w, r, "place suggestions are disabled")
		return
	}

	suggestions, err := h.places.Autocomplete(r.Context(), r.URL.Query().Get("input"))
	if err != nil {
		h.logger.Warn().Err(err).Msg("place autocomplete failed")
		response.BadGateway(w, r, "place suggestions are unavailable")
		return
	}

	result := models.PlaceSuggestions{Items: make([]models.PlaceSuggestion, 0, len(suggestions))}
	for _, s := range suggestions {
		result.Items = append(result.Items, models.PlaceSuggestion{
			Description: s.Description,
			PlaceID:     s.PlaceID,
			Lat:         s.Lat,
			Lng:         s.Lng,
		})
	}
	response.JSON(w, r, http.StatusOK, result)
}
