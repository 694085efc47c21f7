package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/greenroute/greenroute/internal/api/models"
	"github.com/greenroute/greenroute/internal/api/response"
	"github.com/greenroute/greenroute/internal/featureflags"
)

// FeatureFlagsHandler handles feature flag endpoints.
type FeatureFlagsHandler struct {
	service *featureflags.Service
	logger  zerolog.Logger
}

// NewFeatureFlagsHandler creates a new FeatureFlagsHandler.
func NewFeatureFlagsHandler(service *featureflags.Service, logger zerolog.Logger) *FeatureFlagsHandler {
	return &FeatureFlagsHandler{service: service, logger: logger}
}

// ListFeatureFlags handles GET /v1/admin/feature-flags - list all feature flags.
func (h *FeatureFlagsHandler) ListFeatureFlags(w http.ResponseWriter, r *http.Request) {
	flags := h.service.ListFlags(r.Context())

	result := models.FeatureFlagList{Items: make([]models.FeatureFlag, 0, len(flags))}
	for _, f := range flags {
		result.Items = append(result.Items, models.FeatureFlag{
			Key:       f.Key,
			Value:     f.Value,
			UpdatedAt: models.Timestamp(f.UpdatedAt),
		})
	}
	response.JSON(w, r, http.StatusOK, result)
}

// UpsertFeatureFlags handles PUT /v1/admin/feature-flags - update feature flags.
func (h *FeatureFlagsHandler) UpsertFeatureFlags(w http.ResponseWriter, r *http.Request) {
	var input models.FeatureFlagUpdateRequest
	fieldErrors, err := decodeJSON(r, &input)
	if err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "request validation failed", fieldErrors)
		return
	}

	flags := make([]*featureflags.Flag, 0, len(input.Flags))
	for _, update := range input.Flags {
		if err := featureflags.Validate(update.Key, update.Value); err != nil {
			code := "invalid_value"
			if errors.Is(err, featureflags.ErrUnknownFlag) {
				code = "unknown_flag"
			}
			fieldErrors = append(fieldErrors, models.FieldError{Field: update.Key, Message: err.Error(), Code: code})
			continue
		}
		flags = append(flags, &featureflags.Flag{Key: update.Key, Value: update.Value})
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid feature flag update", fieldErrors)
		return
	}

	if err := h.service.SetFlags(r.Context(), flags); err != nil {
		h.logger.Error().Err(err).Msg("failed to update feature flags")
		response.InternalError(w, r, "failed to update feature flags")
		return
	}

	h.logger.Info().Int("count", len(flags)).Msg("feature flags updated")
	response.NoContent(w, r)
}

// InvalidateCache handles POST /v1/admin/feature-flags/invalidate - invalidate flag cache.
func (h *FeatureFlagsHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.service.InvalidateCache()
	response.NoContent(w, r)
}
