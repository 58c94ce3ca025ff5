// Package api provides HTTP handlers for the REST surface: platforms,
// accounts, goals, tasks and the dashboard.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/cadencehq/cadence-api/internal/api/shared"
	"github.com/cadencehq/cadence-api/internal/domain"
	"github.com/cadencehq/cadence-api/internal/service"
)

// PlatformRequest represents the request body for creating or updating a platform
type PlatformRequest struct {
	Name   string         `json:"name" validate:"required,min=1"`
	Config map[string]any `json:"config"`
}

// PlatformResponse represents the response data for a platform
type PlatformResponse struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Config    map[string]any `json:"config,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// PlatformHandler handles platform-related HTTP requests
type PlatformHandler struct {
	platformService service.PlatformService
	validator       *validator.Validate
	logger          *slog.Logger
}

// NewPlatformHandler creates a new PlatformHandler
func NewPlatformHandler(platformService service.PlatformService, logger *slog.Logger) *PlatformHandler {
	return &PlatformHandler{
		platformService: platformService,
		validator:       validator.New(),
		logger:          logger.With("component", "platform_handler"),
	}
}

// CreatePlatform handles POST /api/platforms requests
func (h *PlatformHandler) CreatePlatform(w http.ResponseWriter, r *http.Request) {
	var req PlatformRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	platform, err := h.platformService.CreatePlatform(r.Context(), req.Name, req.Config)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, platformToResponse(platform))
}

// GetPlatform handles GET /api/platforms/{id} requests
func (h *PlatformHandler) GetPlatform(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	platform, err := h.platformService.GetPlatform(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, platformToResponse(platform))
}

// ListPlatforms handles GET /api/platforms requests
func (h *PlatformHandler) ListPlatforms(w http.ResponseWriter, r *http.Request) {
	platforms, err := h.platformService.ListPlatforms(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	responses := make([]PlatformResponse, 0, len(platforms))
	for _, p := range platforms {
		responses = append(responses, platformToResponse(p))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}

// UpdatePlatform handles PUT /api/platforms/{id} requests
func (h *PlatformHandler) UpdatePlatform(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var req PlatformRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	platform, err := h.platformService.UpdatePlatform(r.Context(), id, req.Name, req.Config)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, platformToResponse(platform))
}

// DeletePlatform handles DELETE /api/platforms/{id} requests
func (h *PlatformHandler) DeletePlatform(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	if err := h.platformService.DeletePlatform(r.Context(), id); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// platformToResponse converts a domain.Platform to a PlatformResponse
func platformToResponse(platform *domain.Platform) PlatformResponse {
	return PlatformResponse{
		ID:        platform.ID.String(),
		Name:      platform.Name,
		Config:    platform.Config,
		CreatedAt: platform.CreatedAt,
		UpdatedAt: platform.UpdatedAt,
	}
}

// parseIDParam extracts and parses the {id} route parameter. On failure it
// writes a 400 response and returns ok=false.
func parseIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid ID format")
		return uuid.Nil, false
	}
	return id, true
}
