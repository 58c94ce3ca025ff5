package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/cadencehq/cadence-api/internal/api/shared"
	"github.com/cadencehq/cadence-api/internal/domain"
	"github.com/cadencehq/cadence-api/internal/service"
)

// CreateAccountRequest represents the request body for creating a new account
type CreateAccountRequest struct {
	PlatformID string `json:"platform_id" validate:"required,uuid"`
	Username   string `json:"username" validate:"required,min=1"`
	Notes      string `json:"notes"`
}

// AccountResponse represents the response data for an account
type AccountResponse struct {
	ID         string    `json:"id"`
	PlatformID string    `json:"platform_id"`
	Username   string    `json:"username"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AccountHandler handles account-related HTTP requests, including the
// dashboard summary
type AccountHandler struct {
	accountService service.AccountService
	validator      *validator.Validate
	logger         *slog.Logger
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accountService service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		validator:      validator.New(),
		logger:         logger.With("component", "account_handler"),
	}
}

// CreateAccount handles POST /api/accounts requests
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	platformID, err := uuid.Parse(req.PlatformID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid platform ID format")
		return
	}

	account, err := h.accountService.CreateAccount(r.Context(), platformID, req.Username, req.Notes)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, accountToResponse(account))
}

// GetAccount handles GET /api/accounts/{id} requests
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	account, err := h.accountService.GetAccount(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, accountToResponse(account))
}

// ListAccountsByPlatform handles GET /api/platforms/{id}/accounts requests
func (h *AccountHandler) ListAccountsByPlatform(w http.ResponseWriter, r *http.Request) {
	platformID, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	accounts, err := h.accountService.ListAccountsByPlatform(r.Context(), platformID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	responses := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		responses = append(responses, accountToResponse(a))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}

// DeleteAccount handles DELETE /api/accounts/{id} requests
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	if err := h.accountService.DeleteAccount(r.Context(), id); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetDashboard handles GET /api/dashboard requests. The response is the
// per-account task status aggregation computed by the store layer.
func (h *AccountHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.accountService.GetDashboardSummary(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, summary)
}

// accountToResponse converts a domain.Account to an AccountResponse
func accountToResponse(account *domain.Account) AccountResponse {
	return AccountResponse{
		ID:         account.ID.String(),
		PlatformID: account.PlatformID.String(),
		Username:   account.Username,
		Notes:      account.Notes,
		CreatedAt:  account.CreatedAt,
		UpdatedAt:  account.UpdatedAt,
	}
}
