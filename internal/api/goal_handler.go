package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/cadencehq/cadence-api/internal/api/shared"
	"github.com/cadencehq/cadence-api/internal/domain"
	"github.com/cadencehq/cadence-api/internal/domain/schedule"
	"github.com/cadencehq/cadence-api/internal/service"
)

// GoalRequest represents the request body for creating or updating a goal.
// Policy fields are interpreted according to PolicyType; strategy fields
// according to the strategy type values.
type GoalRequest struct {
	PlatformID  string `json:"platform_id" validate:"required,uuid"`
	Description string `json:"description" validate:"required,min=1"`

	PolicyType        string     `json:"policy_type"        validate:"required,oneof=fixed_interval deadline_distribution state_based"`
	IntervalDays      int        `json:"interval_days"`
	Deadline          *time.Time `json:"deadline_date"`
	TotalOccurrences  int        `json:"total_occurrences"`
	FreezeOnMiss      bool       `json:"freeze_on_miss"`
	CheckIntervalDays int        `json:"check_interval_days"`

	StartDate time.Time  `json:"start_date" validate:"required"`
	EndDate   *time.Time `json:"end_date"`

	AccountIDs []string `json:"account_ids" validate:"omitempty,dive,uuid"`

	Distribution string `json:"task_distribution_strategy" validate:"omitempty,oneof=all round_robin"`
	Catchup      string `json:"catchup_strategy"           validate:"omitempty,oneof=all latest"`

	ExecutionType    string            `json:"execution_strategy_type" validate:"omitempty,oneof=manual script"`
	ExecutionScript  string            `json:"execution_script_content"`
	ExecutionEnvVars map[string]string `json:"execution_script_env_vars"`

	CheckType    string            `json:"check_strategy_type" validate:"omitempty,oneof=manual script"`
	CheckScript  string            `json:"check_script_content"`
	CheckEnvVars map[string]string `json:"check_script_env_vars"`
}

// GoalResponse represents the response data for a goal
type GoalResponse struct {
	ID           string          `json:"id"`
	PlatformID   string          `json:"platform_id"`
	Description  string          `json:"description"`
	Policy       schedule.Policy `json:"policy"`
	StartDate    time.Time       `json:"start_date"`
	EndDate      *time.Time      `json:"end_date,omitempty"`
	AccountIDs   []string        `json:"account_ids"`
	Distribution string          `json:"task_distribution_strategy"`
	Catchup      string          `json:"catchup_strategy"`
	Execution    domain.Strategy `json:"execution_strategy"`
	Check        domain.Strategy `json:"check_strategy"`
	Status       string          `json:"status"`
	Schedule     string          `json:"schedule"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// GenerateResponse reports the outcome of a generation cycle
type GenerateResponse struct {
	TasksCreated int `json:"tasks_created"`
}

// GoalHandler handles goal-related HTTP requests
type GoalHandler struct {
	goalService       service.GoalService
	generationService service.GenerationService
	validator         *validator.Validate
	logger            *slog.Logger
}

// NewGoalHandler creates a new GoalHandler
func NewGoalHandler(
	goalService service.GoalService,
	generationService service.GenerationService,
	logger *slog.Logger,
) *GoalHandler {
	return &GoalHandler{
		goalService:       goalService,
		generationService: generationService,
		validator:         validator.New(),
		logger:            logger.With("component", "goal_handler"),
	}
}

// CreateGoal handles POST /api/goals requests
func (h *GoalHandler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeGoalInput(w, r)
	if !ok {
		return
	}

	goal, err := h.goalService.CreateGoal(r.Context(), input)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, goalToResponse(goal))
}

// GetGoal handles GET /api/goals/{id} requests
func (h *GoalHandler) GetGoal(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	goal, err := h.goalService.GetGoal(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, goalToResponse(goal))
}

// ListGoals handles GET /api/goals requests
func (h *GoalHandler) ListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.goalService.ListGoals(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	responses := make([]GoalResponse, 0, len(goals))
	for _, g := range goals {
		responses = append(responses, goalToResponse(g))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}

// UpdateGoal handles PUT /api/goals/{id} requests
func (h *GoalHandler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	input, ok := h.decodeGoalInput(w, r)
	if !ok {
		return
	}

	goal, err := h.goalService.UpdateGoal(r.Context(), id, input)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, goalToResponse(goal))
}

// DeleteGoal handles DELETE /api/goals/{id} requests
func (h *GoalHandler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	if err := h.goalService.DeleteGoal(r.Context(), id); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GenerateDueTasks handles POST /api/goals/generate requests, the on-demand
// trigger for one generation cycle.
func (h *GoalHandler) GenerateDueTasks(w http.ResponseWriter, r *http.Request) {
	created, err := h.generationService.GenerateDueTasks(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, GenerateResponse{TasksCreated: created})
}

// decodeGoalInput parses and validates a goal request body into a service
// input. On failure it writes a 400 response and returns ok=false.
func (h *GoalHandler) decodeGoalInput(
	w http.ResponseWriter,
	r *http.Request,
) (service.GoalInput, bool) {
	var req GoalRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return service.GoalInput{}, false
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return service.GoalInput{}, false
	}

	platformID, err := uuid.Parse(req.PlatformID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid platform ID format")
		return service.GoalInput{}, false
	}

	accountIDs := make([]uuid.UUID, 0, len(req.AccountIDs))
	for _, raw := range req.AccountIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid account ID format")
			return service.GoalInput{}, false
		}
		accountIDs = append(accountIDs, id)
	}

	return service.GoalInput{
		PlatformID:        platformID,
		Description:       req.Description,
		PolicyType:        schedule.PolicyType(req.PolicyType),
		IntervalDays:      req.IntervalDays,
		Deadline:          req.Deadline,
		TotalOccurrences:  req.TotalOccurrences,
		FreezeOnMiss:      req.FreezeOnMiss,
		CheckIntervalDays: req.CheckIntervalDays,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		AccountIDs:        accountIDs,
		Distribution:      domain.DistributionStrategy(req.Distribution),
		Catchup:           domain.CatchupStrategy(req.Catchup),
		ExecutionType:     domain.StrategyType(req.ExecutionType),
		ExecutionScript:   req.ExecutionScript,
		ExecutionEnvVars:  req.ExecutionEnvVars,
		CheckType:         domain.StrategyType(req.CheckType),
		CheckScript:       req.CheckScript,
		CheckEnvVars:      req.CheckEnvVars,
	}, true
}

// goalToResponse converts a domain.Goal to a GoalResponse. Script contents
// are echoed back so the UI can edit them in place.
func goalToResponse(goal *domain.Goal) GoalResponse {
	accountIDs := make([]string, 0, len(goal.AccountIDs))
	for _, id := range goal.AccountIDs {
		accountIDs = append(accountIDs, id.String())
	}

	return GoalResponse{
		ID:           goal.ID.String(),
		PlatformID:   goal.PlatformID.String(),
		Description:  goal.Description,
		Policy:       goal.Policy,
		StartDate:    goal.StartDate,
		EndDate:      goal.EndDate,
		AccountIDs:   accountIDs,
		Distribution: string(goal.Distribution),
		Catchup:      string(goal.Catchup),
		Execution:    goal.Execution,
		Check:        goal.Check,
		Status:       string(goal.Status),
		Schedule:     goal.ContextString(),
		CreatedAt:    goal.CreatedAt,
		UpdatedAt:    goal.UpdatedAt,
	}
}
