package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence-api/internal/api/shared"
	"github.com/cadencehq/cadence-api/internal/domain"
	"github.com/cadencehq/cadence-api/internal/service"
)

// CompleteTaskRequest represents the request body for completing a task.
// CompleteParentGoal defaults to true when omitted: a manually completed
// state-based goal is considered achieved unless the caller says otherwise.
type CompleteTaskRequest struct {
	Notes              string `json:"notes"`
	CompleteParentGoal *bool  `json:"complete_parent_goal"`
}

// TransitionTaskRequest represents the request body for failing or
// skipping a task.
type TransitionTaskRequest struct {
	Notes string `json:"notes"`
}

// TaskResponse represents the response data for a task
type TaskResponse struct {
	ID        string    `json:"id"`
	GoalID    string    `json:"goal_id"`
	AccountID *string   `json:"account_id,omitempty"`
	DueDate   time.Time `json:"due_date"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TaskLogResponse represents one transition history entry for a task
type TaskLogResponse struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	Timestamp  time.Time `json:"timestamp"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	Notes      string    `json:"notes,omitempty"`
}

// TaskWithLogsResponse bundles a task with its full transition history
type TaskWithLogsResponse struct {
	Task TaskResponse      `json:"task"`
	Logs []TaskLogResponse `json:"logs"`
}

// ScriptAcceptedResponse acknowledges that a script run has been queued
type ScriptAcceptedResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	taskService   service.TaskService
	scriptService service.ScriptService
	logger        *slog.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(
	taskService service.TaskService,
	scriptService service.ScriptService,
	logger *slog.Logger,
) *TaskHandler {
	return &TaskHandler{
		taskService:   taskService,
		scriptService: scriptService,
		logger:        logger.With("component", "task_handler"),
	}
}

// ListTasks handles GET /api/tasks requests
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.taskService.ListTasks(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	responses := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		responses = append(responses, taskToResponse(t))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}

// GetTask handles GET /api/tasks/{id} requests
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// StartTask handles POST /api/tasks/{id}/start requests
func (h *TaskHandler) StartTask(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	task, err := h.taskService.StartTask(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// CompleteTask handles POST /api/tasks/{id}/complete requests
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var req CompleteTaskRequest
	if r.ContentLength > 0 {
		if err := shared.DecodeJSON(r, &req); err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
			return
		}
	}

	completeParentGoal := true
	if req.CompleteParentGoal != nil {
		completeParentGoal = *req.CompleteParentGoal
	}

	task, err := h.taskService.CompleteTask(r.Context(), id, req.Notes, completeParentGoal)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// FailTask handles POST /api/tasks/{id}/fail requests
func (h *TaskHandler) FailTask(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.taskService.FailTask)
}

// SkipTask handles POST /api/tasks/{id}/skip requests
func (h *TaskHandler) SkipTask(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.taskService.SkipTask)
}

// transition parses the shared id-plus-notes shape of the fail and skip
// endpoints and applies the given service call.
func (h *TaskHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, id uuid.UUID, notes string) (*domain.Task, error),
) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var req TransitionTaskRequest
	if r.ContentLength > 0 {
		if err := shared.DecodeJSON(r, &req); err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
			return
		}
	}

	task, err := apply(r.Context(), id, req.Notes)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// ExecuteTask handles POST /api/tasks/{id}/execute requests. The script
// runs on a background worker; the response only acknowledges the request.
func (h *TaskHandler) ExecuteTask(w http.ResponseWriter, r *http.Request) {
	h.enqueueScript(w, r, h.scriptService.EnqueueExecutionScript)
}

// CheckTask handles POST /api/tasks/{id}/check requests. The script runs
// on a background worker; the response only acknowledges the request.
func (h *TaskHandler) CheckTask(w http.ResponseWriter, r *http.Request) {
	h.enqueueScript(w, r, h.scriptService.EnqueueCheckScript)
}

func (h *TaskHandler) enqueueScript(
	w http.ResponseWriter,
	r *http.Request,
	enqueue func(ctx context.Context, taskID uuid.UUID) error,
) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	if err := enqueue(r.Context(), id); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, ScriptAcceptedResponse{
		TaskID: id.String(),
		Status: "queued",
	})
}

// ListTaskLogs handles GET /api/tasks/{id}/logs requests
func (h *TaskHandler) ListTaskLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	task, logs, err := h.taskService.ListTaskLogs(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	logResponses := make([]TaskLogResponse, 0, len(logs))
	for _, entry := range logs {
		logResponses = append(logResponses, TaskLogResponse{
			ID:         entry.ID.String(),
			TaskID:     entry.TaskID.String(),
			Timestamp:  entry.Timestamp,
			FromStatus: string(entry.FromStatus),
			ToStatus:   string(entry.ToStatus),
			Notes:      entry.Notes,
		})
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskWithLogsResponse{
		Task: taskToResponse(task),
		Logs: logResponses,
	})
}

// taskToResponse converts a domain.Task to a TaskResponse
func taskToResponse(task *domain.Task) TaskResponse {
	var accountID *string
	if task.AccountID != nil {
		id := task.AccountID.String()
		accountID = &id
	}

	return TaskResponse{
		ID:        task.ID.String(),
		GoalID:    task.GoalID.String(),
		AccountID: accountID,
		DueDate:   task.DueDate,
		Status:    string(task.Status),
		CreatedAt: task.CreatedAt,
		UpdatedAt: task.UpdatedAt,
	}
}
