package job

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence-api/internal/events"
)

// JobFactory creates jobs from script run parameters.
type JobFactory interface {
	CreateJob(taskID uuid.UUID, mode ScriptRunMode) (Job, error)
}

// JobSubmitter accepts jobs for background processing.
type JobSubmitter interface {
	Submit(ctx context.Context, job Job) error
}

// JobFactoryEventHandler implements the events.EventHandler interface
// to handle job request events and delegate them to the appropriate factory.
type JobFactoryEventHandler struct {
	jobFactory JobFactory
	jobRunner  JobSubmitter
	logger     *slog.Logger
}

// NewJobFactoryEventHandler creates a new event handler that uses the given
// factory to create jobs, and submits them to the provided job runner.
func NewJobFactoryEventHandler(
	jobFactory JobFactory,
	jobRunner JobSubmitter,
	logger *slog.Logger,
) *JobFactoryEventHandler {
	return &JobFactoryEventHandler{
		jobFactory: jobFactory,
		jobRunner:  jobRunner,
		logger:     logger.With("component", "job_factory_event_handler"),
	}
}

// HandleEvent processes events by creating and submitting jobs.
// It extracts the payload from the event, creates the appropriate job,
// and submits it to the runner for execution.
func (h *JobFactoryEventHandler) HandleEvent(
	ctx context.Context,
	event *events.JobRequestEvent,
) error {
	// Only handle script run events for now
	if event.Type != JobTypeScriptRun {
		h.logger.Debug(
			"ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID,
		)
		return nil
	}

	// Extract the task ID and run mode from the event payload
	var payload struct {
		TaskID string `json:"task_id"`
		Mode   string `json:"mode"`
	}

	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.Error("failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	// Parse the task ID
	taskID, err := uuid.Parse(payload.TaskID)
	if err != nil {
		h.logger.Error(
			"invalid task ID",
			"error", err,
			"task_id", payload.TaskID,
			"event_id", event.ID,
		)
		return fmt.Errorf("invalid task ID: %w", err)
	}

	// Create the job
	h.logger.Debug("creating job for task", "task_id", taskID, "event_id", event.ID)
	j, err := h.jobFactory.CreateJob(taskID, ScriptRunMode(payload.Mode))
	if err != nil {
		h.logger.Error(
			"failed to create job",
			"error", err,
			"task_id", taskID,
			"event_id", event.ID,
		)
		return fmt.Errorf("failed to create job: %w", err)
	}

	// Submit the job to the runner
	h.logger.Debug(
		"submitting job to runner",
		"job_id", j.ID(),
		"task_id", taskID,
		"event_id", event.ID,
	)
	if err := h.jobRunner.Submit(ctx, j); err != nil {
		h.logger.Error(
			"failed to submit job",
			"error", err,
			"job_id", j.ID(),
			"task_id", taskID,
			"event_id", event.ID,
		)
		return fmt.Errorf("failed to submit job: %w", err)
	}

	h.logger.Info(
		"job created and submitted successfully",
		"job_id", j.ID(),
		"task_id", taskID,
		"event_id", event.ID,
	)
	return nil
}

// Ensure JobFactoryEventHandler implements events.EventHandler
var _ events.EventHandler = (*JobFactoryEventHandler)(nil)
