package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// ScriptRunMode selects which of a goal's scripts the job runs.
type ScriptRunMode string

// Possible script run modes
const (
	// ScriptRunModeExecution runs the goal's execution script and applies
	// the start/fail transition based on the script outcome.
	ScriptRunModeExecution ScriptRunMode = "execution"

	// ScriptRunModeCheck runs the goal's check script and applies the
	// complete/fail transition based on the script output keywords.
	ScriptRunModeCheck ScriptRunMode = "check"
)

// Common errors
var (
	ErrNilScriptExecutor = errors.New("script executor cannot be nil")
	ErrNilLogger         = errors.New("logger cannot be nil")
	ErrEmptyTaskID       = errors.New("task ID cannot be empty")
	ErrInvalidRunMode    = errors.New("invalid script run mode")
)

// ScriptExecutor defines the interface for the service operations a script
// run job delegates to. The service owns script execution, output
// interpretation, and the resulting task transitions; the job only carries
// the work onto a background worker.
type ScriptExecutor interface {
	// RunExecutionScript runs the execution script for the given task and
	// transitions the task to In Progress or Failed based on the outcome.
	RunExecutionScript(ctx context.Context, taskID uuid.UUID) error

	// RunCheckScript runs the check script for the given task and
	// transitions the task to Completed or Failed based on the output.
	RunCheckScript(ctx context.Context, taskID uuid.UUID) error
}

// scriptRunPayload represents the serialized data stored in the job
type scriptRunPayload struct {
	TaskID uuid.UUID     `json:"task_id"`
	Mode   ScriptRunMode `json:"mode"`
}

// ScriptRunJob implements the Job interface for running a task's execution
// or check script on a background worker.
type ScriptRunJob struct {
	id       uuid.UUID
	taskID   uuid.UUID
	mode     ScriptRunMode
	executor ScriptExecutor
	logger   *slog.Logger
	status   JobStatus
}

// NewScriptRunJob creates a new script run job
func NewScriptRunJob(
	taskID uuid.UUID,
	mode ScriptRunMode,
	executor ScriptExecutor,
	logger *slog.Logger,
) (*ScriptRunJob, error) {
	// Validate dependencies
	if executor == nil {
		return nil, ErrNilScriptExecutor
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	// Validate job parameters
	if taskID == uuid.Nil {
		return nil, ErrEmptyTaskID
	}
	if mode != ScriptRunModeExecution && mode != ScriptRunModeCheck {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRunMode, mode)
	}

	return &ScriptRunJob{
		id:       uuid.New(),
		taskID:   taskID,
		mode:     mode,
		executor: executor,
		logger:   logger.With("job_type", JobTypeScriptRun, "task_id", taskID, "mode", mode),
		status:   JobStatusPending,
	}, nil
}

// ID returns the job's unique identifier
func (j *ScriptRunJob) ID() uuid.UUID {
	return j.id
}

// Type returns the job type identifier
func (j *ScriptRunJob) Type() string {
	return JobTypeScriptRun
}

// Payload returns the job data as a byte slice
func (j *ScriptRunJob) Payload() []byte {
	payload := scriptRunPayload{
		TaskID: j.taskID,
		Mode:   j.mode,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		// If marshal fails, return an empty payload with error logged
		j.logger.Error("failed to marshal job payload", "error", err)
		return []byte{}
	}

	return data
}

// Status returns the current job status
func (j *ScriptRunJob) Status() JobStatus {
	return j.status
}

// Execute runs the task's script through the script executor. Script
// failures are not job failures: the executor records them as task
// transitions and logs, so the job only fails when the executor itself
// cannot do its work (task missing, store errors, and so on).
func (j *ScriptRunJob) Execute(ctx context.Context) error {
	j.status = JobStatusProcessing
	j.logger.Info("starting script run job")

	// Check for context cancellation
	if err := ctx.Err(); err != nil {
		j.status = JobStatusFailed
		j.logger.Error("job cancelled by context", "error", err)
		return fmt.Errorf("job cancelled by context: %w", err)
	}

	var err error
	switch j.mode {
	case ScriptRunModeExecution:
		err = j.executor.RunExecutionScript(ctx, j.taskID)
	case ScriptRunModeCheck:
		err = j.executor.RunCheckScript(ctx, j.taskID)
	default:
		err = fmt.Errorf("%w: %q", ErrInvalidRunMode, j.mode)
	}

	if err != nil {
		j.status = JobStatusFailed
		j.logger.Error("script run failed", "error", err)
		return fmt.Errorf("script run failed: %w", err)
	}

	j.status = JobStatusCompleted
	j.logger.Info("script run job completed successfully")
	return nil
}
