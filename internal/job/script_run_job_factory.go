package job

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Rehydrator reconstructs an executable job from its persisted form.
// Job stores use it to turn recovered database rows back into jobs the
// runner can execute.
type Rehydrator interface {
	// RehydrateJob rebuilds a job from its persisted identifier, type,
	// payload and status. Returns an error if the job type is unknown or
	// the payload cannot be decoded.
	RehydrateJob(id uuid.UUID, jobType string, payload []byte, status JobStatus) (Job, error)
}

// ScriptRunJobFactory creates ScriptRunJob instances
type ScriptRunJobFactory struct {
	executor ScriptExecutor
	logger   *slog.Logger
}

// NewScriptRunJobFactory creates a new factory for ScriptRunJobs
func NewScriptRunJobFactory(
	executor ScriptExecutor,
	logger *slog.Logger,
) *ScriptRunJobFactory {
	return &ScriptRunJobFactory{
		executor: executor,
		logger:   logger.With("component", "script_run_job_factory"),
	}
}

// CreateJob creates a new ScriptRunJob for the specified task and mode
func (f *ScriptRunJobFactory) CreateJob(taskID uuid.UUID, mode ScriptRunMode) (Job, error) {
	j, err := NewScriptRunJob(
		taskID,
		mode,
		f.executor,
		f.logger,
	)
	if err != nil {
		return nil, err
	}
	return j, nil
}

// RehydrateJob rebuilds a ScriptRunJob from its persisted form so that
// recovered jobs can be executed after a restart.
func (f *ScriptRunJobFactory) RehydrateJob(
	id uuid.UUID,
	jobType string,
	payload []byte,
	status JobStatus,
) (Job, error) {
	if jobType != JobTypeScriptRun {
		return nil, fmt.Errorf("unknown job type %q", jobType)
	}

	var p scriptRunPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to decode script run payload: %w", err)
	}

	j, err := NewScriptRunJob(p.TaskID, p.Mode, f.executor, f.logger)
	if err != nil {
		return nil, err
	}
	j.id = id
	j.status = status
	return j, nil
}

// Ensure ScriptRunJobFactory implements Rehydrator
var _ Rehydrator = (*ScriptRunJobFactory)(nil)
