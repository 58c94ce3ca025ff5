package job

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScriptRunJobValidation(t *testing.T) {
	t.Parallel()

	executor := &mockExecutor{}
	logger := discardLogger()
	taskID := uuid.New()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()

		j, err := NewScriptRunJob(taskID, ScriptRunModeExecution, executor, logger)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, j.ID())
		assert.Equal(t, JobTypeScriptRun, j.Type())
		assert.Equal(t, JobStatusPending, j.Status())
	})

	t.Run("nil executor", func(t *testing.T) {
		t.Parallel()

		_, err := NewScriptRunJob(taskID, ScriptRunModeExecution, nil, logger)
		assert.ErrorIs(t, err, ErrNilScriptExecutor)
	})

	t.Run("nil logger", func(t *testing.T) {
		t.Parallel()

		_, err := NewScriptRunJob(taskID, ScriptRunModeExecution, executor, nil)
		assert.ErrorIs(t, err, ErrNilLogger)
	})

	t.Run("empty task ID", func(t *testing.T) {
		t.Parallel()

		_, err := NewScriptRunJob(uuid.Nil, ScriptRunModeExecution, executor, logger)
		assert.ErrorIs(t, err, ErrEmptyTaskID)
	})

	t.Run("invalid mode", func(t *testing.T) {
		t.Parallel()

		_, err := NewScriptRunJob(taskID, "interpret", executor, logger)
		assert.ErrorIs(t, err, ErrInvalidRunMode)
	})
}

func TestScriptRunJobPayload(t *testing.T) {
	t.Parallel()

	taskID := uuid.New()
	j, err := NewScriptRunJob(taskID, ScriptRunModeCheck, &mockExecutor{}, discardLogger())
	require.NoError(t, err)

	var payload struct {
		TaskID uuid.UUID `json:"task_id"`
		Mode   string    `json:"mode"`
	}
	require.NoError(t, json.Unmarshal(j.Payload(), &payload))
	assert.Equal(t, taskID, payload.TaskID)
	assert.Equal(t, string(ScriptRunModeCheck), payload.Mode)
}

func TestScriptRunJobExecute(t *testing.T) {
	t.Parallel()

	taskID := uuid.New()

	t.Run("execution mode delegates to executor", func(t *testing.T) {
		t.Parallel()

		executor := &mockExecutor{}
		j, err := NewScriptRunJob(taskID, ScriptRunModeExecution, executor, discardLogger())
		require.NoError(t, err)

		require.NoError(t, j.Execute(context.Background()))
		assert.Equal(t, []uuid.UUID{taskID}, executor.executionIDs)
		assert.Empty(t, executor.checkIDs)
		assert.Equal(t, JobStatusCompleted, j.Status())
	})

	t.Run("check mode delegates to executor", func(t *testing.T) {
		t.Parallel()

		executor := &mockExecutor{}
		j, err := NewScriptRunJob(taskID, ScriptRunModeCheck, executor, discardLogger())
		require.NoError(t, err)

		require.NoError(t, j.Execute(context.Background()))
		assert.Equal(t, []uuid.UUID{taskID}, executor.checkIDs)
		assert.Empty(t, executor.executionIDs)
	})

	t.Run("executor error fails the job", func(t *testing.T) {
		t.Parallel()

		executor := &mockExecutor{executionErr: errors.New("task not found")}
		j, err := NewScriptRunJob(taskID, ScriptRunModeExecution, executor, discardLogger())
		require.NoError(t, err)

		err = j.Execute(context.Background())
		require.Error(t, err)
		assert.Equal(t, JobStatusFailed, j.Status())
	})

	t.Run("cancelled context fails the job", func(t *testing.T) {
		t.Parallel()

		executor := &mockExecutor{}
		j, err := NewScriptRunJob(taskID, ScriptRunModeExecution, executor, discardLogger())
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		require.Error(t, j.Execute(ctx))
		assert.Equal(t, JobStatusFailed, j.Status())
		assert.Empty(t, executor.executionIDs)
	})
}

func TestScriptRunJobFactoryRehydrate(t *testing.T) {
	t.Parallel()

	executor := &mockExecutor{}
	factory := NewScriptRunJobFactory(executor, discardLogger())

	taskID := uuid.New()
	original, err := factory.CreateJob(taskID, ScriptRunModeCheck)
	require.NoError(t, err)

	rehydrated, err := factory.RehydrateJob(
		original.ID(), JobTypeScriptRun, original.Payload(), JobStatusProcessing)
	require.NoError(t, err)

	// Identity and status survive the round trip.
	assert.Equal(t, original.ID(), rehydrated.ID())
	assert.Equal(t, JobStatusProcessing, rehydrated.Status())

	// The rehydrated job still runs the original task's script.
	require.NoError(t, rehydrated.Execute(context.Background()))
	assert.Equal(t, []uuid.UUID{taskID}, executor.checkIDs)
}

func TestScriptRunJobFactoryRehydrateRejectsUnknownType(t *testing.T) {
	t.Parallel()

	factory := NewScriptRunJobFactory(&mockExecutor{}, discardLogger())

	_, err := factory.RehydrateJob(uuid.New(), "mystery", []byte(`{}`), JobStatusPending)
	require.Error(t, err)
}
