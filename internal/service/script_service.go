package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence-api/internal/domain"
	"github.com/cadencehq/cadence-api/internal/events"
	"github.com/cadencehq/cadence-api/internal/job"
	"github.com/cadencehq/cadence-api/internal/store"
)

// ScriptRunner defines the interface for running external scripts. All
// failures (nonzero exit, timeout, launch error) are normalized into a
// (false, logs) result rather than an error.
type ScriptRunner interface {
	// Run executes the script with the given environment and returns
	// whether it exited successfully along with the combined output log.
	Run(ctx context.Context, script string, env map[string]string) (success bool, logs string)
}

// ScriptService runs a goal's execution and check scripts against a task.
// Enqueue methods validate the request and hand the work to the background
// job runner through an event; Run methods do the actual script execution
// and resulting task transitions, and are invoked from job workers.
type ScriptService interface {
	// EnqueueExecutionScript validates that the task can run its execution
	// script and emits a job request for it. Returns immediately.
	EnqueueExecutionScript(ctx context.Context, taskID uuid.UUID) error

	// EnqueueCheckScript validates that the task can run its check script
	// and emits a job request for it. Returns immediately.
	EnqueueCheckScript(ctx context.Context, taskID uuid.UUID) error

	// RunExecutionScript runs the execution script and applies the
	// start/fail transition. Only legal while the task is Waiting.
	RunExecutionScript(ctx context.Context, taskID uuid.UUID) error

	// RunCheckScript runs the check script and interprets its output into
	// the task's complete/fail transition, cascading goal completion when
	// the output reports the goal as met. Only legal while the task is
	// In Progress.
	RunCheckScript(ctx context.Context, taskID uuid.UUID) error
}

type scriptServiceImpl struct {
	db            *sql.DB
	taskStore     store.TaskStore
	taskLogStore  store.TaskLogStore
	goalStore     store.GoalStore
	accountStore  store.AccountStore
	platformStore store.PlatformStore
	taskService   TaskService
	emitter       events.EventEmitter
	runner        ScriptRunner
	logger        *slog.Logger
}

// NewScriptService creates a new ScriptService.
// It returns an error if any of the required dependencies are nil.
func NewScriptService(
	db *sql.DB,
	taskStore store.TaskStore,
	taskLogStore store.TaskLogStore,
	goalStore store.GoalStore,
	accountStore store.AccountStore,
	platformStore store.PlatformStore,
	taskService TaskService,
	emitter events.EventEmitter,
	runner ScriptRunner,
	logger *slog.Logger,
) (ScriptService, error) {
	switch {
	case db == nil:
		return nil, &ServiceError{Operation: "create_service", Message: "db cannot be nil"}
	case taskStore == nil:
		return nil, &ServiceError{Operation: "create_service", Message: "taskStore cannot be nil"}
	case taskLogStore == nil:
		return nil, &ServiceError{Operation: "create_service", Message: "taskLogStore cannot be nil"}
	case goalStore == nil:
		return nil, &ServiceError{Operation: "create_service", Message: "goalStore cannot be nil"}
	case accountStore == nil:
		return nil, &ServiceError{Operation: "create_service", Message: "accountStore cannot be nil"}
	case platformStore == nil:
		return nil, &ServiceError{Operation: "create_service", Message: "platformStore cannot be nil"}
	case taskService == nil:
		return nil, &ServiceError{Operation: "create_service", Message: "taskService cannot be nil"}
	case emitter == nil:
		return nil, &ServiceError{Operation: "create_service", Message: "emitter cannot be nil"}
	case runner == nil:
		return nil, &ServiceError{Operation: "create_service", Message: "runner cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &scriptServiceImpl{
		db:            db,
		taskStore:     taskStore,
		taskLogStore:  taskLogStore,
		goalStore:     goalStore,
		accountStore:  accountStore,
		platformStore: platformStore,
		taskService:   taskService,
		emitter:       emitter,
		runner:        runner,
		logger:        logger.With("component", "script_service"),
	}, nil
}

func (s *scriptServiceImpl) EnqueueExecutionScript(ctx context.Context, taskID uuid.UUID) error {
	return s.enqueue(ctx, taskID, job.ScriptRunModeExecution)
}

func (s *scriptServiceImpl) EnqueueCheckScript(ctx context.Context, taskID uuid.UUID) error {
	return s.enqueue(ctx, taskID, job.ScriptRunModeCheck)
}

// enqueue validates the script run request and emits a job request event.
// The actual execution happens on a background worker; the caller only
// learns whether the request was accepted.
func (s *scriptServiceImpl) enqueue(
	ctx context.Context,
	taskID uuid.UUID,
	mode job.ScriptRunMode,
) error {
	task, goal, err := s.loadTaskAndGoal(ctx, taskID)
	if err != nil {
		return err
	}

	if err := s.validateRunnable(task, goal, mode); err != nil {
		return err
	}

	payload := struct {
		TaskID uuid.UUID         `json:"task_id"`
		Mode   job.ScriptRunMode `json:"mode"`
	}{
		TaskID: taskID,
		Mode:   mode,
	}

	event, err := events.NewJobRequestEvent(job.JobTypeScriptRun, payload)
	if err != nil {
		return &ServiceError{
			Operation: "enqueue_script_run",
			Message:   "failed to create job request event",
			Err:       err,
		}
	}

	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		return &ServiceError{
			Operation: "enqueue_script_run",
			Message:   "failed to emit job request event",
			Err:       err,
		}
	}

	s.logger.Info("script run enqueued",
		"task_id", taskID,
		"mode", mode,
		"event_id", event.ID)
	return nil
}

// validateRunnable checks the status and strategy preconditions for a
// script run, so that obviously doomed requests are rejected before they
// reach the job queue.
func (s *scriptServiceImpl) validateRunnable(
	task *domain.Task,
	goal *domain.Goal,
	mode job.ScriptRunMode,
) error {
	switch mode {
	case job.ScriptRunModeExecution:
		if !goal.Execution.IsScripted() {
			return fmt.Errorf("%w: execution strategy", ErrNotScripted)
		}
		if task.Status != domain.TaskStatusWaiting {
			return &domain.InvalidTransitionError{From: task.Status, Event: domain.TaskEventStart}
		}
	case job.ScriptRunModeCheck:
		if !goal.Check.IsScripted() {
			return fmt.Errorf("%w: check strategy", ErrNotScripted)
		}
		if task.Status != domain.TaskStatusInProgress {
			return &domain.InvalidTransitionError{From: task.Status, Event: domain.TaskEventComplete}
		}
	}
	return nil
}

func (s *scriptServiceImpl) RunExecutionScript(ctx context.Context, taskID uuid.UUID) error {
	task, goal, err := s.loadTaskAndGoal(ctx, taskID)
	if err != nil {
		return err
	}
	if err := s.validateRunnable(task, goal, job.ScriptRunModeExecution); err != nil {
		return err
	}

	env, err := s.buildScriptEnv(ctx, task, goal, goal.Execution.EnvVars)
	if err != nil {
		return err
	}

	// For execution only the exit code matters, not the output keywords.
	success, logs := s.runner.Run(ctx, goal.Execution.ScriptContent, env)

	if err := s.applyExecutionOutcome(ctx, taskID, success, logs); err != nil {
		return err
	}

	s.logger.Info("execution script processed",
		"task_id", taskID,
		"success", success)
	return nil
}

func (s *scriptServiceImpl) RunCheckScript(ctx context.Context, taskID uuid.UUID) error {
	task, goal, err := s.loadTaskAndGoal(ctx, taskID)
	if err != nil {
		return err
	}
	if err := s.validateRunnable(task, goal, job.ScriptRunModeCheck); err != nil {
		return err
	}

	env, err := s.buildScriptEnv(ctx, task, goal, goal.Check.EnvVars)
	if err != nil {
		return err
	}

	success, logs := s.runner.Run(ctx, goal.Check.ScriptContent, env)

	// The script itself failed (nonzero exit, timeout, launch error).
	if !success {
		notes := fmt.Sprintf("Check script failed to execute with a non-zero exit code.\n\n%s", logs)
		_, err := s.taskService.FailTask(ctx, taskID, notes)
		return err
	}

	outputLower := strings.ToLower(logs)

	switch {
	// The script explicitly states the overall goal is met.
	case strings.Contains(outputLower, "goal_met"):
		notes := fmt.Sprintf("Check script returned GOAL_MET.\n\n%s", logs)
		_, err := s.taskService.CompleteTask(ctx, taskID, notes, true)
		return err

	// The check succeeded but the goal is not yet met.
	case strings.Contains(outputLower, "check_success"):
		notes := fmt.Sprintf("Check script returned CHECK_SUCCESS.\n\n%s", logs)
		_, err := s.taskService.CompleteTask(ctx, taskID, notes, false)
		return err

	// The script ran but its internal logic failed (e.g. API error).
	case strings.Contains(outputLower, "check_fail"):
		notes := fmt.Sprintf("Check script returned CHECK_FAIL.\n\n%s", logs)
		_, err := s.taskService.FailTask(ctx, taskID, notes)
		return err

	// No expected keyword: ambiguous output is conservatively a failure.
	default:
		notes := fmt.Sprintf(
			"Check script ran successfully but did not return a valid keyword (GOAL_MET, CHECK_SUCCESS, or CHECK_FAIL).\n\n%s",
			logs)
		_, err := s.taskService.FailTask(ctx, taskID, notes)
		return err
	}
}

// loadTaskAndGoal fetches a task and its parent goal, mapping store
// sentinels onto service ones.
func (s *scriptServiceImpl) loadTaskAndGoal(
	ctx context.Context,
	taskID uuid.UUID,
) (*domain.Task, *domain.Goal, error) {
	task, err := s.taskStore.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return nil, nil, ErrTaskNotFound
		}
		return nil, nil, &ServiceError{
			Operation: "load_task",
			Message:   "failed to retrieve task",
			Err:       err,
		}
	}

	goal, err := s.goalStore.GetByID(ctx, task.GoalID)
	if err != nil {
		if errors.Is(err, store.ErrGoalNotFound) {
			return nil, nil, ErrGoalNotFound
		}
		return nil, nil, &ServiceError{
			Operation: "load_goal",
			Message:   "failed to retrieve goal",
			Err:       err,
		}
	}

	return task, goal, nil
}

// buildScriptEnv copies the strategy's environment variables and injects
// TASK_CONTEXT, a JSON snapshot of the task, goal, account and platform at
// invocation time.
func (s *scriptServiceImpl) buildScriptEnv(
	ctx context.Context,
	task *domain.Task,
	goal *domain.Goal,
	envVars map[string]string,
) (map[string]string, error) {
	var account *domain.Account
	if task.AccountID != nil {
		loaded, err := s.accountStore.GetByID(ctx, *task.AccountID)
		if err != nil && !errors.Is(err, store.ErrAccountNotFound) {
			return nil, &ServiceError{
				Operation: "build_script_env",
				Message:   "failed to retrieve account",
				Err:       err,
			}
		}
		account = loaded
	}

	platform, err := s.platformStore.GetByID(ctx, goal.PlatformID)
	if err != nil && !errors.Is(err, store.ErrPlatformNotFound) {
		return nil, &ServiceError{
			Operation: "build_script_env",
			Message:   "failed to retrieve platform",
			Err:       err,
		}
	}

	snapshot := struct {
		Task     *domain.Task     `json:"task"`
		Goal     *domain.Goal     `json:"goal"`
		Account  *domain.Account  `json:"account"`
		Platform *domain.Platform `json:"platform"`
	}{
		Task:     task,
		Goal:     goal,
		Account:  account,
		Platform: platform,
	}

	contextJSON, err := json.Marshal(snapshot)
	if err != nil {
		return nil, &ServiceError{
			Operation: "build_script_env",
			Message:   "failed to serialize task context",
			Err:       err,
		}
	}

	env := make(map[string]string, len(envVars)+1)
	for k, v := range envVars {
		env[k] = v
	}
	env["TASK_CONTEXT"] = string(contextJSON)
	return env, nil
}

// applyExecutionOutcome applies the result of an execution script run in a
// single transaction: on success the task starts, on failure it starts and
// immediately fails, so a broken script lands the task in Failed rather
// than leaving it Waiting forever. Either way exactly one log entry records
// the net transition with the full captured output.
func (s *scriptServiceImpl) applyExecutionOutcome(
	ctx context.Context,
	taskID uuid.UUID,
	success bool,
	logs string,
) error {
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.taskStore.WithTx(tx)
		txLogs := s.taskLogStore.WithTx(tx)

		task, err := txTasks.GetByID(ctx, taskID)
		if err != nil {
			return err
		}

		from, err := task.Apply(domain.TaskEventStart)
		if err != nil {
			return err
		}
		if !success {
			if _, err := task.Apply(domain.TaskEventFail); err != nil {
				return err
			}
		}

		if err := txTasks.Update(ctx, task); err != nil {
			return err
		}

		entry, err := domain.NewTaskLog(task.ID, from, task.Status, logs)
		if err != nil {
			return err
		}
		return txLogs.Create(ctx, entry)
	})
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return ErrTaskNotFound
		}
		var invalid *domain.InvalidTransitionError
		if errors.As(err, &invalid) {
			return invalid
		}
		return &ServiceError{
			Operation: "apply_execution_outcome",
			Message:   fmt.Sprintf("failed to record execution outcome for task %s", taskID),
			Err:       err,
		}
	}
	return nil
}

// Ensure scriptServiceImpl satisfies the job executor contract.
var _ job.ScriptExecutor = (ScriptService)(nil)
