package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence-api/internal/domain"
	"github.com/cadencehq/cadence-api/internal/domain/schedule"
	"github.com/cadencehq/cadence-api/internal/store"
)

// TaskService provides lifecycle operations on individual tasks. Every
// successful transition writes exactly one TaskLog entry in the same
// transaction as the status change.
type TaskService interface {
	// GetTask retrieves a task by its ID.
	GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// ListTasks retrieves all tasks.
	ListTasks(ctx context.Context) ([]*domain.Task, error)

	// StartTask moves a Waiting task to In Progress.
	StartTask(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// CompleteTask moves an In Progress task to Completed. When
	// completeParentGoal is true and the parent goal's policy is
	// state-based, the goal is marked Completed in the same transaction.
	CompleteTask(ctx context.Context, id uuid.UUID, notes string, completeParentGoal bool) (*domain.Task, error)

	// FailTask moves an In Progress task to Failed.
	FailTask(ctx context.Context, id uuid.UUID, notes string) (*domain.Task, error)

	// SkipTask moves a Waiting or In Progress task to Skipped.
	SkipTask(ctx context.Context, id uuid.UUID, notes string) (*domain.Task, error)

	// ListTaskLogs retrieves a task together with its transition history,
	// oldest entry first.
	ListTaskLogs(ctx context.Context, taskID uuid.UUID) (*domain.Task, []*domain.TaskLog, error)
}

type taskServiceImpl struct {
	db           *sql.DB
	taskStore    store.TaskStore
	taskLogStore store.TaskLogStore
	goalStore    store.GoalStore
	logger       *slog.Logger
}

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	db *sql.DB,
	taskStore store.TaskStore,
	taskLogStore store.TaskLogStore,
	goalStore store.GoalStore,
	logger *slog.Logger,
) (TaskService, error) {
	if db == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "db cannot be nil"}
	}
	if taskStore == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "taskStore cannot be nil"}
	}
	if taskLogStore == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "taskLogStore cannot be nil"}
	}
	if goalStore == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "goalStore cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &taskServiceImpl{
		db:           db,
		taskStore:    taskStore,
		taskLogStore: taskLogStore,
		goalStore:    goalStore,
		logger:       logger.With("component", "task_service"),
	}, nil
}

func (s *taskServiceImpl) GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	task, err := s.taskStore.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, &ServiceError{
			Operation: "get_task",
			Message:   "failed to retrieve task",
			Err:       err,
		}
	}
	return task, nil
}

func (s *taskServiceImpl) ListTasks(ctx context.Context) ([]*domain.Task, error) {
	tasks, err := s.taskStore.List(ctx)
	if err != nil {
		return nil, &ServiceError{
			Operation: "list_tasks",
			Message:   "failed to list tasks",
			Err:       err,
		}
	}
	return tasks, nil
}

func (s *taskServiceImpl) StartTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.transition(ctx, "start_task", id, domain.TaskEventStart, "", nil)
}

func (s *taskServiceImpl) CompleteTask(
	ctx context.Context,
	id uuid.UUID,
	notes string,
	completeParentGoal bool,
) (*domain.Task, error) {
	cascade := func(ctx context.Context, tx *sql.Tx, task *domain.Task) error {
		if !completeParentGoal {
			return nil
		}

		txGoals := s.goalStore.WithTx(tx)
		goal, err := txGoals.GetByID(ctx, task.GoalID)
		if err != nil {
			return err
		}

		// Only state-based goals complete from a single task completion.
		if goal.Policy.Type != schedule.PolicyStateBased {
			return nil
		}
		if goal.Status == domain.GoalStatusCompleted {
			return nil
		}

		goal.MarkCompleted()
		if err := txGoals.Update(ctx, goal); err != nil {
			return err
		}

		s.logger.Info("goal completed by state-based task",
			"goal_id", goal.ID,
			"task_id", task.ID)
		return nil
	}

	return s.transition(ctx, "complete_task", id, domain.TaskEventComplete, notes, cascade)
}

func (s *taskServiceImpl) FailTask(
	ctx context.Context,
	id uuid.UUID,
	notes string,
) (*domain.Task, error) {
	return s.transition(ctx, "fail_task", id, domain.TaskEventFail, notes, nil)
}

func (s *taskServiceImpl) SkipTask(
	ctx context.Context,
	id uuid.UUID,
	notes string,
) (*domain.Task, error) {
	return s.transition(ctx, "skip_task", id, domain.TaskEventSkip, notes, nil)
}

func (s *taskServiceImpl) ListTaskLogs(
	ctx context.Context,
	taskID uuid.UUID,
) (*domain.Task, []*domain.TaskLog, error) {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}

	logs, err := s.taskLogStore.ListByTask(ctx, taskID)
	if err != nil {
		return nil, nil, &ServiceError{
			Operation: "list_task_logs",
			Message:   fmt.Sprintf("failed to list logs for task %s", taskID),
			Err:       err,
		}
	}

	return task, logs, nil
}

// transition applies one lifecycle event to a task: load, apply, persist
// and record exactly one TaskLog, all in a single transaction. afterApply,
// when non-nil, runs inside the same transaction after the task update and
// is used for the goal completion cascade.
func (s *taskServiceImpl) transition(
	ctx context.Context,
	operation string,
	id uuid.UUID,
	event domain.TaskEvent,
	notes string,
	afterApply func(ctx context.Context, tx *sql.Tx, task *domain.Task) error,
) (*domain.Task, error) {
	var task *domain.Task

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.taskStore.WithTx(tx)
		txLogs := s.taskLogStore.WithTx(tx)

		loaded, err := txTasks.GetByID(ctx, id)
		if err != nil {
			return err
		}

		from, err := loaded.Apply(event)
		if err != nil {
			return err
		}

		if err := txTasks.Update(ctx, loaded); err != nil {
			return err
		}

		entry, err := domain.NewTaskLog(loaded.ID, from, loaded.Status, notes)
		if err != nil {
			return err
		}
		if err := txLogs.Create(ctx, entry); err != nil {
			return err
		}

		if afterApply != nil {
			if err := afterApply(ctx, tx, loaded); err != nil {
				return err
			}
		}

		task = loaded
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		var invalid *domain.InvalidTransitionError
		if errors.As(err, &invalid) {
			// Surfaced as-is so the API layer can report the illegal
			// event without treating it as an internal failure.
			return nil, invalid
		}
		s.logger.Error("task transition failed",
			"error", err,
			"task_id", id,
			"event", event)
		return nil, &ServiceError{
			Operation: operation,
			Message:   fmt.Sprintf("failed to apply %s to task %s", event, id),
			Err:       err,
		}
	}

	s.logger.Info("task transitioned",
		"task_id", task.ID,
		"event", event,
		"status", task.Status)
	return task, nil
}
