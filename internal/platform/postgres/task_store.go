package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence-api/internal/domain"
	"github.com/cadencehq/cadence-api/internal/domain/schedule"
	"github.com/cadencehq/cadence-api/internal/platform/logger"
	"github.com/cadencehq/cadence-api/internal/store"
)

// TaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type TaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewTaskStore creates a new PostgreSQL implementation of the
// store.TaskStore interface. If logger is nil, a default logger will be
// used.
func NewTaskStore(db store.DBTX, logger *slog.Logger) *TaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &TaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure TaskStore implements store.TaskStore interface
var _ store.TaskStore = (*TaskStore)(nil)

// WithTx implements store.TaskStore.WithTx
func (s *TaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &TaskStore{db: tx, logger: s.logger}
}

// Create implements store.TaskStore.Create
// Returns store.ErrDuplicateTask if a task already exists for the same goal
// line and due date (unique index violation).
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	query := `
		INSERT INTO tasks (id, goal_id, account_id, due_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.GoalID,
		nullableUUID(task.AccountID),
		task.DueDate,
		task.Status,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("duplicate task for goal line and due date",
				slog.String("goal_id", task.GoalID.String()),
				slog.String("due_date", task.DueDate.Format("2006-01-02")))
			return fmt.Errorf("%w: %v", store.ErrDuplicateTask, err)
		}
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: goal with ID %s not found",
				store.ErrInvalidEntity, task.GoalID)
		}
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}

	return nil
}

// GetByID implements store.TaskStore.GetByID
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *TaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, goal_id, account_id, due_date, status, created_at, updated_at
		FROM tasks
		WHERE id = $1
	`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task by ID",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, MapError(err)
	}

	return task, nil
}

// List implements store.TaskStore.List
func (s *TaskStore) List(ctx context.Context) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, goal_id, account_id, due_date, status, created_at, updated_at
		FROM tasks
		ORDER BY due_date DESC, created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to list tasks", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	return collectTasks(rows)
}

// Update implements store.TaskStore.Update
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *TaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return err
	}

	query := `
		UPDATE tasks
		SET status = $1, updated_at = $2
		WHERE id = $3
	`
	result, err := s.db.ExecContext(ctx, query, task.Status, task.UpdatedAt, task.ID)
	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}

	return CheckRowsAffected(result, "task")
}

// FindLatestForGoal implements store.TaskStore.FindLatestForGoal
// A nil accountID selects the platform-level line (account_id IS NULL).
// Returns (nil, nil) when the line has no tasks yet.
func (s *TaskStore) FindLatestForGoal(ctx context.Context, goalID uuid.UUID, accountID *uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var query string
	var args []any

	if accountID != nil {
		query = `
			SELECT id, goal_id, account_id, due_date, status, created_at, updated_at
			FROM tasks
			WHERE goal_id = $1 AND account_id = $2
			ORDER BY due_date DESC
			LIMIT 1
		`
		args = []any{goalID, *accountID}
	} else {
		query = `
			SELECT id, goal_id, account_id, due_date, status, created_at, updated_at
			FROM tasks
			WHERE goal_id = $1 AND account_id IS NULL
			ORDER BY due_date DESC
			LIMIT 1
		`
		args = []any{goalID}
	}

	task, err := scanTask(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		log.Error("failed to find latest task for goal",
			slog.String("error", err.Error()),
			slog.String("goal_id", goalID.String()))
		return nil, MapError(err)
	}

	return task, nil
}

// FindLatestForGoalAnyAccount implements store.TaskStore.FindLatestForGoalAnyAccount
// Returns (nil, nil) when the goal has no tasks yet.
func (s *TaskStore) FindLatestForGoalAnyAccount(ctx context.Context, goalID uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, goal_id, account_id, due_date, status, created_at, updated_at
		FROM tasks
		WHERE goal_id = $1
		ORDER BY due_date DESC, created_at DESC
		LIMIT 1
	`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, goalID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		log.Error("failed to find latest task for goal across accounts",
			slog.String("error", err.Error()),
			slog.String("goal_id", goalID.String()))
		return nil, MapError(err)
	}

	return task, nil
}

// CountCompletedForGoal implements store.TaskStore.CountCompletedForGoal
// A nil accountIDs list counts the platform-level line.
func (s *TaskStore) CountCompletedForGoal(ctx context.Context, goalID uuid.UUID, accountIDs []uuid.UUID) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var query string
	var args []any

	if len(accountIDs) > 0 {
		query = `
			SELECT COUNT(*)
			FROM tasks
			WHERE goal_id = $1 AND status = 'Completed' AND account_id = ANY($2)
		`
		args = []any{goalID, uuidStrings(accountIDs)}
	} else {
		query = `
			SELECT COUNT(*)
			FROM tasks
			WHERE goal_id = $1 AND status = 'Completed' AND account_id IS NULL
		`
		args = []any{goalID}
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		log.Error("failed to count completed tasks for goal",
			slog.String("error", err.Error()),
			slog.String("goal_id", goalID.String()))
		return 0, MapError(err)
	}

	return count, nil
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var accountID uuid.NullUUID

	err := row.Scan(
		&task.ID,
		&task.GoalID,
		&accountID,
		&task.DueDate,
		&task.Status,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if accountID.Valid {
		id := accountID.UUID
		task.AccountID = &id
	}
	task.DueDate = schedule.DateOnly(task.DueDate)

	return &task, nil
}

func collectTasks(rows *sql.Rows) ([]*domain.Task, error) {
	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}
	return tasks, nil
}

// nullableUUID converts an optional UUID into a driver-friendly value.
func nullableUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return *id
}

// uuidStrings renders UUIDs as text for use with = ANY($n) parameters.
func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
