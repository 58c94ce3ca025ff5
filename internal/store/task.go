package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence-api/internal/domain"
)

// TaskStore defines the interface for task data persistence.
//
// The generation engine seeds each planning pass from FindLatestForGoal /
// FindLatestForGoalAnyAccount, which is what makes generation idempotent: a
// due date that already has a stored task is never re-materialized. The
// unique index on (goal_id, account_id, due_date) backs this up at the
// storage layer.
type TaskStore interface {
	// Create saves a new task to the store.
	// Returns ErrDuplicateTask if a task already exists for the same goal
	// line and due date.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// List retrieves all tasks ordered by due date descending.
	List(ctx context.Context) ([]*domain.Task, error)

	// Update saves changes to an existing task (status and timestamp).
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// FindLatestForGoal retrieves the task with the most recent due date for
	// one line of a goal: a specific account when accountID is non-nil, or
	// the platform-level line (account IS NULL) when it is nil.
	// Returns (nil, nil) when the line has no tasks yet.
	FindLatestForGoal(ctx context.Context, goalID uuid.UUID, accountID *uuid.UUID) (*domain.Task, error)

	// FindLatestForGoalAnyAccount retrieves the task with the most recent
	// due date across every line of a goal. Round-robin distribution seeds
	// its shared sequence from this task.
	// Returns (nil, nil) when the goal has no tasks yet.
	FindLatestForGoalAnyAccount(ctx context.Context, goalID uuid.UUID) (*domain.Task, error)

	// CountCompletedForGoal counts the goal's Completed tasks. With a
	// non-empty accountIDs list the count is restricted to those accounts;
	// with a nil list it covers the platform-level line (account IS NULL).
	CountCompletedForGoal(ctx context.Context, goalID uuid.UUID, accountIDs []uuid.UUID) (int, error)

	// WithTx returns a new TaskStore instance that uses the provided
	// transaction. The transaction should be created and managed by the
	// caller (typically a service).
	WithTx(tx *sql.Tx) TaskStore
}
