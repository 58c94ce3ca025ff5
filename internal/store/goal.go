package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence-api/internal/domain"
)

// GoalStore defines the interface for goal data persistence. The policy,
// strategies and account ID list are stored as JSONB alongside the scalar
// columns.
type GoalStore interface {
	// Create saves a new goal to the store.
	// Returns validation errors if the goal data is invalid, or
	// ErrInvalidEntity if the referenced platform does not exist.
	Create(ctx context.Context, goal *domain.Goal) error

	// GetByID retrieves a goal by its unique ID.
	// Returns ErrGoalNotFound if the goal does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Goal, error)

	// List retrieves all goals ordered by creation time.
	List(ctx context.Context) ([]*domain.Goal, error)

	// ListActive retrieves all goals with Active status. The generation
	// cycle iterates over exactly this set.
	ListActive(ctx context.Context) ([]*domain.Goal, error)

	// Update saves changes to an existing goal.
	// Returns ErrGoalNotFound if the goal does not exist.
	Update(ctx context.Context, goal *domain.Goal) error

	// Delete removes a goal from the store by its ID.
	//
	// IMPORTANT: This method relies on database-level CASCADE DELETE
	// behavior to remove the goal's tasks and their logs. This is configured
	// in the schema through ON DELETE CASCADE foreign key constraints.
	// Returns ErrGoalNotFound if the goal does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new GoalStore instance that uses the provided
	// transaction. The transaction should be created and managed by the
	// caller (typically a service).
	WithTx(tx *sql.Tx) GoalStore
}
