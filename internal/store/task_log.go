package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence-api/internal/domain"
)

// TaskLogStore defines the interface for task log persistence. Logs are
// append-only: there are deliberately no update or delete operations.
type TaskLogStore interface {
	// Create appends a new log entry.
	Create(ctx context.Context, entry *domain.TaskLog) error

	// ListByTask retrieves all log entries for a task, oldest first.
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*domain.TaskLog, error)

	// WithTx returns a new TaskLogStore instance that uses the provided
	// transaction. The transaction should be created and managed by the
	// caller (typically a service).
	WithTx(tx *sql.Tx) TaskLogStore
}
