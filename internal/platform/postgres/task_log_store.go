package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence-api/internal/domain"
	"github.com/cadencehq/cadence-api/internal/platform/logger"
	"github.com/cadencehq/cadence-api/internal/store"
)

// TaskLogStore implements the store.TaskLogStore interface
// using a PostgreSQL database as the storage backend.
// The task_logs table is append-only; this store never updates or deletes.
type TaskLogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewTaskLogStore creates a new PostgreSQL implementation of the
// store.TaskLogStore interface. If logger is nil, a default logger will be
// used.
func NewTaskLogStore(db store.DBTX, logger *slog.Logger) *TaskLogStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &TaskLogStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_log_store")),
	}
}

// Ensure TaskLogStore implements store.TaskLogStore interface
var _ store.TaskLogStore = (*TaskLogStore)(nil)

// WithTx implements store.TaskLogStore.WithTx
func (s *TaskLogStore) WithTx(tx *sql.Tx) store.TaskLogStore {
	return &TaskLogStore{db: tx, logger: s.logger}
}

// Create implements store.TaskLogStore.Create
func (s *TaskLogStore) Create(ctx context.Context, entry *domain.TaskLog) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := entry.Validate(); err != nil {
		log.Warn("task log validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_log_id", entry.ID.String()))
		return err
	}

	query := `
		INSERT INTO task_logs (id, task_id, timestamp, from_status, to_status, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.TaskID,
		entry.Timestamp,
		entry.FromStatus,
		entry.ToStatus,
		entry.Notes,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: task with ID %s not found",
				store.ErrInvalidEntity, entry.TaskID)
		}
		log.Error("failed to create task log",
			slog.String("error", err.Error()),
			slog.String("task_id", entry.TaskID.String()))
		return MapError(err)
	}

	return nil
}

// ListByTask implements store.TaskLogStore.ListByTask
func (s *TaskLogStore) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*domain.TaskLog, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, task_id, timestamp, from_status, to_status, notes
		FROM task_logs
		WHERE task_id = $1
		ORDER BY timestamp ASC
	`

	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		log.Error("failed to list task logs",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*domain.TaskLog
	for rows.Next() {
		var entry domain.TaskLog
		err := rows.Scan(
			&entry.ID,
			&entry.TaskID,
			&entry.Timestamp,
			&entry.FromStatus,
			&entry.ToStatus,
			&entry.Notes,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task log row: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task log rows: %w", err)
	}

	return entries, nil
}
