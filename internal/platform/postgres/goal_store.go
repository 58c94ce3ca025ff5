package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence-api/internal/domain"
	"github.com/cadencehq/cadence-api/internal/domain/schedule"
	"github.com/cadencehq/cadence-api/internal/platform/logger"
	"github.com/cadencehq/cadence-api/internal/store"
)

// GoalStore implements the store.GoalStore interface
// using a PostgreSQL database as the storage backend.
// Policy, strategies and the account ID list are persisted as JSONB.
type GoalStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewGoalStore creates a new PostgreSQL implementation of the
// store.GoalStore interface. If logger is nil, a default logger will be
// used.
func NewGoalStore(db store.DBTX, logger *slog.Logger) *GoalStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &GoalStore{
		db:     db,
		logger: logger.With(slog.String("component", "goal_store")),
	}
}

// Ensure GoalStore implements store.GoalStore interface
var _ store.GoalStore = (*GoalStore)(nil)

// WithTx implements store.GoalStore.WithTx
func (s *GoalStore) WithTx(tx *sql.Tx) store.GoalStore {
	return &GoalStore{db: tx, logger: s.logger}
}

const goalColumns = `id, platform_id, description, policy, start_date, end_date,
	account_ids, distribution, catchup, execution_strategy, check_strategy,
	status, created_at, updated_at`

// Create implements store.GoalStore.Create
// Returns store.ErrInvalidEntity if the referenced platform does not exist.
func (s *GoalStore) Create(ctx context.Context, goal *domain.Goal) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := goal.Validate(); err != nil {
		log.Warn("goal validation failed during create",
			slog.String("error", err.Error()),
			slog.String("goal_id", goal.ID.String()))
		return err
	}

	policyJSON, accountIDsJSON, executionJSON, checkJSON, err := marshalGoalFields(goal)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO goals (` + goalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = s.db.ExecContext(ctx, query,
		goal.ID,
		goal.PlatformID,
		goal.Description,
		policyJSON,
		goal.StartDate,
		nullableTime(goal.EndDate),
		accountIDsJSON,
		goal.Distribution,
		goal.Catchup,
		executionJSON,
		checkJSON,
		goal.Status,
		goal.CreatedAt,
		goal.UpdatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: platform with ID %s not found",
				store.ErrInvalidEntity, goal.PlatformID)
		}
		log.Error("failed to create goal",
			slog.String("error", err.Error()),
			slog.String("goal_id", goal.ID.String()))
		return MapError(err)
	}

	log.Info("goal created successfully",
		slog.String("goal_id", goal.ID.String()),
		slog.String("policy_type", string(goal.Policy.Type)))
	return nil
}

// GetByID implements store.GoalStore.GetByID
// Returns store.ErrGoalNotFound if the goal does not exist.
func (s *GoalStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Goal, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + goalColumns + ` FROM goals WHERE id = $1`

	goal, err := scanGoal(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrGoalNotFound
		}
		log.Error("failed to get goal by ID",
			slog.String("error", err.Error()),
			slog.String("goal_id", id.String()))
		return nil, MapError(err)
	}

	return goal, nil
}

// List implements store.GoalStore.List
func (s *GoalStore) List(ctx context.Context) ([]*domain.Goal, error) {
	return s.listWhere(ctx, "")
}

// ListActive implements store.GoalStore.ListActive
func (s *GoalStore) ListActive(ctx context.Context) ([]*domain.Goal, error) {
	return s.listWhere(ctx, "WHERE status = 'Active'")
}

func (s *GoalStore) listWhere(ctx context.Context, where string) ([]*domain.Goal, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + goalColumns + ` FROM goals ` + where + ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to list goals", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var goals []*domain.Goal
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal row: %w", err)
		}
		goals = append(goals, goal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating goal rows: %w", err)
	}

	return goals, nil
}

// Update implements store.GoalStore.Update
// Returns store.ErrGoalNotFound if the goal does not exist.
func (s *GoalStore) Update(ctx context.Context, goal *domain.Goal) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := goal.Validate(); err != nil {
		return err
	}

	policyJSON, accountIDsJSON, executionJSON, checkJSON, err := marshalGoalFields(goal)
	if err != nil {
		return err
	}

	query := `
		UPDATE goals
		SET platform_id = $1, description = $2, policy = $3, start_date = $4,
			end_date = $5, account_ids = $6, distribution = $7, catchup = $8,
			execution_strategy = $9, check_strategy = $10, status = $11,
			updated_at = $12
		WHERE id = $13
	`
	result, err := s.db.ExecContext(ctx, query,
		goal.PlatformID,
		goal.Description,
		policyJSON,
		goal.StartDate,
		nullableTime(goal.EndDate),
		accountIDsJSON,
		goal.Distribution,
		goal.Catchup,
		executionJSON,
		checkJSON,
		goal.Status,
		goal.UpdatedAt,
		goal.ID,
	)
	if err != nil {
		log.Error("failed to update goal",
			slog.String("error", err.Error()),
			slog.String("goal_id", goal.ID.String()))
		return MapError(err)
	}

	return CheckRowsAffected(result, "goal")
}

// Delete implements store.GoalStore.Delete
// The goal's tasks and their logs are removed by ON DELETE CASCADE.
func (s *GoalStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM goals WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete goal",
			slog.String("error", err.Error()),
			slog.String("goal_id", id.String()))
		return MapError(err)
	}

	return CheckRowsAffected(result, "goal")
}

func marshalGoalFields(goal *domain.Goal) (policy, accountIDs, execution, check []byte, err error) {
	policy, err = json.Marshal(goal.Policy)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal goal policy: %w", err)
	}
	accountIDs, err = json.Marshal(goal.AccountIDs)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal goal account IDs: %w", err)
	}
	execution, err = json.Marshal(goal.Execution)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal execution strategy: %w", err)
	}
	check, err = json.Marshal(goal.Check)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal check strategy: %w", err)
	}
	return policy, accountIDs, execution, check, nil
}

func scanGoal(row rowScanner) (*domain.Goal, error) {
	var goal domain.Goal
	var policyJSON, accountIDsJSON, executionJSON, checkJSON []byte
	var endDate sql.NullTime

	err := row.Scan(
		&goal.ID,
		&goal.PlatformID,
		&goal.Description,
		&policyJSON,
		&goal.StartDate,
		&endDate,
		&accountIDsJSON,
		&goal.Distribution,
		&goal.Catchup,
		&executionJSON,
		&checkJSON,
		&goal.Status,
		&goal.CreatedAt,
		&goal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(policyJSON, &goal.Policy); err != nil {
		return nil, fmt.Errorf("failed to unmarshal goal policy: %w", err)
	}
	if err := json.Unmarshal(accountIDsJSON, &goal.AccountIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal goal account IDs: %w", err)
	}
	if err := json.Unmarshal(executionJSON, &goal.Execution); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution strategy: %w", err)
	}
	if err := json.Unmarshal(checkJSON, &goal.Check); err != nil {
		return nil, fmt.Errorf("failed to unmarshal check strategy: %w", err)
	}

	// DATE columns come back in the session time zone; normalize to the
	// calendar dates the scheduling code expects.
	goal.StartDate = schedule.DateOnly(goal.StartDate)
	if endDate.Valid {
		end := schedule.DateOnly(endDate.Time)
		goal.EndDate = &end
	}

	return &goal, nil
}

// nullableTime converts an optional time into a driver-friendly value.
func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
