package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence-api/internal/domain"
	"github.com/cadencehq/cadence-api/internal/platform/logger"
	"github.com/cadencehq/cadence-api/internal/store"
)

// AccountStore implements the store.AccountStore interface
// using a PostgreSQL database as the storage backend.
type AccountStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewAccountStore creates a new PostgreSQL implementation of the
// store.AccountStore interface. If logger is nil, a default logger will be
// used.
func NewAccountStore(db store.DBTX, logger *slog.Logger) *AccountStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &AccountStore{
		db:     db,
		logger: logger.With(slog.String("component", "account_store")),
	}
}

// Ensure AccountStore implements store.AccountStore interface
var _ store.AccountStore = (*AccountStore)(nil)

// WithTx implements store.AccountStore.WithTx
func (s *AccountStore) WithTx(tx *sql.Tx) store.AccountStore {
	return &AccountStore{db: tx, logger: s.logger}
}

// Create implements store.AccountStore.Create
// Returns store.ErrInvalidEntity if the referenced platform does not exist
// (foreign key violation).
func (s *AccountStore) Create(ctx context.Context, account *domain.Account) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := account.Validate(); err != nil {
		log.Warn("account validation failed during create",
			slog.String("error", err.Error()),
			slog.String("account_id", account.ID.String()))
		return err
	}

	query := `
		INSERT INTO accounts (id, platform_id, username, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		account.ID,
		account.PlatformID,
		account.Username,
		account.Notes,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during account creation",
				slog.String("account_id", account.ID.String()),
				slog.String("platform_id", account.PlatformID.String()))
			return fmt.Errorf("%w: platform with ID %s not found",
				store.ErrInvalidEntity, account.PlatformID)
		}

		log.Error("failed to create account",
			slog.String("error", err.Error()),
			slog.String("account_id", account.ID.String()))
		return MapError(err)
	}

	log.Info("account created successfully",
		slog.String("account_id", account.ID.String()),
		slog.String("username", account.Username))
	return nil
}

// GetByID implements store.AccountStore.GetByID
// Returns store.ErrAccountNotFound if the account does not exist.
func (s *AccountStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, platform_id, username, notes, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`

	var account domain.Account
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&account.ID,
		&account.PlatformID,
		&account.Username,
		&account.Notes,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrAccountNotFound
		}
		log.Error("failed to get account by ID",
			slog.String("error", err.Error()),
			slog.String("account_id", id.String()))
		return nil, MapError(err)
	}

	return &account, nil
}

// ListByPlatform implements store.AccountStore.ListByPlatform
func (s *AccountStore) ListByPlatform(ctx context.Context, platformID uuid.UUID) ([]*domain.Account, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, platform_id, username, notes, created_at, updated_at
		FROM accounts
		WHERE platform_id = $1
		ORDER BY username ASC
	`

	rows, err := s.db.QueryContext(ctx, query, platformID)
	if err != nil {
		log.Error("failed to list accounts by platform",
			slog.String("error", err.Error()),
			slog.String("platform_id", platformID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []*domain.Account
	for rows.Next() {
		var account domain.Account
		err := rows.Scan(
			&account.ID,
			&account.PlatformID,
			&account.Username,
			&account.Notes,
			&account.CreatedAt,
			&account.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		accounts = append(accounts, &account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}

	return accounts, nil
}

// Delete implements store.AccountStore.Delete
// Returns store.ErrAccountNotFound if the account does not exist.
func (s *AccountStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete account",
			slog.String("error", err.Error()),
			slog.String("account_id", id.String()))
		return MapError(err)
	}

	return CheckRowsAffected(result, "account")
}

// GetDashboardSummary implements store.AccountStore.GetDashboardSummary
// It aggregates task counts per account with conditional aggregation, plus
// the due date of each account's most recent completed task.
func (s *AccountStore) GetDashboardSummary(ctx context.Context) ([]*store.AccountSummary, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT
			a.id,
			a.platform_id,
			p.name,
			a.username,
			MAX(t.due_date) FILTER (WHERE t.status = 'Completed'),
			COUNT(*) FILTER (WHERE t.status = 'Waiting'),
			COUNT(*) FILTER (WHERE t.status = 'In Progress'),
			COUNT(*) FILTER (WHERE t.status = 'Failed'),
			COUNT(*) FILTER (WHERE t.status = 'Skipped')
		FROM accounts a
		JOIN platforms p ON p.id = a.platform_id
		LEFT JOIN tasks t ON t.account_id = a.id
		GROUP BY a.id, a.platform_id, p.name, a.username
		ORDER BY p.name ASC, a.username ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to query dashboard summary", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var summaries []*store.AccountSummary
	for rows.Next() {
		var summary store.AccountSummary
		var lastActivity sql.NullTime

		err := rows.Scan(
			&summary.AccountID,
			&summary.PlatformID,
			&summary.PlatformName,
			&summary.Username,
			&lastActivity,
			&summary.WaitingCount,
			&summary.InProgressCount,
			&summary.FailedCount,
			&summary.SkippedCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dashboard row: %w", err)
		}

		if lastActivity.Valid {
			t := lastActivity.Time
			summary.LastActivity = &t
		}
		summaries = append(summaries, &summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dashboard rows: %w", err)
	}

	return summaries, nil
}
