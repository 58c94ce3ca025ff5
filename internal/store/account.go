package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence-api/internal/domain"
)

// AccountSummary is one row of the dashboard summary: an account with its
// task counts by status and the due date of its most recent completed task.
type AccountSummary struct {
	AccountID       uuid.UUID  `json:"account_id"`
	PlatformID      uuid.UUID  `json:"platform_id"`
	PlatformName    string     `json:"platform_name"`
	Username        string     `json:"username"`
	LastActivity    *time.Time `json:"last_activity,omitempty"`
	WaitingCount    int        `json:"waiting_count"`
	InProgressCount int        `json:"in_progress_count"`
	FailedCount     int        `json:"failed_count"`
	SkippedCount    int        `json:"skipped_count"`
}

// AccountStore defines the interface for account data persistence.
type AccountStore interface {
	// Create saves a new account to the store.
	// Returns validation errors if the account data is invalid, or
	// ErrInvalidEntity if the referenced platform does not exist.
	Create(ctx context.Context, account *domain.Account) error

	// GetByID retrieves an account by its unique ID.
	// Returns ErrAccountNotFound if the account does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)

	// ListByPlatform retrieves all accounts for the given platform ordered
	// by username.
	ListByPlatform(ctx context.Context, platformID uuid.UUID) ([]*domain.Account, error)

	// Delete removes an account from the store by its ID.
	// Returns ErrAccountNotFound if the account does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// GetDashboardSummary aggregates per-account task status counts across
	// all platforms, using conditional aggregation in a single query.
	GetDashboardSummary(ctx context.Context) ([]*AccountSummary, error)

	// WithTx returns a new AccountStore instance that uses the provided
	// transaction. The transaction should be created and managed by the
	// caller (typically a service).
	WithTx(tx *sql.Tx) AccountStore
}
