package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence-api/internal/domain"
	"github.com/cadencehq/cadence-api/internal/store"
)

// AccountService provides account-related operations, including the
// per-account dashboard summary.
type AccountService interface {
	// CreateAccount creates a new account on the given platform.
	CreateAccount(ctx context.Context, platformID uuid.UUID, username, notes string) (*domain.Account, error)

	// GetAccount retrieves an account by its ID.
	GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)

	// ListAccountsByPlatform retrieves all accounts for the given platform.
	ListAccountsByPlatform(ctx context.Context, platformID uuid.UUID) ([]*domain.Account, error)

	// DeleteAccount removes an account by its ID.
	DeleteAccount(ctx context.Context, id uuid.UUID) error

	// GetDashboardSummary aggregates per-account task status counts and
	// last completed activity across all platforms.
	GetDashboardSummary(ctx context.Context) ([]*store.AccountSummary, error)
}

type accountServiceImpl struct {
	db            *sql.DB
	accountStore  store.AccountStore
	platformStore store.PlatformStore
	logger        *slog.Logger
}

// NewAccountService creates a new AccountService.
// It returns an error if any of the required dependencies are nil.
func NewAccountService(
	db *sql.DB,
	accountStore store.AccountStore,
	platformStore store.PlatformStore,
	logger *slog.Logger,
) (AccountService, error) {
	if db == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "db cannot be nil"}
	}
	if accountStore == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "accountStore cannot be nil"}
	}
	if platformStore == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "platformStore cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &accountServiceImpl{
		db:            db,
		accountStore:  accountStore,
		platformStore: platformStore,
		logger:        logger.With("component", "account_service"),
	}, nil
}

func (s *accountServiceImpl) CreateAccount(
	ctx context.Context,
	platformID uuid.UUID,
	username, notes string,
) (*domain.Account, error) {
	account, err := domain.NewAccount(platformID, username, notes)
	if err != nil {
		return nil, &ServiceError{
			Operation: "create_account",
			Message:   "invalid account data",
			Err:       err,
		}
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		// Verify the platform exists so the caller gets a clear error
		// instead of a foreign key violation.
		if _, err := s.platformStore.WithTx(tx).GetByID(ctx, platformID); err != nil {
			return err
		}
		return s.accountStore.WithTx(tx).Create(ctx, account)
	})
	if err != nil {
		if errors.Is(err, store.ErrPlatformNotFound) {
			return nil, ErrPlatformNotFound
		}
		s.logger.Error("failed to create account",
			"error", err,
			"platform_id", platformID,
			"username", username)
		return nil, &ServiceError{
			Operation: "create_account",
			Message:   "failed to save account",
			Err:       err,
		}
	}

	s.logger.Info("account created",
		"account_id", account.ID,
		"platform_id", platformID,
		"username", username)
	return account, nil
}

func (s *accountServiceImpl) GetAccount(
	ctx context.Context,
	id uuid.UUID,
) (*domain.Account, error) {
	account, err := s.accountStore.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, &ServiceError{
			Operation: "get_account",
			Message:   "failed to retrieve account",
			Err:       err,
		}
	}
	return account, nil
}

func (s *accountServiceImpl) ListAccountsByPlatform(
	ctx context.Context,
	platformID uuid.UUID,
) ([]*domain.Account, error) {
	accounts, err := s.accountStore.ListByPlatform(ctx, platformID)
	if err != nil {
		return nil, &ServiceError{
			Operation: "list_accounts",
			Message:   fmt.Sprintf("failed to list accounts for platform %s", platformID),
			Err:       err,
		}
	}
	return accounts, nil
}

func (s *accountServiceImpl) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.accountStore.WithTx(tx).Delete(ctx, id)
	})
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		s.logger.Error("failed to delete account", "error", err, "account_id", id)
		return &ServiceError{
			Operation: "delete_account",
			Message:   fmt.Sprintf("failed to delete account %s", id),
			Err:       err,
		}
	}

	s.logger.Info("account deleted", "account_id", id)
	return nil
}

func (s *accountServiceImpl) GetDashboardSummary(
	ctx context.Context,
) ([]*store.AccountSummary, error) {
	summary, err := s.accountStore.GetDashboardSummary(ctx)
	if err != nil {
		return nil, &ServiceError{
			Operation: "get_dashboard_summary",
			Message:   "failed to aggregate dashboard data",
			Err:       err,
		}
	}
	return summary, nil
}
