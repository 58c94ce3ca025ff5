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

// PlatformService provides platform-related operations.
type PlatformService interface {
	// CreatePlatform creates a new platform with the given name and
	// free-form configuration.
	CreatePlatform(ctx context.Context, name string, config map[string]any) (*domain.Platform, error)

	// GetPlatform retrieves a platform by its ID.
	GetPlatform(ctx context.Context, id uuid.UUID) (*domain.Platform, error)

	// ListPlatforms retrieves all platforms.
	ListPlatforms(ctx context.Context) ([]*domain.Platform, error)

	// UpdatePlatform replaces the name and configuration of an existing
	// platform.
	UpdatePlatform(ctx context.Context, id uuid.UUID, name string, config map[string]any) (*domain.Platform, error)

	// DeletePlatform removes a platform and, through database cascades,
	// its accounts, goals and tasks.
	DeletePlatform(ctx context.Context, id uuid.UUID) error
}

type platformServiceImpl struct {
	db            *sql.DB
	platformStore store.PlatformStore
	logger        *slog.Logger
}

// NewPlatformService creates a new PlatformService.
// It returns an error if any of the required dependencies are nil.
func NewPlatformService(
	db *sql.DB,
	platformStore store.PlatformStore,
	logger *slog.Logger,
) (PlatformService, error) {
	if db == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "db cannot be nil"}
	}
	if platformStore == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "platformStore cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &platformServiceImpl{
		db:            db,
		platformStore: platformStore,
		logger:        logger.With("component", "platform_service"),
	}, nil
}

func (s *platformServiceImpl) CreatePlatform(
	ctx context.Context,
	name string,
	config map[string]any,
) (*domain.Platform, error) {
	platform, err := domain.NewPlatform(name, config)
	if err != nil {
		return nil, &ServiceError{
			Operation: "create_platform",
			Message:   "invalid platform data",
			Err:       err,
		}
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.platformStore.WithTx(tx).Create(ctx, platform)
	})
	if err != nil {
		s.logger.Error("failed to create platform", "error", err, "name", name)
		return nil, &ServiceError{
			Operation: "create_platform",
			Message:   "failed to save platform",
			Err:       err,
		}
	}

	s.logger.Info("platform created", "platform_id", platform.ID, "name", platform.Name)
	return platform, nil
}

func (s *platformServiceImpl) GetPlatform(
	ctx context.Context,
	id uuid.UUID,
) (*domain.Platform, error) {
	platform, err := s.platformStore.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrPlatformNotFound) {
			return nil, ErrPlatformNotFound
		}
		return nil, &ServiceError{
			Operation: "get_platform",
			Message:   "failed to retrieve platform",
			Err:       err,
		}
	}
	return platform, nil
}

func (s *platformServiceImpl) ListPlatforms(ctx context.Context) ([]*domain.Platform, error) {
	platforms, err := s.platformStore.List(ctx)
	if err != nil {
		return nil, &ServiceError{
			Operation: "list_platforms",
			Message:   "failed to list platforms",
			Err:       err,
		}
	}
	return platforms, nil
}

func (s *platformServiceImpl) UpdatePlatform(
	ctx context.Context,
	id uuid.UUID,
	name string,
	config map[string]any,
) (*domain.Platform, error) {
	var platform *domain.Platform

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.platformStore.WithTx(tx)

		existing, err := txStore.GetByID(ctx, id)
		if err != nil {
			return err
		}

		existing.Name = name
		existing.Config = config
		if err := existing.Validate(); err != nil {
			return err
		}

		if err := txStore.Update(ctx, existing); err != nil {
			return err
		}

		platform = existing
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrPlatformNotFound) {
			return nil, ErrPlatformNotFound
		}
		s.logger.Error("failed to update platform", "error", err, "platform_id", id)
		return nil, &ServiceError{
			Operation: "update_platform",
			Message:   fmt.Sprintf("failed to update platform %s", id),
			Err:       err,
		}
	}

	s.logger.Info("platform updated", "platform_id", id)
	return platform, nil
}

func (s *platformServiceImpl) DeletePlatform(ctx context.Context, id uuid.UUID) error {
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.platformStore.WithTx(tx).Delete(ctx, id)
	})
	if err != nil {
		if errors.Is(err, store.ErrPlatformNotFound) {
			return ErrPlatformNotFound
		}
		s.logger.Error("failed to delete platform", "error", err, "platform_id", id)
		return &ServiceError{
			Operation: "delete_platform",
			Message:   fmt.Sprintf("failed to delete platform %s", id),
			Err:       err,
		}
	}

	s.logger.Info("platform deleted", "platform_id", id)
	return nil
}
