// Package postgres implements the store interfaces on PostgreSQL. All
// structured fields (policies, strategies, configs, account ID lists) are
// persisted as JSONB; database errors are normalized through MapError.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence-api/internal/domain"
	"github.com/cadencehq/cadence-api/internal/platform/logger"
	"github.com/cadencehq/cadence-api/internal/store"
)

// PlatformStore implements the store.PlatformStore interface
// using a PostgreSQL database as the storage backend.
type PlatformStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPlatformStore creates a new PostgreSQL implementation of the
// store.PlatformStore interface. It accepts a database connection or
// transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPlatformStore(db store.DBTX, logger *slog.Logger) *PlatformStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PlatformStore{
		db:     db,
		logger: logger.With(slog.String("component", "platform_store")),
	}
}

// Ensure PlatformStore implements store.PlatformStore interface
var _ store.PlatformStore = (*PlatformStore)(nil)

// WithTx implements store.PlatformStore.WithTx
func (s *PlatformStore) WithTx(tx *sql.Tx) store.PlatformStore {
	return &PlatformStore{db: tx, logger: s.logger}
}

// Create implements store.PlatformStore.Create
// It saves a new platform to the database, handling domain validation.
func (s *PlatformStore) Create(ctx context.Context, platform *domain.Platform) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := platform.Validate(); err != nil {
		log.Warn("platform validation failed during create",
			slog.String("error", err.Error()),
			slog.String("platform_id", platform.ID.String()))
		return err
	}

	configJSON, err := json.Marshal(platform.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal platform config: %w", err)
	}

	query := `
		INSERT INTO platforms (id, name, config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		platform.ID,
		platform.Name,
		configJSON,
		platform.CreatedAt,
		platform.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create platform",
			slog.String("error", err.Error()),
			slog.String("platform_id", platform.ID.String()))
		return MapError(err)
	}

	log.Info("platform created successfully",
		slog.String("platform_id", platform.ID.String()),
		slog.String("name", platform.Name))
	return nil
}

// GetByID implements store.PlatformStore.GetByID
// Returns store.ErrPlatformNotFound if the platform does not exist.
func (s *PlatformStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Platform, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, name, config, created_at, updated_at
		FROM platforms
		WHERE id = $1
	`

	platform, err := scanPlatform(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrPlatformNotFound
		}
		log.Error("failed to get platform by ID",
			slog.String("error", err.Error()),
			slog.String("platform_id", id.String()))
		return nil, MapError(err)
	}

	return platform, nil
}

// List implements store.PlatformStore.List
func (s *PlatformStore) List(ctx context.Context) ([]*domain.Platform, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, name, config, created_at, updated_at
		FROM platforms
		ORDER BY name ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to list platforms", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var platforms []*domain.Platform
	for rows.Next() {
		platform, err := scanPlatform(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan platform row: %w", err)
		}
		platforms = append(platforms, platform)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating platform rows: %w", err)
	}

	return platforms, nil
}

// Update implements store.PlatformStore.Update
// Returns store.ErrPlatformNotFound if the platform does not exist.
func (s *PlatformStore) Update(ctx context.Context, platform *domain.Platform) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := platform.Validate(); err != nil {
		return err
	}

	configJSON, err := json.Marshal(platform.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal platform config: %w", err)
	}

	query := `
		UPDATE platforms
		SET name = $1, config = $2, updated_at = $3
		WHERE id = $4
	`
	result, err := s.db.ExecContext(ctx, query,
		platform.Name,
		configJSON,
		platform.UpdatedAt,
		platform.ID,
	)
	if err != nil {
		log.Error("failed to update platform",
			slog.String("error", err.Error()),
			slog.String("platform_id", platform.ID.String()))
		return MapError(err)
	}

	return CheckRowsAffected(result, "platform")
}

// Delete implements store.PlatformStore.Delete
// Associated accounts and goals are removed by ON DELETE CASCADE.
func (s *PlatformStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM platforms WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete platform",
			slog.String("error", err.Error()),
			slog.String("platform_id", id.String()))
		return MapError(err)
	}

	return CheckRowsAffected(result, "platform")
}

// rowScanner abstracts *sql.Row and *sql.Rows so the scan helpers work with
// both QueryRowContext and QueryContext results.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlatform(row rowScanner) (*domain.Platform, error) {
	var platform domain.Platform
	var configJSON []byte

	err := row.Scan(
		&platform.ID,
		&platform.Name,
		&configJSON,
		&platform.CreatedAt,
		&platform.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(configJSON, &platform.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal platform config: %w", err)
	}

	return &platform, nil
}
