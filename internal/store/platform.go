package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence-api/internal/domain"
)

// PlatformStore defines the interface for platform data persistence.
type PlatformStore interface {
	// Create saves a new platform to the store.
	// Returns validation errors if the platform data is invalid.
	Create(ctx context.Context, platform *domain.Platform) error

	// GetByID retrieves a platform by its unique ID.
	// Returns ErrPlatformNotFound if the platform does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Platform, error)

	// List retrieves all platforms ordered by name.
	List(ctx context.Context) ([]*domain.Platform, error)

	// Update saves changes to an existing platform.
	// Returns ErrPlatformNotFound if the platform does not exist.
	Update(ctx context.Context, platform *domain.Platform) error

	// Delete removes a platform from the store by its ID. Associated
	// accounts and goals are removed by database-level cascade deletes.
	// Returns ErrPlatformNotFound if the platform does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new PlatformStore instance that uses the provided
	// transaction. The transaction should be created and managed by the
	// caller (typically a service).
	WithTx(tx *sql.Tx) PlatformStore
}
