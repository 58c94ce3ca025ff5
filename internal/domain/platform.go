package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Platform-specific validation errors
var (
	// ErrPlatformIDEmpty is returned when a platform ID is empty or nil.
	ErrPlatformIDEmpty = errors.New("platform ID cannot be empty")

	// ErrPlatformNameEmpty is returned when a platform's name is empty.
	ErrPlatformNameEmpty = errors.New("platform name cannot be empty")
)

// Platform represents a target system (e.g. a social network) that goals and
// accounts belong to. Config holds free-form platform settings and is stored
// as JSONB.
type Platform struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Config    map[string]any `json:"config"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewPlatform creates a new Platform with the given name and optional config.
// It generates a new UUID for the platform ID and sets the creation/update
// timestamps. Returns an error if validation fails.
func NewPlatform(name string, config map[string]any) (*Platform, error) {
	if config == nil {
		config = map[string]any{}
	}

	platform := &Platform{
		ID:        uuid.New(),
		Name:      name,
		Config:    config,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := platform.Validate(); err != nil {
		return nil, err
	}

	return platform, nil
}

// Validate checks if the Platform has valid data.
func (p *Platform) Validate() error {
	if p.ID == uuid.Nil {
		return ErrPlatformIDEmpty
	}

	if p.Name == "" {
		return ErrPlatformNameEmpty
	}

	return nil
}
