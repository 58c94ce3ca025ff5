package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Account-specific validation errors
var (
	// ErrAccountIDEmpty is returned when an account ID is empty or nil.
	ErrAccountIDEmpty = errors.New("account ID cannot be empty")

	// ErrAccountPlatformIDEmpty is returned when an account's platform ID is empty or nil.
	ErrAccountPlatformIDEmpty = errors.New("account platform ID cannot be empty")

	// ErrAccountUsernameEmpty is returned when an account's username is empty.
	ErrAccountUsernameEmpty = errors.New("account username cannot be empty")
)

// Account represents a single user account on a platform. Goals fan their
// tasks out across the accounts they reference.
type Account struct {
	ID         uuid.UUID `json:"id"`
	PlatformID uuid.UUID `json:"platform_id"`
	Username   string    `json:"username"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewAccount creates a new Account with the given platform ID, username and
// optional notes. It generates a new UUID for the account ID and sets the
// creation/update timestamps. Returns an error if validation fails.
func NewAccount(platformID uuid.UUID, username, notes string) (*Account, error) {
	account := &Account{
		ID:         uuid.New(),
		PlatformID: platformID,
		Username:   username,
		Notes:      notes,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}

	if err := account.Validate(); err != nil {
		return nil, err
	}

	return account, nil
}

// Validate checks if the Account has valid data.
func (a *Account) Validate() error {
	if a.ID == uuid.Nil {
		return ErrAccountIDEmpty
	}

	if a.PlatformID == uuid.Nil {
		return ErrAccountPlatformIDEmpty
	}

	if a.Username == "" {
		return ErrAccountUsernameEmpty
	}

	return nil
}
