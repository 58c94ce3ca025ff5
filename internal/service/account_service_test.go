package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadencehq/cadence-api/internal/domain"
	"github.com/cadencehq/cadence-api/internal/store"
)

type accountServiceFixture struct {
	service   AccountService
	accounts  *mockAccountStore
	platforms *mockPlatformStore
}

func newAccountServiceFixture(t *testing.T) *accountServiceFixture {
	t.Helper()

	accounts := newMockAccountStore()
	platforms := newMockPlatformStore()

	svc, err := NewAccountService(newFakeDB(t), accounts, platforms, discardLogger())
	require.NoError(t, err)

	return &accountServiceFixture{service: svc, accounts: accounts, platforms: platforms}
}

func (f *accountServiceFixture) seedPlatform(t *testing.T) *domain.Platform {
	t.Helper()

	platform, err := domain.NewPlatform("instagram", nil)
	require.NoError(t, err)
	f.platforms.put(platform)
	return platform
}

func TestCreateAccount(t *testing.T) {
	t.Parallel()

	f := newAccountServiceFixture(t)
	platform := f.seedPlatform(t)

	account, err := f.service.CreateAccount(context.Background(), platform.ID, "studio_cat", "main account")
	require.NoError(t, err)
	assert.Equal(t, platform.ID, account.PlatformID)
	assert.Equal(t, "studio_cat", account.Username)
	assert.Equal(t, "main account", account.Notes)

	stored, err := f.accounts.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, "studio_cat", stored.Username)
}

func TestCreateAccountUnknownPlatform(t *testing.T) {
	t.Parallel()

	f := newAccountServiceFixture(t)

	_, err := f.service.CreateAccount(context.Background(), uuid.New(), "studio_cat", "")
	assert.True(t, errors.Is(err, ErrPlatformNotFound),
		"a missing platform should be reported, not surfaced as a constraint violation")
}

func TestListAccountsByPlatform(t *testing.T) {
	t.Parallel()

	f := newAccountServiceFixture(t)
	platform := f.seedPlatform(t)

	_, err := f.service.CreateAccount(context.Background(), platform.ID, "zeta", "")
	require.NoError(t, err)
	_, err = f.service.CreateAccount(context.Background(), platform.ID, "alpha", "")
	require.NoError(t, err)

	accounts, err := f.service.ListAccountsByPlatform(context.Background(), platform.ID)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "alpha", accounts[0].Username)
	assert.Equal(t, "zeta", accounts[1].Username)
}

func TestDeleteAccount(t *testing.T) {
	t.Parallel()

	f := newAccountServiceFixture(t)
	platform := f.seedPlatform(t)

	account, err := f.service.CreateAccount(context.Background(), platform.ID, "studio_cat", "")
	require.NoError(t, err)

	require.NoError(t, f.service.DeleteAccount(context.Background(), account.ID))

	err = f.service.DeleteAccount(context.Background(), account.ID)
	assert.True(t, errors.Is(err, ErrAccountNotFound))
}

func TestGetAccountNotFound(t *testing.T) {
	t.Parallel()

	f := newAccountServiceFixture(t)

	_, err := f.service.GetAccount(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, ErrAccountNotFound))
}

func TestGetDashboardSummary(t *testing.T) {
	t.Parallel()

	f := newAccountServiceFixture(t)
	f.accounts.summaries = []*store.AccountSummary{
		{
			AccountID:    uuid.New(),
			PlatformName: "instagram",
			Username:     "studio_cat",
			WaitingCount: 3,
			FailedCount:  1,
		},
	}

	summaries, err := f.service.GetDashboardSummary(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "studio_cat", summaries[0].Username)
	assert.Equal(t, 3, summaries[0].WaitingCount)
}
