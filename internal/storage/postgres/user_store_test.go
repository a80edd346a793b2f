package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/storage"
)

func TestUserStore_CreateAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewUserStore(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	user := &domain.User{
		ID:            "user-1",
		Name:          "Alice",
		Email:         "Alice@Example.com",
		PasswordHash:  "scrypt$abc",
		Role:          domain.UserRoleIssuer,
		Wallet:        "0x71C7656EC7ab88b098defB751B7401B5f6d8976F",
		Currency:      domain.CurrencyEUR,
		KYCVerifiedAt: ptr(now),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, store.Create(ctx, user))

	got, err := store.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, domain.UserRoleIssuer, got.Role)
	assert.Equal(t, domain.CurrencyEUR, got.Currency)
	require.NotNil(t, got.KYCVerifiedAt)
	assert.True(t, now.Equal(*got.KYCVerifiedAt))
	assert.Nil(t, got.LastLoginAt)

	byWallet, err := store.GetByWallet(ctx, "0x71c7656ec7ab88b098defb751b7401b5f6d8976f")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byWallet.ID)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUserStore_DuplicateEmail(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewUserStore(pool)

	require.NoError(t, store.Create(ctx, &domain.User{ID: "u1", Email: "a@x.io", CreatedAt: time.Now(), UpdatedAt: time.Now()}))
	err := store.Create(ctx, &domain.User{ID: "u2", Email: "A@X.IO", CreatedAt: time.Now(), UpdatedAt: time.Now()})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestUserStore_UpdateAndList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewUserStore(pool)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"u1", "u2", "u3"} {
		ts := base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, store.Create(ctx, &domain.User{ID: id, Email: id + "@x.io", Role: domain.UserRoleUser, CreatedAt: ts, UpdatedAt: ts}))
	}

	u, err := store.GetByID(ctx, "u1")
	require.NoError(t, err)
	u.PincodeEnabled = true
	u.PincodeVerificationID = "ver-1"
	u.UpdatedAt = base.Add(24 * time.Hour)
	require.NoError(t, store.Update(ctx, u))

	got, err := store.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, got.PincodeEnabled)
	assert.Equal(t, "ver-1", got.VerificationID(domain.VerificationPincode))

	assert.ErrorIs(t, store.Update(ctx, &domain.User{ID: "missing", Email: "m@x.io"}), storage.ErrNotFound)

	page, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "u3", page[0].ID)
}
