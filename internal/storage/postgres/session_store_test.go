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

func TestSessionStore_Lifecycle(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	userID := createTestUser(t, ctx, pool, "sess-user")
	store := NewSessionStore(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	sess := &domain.Session{Token: "tok-1", UserID: userID, IPAddress: "10.0.0.1", ExpiresAt: now.Add(time.Hour), CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.Create(ctx, sess))
	assert.ErrorIs(t, store.Create(ctx, sess), storage.ErrDuplicateKey)

	got, err := store.Get(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", got.IPAddress)
	assert.True(t, sess.ExpiresAt.Equal(got.ExpiresAt))

	later := now.Add(7 * 24 * time.Hour)
	require.NoError(t, store.Refresh(ctx, "tok-1", later, now))
	got, err = store.Get(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, later.Equal(got.ExpiresAt))

	assert.ErrorIs(t, store.Refresh(ctx, "missing", later, now), storage.ErrNotFound)

	require.NoError(t, store.Delete(ctx, "tok-1"))
	_, err = store.Get(ctx, "tok-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSessionStore_DeleteExpired(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	userID := createTestUser(t, ctx, pool, "exp-user")
	store := NewSessionStore(pool)
	now := time.Now().UTC()

	require.NoError(t, store.Create(ctx, &domain.Session{Token: "old", UserID: userID, ExpiresAt: now.Add(-time.Minute), CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, store.Create(ctx, &domain.Session{Token: "new", UserID: userID, ExpiresAt: now.Add(time.Hour), CreatedAt: now, UpdatedAt: now}))

	n, err := store.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, store.DeleteByUser(ctx, userID))
	_, err = store.Get(ctx, "new")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
