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

func TestTransactionStore_InsertUpdateList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTransactionStore(pool)
	now := time.Now().UTC()

	tx := &domain.Transaction{Hash: "0xABC", From: "0xMe", Function: "mint", Asset: "0xa", Status: domain.TxStatusPending, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.Insert(ctx, tx))
	assert.ErrorIs(t, store.Insert(ctx, &domain.Transaction{Hash: "0xabc", From: "0xMe", Function: "mint", CreatedAt: now, UpdatedAt: now}), storage.ErrDuplicateKey)

	require.NoError(t, store.UpdateStatus(ctx, "0xAbC", domain.TxStatusSuccess, &domain.Receipt{BlockNumber: 42, GasUsed: "50000"}))
	got, err := store.Get(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusSuccess, got.Status)
	assert.Equal(t, int64(42), got.BlockNumber)

	// A status-only update keeps receipt fields
	require.NoError(t, store.UpdateStatus(ctx, "0xabc", domain.TxStatusTimeout, nil))
	got, err = store.Get(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusTimeout, got.Status)
	assert.Equal(t, "50000", got.GasUsed)

	assert.ErrorIs(t, store.UpdateStatus(ctx, "0xnone", domain.TxStatusSuccess, nil), storage.ErrNotFound)

	require.NoError(t, store.Insert(ctx, &domain.Transaction{Hash: "0xdef", From: "0xme", Function: "burn", CreatedAt: now.Add(time.Second), UpdatedAt: now}))
	list, err := store.ListByAccount(ctx, "0xME", 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "0xdef", list[0].Hash)
}
