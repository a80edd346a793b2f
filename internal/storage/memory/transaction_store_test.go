package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/storage"
)

func TestTransactionStore_InsertAndUpdate(t *testing.T) {
	store := NewTransactionStore()
	ctx := context.Background()

	tx := &domain.Transaction{Hash: "0xABC", From: "0xme", Function: "mint", Status: domain.TxStatusPending}
	if err := store.Insert(ctx, tx); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, &domain.Transaction{Hash: "0xabc"}); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	receipt := &domain.Receipt{Status: "Reverted", BlockNumber: 12, GasUsed: "21000", RevertReason: "paused"}
	if err := store.UpdateStatus(ctx, "0xabc", domain.TxStatusReverted, receipt); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	got, _ := store.Get(ctx, "0xAbc")
	if got.Status != domain.TxStatusReverted || got.BlockNumber != 12 || got.RevertReason != "paused" {
		t.Errorf("unexpected transaction: %+v", got)
	}

	if err := store.UpdateStatus(ctx, "0xmissing", domain.TxStatusSuccess, nil); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTransactionStore_ListByAccount(t *testing.T) {
	store := NewTransactionStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	store.Insert(ctx, &domain.Transaction{Hash: "0x1", From: "0xMe", CreatedAt: base})
	store.Insert(ctx, &domain.Transaction{Hash: "0x2", From: "0xme", CreatedAt: base.Add(time.Minute)})
	store.Insert(ctx, &domain.Transaction{Hash: "0x3", From: "0xother", CreatedAt: base})

	txs, _ := store.ListByAccount(ctx, "0xME", 10, 0)
	if len(txs) != 2 || txs[0].Hash != "0x2" {
		t.Errorf("unexpected list: %+v", txs)
	}
}
