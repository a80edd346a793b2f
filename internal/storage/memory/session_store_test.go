package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/storage"
)

func TestSessionStore_Lifecycle(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()
	now := time.Now()

	sess := &domain.Session{Token: "t1", UserID: "u1", ExpiresAt: now.Add(time.Hour)}
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.Create(ctx, sess); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	later := now.Add(48 * time.Hour)
	if err := store.Refresh(ctx, "t1", later, now); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	got, _ := store.Get(ctx, "t1")
	if !got.ExpiresAt.Equal(later) {
		t.Errorf("ExpiresAt mismatch: got %v, want %v", got.ExpiresAt, later)
	}

	if err := store.Delete(ctx, "t1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "t1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionStore_DeleteByUserAndExpired(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()
	now := time.Now()

	store.Create(ctx, &domain.Session{Token: "a", UserID: "u1", ExpiresAt: now.Add(time.Hour)})
	store.Create(ctx, &domain.Session{Token: "b", UserID: "u1", ExpiresAt: now.Add(time.Hour)})
	store.Create(ctx, &domain.Session{Token: "c", UserID: "u2", ExpiresAt: now.Add(-time.Minute)})
	store.Create(ctx, &domain.Session{Token: "d", UserID: "u2", ExpiresAt: now.Add(time.Hour)})

	store.DeleteByUser(ctx, "u1")
	if _, err := store.Get(ctx, "a"); !errors.Is(err, storage.ErrNotFound) {
		t.Error("session a should be deleted")
	}

	n, err := store.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 expired session, got %d", n)
	}
	if _, err := store.Get(ctx, "d"); err != nil {
		t.Errorf("session d should survive: %v", err)
	}
}
