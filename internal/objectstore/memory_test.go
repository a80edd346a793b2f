package objectstore

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestMemory_PutPresignRemove(t *testing.T) {
	m := NewMemory("http://localhost:9000/documents")
	ctx := context.Background()

	if err := m.Put(ctx, "0xa/doc.pdf", strings.NewReader("hello"), 5, "application/pdf"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	data, ct, ok := m.Get("0xa/doc.pdf")
	if !ok || string(data) != "hello" || ct != "application/pdf" {
		t.Fatalf("unexpected object %q %q %v", data, ct, ok)
	}

	u, err := m.PresignedGet(ctx, "0xa/doc.pdf", 10*time.Minute)
	if err != nil {
		t.Fatalf("PresignedGet: %v", err)
	}
	if !strings.HasPrefix(u, "http://localhost:9000/documents/") || !strings.Contains(u, "expires=600") {
		t.Errorf("unexpected url %s", u)
	}

	if err := m.Remove(ctx, "0xa/doc.pdf"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := m.PresignedGet(ctx, "0xa/doc.pdf", 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemory_PutSizeMismatch(t *testing.T) {
	m := NewMemory("")
	err := m.Put(context.Background(), "k", strings.NewReader("abc"), 10, "text/plain")
	if err == nil {
		t.Error("expected size mismatch error")
	}
}
