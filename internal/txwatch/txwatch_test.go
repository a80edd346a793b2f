package txwatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/storage/memory"
)

type fakeSource struct {
	mu      sync.Mutex
	misses  int
	calls   int
	err     error
	receipt *domain.Receipt
}

func (f *fakeSource) GetTransaction(_ context.Context, hash string) (*domain.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.calls <= f.misses || f.receipt == nil {
		return nil, nil
	}
	r := *f.receipt
	return &r, nil
}

type fakeSubscriber struct {
	receipt *domain.Receipt
	err     error
	stopped bool
}

func (f *fakeSubscriber) SubscribeTransaction(_ context.Context, hash string) (<-chan *domain.Receipt, func(), error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	ch := make(chan *domain.Receipt, 1)
	if f.receipt != nil {
		ch <- f.receipt
	}
	close(ch)
	return ch, func() { f.stopped = true }, nil
}

func seedTx(t *testing.T, store *memory.TransactionStore, hash string) {
	t.Helper()
	now := time.Now()
	err := store.Insert(context.Background(), &domain.Transaction{
		Hash: hash, From: "0xme", Function: "mint", Status: domain.TxStatusPending, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
}

func TestWait_PollsUntilReceipt(t *testing.T) {
	store := memory.NewTransactionStore()
	seedTx(t, store, "0xaa")

	src := &fakeSource{misses: 2, receipt: &domain.Receipt{TransactionHash: "0xaa", Status: "Success", BlockNumber: 7}}
	w := New(Options{Source: src, Store: store, PollInterval: 5 * time.Millisecond, Timeout: time.Second})

	r, err := w.Wait(context.Background(), "0xaa")
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if r.BlockNumber != 7 {
		t.Errorf("BlockNumber = %d, want 7", r.BlockNumber)
	}
	if src.calls != 3 {
		t.Errorf("calls = %d, want 3", src.calls)
	}

	tx, err := store.Get(context.Background(), "0xaa")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if tx.Status != domain.TxStatusSuccess || tx.BlockNumber != 7 {
		t.Errorf("stored tx = %+v", tx)
	}
}

func TestWait_Reverted(t *testing.T) {
	store := memory.NewTransactionStore()
	seedTx(t, store, "0xbb")

	src := &fakeSource{receipt: &domain.Receipt{Status: "Reverted", RevertReason: "paused"}}
	w := New(Options{Source: src, Store: store, PollInterval: time.Millisecond, Timeout: time.Second})

	r, err := w.Wait(context.Background(), "0xbb")
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if r.Succeeded() {
		t.Error("receipt should not succeed")
	}
	tx, _ := store.Get(context.Background(), "0xbb")
	if tx.Status != domain.TxStatusReverted || tx.RevertReason != "paused" {
		t.Errorf("stored tx = %+v", tx)
	}
}

func TestWait_Timeout(t *testing.T) {
	store := memory.NewTransactionStore()
	seedTx(t, store, "0xcc")

	w := New(Options{Source: &fakeSource{}, Store: store, PollInterval: 5 * time.Millisecond, Timeout: 30 * time.Millisecond})

	_, err := w.Wait(context.Background(), "0xcc")
	if !errors.Is(err, ErrReceiptTimeout) {
		t.Fatalf("err = %v, want ErrReceiptTimeout", err)
	}
	tx, _ := store.Get(context.Background(), "0xcc")
	if tx.Status != domain.TxStatusTimeout {
		t.Errorf("status = %s, want timeout", tx.Status)
	}
}

func TestWait_CallerCancel(t *testing.T) {
	w := New(Options{Source: &fakeSource{}, PollInterval: 5 * time.Millisecond, Timeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.Wait(ctx, "0xdd")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestWait_TransientErrorsRetried(t *testing.T) {
	src := &fakeSource{err: errors.New("connection reset")}
	w := New(Options{Source: src, PollInterval: 2 * time.Millisecond, Timeout: 20 * time.Millisecond})

	_, err := w.Wait(context.Background(), "0xee")
	if !errors.Is(err, ErrReceiptTimeout) {
		t.Fatalf("err = %v, want ErrReceiptTimeout", err)
	}
	if src.calls < 2 {
		t.Errorf("calls = %d, want retries", src.calls)
	}
}

func TestWait_Subscription(t *testing.T) {
	src := &fakeSource{}
	sub := &fakeSubscriber{receipt: &domain.Receipt{Status: "Success", BlockNumber: 9}}
	w := New(Options{Source: src, Subscriber: sub, PollInterval: time.Millisecond, Timeout: time.Second})

	r, err := w.Wait(context.Background(), "0xff")
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if r.BlockNumber != 9 {
		t.Errorf("BlockNumber = %d, want 9", r.BlockNumber)
	}
	if src.calls != 0 {
		t.Errorf("polled %d times, want 0", src.calls)
	}
	if !sub.stopped {
		t.Error("subscription not stopped")
	}
}

func TestWait_SubscriptionFallsBackToPolling(t *testing.T) {
	src := &fakeSource{receipt: &domain.Receipt{Status: "Success", BlockNumber: 3}}
	sub := &fakeSubscriber{err: errors.New("portal subscriptions not configured")}
	w := New(Options{Source: src, Subscriber: sub, PollInterval: time.Millisecond, Timeout: time.Second})

	r, err := w.Wait(context.Background(), "0x11")
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if r.BlockNumber != 3 {
		t.Errorf("BlockNumber = %d, want 3", r.BlockNumber)
	}

	// A stream that closes without a receipt also falls back.
	w = New(Options{Source: src, Subscriber: &fakeSubscriber{}, PollInterval: time.Millisecond, Timeout: time.Second})
	if _, err := w.Wait(context.Background(), "0x11"); err != nil {
		t.Fatalf("Wait after empty stream: %v", err)
	}
}
