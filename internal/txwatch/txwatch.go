// Package txwatch waits for relayed transactions to be mined.
package txwatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/logging"
	"asset-tokenization-kit/internal/observability"
	"asset-tokenization-kit/internal/storage"
)

const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultTimeout      = 2 * time.Minute
)

// ErrReceiptTimeout is returned when no receipt appears before the timeout.
var ErrReceiptTimeout = errors.New("timed out waiting for transaction receipt")

// ReceiptSource looks up a receipt. A nil receipt means not yet mined.
type ReceiptSource interface {
	GetTransaction(ctx context.Context, hash string) (*domain.Receipt, error)
}

// Subscriber streams a receipt for hash. The channel yields at most one
// receipt and is then closed.
type Subscriber interface {
	SubscribeTransaction(ctx context.Context, hash string) (<-chan *domain.Receipt, func(), error)
}

// Watcher polls (or subscribes) for receipts and records the outcome.
type Watcher struct {
	source       ReceiptSource
	subscriber   Subscriber
	store        storage.TransactionStore
	pollInterval time.Duration
	timeout      time.Duration
	log          *logrus.Entry
}

// Options contains configuration for creating a Watcher.
type Options struct {
	Source       ReceiptSource            // required
	Subscriber   Subscriber               // optional, polling is the fallback
	Store        storage.TransactionStore // optional, receives status updates
	PollInterval time.Duration            // Default: 500ms
	Timeout      time.Duration            // Default: 2m
	Logger       logrus.FieldLogger
}

// New creates a Watcher.
func New(opts Options) *Watcher {
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Watcher{
		source:       opts.Source,
		subscriber:   opts.Subscriber,
		store:        opts.Store,
		pollInterval: pollInterval,
		timeout:      timeout,
		log:          logging.Component(opts.Logger, "txwatch"),
	}
}

// Timeout returns the configured receipt timeout.
func (w *Watcher) Timeout() time.Duration {
	return w.timeout
}

// Wait blocks until hash has a receipt, the timeout elapses or ctx is done.
// A reverted transaction is returned as a receipt, not an error.
func (w *Watcher) Wait(ctx context.Context, hash string) (*domain.Receipt, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	receipt, err := w.wait(ctx, hash)
	elapsed := time.Since(start).Seconds()

	switch {
	case err == nil:
		status := domain.TxStatusSuccess
		outcome := "success"
		if !receipt.Succeeded() {
			status, outcome = domain.TxStatusReverted, "reverted"
		}
		observability.RecordReceiptWait(outcome, elapsed)
		w.record(ctx, hash, status, receipt)
		return receipt, nil
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil:
		observability.RecordReceiptWait("timeout", elapsed)
		// The wait context is spent; use a fresh one for the status write.
		recordCtx, recordCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer recordCancel()
		w.record(recordCtx, hash, domain.TxStatusTimeout, nil)
		return nil, fmt.Errorf("%w: %s after %s", ErrReceiptTimeout, hash, w.timeout)
	default:
		observability.RecordReceiptWait("error", elapsed)
		return nil, err
	}
}

func (w *Watcher) wait(ctx context.Context, hash string) (*domain.Receipt, error) {
	if w.subscriber != nil {
		receipt, err := w.subscribe(ctx, hash)
		if receipt != nil || ctx.Err() != nil {
			return receipt, err
		}
		if err != nil {
			w.log.WithError(err).WithField("tx", hash).Debug("subscription unavailable, polling")
		}
	}
	return w.poll(ctx, hash)
}

// subscribe returns (nil, nil) when the stream ends without a receipt.
func (w *Watcher) subscribe(ctx context.Context, hash string) (*domain.Receipt, error) {
	ch, stop, err := w.subscriber.SubscribeTransaction(ctx, hash)
	if err != nil {
		return nil, err
	}
	defer stop()

	select {
	case r, ok := <-ch:
		if !ok {
			return nil, nil
		}
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (w *Watcher) poll(ctx context.Context, hash string) (*domain.Receipt, error) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := w.source.GetTransaction(ctx, hash)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Transient lookup failures are retried on the next tick.
			w.log.WithError(err).WithField("tx", hash).Warn("receipt lookup failed")
		} else if receipt != nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Watcher) record(ctx context.Context, hash string, status domain.TransactionStatus, receipt *domain.Receipt) {
	if w.store == nil {
		return
	}
	if err := w.store.UpdateStatus(ctx, hash, status, receipt); err != nil && !errors.Is(err, storage.ErrNotFound) {
		w.log.WithError(err).WithField("tx", hash).Warn("record transaction status")
	}
}
