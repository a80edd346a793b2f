package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/storage"
)

type pairKey struct {
	base, quote domain.Currency
}

// ExchangeRateStore is an in-memory implementation of storage.ExchangeRateStore.
type ExchangeRateStore struct {
	mu    sync.RWMutex
	rates map[pairKey]domain.ExchangeRate
}

// NewExchangeRateStore creates a new in-memory exchange-rate store.
func NewExchangeRateStore() *ExchangeRateStore {
	return &ExchangeRateStore{rates: make(map[pairKey]domain.ExchangeRate)}
}

// Upsert inserts or replaces rates keyed by (base, quote).
func (s *ExchangeRateStore) Upsert(_ context.Context, rates []domain.ExchangeRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rates {
		if r.Base == "" || r.Quote == "" {
			return storage.ErrInvalidInput
		}
		s.rates[pairKey{r.Base, r.Quote}] = r
	}
	return nil
}

// Get retrieves the rate for a pair.
func (s *ExchangeRateStore) Get(_ context.Context, base, quote domain.Currency) (*domain.ExchangeRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, exists := s.rates[pairKey{base, quote}]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return &r, nil
}

// List returns every rate ordered by base, quote.
func (s *ExchangeRateStore) List(_ context.Context) ([]domain.ExchangeRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ExchangeRate, 0, len(s.rates))
	for _, r := range s.rates {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Base != out[j].Base {
			return out[i].Base < out[j].Base
		}
		return out[i].Quote < out[j].Quote
	})
	return out, nil
}

var _ storage.ExchangeRateStore = (*ExchangeRateStore)(nil)

// RateHistoryStore is an in-memory implementation of storage.RateHistoryStore.
type RateHistoryStore struct {
	mu      sync.RWMutex
	history []domain.ExchangeRate
}

// NewRateHistoryStore creates a new in-memory rate history store.
func NewRateHistoryStore() *RateHistoryStore {
	return &RateHistoryStore{}
}

// Append adds observations.
func (s *RateHistoryStore) Append(_ context.Context, rates []domain.ExchangeRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, rates...)
	return nil
}

// History returns observations of a pair within [start, end], oldest first.
func (s *RateHistoryStore) History(_ context.Context, base, quote domain.Currency, start, end time.Time) ([]domain.ExchangeRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ExchangeRate
	for _, r := range s.history {
		if r.Base != base || r.Quote != quote {
			continue
		}
		if r.EffectiveAt.Before(start) || r.EffectiveAt.After(end) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EffectiveAt.Before(out[j].EffectiveAt) })
	return out, nil
}

var _ storage.RateHistoryStore = (*RateHistoryStore)(nil)
