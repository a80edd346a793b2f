package memory

import (
	"context"
	"sync"

	"asset-tokenization-kit/internal/storage"
)

// SettingsStore is an in-memory implementation of storage.SettingsStore.
type SettingsStore struct {
	mu       sync.RWMutex
	settings map[string]string
}

// NewSettingsStore creates a new in-memory settings store.
func NewSettingsStore() *SettingsStore {
	return &SettingsStore{settings: make(map[string]string)}
}

// Get retrieves a setting.
func (s *SettingsStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.settings[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

// Set inserts or replaces a setting.
func (s *SettingsStore) Set(_ context.Context, key, value string) error {
	if key == "" {
		return storage.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = value
	return nil
}

// All returns every setting.
func (s *SettingsStore) All(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.settings))
	for k, v := range s.settings {
		out[k] = v
	}
	return out, nil
}

var _ storage.SettingsStore = (*SettingsStore)(nil)

// NewStores returns a full set of in-memory stores.
func NewStores() *storage.Stores {
	return &storage.Stores{
		Users:         NewUserStore(),
		Sessions:      NewSessionStore(),
		ExchangeRates: NewExchangeRateStore(),
		RateHistory:   NewRateHistoryStore(),
		Transactions:  NewTransactionStore(),
		Documents:     NewDocumentStore(),
		Settings:      NewSettingsStore(),
	}
}
