package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/storage"
)

// TransactionStore is an in-memory implementation of storage.TransactionStore.
type TransactionStore struct {
	mu  sync.RWMutex
	txs map[string]*domain.Transaction // keyed by lower-case hash
}

// NewTransactionStore creates a new in-memory transaction store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{txs: make(map[string]*domain.Transaction)}
}

// Insert adds a transaction. Returns ErrDuplicateKey if the hash exists.
func (s *TransactionStore) Insert(_ context.Context, tx *domain.Transaction) error {
	if tx == nil || tx.Hash == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(tx.Hash)
	if _, exists := s.txs[key]; exists {
		return storage.ErrDuplicateKey
	}
	txCopy := *tx
	s.txs[key] = &txCopy
	return nil
}

// Get retrieves a transaction by hash.
func (s *TransactionStore) Get(_ context.Context, hash string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, exists := s.txs[strings.ToLower(hash)]
	if !exists {
		return nil, storage.ErrNotFound
	}
	txCopy := *tx
	return &txCopy, nil
}

// UpdateStatus records the outcome of a transaction.
func (s *TransactionStore) UpdateStatus(_ context.Context, hash string, status domain.TransactionStatus, receipt *domain.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, exists := s.txs[strings.ToLower(hash)]
	if !exists {
		return storage.ErrNotFound
	}
	tx.Status = status
	if receipt != nil {
		tx.BlockNumber = receipt.BlockNumber
		tx.GasUsed = receipt.GasUsed
		tx.RevertReason = receipt.RevertReason
	}
	tx.UpdatedAt = time.Now().UTC()
	return nil
}

// ListByAccount returns transactions sent from account, newest first.
func (s *TransactionStore) ListByAccount(_ context.Context, from string, limit, offset int) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Transaction
	for _, tx := range s.txs {
		if strings.EqualFold(tx.From, from) {
			txCopy := *tx
			out = append(out, &txCopy)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Hash < out[j].Hash
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, limit, offset), nil
}

var _ storage.TransactionStore = (*TransactionStore)(nil)
