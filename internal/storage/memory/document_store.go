package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/storage"
)

// DocumentStore is an in-memory implementation of storage.DocumentStore.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]*domain.Document
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]*domain.Document)}
}

// Insert adds a document.
func (s *DocumentStore) Insert(_ context.Context, d *domain.Document) error {
	if d == nil || d.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[d.ID]; exists {
		return storage.ErrDuplicateKey
	}
	docCopy := *d
	s.docs[d.ID] = &docCopy
	return nil
}

// Get retrieves a document.
func (s *DocumentStore) Get(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, exists := s.docs[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	docCopy := *d
	return &docCopy, nil
}

// ListByAsset returns documents of an asset, newest first.
func (s *DocumentStore) ListByAsset(_ context.Context, asset string) ([]*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*domain.Document{}
	for _, d := range s.docs {
		if strings.EqualFold(d.Asset, asset) {
			docCopy := *d
			out = append(out, &docCopy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out, nil
}

// Delete removes a document.
func (s *DocumentStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[id]; !exists {
		return storage.ErrNotFound
	}
	delete(s.docs, id)
	return nil
}

var _ storage.DocumentStore = (*DocumentStore)(nil)
