// Package memory provides in-memory implementations of the storage interfaces.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/storage"
)

// UserStore is an in-memory implementation of storage.UserStore.
type UserStore struct {
	mu      sync.RWMutex
	byID    map[string]*domain.User
	byEmail map[string]string // lower-case email -> id
}

// NewUserStore creates a new in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]string),
	}
}

// Create adds a user. Returns ErrDuplicateKey if the email or id exists.
func (s *UserStore) Create(_ context.Context, u *domain.User) error {
	if u == nil || u.ID == "" || u.Email == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(u.Email)
	if _, exists := s.byID[u.ID]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.byEmail[email]; exists {
		return storage.ErrDuplicateKey
	}

	userCopy := *u
	s.byID[u.ID] = &userCopy
	s.byEmail[email] = u.ID
	return nil
}

// GetByID retrieves a user. Returns ErrNotFound if not exists.
func (s *UserStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, exists := s.byID[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	userCopy := *u
	return &userCopy, nil
}

// GetByEmail retrieves a user by email. Returns ErrNotFound if not exists.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	id, exists := s.byEmail[strings.ToLower(email)]
	s.mu.RUnlock()
	if !exists {
		return nil, storage.ErrNotFound
	}
	return s.GetByID(ctx, id)
}

// GetByWallet retrieves a user by wallet. Returns ErrNotFound if not exists.
func (s *UserStore) GetByWallet(_ context.Context, wallet string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.byID {
		if strings.EqualFold(u.Wallet, wallet) {
			userCopy := *u
			return &userCopy, nil
		}
	}
	return nil, storage.ErrNotFound
}

// Update replaces an existing user. Returns ErrNotFound if not exists.
func (s *UserStore) Update(_ context.Context, u *domain.User) error {
	if u == nil || u.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, exists := s.byID[u.ID]
	if !exists {
		return storage.ErrNotFound
	}
	email := strings.ToLower(u.Email)
	if id, taken := s.byEmail[email]; taken && id != u.ID {
		return storage.ErrDuplicateKey
	}

	delete(s.byEmail, strings.ToLower(old.Email))
	userCopy := *u
	s.byID[u.ID] = &userCopy
	s.byEmail[email] = u.ID
	return nil
}

// List returns users newest first.
func (s *UserStore) List(_ context.Context, limit, offset int) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*domain.User, 0, len(s.byID))
	for _, u := range s.byID {
		userCopy := *u
		users = append(users, &userCopy)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return paginate(users, limit, offset), nil
}

// paginate returns items[offset:offset+limit]. A non-positive limit means no limit.
func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

var _ storage.UserStore = (*UserStore)(nil)
