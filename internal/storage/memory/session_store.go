package memory

import (
	"context"
	"sync"
	"time"

	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/storage"
)

// SessionStore is an in-memory implementation of storage.SessionStore.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session // keyed by token
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*domain.Session)}
}

// Create adds a session. Returns ErrDuplicateKey if the token exists.
func (s *SessionStore) Create(_ context.Context, sess *domain.Session) error {
	if sess == nil || sess.Token == "" || sess.UserID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sess.Token]; exists {
		return storage.ErrDuplicateKey
	}
	sessCopy := *sess
	s.sessions[sess.Token] = &sessCopy
	return nil
}

// Get retrieves a session. Returns ErrNotFound if not exists.
func (s *SessionStore) Get(_ context.Context, token string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, exists := s.sessions[token]
	if !exists {
		return nil, storage.ErrNotFound
	}
	sessCopy := *sess
	return &sessCopy, nil
}

// Refresh moves the expiry of a session.
func (s *SessionStore) Refresh(_ context.Context, token string, expiresAt, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.sessions[token]
	if !exists {
		return storage.ErrNotFound
	}
	sess.ExpiresAt = expiresAt
	sess.UpdatedAt = updatedAt
	return nil
}

// Delete removes a session.
func (s *SessionStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

// DeleteByUser removes every session of a user.
func (s *SessionStore) DeleteByUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, token)
		}
	}
	return nil
}

// DeleteExpired removes sessions expired at now.
func (s *SessionStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for token, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, token)
			n++
		}
	}
	return n, nil
}

var _ storage.SessionStore = (*SessionStore)(nil)
