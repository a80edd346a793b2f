package postgres

import (
	"context"
	"fmt"
	"time"

	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/storage"
)

// SessionStore implements storage.SessionStore using PostgreSQL.
type SessionStore struct {
	pool *Pool
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(pool *Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SessionStore = (*SessionStore)(nil)

// Create adds a session. Returns ErrDuplicateKey if the token exists.
func (s *SessionStore) Create(ctx context.Context, sess *domain.Session) (err error) {
	start := time.Now()
	defer func() { observe("sessions.create", start, err) }()
	if sess == nil || sess.Token == "" || sess.UserID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO sessions (token, user_id, ip_address, user_agent, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.pool.Exec(ctx, query,
		sess.Token, sess.UserID, sess.IPAddress, sess.UserAgent,
		sess.ExpiresAt, sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Get retrieves a session by token.
func (s *SessionStore) Get(ctx context.Context, token string) (sess *domain.Session, err error) {
	start := time.Now()
	defer func() { observe("sessions.get", start, err) }()

	query := `
		SELECT token, user_id, ip_address, user_agent, expires_at, created_at, updated_at
		FROM sessions
		WHERE token = $1
	`
	var out domain.Session
	err = s.pool.QueryRow(ctx, query, token).Scan(
		&out.Token, &out.UserID, &out.IPAddress, &out.UserAgent,
		&out.ExpiresAt, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &out, nil
}

// Refresh moves the expiry of a session.
func (s *SessionStore) Refresh(ctx context.Context, token string, expiresAt, updatedAt time.Time) (err error) {
	start := time.Now()
	defer func() { observe("sessions.refresh", start, err) }()

	tag, err := s.pool.Exec(ctx, `UPDATE sessions SET expires_at = $2, updated_at = $3 WHERE token = $1`, token, expiresAt, updatedAt)
	if err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes a session.
func (s *SessionStore) Delete(ctx context.Context, token string) (err error) {
	start := time.Now()
	defer func() { observe("sessions.delete", start, err) }()

	if _, err = s.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteByUser removes every session of a user.
func (s *SessionStore) DeleteByUser(ctx context.Context, userID string) (err error) {
	start := time.Now()
	defer func() { observe("sessions.delete_by_user", start, err) }()

	if _, err = s.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions expired at now.
func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (n int, err error) {
	start := time.Now()
	defer func() { observe("sessions.delete_expired", start, err) }()

	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
