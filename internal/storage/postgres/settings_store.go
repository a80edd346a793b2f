package postgres

import (
	"context"
	"fmt"
	"time"

	"asset-tokenization-kit/internal/storage"
)

// SettingsStore implements storage.SettingsStore using PostgreSQL.
type SettingsStore struct {
	pool *Pool
}

// NewSettingsStore creates a new SettingsStore.
func NewSettingsStore(pool *Pool) *SettingsStore {
	return &SettingsStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SettingsStore = (*SettingsStore)(nil)

// Get retrieves a setting.
func (s *SettingsStore) Get(ctx context.Context, key string) (v string, err error) {
	start := time.Now()
	defer func() { observe("settings.get", start, err) }()

	err = s.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&v)
	if err != nil {
		if isNotFoundError(err) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("get setting: %w", err)
	}
	return v, nil
}

// Set inserts or replaces a setting.
func (s *SettingsStore) Set(ctx context.Context, key, value string) (err error) {
	start := time.Now()
	defer func() { observe("settings.set", start, err) }()
	if key == "" {
		return storage.ErrInvalidInput
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, key, value)
	if err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}

// All returns every setting.
func (s *SettingsStore) All(ctx context.Context) (out map[string]string, err error) {
	start := time.Now()
	defer func() { observe("settings.all", start, err) }()

	rows, err := s.pool.Query(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	out = make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settings: %w", err)
	}
	return out, nil
}
