package storage

import (
	"context"
	"time"

	"asset-tokenization-kit/internal/domain"
)

// UserStore provides access to users storage.
type UserStore interface {
	// Create adds a user. Returns ErrDuplicateKey if the email or id exists.
	Create(ctx context.Context, u *domain.User) error

	// GetByID retrieves a user. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by case-insensitive email. Returns ErrNotFound if not exists.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByWallet retrieves a user by wallet address. Returns ErrNotFound if not exists.
	GetByWallet(ctx context.Context, wallet string) (*domain.User, error)

	// Update replaces the mutable fields of an existing user. Returns ErrNotFound if not exists.
	Update(ctx context.Context, u *domain.User) error

	// List returns users ordered by creation time, newest first.
	List(ctx context.Context, limit, offset int) ([]*domain.User, error)
}

// SessionStore provides access to sessions storage.
type SessionStore interface {
	// Create adds a session. Returns ErrDuplicateKey if the token exists.
	Create(ctx context.Context, s *domain.Session) error

	// Get retrieves a session by token. Returns ErrNotFound if not exists.
	Get(ctx context.Context, token string) (*domain.Session, error)

	// Refresh moves the expiry of a session. Returns ErrNotFound if not exists.
	Refresh(ctx context.Context, token string, expiresAt, updatedAt time.Time) error

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteByUser removes every session of a user.
	DeleteByUser(ctx context.Context, userID string) error

	// DeleteExpired removes sessions expired at now and returns how many.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// ExchangeRateStore provides access to the current currency_rates table.
type ExchangeRateStore interface {
	// Upsert inserts or replaces rates keyed by (base, quote).
	Upsert(ctx context.Context, rates []domain.ExchangeRate) error

	// Get retrieves the rate for a pair. Returns ErrNotFound if not exists.
	Get(ctx context.Context, base, quote domain.Currency) (*domain.ExchangeRate, error)

	// List returns every stored rate ordered by base, quote.
	List(ctx context.Context) ([]domain.ExchangeRate, error)
}

// RateHistoryStore provides append-only exchange-rate history.
type RateHistoryStore interface {
	// Append adds rate observations.
	Append(ctx context.Context, rates []domain.ExchangeRate) error

	// History returns observations of a pair within [start, end], oldest first.
	History(ctx context.Context, base, quote domain.Currency, start, end time.Time) ([]domain.ExchangeRate, error)
}

// TransactionStore provides access to relayed transactions.
type TransactionStore interface {
	// Insert adds a transaction. Returns ErrDuplicateKey if the hash exists.
	Insert(ctx context.Context, tx *domain.Transaction) error

	// Get retrieves a transaction by hash. Returns ErrNotFound if not exists.
	Get(ctx context.Context, hash string) (*domain.Transaction, error)

	// UpdateStatus records the outcome of a transaction. Returns ErrNotFound if not exists.
	UpdateStatus(ctx context.Context, hash string, status domain.TransactionStatus, receipt *domain.Receipt) error

	// ListByAccount returns transactions sent from account, newest first.
	ListByAccount(ctx context.Context, from string, limit, offset int) ([]*domain.Transaction, error)
}

// DocumentStore provides access to uploaded document records.
type DocumentStore interface {
	// Insert adds a document. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, d *domain.Document) error

	// Get retrieves a document. Returns ErrNotFound if not exists.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// ListByAsset returns documents of an asset, newest first.
	ListByAsset(ctx context.Context, asset string) ([]*domain.Document, error)

	// Delete removes a document. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, id string) error
}

// SettingsStore provides access to platform key/value settings.
type SettingsStore interface {
	// Get retrieves a setting. Returns ErrNotFound if not exists.
	Get(ctx context.Context, key string) (string, error)

	// Set inserts or replaces a setting.
	Set(ctx context.Context, key, value string) error

	// All returns every setting.
	All(ctx context.Context) (map[string]string, error)
}

// Well-known setting keys.
const (
	SettingBaseCurrency = "base_currency"
)

// Stores bundles every store the application uses.
type Stores struct {
	Users         UserStore
	Sessions      SessionStore
	ExchangeRates ExchangeRateStore
	RateHistory   RateHistoryStore
	Transactions  TransactionStore
	Documents     DocumentStore
	Settings      SettingsStore
}
