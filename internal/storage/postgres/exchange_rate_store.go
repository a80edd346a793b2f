package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/storage"
)

// ExchangeRateStore implements storage.ExchangeRateStore using PostgreSQL.
type ExchangeRateStore struct {
	pool *Pool
}

// NewExchangeRateStore creates a new ExchangeRateStore.
func NewExchangeRateStore(pool *Pool) *ExchangeRateStore {
	return &ExchangeRateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ExchangeRateStore = (*ExchangeRateStore)(nil)

// Upsert inserts or replaces rates in one transaction.
func (s *ExchangeRateStore) Upsert(ctx context.Context, rates []domain.ExchangeRate) (err error) {
	start := time.Now()
	defer func() { observe("currency_rates.upsert", start, err) }()
	if len(rates) == 0 {
		return nil
	}

	query := `
		INSERT INTO currency_rates (base, quote, rate, provider, effective_at, updated_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6)
		ON CONFLICT (base, quote) DO UPDATE SET
			rate = EXCLUDED.rate,
			provider = EXCLUDED.provider,
			effective_at = EXCLUDED.effective_at,
			updated_at = EXCLUDED.updated_at
	`

	batch := &pgx.Batch{}
	for _, r := range rates {
		if r.Base == "" || r.Quote == "" {
			return storage.ErrInvalidInput
		}
		batch.Queue(query, string(r.Base), string(r.Quote), r.Rate.String(), r.Provider, r.EffectiveAt, r.UpdatedAt)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	br := tx.SendBatch(ctx, batch)
	for range rates {
		if _, err = br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("upsert rate: %w", err)
		}
	}
	if err = br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Get retrieves the rate for a pair.
func (s *ExchangeRateStore) Get(ctx context.Context, base, quote domain.Currency) (r *domain.ExchangeRate, err error) {
	start := time.Now()
	defer func() { observe("currency_rates.get", start, err) }()

	query := `
		SELECT base, quote, rate::text, provider, effective_at, updated_at
		FROM currency_rates
		WHERE base = $1 AND quote = $2
	`
	r, err = scanRate(s.pool.QueryRow(ctx, query, string(base), string(quote)))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get rate: %w", err)
	}
	return r, nil
}

// List returns every rate ordered by base, quote.
func (s *ExchangeRateStore) List(ctx context.Context) (out []domain.ExchangeRate, err error) {
	start := time.Now()
	defer func() { observe("currency_rates.list", start, err) }()

	rows, err := s.pool.Query(ctx, `
		SELECT base, quote, rate::text, provider, effective_at, updated_at
		FROM currency_rates
		ORDER BY base, quote
	`)
	if err != nil {
		return nil, fmt.Errorf("list rates: %w", err)
	}
	defer rows.Close()

	out = []domain.ExchangeRate{}
	for rows.Next() {
		r, err := scanRate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rate: %w", err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rates: %w", err)
	}
	return out, nil
}

// scanRate scans one currency_rates row. rate is selected as text.
func scanRate(row pgx.Row) (*domain.ExchangeRate, error) {
	var (
		r           domain.ExchangeRate
		base, quote string
		rate        string
	)
	if err := row.Scan(&base, &quote, &rate, &r.Provider, &r.EffectiveAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(rate)
	if err != nil {
		return nil, fmt.Errorf("parse rate %q: %w", rate, err)
	}
	r.Base, r.Quote, r.Rate = domain.Currency(base), domain.Currency(quote), d
	return &r, nil
}
