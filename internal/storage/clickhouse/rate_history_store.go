package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/storage"
)

// RateHistoryStore implements storage.RateHistoryStore using ClickHouse.
type RateHistoryStore struct {
	conn *Conn
}

// NewRateHistoryStore creates a new RateHistoryStore.
func NewRateHistoryStore(conn *Conn) *RateHistoryStore {
	return &RateHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.RateHistoryStore = (*RateHistoryStore)(nil)

// Append adds rate observations in one batch.
func (s *RateHistoryStore) Append(ctx context.Context, rates []domain.ExchangeRate) error {
	if len(rates) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO exchange_rate_history (base, quote, rate, provider, effective_at)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rates {
		err = batch.Append(string(r.Base), string(r.Quote), r.Rate, r.Provider, r.EffectiveAt.UTC())
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// History returns observations of a pair within [start, end], oldest first.
func (s *RateHistoryStore) History(ctx context.Context, base, quote domain.Currency, start, end time.Time) ([]domain.ExchangeRate, error) {
	query := `
		SELECT base, quote, toString(rate), provider, effective_at, recorded_at
		FROM exchange_rate_history
		WHERE base = ? AND quote = ? AND effective_at >= ? AND effective_at <= ?
		ORDER BY effective_at ASC
	`

	rows, err := s.conn.Query(ctx, query, string(base), string(quote), start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("query rate history: %w", err)
	}
	defer rows.Close()

	var out []domain.ExchangeRate
	for rows.Next() {
		var (
			b, q, rate, provider    string
			effectiveAt, recordedAt time.Time
		)
		if err := rows.Scan(&b, &q, &rate, &provider, &effectiveAt, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan rate history: %w", err)
		}
		d, err := decimal.NewFromString(rate)
		if err != nil {
			return nil, fmt.Errorf("parse rate %q: %w", rate, err)
		}
		out = append(out, domain.ExchangeRate{
			Base:        domain.Currency(b),
			Quote:       domain.Currency(q),
			Rate:        d,
			Provider:    provider,
			EffectiveAt: effectiveAt.UTC(),
			UpdatedAt:   recordedAt.UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rate history: %w", err)
	}
	return out, nil
}
