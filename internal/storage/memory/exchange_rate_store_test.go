package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/storage"
)

func TestExchangeRateStore_Upsert(t *testing.T) {
	store := NewExchangeRateStore()
	ctx := context.Background()

	rates := []domain.ExchangeRate{
		{Base: domain.CurrencyUSD, Quote: domain.CurrencyEUR, Rate: decimal.RequireFromString("0.9")},
		{Base: domain.CurrencyEUR, Quote: domain.CurrencyUSD, Rate: decimal.RequireFromString("1.1")},
	}
	if err := store.Upsert(ctx, rates); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := store.Upsert(ctx, []domain.ExchangeRate{{Base: domain.CurrencyUSD, Quote: domain.CurrencyEUR, Rate: decimal.RequireFromString("0.95")}}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	r, err := store.Get(ctx, domain.CurrencyUSD, domain.CurrencyEUR)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if r.Rate.String() != "0.95" {
		t.Errorf("Rate mismatch: got %s, want 0.95", r.Rate)
	}

	all, _ := store.List(ctx)
	if len(all) != 2 || all[0].Base != domain.CurrencyEUR {
		t.Errorf("unexpected list: %+v", all)
	}

	if _, err := store.Get(ctx, domain.CurrencyJPY, domain.CurrencyEUR); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRateHistoryStore_History(t *testing.T) {
	store := NewRateHistoryStore()
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var rows []domain.ExchangeRate
	for i := 3; i >= 0; i-- {
		rows = append(rows, domain.ExchangeRate{
			Base: domain.CurrencyUSD, Quote: domain.CurrencyEUR,
			Rate:        decimal.NewFromInt(int64(i)),
			EffectiveAt: t0.Add(time.Duration(i) * time.Hour),
		})
	}
	rows = append(rows, domain.ExchangeRate{Base: domain.CurrencyUSD, Quote: domain.CurrencyGBP, EffectiveAt: t0})
	store.Append(ctx, rows)

	got, _ := store.History(ctx, domain.CurrencyUSD, domain.CurrencyEUR, t0.Add(time.Hour), t0.Add(2*time.Hour))
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if !got[0].EffectiveAt.Before(got[1].EffectiveAt) {
		t.Error("history should be oldest first")
	}
}
