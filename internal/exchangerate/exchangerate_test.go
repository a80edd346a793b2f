package exchangerate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asset-tokenization-kit/internal/cache"
	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/storage/memory"
)

const latestBody = `{
	"result": "success",
	"base_code": "USD",
	"time_last_update_unix": 1735689600,
	"rates": {"USD": 1, "EUR": 0.8, "GBP": 0.5, "JPY": 150, "XAU": 0.0004}
}`

func newRatesServer(t *testing.T, hits *int32, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		if r.URL.Path != "/latest/USD" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPProvider_Latest(t *testing.T) {
	srv := newRatesServer(t, nil, latestBody)
	p := NewHTTPProvider(srv.URL+"/", nil)

	latest, err := p.Latest(context.Background(), domain.CurrencyUSD)
	require.NoError(t, err)
	assert.Equal(t, domain.CurrencyUSD, latest.Base)
	assert.Len(t, latest.Rates, 4, "unsupported XAU dropped")
	assert.True(t, latest.Rates[domain.CurrencyEUR].Equal(decimal.RequireFromString("0.8")))
	assert.Equal(t, time.Unix(1735689600, 0).UTC(), latest.UpdatedAt)
}

func TestHTTPProvider_Errors(t *testing.T) {
	srv := newRatesServer(t, nil, `{"result":"error","error-type":"unsupported-code"}`)
	_, err := NewHTTPProvider(srv.URL, nil).Latest(context.Background(), domain.CurrencyUSD)
	assert.ErrorContains(t, err, "unsupported-code")

	_, err = NewHTTPProvider(srv.URL, nil).Latest(context.Background(), domain.CurrencyEUR)
	assert.ErrorContains(t, err, "HTTP 404")
}

func TestHTTPProvider_RejectsOtherBase(t *testing.T) {
	for name, base := range map[string]string{"other": "EUR", "missing": ""} {
		t.Run(name, func(t *testing.T) {
			body := `{"result":"success","base_code":"` + base + `","rates":{"USD":1.25,"EUR":1}}`
			srv := newRatesServer(t, nil, body)

			_, err := NewHTTPProvider(srv.URL, nil).Latest(context.Background(), domain.CurrencyUSD)
			assert.ErrorContains(t, err, "want USD")
		})
	}
}

func TestCrossRates(t *testing.T) {
	latest := &Latest{
		Base: domain.CurrencyUSD,
		Rates: map[domain.Currency]decimal.Decimal{
			domain.CurrencyEUR: decimal.RequireFromString("0.8"),
			domain.CurrencyGBP: decimal.RequireFromString("0.5"),
		},
	}
	rates := CrossRates(latest, time.Now())
	require.Len(t, rates, 6)

	byPair := make(map[string]decimal.Decimal)
	for _, r := range rates {
		byPair[r.Pair()] = r.Rate
	}
	tests := map[string]string{
		"USD/EUR": "0.8",
		"EUR/USD": "1.25",
		"EUR/GBP": "0.625",
		"GBP/EUR": "1.6",
		"GBP/USD": "2",
	}
	for pair, want := range tests {
		assert.True(t, byPair[pair].Equal(decimal.RequireFromString(want)), "%s = %s, want %s", pair, byPair[pair], want)
	}
}

func TestService_SyncAndConvert(t *testing.T) {
	var hits int32
	srv := newRatesServer(t, &hits, latestBody)

	store := memory.NewExchangeRateStore()
	history := memory.NewRateHistoryStore()
	c := cache.NewMemory(time.Hour, time.Minute)
	svc := NewService(Options{
		Provider: NewHTTPProvider(srv.URL, nil),
		Store:    store,
		History:  history,
		Cache:    c,
	})
	ctx := context.Background()

	_, err := svc.Rate(ctx, domain.CurrencyEUR, domain.CurrencyUSD)
	assert.ErrorIs(t, err, ErrRateUnavailable)

	n, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, n, "4 currencies give 12 ordered pairs")

	rate, err := svc.Rate(ctx, domain.CurrencyEUR, domain.CurrencyJPY)
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("187.5")), "EUR/JPY = %s", rate)

	got, err := svc.Convert(ctx, decimal.RequireFromString("100"), domain.CurrencyGBP, domain.CurrencyEUR)
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("160")), "converted = %s", got)

	same, err := svc.Convert(ctx, decimal.RequireFromString("42"), domain.CurrencyCHF, domain.CurrencyCHF)
	require.NoError(t, err)
	assert.True(t, same.Equal(decimal.RequireFromString("42")))

	usd, err := svc.Rates(ctx, domain.CurrencyUSD)
	require.NoError(t, err)
	assert.Len(t, usd, 3)

	hist, err := svc.History(ctx, domain.CurrencyUSD, domain.CurrencyEUR, time.Time{}, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, hist, 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestService_RateIsCachedUntilSync(t *testing.T) {
	store := memory.NewExchangeRateStore()
	c := cache.NewMemory(time.Hour, time.Minute)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, []domain.ExchangeRate{{Base: domain.CurrencyUSD, Quote: domain.CurrencyEUR, Rate: decimal.RequireFromString("0.9")}}))

	provider := &staticProvider{latest: &Latest{Base: domain.CurrencyUSD, Rates: map[domain.Currency]decimal.Decimal{domain.CurrencyEUR: decimal.RequireFromString("0.7")}}}
	svc := NewService(Options{Provider: provider, Store: store, Cache: c})

	r, err := svc.Rate(ctx, domain.CurrencyUSD, domain.CurrencyEUR)
	require.NoError(t, err)
	assert.True(t, r.Equal(decimal.RequireFromString("0.9")))

	// A direct store write is hidden by the cache.
	require.NoError(t, store.Upsert(ctx, []domain.ExchangeRate{{Base: domain.CurrencyUSD, Quote: domain.CurrencyEUR, Rate: decimal.RequireFromString("0.1")}}))
	r, _ = svc.Rate(ctx, domain.CurrencyUSD, domain.CurrencyEUR)
	assert.True(t, r.Equal(decimal.RequireFromString("0.9")))

	// Sync invalidates it.
	_, err = svc.Sync(ctx)
	require.NoError(t, err)
	r, _ = svc.Rate(ctx, domain.CurrencyUSD, domain.CurrencyEUR)
	assert.True(t, r.Equal(decimal.RequireFromString("0.7")))
}

type staticProvider struct {
	latest *Latest
	err    error
	calls  int32
}

func (p *staticProvider) Latest(context.Context, domain.Currency) (*Latest, error) {
	atomic.AddInt32(&p.calls, 1)
	return p.latest, p.err
}

func TestService_SyncRejectsOtherBase(t *testing.T) {
	store := memory.NewExchangeRateStore()
	provider := &staticProvider{latest: &Latest{Base: domain.CurrencyEUR, Rates: map[domain.Currency]decimal.Decimal{domain.CurrencyUSD: decimal.RequireFromString("1.1")}}}
	svc := NewService(Options{Provider: provider, Store: store})
	ctx := context.Background()

	n, err := svc.Sync(ctx)
	assert.ErrorContains(t, err, "want USD")
	assert.Zero(t, n)

	_, err = svc.Rate(ctx, domain.CurrencyUSD, domain.CurrencyEUR)
	assert.ErrorIs(t, err, ErrRateUnavailable, "nothing stored")
}

func TestService_RunStopsOnCancel(t *testing.T) {
	provider := &staticProvider{err: errors.New("provider down")}
	svc := NewService(Options{Provider: provider, Store: memory.NewExchangeRateStore(), Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	err := svc.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&provider.calls), int32(2), "failed runs are retried on the next tick")
}
