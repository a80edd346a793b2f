// Package exchangerate keeps fiat exchange rates current and converts
// amounts between supported currencies.
package exchangerate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"asset-tokenization-kit/internal/cache"
	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/logging"
	"asset-tokenization-kit/internal/observability"
	"asset-tokenization-kit/internal/storage"
)

// RatePrecision is the number of fractional digits kept for cross rates.
const RatePrecision = 18

const (
	DefaultInterval = time.Hour
	DefaultCacheTTL = time.Hour
)

// ErrRateUnavailable is returned when no rate is stored for a pair.
var ErrRateUnavailable = errors.New("exchange rate unavailable")

// Service fetches, stores and serves exchange rates.
type Service struct {
	provider Provider
	store    storage.ExchangeRateStore
	history  storage.RateHistoryStore
	cache    cache.Cache
	base     domain.Currency
	interval time.Duration
	cacheTTL time.Duration
	now      func() time.Time
	log      *logrus.Entry
}

// Options contains configuration for creating a Service.
type Options struct {
	Provider Provider                  // required
	Store    storage.ExchangeRateStore // required
	History  storage.RateHistoryStore  // optional
	Cache    cache.Cache               // optional
	Base     domain.Currency           // Default: USD
	Interval time.Duration             // Default: 1h
	CacheTTL time.Duration             // Default: 1h
	Logger   logrus.FieldLogger
	Now      func() time.Time
}

// NewService creates an exchange-rate Service.
func NewService(opts Options) *Service {
	base := opts.Base
	if !base.IsValid() {
		base = domain.CurrencyUSD
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		provider: opts.Provider,
		store:    opts.Store,
		history:  opts.History,
		cache:    opts.Cache,
		base:     base,
		interval: interval,
		cacheTTL: ttl,
		now:      func() time.Time { return now().UTC() },
		log:      logging.Component(opts.Logger, "exchangerate"),
	}
}

// CrossRates derives every ordered pair among the currencies in latest:
// rate(a->b) = rates[b] / rates[a]. The quote base itself counts as 1.
func CrossRates(latest *Latest, updatedAt time.Time) []domain.ExchangeRate {
	rates := make(map[domain.Currency]decimal.Decimal, len(latest.Rates)+1)
	for c, r := range latest.Rates {
		rates[c] = r
	}
	rates[latest.Base] = decimal.NewFromInt(1)

	currencies := make([]domain.Currency, 0, len(rates))
	for c := range rates {
		currencies = append(currencies, c)
	}
	sort.Slice(currencies, func(i, j int) bool { return currencies[i] < currencies[j] })

	out := make([]domain.ExchangeRate, 0, len(currencies)*(len(currencies)-1))
	for _, a := range currencies {
		for _, b := range currencies {
			if a == b {
				continue
			}
			out = append(out, domain.ExchangeRate{
				Base:        a,
				Quote:       b,
				Rate:        rates[b].DivRound(rates[a], RatePrecision),
				Provider:    ProviderName,
				EffectiveAt: latest.UpdatedAt,
				UpdatedAt:   updatedAt,
			})
		}
	}
	return out
}

// Sync fetches the latest rates and stores every cross rate.
// Returns the number of pairs written.
func (s *Service) Sync(ctx context.Context) (n int, err error) {
	defer func() {
		status := "success"
		if err != nil {
			status = "failure"
		}
		observability.RecordExchangeRateUpdate(status, n, float64(s.now().Unix()))
	}()

	latest, err := s.provider.Latest(ctx, s.base)
	if err != nil {
		return 0, err
	}
	if latest.Base != s.base {
		return 0, fmt.Errorf("provider quoted base %q, want %s", latest.Base, s.base)
	}
	if len(latest.Rates) == 0 {
		return 0, fmt.Errorf("provider returned no supported rates for %s", s.base)
	}

	rates := CrossRates(latest, s.now())
	if err := s.store.Upsert(ctx, rates); err != nil {
		return 0, fmt.Errorf("store rates: %w", err)
	}
	if s.history != nil {
		if err := s.history.Append(ctx, rates); err != nil {
			s.log.WithError(err).Warn("append rate history")
		}
	}
	if s.cache != nil {
		if err := s.cache.InvalidateTags(ctx, cache.TagExchangeRates); err != nil {
			s.log.WithError(err).Warn("invalidate rate cache")
		}
	}

	s.log.WithFields(logrus.Fields{"base": s.base, "pairs": len(rates)}).Info("exchange rates updated")
	return len(rates), nil
}

// Run syncs immediately and then on every interval until ctx is done.
// Failed runs are logged and retried on the next tick.
func (s *Service) Run(ctx context.Context) error {
	s.log.WithField("interval", s.interval).Info("exchange-rate updater started")

	if _, err := s.Sync(ctx); err != nil && ctx.Err() == nil {
		s.log.WithError(err).Error("exchange-rate update failed")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("exchange-rate updater stopping")
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Sync(ctx); err != nil && ctx.Err() == nil {
				s.log.WithError(err).Error("exchange-rate update failed")
			}
		}
	}
}

// Rate returns the price of one unit of base in quote.
func (s *Service) Rate(ctx context.Context, base, quote domain.Currency) (decimal.Decimal, error) {
	if base == quote {
		return decimal.NewFromInt(1), nil
	}
	key := "fx:" + string(base) + "/" + string(quote)
	r, err := cache.GetOrLoad(ctx, s.cache, key, s.cacheTTL, []string{cache.TagExchangeRates}, func(ctx context.Context) (domain.ExchangeRate, error) {
		r, err := s.store.Get(ctx, base, quote)
		if err != nil {
			return domain.ExchangeRate{}, err
		}
		return *r, nil
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return decimal.Zero, fmt.Errorf("%w: %s/%s", ErrRateUnavailable, base, quote)
		}
		return decimal.Zero, fmt.Errorf("load rate: %w", err)
	}
	return r.Rate, nil
}

// Rates returns every stored rate, optionally restricted to one base.
func (s *Service) Rates(ctx context.Context, base domain.Currency) ([]domain.ExchangeRate, error) {
	all, err := cache.GetOrLoad(ctx, s.cache, "fx:all", s.cacheTTL, []string{cache.TagExchangeRates}, s.store.List)
	if err != nil {
		return nil, fmt.Errorf("list rates: %w", err)
	}
	if base == "" {
		return all, nil
	}
	out := make([]domain.ExchangeRate, 0, len(domain.SupportedCurrencies))
	for _, r := range all {
		if r.Base == base {
			out = append(out, r)
		}
	}
	return out, nil
}

// Convert converts amount from one currency into another.
func (s *Service) Convert(ctx context.Context, amount decimal.Decimal, from, to domain.Currency) (decimal.Decimal, error) {
	rate, err := s.Rate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate), nil
}

// History returns stored observations of a pair between start and end.
func (s *Service) History(ctx context.Context, base, quote domain.Currency, start, end time.Time) ([]domain.ExchangeRate, error) {
	if s.history == nil {
		return nil, nil
	}
	out, err := s.history.History(ctx, base, quote, start, end)
	if err != nil {
		return nil, fmt.Errorf("rate history: %w", err)
	}
	return out, nil
}
