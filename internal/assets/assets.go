// Package assets implements token mutations relayed through Portal and the
// cached read model that merges TheGraph state with Hasura metadata.
package assets

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"asset-tokenization-kit/internal/cache"
	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/hasura"
	"asset-tokenization-kit/internal/logging"
	"asset-tokenization-kit/internal/portal"
	"asset-tokenization-kit/internal/storage"
	"asset-tokenization-kit/internal/thegraph"
	"asset-tokenization-kit/internal/txwatch"
)

var tracer = otel.Tracer("assets")

var (
	ErrAssetNotFound          = errors.New("asset not found")
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrForbidden              = errors.New("not allowed for this user")
	ErrUnsupportedOperation   = errors.New("operation not supported for this asset type")
	ErrAlreadyPaused          = errors.New("asset is already paused")
	ErrNotPaused              = errors.New("asset is not paused")
	ErrNotMatured             = errors.New("bond is not matured")
	ErrInsufficientUnderlying = errors.New("underlying balance does not cover redemption")
	ErrNoYieldSchedule        = errors.New("bond has no yield schedule")
	ErrTransactionReverted    = errors.New("transaction reverted")
	ErrNoContractAddress      = errors.New("receipt carries no contract address")
	ErrFactoryNotConfigured   = errors.New("factory address not configured")
)

// DefaultCacheTTL bounds how long tag-invalidated reads are served from cache.
const DefaultCacheTTL = 5 * time.Minute

// Converter converts amounts between fiat currencies.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to domain.Currency) (decimal.Decimal, error)
}

// Factories holds the factory contract addresses used for deployments.
type Factories struct {
	Assets     map[domain.AssetType]string
	FixedYield string
	Airdrop    string
}

// Service implements asset mutations and queries.
type Service struct {
	portal    portal.Portal
	indexer   thegraph.Indexer
	metadata  hasura.Metadata
	txs       storage.TransactionStore
	settings  storage.SettingsStore
	watcher   *txwatch.Watcher
	cache     cache.Cache
	converter Converter
	factories Factories
	wait      bool
	cacheTTL  time.Duration
	now       func() time.Time
	log       *logrus.Entry
}

// Options contains configuration for creating a Service.
type Options struct {
	Portal       portal.Portal            // required
	Indexer      thegraph.Indexer         // required
	Metadata     hasura.Metadata          // required
	Transactions storage.TransactionStore // required
	Settings     storage.SettingsStore    // optional, holds the base currency
	Watcher      *txwatch.Watcher         // optional, required for deployments
	Cache        cache.Cache              // optional
	Converter    Converter                // optional, required for foreign-currency values
	Factories    Factories

	// WaitForReceipts makes token mutations block until mined.
	// Deployments always wait because they need the contract address.
	WaitForReceipts bool
	CacheTTL        time.Duration // Default: 5m
	Logger          logrus.FieldLogger
	Now             func() time.Time
}

// NewService creates an asset Service.
func NewService(opts Options) *Service {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		portal:    opts.Portal,
		indexer:   opts.Indexer,
		metadata:  opts.Metadata,
		txs:       opts.Transactions,
		settings:  opts.Settings,
		watcher:   opts.Watcher,
		cache:     opts.Cache,
		converter: opts.Converter,
		factories: opts.Factories,
		wait:      opts.WaitForReceipts,
		cacheTTL:  ttl,
		now:       func() time.Time { return now().UTC() },
		log:       logging.Component(opts.Logger, "assets"),
	}
}

// Page selects a window of a list result.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// DefaultPageLimit applies when a page has no limit.
const DefaultPageLimit = 50

// MaxPageLimit is the largest page a caller may request.
const MaxPageLimit = thegraph.PageSize

func paginate[T any](items []T, p Page) []T {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if p.Offset < 0 || p.Offset >= len(items) {
		return []T{}
	}
	rest := items[p.Offset:]
	if limit >= len(rest) {
		return rest
	}
	return rest[:limit]
}
