// Package app wires stores, upstream clients and services from a Config.
// Both cmd/server and cmd/atkctl build on it.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"asset-tokenization-kit/internal/assets"
	"asset-tokenization-kit/internal/auth"
	"asset-tokenization-kit/internal/cache"
	"asset-tokenization-kit/internal/config"
	"asset-tokenization-kit/internal/documents"
	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/exchangerate"
	"asset-tokenization-kit/internal/graphql"
	"asset-tokenization-kit/internal/hasura"
	hasurastub "asset-tokenization-kit/internal/hasura/stub"
	"asset-tokenization-kit/internal/logging"
	"asset-tokenization-kit/internal/objectstore"
	"asset-tokenization-kit/internal/portal"
	portalstub "asset-tokenization-kit/internal/portal/stub"
	"asset-tokenization-kit/internal/storage"
	chstore "asset-tokenization-kit/internal/storage/clickhouse"
	"asset-tokenization-kit/internal/storage/memory"
	"asset-tokenization-kit/internal/storage/migrations"
	pgstore "asset-tokenization-kit/internal/storage/postgres"
	"asset-tokenization-kit/internal/thegraph"
	thegraphstub "asset-tokenization-kit/internal/thegraph/stub"
	"asset-tokenization-kit/internal/txwatch"
)

// hasuraSecretHeader authenticates admin requests to Hasura.
const hasuraSecretHeader = "x-hasura-admin-secret"

// cacheCleanupInterval is how often the in-process cache evicts expired keys.
const cacheCleanupInterval = 10 * time.Minute

// App holds every wired component.
type App struct {
	Stores   *storage.Stores
	Portal   portal.Portal
	Indexer  thegraph.Indexer
	Metadata hasura.Metadata
	Cache    cache.Cache
	Watcher  *txwatch.Watcher

	Auth          *auth.Service
	Assets        *assets.Service
	Documents     *documents.Service
	ExchangeRates *exchangerate.Service
	Limiter       *auth.RateLimiter

	closers []func()
}

// Options selects what Build sets up.
type Options struct {
	// Migrate applies the embedded migrations before use.
	Migrate bool
	// StoresOnly skips upstream clients and services except exchange rates.
	StoresOnly bool
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Build creates the application from cfg. On error everything opened so
// far is closed.
func Build(ctx context.Context, cfg config.Config, logger logrus.FieldLogger, opts Options) (_ *App, err error) {
	log := logging.Component(logger, "app")
	a := &App{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if err := a.createStores(ctx, cfg, opts.Migrate, log); err != nil {
		return nil, err
	}
	if err := a.createCache(ctx, cfg); err != nil {
		return nil, err
	}

	a.ExchangeRates = exchangerate.NewService(exchangerate.Options{
		Provider: exchangerate.NewHTTPProvider(cfg.ExchangeRate.APIURL, nil),
		Store:    a.Stores.ExchangeRates,
		History:  a.Stores.RateHistory,
		Cache:    a.Cache,
		Base:     domain.Currency(cfg.ExchangeRate.Base),
		Interval: cfg.ExchangeRate.Interval,
		CacheTTL: cfg.ExchangeRate.CacheTTL,
		Logger:   logger,
	})
	if opts.StoresOnly {
		return a, nil
	}

	a.createUpstreams(cfg, logger)

	a.Watcher = txwatch.New(txwatch.Options{
		Source:     a.Portal,
		Subscriber: subscriber(a.Portal, cfg),
		Store:      a.Stores.Transactions,
		Timeout:    cfg.Portal.ReceiptTimeout,
		Logger:     logger,
	})

	a.Auth = auth.NewService(auth.Options{
		Users:            a.Stores.Users,
		Sessions:         a.Stores.Sessions,
		Wallets:          a.Portal,
		Secret:           []byte(cfg.Auth.Secret),
		Issuer:           cfg.Auth.Issuer,
		SessionTTL:       cfg.Auth.SessionTTL,
		SessionUpdateAge: cfg.Auth.SessionUpdateAge,
		Logger:           logger,
	})
	a.Limiter = auth.NewRateLimiter(cfg.Auth.RateLimitWindow, cfg.Auth.RateLimitMax)

	a.Assets = assets.NewService(assets.Options{
		Portal:       a.Portal,
		Indexer:      a.Indexer,
		Metadata:     a.Metadata,
		Transactions: a.Stores.Transactions,
		Settings:     a.Stores.Settings,
		Watcher:      a.Watcher,
		Cache:        a.Cache,
		Converter:    a.ExchangeRates,
		Factories: assets.Factories{
			Assets:     cfg.Factories.ByType(),
			FixedYield: cfg.Factories.FixedYield,
			Airdrop:    cfg.Factories.Airdrop,
		},
		WaitForReceipts: cfg.Portal.WaitReceipts,
		Logger:          logger,
	})

	objects, err := a.createObjectStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Documents = documents.NewService(documents.Options{
		Objects:   objects,
		Documents: a.Stores.Documents,
		Metadata:  a.Metadata,
		Logger:    logger,
	})

	log.WithFields(logrus.Fields{
		"memory": cfg.UseMemory,
		"stubs":  cfg.StubServices,
		"redis":  cfg.RedisURL != "",
	}).Info("application wired")
	return a, nil
}

func (a *App) createStores(ctx context.Context, cfg config.Config, migrate bool, log *logrus.Entry) error {
	if cfg.UseMemory {
		a.Stores = memory.NewStores()
		return nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	a.onClose(pool.Close)
	if migrate {
		applied, err := migrations.RunPostgresMigrations(ctx, pool)
		if err != nil {
			return fmt.Errorf("postgres migrations: %w", err)
		}
		if len(applied) > 0 {
			log.WithField("migrations", applied).Info("postgres migrations applied")
		}
	}

	var history storage.RateHistoryStore = memory.NewRateHistoryStore()
	if cfg.ClickHouseDSN != "" {
		var conn *chstore.Conn
		if migrate {
			conn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
		} else {
			conn, err = chstore.NewConn(ctx, cfg.ClickHouseDSN)
		}
		if err != nil {
			return fmt.Errorf("clickhouse: %w", err)
		}
		a.onClose(func() { _ = conn.Close() })
		history = chstore.NewRateHistoryStore(conn)
	}

	a.Stores = pgstore.NewStores(pool, history)
	return nil
}

func (a *App) createCache(ctx context.Context, cfg config.Config) error {
	if cfg.RedisURL == "" {
		a.Cache = cache.NewMemory(cfg.ExchangeRate.CacheTTL, cacheCleanupInterval)
		return nil
	}
	r, err := cache.NewRedis(ctx, cfg.RedisURL, "atk:")
	if err != nil {
		return err
	}
	a.onClose(func() { _ = r.Close() })
	a.Cache = r
	return nil
}

func (a *App) createUpstreams(cfg config.Config, logger logrus.FieldLogger) {
	if cfg.StubServices {
		logging.Component(logger, "app").Warn("using in-process Portal, TheGraph and Hasura stubs")
		a.Portal = portalstub.NewPortal()
		a.Indexer = thegraphstub.NewIndexer()
		a.Metadata = hasurastub.NewMetadata()
		return
	}

	var portalOpts []portal.ClientOption
	if cfg.Portal.WSURL != "" {
		header := http.Header{}
		if cfg.Portal.AccessToken != "" {
			header.Set("Authorization", "Bearer "+cfg.Portal.AccessToken)
		}
		portalOpts = append(portalOpts, portal.WithSubscriptions(cfg.Portal.WSURL, header))
	}
	pc := portal.NewClient(graphql.NewClient(cfg.Portal.URL,
		graphql.WithService("portal"),
		graphql.WithBearerToken(cfg.Portal.AccessToken),
	), portalOpts...)
	a.onClose(func() { _ = pc.Close() })
	a.Portal = pc

	a.Indexer = thegraph.NewClient(graphql.NewClient(cfg.TheGraph.URL, graphql.WithService("thegraph")))
	a.Metadata = hasura.NewClient(graphql.NewClient(cfg.Hasura.URL,
		graphql.WithService("hasura"),
		graphql.WithHeader(hasuraSecretHeader, cfg.Hasura.AdminSecret),
	))
}

// subscriber enables websocket receipts only when Portal has a WS endpoint.
func subscriber(p portal.Portal, cfg config.Config) txwatch.Subscriber {
	if cfg.Portal.WSURL == "" {
		return nil
	}
	if s, ok := p.(txwatch.Subscriber); ok {
		return s
	}
	return nil
}

func (a *App) createObjectStore(ctx context.Context, cfg config.Config) (objectstore.Store, error) {
	if cfg.Minio.Endpoint == "" {
		return objectstore.NewMemory("http://localhost" + cfg.HTTPAddr + "/objects"), nil
	}
	return objectstore.NewMinio(ctx, objectstore.MinioConfig{
		Endpoint:  cfg.Minio.Endpoint,
		AccessKey: cfg.Minio.AccessKey,
		SecretKey: cfg.Minio.SecretKey,
		Bucket:    cfg.Minio.Bucket,
		UseSSL:    cfg.Minio.UseSSL,
	})
}
