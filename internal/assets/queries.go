package assets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"asset-tokenization-kit/internal/cache"
	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/storage"
	"asset-tokenization-kit/internal/thegraph"
)

// DefaultEventLimit is how many events an asset query returns.
const DefaultEventLimit = 100

func lower(s string) string { return strings.ToLower(s) }

// ListAssets returns assets of a type ("" for all), newest first, with
// Hasura metadata merged. Private assets are visible to admins and holders.
func (s *Service) ListAssets(ctx context.Context, viewer *domain.User, t domain.AssetType, p Page) ([]domain.Asset, error) {
	ctx, span := tracer.Start(ctx, "Assets.Service.ListAssets")
	defer span.End()

	var (
		all  []domain.Asset
		held map[string]bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		all, err = cache.GetOrLoad(gctx, s.cache, "assets:list:"+string(t), s.cacheTTL, []string{cache.TagAssets},
			func(ctx context.Context) ([]domain.Asset, error) { return s.loadAssets(ctx, t) })
		return err
	})
	g.Go(func() error {
		var err error
		held, err = s.holdings(gctx, viewer)
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	visible := make([]domain.Asset, 0, len(all))
	for _, a := range all {
		if canSee(viewer, &a, held) {
			visible = append(visible, a)
		}
	}
	return paginate(visible, p), nil
}

func (s *Service) loadAssets(ctx context.Context, t domain.AssetType) ([]domain.Asset, error) {
	assets, err := thegraph.FetchAll(ctx, func(ctx context.Context, first, skip int) ([]domain.Asset, error) {
		return s.indexer.ListAssets(ctx, t, first, skip)
	})
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	if len(assets) == 0 {
		return []domain.Asset{}, nil
	}
	ids := make([]string, len(assets))
	for i, a := range assets {
		ids[i] = a.ID
	}
	meta, err := s.metadata.AssetMetadataBatch(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("asset metadata: %w", err)
	}
	for i := range assets {
		if m, ok := meta[lower(assets[i].ID)]; ok {
			assets[i].Merge(&m)
		}
	}
	return assets, nil
}

// holdings returns the lower-case addresses of assets the viewer holds.
// Admins see everything, so their holdings are not loaded.
func (s *Service) holdings(ctx context.Context, viewer *domain.User) (map[string]bool, error) {
	if viewer == nil || viewer.IsAdmin() || viewer.Wallet == "" {
		return nil, nil
	}
	balances, err := thegraph.FetchAll(ctx, func(ctx context.Context, first, skip int) ([]domain.UserAsset, error) {
		return s.indexer.AccountBalances(ctx, viewer.Wallet, first, skip)
	})
	if err != nil {
		return nil, fmt.Errorf("viewer balances: %w", err)
	}
	out := make(map[string]bool, len(balances))
	for _, b := range balances {
		out[lower(b.Holder.Asset)] = true
	}
	return out, nil
}

func canSee(viewer *domain.User, a *domain.Asset, held map[string]bool) bool {
	if !a.Private {
		return true
	}
	if viewer == nil {
		return false
	}
	if viewer.IsAdmin() || strings.EqualFold(a.Creator, viewer.Wallet) {
		return true
	}
	return held[lower(a.ID)]
}

// GetAsset returns one asset with its metadata merged.
func (s *Service) GetAsset(ctx context.Context, viewer *domain.User, address string) (*domain.Asset, error) {
	ctx, span := tracer.Start(ctx, "Assets.Service.GetAsset")
	defer span.End()

	addr := lower(address)
	a, err := cache.GetOrLoad(ctx, s.cache, "asset:"+addr, s.cacheTTL, []string{cache.TagAssets, cache.AssetTag(addr)},
		func(ctx context.Context) (*domain.Asset, error) { return s.loadAsset(ctx, addr) })
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if a.Private {
		held, err := s.holdings(ctx, viewer)
		if err != nil {
			return nil, err
		}
		if !canSee(viewer, a, held) {
			return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, address)
		}
	}
	return a, nil
}

func (s *Service) loadAsset(ctx context.Context, addr string) (*domain.Asset, error) {
	var (
		a    *domain.Asset
		meta *domain.AssetMetadata
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		a, err = s.indexer.GetAsset(gctx, addr)
		return err
	})
	g.Go(func() error {
		var err error
		meta, err = s.metadata.AssetMetadata(gctx, addr)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load asset %s: %w", addr, err)
	}
	if a == nil {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, addr)
	}
	a.Merge(meta)
	return a, nil
}

// Holders returns balances of an asset, largest first.
func (s *Service) Holders(ctx context.Context, viewer *domain.User, address string, p Page) ([]domain.Holder, error) {
	if _, err := s.GetAsset(ctx, viewer, address); err != nil {
		return nil, err
	}
	addr := lower(address)
	all, err := cache.GetOrLoad(ctx, s.cache, "holders:"+addr, s.cacheTTL, []string{cache.AssetTag(addr)},
		func(ctx context.Context) ([]domain.Holder, error) {
			return thegraph.FetchAll(ctx, func(ctx context.Context, first, skip int) ([]domain.Holder, error) {
				return s.indexer.Holders(ctx, addr, first, skip)
			})
		})
	if err != nil {
		return nil, fmt.Errorf("holders: %w", err)
	}
	return paginate(all, p), nil
}

// Events returns the latest events of an asset.
func (s *Service) Events(ctx context.Context, viewer *domain.User, address string, limit int) ([]domain.AssetEvent, error) {
	if _, err := s.GetAsset(ctx, viewer, address); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > thegraph.PageSize {
		limit = DefaultEventLimit
	}
	addr := lower(address)
	events, err := cache.GetOrLoad(ctx, s.cache, fmt.Sprintf("events:%s:%d", addr, limit), s.cacheTTL, []string{cache.AssetTag(addr)},
		func(ctx context.Context) ([]domain.AssetEvent, error) { return s.indexer.Events(ctx, addr, limit) })
	if err != nil {
		return nil, fmt.Errorf("events: %w", err)
	}
	return events, nil
}

// Stats returns hourly stats of an asset over the last days.
func (s *Service) Stats(ctx context.Context, viewer *domain.User, address string, days int) ([]domain.AssetStats, error) {
	if _, err := s.GetAsset(ctx, viewer, address); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = 7
	}
	since := s.now().Truncate(time.Hour).Add(-time.Duration(days) * 24 * time.Hour)
	addr := lower(address)
	stats, err := cache.GetOrLoad(ctx, s.cache, fmt.Sprintf("stats:%s:%d", addr, since.Unix()), s.cacheTTL, []string{cache.AssetTag(addr)},
		func(ctx context.Context) ([]domain.AssetStats, error) { return s.indexer.Stats(ctx, addr, since) })
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return stats, nil
}

// UserAssets returns the balances of a wallet with asset metadata merged.
func (s *Service) UserAssets(ctx context.Context, wallet string) ([]domain.UserAsset, error) {
	ctx, span := tracer.Start(ctx, "Assets.Service.UserAssets")
	defer span.End()

	balances, err := thegraph.FetchAll(ctx, func(ctx context.Context, first, skip int) ([]domain.UserAsset, error) {
		return s.indexer.AccountBalances(ctx, wallet, first, skip)
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("balances: %w", err)
	}
	if len(balances) == 0 {
		return []domain.UserAsset{}, nil
	}
	ids := make([]string, 0, len(balances))
	for _, b := range balances {
		ids = append(ids, b.Holder.Asset)
	}
	meta, err := s.metadata.AssetMetadataBatch(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("asset metadata: %w", err)
	}
	for i := range balances {
		if balances[i].Asset == nil {
			continue
		}
		if m, ok := meta[lower(balances[i].Holder.Asset)]; ok {
			balances[i].Asset.Merge(&m)
		}
	}
	return balances, nil
}

// Actions returns the actions a user may execute, optionally filtered by
// status ("" for all).
func (s *Service) Actions(ctx context.Context, user *domain.User, status domain.ActionStatus, p Page) ([]domain.Action, error) {
	if status != "" && !status.IsValid() {
		return nil, fmt.Errorf("unknown action status %q", status)
	}
	all, err := thegraph.FetchAll(ctx, func(ctx context.Context, first, skip int) ([]domain.Action, error) {
		return s.indexer.Actions(ctx, user.Wallet, first, skip)
	})
	if err != nil {
		return nil, fmt.Errorf("actions: %w", err)
	}
	now := s.now()
	out := make([]domain.Action, 0, len(all))
	for _, a := range all {
		if status == "" || a.Status(now) == status {
			out = append(out, a)
		}
	}
	return paginate(out, p), nil
}

// Identity returns the on-chain identity of a wallet, or nil.
func (s *Service) Identity(ctx context.Context, wallet string) (*domain.Identity, error) {
	id, err := s.indexer.Identity(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("identity: %w", err)
	}
	return id, nil
}

// Airdrops returns the airdrops of an asset.
func (s *Service) Airdrops(ctx context.Context, viewer *domain.User, address string, p Page) ([]domain.Airdrop, error) {
	if _, err := s.GetAsset(ctx, viewer, address); err != nil {
		return nil, err
	}
	all, err := thegraph.FetchAll(ctx, func(ctx context.Context, first, skip int) ([]domain.Airdrop, error) {
		return s.indexer.Airdrops(ctx, address, first, skip)
	})
	if err != nil {
		return nil, fmt.Errorf("airdrops: %w", err)
	}
	return paginate(all, p), nil
}

// AirdropsForRecipient returns airdrops in which wallet has an allocation.
func (s *Service) AirdropsForRecipient(ctx context.Context, wallet string, p Page) ([]domain.Airdrop, error) {
	all, err := thegraph.FetchAll(ctx, func(ctx context.Context, first, skip int) ([]domain.Airdrop, error) {
		return s.indexer.AirdropsForRecipient(ctx, wallet, first, skip)
	})
	if err != nil {
		return nil, fmt.Errorf("airdrops: %w", err)
	}
	return paginate(all, p), nil
}

// Transaction returns a relayed transaction. A pending transaction is
// refreshed from Portal first. Only the sender and admins can see it.
func (s *Service) Transaction(ctx context.Context, viewer *domain.User, hash string) (*domain.Transaction, error) {
	tx, err := s.txs.Get(ctx, hash)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, hash)
	}
	if err != nil {
		return nil, fmt.Errorf("load transaction: %w", err)
	}
	if !viewer.IsAdmin() && !strings.EqualFold(tx.From, viewer.Wallet) {
		return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, hash)
	}
	if tx.Status.Final() {
		return tx, nil
	}

	receipt, err := s.portal.GetTransaction(ctx, hash)
	if err != nil {
		s.log.WithError(err).WithField("tx", hash).Warn("refresh transaction")
		return tx, nil
	}
	if receipt == nil {
		return tx, nil
	}
	status := domain.TxStatusSuccess
	if !receipt.Succeeded() {
		status = domain.TxStatusReverted
	}
	if err := s.txs.UpdateStatus(ctx, hash, status, receipt); err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}
	s.invalidate(ctx, tx.Asset)
	return s.txs.Get(ctx, hash)
}

// UserTransactions returns transactions sent by a user, newest first.
func (s *Service) UserTransactions(ctx context.Context, user *domain.User, p Page) ([]*domain.Transaction, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	txs, err := s.txs.ListByAccount(ctx, user.Wallet, limit, p.Offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}
