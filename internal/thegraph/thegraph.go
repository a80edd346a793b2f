// Package thegraph reads indexed chain state from the asset subgraph.
package thegraph

import (
	"context"
	"time"

	"asset-tokenization-kit/internal/domain"
)

// PageSize is the largest page TheGraph serves per query.
const PageSize = 1000

// Indexer defines the subgraph reads used by the query layer.
type Indexer interface {
	// ListAssets returns assets, optionally filtered by type ("" for all).
	ListAssets(ctx context.Context, assetType domain.AssetType, first, skip int) ([]domain.Asset, error)

	// GetAsset returns one asset, or nil if the subgraph has not indexed it.
	GetAsset(ctx context.Context, address string) (*domain.Asset, error)

	// Holders returns one page of balances for an asset, largest first.
	Holders(ctx context.Context, asset string, first, skip int) ([]domain.Holder, error)

	// AccountBalances returns one page of balances held by account.
	AccountBalances(ctx context.Context, account string, first, skip int) ([]domain.UserAsset, error)

	// Events returns the latest events emitted by asset.
	Events(ctx context.Context, asset string, first int) ([]domain.AssetEvent, error)

	// Stats returns hourly stats for asset since the given time.
	Stats(ctx context.Context, asset string, since time.Time) ([]domain.AssetStats, error)

	// Actions returns actions that account may execute.
	Actions(ctx context.Context, account string, first, skip int) ([]domain.Action, error)

	// Identity returns the identity bound to account, or nil.
	Identity(ctx context.Context, account string) (*domain.Identity, error)

	// Airdrops returns airdrops for an asset.
	Airdrops(ctx context.Context, asset string, first, skip int) ([]domain.Airdrop, error)

	// AirdropsForRecipient returns airdrops in which account has an allocation.
	AirdropsForRecipient(ctx context.Context, account string, first, skip int) ([]domain.Airdrop, error)
}

// PageFunc fetches one page.
type PageFunc[T any] func(ctx context.Context, first, skip int) ([]T, error)

// FetchAll pages through fetch with PageSize until a short page.
func FetchAll[T any](ctx context.Context, fetch PageFunc[T]) ([]T, error) {
	var all []T
	for skip := 0; ; skip += PageSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := fetch(ctx, PageSize, skip)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < PageSize {
			return all, nil
		}
	}
}
