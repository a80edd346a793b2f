// Package stub provides a map-backed subgraph Indexer for tests and local runs.
package stub

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/thegraph"
)

// Indexer implements thegraph.Indexer over in-memory maps.
// Keys are lower-cased addresses, matching subgraph ids.
type Indexer struct {
	mu         sync.RWMutex
	assets     map[string]domain.Asset
	holders    map[string]map[string]domain.Holder // asset -> account -> holder
	events     map[string][]domain.AssetEvent
	stats      map[string][]domain.AssetStats
	actions    []domain.Action
	identities map[string]domain.Identity
	airdrops   map[string]domain.Airdrop
	recipients map[string][]string // account -> airdrop addresses
}

// NewIndexer creates an empty Indexer.
func NewIndexer() *Indexer {
	return &Indexer{
		assets:     make(map[string]domain.Asset),
		holders:    make(map[string]map[string]domain.Holder),
		events:     make(map[string][]domain.AssetEvent),
		stats:      make(map[string][]domain.AssetStats),
		identities: make(map[string]domain.Identity),
		airdrops:   make(map[string]domain.Airdrop),
		recipients: make(map[string][]string),
	}
}

func key(s string) string { return strings.ToLower(s) }

// PutAsset adds or replaces an asset.
func (i *Indexer) PutAsset(a domain.Asset) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.assets[key(a.ID)] = a
}

// PutHolder adds or replaces a balance.
func (i *Indexer) PutHolder(h domain.Holder) {
	i.mu.Lock()
	defer i.mu.Unlock()
	m, ok := i.holders[key(h.Asset)]
	if !ok {
		m = make(map[string]domain.Holder)
		i.holders[key(h.Asset)] = m
	}
	m[key(h.Account)] = h
}

// AddEvent appends an event.
func (i *Indexer) AddEvent(e domain.AssetEvent) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.events[key(e.Asset)] = append(i.events[key(e.Asset)], e)
}

// AddStats appends a stats bucket.
func (i *Indexer) AddStats(s domain.AssetStats) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.stats[key(s.Asset)] = append(i.stats[key(s.Asset)], s)
}

// AddAction appends an action.
func (i *Indexer) AddAction(a domain.Action) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.actions = append(i.actions, a)
}

// PutIdentity adds or replaces an identity.
func (i *Indexer) PutIdentity(id domain.Identity) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.identities[key(id.Account)] = id
}

// PutAirdrop adds an airdrop with its recipients.
func (i *Indexer) PutAirdrop(a domain.Airdrop, recipients ...string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.airdrops[key(a.Address)] = a
	for _, r := range recipients {
		i.recipients[key(r)] = append(i.recipients[key(r)], key(a.Address))
	}
}

func page[T any](items []T, first, skip int) []T {
	if skip >= len(items) {
		return nil
	}
	end := skip + first
	if end > len(items) {
		end = len(items)
	}
	return items[skip:end]
}

// ListAssets returns assets newest first.
func (i *Indexer) ListAssets(ctx context.Context, assetType domain.AssetType, first, skip int) ([]domain.Asset, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	var out []domain.Asset
	for _, a := range i.assets {
		if assetType == "" || a.Type == assetType {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(x, y int) bool {
		if out[x].CreatedAt.Equal(out[y].CreatedAt) {
			return out[x].ID < out[y].ID
		}
		return out[x].CreatedAt.After(out[y].CreatedAt)
	})
	return page(out, first, skip), nil
}

// GetAsset returns the asset or nil.
func (i *Indexer) GetAsset(ctx context.Context, address string) (*domain.Asset, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	a, ok := i.assets[key(address)]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// Holders returns balances largest first.
func (i *Indexer) Holders(ctx context.Context, asset string, first, skip int) ([]domain.Holder, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]domain.Holder, 0, len(i.holders[key(asset)]))
	for _, h := range i.holders[key(asset)] {
		out = append(out, h)
	}
	sortHolders(out)
	return page(out, first, skip), nil
}

// AccountBalances returns the balances of account with their assets.
func (i *Indexer) AccountBalances(ctx context.Context, account string, first, skip int) ([]domain.UserAsset, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	var hs []domain.Holder
	for _, m := range i.holders {
		if h, ok := m[key(account)]; ok {
			hs = append(hs, h)
		}
	}
	sortHolders(hs)
	hs = page(hs, first, skip)
	out := make([]domain.UserAsset, len(hs))
	for n, h := range hs {
		out[n] = domain.UserAsset{Holder: h}
		if a, ok := i.assets[key(h.Asset)]; ok {
			out[n].Asset = &a
		}
	}
	return out, nil
}

func sortHolders(hs []domain.Holder) {
	sort.Slice(hs, func(x, y int) bool {
		if c := hs[x].Balance.Cmp(hs[y].Balance); c != 0 {
			return c > 0
		}
		return hs[x].Account < hs[y].Account
	})
}

// Events returns the latest events first.
func (i *Indexer) Events(ctx context.Context, asset string, first int) ([]domain.AssetEvent, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := append([]domain.AssetEvent(nil), i.events[key(asset)]...)
	sort.SliceStable(out, func(x, y int) bool { return out[x].Timestamp.After(out[y].Timestamp) })
	return page(out, first, 0), nil
}

// Stats returns buckets at or after since.
func (i *Indexer) Stats(ctx context.Context, asset string, since time.Time) ([]domain.AssetStats, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	var out []domain.AssetStats
	for _, s := range i.stats[key(asset)] {
		if !s.Timestamp.Before(since) {
			out = append(out, s)
		}
	}
	return out, nil
}

// Actions returns actions account may execute, earliest first.
func (i *Indexer) Actions(ctx context.Context, account string, first, skip int) ([]domain.Action, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	var out []domain.Action
	for _, a := range i.actions {
		for _, e := range a.Executors {
			if key(e) == key(account) {
				out = append(out, a)
				break
			}
		}
	}
	sort.SliceStable(out, func(x, y int) bool { return out[x].ActiveAt.Before(out[y].ActiveAt) })
	return page(out, first, skip), nil
}

// Identity returns the identity of account or nil.
func (i *Indexer) Identity(ctx context.Context, account string) (*domain.Identity, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	id, ok := i.identities[key(account)]
	if !ok {
		return nil, nil
	}
	return &id, nil
}

// Airdrops returns the airdrops of asset.
func (i *Indexer) Airdrops(ctx context.Context, asset string, first, skip int) ([]domain.Airdrop, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	var out []domain.Airdrop
	for _, a := range i.airdrops {
		if key(a.Asset) == key(asset) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(x, y int) bool { return out[x].Address < out[y].Address })
	return page(out, first, skip), nil
}

// AirdropsForRecipient returns airdrops allocating to account.
func (i *Indexer) AirdropsForRecipient(ctx context.Context, account string, first, skip int) ([]domain.Airdrop, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	var out []domain.Airdrop
	for _, addr := range i.recipients[key(account)] {
		if a, ok := i.airdrops[addr]; ok {
			out = append(out, a)
		}
	}
	return page(out, first, skip), nil
}

var _ thegraph.Indexer = (*Indexer)(nil)
