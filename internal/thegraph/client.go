package thegraph

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"


	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/graphql"
)

// Client implements Indexer over the subgraph GraphQL endpoint.
type Client struct {
	gql *graphql.Client
}

// NewClient wraps a GraphQL client pointed at the subgraph.
func NewClient(gql *graphql.Client) *Client {
	return &Client{gql: gql}
}

// Subgraph ids are lower-case hex.
func id(address string) string {
	return strings.ToLower(address)
}

// ListAssets returns assets, optionally filtered by type.
func (c *Client) ListAssets(ctx context.Context, assetType domain.AssetType, first, skip int) ([]domain.Asset, error) {
	where := map[string]any{}
	if assetType != "" {
		where["type"] = string(assetType)
	}
	var out struct {
		Assets []wireAsset `json:"assets"`
	}
	vars := map[string]any{"first": first, "skip": skip, "where": where}
	if err := c.gql.Do(ctx, "ListAssets", listAssetsQuery, vars, &out); err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	assets := make([]domain.Asset, len(out.Assets))
	for i, a := range out.Assets {
		assets[i] = a.toAsset()
	}
	return assets, nil
}

// GetAsset returns one asset or nil.
func (c *Client) GetAsset(ctx context.Context, address string) (*domain.Asset, error) {
	var out struct {
		Asset *wireAsset `json:"asset"`
	}
	if err := c.gql.Do(ctx, "GetAsset", getAssetQuery, map[string]any{"id": id(address)}, &out); err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	if out.Asset == nil {
		return nil, nil
	}
	a := out.Asset.toAsset()
	return &a, nil
}

// Holders returns one page of balances for asset.
func (c *Client) Holders(ctx context.Context, asset string, first, skip int) ([]domain.Holder, error) {
	var out struct {
		Balances []wireBalance `json:"assetBalances"`
	}
	vars := map[string]any{"asset": id(asset), "first": first, "skip": skip}
	if err := c.gql.Do(ctx, "Holders", holdersQuery, vars, &out); err != nil {
		return nil, fmt.Errorf("holders: %w", err)
	}
	holders := make([]domain.Holder, len(out.Balances))
	for i, b := range out.Balances {
		holders[i] = b.toHolder()
	}
	return holders, nil
}

// AccountBalances returns one page of balances held by account.
func (c *Client) AccountBalances(ctx context.Context, account string, first, skip int) ([]domain.UserAsset, error) {
	var out struct {
		Balances []wireBalance `json:"assetBalances"`
	}
	vars := map[string]any{"account": id(account), "first": first, "skip": skip}
	if err := c.gql.Do(ctx, "AccountBalances", accountBalancesQuery, vars, &out); err != nil {
		return nil, fmt.Errorf("account balances: %w", err)
	}
	balances := make([]domain.UserAsset, len(out.Balances))
	for i, b := range out.Balances {
		ua := domain.UserAsset{Holder: b.toHolder()}
		if b.Asset != nil {
			a := b.Asset.toAsset()
			ua.Asset = &a
		}
		balances[i] = ua
	}
	return balances, nil
}

// Events returns the latest events emitted by asset.
func (c *Client) Events(ctx context.Context, asset string, first int) ([]domain.AssetEvent, error) {
	var out struct {
		Events []struct {
			ID              string `json:"id"`
			EventName       string `json:"eventName"`
			Emitter         ref    `json:"emitter"`
			Sender          ref    `json:"sender"`
			TransactionHash string `json:"transactionHash"`
			BlockTimestamp  string `json:"blockTimestamp"`
			Values          []struct {
				Name  string `json:"name"`
				Value string `json:"value"`
			} `json:"values"`
		} `json:"events"`
	}
	vars := map[string]any{"asset": id(asset), "first": first}
	if err := c.gql.Do(ctx, "Events", eventsQuery, vars, &out); err != nil {
		return nil, fmt.Errorf("events: %w", err)
	}
	events := make([]domain.AssetEvent, len(out.Events))
	for i, e := range out.Events {
		ev := domain.AssetEvent{
			ID:        e.ID,
			Name:      e.EventName,
			Asset:     e.Emitter.ID,
			Sender:    e.Sender.ID,
			TxHash:    e.TransactionHash,
			Timestamp: unixSeconds(e.BlockTimestamp),
		}
		if len(e.Values) > 0 {
			ev.Values = make(map[string]string, len(e.Values))
			for _, v := range e.Values {
				ev.Values[v.Name] = v.Value
			}
		}
		events[i] = ev
	}
	return events, nil
}

// Stats returns hourly stats for asset since the given time.
func (c *Client) Stats(ctx context.Context, asset string, since time.Time) ([]domain.AssetStats, error) {
	var out struct {
		Stats []struct {
			Timestamp   string `json:"timestamp"`
			TotalSupply string `json:"totalSupply"`
			Minted      string `json:"minted"`
			Burned      string `json:"burned"`
			Transferred string `json:"transferred"`
			Count       string `json:"count"`
		} `json:"assetStats"`
	}
	// Aggregation timestamps are microseconds.
	vars := map[string]any{"asset": id(asset), "since": strconv.FormatInt(since.UnixMicro(), 10)}
	if err := c.gql.Do(ctx, "Stats", statsQuery, vars, &out); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	stats := make([]domain.AssetStats, len(out.Stats))
	for i, s := range out.Stats {
		micros, _ := strconv.ParseInt(s.Timestamp, 10, 64)
		count, _ := strconv.Atoi(s.Count)
		stats[i] = domain.AssetStats{
			Asset:         asset,
			Timestamp:     time.UnixMicro(micros).UTC(),
			TotalSupply:   dec(s.TotalSupply),
			Minted:        dec(s.Minted),
			Burned:        dec(s.Burned),
			Transferred:   dec(s.Transferred),
			TransferCount: count,
		}
	}
	return stats, nil
}

// Actions returns actions account may execute.
func (c *Client) Actions(ctx context.Context, account string, first, skip int) ([]domain.Action, error) {
	var out struct {
		Actions []struct {
			ID         string `json:"id"`
			Name       string `json:"name"`
			Type       string `json:"type"`
			Target     ref    `json:"target"`
			ActiveAt   string `json:"activeAt"`
			ExpiresAt  string `json:"expiresAt"`
			Executed   bool   `json:"executed"`
			ExecutedAt string `json:"executedAt"`
			ExecutedBy *ref   `json:"executedBy"`
			Executors  []ref  `json:"executors"`
		} `json:"actions"`
	}
	vars := map[string]any{"account": id(account), "first": first, "skip": skip}
	if err := c.gql.Do(ctx, "Actions", actionsQuery, vars, &out); err != nil {
		return nil, fmt.Errorf("actions: %w", err)
	}
	actions := make([]domain.Action, len(out.Actions))
	for i, a := range out.Actions {
		act := domain.Action{
			ID:         a.ID,
			Name:       a.Name,
			Type:       domain.ActionType(strings.ToLower(a.Type)),
			Target:     a.Target.ID,
			ActiveAt:   unixSeconds(a.ActiveAt),
			ExpiresAt:  optionalUnix(a.ExpiresAt),
			Executed:   a.Executed,
			ExecutedAt: optionalUnix(a.ExecutedAt),
		}
		if a.ExecutedBy != nil {
			act.ExecutedBy = a.ExecutedBy.ID
		}
		for _, e := range a.Executors {
			act.Executors = append(act.Executors, e.ID)
		}
		actions[i] = act
	}
	return actions, nil
}

// Identity returns the identity bound to account, or nil.
func (c *Client) Identity(ctx context.Context, account string) (*domain.Identity, error) {
	var out struct {
		Identities []struct {
			ID      string `json:"id"`
			Account ref    `json:"account"`
			Claims  []struct {
				ID      string `json:"id"`
				Name    string `json:"name"`
				Topic   string `json:"topic"`
				Issuer  ref    `json:"issuer"`
				Revoked bool   `json:"revoked"`
				Values  []struct {
					Key   string `json:"key"`
					Value string `json:"value"`
				} `json:"values"`
			} `json:"claims"`
		} `json:"identities"`
	}
	if err := c.gql.Do(ctx, "Identity", identityQuery, map[string]any{"account": id(account)}, &out); err != nil {
		return nil, fmt.Errorf("identity: %w", err)
	}
	if len(out.Identities) == 0 {
		return nil, nil
	}
	w := out.Identities[0]
	ident := &domain.Identity{ID: w.ID, Account: w.Account.ID, Claims: make([]domain.Claim, 0, len(w.Claims))}
	for _, cl := range w.Claims {
		claim := domain.Claim{
			ID:      cl.ID,
			Topic:   cl.Topic,
			Name:    cl.Name,
			Issuer:  cl.Issuer.ID,
			Revoked: cl.Revoked,
		}
		if len(cl.Values) > 0 {
			claim.Values = make(map[string]string, len(cl.Values))
			for _, v := range cl.Values {
				claim.Values[v.Key] = v.Value
			}
		}
		ident.Claims = append(ident.Claims, claim)
	}
	return ident, nil
}

// Airdrops returns airdrops for an asset.
func (c *Client) Airdrops(ctx context.Context, asset string, first, skip int) ([]domain.Airdrop, error) {
	var out struct {
		Airdrops []wireAirdrop `json:"airdrops"`
	}
	vars := map[string]any{"asset": id(asset), "first": first, "skip": skip}
	if err := c.gql.Do(ctx, "Airdrops", airdropsQuery, vars, &out); err != nil {
		return nil, fmt.Errorf("airdrops: %w", err)
	}
	drops := make([]domain.Airdrop, len(out.Airdrops))
	for i, a := range out.Airdrops {
		drops[i] = a.toAirdrop()
	}
	return drops, nil
}

// AirdropsForRecipient returns airdrops in which account has an allocation.
func (c *Client) AirdropsForRecipient(ctx context.Context, account string, first, skip int) ([]domain.Airdrop, error) {
	var out struct {
		Recipients []struct {
			Airdrop wireAirdrop `json:"airdrop"`
		} `json:"airdropRecipients"`
	}
	vars := map[string]any{"account": id(account), "first": first, "skip": skip}
	if err := c.gql.Do(ctx, "AirdropsForRecipient", airdropsForRecipientQuery, vars, &out); err != nil {
		return nil, fmt.Errorf("airdrops for recipient: %w", err)
	}
	drops := make([]domain.Airdrop, len(out.Recipients))
	for i, r := range out.Recipients {
		drops[i] = r.Airdrop.toAirdrop()
	}
	return drops, nil
}

var _ Indexer = (*Client)(nil)
