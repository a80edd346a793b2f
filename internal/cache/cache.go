// Package cache provides tag-invalidated read caches for the query layer.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"asset-tokenization-kit/internal/observability"
)

// Tags shared by the mutation and query layers.
const (
	TagAssets        = "assets"
	TagExchangeRates = "exchange-rates"
)

// AssetTag is the tag of one asset's cached reads.
func AssetTag(address string) string {
	return "asset:" + address
}

// Cache stores JSON-encoded values with a TTL and optional tags.
type Cache interface {
	// Get decodes the value at key into dst. found is false on a miss.
	Get(ctx context.Context, key string, dst any) (found bool, err error)

	// Set stores value under key for ttl and records key under each tag.
	Set(ctx context.Context, key string, value any, ttl time.Duration, tags ...string) error

	// Delete removes key.
	Delete(ctx context.Context, key string) error

	// InvalidateTags removes every key recorded under the tags.
	InvalidateTags(ctx context.Context, tags ...string) error
}

// GetOrLoad returns the cached value at key, or calls load and caches its result.
// A failing cache read falls through to load.
func GetOrLoad[T any](ctx context.Context, c Cache, key string, ttl time.Duration, tags []string, load func(ctx context.Context) (T, error)) (T, error) {
	var v T
	if c != nil {
		found, err := c.Get(ctx, key, &v)
		if err == nil && found {
			observability.RecordCacheLookup(true)
			return v, nil
		}
		observability.RecordCacheLookup(false)
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if c != nil {
		_ = c.Set(ctx, key, v, ttl, tags...)
	}
	return v, nil
}

func encode(key string, value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode cache value %s: %w", key, err)
	}
	return data, nil
}

func decode(key string, data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode cache value %s: %w", key, err)
	}
	return nil
}
