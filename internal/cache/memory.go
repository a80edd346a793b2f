package cache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is an in-process Cache on go-cache.
type Memory struct {
	store *gocache.Cache

	mu   sync.Mutex
	tags map[string]map[string]struct{}
}

// NewMemory creates a cache with the given default TTL and cleanup interval.
func NewMemory(defaultTTL, cleanupInterval time.Duration) *Memory {
	return &Memory{
		store: gocache.New(defaultTTL, cleanupInterval),
		tags:  make(map[string]map[string]struct{}),
	}
}

// Get decodes the value at key.
func (m *Memory) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, ok := m.store.Get(key)
	if !ok {
		return false, nil
	}
	if err := decode(key, v.([]byte), dst); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores value under key.
func (m *Memory) Set(ctx context.Context, key string, value any, ttl time.Duration, tags ...string) error {
	data, err := encode(key, value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.store.Set(key, data, ttl)

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tag := range tags {
		keys, ok := m.tags[tag]
		if !ok {
			keys = make(map[string]struct{})
			m.tags[tag] = keys
		}
		keys[key] = struct{}{}
	}
	return nil
}

// Delete removes key.
func (m *Memory) Delete(ctx context.Context, key string) error {
	m.store.Delete(key)
	return nil
}

// InvalidateTags removes every key recorded under the tags.
func (m *Memory) InvalidateTags(ctx context.Context, tags ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tag := range tags {
		for key := range m.tags[tag] {
			m.store.Delete(key)
		}
		delete(m.tags, tag)
	}
	return nil
}

var _ Cache = (*Memory)(nil)
