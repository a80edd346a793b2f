package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"
)

type object struct {
	data        []byte
	contentType string
}

// Memory implements Store in memory. Presigned URLs point at BaseURL.
type Memory struct {
	BaseURL string

	mu      sync.RWMutex
	objects map[string]object
}

// NewMemory creates an empty store.
func NewMemory(baseURL string) *Memory {
	return &Memory{BaseURL: baseURL, objects: make(map[string]object)}
}

// Put stores an object.
func (m *Memory) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, r)
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	if size >= 0 && n != size {
		return fmt.Errorf("put object %s: read %d bytes, want %d", key, n, size)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = object{data: buf.Bytes(), contentType: contentType}
	return nil
}

// Remove deletes an object.
func (m *Memory) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// PresignedGet returns BaseURL/key with an expiry parameter.
func (m *Memory) PresignedGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return "", ErrNotFound
	}
	if expiry <= 0 {
		expiry = DefaultPresignExpiry
	}
	q := url.Values{"expires": {fmt.Sprintf("%d", int64(expiry/time.Second))}}
	return m.BaseURL + "/" + url.PathEscape(key) + "?" + q.Encode(), nil
}

// Get returns the stored bytes and content type.
func (m *Memory) Get(key string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[key]
	return o.data, o.contentType, ok
}

var _ Store = (*Memory)(nil)
