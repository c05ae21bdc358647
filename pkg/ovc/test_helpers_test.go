package ovc

import (
	"context"
	"sync"
	"time"
)

// memCache is an in-memory Cache for tests.
type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	lastTTL time.Duration
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
	m.lastTTL = ttl
	return nil
}
