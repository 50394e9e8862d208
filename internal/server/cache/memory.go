package cache

import (
	"context"
	"sync"
	"time"
)

// Compile-time interface check
var _ Cache = (*MemoryCache)(nil)

type memoryItem struct {
	entry     *Entry
	expiresAt time.Time
}

// MemoryCache is a process-local Cache used in tests and single-node
// setups. Expired items are dropped lazily on GetDel; entries are so
// short-lived that a background sweep is not worth a goroutine.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memoryItem
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]memoryItem)}
}

func (c *MemoryCache) Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.items == nil {
		return nil
	}
	c.items[key] = memoryItem{entry: entry, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (c *MemoryCache) GetDel(ctx context.Context, key string) (*Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	delete(c.items, key)

	if time.Now().After(item.expiresAt) {
		return nil, ErrCacheMiss
	}
	return item.entry, nil
}

func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = nil
	return nil
}
