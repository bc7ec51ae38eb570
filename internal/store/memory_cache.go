package store

import (
	"context"
	"sync"
	"time"
)

// InMemoryCache implements Cache with a mutex-guarded map. It caches token
// verification results so hot sessions skip the identity service round trip.
type InMemoryCache struct {
	data    map[string]*cacheItem
	mu      sync.RWMutex
	maxSize int
}

type cacheItem struct {
	value     string
	expiresAt time.Time
}

// NewInMemoryCache creates a new in-memory cache bounded to maxSize entries.
func NewInMemoryCache(maxSize int) *InMemoryCache {
	cache := &InMemoryCache{
		data:    make(map[string]*cacheItem),
		maxSize: maxSize,
	}

	go cache.cleanup()

	return cache
}

// Get retrieves a value from cache. Expired entries count as missing.
func (c *InMemoryCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.data[key]
	if !exists {
		return "", ErrNotFound
	}

	if time.Now().After(item.expiresAt) {
		return "", ErrNotFound
	}

	return item.value, nil
}

// Set stores a value in cache with a TTL, evicting an arbitrary entry when
// the cache is full.
func (c *InMemoryCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.data) >= c.maxSize {
		for k, v := range c.data {
			if time.Now().After(v.expiresAt) {
				delete(c.data, k)
				break
			}
		}
		if len(c.data) >= c.maxSize {
			for k := range c.data {
				delete(c.data, k)
				break
			}
		}
	}

	c.data[key] = &cacheItem{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}

	return nil
}

// Delete removes a value from cache.
func (c *InMemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
	return nil
}

// cleanup periodically removes expired entries.
func (c *InMemoryCache) cleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		now := time.Now()
		for key, item := range c.data {
			if now.After(item.expiresAt) {
				delete(c.data, key)
			}
		}
		c.mu.Unlock()
	}
}

// Size returns the number of items in cache.
func (c *InMemoryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
