// ABOUTME: Bounded render cache keyed by sha256 of the DOT text and the output format.
// ABOUTME: Graph images are re-requested on every dashboard refresh; unchanged graphs skip graphviz.
package render

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// Func renders DOT text to a format.
type Func func(ctx context.Context, dotText string, format string) ([]byte, error)

type cacheEntry struct {
	data      []byte
	createdAt time.Time
}

// Cache wraps a Func. Errors are never cached.
type Cache struct {
	render     Func
	ttl        time.Duration
	maxEntries int

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewCache caches up to maxEntries results for ttl each.
func NewCache(render Func, ttl time.Duration, maxEntries int) *Cache {
	return &Cache{
		render:     render,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]cacheEntry),
	}
}

// Render returns a cached result when fresh, otherwise renders and stores it.
func (c *Cache) Render(ctx context.Context, dotText string, format string) ([]byte, error) {
	key := cacheKey(dotText, format)

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && time.Since(e.createdAt) < c.ttl {
		c.mu.Unlock()
		return e.data, nil
	}
	c.mu.Unlock()

	data, err := c.render(ctx, dotText, format)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictLocked()
	c.entries[key] = cacheEntry{data: data, createdAt: time.Now()}
	return data, nil
}

// evictLocked drops expired entries, then the oldest ones until there is room for one more.
func (c *Cache) evictLocked() {
	now := time.Now()
	for k, e := range c.entries {
		if now.Sub(e.createdAt) >= c.ttl {
			delete(c.entries, k)
		}
	}
	for c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		var oldestKey string
		var oldest time.Time
		for k, e := range c.entries {
			if oldest.IsZero() || e.createdAt.Before(oldest) {
				oldestKey, oldest = k, e.createdAt
			}
		}
		delete(c.entries, oldestKey)
	}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

func cacheKey(dotText string, format string) string {
	return fmt.Sprintf("%x:%s", sha256.Sum256([]byte(dotText)), format)
}
