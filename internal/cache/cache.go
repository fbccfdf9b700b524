package cache

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// entry holds one cached value with its expiry.
type entry struct {
	expiresAt time.Time
	value     any
}

// Cache is a keyed TTL cache. Expired entries count as misses and are
// evicted lazily on the access that finds them stale; there is no
// background sweep. Values are treated as immutable once written: a new
// Put replaces the entry, it never mutates in place.
type Cache struct {
	mu    sync.RWMutex
	items map[string]entry

	now func() time.Time // overridable for tests
}

func New() *Cache {
	return &Cache{items: make(map[string]entry), now: time.Now}
}

// Get returns the value for key if present and unexpired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		// re-check under the write lock; another Put may have refreshed it
		if cur, ok := c.items[key]; ok && c.now().After(cur.expiresAt) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Put stores value under key for ttl. A non-positive ttl stores nothing.
func (c *Cache) Put(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.items[key] = entry{expiresAt: c.now().Add(ttl), value: value}
	c.mu.Unlock()
}

// Len reports live (unexpired) entries. Intended for tests and debugging.
func (c *Cache) Len() int {
	now := c.now()
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, e := range c.items {
		if !now.After(e.expiresAt) {
			n++
		}
	}
	return n
}

// SetClock replaces the cache's time source. Tests only.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// QuoteKey builds the cache key for a quote request. The market is part of
// the key because it changes how the ticker resolves upstream.
func QuoteKey(market, ticker string) string {
	return fmt.Sprintf("quote:%s:%s", market, strings.ToUpper(ticker))
}

// HistoryKey builds the cache key for a history request.
func HistoryKey(market, ticker, rng string) string {
	return fmt.Sprintf("history:%s:%s:%s", market, strings.ToUpper(ticker), rng)
}

// SearchKey builds the cache key for a search request. Queries are
// case-folded so retyped capitalization reuses the entry.
func SearchKey(query string) string {
	return "search:" + strings.ToLower(strings.TrimSpace(query))
}
