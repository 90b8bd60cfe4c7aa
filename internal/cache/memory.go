package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/utafrali/catalog-search/internal/domain"
)

// DefaultMaxEntries bounds an in-process cache.
const DefaultMaxEntries = 10000

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// MemoryCache is an in-process ResultCache. Pages are kept serialized so
// that a hit returns exactly what was stored, unaffected by later mutation
// of the caller's copy.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	maxEntries int
	now        func() time.Time
}

// NewMemoryCache creates an in-process cache holding at most maxEntries
// pages. A non-positive maxEntries means DefaultMaxEntries.
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryCache{
		entries:    make(map[string]memoryEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the page at key unless it has expired.
func (c *MemoryCache) Get(_ context.Context, key string) (*domain.SearchPage, bool, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && !c.now().Before(e.expires) {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()

	if !ok {
		return nil, false, nil
	}

	var page domain.SearchPage
	if err := json.Unmarshal(e.data, &page); err != nil {
		return nil, false, fmt.Errorf("unmarshal search page: %w", err)
	}
	return &page, true, nil
}

// Put stores page until now+ttl. When full, expired pages are dropped
// first, then an arbitrary live one.
func (c *MemoryCache) Put(_ context.Context, key string, page *domain.SearchPage, ttl time.Duration) error {
	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("marshal search page: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}
	c.entries[key] = memoryEntry{data: data, expires: c.now().Add(ttl)}
	return nil
}

// Invalidate removes one page.
func (c *MemoryCache) Invalidate(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Purge removes every page.
func (c *MemoryCache) Purge(context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored pages, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryCache) evictLocked() {
	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
	if len(c.entries) < c.maxEntries {
		return
	}
	for k := range c.entries {
		delete(c.entries, k)
		return
	}
}
