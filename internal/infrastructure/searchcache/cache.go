package searchcache

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/srcbook/websearch-mcp/internal/domain/search"
	"github.com/srcbook/websearch-mcp/internal/infrastructure/metrics"
)

// Cache keeps the most recent searches, newest first. Entries are addressed by
// position, so an index names a different search after every insert.
type Cache struct {
	mu      sync.Mutex
	entries *lru.Cache
	seq     uint64
}

// New creates a cache holding at most capacity searches.
func New(capacity int) (*Cache, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("search cache capacity must be positive, got %d", capacity)
	}
	entries, err := lru.New(capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries}, nil
}

// NewDefault creates a cache with the standard capacity.
func NewDefault() (*Cache, error) {
	return New(search.MaxCachedSearches)
}

// Push stores entry at index 0, evicting the oldest entry when full.
func (c *Cache) Push(entry search.CachedSearch) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.entries.Add(c.seq, entry)
	metrics.SetCacheEntries(c.entries.Len())
}

// List returns a snapshot of all entries, newest first.
func (c *Cache) List() []search.CachedSearch {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := c.entries.Keys()
	out := make([]search.CachedSearch, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		if v, ok := c.entries.Peek(keys[i]); ok {
			out = append(out, v.(search.CachedSearch))
		}
	}
	return out
}

// Get returns the entry at index, where 0 is the most recent search.
func (c *Cache) Get(index int) (search.CachedSearch, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := c.entries.Keys()
	if index < 0 || index >= len(keys) {
		return search.CachedSearch{}, false
	}
	v, ok := c.entries.Peek(keys[len(keys)-1-index])
	if !ok {
		return search.CachedSearch{}, false
	}
	return v.(search.CachedSearch), true
}

// Len returns the number of cached searches.
func (c *Cache) Len() int {
	return c.entries.Len()
}
