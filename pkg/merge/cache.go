package merge

import (
	"sync"
)

// Cache is the explicitly owned merged-resource table, keyed by path.
// Entries are never trusted once any contributing mod's identity,
// priority or content changes: lookups must present the current
// contributor key. Invalidation happens only through these methods; the
// registry enumerates its mutation triggers and calls them.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*MergedResource
}

// NewCache creates an empty merge cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*MergedResource)}
}

// Get returns the cached result for path when its contributor key still
// matches.
func (c *Cache) Get(path string, key uint64) (*MergedResource, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[path]
	if !ok || entry.Key != key {
		return nil, false
	}
	return entry, true
}

// Put stores a composition result.
func (c *Cache) Put(res *MergedResource) {
	c.mu.Lock()
	c.entries[res.Path] = res
	c.mu.Unlock()
}

// Invalidate drops the entries for the given paths.
func (c *Cache) Invalidate(paths ...string) {
	c.mu.Lock()
	for _, p := range paths {
		delete(c.entries, p)
	}
	c.mu.Unlock()
}

// InvalidateAll drops every entry; used by forced refresh.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]*MergedResource)
	c.mu.Unlock()
}

// Remove retires a path from the cache.
func (c *Cache) Remove(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}

// Paths returns the cached paths.
func (c *Cache) Paths() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.entries))
	for p := range c.entries {
		out = append(out, p)
	}
	return out
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
