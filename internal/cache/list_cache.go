package cache

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultListCacheSize is the number of directory listings kept by default.
const DefaultListCacheSize = 1024

// ListCache caches directory listings keyed by normalized directory path.
// Entries never expire on their own; the owner must invalidate every
// directory whose children change.
//
// Thread-safe: the underlying LRU is internally locked.
type ListCache struct {
	entries *lru.Cache[string, []string]
	maxSize int
}

// NewListCache creates a listing cache holding at most maxSize directories.
// maxSize <= 0 selects DefaultListCacheSize.
func NewListCache(maxSize int) *ListCache {
	if maxSize <= 0 {
		maxSize = DefaultListCacheSize
	}
	entries, err := lru.New[string, []string](maxSize)
	if err != nil {
		// lru.New only fails for a non-positive size
		panic("cache: " + err.Error())
	}
	return &ListCache{entries: entries, maxSize: maxSize}
}

// Get returns a copy of the cached listing for dir.
// Reports a miss if not found or caching is disabled (VSHELL_CACHE=0).
func (c *ListCache) Get(dir string) ([]string, bool) {
	if Disabled {
		return nil, false
	}
	names, ok := c.entries.Get(dir)
	if !ok {
		return nil, false
	}
	return append([]string(nil), names...), true
}

// Set stores a listing for dir. No-op if caching is disabled.
func (c *ListCache) Set(dir string, names []string) {
	if Disabled {
		return
	}
	c.entries.Add(dir, append([]string(nil), names...))
}

// Invalidate clears all entries from the cache.
func (c *ListCache) Invalidate() {
	c.entries.Purge()
}

// InvalidateDir removes the listing of a single directory.
func (c *ListCache) InvalidateDir(dir string) {
	c.entries.Remove(dir)
}

// InvalidateTree removes root and every cached directory nested under it.
func (c *ListCache) InvalidateTree(root string) {
	prefix := root
	if !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}
	for _, dir := range c.entries.Keys() {
		if dir == root || strings.HasPrefix(dir, prefix) {
			c.entries.Remove(dir)
		}
	}
}

// Size returns the current number of entries in the cache.
func (c *ListCache) Size() int {
	return c.entries.Len()
}

// ListCacheStats holds cache statistics.
type ListCacheStats struct {
	Size    int
	MaxSize int
}

// Stats returns current cache statistics.
func (c *ListCache) Stats() ListCacheStats {
	return ListCacheStats{
		Size:    c.entries.Len(),
		MaxSize: c.maxSize,
	}
}
