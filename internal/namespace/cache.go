// Package namespace provides the in-process namespace schema cache.
//
// The cache avoids a catalog round-trip on every write. It may lag the
// catalog but is never ahead of it: callers must treat a miss or stale
// entry as "validate against the catalog and update the cache", never as
// an error. Entries live for the process lifetime; there is no eviction.
package namespace

import (
	"sync"

	"github.com/meridiandb/meridian/pkg/types"
)

// Cache maps namespace names to their last known schema.
type Cache interface {
	// Get returns the cached schema for a namespace, if any.
	Get(name string) (*types.NamespaceSchema, bool)

	// Put stores a schema for a namespace, replacing any previous entry,
	// and returns the entry it replaced (nil on first insert).
	Put(name string, schema *types.NamespaceSchema) *types.NamespaceSchema
}

// MemoryCache is a mutex-guarded in-memory Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*types.NamespaceSchema
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]*types.NamespaceSchema)}
}

// Get returns the cached schema for a namespace, if any.
func (c *MemoryCache) Get(name string) (*types.NamespaceSchema, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	schema, ok := c.entries[name]
	return schema, ok
}

// Put stores a schema, returning the replaced entry if one existed.
func (c *MemoryCache) Put(name string, schema *types.NamespaceSchema) *types.NamespaceSchema {
	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.entries[name]
	c.entries[name] = schema
	return old
}
