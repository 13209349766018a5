package namespace

import (
	"hash/fnv"

	"github.com/meridiandb/meridian/pkg/types"
)

// DefaultCacheShards is the default number of cache shards.
const DefaultCacheShards = 10

// ShardedCache distributes namespaces across N inner caches so that
// concurrent validators for different namespaces never contend on the
// same lock. Shard selection: fnv32a(name) % shardCount, the same
// scheme the catalog shard files use.
type ShardedCache struct {
	shards     []Cache
	shardCount uint32
}

// NewShardedCache creates a sharded cache over shardCount in-memory
// shards. The shard count is fixed for the cache's lifetime.
func NewShardedCache(shardCount int) *ShardedCache {
	if shardCount <= 0 {
		shardCount = DefaultCacheShards
	}
	shards := make([]Cache, shardCount)
	for i := range shards {
		shards[i] = NewMemoryCache()
	}
	return &ShardedCache{shards: shards, shardCount: uint32(shardCount)}
}

// shardFor returns the shard index for a namespace name.
func (c *ShardedCache) shardFor(name string) int {
	h := fnv.New32a()
	h.Write([]byte(name))
	return int(h.Sum32() % c.shardCount)
}

// Get returns the cached schema for a namespace, if any.
func (c *ShardedCache) Get(name string) (*types.NamespaceSchema, bool) {
	return c.shards[c.shardFor(name)].Get(name)
}

// Put stores a schema, returning the replaced entry if one existed.
func (c *ShardedCache) Put(name string, schema *types.NamespaceSchema) *types.NamespaceSchema {
	return c.shards[c.shardFor(name)].Put(name, schema)
}

// ShardCount returns the number of cache shards.
func (c *ShardedCache) ShardCount() int {
	return int(c.shardCount)
}
