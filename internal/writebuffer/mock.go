package writebuffer

import (
	"context"
	"sync"

	"github.com/meridiandb/meridian/pkg/types"
)

// Mock is an in-memory WriteBuffer for tests. It records every publish
// per shard and can be primed to fail publishes to specific shards.
type Mock struct {
	shards types.ShardSet

	mu        sync.Mutex
	published map[types.ShardID][]*types.PartitionedWrite
	failures  map[types.ShardID]error
}

// NewMock creates a mock buffer with shard IDs 0..shardCount-1.
func NewMock(shardCount int) *Mock {
	ids := make([]types.ShardID, shardCount)
	for i := range ids {
		ids[i] = types.ShardID(i)
	}
	return &Mock{
		shards:    types.NewShardSet(ids...),
		published: make(map[types.ShardID][]*types.PartitionedWrite),
		failures:  make(map[types.ShardID]error),
	}
}

// FailShard makes subsequent publishes to the given shard return err.
func (m *Mock) FailShard(shard types.ShardID, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[shard] = err
}

// ShardIDs returns the mock's shard inventory.
func (m *Mock) ShardIDs() types.ShardSet {
	return m.shards
}

// Publish records the batch, or returns the primed error for the shard.
func (m *Mock) Publish(ctx context.Context, shard types.ShardID, write *types.PartitionedWrite) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failures[shard]; ok {
		return err
	}
	m.published[shard] = append(m.published[shard], write)
	return nil
}

// Published returns the batches recorded for one shard, in publish order.
func (m *Mock) Published(shard types.ShardID) []*types.PartitionedWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*types.PartitionedWrite, len(m.published[shard]))
	copy(out, m.published[shard])
	return out
}

// PublishedCount returns the total number of recorded publishes.
func (m *Mock) PublishedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, writes := range m.published {
		n += len(writes)
	}
	return n
}

// Close is a no-op.
func (m *Mock) Close() error { return nil }
