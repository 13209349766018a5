// Package writebuffer provides the durable, sharded write-buffer log
// the router publishes into.
//
// The buffer is an append-only log split into independently ordered
// shards. The router treats shard membership as static for the process
// lifetime: the inventory is read once at startup and fed to the
// sharder. Ordering is guaranteed only within one shard; the sequencer
// layer serializes publishes per shard to preserve it.
package writebuffer

import (
	"context"
	"errors"

	"github.com/meridiandb/meridian/pkg/types"
)

// Structured write-buffer errors.
var (
	// ErrUnknownShard is returned when publishing to a shard outside the
	// buffer's inventory.
	ErrUnknownShard = errors.New("unknown shard")

	// ErrClosed is returned when publishing to a closed buffer.
	ErrClosed = errors.New("write buffer closed")
)

// WriteBuffer accepts partitioned write batches for durable append.
type WriteBuffer interface {
	// ShardIDs returns the buffer's shard inventory as a canonically
	// ordered set.
	ShardIDs() types.ShardSet

	// Publish durably appends a batch to one shard. Callers must
	// serialize publishes to the same shard; the sequencer layer owns
	// that responsibility.
	Publish(ctx context.Context, shard types.ShardID, write *types.PartitionedWrite) error

	// Close releases the buffer's resources. Publish calls after Close
	// fail with ErrClosed.
	Close() error
}
