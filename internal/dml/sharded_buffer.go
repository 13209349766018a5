package dml

import (
	"context"
	"errors"
	"sort"

	"github.com/meridiandb/meridian/internal/sequencer"
	"github.com/meridiandb/meridian/internal/sharder"
	"github.com/meridiandb/meridian/pkg/types"
)

// ShardedWriteBuffer routes one partition's write to its write-buffer
// shards. Each table batch is assigned a shard by consistent-hashing
// the (namespace, table) routing key; batches landing on the same shard
// are published together through that shard's sequencer, and distinct
// shards are published in parallel.
//
// The sharder is built once at startup from the write buffer's reported
// shard inventory; membership is static for the process lifetime.
type ShardedWriteBuffer struct {
	sharder *sharder.JumpHash[*sequencer.Sequencer]
}

// NewShardedWriteBuffer creates the terminal pipeline stage over the
// given sharder.
func NewShardedWriteBuffer(s *sharder.JumpHash[*sequencer.Sequencer]) *ShardedWriteBuffer {
	return &ShardedWriteBuffer{sharder: s}
}

// Handle publishes the partitioned write and returns the set of shards
// it landed on. Per-shard failures are aggregated (ordered by shard ID)
// into one error; shards whose publish succeeded keep their data.
func (b *ShardedWriteBuffer) Handle(ctx context.Context, write *types.PartitionedWrite) (types.ShardSet, error) {
	// Group table batches by target sequencer. Table names are walked in
	// sorted order so the grouping is identical on every process.
	tables := make([]string, 0, len(write.Tables))
	for table := range write.Tables {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	groups := make(map[*sequencer.Sequencer]*types.PartitionedWrite)
	for _, table := range tables {
		seq := b.sharder.Shard(sharder.RoutingKey(write.Namespace, table))
		group, ok := groups[seq]
		if !ok {
			group = &types.PartitionedWrite{
				Namespace: write.Namespace,
				Key:       write.Key,
				Tables:    make(map[string][]types.Row),
			}
			groups[seq] = group
		}
		group.Tables[table] = write.Tables[table]
	}

	sequencers := make([]*sequencer.Sequencer, 0, len(groups))
	for seq := range groups {
		sequencers = append(sequencers, seq)
	}
	sort.Slice(sequencers, func(i, j int) bool { return sequencers[i].ID() < sequencers[j].ID() })

	// Publish shard groups in parallel; the sequencers serialize appends
	// within their own shard.
	errs := make([]error, len(sequencers))
	done := make(chan struct{}, len(sequencers))
	for i, seq := range sequencers {
		go func(i int, seq *sequencer.Sequencer) {
			if err := seq.Publish(ctx, groups[seq]); err != nil {
				errs[i] = &ShardError{Shard: seq.ID(), Partition: write.Key, Err: err}
			}
			done <- struct{}{}
		}(i, seq)
	}
	for range sequencers {
		<-done
	}

	var failures []error
	shards := make([]types.ShardID, 0, len(sequencers))
	for i, seq := range sequencers {
		if errs[i] != nil {
			failures = append(failures, errs[i])
			continue
		}
		shards = append(shards, seq.ID())
	}
	if len(failures) > 0 {
		// errs were collected in ascending shard order, so the joined
		// error is deterministic.
		return nil, errors.Join(failures...)
	}
	return types.NewShardSet(shards...), nil
}
