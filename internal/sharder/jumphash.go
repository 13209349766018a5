// Package sharder maps routing keys onto write-buffer shards with jump
// consistent hashing.
package sharder

import (
	"fmt"

	"github.com/spaolacci/murmur3"
)

// JumpHash deterministically maps a routing key to one of a fixed set
// of shard handles using the Lamping-Veach jump consistent hash.
//
// The assignment is a pure function of (key, shard list): every router
// process constructing a JumpHash from the same canonically ordered
// shard list routes identical keys to identical shards. Construction
// therefore requires an already-ordered slice; passing shards in an
// incidental order (map iteration, arrival order) breaks cross-process
// agreement. When the shard list grows or shrinks, only ~1/n of keys
// remap.
type JumpHash[T any] struct {
	shards []T
}

// New creates a sharder over the given canonically ordered shard
// handles. The slice is captured as-is; it must not be mutated after.
func New[T any](shards []T) (*JumpHash[T], error) {
	if len(shards) == 0 {
		return nil, fmt.Errorf("sharder: shard set must not be empty")
	}
	return &JumpHash[T]{shards: shards}, nil
}

// RoutingKey derives the sharding key bytes for a (namespace, table)
// pair. The separator cannot occur in either name, so distinct pairs
// never collide.
func RoutingKey(namespace, table string) []byte {
	key := make([]byte, 0, len(namespace)+len(table)+1)
	key = append(key, namespace...)
	key = append(key, 0)
	key = append(key, table...)
	return key
}

// Shard returns the shard handle owning the given routing key.
func (j *JumpHash[T]) Shard(key []byte) T {
	return j.shards[jump(murmur3.Sum64(key), int32(len(j.shards)))]
}

// Len returns the number of shards.
func (j *JumpHash[T]) Len() int {
	return len(j.shards)
}

// Shards returns the ordered shard handles the sharder was built from.
func (j *JumpHash[T]) Shards() []T {
	return j.shards
}

// jump is the jump consistent hash function of Lamping & Veach,
// "A Fast, Minimal Memory, Consistent Hash Algorithm" (2014).
func jump(key uint64, buckets int32) int32 {
	var b, j int64 = -1, 0
	for j < int64(buckets) {
		b = j
		key = key*2862933555777941757 + 1
		j = int64(float64(b+1) * (float64(int64(1)<<31) / float64((key>>33)+1)))
	}
	return int32(b)
}
