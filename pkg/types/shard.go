package types

import "sort"

// ShardID identifies one partition of the durable write-buffer log.
type ShardID int32

// ShardSet is an ordered, deduplicated set of shard identifiers.
//
// The ordering is canonical (ascending by ID), never incidental: every
// router process must derive the identical ordered set from the same
// shard inventory or consistent-hash assignments would disagree between
// processes. Do not build shard collections from map iteration order.
type ShardSet []ShardID

// NewShardSet builds a canonical shard set from an arbitrary-order,
// possibly duplicated list of shard IDs.
func NewShardSet(ids ...ShardID) ShardSet {
	seen := make(map[ShardID]struct{}, len(ids))
	out := make(ShardSet, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Contains reports whether the set contains the given shard.
func (s ShardSet) Contains(id ShardID) bool {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= id })
	return i < len(s) && s[i] == id
}

// Merge returns the canonical union of two shard sets.
func (s ShardSet) Merge(other ShardSet) ShardSet {
	return NewShardSet(append(append(ShardSet{}, s...), other...)...)
}
