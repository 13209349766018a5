package sharder

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridiandb/meridian/pkg/types"
)

func shardIDs(n int) []types.ShardID {
	ids := make([]types.ShardID, n)
	for i := range ids {
		ids[i] = types.ShardID(i)
	}
	return ids
}

func TestNew_EmptyShardSet(t *testing.T) {
	_, err := New([]types.ShardID{})
	assert.Error(t, err)
}

func TestShard_DeterministicAcrossInstances(t *testing.T) {
	a, err := New(shardIDs(12))
	require.NoError(t, err)
	b, err := New(shardIDs(12))
	require.NoError(t, err)

	for i := 0; i < 1000; i++ {
		key := RoutingKey(fmt.Sprintf("ns-%d", i%7), fmt.Sprintf("table-%d", i))
		assert.Equal(t, a.Shard(key), b.Shard(key))
	}
}

func TestShard_RepeatedCallsStable(t *testing.T) {
	j, err := New(shardIDs(5))
	require.NoError(t, err)

	key := RoutingKey("n1", "cpu")
	first := j.Shard(key)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, j.Shard(key))
	}
}

func TestRoutingKey_DistinctPairsDistinctKeys(t *testing.T) {
	// The NUL separator keeps ("ab","c") and ("a","bc") apart.
	assert.NotEqual(t, RoutingKey("ab", "c"), RoutingKey("a", "bc"))
	assert.Equal(t, RoutingKey("n1", "cpu"), RoutingKey("n1", "cpu"))
}

func TestShard_ReasonableDistribution(t *testing.T) {
	const shards = 10
	const keys = 10000

	j, err := New(shardIDs(shards))
	require.NoError(t, err)

	counts := make(map[types.ShardID]int)
	for i := 0; i < keys; i++ {
		counts[j.Shard(RoutingKey("bench", fmt.Sprintf("table-%d", i)))]++
	}

	// Every shard should receive a meaningful share of a uniform key
	// population: within a factor of two of the mean in either direction.
	mean := keys / shards
	for id, n := range counts {
		assert.Greater(t, n, mean/2, "shard %d starved (%d keys)", id, n)
		assert.Less(t, n, mean*2, "shard %d overloaded (%d keys)", id, n)
	}
}
