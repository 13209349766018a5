package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewShardSet_SortsAndDeduplicates(t *testing.T) {
	set := NewShardSet(7, 2, 7, 0, 5, 2)
	assert.Equal(t, ShardSet{0, 2, 5, 7}, set)
}

func TestNewShardSet_CanonicalAcrossInputOrder(t *testing.T) {
	a := NewShardSet(3, 1, 2)
	b := NewShardSet(2, 3, 1)
	assert.Equal(t, a, b)
}

func TestShardSet_Contains(t *testing.T) {
	set := NewShardSet(1, 3, 5)
	assert.True(t, set.Contains(3))
	assert.False(t, set.Contains(4))
	assert.False(t, ShardSet{}.Contains(0))
}

func TestShardSet_Merge(t *testing.T) {
	a := NewShardSet(1, 2)
	b := NewShardSet(2, 9)
	assert.Equal(t, ShardSet{1, 2, 9}, a.Merge(b))
}
