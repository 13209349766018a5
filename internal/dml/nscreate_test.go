package dml

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridiandb/meridian/internal/namespace"
	"github.com/meridiandb/meridian/pkg/types"
)

func writeTo(ns string) *types.WriteRequest {
	return &types.WriteRequest{
		Namespace: ns,
		Tables: map[string][]types.Row{
			"cpu": {{Timestamp: 1, Fields: map[string]interface{}{"v": 1.0}}},
		},
	}
}

func TestNamespaceAutocreation_CreatesAndCaches(t *testing.T) {
	cat := newCatalogMock()
	cache := namespace.NewMemoryCache()
	h := NewNamespaceAutocreation(cat, cache, 1, 1, "inf")

	out, err := h.Handle(context.Background(), writeTo("n1"))
	require.NoError(t, err)
	assert.Equal(t, "n1", out.Namespace)
	assert.Equal(t, 1, cat.createNamespaceCalls)

	// The cache population is visible immediately.
	schema, ok := cache.Get("n1")
	require.True(t, ok)
	assert.Equal(t, "n1", schema.Name)
	assert.Empty(t, schema.Tables)
}

func TestNamespaceAutocreation_CacheHitSkipsCatalog(t *testing.T) {
	cat := newCatalogMock()
	cache := namespace.NewMemoryCache()
	cache.Put("n1", &types.NamespaceSchema{ID: 7, Name: "n1", Tables: map[string]*types.TableSchema{}})

	h := NewNamespaceAutocreation(cat, cache, 1, 1, "inf")
	_, err := h.Handle(context.Background(), writeTo("n1"))
	require.NoError(t, err)
	assert.Equal(t, 0, cat.createNamespaceCalls)
}

func TestNamespaceAutocreation_CatalogFailureFailsRequest(t *testing.T) {
	cat := newCatalogMock()
	cat.createErr = errors.New("catalog unreachable")
	cache := namespace.NewMemoryCache()

	h := NewNamespaceAutocreation(cat, cache, 1, 1, "inf")
	_, err := h.Handle(context.Background(), writeTo("n1"))

	var nsErr *NamespaceError
	require.True(t, errors.As(err, &nsErr))
	assert.Equal(t, "n1", nsErr.Namespace)

	// No cache entry on failure.
	_, ok := cache.Get("n1")
	assert.False(t, ok)
}

func TestNamespaceAutocreation_ConcurrentCallersConverge(t *testing.T) {
	cat := newCatalogMock()
	cache := namespace.NewShardedCache(4)
	h := NewNamespaceAutocreation(cat, cache, 1, 1, "inf")

	const callers = 10
	ids := make([]types.NamespaceID, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.Handle(context.Background(), writeTo("n1"))
			require.NoError(t, err)
			schema, ok := cache.Get("n1")
			require.True(t, ok)
			ids[i] = schema.ID
		}(i)
	}
	wg.Wait()

	// Exactly one catalog record; every caller observed the same identity.
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}
