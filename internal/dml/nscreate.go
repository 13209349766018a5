package dml

import (
	"context"

	"github.com/meridiandb/meridian/internal/catalog"
	"github.com/meridiandb/meridian/internal/namespace"
	"github.com/meridiandb/meridian/pkg/types"
)

// NamespaceAutocreation ensures a write's namespace exists before
// routing, recording it against a fixed topic, query pool, and
// retention policy. The catalog upsert is idempotent, so concurrent
// routers creating the same namespace converge on one record.
//
// This stage is a convenience for deployments where namespaces are not
// pre-provisioned; production deployments omit it from the chain and
// require namespaces to pre-exist.
type NamespaceAutocreation struct {
	catalog   catalog.Catalog
	cache     namespace.Cache
	topicID   types.TopicID
	poolID    types.QueryPoolID
	retention string
}

// NewNamespaceAutocreation creates the autocreation stage. Namespaces
// it creates are bound to the given topic and query pool with the given
// retention policy ("inf" for no expiry).
func NewNamespaceAutocreation(cat catalog.Catalog, cache namespace.Cache, topicID types.TopicID, poolID types.QueryPoolID, retention string) *NamespaceAutocreation {
	return &NamespaceAutocreation{
		catalog:   cat,
		cache:     cache,
		topicID:   topicID,
		poolID:    poolID,
		retention: retention,
	}
}

// Handle passes the write through unchanged once the namespace is known
// to exist. A cached namespace needs no catalog call; on a miss the
// namespace is created-or-fetched and the cache populated, making the
// result immediately visible to subsequent requests.
func (h *NamespaceAutocreation) Handle(ctx context.Context, req *types.WriteRequest) (*types.WriteRequest, error) {
	if _, ok := h.cache.Get(req.Namespace); ok {
		return req, nil
	}

	ns, err := h.catalog.CreateOrGetNamespace(ctx, req.Namespace, h.topicID, h.poolID, h.retention)
	if err != nil {
		return nil, &NamespaceError{Namespace: req.Namespace, Err: err}
	}

	h.cache.Put(req.Namespace, &types.NamespaceSchema{
		ID:     ns.ID,
		Name:   ns.Name,
		Tables: make(map[string]*types.TableSchema),
	})
	return req, nil
}
