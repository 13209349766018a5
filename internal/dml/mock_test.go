package dml

import (
	"context"
	"fmt"
	"sync"

	"github.com/meridiandb/meridian/internal/catalog"
	"github.com/meridiandb/meridian/pkg/types"
)

// catalogMock is an in-memory catalog.Catalog recording call counts; it
// mirrors the real store's idempotent upsert semantics.
type catalogMock struct {
	mu sync.Mutex

	namespaces map[string]*types.NamespaceSchema
	nextNsID   types.NamespaceID

	createNamespaceCalls int
	getSchemaCalls       int
	extendCalls          int

	createErr error
	extendErr error
}

func newCatalogMock() *catalogMock {
	return &catalogMock{
		namespaces: make(map[string]*types.NamespaceSchema),
		nextNsID:   1,
	}
}

func (c *catalogMock) CreateOrGetTopic(ctx context.Context, name string) (*catalog.Topic, error) {
	return &catalog.Topic{ID: 1, Name: name}, nil
}

func (c *catalogMock) GetTopicByName(ctx context.Context, name string) (*catalog.Topic, error) {
	return &catalog.Topic{ID: 1, Name: name}, nil
}

func (c *catalogMock) CreateOrGetQueryPool(ctx context.Context, name string) (*catalog.QueryPool, error) {
	return &catalog.QueryPool{ID: 1, Name: name}, nil
}

func (c *catalogMock) CreateOrGetNamespace(ctx context.Context, name string, topicID types.TopicID, poolID types.QueryPoolID, retention string) (*catalog.Namespace, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.createNamespaceCalls++

	if c.createErr != nil {
		return nil, c.createErr
	}

	schema, ok := c.namespaces[name]
	if !ok {
		schema = &types.NamespaceSchema{
			ID:     c.nextNsID,
			Name:   name,
			Tables: make(map[string]*types.TableSchema),
		}
		c.nextNsID++
		c.namespaces[name] = schema
	}
	return &catalog.Namespace{
		ID:          schema.ID,
		Name:        name,
		TopicID:     topicID,
		QueryPoolID: poolID,
		Retention:   retention,
	}, nil
}

func (c *catalogMock) GetNamespaceByName(ctx context.Context, name string) (*catalog.Namespace, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	schema, ok := c.namespaces[name]
	if !ok {
		return nil, fmt.Errorf("catalog: namespace %q: %w", name, catalog.ErrNamespaceNotFound)
	}
	return &catalog.Namespace{ID: schema.ID, Name: name}, nil
}

func (c *catalogMock) GetNamespaceSchema(ctx context.Context, name string) (*types.NamespaceSchema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getSchemaCalls++

	schema, ok := c.namespaces[name]
	if !ok {
		return nil, fmt.Errorf("catalog: namespace %q: %w", name, catalog.ErrNamespaceNotFound)
	}
	return schema.Merge(nil), nil
}

func (c *catalogMock) ExtendTableSchema(ctx context.Context, id types.NamespaceID, table string, columns map[string]types.ColumnType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.extendCalls++

	if c.extendErr != nil {
		return c.extendErr
	}

	for _, schema := range c.namespaces {
		if schema.ID != id {
			continue
		}
		for name, colType := range columns {
			if existing, ok := schema.Column(table, name); ok && existing != colType {
				return fmt.Errorf("catalog: column %q.%q: %w", table, name, catalog.ErrColumnTypeConflict)
			}
		}
		merged := schema.Merge(map[string]map[string]types.ColumnType{table: columns})
		c.namespaces[schema.Name] = merged
		return nil
	}
	return fmt.Errorf("catalog: namespace id %d: %w", id, catalog.ErrNamespaceNotFound)
}

func (c *catalogMock) Close() error { return nil }
