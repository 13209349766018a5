// Package catalog provides the namespace/schema catalog for the Meridian
// write router.
//
// The catalog is the source of truth for namespaces, their table/column
// schemas, write-buffer topics, and query pools. The router reads through
// it on namespace-cache misses and extends schemas on behalf of writes
// that introduce new-but-compatible structure. All mutating operations
// are idempotent upserts so that concurrent routers converge on the same
// records.
package catalog

import (
	"context"
	"errors"

	"github.com/meridiandb/meridian/pkg/types"
)

// Structured catalog errors. Callers branch on these with errors.Is to
// distinguish caller-actionable failures from transient transport ones.
var (
	// ErrNamespaceNotFound is returned when a namespace does not exist.
	ErrNamespaceNotFound = errors.New("namespace not found")

	// ErrTopicNotFound is returned when a write-buffer topic does not exist.
	ErrTopicNotFound = errors.New("topic not found")

	// ErrColumnTypeConflict is returned when a schema extension redefines
	// an existing column with a different type.
	ErrColumnTypeConflict = errors.New("column type conflict")
)

// InfiniteRetention is the retention policy value meaning "never expire".
const InfiniteRetention = "inf"

// Namespace is a namespace record as stored in the catalog.
type Namespace struct {
	ID          types.NamespaceID
	Name        string
	TopicID     types.TopicID
	QueryPoolID types.QueryPoolID
	Retention   string
}

// Topic is a write-buffer topic record.
type Topic struct {
	ID   types.TopicID
	Name string
}

// QueryPool is a query pool record.
type QueryPool struct {
	ID   types.QueryPoolID
	Name string
}

// Catalog is the interface to the relational catalog store.
type Catalog interface {
	// CreateOrGetTopic upserts a write-buffer topic by name.
	CreateOrGetTopic(ctx context.Context, name string) (*Topic, error)

	// GetTopicByName returns a topic, or ErrTopicNotFound.
	GetTopicByName(ctx context.Context, name string) (*Topic, error)

	// CreateOrGetQueryPool upserts a query pool by name.
	CreateOrGetQueryPool(ctx context.Context, name string) (*QueryPool, error)

	// CreateOrGetNamespace upserts a namespace by name. Concurrent callers
	// for the same name converge on the same record.
	CreateOrGetNamespace(ctx context.Context, name string, topicID types.TopicID, poolID types.QueryPoolID, retention string) (*Namespace, error)

	// GetNamespaceByName returns a namespace record, or ErrNamespaceNotFound.
	GetNamespaceByName(ctx context.Context, name string) (*Namespace, error)

	// GetNamespaceSchema returns the full known schema of a namespace, or
	// ErrNamespaceNotFound.
	GetNamespaceSchema(ctx context.Context, name string) (*types.NamespaceSchema, error)

	// ExtendTableSchema atomically adds the given columns to a table of
	// the namespace, creating the table if it does not exist. Columns that
	// already exist with the same type are ignored (safe under concurrent
	// extenders); an existing column with a different type fails with
	// ErrColumnTypeConflict and no change is applied.
	ExtendTableSchema(ctx context.Context, id types.NamespaceID, table string, columns map[string]types.ColumnType) error

	// Close releases the underlying store connections.
	Close() error
}
