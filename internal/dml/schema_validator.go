package dml

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/meridiandb/meridian/internal/catalog"
	"github.com/meridiandb/meridian/internal/namespace"
	"github.com/meridiandb/meridian/pkg/types"
)

// SchemaValidator confirms every table and column referenced by a write
// is compatible with the namespace's known schema, evolving the schema
// through the catalog when the write introduces new-but-compatible
// structure and rejecting incompatible structure.
//
// The cache is consulted first: a write whose columns are a subset of
// the cached schema needs no catalog call at all. Concurrent validators
// for the same namespace may race to extend schema; the catalog's
// extension operation is safe under concurrent callers, so the
// validator never assumes it alone evolves a namespace.
type SchemaValidator struct {
	catalog catalog.Catalog
	cache   namespace.Cache
}

// NewSchemaValidator creates a schema validator backed by the given
// catalog and cache.
func NewSchemaValidator(cat catalog.Catalog, cache namespace.Cache) *SchemaValidator {
	return &SchemaValidator{catalog: cat, cache: cache}
}

// Handle validates the write and returns it unchanged on success. A
// conflicting column definition fails with a SchemaError and leaves the
// cache untouched.
func (v *SchemaValidator) Handle(ctx context.Context, req *types.WriteRequest) (*types.WriteRequest, error) {
	schema, ok := v.cache.Get(req.Namespace)
	if !ok {
		// Miss or staleness means "validate against the catalog and
		// update the cache", never an error by itself.
		var err error
		schema, err = v.catalog.GetNamespaceSchema(ctx, req.Namespace)
		if err != nil {
			return nil, &NamespaceError{Namespace: req.Namespace, Err: err}
		}
		v.cache.Put(req.Namespace, schema)
	}

	extension, err := v.schemaExtension(schema, req)
	if err != nil {
		return nil, err
	}
	if len(extension) == 0 {
		return req, nil
	}

	tables := make([]string, 0, len(extension))
	for table := range extension {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	for _, table := range tables {
		if err := v.catalog.ExtendTableSchema(ctx, schema.ID, table, extension[table]); err != nil {
			if errors.Is(err, catalog.ErrColumnTypeConflict) {
				return nil, &SchemaError{
					Namespace: req.Namespace,
					Table:     table,
					Err:       err,
				}
			}
			return nil, fmt.Errorf("dml: failed to extend schema of %q.%q: %w", req.Namespace, table, err)
		}
	}

	v.cache.Put(req.Namespace, schema.Merge(extension))
	return req, nil
}

// schemaExtension computes the table/column structure present in the
// write but absent from the cached schema. A column already cached with
// a different type is a conflict reported without any catalog call or
// cache mutation.
func (v *SchemaValidator) schemaExtension(schema *types.NamespaceSchema, req *types.WriteRequest) (map[string]map[string]types.ColumnType, error) {
	extension := make(map[string]map[string]types.ColumnType)

	for table, rows := range req.Tables {
		columns, err := writeColumns(req.Namespace, table, rows)
		if err != nil {
			return nil, err
		}

		for name, colType := range columns {
			cached, known := schema.Column(table, name)
			if known {
				if cached != colType {
					return nil, &SchemaError{
						Namespace: req.Namespace,
						Table:     table,
						Column:    name,
						Err: fmt.Errorf("column is %s, write uses %s: %w",
							cached, colType, catalog.ErrColumnTypeConflict),
					}
				}
				continue
			}
			if extension[table] == nil {
				extension[table] = make(map[string]types.ColumnType)
			}
			extension[table][name] = colType
		}
	}

	return extension, nil
}

// writeColumns derives the column set one table's rows reference: the
// reserved time column, tag columns, and typed field columns. A column
// used inconsistently within the same write is a conflict.
func writeColumns(ns, table string, rows []types.Row) (map[string]types.ColumnType, error) {
	columns := map[string]types.ColumnType{
		types.TimeColumn: types.ColumnTypeTimestamp,
	}

	add := func(name string, colType types.ColumnType) error {
		if existing, ok := columns[name]; ok && existing != colType {
			return &SchemaError{
				Namespace: ns,
				Table:     table,
				Column:    name,
				Err:       fmt.Errorf("column used as both %s and %s within one write", existing, colType),
			}
		}
		columns[name] = colType
		return nil
	}

	for _, row := range rows {
		for tag := range row.Tags {
			if err := add(tag, types.ColumnTypeTag); err != nil {
				return nil, err
			}
		}
		for field, value := range row.Fields {
			colType, err := types.ColumnTypeOf(value)
			if err != nil {
				return nil, &SchemaError{Namespace: ns, Table: table, Column: field, Err: err}
			}
			if err := add(field, colType); err != nil {
				return nil, err
			}
		}
	}

	return columns, nil
}
