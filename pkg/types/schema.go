package types

import (
	"fmt"
	"sort"
)

// NamespaceID identifies a namespace record in the catalog.
type NamespaceID int64

// TableID identifies a table record in the catalog.
type TableID int64

// TopicID identifies a write-buffer topic record in the catalog.
type TopicID int64

// QueryPoolID identifies a query pool record in the catalog.
type QueryPoolID int64

// ColumnType is the logical type of a column in a namespace schema.
type ColumnType string

const (
	ColumnTypeTag       ColumnType = "tag"
	ColumnTypeI64       ColumnType = "i64"
	ColumnTypeF64       ColumnType = "f64"
	ColumnTypeBool      ColumnType = "bool"
	ColumnTypeString    ColumnType = "string"
	ColumnTypeTimestamp ColumnType = "timestamp"
)

// ColumnTypeOf infers the column type of a field value. JSON-decoded
// numbers arrive as float64, so numeric fields written over HTTP map to
// ColumnTypeF64 unless the producer supplies typed values.
func ColumnTypeOf(v interface{}) (ColumnType, error) {
	switch v.(type) {
	case int, int32, int64:
		return ColumnTypeI64, nil
	case float32, float64:
		return ColumnTypeF64, nil
	case bool:
		return ColumnTypeBool, nil
	case string:
		return ColumnTypeString, nil
	default:
		return "", fmt.Errorf("types: unsupported field value type %T", v)
	}
}

// TableSchema is the known column set of one table.
type TableSchema struct {
	// ID is the catalog identity of the table
	ID TableID

	// Columns maps column name to its type
	Columns map[string]ColumnType
}

// NamespaceSchema is the known schema of one namespace. Instances are
// treated as immutable once placed in the namespace cache; schema
// evolution produces a new value via Merge.
type NamespaceSchema struct {
	// ID is the catalog identity of the namespace
	ID NamespaceID

	// Name is the namespace name (unique key)
	Name string

	// Version increases monotonically as the schema evolves
	Version int64

	// Tables maps table name to its schema
	Tables map[string]*TableSchema
}

// Column returns the type of a column if it is known to the schema.
func (s *NamespaceSchema) Column(table, column string) (ColumnType, bool) {
	t, ok := s.Tables[table]
	if !ok {
		return "", false
	}
	ct, ok := t.Columns[column]
	return ct, ok
}

// Merge returns a copy of the schema with the given table/column
// extension applied and the version advanced. The receiver is not
// modified.
func (s *NamespaceSchema) Merge(extension map[string]map[string]ColumnType) *NamespaceSchema {
	out := &NamespaceSchema{
		ID:      s.ID,
		Name:    s.Name,
		Version: s.Version + 1,
		Tables:  make(map[string]*TableSchema, len(s.Tables)+len(extension)),
	}
	for name, table := range s.Tables {
		cols := make(map[string]ColumnType, len(table.Columns))
		for c, t := range table.Columns {
			cols[c] = t
		}
		out.Tables[name] = &TableSchema{ID: table.ID, Columns: cols}
	}
	for name, cols := range extension {
		table, ok := out.Tables[name]
		if !ok {
			table = &TableSchema{Columns: make(map[string]ColumnType, len(cols))}
			out.Tables[name] = table
		}
		for c, t := range cols {
			table.Columns[c] = t
		}
	}
	return out
}

// TableNames returns the schema's table names in sorted order.
func (s *NamespaceSchema) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ColumnCount returns the total number of columns across all tables.
func (s *NamespaceSchema) ColumnCount() int {
	n := 0
	for _, t := range s.Tables {
		n += len(t.Columns)
	}
	return n
}
