// Package types provides core data types for the Meridian write router.
package types

// TimeColumn is the reserved column name carrying a row's timestamp.
const TimeColumn = "time"

// Row represents a single time-series data row within a table batch.
type Row struct {
	// Timestamp is the Unix timestamp (nanoseconds) of the observation
	Timestamp int64 `json:"timestamp"`

	// Tags are the indexed dimension columns (always string typed)
	Tags map[string]string `json:"tags,omitempty"`

	// Fields are the value columns (typed per column)
	Fields map[string]interface{} `json:"fields"`
}

// WriteRequest is a batch of table row-sets addressed to one namespace.
// It is immutable once handed to the pipeline; stages transform it into
// new values rather than mutating it in place.
type WriteRequest struct {
	// Namespace is the target namespace name
	Namespace string

	// Tables maps table name to the rows written to it
	Tables map[string][]Row
}

// RowCount returns the total number of rows across all tables.
func (w *WriteRequest) RowCount() int {
	n := 0
	for _, rows := range w.Tables {
		n += len(rows)
	}
	return n
}

// PartitionedWrite is the subset of a write request belonging to one
// partition key, produced by the partitioner and consumed by the sharded
// write buffer.
type PartitionedWrite struct {
	// Namespace is the target namespace name
	Namespace string

	// Key is the partition key shared by every row in this write
	Key string

	// Tables maps table name to the rows in this partition
	Tables map[string][]Row
}

// RowCount returns the total number of rows across all tables.
func (p *PartitionedWrite) RowCount() int {
	n := 0
	for _, rows := range p.Tables {
		n += len(rows)
	}
	return n
}
