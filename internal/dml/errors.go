package dml

import (
	"fmt"
	"strings"

	"github.com/meridiandb/meridian/pkg/types"
)

// NamespaceError reports a namespace lookup or creation failure against
// the catalog. It fails the request; the router performs no local retry.
type NamespaceError struct {
	Namespace string
	Err       error
}

func (e *NamespaceError) Error() string {
	return fmt.Sprintf("dml: namespace %q: %v", e.Namespace, e.Err)
}

func (e *NamespaceError) Unwrap() error { return e.Err }

// SchemaError reports an incompatible schema in a write: a column that
// conflicts with the namespace's known definition. It is
// caller-actionable and distinct from transient catalog failures.
type SchemaError struct {
	Namespace string
	Table     string
	Column    string
	Err       error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("dml: incompatible schema for %q.%q column %q: %v",
		e.Namespace, e.Table, e.Column, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// ShardError reports a failed publish of one partition's batch to one
// write-buffer shard.
type ShardError struct {
	Shard     types.ShardID
	Partition string
	Err       error
}

func (e *ShardError) Error() string {
	return fmt.Sprintf("dml: publish of partition %q to shard %d failed: %v",
		e.Partition, e.Shard, e.Err)
}

func (e *ShardError) Unwrap() error { return e.Err }

// BranchError reports the failure of one fan-out branch, identified by
// its partition key.
type BranchError struct {
	Partition string
	Err       error
}

func (e *BranchError) Error() string {
	return fmt.Sprintf("partition %q: %v", e.Partition, e.Err)
}

func (e *BranchError) Unwrap() error { return e.Err }

// FanOutError aggregates every failed fan-out branch of one request.
// Branches appear in partition-key order (the partitioner's output
// order), so the message is deterministic for a given set of failures.
// Sibling branches that succeeded have already published durably;
// partial success is surfaced, never hidden.
type FanOutError struct {
	Total    int
	Branches []*BranchError
}

func (e *FanOutError) Error() string {
	parts := make([]string, len(e.Branches))
	for i, b := range e.Branches {
		parts[i] = b.Error()
	}
	return fmt.Sprintf("dml: %d of %d partitions failed: %s",
		len(e.Branches), e.Total, strings.Join(parts, "; "))
}

// Unwrap exposes the branch errors to errors.Is/errors.As.
func (e *FanOutError) Unwrap() []error {
	errs := make([]error, len(e.Branches))
	for i, b := range e.Branches {
		errs[i] = b
	}
	return errs
}
