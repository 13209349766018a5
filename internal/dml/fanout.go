package dml

import (
	"context"
	"sync"

	"github.com/meridiandb/meridian/pkg/types"
)

// FanOutAdaptor is the pipeline's explicit parallelism boundary:
// upstream of it processing is strictly sequential per request,
// downstream it fans out one concurrent branch per partition group.
//
// All branches start together and the adaptor joins every one of them
// before returning. A branch failure does not cancel siblings, so an
// unaffected partition's publish still completes and its outcome is
// reported. When one or more branches fail, the adaptor returns a
// FanOutError aggregating ALL branch failures in partition-key order.
type FanOutAdaptor[O any] struct {
	inner Handler[*types.PartitionedWrite, O]
}

// NewFanOutAdaptor wraps the inner handler applied to each partition
// group.
func NewFanOutAdaptor[O any](inner Handler[*types.PartitionedWrite, O]) *FanOutAdaptor[O] {
	return &FanOutAdaptor[O]{inner: inner}
}

// Handle runs the inner handler once per partition group concurrently
// and joins all results, returned in the input's (partition-key) order.
func (f *FanOutAdaptor[O]) Handle(ctx context.Context, writes []*types.PartitionedWrite) ([]O, error) {
	results := make([]O, len(writes))
	errs := make([]error, len(writes))

	var wg sync.WaitGroup
	for i := range writes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.inner.Handle(ctx, writes[i])
		}(i)
	}
	wg.Wait()

	var branches []*BranchError
	for i, err := range errs {
		if err != nil {
			branches = append(branches, &BranchError{Partition: writes[i].Key, Err: err})
		}
	}
	if len(branches) > 0 {
		return nil, &FanOutError{Total: len(writes), Branches: branches}
	}
	return results, nil
}
