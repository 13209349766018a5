package dml

import (
	"context"
	"sort"

	"github.com/meridiandb/meridian/pkg/types"
)

// Partitioner splits a validated write into one group per partition
// key, derived from each row's timestamp through the configured
// template. It is deterministic and side-effect free: the same write
// under the same template always yields identical groups, in sorted
// partition-key order, on every process.
type Partitioner struct {
	template types.PartitionTemplate
}

// NewPartitioner creates a partitioner using the given template.
func NewPartitioner(template types.PartitionTemplate) *Partitioner {
	return &Partitioner{template: template}
}

// Handle groups the write's rows by partition key. Every input row
// appears in exactly one group and no group is empty.
func (p *Partitioner) Handle(ctx context.Context, req *types.WriteRequest) ([]*types.PartitionedWrite, error) {
	groups := make(map[string]*types.PartitionedWrite)

	for table, rows := range req.Tables {
		for _, row := range rows {
			key := p.template.PartitionKey(row.Timestamp)
			group, ok := groups[key]
			if !ok {
				group = &types.PartitionedWrite{
					Namespace: req.Namespace,
					Key:       key,
					Tables:    make(map[string][]types.Row),
				}
				groups[key] = group
			}
			group.Tables[table] = append(group.Tables[table], row)
		}
	}

	out := make([]*types.PartitionedWrite, 0, len(groups))
	for _, group := range groups {
		out = append(out, group)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
