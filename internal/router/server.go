// Package router assembles the write-processing pipeline the transport
// front end feeds.
package router

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/meridiandb/meridian/internal/catalog"
	"github.com/meridiandb/meridian/internal/dml"
	"github.com/meridiandb/meridian/internal/namespace"
	"github.com/meridiandb/meridian/internal/sequencer"
	"github.com/meridiandb/meridian/internal/sharder"
	"github.com/meridiandb/meridian/pkg/types"
)

// Pipeline is the capability the transport layer invokes: route one
// decoded write request through the full handler chain.
type Pipeline interface {
	Route(ctx context.Context, req *types.WriteRequest) error
}

// AutocreateConfig enables the namespace autocreation stage. Leaving it
// nil omits the stage from the chain: namespaces must then pre-exist,
// which is the expected production deployment.
type AutocreateConfig struct {
	TopicID   types.TopicID
	PoolID    types.QueryPoolID
	Retention string
}

// Config carries the collaborators the pipeline is assembled from. All
// shared state (catalog, cache, sequencers, metrics registry) is
// constructed by the caller at startup and passed by handle.
type Config struct {
	Catalog  catalog.Catalog
	Cache    namespace.Cache
	Sharder  *sharder.JumpHash[*sequencer.Sequencer]
	Template types.PartitionTemplate
	Metrics  prometheus.Registerer

	// Autocreate, when non-nil, prepends the namespace autocreation
	// stage (testing/convenience deployments only).
	Autocreate *AutocreateConfig
}

// Server owns the assembled DML handler chain.
type Server struct {
	handler dml.Handler[*types.WriteRequest, []types.ShardSet]
}

// New builds the pipeline: namespace autocreation (optional) → schema
// validation → time partitioning → parallel per-partition publishing
// into the sharded write buffer. Every stage is wrapped individually by
// an instrumentation decorator, and the whole chain once more.
func New(cfg Config) *Server {
	validator := dml.NewInstrumenter[*types.WriteRequest, *types.WriteRequest](
		"schema_validator", cfg.Metrics,
		dml.NewSchemaValidator(cfg.Catalog, cfg.Cache))

	partitioner := dml.NewInstrumenter[*types.WriteRequest, []*types.PartitionedWrite](
		"partitioner", cfg.Metrics,
		dml.NewPartitioner(cfg.Template))

	writeBuffer := dml.NewInstrumenter[*types.PartitionedWrite, types.ShardSet](
		"sharded_write_buffer", cfg.Metrics,
		dml.NewShardedWriteBuffer(cfg.Sharder))

	// Once writes have been partitioned they are processed in parallel;
	// the fan-out joins every branch before the chain returns.
	parallel := dml.NewInstrumenter[[]*types.PartitionedWrite, []types.ShardSet](
		"parallel_write", cfg.Metrics,
		dml.NewFanOutAdaptor[types.ShardSet](writeBuffer))

	chain := dml.Chain[*types.WriteRequest, *types.WriteRequest, []types.ShardSet](
		validator,
		dml.Chain[*types.WriteRequest, []*types.PartitionedWrite, []types.ShardSet](partitioner, parallel))

	if cfg.Autocreate != nil {
		creator := dml.NewInstrumenter[*types.WriteRequest, *types.WriteRequest](
			"namespace_autocreation", cfg.Metrics,
			dml.NewNamespaceAutocreation(cfg.Catalog, cfg.Cache,
				cfg.Autocreate.TopicID, cfg.Autocreate.PoolID, cfg.Autocreate.Retention))
		chain = dml.Chain[*types.WriteRequest, *types.WriteRequest, []types.ShardSet](creator, chain)
	}

	return &Server{
		handler: dml.NewInstrumenter[*types.WriteRequest, []types.ShardSet]("request", cfg.Metrics, chain),
	}
}

// Route processes one write request through the chain.
func (s *Server) Route(ctx context.Context, req *types.WriteRequest) error {
	_, err := s.handler.Handle(ctx, req)
	return err
}
