package namespace

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/meridiandb/meridian/pkg/types"
)

// InstrumentedCache wraps a Cache and reports hit/miss/update metrics.
// It is otherwise transparent: the wrapped cache's behaviour is
// unchanged.
type InstrumentedCache struct {
	inner Cache

	getHit  prometheus.Counter
	getMiss prometheus.Counter
	put     prometheus.Counter

	tableCount  prometheus.Gauge
	columnCount prometheus.Gauge
}

// NewInstrumentedCache wraps inner, registering its metrics with reg.
func NewInstrumentedCache(inner Cache, reg prometheus.Registerer) *InstrumentedCache {
	gets := promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Name: "namespace_cache_get_total",
		Help: "Number of namespace cache lookups, by result.",
	}, []string{"result"})

	return &InstrumentedCache{
		inner:   inner,
		getHit:  gets.WithLabelValues("hit"),
		getMiss: gets.WithLabelValues("miss"),
		put: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "namespace_cache_put_total",
			Help: "Number of namespace cache updates.",
		}),
		tableCount: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "namespace_cache_table_count",
			Help: "Total tables held across all cached namespace schemas.",
		}),
		columnCount: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "namespace_cache_column_count",
			Help: "Total columns held across all cached namespace schemas.",
		}),
	}
}

// Get returns the cached schema for a namespace, if any.
func (c *InstrumentedCache) Get(name string) (*types.NamespaceSchema, bool) {
	schema, ok := c.inner.Get(name)
	if ok {
		c.getHit.Inc()
	} else {
		c.getMiss.Inc()
	}
	return schema, ok
}

// Put stores a schema and adjusts the table/column gauges by the delta
// between the new entry and the one it replaced.
func (c *InstrumentedCache) Put(name string, schema *types.NamespaceSchema) *types.NamespaceSchema {
	old := c.inner.Put(name, schema)
	c.put.Inc()

	oldTables, oldColumns := 0, 0
	if old != nil {
		oldTables = len(old.Tables)
		oldColumns = old.ColumnCount()
	}
	c.tableCount.Add(float64(len(schema.Tables) - oldTables))
	c.columnCount.Add(float64(schema.ColumnCount() - oldColumns))

	return old
}
