package dml

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Instrumenter wraps any handler and records invocation count and
// duration tagged by the configured stage name and outcome. The wrapped
// handler's output and error pass through unmodified, and the decorated
// handler is itself a Handler, so instrumented stages compose freely.
type Instrumenter[I, O any] struct {
	inner Handler[I, O]

	callsOK  prometheus.Counter
	callsErr prometheus.Counter

	durationOK  prometheus.Observer
	durationErr prometheus.Observer
}

// NewInstrumenter decorates inner with metrics registered against reg
// under the given stage name.
func NewInstrumenter[I, O any](name string, reg prometheus.Registerer, inner Handler[I, O]) *Instrumenter[I, O] {
	calls := promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Name:        "dml_handler_calls_total",
		Help:        "Number of invocations of this pipeline stage, by result.",
		ConstLabels: prometheus.Labels{"handler": name},
	}, []string{"result"})

	duration := promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
		Name:        "dml_handler_duration_seconds",
		Help:        "Latency of this pipeline stage, by result.",
		ConstLabels: prometheus.Labels{"handler": name},
	}, []string{"result"})

	return &Instrumenter[I, O]{
		inner:       inner,
		callsOK:     calls.WithLabelValues("success"),
		callsErr:    calls.WithLabelValues("error"),
		durationOK:  duration.WithLabelValues("success"),
		durationErr: duration.WithLabelValues("error"),
	}
}

// Handle delegates to the wrapped handler and records the outcome.
func (d *Instrumenter[I, O]) Handle(ctx context.Context, input I) (O, error) {
	start := time.Now()
	out, err := d.inner.Handle(ctx, input)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		d.callsErr.Inc()
		d.durationErr.Observe(elapsed)
	} else {
		d.callsOK.Inc()
		d.durationOK.Observe(elapsed)
	}
	return out, err
}
