// Package dml provides the composable handler chain that forms the
// router's write-processing pipeline.
//
// A handler consumes a write (plus the request-scoped context) and
// asynchronously produces either a transformed output or a typed error.
// Independent concerns (namespace creation, schema validation, time
// partitioning, sharded publishing, instrumentation) are each one
// handler, stacked with Chain and wrapped with Instrumenter without
// coupling to each other.
package dml

import "context"

// Handler is the capability every pipeline stage implements: transform
// an input into an output, or fail with a typed error. Handlers hold no
// chain state beyond delegation; the request context carries
// cancellation across I/O suspension points.
type Handler[I, O any] interface {
	Handle(ctx context.Context, input I) (O, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc[I, O any] func(ctx context.Context, input I) (O, error)

// Handle calls f.
func (f HandlerFunc[I, O]) Handle(ctx context.Context, input I) (O, error) {
	return f(ctx, input)
}

// Chain composes two handlers sequentially: first's successful output
// feeds second's input. A failure from first short-circuits: second is
// never invoked and the concrete error from first is reported
// unchanged. The composition is itself a Handler and chains further.
func Chain[I, M, O any](first Handler[I, M], second Handler[M, O]) Handler[I, O] {
	return HandlerFunc[I, O](func(ctx context.Context, input I) (O, error) {
		mid, err := first.Handle(ctx, input)
		if err != nil {
			var zero O
			return zero, err
		}
		return second.Handle(ctx, mid)
	})
}
