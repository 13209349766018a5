package dml

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain_FeedsOutputForward(t *testing.T) {
	double := HandlerFunc[int, int](func(ctx context.Context, n int) (int, error) {
		return n * 2, nil
	})
	describe := HandlerFunc[int, string](func(ctx context.Context, n int) (string, error) {
		return "value", nil
	})

	var seen int
	spy := HandlerFunc[int, int](func(ctx context.Context, n int) (int, error) {
		seen = n
		return n, nil
	})

	chained := Chain(double, Chain[int, int, string](spy, describe))
	out, err := chained.Handle(context.Background(), 21)
	require.NoError(t, err)
	assert.Equal(t, "value", out)
	assert.Equal(t, 42, seen)
}

func TestChain_ShortCircuitSkipsDownstream(t *testing.T) {
	boom := errors.New("stage A failed")
	failing := HandlerFunc[int, int](func(ctx context.Context, n int) (int, error) {
		return 0, boom
	})

	invocations := 0
	downstream := HandlerFunc[int, int](func(ctx context.Context, n int) (int, error) {
		invocations++
		return n, nil
	})

	_, err := Chain[int, int, int](failing, downstream).Handle(context.Background(), 1)

	// The concrete error of the failing stage is reported, and the
	// downstream stage must not run at all.
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, 0, invocations)
}

func TestChain_NoDuplicateSideEffects(t *testing.T) {
	calls := 0
	counting := HandlerFunc[int, int](func(ctx context.Context, n int) (int, error) {
		calls++
		return n, nil
	})

	chained := Chain[int, int, int](counting, HandlerFunc[int, int](func(ctx context.Context, n int) (int, error) {
		return n, nil
	}))

	_, err := chained.Handle(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestInstrumenter_PassesThroughUnchanged(t *testing.T) {
	reg := prometheus.NewRegistry()
	inner := HandlerFunc[int, int](func(ctx context.Context, n int) (int, error) {
		return n + 1, nil
	})

	wrapped := NewInstrumenter[int, int]("add_one", reg, inner)
	out, err := wrapped.Handle(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, out)
	assert.Equal(t, float64(1), testutil.ToFloat64(wrapped.callsOK))
	assert.Equal(t, float64(0), testutil.ToFloat64(wrapped.callsErr))
}

func TestInstrumenter_RecordsErrorsUnmodified(t *testing.T) {
	reg := prometheus.NewRegistry()
	boom := errors.New("inner failure")
	inner := HandlerFunc[int, int](func(ctx context.Context, n int) (int, error) {
		return 0, boom
	})

	wrapped := NewInstrumenter[int, int]("failing", reg, inner)
	_, err := wrapped.Handle(context.Background(), 1)

	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, float64(1), testutil.ToFloat64(wrapped.callsErr))
}

func TestInstrumenter_ComposesAsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := NewInstrumenter[int, int]("first", reg, HandlerFunc[int, int](func(ctx context.Context, n int) (int, error) {
		return n * 10, nil
	}))
	second := NewInstrumenter[int, int]("second", reg, HandlerFunc[int, int](func(ctx context.Context, n int) (int, error) {
		return n + 1, nil
	}))

	out, err := Chain[int, int, int](first, second).Handle(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, 41, out)
	assert.Equal(t, float64(1), testutil.ToFloat64(first.callsOK))
	assert.Equal(t, float64(1), testutil.ToFloat64(second.callsOK))
}
