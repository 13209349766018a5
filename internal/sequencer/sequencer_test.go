package sequencer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridiandb/meridian/internal/writebuffer"
	"github.com/meridiandb/meridian/pkg/types"
)

func testWrite(key string) *types.PartitionedWrite {
	return &types.PartitionedWrite{
		Namespace: "n1",
		Key:       key,
		Tables: map[string][]types.Row{
			"cpu": {{Timestamp: 1, Fields: map[string]interface{}{"v": 1.0}}},
		},
	}
}

func TestSequencer_PublishesToOwnedShard(t *testing.T) {
	mock := writebuffer.NewMock(4)
	s := New(3, mock, prometheus.NewRegistry())

	require.NoError(t, s.Publish(context.Background(), testWrite("k")))

	assert.Len(t, mock.Published(3), 1)
	assert.Empty(t, mock.Published(0))
	assert.Equal(t, types.ShardID(3), s.ID())
	assert.Equal(t, float64(1), testutil.ToFloat64(s.enqueueOK))
}

func TestSequencer_PublishErrorSurfaced(t *testing.T) {
	mock := writebuffer.NewMock(1)
	injected := errors.New("segment full")
	mock.FailShard(0, injected)

	s := New(0, mock, prometheus.NewRegistry())
	err := s.Publish(context.Background(), testWrite("k"))

	assert.True(t, errors.Is(err, injected))
	assert.Equal(t, float64(1), testutil.ToFloat64(s.enqueueErr))
}

func TestSequencer_ConcurrentPublishesAllLand(t *testing.T) {
	mock := writebuffer.NewMock(1)
	s := New(0, mock, prometheus.NewRegistry())

	const publishers = 16
	var wg sync.WaitGroup
	for i := 0; i < publishers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Publish(context.Background(), testWrite("k")))
		}()
	}
	wg.Wait()

	assert.Len(t, mock.Published(0), publishers)
}
