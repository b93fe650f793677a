package pool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"msgflow/internal/buffer"
	"msgflow/internal/logger"
)

func TestMain(m *testing.M) {
	logger.Default.SetLevel(logger.LevelError)
	goleak.VerifyTestMain(m)
}

func TestNewRejectsNonPositiveWorkers(t *testing.T) {
	for _, workers := range []int{0, -1, -5} {
		_, err := New(workers)
		require.Error(t, err, "workers %d should be rejected", workers)
	}

	p, err := New(4)
	require.NoError(t, err)
	require.Equal(t, 4, p.Workers())
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateRunning, "Running"},
		{StateDraining, "Draining"},
		{StateTerminated, "Terminated"},
		{State(99), "Unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.state.String())
	}
}

func TestConcurrencyBound(t *testing.T) {
	const workers = 3
	const tasks = 10

	p, err := New(workers)
	require.NoError(t, err)
	p.Start(context.Background())

	var active atomic.Int32
	var maxActive atomic.Int32

	for range tasks {
		err := p.Submit(func(ctx context.Context) {
			cur := active.Add(1)
			for {
				max := maxActive.Load()
				if cur <= max || maxActive.CompareAndSwap(max, cur) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			active.Add(-1)
		})
		require.NoError(t, err)
	}

	p.Shutdown()
	require.True(t, p.AwaitTermination(5*time.Second))

	assert.LessOrEqual(t, maxActive.Load(), int32(workers))
	assert.Positive(t, maxActive.Load())
}

func TestSubmitAfterShutdownRejected(t *testing.T) {
	p, err := New(2)
	require.NoError(t, err)
	p.Start(context.Background())

	require.NoError(t, p.Submit(func(context.Context) {}))

	p.Shutdown()

	// Rejection must be deterministic, every time
	for range 5 {
		err := p.Submit(func(context.Context) {})
		require.ErrorIs(t, err, ErrPoolClosed)
	}

	require.True(t, p.AwaitTermination(time.Second))
	require.ErrorIs(t, p.Submit(func(context.Context) {}), ErrPoolClosed)
}

func TestSubmitBeforeStartRejected(t *testing.T) {
	p, err := New(2)
	require.NoError(t, err)

	require.ErrorIs(t, p.Submit(func(context.Context) {}), ErrPoolClosed)

	p.Start(context.Background())
	p.Shutdown()
	require.True(t, p.AwaitTermination(time.Second))
}

func TestAwaitTerminationBounded(t *testing.T) {
	p, err := New(1)
	require.NoError(t, err)
	p.Start(context.Background())

	// A task that outlives the await bound by far
	require.NoError(t, p.Submit(func(ctx context.Context) {
		select {
		case <-time.After(time.Minute):
		case <-ctx.Done():
		}
	}))

	p.Shutdown()

	start := time.Now()
	require.False(t, p.AwaitTermination(100*time.Millisecond))
	assert.Less(t, time.Since(start), time.Second, "await must return near the bound, never hang")

	p.Abandon()
	require.True(t, p.AwaitTermination(5*time.Second))
	assert.Equal(t, StateTerminated, p.State())
}

func TestShutdownIdempotent(t *testing.T) {
	p, err := New(2)
	require.NoError(t, err)
	p.Start(context.Background())

	p.Shutdown()
	state := p.State()
	p.Shutdown()
	p.Shutdown()

	assert.Equal(t, state, p.State())
	require.True(t, p.AwaitTermination(time.Second))
}

func TestStartIdempotent(t *testing.T) {
	p, err := New(2)
	require.NoError(t, err)

	ctx := context.Background()
	p.Start(ctx)
	p.Start(ctx)

	var count atomic.Int32
	require.NoError(t, p.Submit(func(context.Context) { count.Add(1) }))

	p.Shutdown()
	require.True(t, p.AwaitTermination(time.Second))
	assert.Equal(t, int32(1), count.Load())
}

func TestStateTransitions(t *testing.T) {
	p, err := New(2)
	require.NoError(t, err)
	p.Start(context.Background())
	assert.Equal(t, StateRunning, p.State())

	p.Shutdown()
	// Draining or already Terminated depending on scheduling
	assert.NotEqual(t, StateRunning, p.State())

	require.True(t, p.AwaitTermination(time.Second))
	assert.Equal(t, StateTerminated, p.State())
}

func TestDrainCompletesAcceptedTasks(t *testing.T) {
	p, err := New(2)
	require.NoError(t, err)
	p.Start(context.Background())

	var done atomic.Int32
	for range 6 {
		require.NoError(t, p.Submit(func(context.Context) {
			time.Sleep(10 * time.Millisecond)
			done.Add(1)
		}))
	}

	p.Shutdown()
	require.True(t, p.AwaitTermination(5*time.Second))

	// Draining must finish everything accepted before shutdown
	assert.Equal(t, int32(6), done.Load())
}

func TestAbandonUnblocksBufferWait(t *testing.T) {
	buf, err := buffer.New(1)
	require.NoError(t, err)
	require.NoError(t, buf.Put(context.Background(), "test", "filler"))

	p, err := New(1)
	require.NoError(t, err)
	p.Start(context.Background())

	// Task blocks forever inside Put on the full buffer
	require.NoError(t, p.Submit(func(ctx context.Context) {
		_ = buf.Put(ctx, "task", "stuck")
	}))

	p.Shutdown()
	require.False(t, p.AwaitTermination(100*time.Millisecond))

	p.Abandon()
	require.True(t, p.AwaitTermination(5*time.Second))

	// The abandoned wait must not have corrupted the buffer
	assert.Equal(t, 1, buf.Len())
}

func TestQueueDepth(t *testing.T) {
	p, err := New(1)
	require.NoError(t, err)
	p.Start(context.Background())

	assert.Equal(t, 0, p.QueueDepth())

	p.Shutdown()
	require.True(t, p.AwaitTermination(time.Second))
}
