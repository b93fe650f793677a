package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"msgflow/internal/buffer"
	"msgflow/internal/logger"
	"msgflow/internal/metrics"
	"msgflow/internal/pool"
)

func TestMain(m *testing.M) {
	logger.Default.SetLevel(logger.LevelError)
	goleak.VerifyTestMain(m)
}

func fastConfig(clients int) Config {
	return Config{
		Clients:         clients,
		BaseDelay:       time.Millisecond,
		DelayStep:       time.Millisecond,
		ConnectInterval: time.Millisecond,
	}
}

func TestTaskPublishesExactlyOnce(t *testing.T) {
	buf, err := buffer.New(2)
	require.NoError(t, err)

	task := NewTask(1, buf, "hello from client 1", time.Millisecond)
	require.Equal(t, 1, task.ID())

	require.NoError(t, task.Run(context.Background()))

	assert.Equal(t, 1, buf.Len())
	msg, err := buf.Take(context.Background(), "test")
	require.NoError(t, err)
	assert.Equal(t, "hello from client 1", msg)
}

func TestTaskAbandonedWhileBufferFull(t *testing.T) {
	buf, err := buffer.New(1)
	require.NoError(t, err)
	require.NoError(t, buf.Put(context.Background(), "test", "filler"))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- NewTask(1, buf, "stuck", time.Millisecond).Run(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("task did not return after cancellation")
	}

	assert.Equal(t, 1, buf.Len())
}

func TestTaskInterruptedDuringLatency(t *testing.T) {
	buf, err := buffer.New(1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- NewTask(1, buf, "slow", time.Minute).Run(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("task did not return after cancellation")
	}

	// Publish happened before the latency simulation
	assert.Equal(t, 1, buf.Len())
}

func TestSimulatorSubmitsAllClients(t *testing.T) {
	const clients = 5

	buf, err := buffer.New(10)
	require.NoError(t, err)

	m := metrics.New()
	buf.SetMetrics(m)

	p, err := pool.New(3)
	require.NoError(t, err)
	p.Start(context.Background())

	s := New(buf, p, m, fastConfig(clients))
	require.NoError(t, s.Run(context.Background()))

	p.Shutdown()
	require.True(t, p.AwaitTermination(5*time.Second))

	snapshot := m.Snapshot()
	assert.Equal(t, uint64(clients), snapshot.Submitted)
	assert.Equal(t, uint64(clients), snapshot.Produced)
	assert.Equal(t, uint64(0), snapshot.Rejected)
	assert.Equal(t, uint64(clients), uint64(len(payloadsDrained(t, buf, clients))))
}

func TestSimulatorRejectedAfterShutdown(t *testing.T) {
	buf, err := buffer.New(5)
	require.NoError(t, err)

	m := metrics.New()

	p, err := pool.New(2)
	require.NoError(t, err)
	p.Start(context.Background())
	p.Shutdown()
	require.True(t, p.AwaitTermination(time.Second))

	s := New(buf, p, m, fastConfig(3))
	err = s.Run(context.Background())
	require.ErrorIs(t, err, pool.ErrPoolClosed)

	assert.Equal(t, uint64(1), m.Snapshot().Rejected)
	assert.Equal(t, uint64(0), m.Snapshot().Submitted)
}

func TestSimulatorStopsOnCancel(t *testing.T) {
	buf, err := buffer.New(5)
	require.NoError(t, err)

	p, err := pool.New(2)
	require.NoError(t, err)
	p.Start(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(buf, p, metrics.New(), fastConfig(3))
	require.ErrorIs(t, s.Run(ctx), context.Canceled)

	p.Shutdown()
	require.True(t, p.AwaitTermination(time.Second))
}

// payloadsDrained は残っているメッセージを全て取り出す
func payloadsDrained(t *testing.T, buf *buffer.Buffer, count int) []string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var msgs []string
	for i := 0; i < count; i++ {
		msg, err := buf.Take(ctx, "test")
		require.NoError(t, err)
		msgs = append(msgs, msg)
	}
	return msgs
}
