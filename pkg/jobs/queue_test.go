package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesAndDrainsOnStop(t *testing.T) {
	var mu sync.Mutex
	seen := make([]string, 0)
	q := NewQueue("test", func(_ context.Context, job Job) error {
		mu.Lock()
		seen = append(seen, job.Payload.(string))
		mu.Unlock()
		return nil
	}, QueueConfig{Workers: 2})

	require.Error(t, q.Enqueue(Job{Type: "noop"}))

	q.Start(context.Background())
	for _, p := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(Job{Type: "noop", Payload: p}))
	}
	q.Stop(context.Background())

	mu.Lock()
	assert.ElementsMatch(t, []string{"a", "b", "c"}, seen)
	mu.Unlock()
	assert.ErrorIs(t, q.Enqueue(Job{Type: "noop"}), ErrStopped)
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var attempts int32
	done := make(chan struct{})
	q := NewQueue("retry", func(_ context.Context, job Job) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 5, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop(context.Background())

	require.NoError(t, q.Enqueue(Job{Type: "flaky"}))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
	assert.EqualValues(t, 3, atomic.LoadInt32(&attempts))
}

func TestQueueRejectsWhenBufferFull(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	q := NewQueue("busy", func(_ context.Context, _ Job) error {
		once.Do(func() { close(started) })
		<-release
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{Type: "slow"}))
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not pick up the first job")
	}
	require.NoError(t, q.Enqueue(Job{Type: "slow"}))

	err := q.Enqueue(Job{Type: "slow"})
	assert.ErrorIs(t, err, ErrQueueFull)

	close(release)
	q.Stop(context.Background())
}

func TestMuxDispatch(t *testing.T) {
	mux := NewMux()
	var called string
	mux.Handle("audit", func(_ context.Context, job Job) error {
		called = job.Type
		return nil
	})

	require.NoError(t, mux.Dispatch(context.Background(), Job{Type: "audit"}))
	assert.Equal(t, "audit", called)
	assert.Error(t, mux.Dispatch(context.Background(), Job{Type: "unknown"}))
}
