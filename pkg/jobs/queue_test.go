package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var mu sync.Mutex
	processed := []string{}
	done := make(chan struct{}, 2)

	queue := NewQueue("test", func(ctx context.Context, job Job) error {
		mu.Lock()
		processed = append(processed, job.ID)
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 2, BufferSize: 4})

	queue.Start(context.Background())
	defer queue.Stop()

	require.NoError(t, queue.Enqueue(Job{ID: "job-1", Type: "noop"}))
	require.NoError(t, queue.Enqueue(Job{ID: "job-2", Type: "noop"}))

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("job was not processed in time")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, processed, 2)
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})

	queue := NewQueue("retry", func(ctx context.Context, job Job) error {
		mu.Lock()
		attempts++
		current := attempts
		mu.Unlock()
		if current < 2 {
			return errors.New("transient failure")
		}
		close(done)
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 2, MaxRetries: 3, RetryDelay: 10 * time.Millisecond})

	queue.Start(context.Background())
	defer queue.Stop()

	require.NoError(t, queue.Enqueue(Job{ID: "job-1", Type: "flaky"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried in time")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, attempts)
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	queue := NewQueue("idle", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	err := queue.Enqueue(Job{ID: "job-1"})
	require.Error(t, err)
}

func TestQueueEnqueueAfterStop(t *testing.T) {
	queue := NewQueue("stopped", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	queue.Start(context.Background())
	queue.Stop()

	err := queue.Enqueue(Job{ID: "job-1"})
	require.Error(t, err)
}
