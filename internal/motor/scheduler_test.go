package motor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closeScheduler(t *testing.T, s *Scheduler) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, s.Close(ctx))
}

func TestSchedulerRunsInOrder(t *testing.T) {
	s := NewScheduler("test")

	var mu sync.Mutex
	var order []int
	for i := 0; i < 20; i++ {
		i := i
		require.NoError(t, s.Submit(func(context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}))
	}
	closeScheduler(t, s)

	require.Len(t, order, 20)
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestSchedulerNeverOverlaps(t *testing.T) {
	s := NewScheduler("test")

	var running, maxRunning int32
	task := func(context.Context) error {
		n := atomic.AddInt32(&running, 1)
		for {
			m := atomic.LoadInt32(&maxRunning)
			if n <= m || atomic.CompareAndSwapInt32(&maxRunning, m, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Submit(task))
		}()
	}
	wg.Wait()
	closeScheduler(t, s)

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxRunning))
}

func TestSchedulersRunConcurrently(t *testing.T) {
	first, second := NewScheduler("first"), NewScheduler("second")

	sleep := func(context.Context) error {
		time.Sleep(50 * time.Millisecond)
		return nil
	}

	start := time.Now()
	require.NoError(t, first.Submit(sleep))
	require.NoError(t, second.Submit(sleep))
	closeScheduler(t, first)
	closeScheduler(t, second)

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestSchedulerPool(t *testing.T) {
	pool := make(chan struct{}, 2)

	t.Run("2 schedulers run at once on a pool of 2", func(t *testing.T) {
		start := time.Now()
		runPooled(t, pool, 2, 10*time.Millisecond)
		assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
	})

	t.Run("3 schedulers run in two batches on a pool of 2", func(t *testing.T) {
		start := time.Now()
		runPooled(t, pool, 3, 10*time.Millisecond)
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})
}

func runPooled(t *testing.T, pool chan struct{}, num int, d time.Duration) {
	var schedulers []*Scheduler
	for i := 0; i < num; i++ {
		s := NewScheduler("pooled", WithPool(pool))
		require.NoError(t, s.Submit(func(context.Context) error {
			time.Sleep(d)
			return nil
		}))
		schedulers = append(schedulers, s)
	}

	for _, s := range schedulers {
		closeScheduler(t, s)
	}
}

func TestSchedulerErrorHandler(t *testing.T) {
	var got error
	s := NewScheduler("test", WithErrorHandler(func(err error) {
		got = err
	}))

	require.NoError(t, s.Submit(func(context.Context) error {
		return errors.New("pulse failed")
	}))
	ran := false
	require.NoError(t, s.Submit(func(context.Context) error {
		ran = true
		return nil
	}))
	closeScheduler(t, s)

	assert.EqualError(t, got, "pulse failed")
	assert.True(t, ran, "a failing task does not stop the queue")
}

func TestSchedulerClose(t *testing.T) {
	s := NewScheduler("test")
	closeScheduler(t, s)

	assert.True(t, errors.Is(s.Submit(func(context.Context) error { return nil }), ErrSchedulerClosed))
	closeScheduler(t, s)
}

func TestSchedulerCloseDeadlineCancelsTask(t *testing.T) {
	s := NewScheduler("test")

	cancelled := make(chan struct{})
	require.NoError(t, s.Submit(func(ctx context.Context) error {
		<-ctx.Done()
		close(cancelled)
		return nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.True(t, errors.Is(s.Close(ctx), context.DeadlineExceeded))
	select {
	case <-cancelled:
	default:
		t.Fatal("running task was not cancelled")
	}
}
