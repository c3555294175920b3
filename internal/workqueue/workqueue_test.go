package workqueue

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultWorkers(t *testing.T) {
	for _, n := range []int{0, -4} {
		q := New(n)
		assert.Equal(t, DefaultWorkers, q.Workers())
		q.Shutdown()
	}
}

func TestDrain_WaitsForAllTasks(t *testing.T) {
	q := New(4)
	defer q.Shutdown()

	var done atomic.Int64
	for i := 0; i < 100; i++ {
		require.NoError(t, q.Submit(func() error {
			time.Sleep(time.Millisecond)
			done.Add(1)
			return nil
		}))
	}
	q.Drain()

	assert.Equal(t, int64(100), done.Load())
	assert.Equal(t, 0, q.Pending())
}

func TestDrain_CoversRecursiveSubmission(t *testing.T) {
	q := New(3)
	defer q.Shutdown()

	// binary fan-out of depth 8 spawns 2^9-1 tasks
	var ran atomic.Int64
	var spawn func(depth int) Task
	spawn = func(depth int) Task {
		return func() error {
			ran.Add(1)
			if depth == 0 {
				return nil
			}
			// sleep so the queue can look empty while this task is still running
			time.Sleep(100 * time.Microsecond)
			if err := q.Submit(spawn(depth - 1)); err != nil {
				return err
			}
			return q.Submit(spawn(depth - 1))
		}
	}
	require.NoError(t, q.Submit(spawn(8)))
	q.Drain()

	assert.Equal(t, int64(511), ran.Load())
}

func TestDrain_OnIdleQueueReturns(t *testing.T) {
	q := New(2)
	defer q.Shutdown()
	q.Drain()
}

func TestWorkersAreBounded(t *testing.T) {
	const workers = 3
	q := New(workers)
	defer q.Shutdown()

	var running, peak atomic.Int64
	for i := 0; i < 30; i++ {
		require.NoError(t, q.Submit(func() error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			running.Add(-1)
			return nil
		}))
	}
	q.Drain()

	assert.LessOrEqual(t, peak.Load(), int64(workers))
}

func TestFailuresReachSinkWithoutBlockingDrain(t *testing.T) {
	var mu sync.Mutex
	var reported []error
	q := New(2, WithFailureSink(func(err error) {
		mu.Lock()
		reported = append(reported, err)
		mu.Unlock()
	}), WithMetrics(metrics.New(nil)))
	defer q.Shutdown()

	boom := errors.New("unreadable file")
	var ok atomic.Int64
	require.NoError(t, q.Submit(func() error { return boom }))
	require.NoError(t, q.Submit(func() error { panic("bad page") }))
	for i := 0; i < 10; i++ {
		require.NoError(t, q.Submit(func() error { ok.Add(1); return nil }))
	}
	q.Drain()

	assert.Equal(t, int64(10), ok.Load())
	assert.Equal(t, int64(2), q.Failures())
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reported, 2)
	var sawPanic, sawErr bool
	for _, err := range reported {
		sawPanic = sawPanic || errors.Is(err, apperrors.ErrTaskPanic)
		sawErr = sawErr || errors.Is(err, boom)
	}
	assert.True(t, sawPanic)
	assert.True(t, sawErr)
}

func TestShutdown_AbandonsQueuedTasks(t *testing.T) {
	q := New(1)

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, q.Submit(func() error {
		close(started)
		<-release
		return nil
	}))
	<-started

	var ran atomic.Int64
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Submit(func() error { ran.Add(1); return nil }))
	}

	done := make(chan struct{})
	go func() {
		q.Shutdown()
		close(done)
	}()
	require.Eventually(t, func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()
		return q.shutdown
	}, time.Second, time.Millisecond)
	// Shutdown waits for the running task
	select {
	case <-done:
		t.Fatal("shutdown returned while a task was still running")
	default:
	}
	close(release)
	<-done

	assert.Equal(t, int64(0), ran.Load())
	assert.Equal(t, 0, q.Pending())
	q.Drain()
}

func TestSubmitAfterShutdown(t *testing.T) {
	q := New(1)
	q.Shutdown()
	q.Shutdown()

	err := q.Submit(func() error { return nil })
	assert.ErrorIs(t, err, apperrors.ErrPoolShutdown)
}
