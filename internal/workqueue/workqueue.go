// Package workqueue is a fixed-size worker pool over an unbounded FIFO queue.
//
// Submit never blocks and is safe to call from inside a running task, so a
// task may fan out into further tasks. Drain waits on a pending-work counter
// that covers both queued and running tasks; it is incremented before a task
// is enqueued and decremented after it finishes, so a queue that empties for
// a moment while a running task is about to submit more work does not release
// Drain early.
package workqueue

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/metrics"
)

// DefaultWorkers is used when New is given a count below one.
const DefaultWorkers = 5

// Task is a unit of work. A returned error is reported to the failure sink.
type Task func() error

// FailureSink receives task errors and recovered panics. It is called from
// worker goroutines and must be safe for concurrent use.
type FailureSink func(err error)

type Option func(*WorkQueue)

func WithFailureSink(sink FailureSink) Option {
	return func(q *WorkQueue) { q.sink = sink }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(q *WorkQueue) { q.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(q *WorkQueue) { q.logger = logger }
}

type job struct {
	id   uint64
	task Task
}

type WorkQueue struct {
	mu       sync.Mutex
	hasWork  *sync.Cond
	idle     *sync.Cond
	queue    []job
	pending  int
	shutdown bool

	workers  int
	wg       sync.WaitGroup
	nextID   atomic.Uint64
	failures atomic.Int64

	sink    FailureSink
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New starts workers goroutines. A count below one falls back to
// DefaultWorkers.
func New(workers int, opts ...Option) *WorkQueue {
	if workers < 1 {
		workers = DefaultWorkers
	}
	q := &WorkQueue{
		workers: workers,
		logger:  slog.Default().With("component", "work-queue"),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.hasWork = sync.NewCond(&q.mu)
	q.idle = sync.NewCond(&q.mu)

	q.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go q.worker()
	}
	q.logger.Debug("work queue started", "workers", workers)
	return q
}

// Workers returns the number of worker goroutines.
func (q *WorkQueue) Workers() int {
	return q.workers
}

// Submit enqueues task. It returns ErrPoolShutdown once Shutdown has been
// called.
func (q *WorkQueue) Submit(task Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.shutdown {
		return apperrors.ErrPoolShutdown
	}
	q.pending++
	q.queue = append(q.queue, job{id: q.nextID.Add(1), task: task})
	q.metrics.SetPending(q.pending)
	q.hasWork.Signal()
	return nil
}

// Drain blocks until every submitted task, including tasks submitted by
// running tasks, has finished. Calling Drain from inside a task deadlocks.
func (q *WorkQueue) Drain() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.pending > 0 {
		q.idle.Wait()
	}
}

// Pending returns the number of queued plus running tasks.
func (q *WorkQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

// Failures returns how many tasks returned an error or panicked.
func (q *WorkQueue) Failures() int64 {
	return q.failures.Load()
}

// Shutdown abandons queued tasks, waits for running tasks to finish and
// stops every worker. Later Submit calls fail. Shutdown is idempotent.
func (q *WorkQueue) Shutdown() {
	q.mu.Lock()
	if q.shutdown {
		q.mu.Unlock()
		q.wg.Wait()
		return
	}
	q.shutdown = true
	abandoned := len(q.queue)
	for range abandoned {
		q.metrics.TaskFinished("abandoned", 0)
	}
	clear(q.queue)
	q.queue = nil
	q.pending -= abandoned
	q.metrics.SetPending(q.pending)
	if q.pending == 0 {
		q.idle.Broadcast()
	}
	q.hasWork.Broadcast()
	q.mu.Unlock()

	q.wg.Wait()
	q.logger.Debug("work queue stopped", "abandoned", abandoned, "failures", q.failures.Load())
}

func (q *WorkQueue) worker() {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		for len(q.queue) == 0 && !q.shutdown {
			q.hasWork.Wait()
		}
		if q.shutdown {
			q.mu.Unlock()
			return
		}
		next := q.queue[0]
		q.queue[0] = job{}
		q.queue = q.queue[1:]
		q.mu.Unlock()

		q.run(next)
		q.finish()
	}
}

func (q *WorkQueue) run(j job) {
	start := time.Now()
	err := safeCall(j.task)
	if err == nil {
		q.metrics.TaskFinished("ok", time.Since(start))
		return
	}
	q.failures.Add(1)
	q.metrics.TaskFinished("failed", time.Since(start))
	q.logger.Error("task failed", "task_id", j.id, "error", err)
	if q.sink != nil {
		q.sink(err)
	}
}

func safeCall(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v\n%s", apperrors.ErrTaskPanic, r, debug.Stack())
		}
	}()
	return task()
}

func (q *WorkQueue) finish() {
	q.mu.Lock()
	q.pending--
	q.metrics.SetPending(q.pending)
	if q.pending == 0 {
		q.idle.Broadcast()
	}
	q.mu.Unlock()
}
