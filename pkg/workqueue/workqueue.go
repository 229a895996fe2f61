// Package workqueue provides a fixed-size pool of worker goroutines draining
// a shared FIFO task queue. Callers submit tasks with Execute and wait for
// everything submitted so far with Finish; Shutdown stops the workers.
//
// The pending count, the task queue, and both condition variables share one
// mutex, so "enqueue and increment" and "decrement, check zero, broadcast"
// are each atomic with respect to the other and no wakeup can be lost.
//
// Finish, Join and Shutdown must not be called from inside a running task:
// the calling task is itself pending and would wait on itself.
package workqueue

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/metrics"
)

// DefaultWorkers is the pool size used when New is given a non-positive count.
const DefaultWorkers = 5

// WorkQueue runs submitted tasks on a fixed number of goroutines.
type WorkQueue struct {
	mu       sync.Mutex
	work     *sync.Cond
	idle     *sync.Cond
	tasks    []func()
	pending  int
	shutdown bool
	size     int
	wg       sync.WaitGroup
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures a WorkQueue.
type Option func(*WorkQueue)

func WithLogger(logger *slog.Logger) Option {
	return func(q *WorkQueue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(q *WorkQueue) {
		q.metrics = m
	}
}

// New starts a queue with the given number of workers. The workers wait in
// the background until tasks arrive.
func New(workers int, opts ...Option) *WorkQueue {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	q := &WorkQueue{
		size:   workers,
		logger: slog.Default().With("component", "workqueue"),
	}
	q.work = sync.NewCond(&q.mu)
	q.idle = sync.NewCond(&q.mu)
	for _, opt := range opts {
		opt(q)
	}
	q.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go q.worker(i)
	}
	q.logger.Debug("work queue started", "workers", workers)
	return q
}

// Execute queues a task and returns immediately. It is safe to call from any
// goroutine, including from inside a running task. Tasks submitted after
// Shutdown are rejected with ErrQueueShutdown.
func (q *WorkQueue) Execute(task func()) error {
	if task == nil {
		return errors.New(errors.ErrInvalidInput, "execute", "", "nil task")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.shutdown {
		return errors.ErrQueueShutdown
	}
	q.tasks = append(q.tasks, task)
	q.pending++
	q.observePending()
	q.work.Signal()
	return nil
}

// Finish blocks until every submitted task has completed. The queue remains
// usable afterwards, and any number of goroutines may wait at once.
func (q *WorkQueue) Finish() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.pending > 0 {
		q.idle.Wait()
	}
}

// FinishContext is Finish with an escape hatch: if ctx is cancelled first it
// stops waiting and returns ctx.Err(). Queued and running tasks are not
// affected.
func (q *WorkQueue) FinishContext(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.idle.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for q.pending > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		q.idle.Wait()
	}
	return nil
}

// Shutdown stops the workers once their current task (if any) returns and
// waits for them to exit. Tasks still queued are abandoned and never run.
// Calling Shutdown more than once is harmless.
func (q *WorkQueue) Shutdown() {
	q.mu.Lock()
	if !q.shutdown {
		q.shutdown = true
		abandoned := len(q.tasks)
		q.tasks = nil
		q.pending -= abandoned
		if abandoned > 0 {
			q.logger.Warn("abandoning queued tasks", "tasks", abandoned)
			if q.metrics != nil {
				q.metrics.TasksTotal.WithLabelValues("abandoned").Add(float64(abandoned))
			}
		}
		q.observePending()
		if q.pending == 0 {
			q.idle.Broadcast()
		}
		q.work.Broadcast()
	}
	q.mu.Unlock()
	q.wg.Wait()
}

// Join waits for all submitted work and then shuts the queue down. The
// queue cannot be reused afterwards.
func (q *WorkQueue) Join() {
	q.Finish()
	q.Shutdown()
}

// Size returns the fixed number of workers.
func (q *WorkQueue) Size() int {
	return q.size
}

// Pending returns the number of submitted tasks that have not completed.
func (q *WorkQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

func (q *WorkQueue) worker(id int) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		for len(q.tasks) == 0 && !q.shutdown {
			q.work.Wait()
		}
		// woken either because work is queued or because of shutdown
		if q.shutdown {
			q.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		q.run(id, task)
	}
}

func (q *WorkQueue) run(id int, task func()) {
	start := time.Now()
	defer func() {
		status := "ok"
		if r := recover(); r != nil {
			status = "failed"
			q.logger.Error("task failed",
				"worker", id,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
		if q.metrics != nil {
			q.metrics.TasksTotal.WithLabelValues(status).Inc()
			q.metrics.TaskDuration.Observe(time.Since(start).Seconds())
		}
		q.release()
	}()
	task()
}

func (q *WorkQueue) release() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending--
	q.observePending()
	if q.pending == 0 {
		q.idle.Broadcast()
	}
}

// observePending must be called with q.mu held.
func (q *WorkQueue) observePending() {
	if q.metrics != nil {
		q.metrics.TasksPending.Set(float64(q.pending))
	}
}
