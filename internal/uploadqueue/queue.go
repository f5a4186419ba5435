package uploadqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"meetscribe/internal/logging"
)

var (
	// ErrQueueClosed is returned by Enqueue and Start once the worker has
	// exited, through Stop or cancellation of the Start context.
	ErrQueueClosed = errors.New("upload queue closed")
	// ErrAlreadyRunning is returned by a second Start.
	ErrAlreadyRunning = errors.New("upload queue already running")
)

// Task is one unit of upload work.
type Task interface {
	// Describe names the task in logs.
	Describe() string
	Run(ctx context.Context) error
}

type funcTask struct {
	name string
	fn   func(context.Context) error
}

func (t funcTask) Describe() string { return t.name }

func (t funcTask) Run(ctx context.Context) error { return t.fn(ctx) }

// Func adapts fn into a Task.
func Func(name string, fn func(context.Context) error) Task {
	return funcTask{name: name, fn: fn}
}

// Queue runs tasks one at a time in submission order.
type Queue struct {
	logger *slog.Logger

	mu      sync.Mutex
	tasks   []Task
	running bool
	closed  bool
	busy    bool
	current string
	idle    chan struct{}
	wake    chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs an idle, unstarted queue.
func New(logger *slog.Logger) *Queue {
	idle := make(chan struct{})
	close(idle)
	return &Queue{
		logger: logging.NewComponentLogger(logger, "upload-queue"),
		idle:   idle,
		wake:   make(chan struct{}, 1),
	}
}

// Enqueue appends task. Tasks enqueued before Start wait until the worker runs.
func (q *Queue) Enqueue(task Task) error {
	if task == nil {
		return errors.New("upload queue: nil task")
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.tasks = append(q.tasks, task)
	position := len(q.tasks)
	q.markBusyLocked()
	q.mu.Unlock()

	q.logger.Debug("upload task queued",
		logging.String("task", task.Describe()),
		logging.Int("position", position),
	)
	q.signal()
	return nil
}

// Start launches the worker goroutine. Cancelling ctx closes the queue like
// Stop: the running task is cancelled and queued tasks are dropped.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	if q.running {
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	q.running = true
	q.wg.Add(1)
	go q.loop(runCtx)
	return nil
}

// Stop closes the queue, cancels the running task, and waits for the worker.
// Queued tasks that never started are dropped.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.wg.Wait()
		return
	}
	q.closed = true
	dropped := len(q.tasks)
	q.tasks = nil
	cancel := q.cancel
	q.cancel = nil
	q.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	q.wg.Wait()

	q.mu.Lock()
	q.running = false
	q.markIdleLocked()
	q.mu.Unlock()

	q.warnDropped(dropped)
}

// retire closes the queue when the worker exits on its own because the Start
// context ended.
func (q *Queue) retire() {
	q.mu.Lock()
	q.closed = true
	q.running = false
	dropped := len(q.tasks)
	q.tasks = nil
	q.busy = false
	q.current = ""
	if q.cancel != nil {
		q.cancel()
		q.cancel = nil
	}
	q.markIdleLocked()
	q.mu.Unlock()

	q.warnDropped(dropped)
}

func (q *Queue) warnDropped(dropped int) {
	if dropped == 0 {
		return
	}
	logging.WarnWithContext(q.logger, "upload queue stopped with tasks pending", "upload_queue_dropped",
		logging.Int("dropped", dropped),
		logging.String(logging.FieldImpact, "queued uploads were not attempted"),
	)
}

// Pending reports tasks waiting to start; the running task is not counted.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Busy reports whether a task is running right now.
func (q *Queue) Busy() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.busy
}

// Current describes the running task, or "" when idle.
func (q *Queue) Current() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current
}

// Idle returns a channel closed once no task is running or queued.
func (q *Queue) Idle() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.idle
}

// Wait blocks until the queue drains or ctx ends.
func (q *Queue) Wait(ctx context.Context) error {
	select {
	case <-q.Idle():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) loop(ctx context.Context) {
	defer q.wg.Done()
	defer q.retire()
	for {
		task, ok := q.next(ctx)
		if !ok {
			return
		}
		q.execute(ctx, task)

		q.mu.Lock()
		q.busy = false
		q.current = ""
		if len(q.tasks) == 0 {
			q.markIdleLocked()
		}
		q.mu.Unlock()
	}
}

// next blocks until a task is available or ctx ends.
func (q *Queue) next(ctx context.Context) (Task, bool) {
	for {
		q.mu.Lock()
		if ctx.Err() != nil {
			q.mu.Unlock()
			return nil, false
		}
		if len(q.tasks) > 0 {
			task := q.tasks[0]
			q.tasks[0] = nil
			q.tasks = q.tasks[1:]
			q.busy = true
			q.current = task.Describe()
			q.mu.Unlock()
			return task, true
		}
		q.markIdleLocked()
		q.mu.Unlock()

		select {
		case <-q.wake:
		case <-ctx.Done():
			return nil, false
		}
	}
}

func (q *Queue) execute(ctx context.Context, task Task) {
	name := task.Describe()
	logger := logging.WithContext(ctx, q.logger).With(logging.String("task", name))
	started := time.Now()
	logger.Info("upload task started")

	err := runProtected(ctx, task)
	switch {
	case err == nil:
		logger.Info("upload task finished", logging.Duration("duration", time.Since(started)))
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		logging.WarnWithContext(logger, "upload task cancelled", "upload_task_cancelled",
			logging.Duration("duration", time.Since(started)),
			logging.String(logging.FieldImpact, "upload interrupted by shutdown"),
		)
	default:
		logging.ErrorWithContext(logger, "upload task failed", "upload_task_failed",
			logging.Duration("duration", time.Since(started)),
			logging.Error(err),
		)
	}
}

func runProtected(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("upload task panic: %v\n%s", r, debug.Stack())
		}
	}()
	return task.Run(ctx)
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) markBusyLocked() {
	select {
	case <-q.idle:
		q.idle = make(chan struct{})
	default:
	}
}

func (q *Queue) markIdleLocked() {
	if q.busy || len(q.tasks) > 0 {
		return
	}
	select {
	case <-q.idle:
	default:
		close(q.idle)
	}
}
