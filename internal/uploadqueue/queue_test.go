package uploadqueue_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"meetscribe/internal/logging"
	"meetscribe/internal/uploadqueue"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func waitDrained(t *testing.T, q *uploadqueue.Queue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.Wait(ctx); err != nil {
		t.Fatalf("queue did not drain: %v", err)
	}
}

func TestTasksRunFIFOWithoutOverlap(t *testing.T) {
	q := uploadqueue.New(logging.NewNop())
	rec := &recorder{}
	var active, maxActive atomic.Int32

	track := func(name string, d time.Duration) uploadqueue.Task {
		return uploadqueue.Func(name, func(ctx context.Context) error {
			n := active.Add(1)
			for {
				current := maxActive.Load()
				if n <= current || maxActive.CompareAndSwap(current, n) {
					break
				}
			}
			rec.add(name + "-start")
			time.Sleep(d)
			rec.add(name + "-end")
			active.Add(-1)
			return nil
		})
	}

	if err := q.Enqueue(track("A", 50*time.Millisecond)); err != nil {
		t.Fatalf("Enqueue A: %v", err)
	}
	if err := q.Enqueue(track("B", time.Millisecond)); err != nil {
		t.Fatalf("Enqueue B: %v", err)
	}
	if q.Pending() != 2 {
		t.Fatalf("Pending = %d before start, want 2", q.Pending())
	}
	if err := q.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer q.Stop()
	waitDrained(t, q)

	want := []string{"A-start", "A-end", "B-start", "B-end"}
	got := rec.snapshot()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
	if maxActive.Load() != 1 {
		t.Fatalf("observed %d concurrent tasks", maxActive.Load())
	}
}

func TestFailingAndPanickingTasksDoNotStopQueue(t *testing.T) {
	q := uploadqueue.New(logging.NewNop())
	if err := q.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer q.Stop()

	var ran atomic.Bool
	_ = q.Enqueue(uploadqueue.Func("fails", func(context.Context) error { return errors.New("boom") }))
	_ = q.Enqueue(uploadqueue.Func("panics", func(context.Context) error { panic("kaboom") }))
	_ = q.Enqueue(uploadqueue.Func("after", func(context.Context) error {
		ran.Store(true)
		return nil
	}))
	waitDrained(t, q)

	if !ran.Load() {
		t.Fatal("task after panic never ran")
	}
	if q.Busy() || q.Current() != "" || q.Pending() != 0 {
		t.Fatalf("queue not idle: busy=%v current=%q pending=%d", q.Busy(), q.Current(), q.Pending())
	}
}

func TestEnqueueAfterStop(t *testing.T) {
	q := uploadqueue.New(nil)
	if err := q.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	q.Stop()
	q.Stop()

	if err := q.Enqueue(uploadqueue.Func("late", func(context.Context) error { return nil })); !errors.Is(err, uploadqueue.ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
	if err := q.Start(context.Background()); !errors.Is(err, uploadqueue.ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed on restart, got %v", err)
	}
}

func TestStartTwice(t *testing.T) {
	q := uploadqueue.New(nil)
	if err := q.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer q.Stop()
	if err := q.Start(context.Background()); !errors.Is(err, uploadqueue.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestStopCancelsRunningTaskAndDropsQueued(t *testing.T) {
	q := uploadqueue.New(logging.NewNop())
	started := make(chan struct{})
	var cancelled, secondRan atomic.Bool

	_ = q.Enqueue(uploadqueue.Func("blocking", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	}))
	_ = q.Enqueue(uploadqueue.Func("queued", func(context.Context) error {
		secondRan.Store(true)
		return nil
	}))
	if err := q.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("blocking task never started")
	}

	done := make(chan struct{})
	go func() {
		q.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}

	if !cancelled.Load() {
		t.Fatal("running task context was not cancelled")
	}
	if secondRan.Load() {
		t.Fatal("queued task ran after Stop")
	}
	select {
	case <-q.Idle():
	default:
		t.Fatal("expected queue to report idle after Stop")
	}
}

func TestCancelledStartContextClosesQueue(t *testing.T) {
	q := uploadqueue.New(logging.NewNop())
	started := make(chan struct{})
	var secondRan atomic.Bool

	_ = q.Enqueue(uploadqueue.Func("blocking", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}))
	_ = q.Enqueue(uploadqueue.Func("queued", func(context.Context) error {
		secondRan.Store(true)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	if err := q.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("blocking task never started")
	}
	cancel()

	waitDrained(t, q)
	if secondRan.Load() {
		t.Fatal("queued task ran after the start context ended")
	}
	if q.Pending() != 0 || q.Busy() {
		t.Fatalf("pending=%d busy=%v after shutdown", q.Pending(), q.Busy())
	}
	if err := q.Enqueue(uploadqueue.Func("late", func(context.Context) error { return nil })); !errors.Is(err, uploadqueue.ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
	if err := q.Start(context.Background()); !errors.Is(err, uploadqueue.ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed on restart, got %v", err)
	}
	q.Stop()
}

func TestIdleQueueClosesWhenStartContextEnds(t *testing.T) {
	q := uploadqueue.New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	if err := q.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()

	deadline := time.Now().Add(5 * time.Second)
	for {
		err := q.Enqueue(uploadqueue.Func("after-cancel", func(context.Context) error { return nil }))
		if errors.Is(err, uploadqueue.ErrQueueClosed) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("queue still accepting work after its context ended (last err %v)", err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	waitDrained(t, q)
}

func TestWaitRespectsContext(t *testing.T) {
	q := uploadqueue.New(nil)
	_ = q.Enqueue(uploadqueue.Func("never-started", func(context.Context) error { return nil }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := q.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestNilTaskRejected(t *testing.T) {
	q := uploadqueue.New(nil)
	if err := q.Enqueue(nil); err == nil {
		t.Fatal("expected error for nil task")
	}
}
