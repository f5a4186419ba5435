package processing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"meetscribe/internal/logging"
	"meetscribe/internal/processing"
	"meetscribe/internal/services"
	"meetscribe/internal/store"
	"meetscribe/internal/testsupport"
)

func TestQueueAttemptBookkeeping(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	rec := h.queued(t, "Standup")

	item := h.latest(t, rec.ID)
	if item.Status != store.StatusPending || item.Attempts != 0 || item.LastAttemptAt != nil {
		t.Fatalf("unexpected new item: %#v", item)
	}

	steps := []struct {
		status   store.Status
		errMsg   string
		attempts int
	}{
		{store.StatusProcessing, "", 1},
		{store.StatusFailed, "backend unavailable", 2},
		{store.StatusPending, "", 2},
		{store.StatusProcessing, "", 3},
		{store.StatusCompleted, "", 3},
	}
	for _, step := range steps {
		h.queue.UpdateStatus(ctx, rec.ID, step.status, step.errMsg)
		item := h.latest(t, rec.ID)
		if item.Status != step.status || item.Attempts != step.attempts || item.Error != step.errMsg {
			t.Fatalf("after %s: got status=%s attempts=%d error=%q, want attempts=%d error=%q",
				step.status, item.Status, item.Attempts, item.Error, step.attempts, step.errMsg)
		}
		if item.LastAttemptAt == nil {
			t.Fatalf("after %s: last_attempt_at not set", step.status)
		}
	}
}

func TestQueueUpdateStatusUsesClock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	fixed := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	queue := processing.NewQueue(st, logging.NewNop(), processing.WithQueueClock(func() time.Time { return fixed }))
	rec := testsupport.NewRecording(t, st, "Retro")
	ctx := context.Background()

	if err := queue.Enqueue(ctx, rec.ID); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	queue.UpdateStatus(ctx, rec.ID, store.StatusProcessing, "")
	item, err := queue.Latest(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if item.LastAttemptAt == nil || !item.LastAttemptAt.Equal(fixed) {
		t.Fatalf("last_attempt_at = %v, want %v", item.LastAttemptAt, fixed)
	}
}

func TestQueueUpdatesOnlyLatestItem(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	rec := h.queued(t, "Standup")
	first := h.latest(t, rec.ID)
	if err := h.queue.Enqueue(ctx, rec.ID); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	h.queue.UpdateStatus(ctx, rec.ID, store.StatusProcessing, "")

	latest := h.latest(t, rec.ID)
	if latest.ID == first.ID || latest.Status != store.StatusProcessing {
		t.Fatalf("expected the newer item to be updated, got %#v", latest)
	}
	pending, err := h.queue.Pending(ctx, 0)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("superseded item still reported pending: %#v", pending)
	}
}

func TestQueueUpdateStatusSwallowsMissingItem(t *testing.T) {
	h := newHarness(t, nil)
	h.queue.UpdateStatus(context.Background(), "no-such-recording", store.StatusFailed, "boom")
	if _, err := h.queue.Latest(context.Background(), "no-such-recording"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestQueuePendingOrderAndLimit(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	a := h.queued(t, "A")
	b := h.queued(t, "B")
	c := h.queued(t, "C")
	h.queue.UpdateStatus(ctx, b.ID, store.StatusProcessing, "")

	pending, err := h.queue.Pending(ctx, 0)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 2 || pending[0].RecordingID != a.ID || pending[1].RecordingID != c.ID {
		t.Fatalf("unexpected pending items: %#v", pending)
	}
	limited, err := h.queue.Pending(ctx, 1)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(limited) != 1 || limited[0].RecordingID != a.ID {
		t.Fatalf("unexpected limited items: %#v", limited)
	}
}

func TestQueueStats(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	a := h.queued(t, "A")
	h.queued(t, "B")
	c := h.queued(t, "C")
	h.queue.UpdateStatus(ctx, a.ID, store.StatusProcessing, "")
	h.queue.UpdateStatus(ctx, c.ID, store.StatusFailed, "boom")

	stats, err := h.queue.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[store.StatusPending] != 1 || stats[store.StatusProcessing] != 1 || stats[store.StatusFailed] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}

func TestQueueEnqueueUnknownRecording(t *testing.T) {
	h := newHarness(t, nil)
	err := h.queue.Enqueue(context.Background(), "no-such-recording")
	if !errors.Is(err, services.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}
