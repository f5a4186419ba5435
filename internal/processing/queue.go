package processing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"meetscribe/internal/logging"
	"meetscribe/internal/services"
	"meetscribe/internal/store"
)

// Queue is the persisted processing queue.
type Queue struct {
	store  *store.Store
	logger *slog.Logger
	now    func() time.Time
}

// QueueOption customizes a Queue.
type QueueOption func(*Queue)

// WithQueueClock overrides the clock used for last_attempt_at.
func WithQueueClock(now func() time.Time) QueueOption {
	return func(q *Queue) {
		if now != nil {
			q.now = now
		}
	}
}

// NewQueue wraps the store's processing_queue table.
func NewQueue(st *store.Store, logger *slog.Logger, opts ...QueueOption) *Queue {
	q := &Queue{
		store:  st,
		logger: logging.NewComponentLogger(logger, "processing-queue"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue adds a pending item with zero attempts for the recording.
func (q *Queue) Enqueue(ctx context.Context, recordingID string) error {
	item, err := q.store.InsertQueueItem(ctx, recordingID)
	if err != nil {
		err = services.Wrap(services.ErrPersistence, "processing", "enqueue", recordingID, err)
		logging.WithContext(services.WithRecordingID(ctx, recordingID), q.logger).Error("processing enqueue failed",
			logging.Error(err),
		)
		return err
	}
	logging.WithContext(services.WithRecordingID(ctx, recordingID), q.logger).Info("recording queued for transcription",
		logging.Int64("queue_item_id", item.ID),
	)
	return nil
}

// UpdateStatus records a status change on the recording's latest queue item.
// Attempts grow only on entry into processing or failed. Failures are logged
// and swallowed so bookkeeping never masks the caller's own error.
func (q *Queue) UpdateStatus(ctx context.Context, recordingID string, status store.Status, errMsg string) {
	logger := logging.WithContext(services.WithRecordingID(ctx, recordingID), q.logger)
	item, err := q.store.LatestQueueItem(ctx, recordingID)
	if err != nil {
		logging.WarnWithContext(logger, "processing queue item not updated", "queue_update_failed",
			logging.String("status", string(status)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "attempt history is incomplete"),
		)
		return
	}

	now := q.now().UTC()
	item.Status = status
	item.LastAttemptAt = &now
	item.Error = errMsg
	if countsAsAttempt(status) {
		item.Attempts++
	}
	if err := q.store.UpdateQueueItem(ctx, item); err != nil {
		logging.WarnWithContext(logger, "processing queue item not updated", "queue_update_failed",
			logging.Int64("queue_item_id", item.ID),
			logging.String("status", string(status)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "attempt history is incomplete"),
		)
		return
	}
	logger.Debug("processing queue item updated",
		logging.Int64("queue_item_id", item.ID),
		logging.String("status", string(status)),
		logging.Int("attempts", item.Attempts),
	)
}

func countsAsAttempt(status store.Status) bool {
	return status == store.StatusProcessing || status == store.StatusFailed
}

// Latest returns the authoritative queue item for a recording.
func (q *Queue) Latest(ctx context.Context, recordingID string) (*store.QueueItem, error) {
	item, err := q.store.LatestQueueItem(ctx, recordingID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, services.Wrap(services.ErrNotFound, "processing", "latest", fmt.Sprintf("no queue item for recording %s", recordingID), err)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "processing", "latest", recordingID, err)
	}
	return item, nil
}

// Pending returns pending items, oldest first, skipping items superseded by a
// newer item for the same recording. A non-positive limit returns all.
func (q *Queue) Pending(ctx context.Context, limit int) ([]*store.QueueItem, error) {
	items, err := q.store.QueueItemsByStatus(ctx, store.StatusPending, 0)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "processing", "pending", "", err)
	}
	pending := make([]*store.QueueItem, 0, len(items))
	for _, item := range items {
		latest, err := q.store.LatestQueueItem(ctx, item.RecordingID)
		if err != nil {
			return nil, services.Wrap(services.ErrPersistence, "processing", "pending", item.RecordingID, err)
		}
		if latest.ID != item.ID {
			continue
		}
		pending = append(pending, item)
		if limit > 0 && len(pending) == limit {
			break
		}
	}
	return pending, nil
}

// Stats counts queue items by status.
func (q *Queue) Stats(ctx context.Context) (map[store.Status]int, error) {
	stats, err := q.store.QueueStats(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "processing", "stats", "", err)
	}
	return stats, nil
}
