package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const queueColumns = "id, recording_id, status, attempts, last_attempt_at, error, created_at"

// InsertQueueItem appends a pending item with zero attempts for the recording.
func (s *Store) InsertQueueItem(ctx context.Context, recordingID string) (*QueueItem, error) {
	now := time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO processing_queue (recording_id, status, attempts, created_at) VALUES (?, ?, 0, ?)`,
		recordingID,
		StatusPending,
		formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert queue item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &QueueItem{ID: id, RecordingID: recordingID, Status: StatusPending, CreatedAt: now}, nil
}

// LatestQueueItem returns the most recently created item for a recording.
func (s *Store) LatestQueueItem(ctx context.Context, recordingID string) (*QueueItem, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+queueColumns+` FROM processing_queue WHERE recording_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		recordingID,
	)
	item, err := scanQueueItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest queue item: %w", err)
	}
	return item, nil
}

// UpdateQueueItem persists status, attempts, last attempt time, and error for an item.
func (s *Store) UpdateQueueItem(ctx context.Context, item *QueueItem) error {
	if item == nil {
		return errors.New("queue item is nil")
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE processing_queue SET status = ?, attempts = ?, last_attempt_at = ?, error = ? WHERE id = ?`,
		item.Status,
		item.Attempts,
		nullableTime(item.LastAttemptAt),
		nullableString(item.Error),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("update queue item: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

// QueueItemsByStatus returns items in a status, oldest first. A non-positive limit returns all.
func (s *Store) QueueItemsByStatus(ctx context.Context, status Status, limit int) ([]*QueueItem, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+queueColumns+` FROM processing_queue WHERE status = ? ORDER BY created_at, id LIMIT ?`,
		status, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query queue by status: %w", err)
	}
	defer rows.Close()

	var items []*QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan queue item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// QueueStats returns a count of queue items grouped by status.
func (s *Store) QueueStats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM processing_queue GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// DeleteQueueItems removes every queue item for a recording.
func (s *Store) DeleteQueueItems(ctx context.Context, recordingID string) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM processing_queue WHERE recording_id = ?`, recordingID)
	if err != nil {
		return 0, fmt.Errorf("delete queue items: %w", err)
	}
	return res.RowsAffected()
}

func scanQueueItem(scanner rowScanner) (*QueueItem, error) {
	var (
		item        QueueItem
		status      string
		lastAttempt sql.NullString
		errMsg      sql.NullString
		createdRaw  string
	)
	if err := scanner.Scan(
		&item.ID,
		&item.RecordingID,
		&status,
		&item.Attempts,
		&lastAttempt,
		&errMsg,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	item.Status = Status(status)
	item.Error = errMsg.String
	if lastAttempt.Valid {
		if ts, err := parseTimeString(lastAttempt.String); err == nil {
			item.LastAttemptAt = &ts
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		item.CreatedAt = created
	}
	return &item, nil
}
