package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const recordingColumns = "id, owner_id, title, description, file_path, file_size, mime_type, meeting_platform, meeting_id, duration, status, is_processed, content_hash, created_at, updated_at"

// InsertRecording stores a new recording row. CreatedAt/UpdatedAt default to now.
func (s *Store) InsertRecording(ctx context.Context, rec *Recording) error {
	if rec == nil {
		return errors.New("recording is nil")
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = rec.CreatedAt

	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO recordings (`+recordingColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.OwnerID,
		rec.Title,
		nullableString(rec.Description),
		rec.FilePath,
		rec.FileSize,
		rec.MimeType,
		nullableString(rec.MeetingPlatform),
		nullableString(rec.MeetingID),
		rec.Duration,
		rec.Status,
		boolToInt(rec.IsProcessed),
		nullableString(rec.ContentHash),
		formatTime(rec.CreatedAt),
		formatTime(rec.UpdatedAt),
	); err != nil {
		return fmt.Errorf("insert recording: %w", err)
	}
	return nil
}

// GetRecording fetches a recording by identifier.
func (s *Store) GetRecording(ctx context.Context, id string) (*Recording, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+recordingColumns+` FROM recordings WHERE id = ?`, id)
	rec, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get recording: %w", err)
	}
	return rec, nil
}

// FindRecordingByHash returns the newest recording an owner uploaded with the given content hash.
func (s *Store) FindRecordingByHash(ctx context.Context, ownerID, hash string) (*Recording, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+recordingColumns+` FROM recordings WHERE owner_id = ? AND content_hash = ? ORDER BY created_at DESC LIMIT 1`,
		ownerID, hash,
	)
	rec, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find recording by hash: %w", err)
	}
	return rec, nil
}

// ListRecordings returns recordings newest first. An empty ownerID lists every owner.
// A non-positive limit returns all rows after offset.
func (s *Store) ListRecordings(ctx context.Context, ownerID string, limit, offset int) ([]*Recording, error) {
	query := `SELECT ` + recordingColumns + ` FROM recordings`
	args := make([]any, 0, 3)
	if ownerID != "" {
		query += ` WHERE owner_id = ?`
		args = append(args, ownerID)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	defer rows.Close()

	var recs []*Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// UpdateRecording applies a partial update and returns the refreshed row.
func (s *Store) UpdateRecording(ctx context.Context, id string, patch RecordingPatch) (*Recording, error) {
	var set setClause
	if patch.Title != nil {
		set.add("title", *patch.Title)
	}
	if patch.Description != nil {
		set.add("description", nullableString(*patch.Description))
	}
	if patch.Status != nil {
		set.add("status", *patch.Status)
	}
	if patch.IsProcessed != nil {
		set.add("is_processed", boolToInt(*patch.IsProcessed))
	}
	if patch.Duration != nil {
		set.add("duration", *patch.Duration)
	}
	set.add("updated_at", formatTime(time.Now()))

	args := append(set.args, id)
	res, err := s.execWithRetry(ctx, `UPDATE recordings SET `+set.String()+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("update recording: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, ErrNotFound
	}
	return s.GetRecording(ctx, id)
}

// DeleteRecording removes a recording row. Transcripts and queue items cascade.
func (s *Store) DeleteRecording(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM recordings WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete recording: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func scanRecording(scanner rowScanner) (*Recording, error) {
	var (
		rec         Recording
		description sql.NullString
		platform    sql.NullString
		meetingID   sql.NullString
		status      string
		processed   int64
		hash        sql.NullString
		createdRaw  string
		updatedRaw  string
	)
	if err := scanner.Scan(
		&rec.ID,
		&rec.OwnerID,
		&rec.Title,
		&description,
		&rec.FilePath,
		&rec.FileSize,
		&rec.MimeType,
		&platform,
		&meetingID,
		&rec.Duration,
		&status,
		&processed,
		&hash,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	rec.Description = description.String
	rec.MeetingPlatform = platform.String
	rec.MeetingID = meetingID.String
	rec.Status = Status(status)
	rec.IsProcessed = processed != 0
	rec.ContentHash = hash.String
	if created, err := parseTimeString(createdRaw); err == nil {
		rec.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		rec.UpdatedAt = updated
	}
	return &rec, nil
}
