package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const transcriptColumns = "id, recording_id, content, language, word_count, status, created_at, updated_at"

// InsertTranscript stores a new transcript row.
func (s *Store) InsertTranscript(ctx context.Context, tr *Transcript) error {
	if tr == nil {
		return errors.New("transcript is nil")
	}
	now := time.Now().UTC()
	if tr.CreatedAt.IsZero() {
		tr.CreatedAt = now
	}
	tr.UpdatedAt = tr.CreatedAt
	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO transcripts (`+transcriptColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tr.ID,
		tr.RecordingID,
		tr.Content,
		tr.Language,
		tr.WordCount,
		tr.Status,
		formatTime(tr.CreatedAt),
		formatTime(tr.UpdatedAt),
	); err != nil {
		return fmt.Errorf("insert transcript: %w", err)
	}
	return nil
}

// GetTranscript fetches a transcript by identifier.
func (s *Store) GetTranscript(ctx context.Context, id string) (*Transcript, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+transcriptColumns+` FROM transcripts WHERE id = ?`, id)
	tr, err := scanTranscript(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transcript: %w", err)
	}
	return tr, nil
}

// ListTranscripts returns every transcript for a recording, newest first.
func (s *Store) ListTranscripts(ctx context.Context, recordingID string) ([]*Transcript, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+transcriptColumns+` FROM transcripts WHERE recording_id = ? ORDER BY created_at DESC, id DESC`,
		recordingID,
	)
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	defer rows.Close()

	var out []*Transcript
	for rows.Next() {
		tr, err := scanTranscript(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transcript: %w", err)
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

// UpdateTranscript applies a partial update and returns the refreshed row.
func (s *Store) UpdateTranscript(ctx context.Context, id string, patch TranscriptPatch) (*Transcript, error) {
	var set setClause
	if patch.Content != nil {
		set.add("content", *patch.Content)
	}
	if patch.Language != nil {
		set.add("language", *patch.Language)
	}
	if patch.WordCount != nil {
		set.add("word_count", *patch.WordCount)
	}
	if patch.Status != nil {
		set.add("status", *patch.Status)
	}
	set.add("updated_at", formatTime(time.Now()))

	args := append(set.args, id)
	res, err := s.execWithRetry(ctx, `UPDATE transcripts SET `+set.String()+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("update transcript: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, ErrNotFound
	}
	return s.GetTranscript(ctx, id)
}

// DeleteTranscript removes a transcript row.
func (s *Store) DeleteTranscript(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM transcripts WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete transcript: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func scanTranscript(scanner rowScanner) (*Transcript, error) {
	var (
		tr         Transcript
		status     string
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&tr.ID,
		&tr.RecordingID,
		&tr.Content,
		&tr.Language,
		&tr.WordCount,
		&status,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	tr.Status = Status(status)
	if created, err := parseTimeString(createdRaw); err == nil {
		tr.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		tr.UpdatedAt = updated
	}
	return &tr, nil
}
