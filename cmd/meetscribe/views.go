package main

import (
	"time"

	"meetscribe/internal/store"
)

type recordingView struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"owner_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	FilePath        string    `json:"file_path"`
	FileSize        int64     `json:"file_size"`
	MimeType        string    `json:"mime_type"`
	MeetingPlatform string    `json:"meeting_platform,omitempty"`
	MeetingID       string    `json:"meeting_id,omitempty"`
	Status          string    `json:"status"`
	IsProcessed     bool      `json:"is_processed"`
	ContentHash     string    `json:"content_hash,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func newRecordingView(rec *store.Recording) recordingView {
	return recordingView{
		ID:              rec.ID,
		OwnerID:         rec.OwnerID,
		Title:           rec.Title,
		Description:     rec.Description,
		FilePath:        rec.FilePath,
		FileSize:        rec.FileSize,
		MimeType:        rec.MimeType,
		MeetingPlatform: rec.MeetingPlatform,
		MeetingID:       rec.MeetingID,
		Status:          string(rec.Status),
		IsProcessed:     rec.IsProcessed,
		ContentHash:     rec.ContentHash,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
	}
}

type transcriptView struct {
	ID          string    `json:"id"`
	RecordingID string    `json:"recording_id"`
	Language    string    `json:"language"`
	WordCount   int       `json:"word_count"`
	Status      string    `json:"status"`
	Content     string    `json:"content,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func newTranscriptView(tr *store.Transcript, content string) transcriptView {
	return transcriptView{
		ID:          tr.ID,
		RecordingID: tr.RecordingID,
		Language:    tr.Language,
		WordCount:   tr.WordCount,
		Status:      string(tr.Status),
		Content:     content,
		CreatedAt:   tr.CreatedAt,
	}
}

func recordingRows(recs []*store.Recording) [][]string {
	rows := make([][]string, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, []string{
			rec.ID,
			rec.Title,
			string(rec.Status),
			formatBytes(rec.FileSize),
			formatTimestamp(rec.CreatedAt),
		})
	}
	return rows
}

func recordingDetails(rec *store.Recording) [][2]string {
	pairs := [][2]string{
		{"ID", rec.ID},
		{"Title", rec.Title},
		{"Owner", rec.OwnerID},
		{"Status", string(rec.Status)},
		{"Transcribed", yesNo(rec.IsProcessed)},
		{"Size", formatBytes(rec.FileSize)},
		{"Type", rec.MimeType},
		{"Path", rec.FilePath},
		{"Created", formatTimestamp(rec.CreatedAt)},
		{"Updated", formatTimestamp(rec.UpdatedAt)},
	}
	if rec.Description != "" {
		pairs = append(pairs, [2]string{"Description", rec.Description})
	}
	if rec.MeetingPlatform != "" || rec.MeetingID != "" {
		pairs = append(pairs, [2]string{"Meeting", rec.MeetingPlatform + " " + rec.MeetingID})
	}
	if rec.ContentHash != "" {
		pairs = append(pairs, [2]string{"SHA-256", rec.ContentHash})
	}
	return pairs
}
