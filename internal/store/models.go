package store

import (
	"strings"
	"time"
)

// Status is the lifecycle state shared by recordings, transcripts, and
// processing-queue items. Only recordings use StatusDeleted.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusDeleted    Status = "deleted"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
	StatusDeleted,
}

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// ParseStatus converts a string into a Status if recognized.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// Recording is a captured media artifact with ownership and lifecycle status.
type Recording struct {
	ID              string
	OwnerID         string
	Title           string
	Description     string
	FilePath        string
	FileSize        int64
	MimeType        string
	MeetingPlatform string
	MeetingID       string
	Duration        float64
	Status          Status
	IsProcessed     bool
	ContentHash     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RecordingPatch lists the mutable recording columns; nil fields are left unchanged.
type RecordingPatch struct {
	Title       *string
	Description *string
	Status      *Status
	IsProcessed *bool
	Duration    *float64
}

// Transcript is derived text content associated with one recording.
type Transcript struct {
	ID          string
	RecordingID string
	Content     string
	Language    string
	WordCount   int
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TranscriptPatch lists the mutable transcript columns; nil fields are left unchanged.
type TranscriptPatch struct {
	Content   *string
	Language  *string
	WordCount *int
	Status    *Status
}

// QueueItem tracks one transcription attempt lineage for a recording.
type QueueItem struct {
	ID            int64
	RecordingID   string
	Status        Status
	Attempts      int
	LastAttemptAt *time.Time
	Error         string
	CreatedAt     time.Time
}
