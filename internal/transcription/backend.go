package transcription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"meetscribe/internal/blobstore"
	"meetscribe/internal/config"
	"meetscribe/internal/services"
	"meetscribe/internal/store"
)

// Backend produces transcript text for a recording.
type Backend interface {
	Transcribe(ctx context.Context, rec *store.Recording) (string, error)
}

// NewFromConfig selects the configured backend.
func NewFromConfig(cfg *config.Config, blobs blobstore.Store, logger *slog.Logger) (Backend, error) {
	switch cfg.Transcription.Backend {
	case config.BackendStub, "":
		return NewStubBackend(cfg.StubDelay()), nil
	case config.BackendHTTP:
		return NewHTTPBackend(cfg.Transcription.Endpoint, blobs, cfg.Storage.RecordingsBucket,
			WithAPIKey(cfg.Transcription.APIKey),
			WithModel(cfg.Transcription.Model),
			WithLanguage(cfg.Transcription.Language),
			WithTimeout(cfg.TranscriptionTimeout()),
			WithLogger(logger),
		), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "transcription", "select backend",
			fmt.Sprintf("unknown backend %q", cfg.Transcription.Backend), nil)
	}
}

// StubBackend returns a canned transcript after a fixed delay.
type StubBackend struct {
	delay time.Duration
	now   func() time.Time
}

// NewStubBackend constructs a stub that waits delay before answering.
func NewStubBackend(delay time.Duration) *StubBackend {
	return &StubBackend{delay: delay, now: time.Now}
}

// Transcribe waits for the configured delay, honouring ctx, then returns a
// short speaker-tagged transcript naming the recording.
func (s *StubBackend) Transcribe(ctx context.Context, rec *store.Recording) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("stub transcription: nil recording")
	}
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	} else if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("This is a mock transcript for recording %s.\n\n"+
		"Title: %s\n"+
		"Date: %s\n\n"+
		"[00:00:00] Speaker 1: Hello, this is a test recording.\n"+
		"[00:00:05] Speaker 2: Yes, this is a test.\n"+
		"[00:00:10] Speaker 1: The quick brown fox jumps over the lazy dog.",
		rec.ID, rec.Title, s.now().Format("2006-01-02")), nil
}
