package processing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"meetscribe/internal/config"
	"meetscribe/internal/logging"
	"meetscribe/internal/recordings"
	"meetscribe/internal/services"
	"meetscribe/internal/store"
	"meetscribe/internal/transcription"
	"meetscribe/internal/transcripts"
)

// Worker turns an uploaded recording into a transcript.
type Worker struct {
	queue       *Queue
	lifecycle   *recordings.Lifecycle
	transcripts *transcripts.Service
	backend     transcription.Backend
	language    string
	logger      *slog.Logger
}

// NewWorker wires a worker to its collaborators.
func NewWorker(cfg *config.Config, queue *Queue, lifecycle *recordings.Lifecycle, tr *transcripts.Service, backend transcription.Backend, logger *slog.Logger) *Worker {
	return &Worker{
		queue:       queue,
		lifecycle:   lifecycle,
		transcripts: tr,
		backend:     backend,
		language:    cfg.Transcription.Language,
		logger:      logging.NewComponentLogger(logger, "transcription-worker"),
	}
}

// Process transcribes one recording. The queue item is moved to processing
// first; a missing recording then returns services.ErrNotFound without any
// further change. Any later failure marks both the recording and the queue
// item failed before the error is returned. A recording that already reached
// a terminal status is refused without touching it; its queue item is settled
// to match.
func (w *Worker) Process(ctx context.Context, recordingID string) error {
	ctx = services.WithOperation(services.WithRecordingID(ctx, recordingID), "transcribe")
	logger := logging.WithContext(ctx, w.logger)
	started := time.Now()

	rec, err := w.lifecycle.Get(ctx, recordingID)
	if err == nil && terminal(rec.Status) {
		return w.refuse(ctx, rec)
	}

	w.queue.UpdateStatus(ctx, recordingID, store.StatusProcessing, "")

	if errors.Is(err, services.ErrNotFound) {
		logging.WarnWithContext(logger, "recording missing; skipping transcription", "recording_missing",
			logging.Error(err),
			logging.String(logging.FieldImpact, "queue item left in processing"),
		)
		return err
	}
	if err != nil {
		return w.fail(ctx, err)
	}

	tr, err := w.transcribe(ctx, rec)
	if err != nil {
		return w.fail(ctx, err)
	}

	w.queue.UpdateStatus(ctx, recordingID, store.StatusCompleted, "")
	logger.Info("recording transcribed",
		logging.String("transcript_id", tr.ID),
		logging.Int("word_count", tr.WordCount),
		logging.Duration("duration", time.Since(started)),
	)
	return nil
}

func (w *Worker) transcribe(ctx context.Context, rec *store.Recording) (*store.Transcript, error) {
	if rec.Status == store.StatusPending {
		if _, err := w.lifecycle.SetStatus(ctx, rec.ID, store.StatusProcessing); err != nil {
			return nil, err
		}
	}
	if rec.Status != store.StatusPending && rec.Status != store.StatusProcessing {
		return nil, services.Wrap(services.ErrValidation, "processing", "transcribe",
			"recording is "+string(rec.Status), recordings.ErrInvalidTransition)
	}

	text, err := w.backend.Transcribe(ctx, rec)
	if err != nil {
		return nil, services.Wrap(services.ErrProcessing, "processing", "transcribe", rec.ID, err)
	}

	tr, err := w.transcripts.Create(ctx, rec.ID, text, transcripts.Options{Language: w.language})
	if err != nil {
		return nil, err
	}
	if _, err := w.lifecycle.MarkProcessed(ctx, rec.ID); err != nil {
		return nil, err
	}
	return tr, nil
}

func terminal(status store.Status) bool {
	switch status {
	case store.StatusCompleted, store.StatusFailed, store.StatusDeleted:
		return true
	}
	return false
}

// refuse settles the queue item of a recording that cannot be transcribed
// again: completed for a completed recording, failed otherwise.
func (w *Worker) refuse(ctx context.Context, rec *store.Recording) error {
	err := services.Wrap(services.ErrValidation, "processing", "transcribe",
		"recording is "+string(rec.Status), recordings.ErrInvalidTransition)
	if rec.Status == store.StatusCompleted {
		w.queue.UpdateStatus(ctx, rec.ID, store.StatusCompleted, "")
	} else {
		w.queue.UpdateStatus(ctx, rec.ID, store.StatusFailed, err.Error())
	}
	logging.WarnWithContext(logging.WithContext(ctx, w.logger), "recording not eligible for transcription", "transcription_refused",
		logging.String("status", string(rec.Status)),
		logging.String(logging.FieldImpact, "recording left unchanged"),
	)
	return err
}

// fail records the failure on the recording and the queue item, then returns
// cause unchanged.
func (w *Worker) fail(ctx context.Context, cause error) error {
	recordingID, _ := services.RecordingIDFromContext(ctx)
	logger := logging.WithContext(ctx, w.logger)
	bookkeeping := context.WithoutCancel(ctx)

	if err := w.markFailed(bookkeeping, recordingID); err != nil {
		logging.WarnWithContext(logger, "failed to mark recording failed", "recording_status_update_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "recording status may not reflect the failed transcription"),
		)
	}
	w.queue.UpdateStatus(bookkeeping, recordingID, store.StatusFailed, cause.Error())
	logging.ErrorWithContext(logger, "transcription failed", "transcription_failed",
		logging.Error(cause),
		logging.String(logging.FieldErrorKind, services.Kind(cause)),
	)
	return cause
}

// markFailed moves the recording to failed, passing through processing when
// the failure happened before it left pending.
func (w *Worker) markFailed(ctx context.Context, recordingID string) error {
	rec, err := w.lifecycle.Get(ctx, recordingID)
	if err != nil {
		return err
	}
	if rec.Status == store.StatusPending {
		if _, err := w.lifecycle.SetStatus(ctx, recordingID, store.StatusProcessing); err != nil {
			return err
		}
	}
	_, err = w.lifecycle.SetStatus(ctx, recordingID, store.StatusFailed)
	return err
}
