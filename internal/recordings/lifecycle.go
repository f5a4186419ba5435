package recordings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"meetscribe/internal/blobstore"
	"meetscribe/internal/config"
	"meetscribe/internal/ids"
	"meetscribe/internal/logging"
	"meetscribe/internal/services"
	"meetscribe/internal/store"
	"meetscribe/internal/transcripts"
)

// NewRecording holds the caller-supplied fields of a recording row.
type NewRecording struct {
	OwnerID         string
	Title           string
	Description     string
	FilePath        string
	FileSize        int64
	MimeType        string
	MeetingPlatform string
	MeetingID       string
	Duration        float64
	ContentHash     string
}

// Lifecycle persists recordings and guards their status transitions.
type Lifecycle struct {
	store       *store.Store
	blobs       blobstore.Store
	transcripts *transcripts.Service
	bucket      string
	ids         ids.Generator
	logger      *slog.Logger
}

// NewLifecycle wires the recording store. transcripts is used by Delete.
func NewLifecycle(cfg *config.Config, st *store.Store, blobs blobstore.Store, tr *transcripts.Service, logger *slog.Logger) *Lifecycle {
	return &Lifecycle{
		store:       st,
		blobs:       blobs,
		transcripts: tr,
		bucket:      cfg.Storage.RecordingsBucket,
		ids:         ids.UUIDGenerator{},
		logger:      logging.NewComponentLogger(logger, "recordings"),
	}
}

// Create inserts a pending recording.
func (l *Lifecycle) Create(ctx context.Context, in NewRecording) (*store.Recording, error) {
	if strings.TrimSpace(in.OwnerID) == "" {
		return nil, services.Wrap(services.ErrValidation, "recordings", "create", "owner id is required", nil)
	}
	if strings.TrimSpace(in.FilePath) == "" {
		return nil, services.Wrap(services.ErrValidation, "recordings", "create", "file path is required", nil)
	}
	rec := &store.Recording{
		ID:              l.ids.NewID(),
		OwnerID:         in.OwnerID,
		Title:           in.Title,
		Description:     in.Description,
		FilePath:        in.FilePath,
		FileSize:        in.FileSize,
		MimeType:        in.MimeType,
		MeetingPlatform: in.MeetingPlatform,
		MeetingID:       in.MeetingID,
		Duration:        in.Duration,
		Status:          store.StatusPending,
		ContentHash:     in.ContentHash,
	}
	if err := l.store.InsertRecording(ctx, rec); err != nil {
		err = services.Wrap(services.ErrPersistence, "recordings", "create", "insert recording row", err)
		l.logger.Error("recording insert failed", logging.String("owner_id", in.OwnerID), logging.Error(err))
		return nil, err
	}
	logging.WithContext(services.WithRecordingID(ctx, rec.ID), l.logger).Info("recording created",
		logging.String("owner_id", rec.OwnerID),
		logging.String("file_path", rec.FilePath),
		logging.Int64("file_size", rec.FileSize),
	)
	return rec, nil
}

// Get fetches a recording; a missing id yields services.ErrNotFound.
func (l *Lifecycle) Get(ctx context.Context, id string) (*store.Recording, error) {
	rec, err := l.store.GetRecording(ctx, id)
	if err != nil {
		return nil, l.storeError(ctx, "get", id, err)
	}
	return rec, nil
}

// FindByHash returns the owner's newest recording with the given content hash.
func (l *Lifecycle) FindByHash(ctx context.Context, ownerID, hash string) (*store.Recording, error) {
	rec, err := l.store.FindRecordingByHash(ctx, ownerID, hash)
	if errors.Is(err, store.ErrNotFound) {
		return nil, services.Wrap(services.ErrNotFound, "recordings", "find", "no recording with content hash "+hash, err)
	}
	if err != nil {
		err = services.Wrap(services.ErrPersistence, "recordings", "find", ownerID, err)
		l.logger.Error("recording hash lookup failed", logging.String("owner_id", ownerID), logging.Error(err))
		return nil, err
	}
	return rec, nil
}

// List returns an owner's recordings newest first. An empty owner lists all.
func (l *Lifecycle) List(ctx context.Context, ownerID string, limit, offset int) ([]*store.Recording, error) {
	recs, err := l.store.ListRecordings(ctx, ownerID, limit, offset)
	if err != nil {
		err = services.Wrap(services.ErrPersistence, "recordings", "list", ownerID, err)
		l.logger.Error("recording list failed", logging.String("owner_id", ownerID), logging.Error(err))
		return nil, err
	}
	return recs, nil
}

// SetStatus moves a recording to status. Same-status updates are no-ops;
// edges outside the lifecycle table fail with ErrInvalidTransition.
func (l *Lifecycle) SetStatus(ctx context.Context, id string, status store.Status) (*store.Recording, error) {
	return l.transition(ctx, id, status, store.RecordingPatch{})
}

// MarkProcessed completes a recording and flags it as transcribed.
func (l *Lifecycle) MarkProcessed(ctx context.Context, id string) (*store.Recording, error) {
	processed := true
	return l.transition(ctx, id, store.StatusCompleted, store.RecordingPatch{IsProcessed: &processed})
}

func (l *Lifecycle) transition(ctx context.Context, id string, status store.Status, patch store.RecordingPatch) (*store.Recording, error) {
	current, err := l.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(current.Status, status) {
		err := services.Wrap(services.ErrValidation, "recordings", "set status",
			fmt.Sprintf("%s -> %s", current.Status, status), ErrInvalidTransition)
		logging.WarnWithContext(logging.WithContext(services.WithRecordingID(ctx, id), l.logger),
			"recording status change rejected", "invalid_transition",
			logging.String("from", string(current.Status)),
			logging.String("to", string(status)),
			logging.String(logging.FieldImpact, "recording left unchanged"),
		)
		return nil, err
	}
	if current.Status == status && patch == (store.RecordingPatch{}) {
		return current, nil
	}
	patch.Status = &status
	updated, err := l.store.UpdateRecording(ctx, id, patch)
	if err != nil {
		return nil, l.storeError(ctx, "set status", id, err)
	}
	if current.Status != status {
		logging.WithContext(services.WithRecordingID(ctx, id), l.logger).Info("recording status changed",
			logging.String("from", string(current.Status)),
			logging.String("to", string(status)),
		)
	}
	return updated, nil
}

// Delete removes a recording and everything derived from it: the media blob
// (plus any leftover chunk parts), every transcript row and blob, the
// processing-queue rows, and finally the recording row. The steps are not
// atomic; each tolerates work already done, so a failed Delete can be
// retried. A missing recording yields services.ErrNotFound.
func (l *Lifecycle) Delete(ctx context.Context, id string) (bool, error) {
	ctx = services.WithOperation(services.WithRecordingID(ctx, id), "delete")
	logger := logging.WithContext(ctx, l.logger)

	rec, err := l.Get(ctx, id)
	if err != nil {
		return false, err
	}

	deleted := store.StatusDeleted
	if _, err := l.store.UpdateRecording(ctx, id, store.RecordingPatch{Status: &deleted}); err != nil {
		return false, l.storeError(ctx, "delete", id, err)
	}

	objects := []string{rec.FilePath}
	if parts, err := l.blobs.List(ctx, l.bucket, rec.FilePath+".part"); err == nil {
		for _, part := range parts {
			objects = append(objects, part.Path)
		}
	}
	if err := l.blobs.Delete(ctx, l.bucket, objects...); err != nil {
		return false, l.stepError(logger, "remove media blob", err)
	}

	trs, err := l.transcripts.ListForRecording(ctx, id)
	if err != nil {
		return false, err
	}
	for _, tr := range trs {
		if _, err := l.transcripts.Delete(ctx, tr.ID); err != nil {
			return false, err
		}
	}

	if _, err := l.store.DeleteQueueItems(ctx, id); err != nil {
		return false, l.stepError(logger, "remove queue items", err)
	}
	if _, err := l.store.DeleteRecording(ctx, id); err != nil {
		return false, l.stepError(logger, "remove recording row", err)
	}

	logger.Info("recording deleted",
		logging.String("file_path", rec.FilePath),
		logging.Int("transcripts", len(trs)),
	)
	return true, nil
}

func (l *Lifecycle) stepError(logger *slog.Logger, step string, err error) error {
	err = services.Wrap(services.ErrPersistence, "recordings", "delete", step, err)
	logger.Error("recording delete step failed",
		logging.String("step", step),
		logging.Error(err),
		logging.String(logging.FieldImpact, "recording partially deleted; retry delete"),
	)
	return err
}

func (l *Lifecycle) storeError(ctx context.Context, operation, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return services.Wrap(services.ErrNotFound, "recordings", operation, fmt.Sprintf("recording %s", id), err)
	}
	err = services.Wrap(services.ErrPersistence, "recordings", operation, id, err)
	logging.WithContext(services.WithRecordingID(ctx, id), l.logger).Error("recording store operation failed",
		logging.String(logging.FieldOperation, operation),
		logging.Error(err),
	)
	return err
}
