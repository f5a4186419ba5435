package recordings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"meetscribe/internal/blobstore"
	"meetscribe/internal/config"
	"meetscribe/internal/fileutil"
	"meetscribe/internal/ids"
	"meetscribe/internal/logging"
	"meetscribe/internal/services"
	"meetscribe/internal/store"
	"meetscribe/internal/transfer"
	"meetscribe/internal/uploadqueue"
)

// ProcessingQueue receives recordings whose bytes are fully stored.
type ProcessingQueue interface {
	Enqueue(ctx context.Context, recordingID string) error
}

// UploadOptions describes a local media file to register and upload.
type UploadOptions struct {
	// Path is the local file to upload.
	Path            string
	OwnerID         string
	Title           string
	Description     string
	MeetingPlatform string
	MeetingID       string
	// ContentType skips detection when set.
	ContentType string
	// AllowDuplicate uploads the file even when the owner already has a
	// live recording with the same content.
	AllowDuplicate bool

	OnProgress transfer.ProgressFunc
	OnComplete func(*store.Recording)
	OnError    func(error)
}

// Service is the upward recording API.
type Service struct {
	cfg        *config.Config
	lifecycle  *Lifecycle
	blobs      blobstore.Store
	engine     *transfer.Engine
	uploads    *uploadqueue.Queue
	processing ProcessingQueue
	ids        ids.Generator
	now        func() time.Time
	logger     *slog.Logger
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithClock overrides the time source used for file paths and temp cleanup.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides the generator used for file paths.
func WithIDGenerator(gen ids.Generator) ServiceOption {
	return func(s *Service) {
		if gen != nil {
			s.ids = gen
		}
	}
}

// NewService wires the recording service. The upload queue must be started
// by the caller.
func NewService(cfg *config.Config, lifecycle *Lifecycle, blobs blobstore.Store, engine *transfer.Engine, uploads *uploadqueue.Queue, processing ProcessingQueue, logger *slog.Logger, opts ...ServiceOption) *Service {
	svc := &Service{
		cfg:        cfg,
		lifecycle:  lifecycle,
		blobs:      blobs,
		engine:     engine,
		uploads:    uploads,
		processing: processing,
		ids:        ids.UUIDGenerator{},
		now:        time.Now,
		logger:     logging.NewComponentLogger(logger, "recordings"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Lifecycle exposes the underlying lifecycle store.
func (s *Service) Lifecycle() *Lifecycle {
	return s.lifecycle
}

// UploadRecording validates the file, inserts a pending recording, and
// queues the transfer. It returns the pending row immediately; outcome is
// reported through the OnComplete and OnError callbacks.
func (s *Service) UploadRecording(ctx context.Context, opts UploadOptions) (*store.Recording, error) {
	rec, err := s.register(ctx, opts)
	if err != nil {
		if opts.OnError != nil {
			opts.OnError(err)
		}
		return nil, err
	}
	return rec, nil
}

func (s *Service) register(ctx context.Context, opts UploadOptions) (*store.Recording, error) {
	ctx = services.WithOperation(ctx, "upload")
	logger := logging.WithContext(ctx, s.logger)

	info, err := os.Stat(opts.Path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "recordings", "upload", "read local file", err)
	}
	if info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, "recordings", "upload", fmt.Sprintf("%s is a directory", opts.Path), nil)
	}
	if strings.TrimSpace(opts.OwnerID) == "" {
		return nil, services.Wrap(services.ErrValidation, "recordings", "upload", "owner id is required", nil)
	}

	mimeType := baseMediaType(opts.ContentType)
	if mimeType == "" {
		if mimeType, err = DetectMimeType(opts.Path); err != nil {
			return nil, services.Wrap(services.ErrValidation, "recordings", "upload", "detect media type", err)
		}
	}
	if err := ValidateUpload(info.Size(), s.cfg.MaxUploadSize(), mimeType, s.cfg.Upload.AllowedTypes); err != nil {
		logging.WarnWithContext(logger, "upload rejected", "upload_rejected",
			logging.String("file", opts.Path),
			logging.Int64("file_size", info.Size()),
			logging.String("mime_type", mimeType),
			logging.Error(err),
			logging.String(logging.FieldImpact, "recording not created"),
		)
		return nil, err
	}

	hash, err := fileutil.HashFile(opts.Path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "recordings", "upload", "hash local file", err)
	}
	if !opts.AllowDuplicate {
		if err := s.checkDuplicate(ctx, logger, opts.OwnerID, hash); err != nil {
			return nil, err
		}
	}

	fileName := filepath.Base(opts.Path)
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = DefaultTitle(fileName)
	}

	rec, err := s.lifecycle.Create(ctx, NewRecording{
		OwnerID:         opts.OwnerID,
		Title:           title,
		Description:     opts.Description,
		FilePath:        ids.FilePath(s.ids, opts.OwnerID, fileName, s.now()),
		FileSize:        info.Size(),
		MimeType:        mimeType,
		MeetingPlatform: opts.MeetingPlatform,
		MeetingID:       opts.MeetingID,
		ContentHash:     hash,
	})
	if err != nil {
		return nil, err
	}

	task := &uploadTask{svc: s, rec: rec, localPath: opts.Path, opts: opts}
	if err := s.uploads.Enqueue(task); err != nil {
		if _, delErr := s.lifecycle.store.DeleteRecording(context.WithoutCancel(ctx), rec.ID); delErr != nil {
			logging.WarnWithContext(logger, "failed to remove unqueued recording", "upload_rollback_failed",
				logging.RecordingID(rec.ID),
				logging.Error(delErr),
				logging.String(logging.FieldImpact, "a pending recording row remains without an upload"),
			)
		}
		return nil, services.Wrap(services.ErrTransient, "recordings", "upload", "queue upload", err)
	}
	return rec, nil
}

// checkDuplicate rejects content the owner already uploaded. A failed earlier
// or deleted recording does not count, so a broken upload can be retried.
func (s *Service) checkDuplicate(ctx context.Context, logger *slog.Logger, ownerID, hash string) error {
	existing, err := s.lifecycle.FindByHash(ctx, ownerID, hash)
	switch {
	case errors.Is(err, services.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.Status == store.StatusFailed, existing.Status == store.StatusDeleted:
		return nil
	}
	logging.WarnWithContext(logger, "duplicate upload rejected", "upload_duplicate",
		logging.RecordingID(existing.ID),
		logging.String("content_hash", hash),
		logging.String(logging.FieldImpact, "recording not created"),
	)
	return services.Wrap(services.ErrValidation, "recordings", "upload",
		fmt.Sprintf("owner %s already uploaded this file as recording %s", ownerID, existing.ID), ErrDuplicate)
}

// GetRecording fetches a recording by id.
func (s *Service) GetRecording(ctx context.Context, id string) (*store.Recording, error) {
	return s.lifecycle.Get(ctx, id)
}

// ListRecordings lists an owner's recordings newest first.
func (s *Service) ListRecordings(ctx context.Context, ownerID string, limit, offset int) ([]*store.Recording, error) {
	return s.lifecycle.List(ctx, ownerID, limit, offset)
}

// DeleteRecording removes a recording and its derived data.
func (s *Service) DeleteRecording(ctx context.Context, id string) (bool, error) {
	return s.lifecycle.Delete(ctx, id)
}

// RecordingURL returns a time-limited URL for a recording's media. A
// non-positive ttl uses the configured default.
func (s *Service) RecordingURL(ctx context.Context, id string, ttl time.Duration) (string, error) {
	rec, err := s.lifecycle.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if ttl <= 0 {
		ttl = s.cfg.SignedURLTTL()
	}
	url, err := s.blobs.SignedURL(s.cfg.Storage.RecordingsBucket, rec.FilePath, ttl)
	if err != nil {
		marker := services.ErrPersistence
		if errors.Is(err, blobstore.ErrSigningDisabled) {
			marker = services.ErrConfiguration
		}
		return "", services.Wrap(marker, "recordings", "signed url", id, err)
	}
	return url, nil
}

// PublicURL returns the unauthenticated URL for a recording's media.
func (s *Service) PublicURL(ctx context.Context, id string) (string, error) {
	rec, err := s.lifecycle.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return s.blobs.PublicURL(s.cfg.Storage.RecordingsBucket, rec.FilePath), nil
}

// CleanupTemporary deletes temp-bucket objects older than the configured
// retention and returns how many were removed. Failures are logged, never
// returned.
func (s *Service) CleanupTemporary(ctx context.Context) int {
	bucket := s.cfg.Storage.TempBucket
	threshold := s.now().Add(-s.cfg.TempRetention())
	entries, err := s.blobs.List(ctx, bucket, "")
	if err != nil {
		logging.WarnWithContext(s.logger, "temporary file listing failed", "temp_cleanup_failed",
			logging.String("bucket", bucket),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale temporary files remain"),
		)
		return 0
	}
	stale := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.UpdatedAt.Before(threshold) {
			stale = append(stale, entry.Path)
		}
	}
	if len(stale) == 0 {
		return 0
	}
	if err := s.blobs.Delete(ctx, bucket, stale...); err != nil {
		logging.WarnWithContext(s.logger, "temporary file cleanup failed", "temp_cleanup_failed",
			logging.String("bucket", bucket),
			logging.Int("candidates", len(stale)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale temporary files remain"),
		)
		return 0
	}
	s.logger.Info("temporary files cleaned up",
		logging.String("bucket", bucket),
		logging.Int("removed", len(stale)),
		logging.Duration("older_than", s.cfg.TempRetention()),
	)
	return len(stale)
}
