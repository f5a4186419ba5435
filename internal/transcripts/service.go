package transcripts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"meetscribe/internal/blobstore"
	"meetscribe/internal/config"
	"meetscribe/internal/ids"
	"meetscribe/internal/language"
	"meetscribe/internal/logging"
	"meetscribe/internal/services"
	"meetscribe/internal/store"
)

const defaultLanguage = "en"

// Options carries optional transcript attributes.
type Options struct {
	Language string
}

// Update lists transcript fields to change; nil fields are left alone.
type Update struct {
	Content  *string
	Language *string
	Status   *store.Status
}

// Service creates, reads, and removes transcripts.
type Service struct {
	store    *store.Store
	blobs    blobstore.Store
	bucket   string
	language string
	ids      ids.Generator
	logger   *slog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithIDGenerator overrides transcript id generation.
func WithIDGenerator(gen ids.Generator) Option {
	return func(s *Service) {
		if gen != nil {
			s.ids = gen
		}
	}
}

// NewService wires a transcript service against the configured transcripts bucket.
func NewService(cfg *config.Config, st *store.Store, blobs blobstore.Store, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		store:    st,
		blobs:    blobs,
		bucket:   cfg.Storage.TranscriptsBucket,
		language: language.Normalize(cfg.Transcription.Language),
		ids:      ids.UUIDGenerator{},
		logger:   logging.NewComponentLogger(logger, "transcripts"),
	}
	if svc.language == "" {
		svc.language = defaultLanguage
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// BlobPath returns the content object path for a transcript id.
func BlobPath(transcriptID string) string {
	return "transcript_" + transcriptID + ".json"
}

// CountWords returns the number of whitespace-separated tokens in text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// Create inserts a completed transcript row and writes its content blob.
func (s *Service) Create(ctx context.Context, recordingID, content string, opts Options) (*store.Transcript, error) {
	logger := logging.WithContext(services.WithRecordingID(ctx, recordingID), s.logger)
	lang := language.Normalize(opts.Language)
	if lang == "" {
		lang = s.language
	}
	tr := &store.Transcript{
		ID:          s.ids.NewID(),
		RecordingID: recordingID,
		Content:     content,
		Language:    lang,
		WordCount:   CountWords(content),
		Status:      store.StatusCompleted,
	}
	if err := s.store.InsertTranscript(ctx, tr); err != nil {
		err = services.Wrap(services.ErrPersistence, "transcripts", "create", "insert transcript row", err)
		logger.Error("transcript insert failed", logging.Error(err))
		return nil, err
	}
	if err := s.writeContent(ctx, tr.ID, content); err != nil {
		logger.Error("transcript content write failed",
			logging.String("transcript_id", tr.ID),
			logging.Error(err),
		)
		return nil, err
	}
	logger.Info("transcript created",
		logging.String("transcript_id", tr.ID),
		logging.Int("word_count", tr.WordCount),
		logging.String("language", tr.Language),
	)
	return tr, nil
}

// Get returns the transcript row and its full content. The content comes from
// the blob; if the blob is missing the row's mirrored text is used instead.
func (s *Service) Get(ctx context.Context, id string) (*store.Transcript, string, error) {
	tr, err := s.store.GetTranscript(ctx, id)
	if err != nil {
		return nil, "", s.storeError("get", id, err)
	}
	data, err := s.blobs.Download(ctx, s.bucket, BlobPath(id))
	switch {
	case err == nil:
		return tr, string(data), nil
	case errors.Is(err, blobstore.ErrObjectNotFound):
		logging.WarnWithContext(s.logger, "transcript content blob missing; using stored text", "transcript_blob_missing",
			logging.String("transcript_id", id),
			logging.RecordingID(tr.RecordingID),
			logging.String(logging.FieldImpact, "content served from database mirror"),
		)
		return tr, tr.Content, nil
	default:
		err = services.Wrap(services.ErrPersistence, "transcripts", "get", "read content blob", err)
		s.logger.Error("transcript content read failed", logging.String("transcript_id", id), logging.Error(err))
		return nil, "", err
	}
}

// ListForRecording returns a recording's transcripts, newest first.
func (s *Service) ListForRecording(ctx context.Context, recordingID string) ([]*store.Transcript, error) {
	list, err := s.store.ListTranscripts(ctx, recordingID)
	if err != nil {
		err = services.Wrap(services.ErrPersistence, "transcripts", "list", recordingID, err)
		s.logger.Error("transcript list failed", logging.RecordingID(recordingID), logging.Error(err))
		return nil, err
	}
	return list, nil
}

// Update applies upd. A content change rewrites the blob and recomputes the
// word count.
func (s *Service) Update(ctx context.Context, id string, upd Update) (*store.Transcript, error) {
	patch := store.TranscriptPatch{Language: upd.Language, Status: upd.Status}
	if upd.Language != nil {
		lang := language.Normalize(*upd.Language)
		if lang == "" {
			return nil, services.Wrap(services.ErrValidation, "transcripts", "update", fmt.Sprintf("unrecognized language %q", *upd.Language), nil)
		}
		patch.Language = &lang
	}
	if upd.Content != nil {
		words := CountWords(*upd.Content)
		patch.Content = upd.Content
		patch.WordCount = &words
	}
	tr, err := s.store.UpdateTranscript(ctx, id, patch)
	if err != nil {
		return nil, s.storeError("update", id, err)
	}
	if upd.Content != nil {
		if err := s.writeContent(ctx, id, *upd.Content); err != nil {
			s.logger.Error("transcript content rewrite failed", logging.String("transcript_id", id), logging.Error(err))
			return nil, err
		}
	}
	return tr, nil
}

// Delete removes the content blob (a missing blob is fine) and the row.
// It returns false when no row existed.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	if err := s.blobs.Delete(ctx, s.bucket, BlobPath(id)); err != nil {
		err = services.Wrap(services.ErrPersistence, "transcripts", "delete", "remove content blob", err)
		s.logger.Error("transcript blob delete failed", logging.String("transcript_id", id), logging.Error(err))
		return false, err
	}
	deleted, err := s.store.DeleteTranscript(ctx, id)
	if err != nil {
		err = services.Wrap(services.ErrPersistence, "transcripts", "delete", "remove row", err)
		s.logger.Error("transcript delete failed", logging.String("transcript_id", id), logging.Error(err))
		return false, err
	}
	if deleted {
		s.logger.Info("transcript deleted", logging.String("transcript_id", id))
	}
	return deleted, nil
}

func (s *Service) writeContent(ctx context.Context, id, content string) error {
	_, err := s.blobs.Upload(ctx, s.bucket, BlobPath(id), bytes.NewReader([]byte(content)), blobstore.UploadOptions{
		ContentType: "application/json",
		Upsert:      true,
	})
	if err != nil {
		return services.Wrap(services.ErrPersistence, "transcripts", "write", "store content blob", err)
	}
	return nil
}

func (s *Service) storeError(operation, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return services.Wrap(services.ErrNotFound, "transcripts", operation, fmt.Sprintf("transcript %s", id), err)
	}
	err = services.Wrap(services.ErrPersistence, "transcripts", operation, id, err)
	s.logger.Error("transcript store operation failed",
		logging.String("transcript_id", id),
		logging.String(logging.FieldOperation, operation),
		logging.Error(err),
	)
	return err
}
