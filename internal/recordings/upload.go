package recordings

import (
	"context"
	"fmt"

	"meetscribe/internal/logging"
	"meetscribe/internal/services"
	"meetscribe/internal/store"
	"meetscribe/internal/transfer"
)

// uploadTask moves one registered recording's bytes into the blob store.
type uploadTask struct {
	svc       *Service
	rec       *store.Recording
	localPath string
	opts      UploadOptions
}

func (t *uploadTask) Describe() string {
	return fmt.Sprintf("upload %s (%s)", t.rec.ID, t.rec.Title)
}

// Run marks the recording processing, transfers the file, and hands the
// recording to the processing queue. The recording stays in processing until
// the transcription worker finishes it. Any failure marks it failed.
func (t *uploadTask) Run(ctx context.Context) error {
	ctx = services.WithOperation(services.WithRecordingID(ctx, t.rec.ID), "upload")
	if err := t.run(ctx); err != nil {
		t.fail(ctx, err)
		return err
	}
	return nil
}

func (t *uploadTask) run(ctx context.Context) error {
	svc := t.svc
	logger := logging.WithContext(ctx, svc.logger)

	if _, err := svc.lifecycle.SetStatus(ctx, t.rec.ID, store.StatusProcessing); err != nil {
		return err
	}

	src, err := transfer.OpenFile(t.localPath, t.rec.MimeType)
	if err != nil {
		return services.Wrap(services.ErrTransfer, "recordings", "upload", "open local file", err)
	}
	defer src.Close()
	if src.Size() != t.rec.FileSize {
		return services.Wrap(services.ErrTransfer, "recordings", "upload",
			fmt.Sprintf("local file changed size since registration (%d -> %d bytes)", t.rec.FileSize, src.Size()), nil)
	}

	sampler := logging.NewProgressSampler(25)
	onProgress := func(p transfer.Progress) {
		if sampler.Allow(p.Progress) {
			logger.Info("upload progress", logging.Args(logging.Transfer(p.Progress, p.Loaded, p.Total, p.Speed)...)...)
		}
		if t.opts.OnProgress != nil {
			t.opts.OnProgress(p)
		}
	}
	if err := svc.engine.Upload(ctx, svc.cfg.Storage.RecordingsBucket, t.rec.FilePath, src, onProgress); err != nil {
		return err
	}

	if err := svc.processing.Enqueue(ctx, t.rec.ID); err != nil {
		return err
	}

	rec, err := svc.lifecycle.Get(ctx, t.rec.ID)
	if err != nil {
		return err
	}
	logger.Info("recording uploaded",
		logging.String("file_path", rec.FilePath),
		logging.Int64("file_size", rec.FileSize),
	)
	if t.opts.OnComplete != nil {
		t.opts.OnComplete(rec)
	}
	return nil
}

func (t *uploadTask) fail(ctx context.Context, cause error) {
	logger := logging.WithContext(ctx, t.svc.logger)
	// Bookkeeping must land even when ctx was cancelled mid-transfer.
	if _, err := t.svc.lifecycle.SetStatus(context.WithoutCancel(ctx), t.rec.ID, store.StatusFailed); err != nil {
		logging.WarnWithContext(logger, "failed to mark recording failed", "recording_status_update_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "recording status may not reflect the failed upload"),
		)
	}
	logging.ErrorWithContext(logger, "recording upload failed", "upload_failed",
		logging.Error(cause),
		logging.String(logging.FieldErrorKind, services.Kind(cause)),
	)
	if t.opts.OnError != nil {
		t.opts.OnError(cause)
	}
}
