package transfer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"meetscribe/internal/blobstore"
	"meetscribe/internal/config"
	"meetscribe/internal/logging"
	"meetscribe/internal/services"
)

// Defaults mirror config.Default().Upload.
const (
	DefaultChunkSize  int64 = 5 << 20
	DefaultMaxRetries       = 3
	DefaultRetryDelay       = 2 * time.Second
)

// Progress is the telemetry emitted after each stored chunk.
type Progress struct {
	Loaded        int64
	Total         int64
	Progress      float64 // percent, 0..100
	Speed         float64 // bytes per second since the previous report
	TimeRemaining float64 // seconds; 0 when speed is unknown
}

// ProgressFunc receives progress reports. It runs on the transfer goroutine.
type ProgressFunc func(Progress)

// Blobs is the subset of blobstore.Store the engine writes through.
type Blobs interface {
	Upload(ctx context.Context, bucket, path string, r io.Reader, opts blobstore.UploadOptions) (string, error)
	Delete(ctx context.Context, bucket string, paths ...string) error
	Compose(ctx context.Context, bucket, dst string, parts []string) error
}

// Options tunes chunking and retry behaviour.
type Options struct {
	ChunkSize  int64
	MaxRetries int
	RetryDelay time.Duration
	// ChunkTimeout bounds each chunk attempt; zero leaves attempts unbounded.
	ChunkTimeout time.Duration
}

// OptionsFromConfig reads the [upload] section.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return Options{}
	}
	return Options{
		ChunkSize:    cfg.ChunkSize(),
		MaxRetries:   cfg.Upload.MaxRetries,
		RetryDelay:   cfg.RetryDelay(),
		ChunkTimeout: cfg.ChunkTimeout(),
	}
}

func (o Options) normalized() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.RetryDelay < 0 {
		o.RetryDelay = 0
	}
	return o
}

// Engine performs chunked uploads.
type Engine struct {
	blobs  Blobs
	opts   Options
	logger *slog.Logger
	now    func() time.Time
	sleep  func(context.Context, time.Duration) error
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithClock overrides the time source used for speed and duration figures.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithSleeper overrides how retry backoff waits.
func WithSleeper(sleep func(context.Context, time.Duration) error) EngineOption {
	return func(e *Engine) {
		if sleep != nil {
			e.sleep = sleep
		}
	}
}

// NewEngine constructs an Engine writing through blobs.
func NewEngine(blobs Blobs, opts Options, logger *slog.Logger, extra ...EngineOption) *Engine {
	e := &Engine{
		blobs:  blobs,
		opts:   opts.normalized(),
		logger: logging.NewComponentLogger(logger, "transfer"),
		now:    time.Now,
		sleep:  sleepContext,
	}
	for _, opt := range extra {
		opt(e)
	}
	return e
}

// ChunkSize reports the effective chunk size.
func (e *Engine) ChunkSize() int64 {
	return e.opts.ChunkSize
}

// ChunkCount returns how many chunk uploads a file of size bytes needs.
func (e *Engine) ChunkCount(size int64) int {
	if size <= e.opts.ChunkSize {
		return 1
	}
	return int((size + e.opts.ChunkSize - 1) / e.opts.ChunkSize)
}

// Upload stores src at bucket/path, reporting progress through onProgress (may be nil).
func (e *Engine) Upload(ctx context.Context, bucket, path string, src Source, onProgress ProgressFunc) error {
	if src == nil {
		return services.Wrap(services.ErrValidation, "transfer", "upload", "source is nil", nil)
	}
	if onProgress == nil {
		onProgress = func(Progress) {}
	}
	logger := logging.WithContext(ctx, e.logger).With(
		logging.String("bucket", bucket),
		logging.String("path", path),
	)
	total := src.Size()
	started := e.now()

	if total <= e.opts.ChunkSize {
		if err := e.uploadSingle(ctx, bucket, path, src); err != nil {
			logger.Error("upload failed", logging.Int64("bytes", total), logging.Error(err))
			return err
		}
		onProgress(Progress{Loaded: total, Total: total, Progress: 100})
		logger.Info("upload complete",
			logging.Int("chunks", 1),
			logging.Int64("bytes", total),
			logging.Duration("duration", e.now().Sub(started)),
		)
		return nil
	}

	count := e.ChunkCount(total)
	parts := make([]string, 0, count)
	var (
		loaded     int64
		lastLoaded int64
		lastReport = started
	)
	for index := 0; index < count; index++ {
		offset := int64(index) * e.opts.ChunkSize
		length := min(e.opts.ChunkSize, total-offset)
		part := partPath(path, index)

		if err := e.uploadChunk(ctx, logger, bucket, part, src, index, offset, length); err != nil {
			logger.Error("upload aborted",
				logging.Int("chunk", index),
				logging.Int("chunks", count),
				logging.Error(err),
			)
			e.discardParts(ctx, logger, bucket, parts)
			return err
		}
		parts = append(parts, part)
		loaded += length

		now := e.now()
		progress := Progress{Loaded: loaded, Total: total, Progress: float64(loaded) * 100 / float64(total)}
		if elapsed := now.Sub(lastReport).Seconds(); elapsed > 0 {
			progress.Speed = float64(loaded-lastLoaded) / elapsed
		}
		if progress.Speed > 0 {
			progress.TimeRemaining = float64(total-loaded) / progress.Speed
		}
		lastReport, lastLoaded = now, loaded
		onProgress(progress)
	}

	if err := e.blobs.Compose(ctx, bucket, path, parts); err != nil {
		e.discardParts(ctx, logger, bucket, parts)
		err = services.Wrap(services.ErrTransfer, "transfer", "compose", fmt.Sprintf("%d parts into %s", len(parts), path), err)
		logger.Error("upload compose failed", logging.Error(err))
		return err
	}

	logger.Info("upload complete",
		logging.Int("chunks", count),
		logging.Int64("bytes", total),
		logging.Duration("duration", e.now().Sub(started)),
	)
	return nil
}

func (e *Engine) uploadSingle(ctx context.Context, bucket, path string, src Source) error {
	reader := io.NewSectionReader(src, 0, src.Size())
	_, err := e.blobs.Upload(ctx, bucket, path, reader, blobstore.UploadOptions{ContentType: src.ContentType()})
	if err != nil {
		return &TransferError{ChunkIndex: 0, Attempts: 1, Cause: err}
	}
	return nil
}

func (e *Engine) uploadChunk(ctx context.Context, logger *slog.Logger, bucket, part string, src Source, index int, offset, length int64) error {
	var lastErr error
	for attempt := 1; attempt <= e.opts.MaxRetries; attempt++ {
		lastErr = e.attemptChunk(ctx, bucket, part, io.NewSectionReader(src, offset, length))
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return &TransferError{ChunkIndex: index, Attempts: attempt, Cause: ctx.Err()}
		}
		if attempt == e.opts.MaxRetries {
			break
		}
		delay := e.opts.RetryDelay * time.Duration(attempt)
		logging.WarnWithContext(logger, "chunk upload failed; retrying", "chunk_retry",
			logging.Int("chunk", index),
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", e.opts.MaxRetries),
			logging.Duration("retry_in", delay),
			logging.Error(lastErr),
			logging.String(logging.FieldImpact, "transfer paused until retry"),
		)
		if err := e.sleep(ctx, delay); err != nil {
			return &TransferError{ChunkIndex: index, Attempts: attempt, Cause: err}
		}
	}
	return &TransferError{ChunkIndex: index, Attempts: e.opts.MaxRetries, Cause: lastErr}
}

func (e *Engine) attemptChunk(ctx context.Context, bucket, part string, r io.Reader) error {
	if e.opts.ChunkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.ChunkTimeout)
		defer cancel()
	}
	_, err := e.blobs.Upload(ctx, bucket, part, r, blobstore.UploadOptions{
		ContentType: "application/octet-stream",
		Upsert:      true,
	})
	return err
}

// discardParts removes already-stored chunks after an aborted transfer.
func (e *Engine) discardParts(ctx context.Context, logger *slog.Logger, bucket string, parts []string) {
	if len(parts) == 0 {
		return
	}
	if err := e.blobs.Delete(context.WithoutCancel(ctx), bucket, parts...); err != nil {
		logging.WarnWithContext(logger, "failed to remove partial chunks", "chunk_cleanup_failed",
			logging.Int("parts", len(parts)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "orphaned part objects remain in the bucket"),
		)
	}
}

func partPath(path string, index int) string {
	return fmt.Sprintf("%s.part%d", path, index)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
