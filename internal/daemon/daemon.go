package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"meetscribe/internal/config"
	"meetscribe/internal/logging"
	"meetscribe/internal/preflight"
	"meetscribe/internal/processing"
	"meetscribe/internal/services"
	"meetscribe/internal/store"
)

// Cleaner prunes stale temporary objects.
type Cleaner interface {
	CleanupTemporary(ctx context.Context) int
}

// Dispatcher is the transcription loop driven by the daemon.
type Dispatcher interface {
	Run(ctx context.Context) error
	Inflight() int
}

// Daemon runs the transcription dispatcher and enforces single-instance execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *store.Store
	queue      *processing.Queue
	dispatcher Dispatcher

	cleaner         Cleaner
	cleanupInterval time.Duration
	skipPreflight   bool

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option customizes a Daemon.
type Option func(*Daemon)

// WithCleaner prunes the temp bucket every interval while running.
func WithCleaner(c Cleaner, interval time.Duration) Option {
	return func(d *Daemon) {
		d.cleaner = c
		if interval > 0 {
			d.cleanupInterval = interval
		}
	}
}

// WithoutPreflight skips the startup checks.
func WithoutPreflight() Option {
	return func(d *Daemon) {
		d.skipPreflight = true
	}
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Inflight     int
	Queue        map[store.Status]int
	DatabasePath string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, queue *processing.Queue, dispatcher Dispatcher, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || st == nil || queue == nil || dispatcher == nil {
		return nil, errors.New("daemon requires config, store, queue, and dispatcher")
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:             cfg,
		logger:          logging.NewComponentLogger(logger, "daemon"),
		store:           st,
		queue:           queue,
		dispatcher:      dispatcher,
		cleanupInterval: time.Hour,
		lockPath:        lockPath,
		lock:            flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Start runs preflight, acquires the lock, and launches background work.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if !d.skipPreflight {
		if failed := preflight.Failed(preflight.RunAll(ctx, d.cfg)); len(failed) > 0 {
			return services.Wrap(services.ErrConfiguration, "daemon", "preflight", preflight.Summary(failed), nil)
		}
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another meetscribe worker instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running.Store(true)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.dispatcher.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logging.ErrorWithContext(d.logger, "dispatcher exited", "dispatcher_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "pending recordings will not be transcribed"),
			)
		}
	}()
	if d.cleaner != nil {
		d.wg.Add(1)
		go d.runCleanup(runCtx)
	}

	d.logger.Info("meetscribe worker started", logging.String("lock", d.lockPath))
	return nil
}

func (d *Daemon) runCleanup(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(d.cleanupInterval)
	defer ticker.Stop()
	for {
		d.cleaner.CleanupTemporary(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stop stops background processing and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release worker lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("meetscribe worker stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status returns the current daemon status. Queue counts are omitted when the
// database cannot be read.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		Inflight:     d.dispatcher.Inflight(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
	}
	if stats, err := d.queue.Stats(ctx); err == nil {
		status.Queue = stats
	} else {
		d.logger.Warn("queue stats unavailable", logging.Error(err))
	}
	return status
}
