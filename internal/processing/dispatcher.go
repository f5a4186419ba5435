package processing

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gammazero/workerpool"

	"meetscribe/internal/config"
	"meetscribe/internal/logging"
	"meetscribe/internal/services"
)

// Processor runs transcription for one recording.
type Processor interface {
	Process(ctx context.Context, recordingID string) error
}

// Dispatcher polls the queue and hands pending recordings to a bounded pool.
type Dispatcher struct {
	queue        *Queue
	processor    Processor
	workers      int
	pollInterval time.Duration
	errorRetry   time.Duration
	logger       *slog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewDispatcher sizes the pool from transcription.workers and polls at
// workflow.poll_interval_seconds.
func NewDispatcher(cfg *config.Config, queue *Queue, processor Processor, logger *slog.Logger) *Dispatcher {
	workers := cfg.Transcription.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{
		queue:        queue,
		processor:    processor,
		workers:      workers,
		pollInterval: cfg.PollInterval(),
		errorRetry:   cfg.ErrorRetryInterval(),
		logger:       logging.NewComponentLogger(logger, "dispatcher"),
		inflight:     make(map[string]struct{}),
	}
}

// Run dispatches until ctx is cancelled, then waits for running work.
func (d *Dispatcher) Run(ctx context.Context) error {
	pool := workerpool.New(d.workers)
	defer pool.StopWait()

	d.logger.Info("dispatcher started",
		logging.Int("workers", d.workers),
		logging.Duration("poll_interval", d.pollInterval),
	)
	for {
		wait := d.pollInterval
		if _, err := d.dispatch(ctx, pool, nil); err != nil {
			if ctx.Err() != nil {
				break
			}
			d.logger.Error("failed to fetch pending recordings",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_fetch_failed"),
				logging.String(logging.FieldImpact, "transcriptions delayed until the next poll"),
			)
			wait = d.errorRetry
		}
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopping", logging.Int("queued", pool.WaitingQueueSize()))
			return nil
		case <-time.After(wait):
		}
	}
	return nil
}

// RunOnce processes every currently pending recording and waits for them.
// It returns how many were dispatched.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	pool := workerpool.New(d.workers)
	var wg sync.WaitGroup
	n, err := d.dispatch(ctx, pool, &wg)
	wg.Wait()
	pool.StopWait()
	return n, err
}

func (d *Dispatcher) dispatch(ctx context.Context, pool *workerpool.WorkerPool, wg *sync.WaitGroup) (int, error) {
	items, err := d.queue.Pending(ctx, 0)
	if err != nil {
		return 0, err
	}
	submitted := 0
	for _, item := range items {
		recordingID := item.RecordingID
		if !d.claim(recordingID) {
			continue
		}
		if wg != nil {
			wg.Add(1)
		}
		submitted++
		pool.Submit(func() {
			if wg != nil {
				defer wg.Done()
			}
			defer d.release(recordingID)
			if ctx.Err() != nil {
				return
			}
			if err := d.processor.Process(ctx, recordingID); err != nil && !errors.Is(err, context.Canceled) {
				logging.WithContext(services.WithRecordingID(ctx, recordingID), d.logger).Debug("dispatch finished with error",
					logging.Error(err),
					logging.String(logging.FieldErrorKind, services.Kind(err)),
				)
			}
		})
	}
	return submitted, nil
}

func (d *Dispatcher) claim(recordingID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, busy := d.inflight[recordingID]; busy {
		return false
	}
	d.inflight[recordingID] = struct{}{}
	return true
}

func (d *Dispatcher) release(recordingID string) {
	d.mu.Lock()
	delete(d.inflight, recordingID)
	d.mu.Unlock()
}

// Inflight reports how many recordings are being processed.
func (d *Dispatcher) Inflight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.inflight)
}
