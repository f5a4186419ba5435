package processing_test

import (
	"context"
	"sync"
	"testing"

	"meetscribe/internal/config"
	"meetscribe/internal/logging"
	"meetscribe/internal/processing"
	"meetscribe/internal/recordings"
	"meetscribe/internal/store"
	"meetscribe/internal/testsupport"
	"meetscribe/internal/transcription"
	"meetscribe/internal/transcripts"
)

// scriptedBackend returns text, or err when set, and remembers who asked.
type scriptedBackend struct {
	mu    sync.Mutex
	text  string
	err   error
	calls []string
}

func (b *scriptedBackend) Transcribe(_ context.Context, rec *store.Recording) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, rec.ID)
	if b.err != nil {
		return "", b.err
	}
	return b.text, nil
}

func (b *scriptedBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

type harness struct {
	cfg         *config.Config
	store       *store.Store
	transcripts *transcripts.Service
	lifecycle   *recordings.Lifecycle
	queue       *processing.Queue
	worker      *processing.Worker
}

func newHarness(t *testing.T, backend transcription.Backend) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	blobs := testsupport.MustOpenBlobStore(t, cfg)
	logger := logging.NewNop()

	tr := transcripts.NewService(cfg, st, blobs, logger)
	lifecycle := recordings.NewLifecycle(cfg, st, blobs, tr, logger)
	queue := processing.NewQueue(st, logger)
	if backend == nil {
		backend = transcription.NewStubBackend(0)
	}
	return &harness{
		cfg:         cfg,
		store:       st,
		transcripts: tr,
		lifecycle:   lifecycle,
		queue:       queue,
		worker:      processing.NewWorker(cfg, queue, lifecycle, tr, backend, logger),
	}
}

// queued inserts a recording and its pending queue item.
func (h *harness) queued(t *testing.T, title string) *store.Recording {
	t.Helper()
	rec := testsupport.NewRecording(t, h.store, title)
	if err := h.queue.Enqueue(context.Background(), rec.ID); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	return rec
}

func (h *harness) latest(t *testing.T, recordingID string) *store.QueueItem {
	t.Helper()
	item, err := h.queue.Latest(context.Background(), recordingID)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	return item
}

func (h *harness) recording(t *testing.T, id string) *store.Recording {
	t.Helper()
	rec, err := h.lifecycle.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get recording: %v", err)
	}
	return rec
}
