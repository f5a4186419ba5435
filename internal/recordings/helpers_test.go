package recordings_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"meetscribe/internal/blobstore"
	"meetscribe/internal/config"
	"meetscribe/internal/logging"
	"meetscribe/internal/recordings"
	"meetscribe/internal/store"
	"meetscribe/internal/testsupport"
	"meetscribe/internal/transcripts"
	"meetscribe/internal/transfer"
	"meetscribe/internal/uploadqueue"
)

type fakeProcessing struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (f *fakeProcessing) Enqueue(_ context.Context, recordingID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.ids = append(f.ids, recordingID)
	return nil
}

func (f *fakeProcessing) enqueued() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ids...)
}

// brokenBlobs fails every write so transfers exhaust their retries.
type brokenBlobs struct {
	*blobstore.LocalStore
}

func (brokenBlobs) Upload(context.Context, string, string, io.Reader, blobstore.UploadOptions) (string, error) {
	return "", errors.New("storage offline")
}

type harness struct {
	cfg         *config.Config
	store       *store.Store
	blobs       *blobstore.LocalStore
	transcripts *transcripts.Service
	lifecycle   *recordings.Lifecycle
	queue       *uploadqueue.Queue
	processing  *fakeProcessing
	svc         *recordings.Service
}

type harnessOptions struct {
	config      []testsupport.ConfigOption
	engineBlobs func(*blobstore.LocalStore) transfer.Blobs
	service     []recordings.ServiceOption
}

func newHarness(t *testing.T, opts harnessOptions) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts.config...)
	st := testsupport.MustOpenStore(t, cfg)
	blobs := testsupport.MustOpenBlobStore(t, cfg)
	logger := logging.NewNop()

	var engineBlobs transfer.Blobs = blobs
	if opts.engineBlobs != nil {
		engineBlobs = opts.engineBlobs(blobs)
	}
	engine := transfer.NewEngine(engineBlobs, transfer.OptionsFromConfig(cfg), logger)

	tr := transcripts.NewService(cfg, st, blobs, logger)
	lifecycle := recordings.NewLifecycle(cfg, st, blobs, tr, logger)
	queue := uploadqueue.New(logger)
	if err := queue.Start(context.Background()); err != nil {
		t.Fatalf("queue.Start: %v", err)
	}
	t.Cleanup(queue.Stop)
	processing := &fakeProcessing{}

	return &harness{
		cfg:         cfg,
		store:       st,
		blobs:       blobs,
		transcripts: tr,
		lifecycle:   lifecycle,
		queue:       queue,
		processing:  processing,
		svc:         recordings.NewService(cfg, lifecycle, blobs, engine, queue, processing, logger, opts.service...),
	}
}

func (h *harness) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := h.queue.Wait(ctx); err != nil {
		t.Fatalf("upload queue did not drain: %v", err)
	}
}
