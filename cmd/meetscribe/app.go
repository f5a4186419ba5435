package main

import (
	"context"
	"fmt"
	"log/slog"

	"meetscribe/internal/blobstore"
	"meetscribe/internal/config"
	"meetscribe/internal/logging"
	"meetscribe/internal/processing"
	"meetscribe/internal/recordings"
	"meetscribe/internal/store"
	"meetscribe/internal/transcription"
	"meetscribe/internal/transcripts"
	"meetscribe/internal/transfer"
	"meetscribe/internal/uploadqueue"
)

// app holds the wired services a command needs.
type app struct {
	cfg         *config.Config
	logger      *slog.Logger
	store       *store.Store
	blobs       *blobstore.LocalStore
	transcripts *transcripts.Service
	lifecycle   *recordings.Lifecycle
	queue       *processing.Queue
	worker      *processing.Worker
	uploads     *uploadqueue.Queue
	recordings  *recordings.Service
}

func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	blobs, err := blobstore.NewLocalStore(cfg.Paths.BlobDir,
		blobstore.WithPublicBaseURL(cfg.Storage.PublicBaseURL),
		blobstore.WithSigningKey(cfg.Storage.SigningKey),
	)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("open blob store: %w", err)
	}

	backend, err := transcription.NewFromConfig(cfg, blobs, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	tr := transcripts.NewService(cfg, st, blobs, logger)
	lifecycle := recordings.NewLifecycle(cfg, st, blobs, tr, logger)
	queue := processing.NewQueue(st, logger)
	engine := transfer.NewEngine(blobs, transfer.OptionsFromConfig(cfg), logger)

	uploads := uploadqueue.New(logger)
	if err := uploads.Start(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("start upload queue: %w", err)
	}

	return &app{
		cfg:         cfg,
		logger:      logger,
		store:       st,
		blobs:       blobs,
		transcripts: tr,
		lifecycle:   lifecycle,
		queue:       queue,
		worker:      processing.NewWorker(cfg, queue, lifecycle, tr, backend, logger),
		uploads:     uploads,
		recordings:  recordings.NewService(cfg, lifecycle, blobs, engine, uploads, queue, logger),
	}, nil
}

// Close stops the upload queue, cancelling any transfer still running, and
// closes the database.
func (a *app) Close() error {
	a.uploads.Stop()
	return a.store.Close()
}
