package testsupport

import (
	"context"
	"testing"
	"time"

	"meetscribe/internal/blobstore"
	"meetscribe/internal/config"
	"meetscribe/internal/ids"
	"meetscribe/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// MustOpenBlobStore opens the local blob store configured by cfg.
func MustOpenBlobStore(t testing.TB, cfg *config.Config, opts ...blobstore.Option) *blobstore.LocalStore {
	t.Helper()

	base := []blobstore.Option{
		blobstore.WithPublicBaseURL(cfg.Storage.PublicBaseURL),
		blobstore.WithSigningKey(cfg.Storage.SigningKey),
	}
	blobs, err := blobstore.NewLocalStore(cfg.Paths.BlobDir, append(base, opts...)...)
	if err != nil {
		t.Fatalf("blobstore.NewLocalStore: %v", err)
	}
	return blobs
}

// NewRecording inserts a pending recording row owned by "owner-1".
func NewRecording(t testing.TB, st *store.Store, title string) *store.Recording {
	t.Helper()

	now := time.Now().UTC()
	rec := &store.Recording{
		ID:       ids.UUIDGenerator{}.NewID(),
		OwnerID:  "owner-1",
		Title:    title,
		MimeType: "audio/webm",
		FileSize: 1024,
		Status:   store.StatusPending,
	}
	rec.FilePath = ids.FilePath(ids.UUIDGenerator{}, rec.OwnerID, title+".webm", now)
	if err := st.InsertRecording(context.Background(), rec); err != nil {
		t.Fatalf("store.InsertRecording: %v", err)
	}
	return rec
}
