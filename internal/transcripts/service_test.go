package transcripts_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"meetscribe/internal/blobstore"
	"meetscribe/internal/logging"
	"meetscribe/internal/services"
	"meetscribe/internal/store"
	"meetscribe/internal/testsupport"
	"meetscribe/internal/transcripts"
)

type fixture struct {
	svc    *transcripts.Service
	store  *store.Store
	blobs  *blobstore.LocalStore
	bucket string
	rec    *store.Recording
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	blobs := testsupport.MustOpenBlobStore(t, cfg)
	return fixture{
		svc:    transcripts.NewService(cfg, st, blobs, logging.NewNop()),
		store:  st,
		blobs:  blobs,
		bucket: cfg.Storage.TranscriptsBucket,
		rec:    testsupport.NewRecording(t, st, "weekly sync"),
	}
}

func TestCountWords(t *testing.T) {
	cases := map[string]int{
		"":                         0,
		"   ":                      0,
		"hello":                    1,
		"hello world":              2,
		"  spaced\tout\nwords  ":   3,
		"[00:00:05] Speaker 2: ok": 4,
	}
	for text, want := range cases {
		if got := transcripts.CountWords(text); got != want {
			t.Fatalf("CountWords(%q) = %d, want %d", text, got, want)
		}
	}
}

func TestCreateStoresRowAndBlob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tr, err := f.svc.Create(ctx, f.rec.ID, "the quick brown fox", transcripts.Options{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if tr.WordCount != 4 || tr.Language != "en" || tr.Status != store.StatusCompleted {
		t.Fatalf("unexpected transcript: %#v", tr)
	}

	data, err := f.blobs.Download(ctx, f.bucket, transcripts.BlobPath(tr.ID))
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if string(data) != "the quick brown fox" {
		t.Fatalf("blob content = %q", data)
	}

	got, content, err := f.svc.Get(ctx, tr.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ID != tr.ID || content != "the quick brown fox" {
		t.Fatalf("Get = %#v, %q", got, content)
	}
}

func TestCreateHonoursLanguage(t *testing.T) {
	f := newFixture(t)
	tr, err := f.svc.Create(context.Background(), f.rec.ID, "hola", transcripts.Options{Language: "Spanish"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if tr.Language != "es" {
		t.Fatalf("Language = %q, want es", tr.Language)
	}
}

func TestGetFallsBackToRowWhenBlobMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr, err := f.svc.Create(ctx, f.rec.ID, "mirrored text", transcripts.Options{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := f.blobs.Delete(ctx, f.bucket, transcripts.BlobPath(tr.ID)); err != nil {
		t.Fatalf("Delete blob failed: %v", err)
	}
	_, content, err := f.svc.Get(ctx, tr.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if content != "mirrored text" {
		t.Fatalf("content = %q", content)
	}
}

func TestGetMissingIsNotFound(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.svc.Get(context.Background(), "nope")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected store.ErrNotFound in chain, got %v", err)
	}
}

func TestUpdateRewritesContentAndWordCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr, err := f.svc.Create(ctx, f.rec.ID, "one two", transcripts.Options{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	content := "one two three four five"
	updated, err := f.svc.Update(ctx, tr.ID, transcripts.Update{Content: &content})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.WordCount != 5 || updated.Content != content {
		t.Fatalf("unexpected updated transcript: %#v", updated)
	}
	data, err := f.blobs.Download(ctx, f.bucket, transcripts.BlobPath(tr.ID))
	if err != nil || string(data) != content {
		t.Fatalf("blob = %q, %v", data, err)
	}

	lang := "de"
	updated, err = f.svc.Update(ctx, tr.ID, transcripts.Update{Language: &lang})
	if err != nil {
		t.Fatalf("Update language failed: %v", err)
	}
	if updated.Language != "de" || updated.WordCount != 5 {
		t.Fatalf("unexpected transcript after language update: %#v", updated)
	}

	if _, err := f.svc.Update(ctx, "missing", transcripts.Update{Language: &lang}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	bogus := "klingon"
	if _, err := f.svc.Update(ctx, tr.ID, transcripts.Update{Language: &bogus}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

type sequentialIDs struct{ n int }

func (g *sequentialIDs) NewID() string {
	g.n++
	return fmt.Sprintf("tr-%03d", g.n)
}

func TestListForRecordingNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	svc := transcripts.NewService(cfg, st, testsupport.MustOpenBlobStore(t, cfg), nil, transcripts.WithIDGenerator(&sequentialIDs{}))
	rec := testsupport.NewRecording(t, st, "ordering")
	ctx := context.Background()
	first, err := svc.Create(ctx, rec.ID, "first", transcripts.Options{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	second, err := svc.Create(ctx, rec.ID, "second", transcripts.Options{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	list, err := svc.ListForRecording(ctx, rec.ID)
	if err != nil {
		t.Fatalf("ListForRecording failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("unexpected order: %#v", list)
	}
}

func TestDeleteRemovesRowAndBlob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr, err := f.svc.Create(ctx, f.rec.ID, "bye", transcripts.Options{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	deleted, err := f.svc.Delete(ctx, tr.ID)
	if err != nil || !deleted {
		t.Fatalf("Delete = %v, %v", deleted, err)
	}
	if _, err := f.blobs.Download(ctx, f.bucket, transcripts.BlobPath(tr.ID)); !errors.Is(err, blobstore.ErrObjectNotFound) {
		t.Fatalf("expected blob gone, got %v", err)
	}
	deleted, err = f.svc.Delete(ctx, tr.ID)
	if err != nil || deleted {
		t.Fatalf("second Delete = %v, %v", deleted, err)
	}
}
