package blobstore

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrObjectNotFound reports that no object exists at bucket/path.
	ErrObjectNotFound = errors.New("blob object not found")
	// ErrObjectExists reports a non-upsert upload onto an existing object.
	ErrObjectExists = errors.New("blob object already exists")
	// ErrInvalidPath rejects empty, absolute, or parent-escaping object paths.
	ErrInvalidPath = errors.New("invalid blob path")
	// ErrSigningDisabled means no signing key is configured.
	ErrSigningDisabled = errors.New("blob URL signing key not configured")
	// ErrSignatureInvalid covers malformed, tampered, or wrongly-signed tokens.
	ErrSignatureInvalid = errors.New("blob URL signature invalid")
	// ErrSignatureExpired means the signed URL outlived its TTL.
	ErrSignatureExpired = errors.New("blob URL signature expired")
)

// UploadOptions controls a single object write.
type UploadOptions struct {
	ContentType string
	// Upsert replaces an existing object instead of failing with ErrObjectExists.
	Upsert bool
}

// Entry describes one stored object returned by List.
type Entry struct {
	Path      string
	Size      int64
	UpdatedAt time.Time
}

// Store is bucket/path addressed object storage.
type Store interface {
	Upload(ctx context.Context, bucket, path string, r io.Reader, opts UploadOptions) (string, error)
	Download(ctx context.Context, bucket, path string) ([]byte, error)
	Open(ctx context.Context, bucket, path string) (io.ReadCloser, error)
	// Delete removes the listed objects; paths that do not exist are ignored.
	Delete(ctx context.Context, bucket string, paths ...string) error
	List(ctx context.Context, bucket, prefix string) ([]Entry, error)
	PublicURL(bucket, path string) string
	SignedURL(bucket, path string, ttl time.Duration) (string, error)
	VerifySignedURL(token string) (bucket, path string, err error)
	// Compose concatenates parts in order into dst, then removes the parts.
	Compose(ctx context.Context, bucket, dst string, parts []string) error
}
