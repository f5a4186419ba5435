package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"meetscribe/internal/fileutil"
)

// LocalStore implements Store on the local filesystem under root/<bucket>/<path>.
type LocalStore struct {
	root       string
	publicBase string
	signingKey []byte
	now        func() time.Time
}

// Option customizes a LocalStore.
type Option func(*LocalStore)

// WithPublicBaseURL sets the URL prefix used by PublicURL and SignedURL.
func WithPublicBaseURL(base string) Option {
	return func(s *LocalStore) {
		s.publicBase = strings.TrimRight(strings.TrimSpace(base), "/")
	}
}

// WithSigningKey enables SignedURL/VerifySignedURL with an HMAC key.
func WithSigningKey(key string) Option {
	return func(s *LocalStore) {
		if key = strings.TrimSpace(key); key != "" {
			s.signingKey = []byte(key)
		}
	}
}

// WithClock overrides the time source used for URL expiry.
func WithClock(now func() time.Time) Option {
	return func(s *LocalStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewLocalStore creates the root directory and returns a store rooted there.
func NewLocalStore(root string, opts ...Option) (*LocalStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("blob root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	s := &LocalStore{root: root, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the directory holding all buckets.
func (s *LocalStore) Root() string {
	return s.root
}

// objectPath maps bucket/key onto the filesystem, refusing keys that escape the bucket.
func (s *LocalStore) objectPath(bucket, key string) (string, error) {
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return "", fmt.Errorf("%w: bucket %q", ErrInvalidPath, bucket)
	}
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, key)
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, key)
	}
	return filepath.Join(s.root, bucket, filepath.FromSlash(cleaned)), nil
}

// Upload writes r to bucket/key and returns key.
func (s *LocalStore) Upload(ctx context.Context, bucket, key string, r io.Reader, opts UploadOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dst, err := s.objectPath(bucket, key)
	if err != nil {
		return "", err
	}
	if !opts.Upsert {
		if _, err := os.Stat(dst); err == nil {
			return "", fmt.Errorf("%w: %s/%s", ErrObjectExists, bucket, key)
		}
	}

	tmp, err := fileutil.TempSibling(dst)
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := io.Copy(tmp, contextReader{ctx: ctx, r: r}); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write %s/%s: %w", bucket, key, err)
	}
	if opts.Upsert {
		if err := fileutil.FinalizeTemp(tmp, dst, 0o644); err != nil {
			return "", err
		}
		return key, nil
	}

	if err := publishNew(tmp, dst, bucket, key); err != nil {
		return "", err
	}
	return key, nil
}

// publishNew closes tmp and links it into place at dst. The link fails when
// dst exists, closing the race between an existence check and publish.
func publishNew(tmp *os.File, dst, bucket, key string) error {
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s/%s: %w", bucket, key, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s/%s: %w", bucket, key, err)
	}
	if err := os.Link(tmp.Name(), dst); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s/%s", ErrObjectExists, bucket, key)
		}
		return fmt.Errorf("publish %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Download reads the whole object into memory.
func (s *LocalStore) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	rc, err := s.Open(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", bucket, key, err)
	}
	return data, nil
}

// Open returns a reader over the object contents.
func (s *LocalStore) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, err := s.objectPath(bucket, key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s/%s", ErrObjectNotFound, bucket, key)
		}
		return nil, fmt.Errorf("open %s/%s: %w", bucket, key, err)
	}
	return f, nil
}

// Delete removes each listed object, ignoring ones that are already gone.
func (s *LocalStore) Delete(ctx context.Context, bucket string, keys ...string) error {
	var errs []error
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		target, err := s.objectPath(bucket, key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("delete %s/%s: %w", bucket, key, err))
		}
	}
	return errors.Join(errs...)
}

// List returns objects whose path starts with prefix, sorted by path.
func (s *LocalStore) List(ctx context.Context, bucket, prefix string) ([]Entry, error) {
	if bucket == "" || strings.ContainsAny(bucket, `/\`) {
		return nil, fmt.Errorf("%w: bucket %q", ErrInvalidPath, bucket)
	}
	base := filepath.Join(s.root, bucket)
	var entries []Entry
	err := filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if errors.Is(walkErr, fs.ErrNotExist) {
				return fs.SkipDir
			}
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !strings.HasPrefix(rel, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		entries = append(entries, Entry{Path: rel, Size: info.Size(), UpdatedAt: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s/%s: %w", bucket, prefix, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// PublicURL returns an unauthenticated URL for the object. Without a configured
// base URL it falls back to a file:// URL on the local path.
func (s *LocalStore) PublicURL(bucket, key string) string {
	if s.publicBase != "" {
		return s.publicBase + "/" + url.PathEscape(bucket) + "/" + escapeKey(key)
	}
	local := filepath.Join(s.root, bucket, filepath.FromSlash(key))
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(local)}).String()
}

// Compose concatenates parts, in order, into dst and removes the parts once
// dst is in place. Like a create-only Upload, it fails with ErrObjectExists
// when dst already exists and leaves the parts untouched.
func (s *LocalStore) Compose(ctx context.Context, bucket, dst string, parts []string) error {
	if len(parts) == 0 {
		return fmt.Errorf("%w: compose %s/%s with no parts", ErrInvalidPath, bucket, dst)
	}
	target, err := s.objectPath(bucket, dst)
	if err != nil {
		return err
	}
	if _, err := os.Stat(target); err == nil {
		return fmt.Errorf("%w: %s/%s", ErrObjectExists, bucket, dst)
	}
	sources := make([]string, len(parts))
	for i, part := range parts {
		if sources[i], err = s.objectPath(bucket, part); err != nil {
			return err
		}
	}

	tmp, err := fileutil.TempSibling(target)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			_ = tmp.Close()
			return err
		}
		if err := appendFile(tmp, src); err != nil {
			_ = tmp.Close()
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%w: part %d %s/%s", ErrObjectNotFound, i, bucket, parts[i])
			}
			return fmt.Errorf("compose part %d: %w", i, err)
		}
	}
	if err := publishNew(tmp, target, bucket, dst); err != nil {
		return err
	}
	return s.Delete(context.WithoutCancel(ctx), bucket, parts...)
}

func appendFile(dst io.Writer, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	_, err = io.Copy(dst, in)
	return err
}

func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

// contextReader stops a long copy once ctx is cancelled.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
