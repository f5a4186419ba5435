package testsupport

import (
	"path/filepath"
	"testing"

	"meetscribe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Retry delays and the stub transcription delay are zeroed so tests never sleep.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.BlobDir = filepath.Join(base, "blobs")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Upload.RetryDelayMS = 0
	cfgVal.Storage.SigningKey = "test-signing-key"
	cfgVal.Storage.PublicBaseURL = "http://blobs.test"
	cfgVal.Transcription.StubDelayMS = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithMaxUploadMiB overrides the upload size ceiling.
func WithMaxUploadMiB(mib int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Upload.MaxUploadMiB = mib
	}
}

// WithChunkSizeMiB overrides the transfer chunk size.
func WithChunkSizeMiB(mib int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Upload.ChunkSizeMiB = mib
	}
}

// WithoutSigningKey clears the URL signing key.
func WithoutSigningKey() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Storage.SigningKey = ""
	}
}

// WithTranscriptionBackend selects the transcription backend and endpoint.
func WithTranscriptionBackend(backend, endpoint string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Transcription.Backend = backend
		b.cfg.Transcription.Endpoint = endpoint
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
