package config

const (
	defaultConfigPath          = "~/.config/meetscribe/config.toml"
	defaultDataDir             = "~/.local/share/meetscribe"
	defaultBlobDir             = "~/.local/share/meetscribe/blobs"
	defaultLogDir              = "~/.local/share/meetscribe/logs"
	defaultChunkSizeMiB        = 5
	defaultMaxRetries          = 3
	defaultRetryDelayMS        = 2000
	defaultMaxUploadMiB        = 100
	defaultRecordingsBucket    = "recordings"
	defaultTranscriptsBucket   = "transcripts"
	defaultTempBucket          = "temp"
	defaultSignedURLTTLSeconds = 3600
	defaultTempRetentionHours  = 24
	defaultBackend             = BackendStub
	defaultTranscriptModel     = "whisper-1"
	defaultTranscriptLanguage  = "en"
	defaultTranscriptTimeout   = 600
	defaultStubDelayMS         = 5000
	defaultTranscriptWorkers   = 1
	defaultPollInterval        = 5
	defaultErrorRetry          = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Transcription backend identifiers.
const (
	BackendStub = "stub"
	BackendHTTP = "http"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			BlobDir: defaultBlobDir,
			LogDir:  defaultLogDir,
		},
		Upload: Upload{
			ChunkSizeMiB: defaultChunkSizeMiB,
			MaxRetries:   defaultMaxRetries,
			RetryDelayMS: defaultRetryDelayMS,
			MaxUploadMiB: defaultMaxUploadMiB,
			AllowedTypes: defaultAllowedTypes(),
		},
		Storage: Storage{
			RecordingsBucket:    defaultRecordingsBucket,
			TranscriptsBucket:   defaultTranscriptsBucket,
			TempBucket:          defaultTempBucket,
			SignedURLTTLSeconds: defaultSignedURLTTLSeconds,
			TempRetentionHours:  defaultTempRetentionHours,
		},
		Transcription: Transcription{
			Backend:        defaultBackend,
			Model:          defaultTranscriptModel,
			Language:       defaultTranscriptLanguage,
			TimeoutSeconds: defaultTranscriptTimeout,
			StubDelayMS:    defaultStubDelayMS,
			Workers:        defaultTranscriptWorkers,
		},
		Workflow: Workflow{
			PollIntervalSeconds: defaultPollInterval,
			ErrorRetrySeconds:   defaultErrorRetry,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// Entries ending in "/" match a whole media family.
func defaultAllowedTypes() []string {
	return []string{"audio/", "video/", "application/octet-stream"}
}
