package config

import (
	"fmt"
	"os"
	"strings"

	"meetscribe/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeUpload()
	c.normalizeStorage()
	c.normalizeTranscription()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.BlobDir) == "" {
		c.Paths.BlobDir = defaultBlobDir
	}
	if c.Paths.BlobDir, err = expandPath(c.Paths.BlobDir); err != nil {
		return fmt.Errorf("paths.blob_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeUpload() {
	if c.Upload.ChunkSizeMiB == 0 {
		c.Upload.ChunkSizeMiB = defaultChunkSizeMiB
	}
	if c.Upload.MaxRetries == 0 {
		c.Upload.MaxRetries = defaultMaxRetries
	}
	if c.Upload.MaxUploadMiB == 0 {
		c.Upload.MaxUploadMiB = defaultMaxUploadMiB
	}
	types := make([]string, 0, len(c.Upload.AllowedTypes))
	seen := make(map[string]struct{}, len(c.Upload.AllowedTypes))
	for _, value := range c.Upload.AllowedTypes {
		normalized := strings.ToLower(strings.TrimSpace(value))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		types = append(types, normalized)
	}
	if len(types) == 0 {
		types = defaultAllowedTypes()
	}
	c.Upload.AllowedTypes = types
}

func (c *Config) normalizeStorage() {
	c.Storage.RecordingsBucket = strings.TrimSpace(c.Storage.RecordingsBucket)
	if c.Storage.RecordingsBucket == "" {
		c.Storage.RecordingsBucket = defaultRecordingsBucket
	}
	c.Storage.TranscriptsBucket = strings.TrimSpace(c.Storage.TranscriptsBucket)
	if c.Storage.TranscriptsBucket == "" {
		c.Storage.TranscriptsBucket = defaultTranscriptsBucket
	}
	c.Storage.TempBucket = strings.TrimSpace(c.Storage.TempBucket)
	if c.Storage.TempBucket == "" {
		c.Storage.TempBucket = defaultTempBucket
	}
	c.Storage.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Storage.PublicBaseURL), "/")
	c.Storage.SigningKey = strings.TrimSpace(c.Storage.SigningKey)
	if c.Storage.SigningKey == "" {
		if value, ok := os.LookupEnv("MEETSCRIBE_SIGNING_KEY"); ok {
			c.Storage.SigningKey = strings.TrimSpace(value)
		}
	}
	if c.Storage.SignedURLTTLSeconds <= 0 {
		c.Storage.SignedURLTTLSeconds = defaultSignedURLTTLSeconds
	}
	if c.Storage.TempRetentionHours <= 0 {
		c.Storage.TempRetentionHours = defaultTempRetentionHours
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Backend = strings.ToLower(strings.TrimSpace(c.Transcription.Backend))
	if c.Transcription.Backend == "" {
		c.Transcription.Backend = defaultBackend
	}
	c.Transcription.Endpoint = strings.TrimSpace(c.Transcription.Endpoint)
	c.Transcription.APIKey = strings.TrimSpace(c.Transcription.APIKey)
	if c.Transcription.APIKey == "" {
		if value, ok := os.LookupEnv("MEETSCRIBE_TRANSCRIPTION_API_KEY"); ok {
			c.Transcription.APIKey = strings.TrimSpace(value)
		}
	}
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultTranscriptModel
	}
	rawLanguage := strings.ToLower(strings.TrimSpace(c.Transcription.Language))
	switch {
	case rawLanguage == "":
		c.Transcription.Language = defaultTranscriptLanguage
	case language.Normalize(rawLanguage) != "":
		c.Transcription.Language = language.Normalize(rawLanguage)
	default:
		c.Transcription.Language = rawLanguage
	}
	if c.Transcription.TimeoutSeconds <= 0 {
		c.Transcription.TimeoutSeconds = defaultTranscriptTimeout
	}
	if c.Transcription.StubDelayMS < 0 {
		c.Transcription.StubDelayMS = 0
	}
	if c.Transcription.Workers <= 0 {
		c.Transcription.Workers = defaultTranscriptWorkers
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.PollIntervalSeconds == 0 {
		c.Workflow.PollIntervalSeconds = defaultPollInterval
	}
	if c.Workflow.ErrorRetrySeconds == 0 {
		c.Workflow.ErrorRetrySeconds = defaultErrorRetry
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
