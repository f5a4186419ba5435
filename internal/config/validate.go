package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"workflow.poll_interval_seconds": c.Workflow.PollIntervalSeconds,
		"workflow.error_retry_seconds":   c.Workflow.ErrorRetrySeconds,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.BlobDir) == "" {
		return errors.New("paths.blob_dir must be set")
	}
	return nil
}

func (c *Config) validateUpload() error {
	if err := ensurePositiveMap(map[string]int{
		"upload.chunk_size_mib": c.Upload.ChunkSizeMiB,
		"upload.max_retries":    c.Upload.MaxRetries,
		"upload.max_upload_mib": c.Upload.MaxUploadMiB,
	}); err != nil {
		return err
	}
	if c.Upload.RetryDelayMS < 0 {
		return errors.New("upload.retry_delay_ms must be >= 0")
	}
	if c.Upload.ChunkTimeoutSeconds < 0 {
		return errors.New("upload.chunk_timeout_seconds must be >= 0")
	}
	if len(c.Upload.AllowedTypes) == 0 {
		return errors.New("upload.allowed_types must include at least one type")
	}
	return nil
}

func (c *Config) validateStorage() error {
	buckets := map[string]string{
		"storage.recordings_bucket":  c.Storage.RecordingsBucket,
		"storage.transcripts_bucket": c.Storage.TranscriptsBucket,
		"storage.temp_bucket":        c.Storage.TempBucket,
	}
	for key, value := range buckets {
		if value == "" {
			return fmt.Errorf("%s must be set", key)
		}
		if strings.ContainsAny(value, `/\`) || value == "." || value == ".." {
			return fmt.Errorf("%s must be a single path segment, got %q", key, value)
		}
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if len(c.Transcription.Language) != 2 {
		return fmt.Errorf("transcription.language %q is not a recognized language code", c.Transcription.Language)
	}
	switch c.Transcription.Backend {
	case BackendStub:
		return nil
	case BackendHTTP:
		if c.Transcription.Endpoint == "" {
			return errors.New("transcription.endpoint must be set when transcription.backend is \"http\"")
		}
		return nil
	default:
		return fmt.Errorf("transcription.backend must be %q or %q, got %q", BackendStub, BackendHTTP, c.Transcription.Backend)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
