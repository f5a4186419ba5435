package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	BlobDir string `toml:"blob_dir"`
	LogDir  string `toml:"log_dir"`
}

// Upload contains chunked transfer tuning and upload validation limits.
type Upload struct {
	ChunkSizeMiB        int      `toml:"chunk_size_mib"`
	MaxRetries          int      `toml:"max_retries"`
	RetryDelayMS        int      `toml:"retry_delay_ms"`
	ChunkTimeoutSeconds int      `toml:"chunk_timeout_seconds"` // 0 disables the per-chunk deadline
	MaxUploadMiB        int      `toml:"max_upload_mib"`
	AllowedTypes        []string `toml:"allowed_types"`
}

// Storage contains blob bucket names and URL signing settings.
type Storage struct {
	RecordingsBucket    string `toml:"recordings_bucket"`
	TranscriptsBucket   string `toml:"transcripts_bucket"`
	TempBucket          string `toml:"temp_bucket"`
	PublicBaseURL       string `toml:"public_base_url"`
	SigningKey          string `toml:"signing_key"`
	SignedURLTTLSeconds int    `toml:"signed_url_ttl_seconds"`
	TempRetentionHours  int    `toml:"temp_retention_hours"`
}

// Transcription selects and configures the transcription backend.
type Transcription struct {
	Backend        string `toml:"backend"`
	Endpoint       string `toml:"endpoint"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	Language       string `toml:"language"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	StubDelayMS    int    `toml:"stub_delay_ms"`
	Workers        int    `toml:"workers"`
}

// Workflow contains worker daemon timing.
type Workflow struct {
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
	ErrorRetrySeconds   int `toml:"error_retry_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for meetscribe.
//
// Configuration sections by subsystem:
//   - Paths: database, blob, and log directories
//   - Upload: chunk size, retry policy, size and type limits
//   - Storage: bucket names, public/signed URL settings, temp retention
//   - Transcription: backend selection and credentials
//   - Workflow: worker daemon polling intervals
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Upload        Upload        `toml:"upload"`
	Storage       Storage       `toml:"storage"`
	Transcription Transcription `toml:"transcription"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("meetscribe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data, blob, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.BlobDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location inside the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "meetscribe.db")
}

// LockPath returns the worker daemon lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "worker.lock")
}

// LogFilePath returns the file the logger appends to.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, "meetscribe.log")
}

// ChunkSize returns the transfer chunk size in bytes.
func (c *Config) ChunkSize() int64 {
	return int64(c.Upload.ChunkSizeMiB) << 20
}

// MaxUploadSize returns the largest accepted upload in bytes.
func (c *Config) MaxUploadSize() int64 {
	return int64(c.Upload.MaxUploadMiB) << 20
}

// RetryDelay returns the base delay between chunk retries.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Upload.RetryDelayMS) * time.Millisecond
}

// ChunkTimeout returns the per-chunk attempt deadline, or zero when disabled.
func (c *Config) ChunkTimeout() time.Duration {
	return time.Duration(c.Upload.ChunkTimeoutSeconds) * time.Second
}

// SignedURLTTL returns the default lifetime of signed blob URLs.
func (c *Config) SignedURLTTL() time.Duration {
	return time.Duration(c.Storage.SignedURLTTLSeconds) * time.Second
}

// TempRetention returns how long temp bucket objects are kept.
func (c *Config) TempRetention() time.Duration {
	return time.Duration(c.Storage.TempRetentionHours) * time.Hour
}

// TranscriptionTimeout bounds a single backend call.
func (c *Config) TranscriptionTimeout() time.Duration {
	return time.Duration(c.Transcription.TimeoutSeconds) * time.Second
}

// StubDelay is the simulated latency of the stub backend.
func (c *Config) StubDelay() time.Duration {
	return time.Duration(c.Transcription.StubDelayMS) * time.Millisecond
}

// PollInterval is how often the worker daemon checks for pending work.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Workflow.PollIntervalSeconds) * time.Second
}

// ErrorRetryInterval is the backoff after the dispatcher fails to read the queue.
func (c *Config) ErrorRetryInterval() time.Duration {
	return time.Duration(c.Workflow.ErrorRetrySeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
