package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"meetscribe/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("MEETSCRIBE_SIGNING_KEY", "env-secret")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "meetscribe")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.BlobDir != filepath.Join(wantData, "blobs") {
		t.Fatalf("unexpected blob dir: %q", cfg.Paths.BlobDir)
	}
	if cfg.ChunkSize() != 5<<20 {
		t.Fatalf("unexpected chunk size: %d", cfg.ChunkSize())
	}
	if cfg.Upload.MaxRetries != 3 {
		t.Fatalf("unexpected max retries: %d", cfg.Upload.MaxRetries)
	}
	if cfg.RetryDelay() != 2*time.Second {
		t.Fatalf("unexpected retry delay: %s", cfg.RetryDelay())
	}
	if cfg.MaxUploadSize() != 100<<20 {
		t.Fatalf("unexpected max upload size: %d", cfg.MaxUploadSize())
	}
	if cfg.ChunkTimeout() != 0 {
		t.Fatalf("expected chunk timeout disabled by default, got %s", cfg.ChunkTimeout())
	}
	if cfg.Storage.SigningKey != "env-secret" {
		t.Fatalf("expected signing key from env, got %q", cfg.Storage.SigningKey)
	}
	if cfg.Transcription.Backend != config.BackendStub {
		t.Fatalf("expected stub backend by default, got %q", cfg.Transcription.Backend)
	}
	if cfg.Transcription.Workers != 1 {
		t.Fatalf("expected one transcription worker, got %d", cfg.Transcription.Workers)
	}
	if cfg.TempRetention() != 24*time.Hour {
		t.Fatalf("unexpected temp retention: %s", cfg.TempRetention())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.BlobDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "meetscribe.toml")

	type payload struct {
		Paths struct {
			DataDir string `toml:"data_dir"`
		} `toml:"paths"`
		Upload struct {
			ChunkSizeMiB int      `toml:"chunk_size_mib"`
			AllowedTypes []string `toml:"allowed_types"`
		} `toml:"upload"`
		Transcription struct {
			Backend  string `toml:"backend"`
			Endpoint string `toml:"endpoint"`
			APIKey   string `toml:"api_key"`
		} `toml:"transcription"`
	}
	custom := payload{}
	custom.Paths.DataDir = filepath.Join(tempDir, "data")
	custom.Upload.ChunkSizeMiB = 8
	custom.Upload.AllowedTypes = []string{" Audio/ ", "audio/", "video/mp4"}
	custom.Transcription.Backend = "HTTP"
	custom.Transcription.Endpoint = "https://asr.example.com/v1/audio/transcriptions"
	custom.Transcription.APIKey = "file-key"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}
	t.Setenv("MEETSCRIBE_TRANSCRIPTION_API_KEY", "env-key")

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.DataDir != filepath.Join(tempDir, "data") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.ChunkSize() != 8<<20 {
		t.Fatalf("expected 8 MiB chunks, got %d", cfg.ChunkSize())
	}
	if got := strings.Join(cfg.Upload.AllowedTypes, ","); got != "audio/,video/mp4" {
		t.Fatalf("unexpected allowed types: %q", got)
	}
	if cfg.Transcription.Backend != config.BackendHTTP {
		t.Fatalf("expected backend lowercased, got %q", cfg.Transcription.Backend)
	}
	if cfg.Transcription.APIKey != "file-key" {
		t.Fatalf("expected file api key to win over env, got %q", cfg.Transcription.APIKey)
	}
	if cfg.DatabasePath() != filepath.Join(tempDir, "data", "meetscribe.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "MEETSCRIBE_SIGNING_KEY") {
		t.Fatalf("sample config missing signing key hint: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Upload.ChunkSizeMiB != 5 || cfg.Upload.MaxRetries != 3 || cfg.Upload.RetryDelayMS != 2000 {
		t.Fatalf("sample upload section drifted from defaults: %+v", cfg.Upload)
	}
	if !strings.Contains(cfg.Paths.DataDir, "meetscribe") {
		t.Fatalf("expected data dir to contain meetscribe, got %q", cfg.Paths.DataDir)
	}

	loaded, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to be found")
	}
	if loaded.Transcription.Backend != config.BackendStub {
		t.Fatalf("unexpected sample backend %q", loaded.Transcription.Backend)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := map[string]func(*config.Config){
		"negative chunk size":     func(c *config.Config) { c.Upload.ChunkSizeMiB = -1 },
		"zero retries":            func(c *config.Config) { c.Upload.MaxRetries = 0 },
		"negative retry delay":    func(c *config.Config) { c.Upload.RetryDelayMS = -5 },
		"negative chunk timeout":  func(c *config.Config) { c.Upload.ChunkTimeoutSeconds = -1 },
		"no allowed types":        func(c *config.Config) { c.Upload.AllowedTypes = nil },
		"nested bucket":           func(c *config.Config) { c.Storage.RecordingsBucket = "a/b" },
		"empty transcript bucket": func(c *config.Config) { c.Storage.TranscriptsBucket = "" },
		"unknown backend":         func(c *config.Config) { c.Transcription.Backend = "carrier-pigeon" },
		"http without endpoint":   func(c *config.Config) { c.Transcription.Backend = config.BackendHTTP },
		"zero poll interval":      func(c *config.Config) { c.Workflow.PollIntervalSeconds = 0 },
		"unknown language":        func(c *config.Config) { c.Transcription.Language = "klingon" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadNormalizesTranscriptionLanguage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meetscribe.toml")
	body := "[paths]\ndata_dir = \"" + filepath.ToSlash(filepath.Join(dir, "data")) + "\"\n\n[transcription]\nlanguage = \"Spanish\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Transcription.Language != "es" {
		t.Fatalf("Language = %q, want es", cfg.Transcription.Language)
	}
}
