package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"meetscribe/internal/config"
	"meetscribe/internal/logging"
	"meetscribe/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from config")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "meetscribe.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello from config") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")
	if strings.Contains(buf.String(), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", buf.String())
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Debug("message with caller")
	if !strings.Contains(buf.String(), "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", buf.String())
	}
}

func TestConsoleLoggerRendersSubjectFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithRecordingID(context.Background(), "0123456789abcdef")
	ctx = services.WithOperation(ctx, "upload")
	logger = logging.NewComponentLogger(logger, "uploader")
	logging.WithContext(ctx, logger).Info("chunk uploaded", logging.Int("chunk", 2))

	line := buf.String()
	for _, fragment := range []string{"INFO", "[uploader]", "Recording 01234567… (upload)", "chunk uploaded", "chunk=2"} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("expected %q in %q", fragment, line)
		}
	}
	if strings.Contains(line, "recording_id=") {
		t.Fatalf("expected recording id folded into subject, got %q", line)
	}
}

func TestJSONLoggerIncludesContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithRecordingID(context.Background(), "rec-9")
	ctx = services.WithRequestID(ctx, "req-1")
	logging.WithContext(ctx, logger).Warn("slow chunk", logging.Error(os.ErrDeadlineExceeded))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, buf.String())
	}
	if payload["recording_id"] != "rec-9" {
		t.Fatalf("expected recording_id, got %v", payload["recording_id"])
	}
	if payload["correlation_id"] != "req-1" {
		t.Fatalf("expected correlation_id, got %v", payload["correlation_id"])
	}
	if payload["level"] != "warn" {
		t.Fatalf("expected lowercase level, got %v", payload["level"])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", payload)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "queue bookkeeping failed", "queue_update_failed")

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if payload[logging.FieldEventType] != "queue_update_failed" {
		t.Fatalf("unexpected event_type %v", payload[logging.FieldEventType])
	}
	if payload[logging.FieldImpact] == nil {
		t.Fatal("expected impact field")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 100) {
		t.Fatal("expected nop logger to be disabled")
	}
}

func TestProgressSamplerBands(t *testing.T) {
	sampler := logging.NewProgressSampler(25)
	var emitted []float64
	for _, pct := range []float64{0, 10, 24, 25, 40, 50, 99, 100, 100} {
		if sampler.Allow(pct) {
			emitted = append(emitted, pct)
		}
	}
	want := []float64{0, 25, 50, 99, 100}
	if len(emitted) != len(want) {
		t.Fatalf("emitted %v, want %v", emitted, want)
	}
	for i := range want {
		if emitted[i] != want[i] {
			t.Fatalf("emitted %v, want %v", emitted, want)
		}
	}

	fresh := logging.NewProgressSampler(0)
	if fresh.Allow(-1) {
		t.Fatal("expected negative progress to be suppressed")
	}
	if !fresh.Allow(5) || fresh.Allow(9) || !fresh.Allow(10) {
		t.Fatal("default step should be ten percent")
	}

	var nilSampler *logging.ProgressSampler
	if !nilSampler.Allow(3) {
		t.Fatal("nil sampler should log everything")
	}
}

func TestJSONLoggerNormalizesBuiltinsAndDurations(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "debug", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("chunk committed", logging.Duration("elapsed", 1500*time.Millisecond))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, buf.String())
	}
	if _, ok := payload["time"]; ok {
		t.Fatalf("expected time renamed to ts, got %v", payload)
	}
	ts, _ := payload["ts"].(string)
	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil || parsed.Location() != time.UTC {
		t.Fatalf("expected UTC RFC3339 timestamp, got %q (%v)", ts, err)
	}
	if payload["level"] != "debug" {
		t.Fatalf("expected lowercase level, got %v", payload["level"])
	}
	if src, _ := payload["source"].(string); !strings.HasPrefix(src, "logger_test.go:") {
		t.Fatalf("expected trimmed source, got %v", payload["source"])
	}
	if payload["elapsed"] != float64(1500) {
		t.Fatalf("expected elapsed in milliseconds, got %v", payload["elapsed"])
	}
}
