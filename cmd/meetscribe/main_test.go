package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"meetscribe/internal/store"
	"meetscribe/internal/testsupport"
)

type cliEnv struct {
	base       string
	configPath string
}

func setupCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
blob_dir = %q
log_dir = %q

[upload]
chunk_size_mib = 1
retry_delay_ms = 0

[storage]
public_base_url = "http://media.test"
signing_key = "cli-test-key"

[transcription]
backend = "stub"
stub_delay_ms = 0

[logging]
level = "error"
`, filepath.Join(base, "data"), filepath.Join(base, "blobs"), filepath.Join(base, "logs"))
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliEnv{base: base, configPath: configPath}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (e *cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("meetscribe %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

var uploadedID = regexp.MustCompile(`Uploaded (\S+) to `)

func (e *cliEnv) upload(t *testing.T, name string, size int64, extra ...string) string {
	t.Helper()
	path := filepath.Join(e.base, name)
	testsupport.WriteFile(t, path, size)
	args := append([]string{"upload", path, "--type", "audio/webm"}, extra...)
	out := e.mustRun(t, args...)
	match := uploadedID.FindStringSubmatch(out)
	if match == nil {
		t.Fatalf("upload output missing recording id:\n%s", out)
	}
	return match[1]
}

func TestUploadProcessAndInspect(t *testing.T) {
	env := setupCLIEnv(t)
	id := env.upload(t, "board_meeting.webm", 3<<20, "--process", "--owner", "alice")

	var recs []recordingView
	if err := json.Unmarshal([]byte(env.mustRun(t, "recordings", "list", "--json")), &recs); err != nil {
		t.Fatalf("decode recordings: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != id {
		t.Fatalf("unexpected recordings: %#v", recs)
	}
	if recs[0].Status != string(store.StatusCompleted) || !recs[0].IsProcessed || recs[0].Title != "Board Meeting" {
		t.Fatalf("unexpected recording: %#v", recs[0])
	}
	if !strings.HasPrefix(recs[0].FilePath, "alice/") {
		t.Fatalf("unexpected file path %q", recs[0].FilePath)
	}

	var trs []transcriptView
	if err := json.Unmarshal([]byte(env.mustRun(t, "transcripts", "list", id, "--json")), &trs); err != nil {
		t.Fatalf("decode transcripts: %v", err)
	}
	if len(trs) != 1 || trs[0].WordCount == 0 {
		t.Fatalf("unexpected transcripts: %#v", trs)
	}
	content := env.mustRun(t, "transcripts", "show", trs[0].ID)
	if !strings.Contains(content, id) {
		t.Fatalf("transcript does not mention the recording:\n%s", content)
	}

	status := env.mustRun(t, "queue", "status")
	if !strings.Contains(status, "completed") {
		t.Fatalf("queue status missing completed row:\n%s", status)
	}
	show := env.mustRun(t, "recordings", "show", id)
	if !strings.Contains(show, "completed (attempts 1)") {
		t.Fatalf("show output missing queue state:\n%s", show)
	}

	url := strings.TrimSpace(env.mustRun(t, "recordings", "url", id))
	if !strings.HasPrefix(url, "http://media.test/recordings/alice/") || !strings.Contains(url, "?token=") {
		t.Fatalf("unexpected signed url %q", url)
	}

	env.mustRun(t, "recordings", "delete", id)
	if out := env.mustRun(t, "recordings", "list"); !strings.Contains(out, "No recordings") {
		t.Fatalf("recording still listed:\n%s", out)
	}
	if _, err := env.run(t, "recordings", "show", id); err == nil {
		t.Fatal("expected show of deleted recording to fail")
	}
}

func TestUploadPrintsChunkProgress(t *testing.T) {
	env := setupCLIEnv(t)
	path := filepath.Join(env.base, "sync.webm")
	testsupport.WriteFile(t, path, 3<<20)

	out := env.mustRun(t, "upload", path, "--type", "audio/webm")
	if got := strings.Count(out, "%"); got != 3 {
		t.Fatalf("expected 3 progress lines, got %d:\n%s", got, out)
	}
	if !strings.Contains(out, "100.0%") {
		t.Fatalf("missing final progress line:\n%s", out)
	}
	if !strings.Contains(out, "Queued for transcription") {
		t.Fatalf("missing queue hint:\n%s", out)
	}
}

func TestProcessPending(t *testing.T) {
	env := setupCLIEnv(t)
	first := env.upload(t, "a.webm", 1024, "--quiet")
	second := env.upload(t, "b.webm", 1536, "--quiet")

	out := env.mustRun(t, "queue", "pending")
	if !strings.Contains(out, first) || !strings.Contains(out, second) {
		t.Fatalf("pending list incomplete:\n%s", out)
	}
	if out := env.mustRun(t, "process", "--pending"); !strings.Contains(out, "Processed 2 pending") {
		t.Fatalf("unexpected process output:\n%s", out)
	}
	if out := env.mustRun(t, "queue", "pending"); !strings.Contains(out, "Queue is empty") {
		t.Fatalf("queue not drained:\n%s", out)
	}
}

func TestProcessRejectsCompletedAndUnknown(t *testing.T) {
	env := setupCLIEnv(t)
	id := env.upload(t, "retro.webm", 2048, "--quiet", "--process")

	if _, err := env.run(t, "process", id); err == nil {
		t.Fatal("expected reprocessing a completed recording to fail")
	}
	show := env.mustRun(t, "recordings", "show", id)
	if !strings.Contains(show, "completed (attempts 1)") || strings.Contains(show, "failed") {
		t.Fatalf("refused reprocess should leave the queue item completed:\n%s", show)
	}
	if _, err := env.run(t, "process", "missing-recording"); err == nil {
		t.Fatal("expected processing an unknown recording to fail")
	}
}

func TestUploadRejectsDuplicateUnlessAllowed(t *testing.T) {
	env := setupCLIEnv(t)
	first := env.upload(t, "sync.webm", 2048, "--quiet")

	out, err := env.run(t, "upload", filepath.Join(env.base, "sync.webm"), "--type", "audio/webm", "--quiet")
	if err == nil || !strings.Contains(err.Error(), first) {
		t.Fatalf("expected duplicate rejection naming %s, got %v\n%s", first, err, out)
	}

	second := env.upload(t, "sync.webm", 2048, "--quiet", "--allow-duplicate")
	if second == first {
		t.Fatal("allowed duplicate should create a new recording")
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	env := setupCLIEnv(t)
	path := filepath.Join(env.base, "notes.txt")
	if err := os.WriteFile(path, []byte("plain text notes\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := env.run(t, "upload", path); err == nil {
		t.Fatal("expected text upload to be rejected")
	}
	if out := env.mustRun(t, "recordings", "list"); !strings.Contains(out, "No recordings") {
		t.Fatalf("rejected upload created a recording:\n%s", out)
	}
}

func TestCleanupCommand(t *testing.T) {
	env := setupCLIEnv(t)
	out := env.mustRun(t, "cleanup")
	if !strings.Contains(out, "Removed 0 temporary file(s)") {
		t.Fatalf("unexpected cleanup output:\n%s", out)
	}
}

func TestConfigInit(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}

	again := newRootCommand()
	again.SetOut(&out)
	again.SetArgs([]string{"config", "init", "--path", target})
	if err := again.Execute(); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
}

func TestConfigValidate(t *testing.T) {
	env := setupCLIEnv(t)
	out := env.mustRun(t, "config", "validate")
	if !strings.Contains(out, "Configuration valid") || !strings.Contains(out, env.configPath) {
		t.Fatalf("unexpected validate output:\n%s", out)
	}
}

func TestBuildQueueStatusRowsOrder(t *testing.T) {
	rows := buildQueueStatusRows(map[store.Status]int{
		store.StatusFailed:    2,
		store.StatusPending:   1,
		store.StatusCompleted: 0,
	})
	if len(rows) != 2 || rows[0][0] != "pending" || rows[1][0] != "failed" || rows[1][1] != "2" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestLogsPrintsTrailingLines(t *testing.T) {
	env := setupCLIEnv(t)
	logDir := filepath.Join(env.base, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		t.Fatalf("mkdir logs: %v", err)
	}
	if err := os.WriteFile(filepath.Join(logDir, "meetscribe.log"), []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out := env.mustRun(t, "logs", "-n", "2")
	if out != "second\nthird\n" {
		t.Fatalf("logs output = %q", out)
	}
}
