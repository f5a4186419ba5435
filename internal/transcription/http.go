package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"meetscribe/internal/blobstore"
	"meetscribe/internal/logging"
	"meetscribe/internal/store"
)

const (
	defaultHTTPTimeout = 10 * time.Minute
	maxErrorBody       = 4 << 10
)

// HTTPBackend posts recordings to a Whisper-compatible transcription endpoint.
type HTTPBackend struct {
	endpoint string
	apiKey   string
	model    string
	language string
	bucket   string
	blobs    blobstore.Store
	http     *http.Client
	logger   *slog.Logger
}

// HTTPOption customizes an HTTPBackend.
type HTTPOption func(*HTTPBackend)

// WithAPIKey sets the bearer token sent with each request.
func WithAPIKey(key string) HTTPOption {
	return func(b *HTTPBackend) { b.apiKey = strings.TrimSpace(key) }
}

// WithModel sets the model form field.
func WithModel(model string) HTTPOption {
	return func(b *HTTPBackend) { b.model = strings.TrimSpace(model) }
}

// WithLanguage sets the language form field.
func WithLanguage(language string) HTTPOption {
	return func(b *HTTPBackend) { b.language = strings.TrimSpace(language) }
}

// WithTimeout bounds each request end to end.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(b *HTTPBackend) {
		if timeout > 0 {
			b.http.Timeout = timeout
		}
	}
}

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(b *HTTPBackend) {
		if client != nil {
			b.http = client
		}
	}
}

// WithLogger sets the backend logger.
func WithLogger(logger *slog.Logger) HTTPOption {
	return func(b *HTTPBackend) {
		b.logger = logging.NewComponentLogger(logger, "transcription")
	}
}

// NewHTTPBackend reads recordings from bucket in blobs and posts them to endpoint.
func NewHTTPBackend(endpoint string, blobs blobstore.Store, bucket string, opts ...HTTPOption) *HTTPBackend {
	b := &HTTPBackend{
		endpoint: strings.TrimSpace(endpoint),
		bucket:   bucket,
		blobs:    blobs,
		http:     &http.Client{Timeout: defaultHTTPTimeout},
		logger:   logging.NewComponentLogger(nil, "transcription"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type transcriptionResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

// Transcribe streams the recording blob to the endpoint and returns the text.
func (b *HTTPBackend) Transcribe(ctx context.Context, rec *store.Recording) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("http transcription: nil recording")
	}
	if b.endpoint == "" {
		return "", fmt.Errorf("http transcription: endpoint not configured")
	}
	media, err := b.blobs.Open(ctx, b.bucket, rec.FilePath)
	if err != nil {
		return "", fmt.Errorf("http transcription: open media: %w", err)
	}
	defer media.Close()

	body, writer := io.Pipe()
	form := multipart.NewWriter(writer)
	go func() {
		writer.CloseWithError(b.writeForm(form, rec, media))
	}()

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, body)
	if err != nil {
		_ = body.Close()
		return "", fmt.Errorf("http transcription: build request: %w", err)
	}
	request.Header.Set("Content-Type", form.FormDataContentType())
	request.Header.Set("Accept", "application/json")
	if b.apiKey != "" {
		request.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	started := time.Now()
	resp, err := b.http.Do(request)
	if err != nil {
		return "", fmt.Errorf("http transcription: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("http transcription: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var parsed transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("http transcription: decode response: %w", err)
	}
	b.logger.Debug("transcription response received",
		logging.RecordingID(rec.ID),
		logging.Duration("duration", time.Since(started)),
		logging.Int("chars", len(parsed.Text)),
		logging.String("language", parsed.Language),
	)
	return strings.TrimSpace(parsed.Text), nil
}

func (b *HTTPBackend) writeForm(form *multipart.Writer, rec *store.Recording, media io.Reader) error {
	if b.model != "" {
		if err := form.WriteField("model", b.model); err != nil {
			return fmt.Errorf("write model field: %w", err)
		}
	}
	if b.language != "" {
		if err := form.WriteField("language", b.language); err != nil {
			return fmt.Errorf("write language field: %w", err)
		}
	}
	if err := form.WriteField("response_format", "json"); err != nil {
		return fmt.Errorf("write format field: %w", err)
	}
	field, err := form.CreateFormFile("file", path.Base(rec.FilePath))
	if err != nil {
		return fmt.Errorf("create file field: %w", err)
	}
	if _, err := io.Copy(field, media); err != nil {
		return fmt.Errorf("copy media: %w", err)
	}
	return form.Close()
}
