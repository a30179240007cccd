package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rbright/tellyspelly/internal/config"
	"github.com/rbright/tellyspelly/internal/version"
)

// Local transcribes through a whisper-compatible HTTP model server on this machine.
type Local struct {
	cfg    config.LocalConfig
	client *http.Client
}

func NewLocal(cfg config.LocalConfig, client *http.Client) *Local {
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	if cfg.HealthPath == "" {
		cfg.HealthPath = "/health"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Local{cfg: cfg, client: client}
}

func (l *Local) Name() string { return "local" }

func (l *Local) Precheck() error { return nil }

// IsAvailable reports whether the model server answers its health endpoint with 200.
func (l *Local) IsAvailable(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.cfg.URL+l.cfg.HealthPath, nil)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("local model health request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("local model health returned status %d", resp.StatusCode)
	}
	return nil
}

func (l *Local) Transcribe(ctx context.Context, req Request) (string, error) {
	audioData, err := os.ReadFile(req.AudioPath)
	if err != nil {
		return "", fmt.Errorf("read audio file: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("audio", filepath.Base(req.AudioPath))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audioData); err != nil {
		return "", fmt.Errorf("write audio data: %w", err)
	}
	_ = writer.WriteField("model", l.cfg.Model)
	if lang := NormalizeLanguage(req.Language); lang != "" {
		_ = writer.WriteField("language", lang)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalize form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, l.cfg.URL+"/transcribe", &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("User-Agent", version.UserAgent())

	resp, err := l.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("local model request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("local model error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result localResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode local model response: %w", err)
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		text = strings.TrimSpace(joinSegments(result.Segments))
	}
	if text == "" {
		return "", ErrEmptyTranscription
	}
	return text, nil
}

type localResponse struct {
	Text     string         `json:"text"`
	Segments []localSegment `json:"segments"`
	Language string         `json:"language"`
}

type localSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func joinSegments(segments []localSegment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
