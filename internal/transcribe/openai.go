package transcribe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI transcribes through the /audio/transcriptions endpoint.
type OpenAI struct {
	apiKey string
	client *openai.Client
}

// NewOpenAI constructs the cloud backend. An empty baseURL keeps the library default.
func NewOpenAI(apiKey string, baseURL string, httpClient *http.Client) *OpenAI {
	apiKey = strings.TrimSpace(apiKey)
	cfg := openai.DefaultConfig(apiKey)
	if baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/"); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &OpenAI{apiKey: apiKey, client: openai.NewClientWithConfig(cfg)}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Precheck() error {
	if o.apiKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

func (o *OpenAI) Transcribe(ctx context.Context, req Request) (string, error) {
	if err := o.Precheck(); err != nil {
		return "", err
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = openai.Whisper1
	}

	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    model,
		FilePath: req.AudioPath,
		Language: NormalizeLanguage(req.Language),
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("openai transcription failed (status %d): %s: %w", apiErr.HTTPStatusCode, apiErr.Message, err)
		}
		return "", fmt.Errorf("openai transcription: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrEmptyTranscription
	}
	return text, nil
}
