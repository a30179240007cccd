// Package transcribe turns 16 kHz WAV files into text through a cloud or local backend.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rbright/tellyspelly/internal/config"
	"golang.org/x/net/http2"
)

var (
	ErrMissingAPIKey      = errors.New("openai api key not configured; run `tellyspelly settings set openai_api_key <key>`")
	ErrEmptyTranscription = errors.New("no text was transcribed")
	ErrBusy               = errors.New("transcription already in progress")
)

// Request is one transcription call.
type Request struct {
	AudioPath string
	// Language is an ISO-639-1 hint; "auto" or "" lets the backend detect.
	Language string
	// Model is the cloud model id. The local backend uses its configured model.
	Model string
	// Temporary marks AudioPath for removal once the call finishes.
	Temporary bool
}

// Backend performs one blocking transcription call.
type Backend interface {
	Name() string
	// Precheck reports configuration problems without touching the network.
	Precheck() error
	Transcribe(ctx context.Context, req Request) (string, error)
}

// New builds the backend selected by cfg.Backend.
func New(cfg config.Config, apiKey string) (Backend, error) {
	client := NewHTTPClient(time.Duration(cfg.RequestTimeoutMS) * time.Millisecond)
	switch cfg.Backend {
	case config.BackendOpenAI:
		return NewOpenAI(apiKey, cfg.OpenAI.BaseURL, client), nil
	case config.BackendLocal:
		return NewLocal(cfg.Local, client), nil
	default:
		return nil, fmt.Errorf("unknown transcription backend %q", cfg.Backend)
	}
}

// NewHTTPClient returns a pooled client with HTTP/2 enabled on TLS connections.
func NewHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	_ = http2.ConfigureTransport(tr)
	return &http.Client{Transport: tr, Timeout: timeout}
}

// NormalizeLanguage maps the "detect" spellings to the empty hint.
func NormalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "auto" {
		return ""
	}
	return lang
}
