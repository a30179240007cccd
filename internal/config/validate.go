package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	switch cfg.Backend {
	case BackendOpenAI:
		if err := validateBaseURL("openai.base_url", cfg.OpenAI.BaseURL); err != nil {
			return nil, err
		}
	case BackendLocal:
		if err := validateBaseURL("local.url", cfg.Local.URL); err != nil {
			return nil, err
		}
		if !strings.HasPrefix(cfg.Local.HealthPath, "/") {
			return nil, fmt.Errorf("local.health_path must start with '/'")
		}
		if cfg.Local.Model == "" {
			return nil, fmt.Errorf("local.model must not be empty when backend=local")
		}
	default:
		return nil, fmt.Errorf("backend must be one of: openai, local")
	}

	if cfg.RequestTimeoutMS <= 0 {
		return nil, fmt.Errorf("request_timeout_ms must be > 0")
	}
	if cfg.RequestTimeoutMS < 5000 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("request_timeout_ms=%d is short for long dictations", cfg.RequestTimeoutMS)})
	}

	switch cfg.Audio.Driver {
	case DriverPortAudio:
	case DriverPulse:
		if cfg.Audio.PulseSampleRate < 8000 || cfg.Audio.PulseSampleRate > 192000 {
			return nil, fmt.Errorf("audio.pulse_sample_rate must be between 8000 and 192000")
		}
	default:
		return nil, fmt.Errorf("audio.driver must be one of: portaudio, pulse")
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Indicator.Backend))
	switch backend {
	case "hypr", "notify":
	case "desktop":
		if strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
			return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=desktop")
		}
	case "":
		return nil, fmt.Errorf("indicator.backend must not be empty")
	default:
		return nil, fmt.Errorf("indicator.backend must be one of: hypr, desktop, notify")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	if cfg.Clipboard.Raw != "" && len(cfg.Clipboard.Argv) == 0 {
		return nil, fmt.Errorf("clipboard_cmd is configured but empty")
	}

	if cfg.Paste.Enable && cfg.PasteCmd.Raw != "" && len(cfg.PasteCmd.Argv) == 0 {
		return nil, fmt.Errorf("paste_cmd is configured but empty")
	}
	if cfg.Paste.Enable && len(cfg.PasteCmd.Argv) == 0 {
		switch cfg.Paste.Backend {
		case "keys":
		case "hypr":
			if strings.TrimSpace(cfg.Paste.Shortcut) == "" {
				return nil, fmt.Errorf("paste.shortcut must not be empty when paste.backend=hypr")
			}
		default:
			return nil, fmt.Errorf("paste.backend must be one of: keys, hypr")
		}
	}

	return warnings, nil
}

func validateBaseURL(field string, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%s must not be empty", field)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https", field)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", field)
	}
	return nil
}
