package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tailscale/hujson"
)

type jsoncConfig struct {
	Backend          *string          `json:"backend"`
	OpenAI           *jsoncOpenAI     `json:"openai"`
	Local            *jsoncLocal      `json:"local"`
	RequestTimeoutMS *int             `json:"request_timeout_ms"`
	Audio            *jsoncAudio      `json:"audio"`
	Paste            *jsoncPaste      `json:"paste"`
	Transcript       *jsoncTranscript `json:"transcript"`
	Indicator        *jsoncIndicator  `json:"indicator"`

	ClipboardCmd *string     `json:"clipboard_cmd"`
	PasteCmd     *string     `json:"paste_cmd"`
	Debug        *jsoncDebug `json:"debug"`
}

type jsoncOpenAI struct {
	BaseURL *string `json:"base_url"`
}

type jsoncLocal struct {
	URL        *string `json:"url"`
	HealthPath *string `json:"health_path"`
	Model      *string `json:"model"`
}

type jsoncAudio struct {
	Driver          *string `json:"driver"`
	PulseSampleRate *int    `json:"pulse_sample_rate"`
}

type jsoncPaste struct {
	Enable   *bool   `json:"enable"`
	Backend  *string `json:"backend"`
	Shortcut *string `json:"shortcut"`
}

type jsoncTranscript struct {
	TrailingSpace       *bool `json:"trailing_space"`
	CapitalizeSentences *bool `json:"capitalize_sentences"`
}

type jsoncIndicator struct {
	Enable         *bool   `json:"enable"`
	Backend        *string `json:"backend"`
	DesktopAppName *string `json:"desktop_app_name"`
	SoundEnable    *bool   `json:"sound_enable"`
	ErrorTimeoutMS *int    `json:"error_timeout_ms"`
}

type jsoncDebug struct {
	AudioDump *bool `json:"audio_dump"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	// Standardize blanks out comments and trailing commas in place, so decode
	// offsets still point at the user's file.
	standard, err := hujson.Standardize([]byte(content))
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(bytes.NewReader(standard))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, locate(content, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, locate(content, err)
	}

	cfg := base
	if err := payload.applyTo(&cfg); err != nil {
		return Config{}, nil, err
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) error {
	setKeyword(&cfg.Backend, payload.Backend)
	if payload.OpenAI != nil {
		setText(&cfg.OpenAI.BaseURL, payload.OpenAI.BaseURL)
	}
	if l := payload.Local; l != nil {
		setText(&cfg.Local.URL, l.URL)
		setText(&cfg.Local.HealthPath, l.HealthPath)
		setText(&cfg.Local.Model, l.Model)
	}
	set(&cfg.RequestTimeoutMS, payload.RequestTimeoutMS)

	if a := payload.Audio; a != nil {
		setKeyword(&cfg.Audio.Driver, a.Driver)
		set(&cfg.Audio.PulseSampleRate, a.PulseSampleRate)
	}
	if p := payload.Paste; p != nil {
		set(&cfg.Paste.Enable, p.Enable)
		setKeyword(&cfg.Paste.Backend, p.Backend)
		setText(&cfg.Paste.Shortcut, p.Shortcut)
	}
	if tr := payload.Transcript; tr != nil {
		set(&cfg.Transcript.TrailingSpace, tr.TrailingSpace)
		set(&cfg.Transcript.CapitalizeSentences, tr.CapitalizeSentences)
	}
	if ind := payload.Indicator; ind != nil {
		set(&cfg.Indicator.Enable, ind.Enable)
		setKeyword(&cfg.Indicator.Backend, ind.Backend)
		setText(&cfg.Indicator.DesktopAppName, ind.DesktopAppName)
		set(&cfg.Indicator.SoundEnable, ind.SoundEnable)
		set(&cfg.Indicator.ErrorTimeoutMS, ind.ErrorTimeoutMS)
	}
	if payload.Debug != nil {
		set(&cfg.Debug.EnableAudioDump, payload.Debug.AudioDump)
	}

	var err error
	if cfg.Clipboard, err = command("clipboard_cmd", payload.ClipboardCmd, cfg.Clipboard); err != nil {
		return err
	}
	if cfg.PasteCmd, err = command("paste_cmd", payload.PasteCmd, cfg.PasteCmd); err != nil {
		return err
	}
	return nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setText(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

// setKeyword stores enum-like values lowercased.
func setKeyword(dst *string, src *string) {
	if src != nil {
		*dst = strings.ToLower(strings.TrimSpace(*src))
	}
}

func command(field string, raw *string, current CommandConfig) (CommandConfig, error) {
	if raw == nil {
		return current, nil
	}
	argv, err := parseArgv(*raw)
	if err != nil {
		return CommandConfig{}, fmt.Errorf("invalid %s: %w", field, err)
	}
	return CommandConfig{Raw: *raw, Argv: argv}, nil
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	if _, err := decoder.Token(); errors.Is(err, io.EOF) {
		return nil
	} else if err != nil {
		return err
	}
	return errors.New("multiple JSON values are not allowed")
}

// locate prefixes decode errors with the line and column they refer to.
func locate(content string, err error) error {
	var offset int64
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	default:
		return err
	}
	line, col := lineCol(content, offset)
	return fmt.Errorf("line %d column %d: %w", line, col, err)
}

// lineCol maps a 1-based decoder offset to a line and column in content.
func lineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}
	prefix := content[:min(int(offset), len(content))]
	if len(prefix) > 0 {
		prefix = prefix[:len(prefix)-1]
	}
	line := strings.Count(prefix, "\n") + 1
	col := len(prefix) - strings.LastIndexByte(prefix, '\n')
	return line, col
}
