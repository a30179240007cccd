// Package settings stores user preferences as validated key/value pairs.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// Setting keys.
const (
	KeyAPIKey        = "openai_api_key"
	KeyModel         = "model"
	KeyLanguage      = "language"
	KeyMicIndex      = "mic_index"
	KeyStartShortcut = "start_shortcut"
	KeyStopShortcut  = "stop_shortcut"
)

// Keys lists every known setting in display order.
var Keys = []string{KeyAPIKey, KeyModel, KeyLanguage, KeyMicIndex, KeyStartShortcut, KeyStopShortcut}

// ValidModels are the accepted transcription model identifiers.
var ValidModels = []string{"whisper-1", "gpt-4o-transcribe"}

// ValidLanguages are the accepted language hints. "auto" and "" both mean detect.
var ValidLanguages = []string{"auto", "", "en", "es", "fr", "de", "it", "pt", "nl", "pl", "ja", "zh", "ru"}

var defaults = map[string]string{
	KeyAPIKey:        "",
	KeyModel:         "whisper-1",
	KeyLanguage:      "auto",
	KeyMicIndex:      "-1",
	KeyStartShortcut: "ctrl+alt+r",
	KeyStopShortcut:  "ctrl+alt+s",
}

// APIKeyEnv is the environment variable consulted when no key is stored.
const APIKeyEnv = "OPENAI_API_KEY"

var (
	ErrUnknownKey   = errors.New("unknown setting")
	ErrInvalidValue = errors.New("invalid setting value")
)

// Entry is one effective setting for display.
type Entry struct {
	Key    string
	Value  string
	Stored bool
	Secret bool
}

// Store is a JSON-backed settings file. All methods are safe for concurrent use.
type Store struct {
	path string

	mu     sync.Mutex
	values map[string]string
}

// ResolvePath returns the settings file inside the tellyspelly config directory.
func ResolvePath(configDir string) string {
	return filepath.Join(configDir, "settings.json")
}

// Open reads path when it exists; a missing file yields an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path, values: map[string]string{}}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read settings %q: %w", path, err)
	}
	if strings.TrimSpace(string(content)) == "" {
		return s, nil
	}

	var raw map[string]any
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("decode settings %q: %w", path, err)
	}
	for key, value := range raw {
		switch v := value.(type) {
		case string:
			s.values[key] = v
		case float64:
			s.values[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			s.values[key] = strconv.FormatBool(v)
		}
	}
	return s, nil
}

// Path reports the backing file location.
func (s *Store) Path() string {
	return s.path
}

// Get returns the effective value for key, falling back to the default when the
// stored value does not validate.
func (s *Store) Get(key string) (string, error) {
	def, ok := defaults[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	s.mu.Lock()
	value, stored := s.values[key]
	s.mu.Unlock()

	if !stored {
		return def, nil
	}
	if err := validateValue(key, value); err != nil {
		return def, nil
	}
	if key == KeyLanguage && value == "" {
		return "auto", nil
	}
	if key == KeyMicIndex {
		n, _ := strconv.Atoi(strings.TrimSpace(value))
		return strconv.Itoa(n), nil
	}
	return value, nil
}

// Set validates value and persists it. Invalid values leave the store unchanged.
func (s *Store) Set(key string, value string) error {
	if _, ok := defaults[key]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	if key != KeyAPIKey {
		value = strings.TrimSpace(value)
	}
	if key == KeyStartShortcut || key == KeyStopShortcut {
		value = strings.ToLower(value)
	}
	if err := validateValue(key, value); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, had := s.values[key]
	s.values[key] = value
	if err := s.persistLocked(); err != nil {
		if had {
			s.values[key] = previous
		} else {
			delete(s.values, key)
		}
		return err
	}
	return nil
}

// List returns every known setting with its effective value.
func (s *Store) List() []Entry {
	entries := make([]Entry, 0, len(Keys))
	for _, key := range Keys {
		value, _ := s.Get(key)
		s.mu.Lock()
		_, stored := s.values[key]
		s.mu.Unlock()
		entries = append(entries, Entry{Key: key, Value: value, Stored: stored, Secret: key == KeyAPIKey})
	}
	return entries
}

// Model returns the configured transcription model.
func (s *Store) Model() string {
	value, _ := s.Get(KeyModel)
	return value
}

// Language returns the configured language hint ("auto" when unset).
func (s *Store) Language() string {
	value, _ := s.Get(KeyLanguage)
	return value
}

// MicIndex returns the configured input device index; -1 selects the default device.
func (s *Store) MicIndex() int {
	value, _ := s.Get(KeyMicIndex)
	n, err := strconv.Atoi(value)
	if err != nil {
		return -1
	}
	return n
}

// Shortcuts returns the parsed start and stop shortcuts. Unset shortcuts are zero values.
func (s *Store) Shortcuts() (Shortcut, Shortcut) {
	start, _ := s.Get(KeyStartShortcut)
	stop, _ := s.Get(KeyStopShortcut)
	startShortcut, _ := ParseShortcut(start)
	stopShortcut, _ := ParseShortcut(stop)
	return startShortcut, stopShortcut
}

// APIKey resolves the OpenAI key from the store, then OPENAI_API_KEY, then a
// .env file next to the settings file. source names where the key came from.
func (s *Store) APIKey() (key string, source string) {
	if value, _ := s.Get(KeyAPIKey); strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value), "settings"
	}
	if value := strings.TrimSpace(os.Getenv(APIKeyEnv)); value != "" {
		return value, "env"
	}

	envFile := filepath.Join(filepath.Dir(s.path), ".env")
	values, err := godotenv.Read(envFile)
	if err != nil {
		return "", ""
	}
	if value := strings.TrimSpace(values[APIKeyEnv]); value != "" {
		return value, envFile
	}
	return "", ""
}

// persistLocked writes the store atomically with owner-only permissions.
func (s *Store) persistLocked() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	payload, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	payload = append(payload, '\n')

	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return fmt.Errorf("create settings temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod settings temp file: %w", err)
	}
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write settings temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close settings temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace settings %q: %w", s.path, err)
	}
	return nil
}

// Mask hides all but the last four characters of a secret.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", 8) + secret[len(secret)-4:]
}
