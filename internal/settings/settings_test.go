package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, err)
	return store
}

func TestOpenMissingFileUsesDefaults(t *testing.T) {
	store := newTestStore(t)

	require.Equal(t, "whisper-1", store.Model())
	require.Equal(t, "auto", store.Language())
	require.Equal(t, -1, store.MicIndex())

	start, stop := store.Shortcuts()
	require.Equal(t, "ctrl+alt+r", start.String())
	require.Equal(t, "ctrl+alt+s", stop.String())
}

func TestSetPersistsWithOwnerOnlyMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	store, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, store.Set(KeyModel, "gpt-4o-transcribe"))
	require.NoError(t, store.Set(KeyMicIndex, " 3 "))
	require.NoError(t, store.Set(KeyLanguage, "de"))

	stat, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), stat.Mode().Perm())

	reopened, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, "gpt-4o-transcribe", reopened.Model())
	require.Equal(t, 3, reopened.MicIndex())
	require.Equal(t, "de", reopened.Language())
}

func TestSetRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{name: "unknown model", key: KeyModel, value: "whisper-2", wantErr: "must be one of"},
		{name: "empty model", key: KeyModel, value: "", wantErr: "model"},
		{name: "unknown language", key: KeyLanguage, value: "xx", wantErr: "must be auto or one of"},
		{name: "non integer mic", key: KeyMicIndex, value: "usb", wantErr: "must be an integer"},
		{name: "mic below default", key: KeyMicIndex, value: "-2", wantErr: "between -1"},
		{name: "shortcut without modifier", key: KeyStartShortcut, value: "r", wantErr: "at least one modifier"},
		{name: "shortcut with two keys", key: KeyStopShortcut, value: "ctrl+r+s", wantErr: "more than one key"},
		{name: "api key with control chars", key: KeyAPIKey, value: "sk-\x01", wantErr: "printable ASCII"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newTestStore(t)
			err := store.Set(tc.key, tc.value)
			require.Error(t, err)
			require.ErrorIs(t, err, ErrInvalidValue)
			require.Contains(t, err.Error(), tc.wantErr)

			_, statErr := os.Stat(store.Path())
			require.True(t, os.IsNotExist(statErr), "invalid value must not be persisted")
		})
	}
}

func TestSetAndGetRejectUnknownKey(t *testing.T) {
	store := newTestStore(t)

	err := store.Set("theme", "dark")
	require.ErrorIs(t, err, ErrUnknownKey)

	_, err = store.Get("theme")
	require.ErrorIs(t, err, ErrUnknownKey)
}

func TestGetFallsBackWhenStoredValueInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	payload, err := json.Marshal(map[string]any{
		KeyModel:         "whisper-9",
		KeyLanguage:      "klingon",
		KeyMicIndex:      "usb-mic",
		KeyStartShortcut: "r",
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, payload, 0o600))

	store, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, "whisper-1", store.Model())
	require.Equal(t, "auto", store.Language())
	require.Equal(t, -1, store.MicIndex())

	start, _ := store.Shortcuts()
	require.Equal(t, "ctrl+alt+r", start.String())
}

func TestOpenAcceptsNumericMicIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"mic_index": 2}`), 0o600))

	store, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, 2, store.MicIndex())
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))

	_, err := Open(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode settings")
}

func TestEmptyLanguageMeansAuto(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set(KeyLanguage, ""))
	require.Equal(t, "auto", store.Language())
}

func TestAPIKeyResolutionOrder(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "settings.json"))
	require.NoError(t, err)

	t.Setenv(APIKeyEnv, "")
	key, source := store.APIKey()
	require.Empty(t, key)
	require.Empty(t, source)

	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("OPENAI_API_KEY=sk-from-dotenv\n"), 0o600))
	key, source = store.APIKey()
	require.Equal(t, "sk-from-dotenv", key)
	require.Equal(t, envFile, source)

	t.Setenv(APIKeyEnv, "sk-from-env")
	key, source = store.APIKey()
	require.Equal(t, "sk-from-env", key)
	require.Equal(t, "env", source)

	require.NoError(t, store.Set(KeyAPIKey, "sk-stored"))
	key, source = store.APIKey()
	require.Equal(t, "sk-stored", key)
	require.Equal(t, "settings", source)
}

func TestListMarksSecretAndStoredEntries(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set(KeyModel, "gpt-4o-transcribe"))

	entries := store.List()
	require.Len(t, entries, len(Keys))
	require.Equal(t, KeyAPIKey, entries[0].Key)
	require.True(t, entries[0].Secret)
	require.False(t, entries[0].Stored)
	require.Equal(t, KeyModel, entries[1].Key)
	require.True(t, entries[1].Stored)
	require.Equal(t, "gpt-4o-transcribe", entries[1].Value)
}

func TestMask(t *testing.T) {
	require.Equal(t, "", Mask(""))
	require.Equal(t, "***", Mask("abc"))
	require.Equal(t, "********wxyz", Mask("sk-abcdefwxyz"))
}
