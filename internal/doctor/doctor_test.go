package doctor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rbright/tellyspelly/internal/config"
	"github.com/stretchr/testify/require"
)

type fakePrefs struct {
	key    string
	source string
}

func (p fakePrefs) Path() string             { return "/tmp/settings.json" }
func (p fakePrefs) MicIndex() int            { return -1 }
func (p fakePrefs) APIKey() (string, string) { return p.key, p.source }

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	require.Equal(t, "[OK] one: good\n[FAIL] two: bad", report.String())

	report = Report{Checks: []Check{{Name: "one", Pass: true}, {Name: "two", Pass: true}}}
	require.True(t, report.OK())
}

func TestCheckEnv(t *testing.T) {
	t.Setenv("TEST_DOCTOR_ENV", "set")

	check := checkEnv("TEST_DOCTOR_ENV", func(v string) bool { return v == "set" }, "looks good", "unexpected")
	require.True(t, check.Pass)
	require.Equal(t, "looks good", check.Message)
}

func TestCheckCommandAndBinary(t *testing.T) {
	check := checkCommand(nil, "clipboard_cmd")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "command is empty")

	check = checkBinary("definitely-not-a-real-binary", "unused")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "binary not found")

	installFakeBinary(t, "fake-bin")
	check = checkCommand([]string{"fake-bin", "--arg"}, "clipboard_cmd")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "clipboard_cmd command is available")
}

func TestCheckAPIKeyMasksSecret(t *testing.T) {
	check := checkAPIKey(fakePrefs{key: "sk-abcdefghijklmnop", source: "env"})
	require.True(t, check.Pass)
	require.NotContains(t, check.Message, "abcdefghijklmnop")
	require.Contains(t, check.Message, "(from env)")

	check = checkAPIKey(fakePrefs{})
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "openai api key not configured")
}

func TestCheckLocalModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Local.URL = server.URL

	check := checkLocalModel(context.Background(), cfg)
	require.True(t, check.Pass)
	require.Equal(t, "ready at "+server.URL+"/health", check.Message)
}

func TestCheckLocalModelFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Local.URL = server.URL

	check := checkLocalModel(context.Background(), cfg)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "503")
}

func TestCheckClipboard(t *testing.T) {
	original := clipboardUnsupported
	t.Cleanup(func() { clipboardUnsupported = original })

	clipboardUnsupported = func() bool { return true }
	check := checkClipboard(config.Default())
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "clipboard_cmd")

	clipboardUnsupported = func() bool { return false }
	require.True(t, checkClipboard(config.Default()).Pass)

	cfg := config.Default()
	cfg.Clipboard = config.CommandConfig{Raw: "missing-copy-tool", Argv: []string{"missing-copy-tool"}}
	require.False(t, checkClipboard(cfg).Pass)
}

func TestCheckAudioSelectionUnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Audio.Driver = "alsa"

	check := checkAudioSelection(context.Background(), cfg, -1)
	require.False(t, check.Pass)
	require.Equal(t, "audio.device", check.Name)
	require.Contains(t, check.Message, "unknown audio driver")
}

func TestRunChoosesChecksFromConfig(t *testing.T) {
	installFakeBinary(t, "fake-paste")
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	cfg := config.Default()
	cfg.Audio.Driver = config.DriverPulse
	cfg.Paste.Enable = true
	cfg.PasteCmd = config.CommandConfig{Raw: "fake-paste", Argv: []string{"fake-paste"}}

	report := Run(context.Background(), config.Loaded{Path: "/tmp/config.jsonc", Config: cfg}, fakePrefs{})
	names := checkNames(report)
	require.Equal(t, []string{"config", "settings", "openai.api_key", "clipboard", "fake-paste", "audio.device"}, names)
	require.Contains(t, report.Checks[0].Message, "using defaults")
	require.False(t, report.OK())
}

func TestRunHyprPasteChecksSession(t *testing.T) {
	installFakeBinary(t, "hyprctl")
	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "abc123")
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	cfg := config.Default()
	cfg.Backend = config.BackendLocal
	cfg.Local.URL = "http://127.0.0.1:1"
	cfg.Audio.Driver = config.DriverPulse
	cfg.Paste.Enable = true
	cfg.Paste.Backend = "hypr"

	report := Run(context.Background(), config.Loaded{Path: "/tmp/config.jsonc", Exists: true, Config: cfg}, fakePrefs{})
	names := checkNames(report)
	require.Contains(t, names, "local.health")
	require.Contains(t, names, "HYPRLAND_INSTANCE_SIGNATURE")
	require.Contains(t, names, "hyprctl")
	require.NotContains(t, names, "openai.api_key")
}

func checkNames(report Report) []string {
	names := make([]string, 0, len(report.Checks))
	for _, check := range report.Checks {
		names = append(names, check.Name)
	}
	return names
}

func installFakeBinary(t *testing.T, name string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("#!/usr/bin/env sh\nexit 0\n"), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}
