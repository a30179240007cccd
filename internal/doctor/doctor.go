// Package doctor runs readiness diagnostics for config, credentials, clipboard, and audio.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/rbright/tellyspelly/internal/audio"
	"github.com/rbright/tellyspelly/internal/config"
	"github.com/rbright/tellyspelly/internal/settings"
	"github.com/rbright/tellyspelly/internal/transcribe"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", status, check.Name, check.Message)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Preferences is the settings surface doctor reads.
type Preferences interface {
	Path() string
	MicIndex() int
	APIKey() (key string, source string)
}

var clipboardUnsupported = func() bool { return clipboard.Unsupported }

// Run executes every check for a loaded config and settings store.
func Run(ctx context.Context, cfg config.Loaded, prefs Preferences) Report {
	checks := []Check{configCheck(cfg)}
	checks = append(checks, Check{Name: "settings", Pass: true, Message: fmt.Sprintf("using %q", prefs.Path())})

	switch cfg.Config.Backend {
	case config.BackendLocal:
		checks = append(checks, checkLocalModel(ctx, cfg.Config))
	default:
		checks = append(checks, checkAPIKey(prefs))
	}

	checks = append(checks, checkClipboard(cfg.Config))

	if cfg.Config.Paste.Enable {
		switch {
		case len(cfg.Config.PasteCmd.Argv) > 0:
			checks = append(checks, checkCommand(cfg.Config.PasteCmd.Argv, "paste_cmd"))
		case cfg.Config.Paste.Backend == "hypr":
			checks = append(checks, checkEnv("HYPRLAND_INSTANCE_SIGNATURE", func(v string) bool {
				return strings.TrimSpace(v) != ""
			}, "Hyprland session detected", "HYPRLAND_INSTANCE_SIGNATURE is empty"))
			checks = append(checks, checkBinary("hyprctl", "hypr paste requires hyprctl"))
		default:
			checks = append(checks, checkUinput())
		}
	}

	checks = append(checks, checkAudioSelection(ctx, cfg.Config, prefs.MicIndex()))
	return Report{Checks: checks}
}

func configCheck(cfg config.Loaded) Check {
	if !cfg.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%q not found; using defaults", cfg.Path)}
	}
	return Check{Name: "config", Pass: true, Message: fmt.Sprintf("loaded %q", cfg.Path)}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	if predicate(os.Getenv(name)) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

func checkAPIKey(prefs Preferences) Check {
	key, source := prefs.APIKey()
	if key == "" {
		return Check{Name: "openai.api_key", Pass: false, Message: transcribe.ErrMissingAPIKey.Error()}
	}
	return Check{Name: "openai.api_key", Pass: true, Message: fmt.Sprintf("%s (from %s)", settings.Mask(key), source)}
}

func checkLocalModel(ctx context.Context, cfg config.Config) Check {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	local := transcribe.NewLocal(cfg.Local, transcribe.NewHTTPClient(2*time.Second))
	if err := local.IsAvailable(ctx); err != nil {
		return Check{Name: "local.health", Pass: false, Message: err.Error()}
	}
	return Check{Name: "local.health", Pass: true, Message: fmt.Sprintf("ready at %s", strings.TrimRight(cfg.Local.URL, "/")+cfg.Local.HealthPath)}
}

func checkClipboard(cfg config.Config) Check {
	if len(cfg.Clipboard.Argv) > 0 {
		return checkCommand(cfg.Clipboard.Argv, "clipboard_cmd")
	}
	if clipboardUnsupported() {
		return Check{Name: "clipboard", Pass: false, Message: "no clipboard utility found (install wl-clipboard, xclip, or xsel, or set clipboard_cmd)"}
	}
	return Check{Name: "clipboard", Pass: true, Message: "system clipboard available"}
}

// checkUinput reports whether synthetic key events can be injected.
func checkUinput() Check {
	f, err := os.OpenFile("/dev/uinput", os.O_WRONLY, 0)
	if err != nil {
		return Check{Name: "uinput", Pass: false, Message: fmt.Sprintf("keyboard paste needs write access to /dev/uinput: %v", err)}
	}
	_ = f.Close()
	return Check{Name: "uinput", Pass: true, Message: "/dev/uinput is writable"}
}

// checkAudioSelection runs live device selection to surface missing or unusable inputs.
func checkAudioSelection(ctx context.Context, cfg config.Config, micIndex int) Check {
	driver, err := audio.NewDriver(cfg.Audio.Driver, cfg.Audio.PulseSampleRate)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	selection, err := audio.SelectDevice(ctx, driver, micIndex)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("%s via %s", audio.Describe(selection.Device), driver.Name())
	if selection.Warning != "" {
		message += " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}
