package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rbright/tellyspelly/internal/audio"
	"github.com/rbright/tellyspelly/internal/cli"
	"github.com/rbright/tellyspelly/internal/hypr"
	"github.com/rbright/tellyspelly/internal/output"
	"github.com/rbright/tellyspelly/internal/pipeline"
	"github.com/rbright/tellyspelly/internal/settings"
	"github.com/rbright/tellyspelly/internal/transcribe"
)

const (
	defaultMicTest = 3 * time.Second
	meterWidth     = 30
)

func (r Runner) commandDevices(ctx context.Context, e env) int {
	driver, err := r.driver(e.cfg.Config)
	if err != nil {
		return r.fail(err)
	}
	devices, err := driver.ListDevices(ctx)
	if err != nil {
		return r.fail(err)
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	selected := e.store.MicIndex()
	for _, device := range devices {
		mark := " "
		switch {
		case selected >= 0 && device.Index == selected:
			mark = ">"
		case device.Default:
			mark = "*"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s %2d %q channels=%d rate=%.0f state=%s available=%s muted=%s\n",
			mark,
			device.Index,
			device.Name,
			device.MaxInputChannels,
			device.DefaultSampleRate,
			orDash(device.State),
			yesNo(device.Available),
			yesNo(device.Muted),
		)
	}
	return 0
}

// commandMicTest records for a few seconds and draws a live level meter.
func (r Runner) commandMicTest(ctx context.Context, e env, args []string) int {
	duration := defaultMicTest
	if len(args) > 0 {
		seconds, _ := strconv.ParseFloat(args[0], 64)
		duration = time.Duration(seconds * float64(time.Second))
	}

	driver, err := r.driver(e.cfg.Config)
	if err != nil {
		return r.fail(err)
	}
	selection, err := audio.SelectDevice(ctx, driver, e.store.MicIndex())
	if err != nil {
		return r.fail(err)
	}
	if selection.Warning != "" {
		fmt.Fprintf(r.Stderr, "warning: %s\n", selection.Warning)
	}

	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	recorder := audio.NewRecorder(driver, selection.Device)
	if err := recorder.Start(ctx); err != nil {
		return r.fail(err)
	}
	fmt.Fprintf(r.Stdout, "recording from %s for %s\n", audio.Describe(selection.Device), duration)

	meter := audio.NewMeter()
	loudest := 0.0
	levels := recorder.Levels()
	for running := true; running; {
		select {
		case <-ctx.Done():
			running = false
		case rms, ok := <-levels:
			if !ok {
				running = false
				break
			}
			loudest = math.Max(loudest, rms)
			level, peak := meter.Update(rms)
			fmt.Fprintf(r.Stdout, "\r%s %9s", audio.Bar(level, peak, meterWidth), audio.FormatDecibels(audio.Decibels(rms)))
		}
	}

	recording, err := recorder.Stop()
	fmt.Fprintln(r.Stdout)
	if err != nil {
		return r.fail(err)
	}
	fmt.Fprintf(r.Stdout, "captured %s at %d Hz; loudest %s\n",
		recording.Duration().Round(10*time.Millisecond),
		recording.SampleRate,
		audio.FormatDecibels(audio.Decibels(loudest)),
	)
	return 0
}

// commandTranscribe sends an existing WAV through the same path as a live
// recording and copies the result.
func (r Runner) commandTranscribe(ctx context.Context, e env, path string) int {
	recording, err := audio.ReadWAV(path)
	if err != nil {
		return r.fail(err)
	}

	cfg := e.cfg.Config
	apiKey, _ := e.store.APIKey()
	backend, err := transcribe.New(cfg, apiKey)
	if err != nil {
		return r.fail(err)
	}
	if err := backend.Precheck(); err != nil {
		return r.fail(err)
	}

	transcriber := pipeline.New(cfg, r.Driver, e.store, backend, e.logger)
	result, err := transcriber.TranscribeRecording(ctx, recording)
	if err != nil {
		e.logger.Error("file transcription failed", "path", path, "error", err.Error())
		return r.fail(err)
	}
	e.logger.Info("file transcribed",
		"path", path,
		"backend", result.Backend,
		"audio_ms", result.AudioDuration.Milliseconds(),
		"transcribe_latency_ms", result.TranscribeLatency.Milliseconds(),
	)

	if err := output.NewCommitter(cfg, e.logger).Commit(ctx, result.Transcript); err != nil {
		fmt.Fprintf(r.Stderr, "warning: %v\n", err)
	}
	fmt.Fprintln(r.Stdout, strings.TrimSpace(result.Transcript))
	return 0
}

func (r Runner) commandSettings(e env, args []string) int {
	switch args[0] {
	case cli.SettingsList:
		for _, entry := range e.store.List() {
			value := entry.Value
			if entry.Secret {
				value = r.describeAPIKey(e.store)
			}
			suffix := ""
			if !entry.Stored && !entry.Secret {
				suffix = " (default)"
			}
			fmt.Fprintf(r.Stdout, "%s = %s%s\n", entry.Key, value, suffix)
		}
		return 0
	case cli.SettingsGet:
		key := args[1]
		value, err := e.store.Get(key)
		if err != nil {
			return r.settingsError(err)
		}
		if key == settings.KeyAPIKey {
			value = r.describeAPIKey(e.store)
		}
		fmt.Fprintln(r.Stdout, value)
		return 0
	default:
		key, value := args[1], args[2]
		if err := e.store.Set(key, value); err != nil {
			return r.settingsError(err)
		}
		e.logger.Info("setting updated", "key", key)
		fmt.Fprintf(r.Stdout, "%s updated\n", key)
		return 0
	}
}

func (r Runner) describeAPIKey(store *settings.Store) string {
	key, source := store.APIKey()
	if key == "" {
		return "(not set)"
	}
	if source == "settings" {
		return settings.Mask(key)
	}
	return fmt.Sprintf("%s (from %s)", settings.Mask(key), source)
}

func (r Runner) settingsError(err error) int {
	fmt.Fprintf(r.Stderr, "error: %v\n", err)
	if errors.Is(err, settings.ErrUnknownKey) {
		fmt.Fprintf(r.Stderr, "known settings: %s\n", strings.Join(settings.Keys, ", "))
	}
	return 1
}

// commandShortcuts prints hyprland.conf binds for the stored shortcuts.
func (r Runner) commandShortcuts(e env) int {
	start, stop := e.store.Shortcuts()
	if start.IsZero() && stop.IsZero() {
		fmt.Fprintln(r.Stderr, "error: no shortcuts configured")
		return 1
	}
	if !hypr.Available() {
		fmt.Fprintln(r.Stderr, "warning: not running under Hyprland; binds are printed for reference")
	}

	fmt.Fprintln(r.Stdout, "# add to ~/.config/hypr/hyprland.conf")
	for _, bind := range []struct {
		shortcut settings.Shortcut
		command  string
	}{
		{start, "start"},
		{stop, "stop"},
	} {
		if bind.shortcut.IsZero() {
			continue
		}
		mods, key := bind.shortcut.Hyprland()
		fmt.Fprintln(r.Stdout, hypr.BindLine(mods, key, binaryName+" "+bind.command))
	}
	return 0
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}
