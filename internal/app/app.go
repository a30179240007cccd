// Package app dispatches tellyspelly commands and owns the session lifecycle.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/rbright/tellyspelly/internal/audio"
	"github.com/rbright/tellyspelly/internal/cli"
	"github.com/rbright/tellyspelly/internal/config"
	"github.com/rbright/tellyspelly/internal/doctor"
	"github.com/rbright/tellyspelly/internal/logging"
	"github.com/rbright/tellyspelly/internal/settings"
	"github.com/rbright/tellyspelly/internal/version"
)

const binaryName = "tellyspelly"

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	// Driver overrides the configured capture driver.
	Driver audio.Driver
}

// env is the per-invocation state shared by commands after setup.
type env struct {
	cfg    config.Loaded
	store  *settings.Store
	logger *slog.Logger
}

// Execute runs one invocation with a default Runner and returns its exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

// Execute parses args and runs the command: 0 on success, 1 when the command
// fails and 2 for usage errors.
func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	switch {
	case err != nil:
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return 2
	case parsed.ShowHelp:
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return 0
	case parsed.Command == cli.CommandVersion:
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		return r.fail(fmt.Errorf("setup logging: %w", err))
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	e, err := r.setup(parsed.ConfigPath, logger)
	if err != nil {
		logger.Error("setup failed", "command", parsed.Command, "error", err.Error())
		return r.fail(err)
	}
	logger.Info("command start",
		"command", parsed.Command,
		"config", e.cfg.Path,
		"settings", e.store.Path(),
		"log", logRuntime.Path,
	)
	return r.dispatch(ctx, e, parsed)
}

// setup loads config and opens the settings store kept beside it, so
// --config relocates both.
func (r Runner) setup(configPath string, logger *slog.Logger) (env, error) {
	loaded, err := config.Load(configPath)
	if err != nil {
		return env{}, err
	}
	for _, w := range loaded.Warnings {
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
		if !loaded.Exists {
			continue
		}
		if w.Line > 0 {
			fmt.Fprintf(r.Stderr, "warning: line %d: %s\n", w.Line, w.Message)
		} else {
			fmt.Fprintf(r.Stderr, "warning: %s\n", w.Message)
		}
	}

	store, err := settings.Open(settings.ResolvePath(filepath.Dir(loaded.Path)))
	if err != nil {
		return env{}, err
	}
	return env{cfg: loaded, store: store, logger: logger}, nil
}

func (r Runner) dispatch(ctx context.Context, e env, parsed cli.Parsed) int {
	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, e.cfg, e.store)
		fmt.Fprintln(r.Stdout, report.String())
		if !report.OK() {
			return 1
		}
		return 0
	case cli.CommandDevices:
		return r.commandDevices(ctx, e)
	case cli.CommandMicTest:
		return r.commandMicTest(ctx, e, parsed.Args)
	case cli.CommandTranscribe:
		return r.commandTranscribe(ctx, e, parsed.Args[0])
	case cli.CommandSettings:
		return r.commandSettings(e, parsed.Args)
	case cli.CommandShortcuts:
		return r.commandShortcuts(e)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandStop, cli.CommandCancel:
		return r.forwardOrFail(ctx, string(parsed.Command))
	case cli.CommandToggle, cli.CommandStart:
		return r.commandOwn(ctx, e, string(parsed.Command))
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) fail(err error) int {
	fmt.Fprintf(r.Stderr, "error: %v\n", err)
	return 1
}

func (r Runner) driver(cfg config.Config) (audio.Driver, error) {
	if r.Driver != nil {
		return r.Driver, nil
	}
	return audio.NewDriver(cfg.Audio.Driver, cfg.Audio.PulseSampleRate)
}
