package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rbright/tellyspelly/internal/indicator"
	"github.com/rbright/tellyspelly/internal/ipc"
	"github.com/rbright/tellyspelly/internal/output"
	"github.com/rbright/tellyspelly/internal/pipeline"
	"github.com/rbright/tellyspelly/internal/session"
	"github.com/rbright/tellyspelly/internal/transcribe"
	"golang.org/x/sync/errgroup"
)

// staged WAVs older than this belong to a process that died mid-transcription
const staleTempAge = time.Hour

// commandStatus prints the owner's state, or idle when nobody owns the socket.
func (r Runner) commandStatus(ctx context.Context) int {
	state := "idle"
	if socketPath, err := ipc.RuntimeSocketPath(); err == nil {
		resp, handled, err := tryForward(ctx, socketPath, "status")
		if handled && err != nil {
			return r.fail(err)
		}
		if handled && resp.State != "" {
			state = resp.State
		}
	}
	fmt.Fprintln(r.Stdout, state)
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return r.fail(err)
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		return r.fail(fmt.Errorf("no active %s session", binaryName))
	}
	return r.printForwarded(resp, err)
}

func (r Runner) printForwarded(resp ipc.Response, err error) int {
	if err != nil {
		return r.fail(err)
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// commandOwn forwards command to a running owner, or becomes the owner and
// records until a later invocation sends stop or cancel.
func (r Runner) commandOwn(ctx context.Context, e env, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return r.fail(err)
	}
	if resp, handled, err := tryForward(ctx, socketPath, command); handled {
		return r.printForwarded(resp, err)
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if errors.Is(err, ipc.ErrAlreadyRunning) {
		// lost the race to another invocation
		resp, _, err := tryForward(ctx, socketPath, command)
		return r.printForwarded(resp, err)
	}
	if err != nil {
		return r.fail(err)
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	controller, err := r.newController(e)
	if err != nil {
		return r.fail(err)
	}

	var group errgroup.Group
	serveCtx, stopServing := context.WithCancel(ctx)
	group.Go(func() error { return ipc.Serve(serveCtx, listener, controller) })
	result := controller.Run(ctx)
	stopServing()
	if err := group.Wait(); err != nil {
		return r.fail(fmt.Errorf("ipc server failed: %w", err))
	}

	logSessionResult(e.logger, result)
	switch {
	case result.Cancelled:
		fmt.Fprintln(r.Stdout, "cancelled")
	case result.Err != nil:
		return r.fail(result.Err)
	case strings.TrimSpace(result.Transcript) != "":
		fmt.Fprintln(r.Stdout, strings.TrimSpace(result.Transcript))
	}
	return 0
}

// newController assembles the capture pipeline, committer and indicator for
// one owned session.
func (r Runner) newController(e env) (*session.Controller, error) {
	if removed, err := pipeline.CleanupStaleTemp(os.TempDir(), staleTempAge); err != nil {
		e.logger.Warn("stale temp cleanup failed", "error", err.Error())
	} else if removed > 0 {
		e.logger.Info("removed stale temp audio", "count", removed)
	}

	cfg := e.cfg.Config
	driver, err := r.driver(cfg)
	if err != nil {
		return nil, err
	}
	apiKey, keySource := e.store.APIKey()
	backend, err := transcribe.New(cfg, apiKey)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("transcription backend", "backend", backend.Name(), "key_source", keySource)

	return session.NewController(
		e.logger,
		pipeline.New(cfg, driver, e.store, backend, e.logger),
		output.NewCommitter(cfg, e.logger),
		indicator.New(cfg.Indicator, e.logger),
	), nil
}

// logSessionResult writes the one session.result line per dictation.
func logSessionResult(logger *slog.Logger, result session.Result) {
	if logger == nil {
		return
	}
	level := slog.LevelInfo
	attrs := []slog.Attr{
		slog.String("session", result.ID),
		slog.String("state", string(result.State)),
		slog.Bool("cancelled", result.Cancelled),
		slog.String("started_at", result.StartedAt.Format(time.RFC3339Nano)),
		slog.String("finished_at", result.FinishedAt.Format(time.RFC3339Nano)),
		slog.Int64("duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds()),
		slog.String("audio_device", result.AudioDevice),
		slog.String("backend", result.Backend),
		slog.Int64("samples_captured", result.SamplesCaptured),
		slog.Int64("audio_ms", result.AudioDuration.Milliseconds()),
		slog.Int("transcript_length", len(result.Transcript)),
		slog.Int64("transcribe_latency_ms", result.TranscribeLatency.Milliseconds()),
	}
	if result.Err != nil {
		level = slog.LevelError
		attrs = append(attrs, slog.String("error", result.Err.Error()))
	}
	logger.LogAttrs(context.Background(), level, "session.result", attrs...)
}

// tryForward sends command to a running owner. handled is false only when no
// owner is listening; an owner's rejection comes back as err.
func tryForward(ctx context.Context, socketPath string, command string) (resp ipc.Response, handled bool, err error) {
	resp, err = ipc.Send(ctx, socketPath, ipc.Request{Command: command}, 220*time.Millisecond)
	switch {
	case err == nil && resp.OK:
		return resp, true, nil
	case err == nil:
		return resp, true, errors.New(resp.Error)
	case ipc.Unreachable(err):
		return ipc.Response{}, false, nil
	default:
		return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
	}
}
