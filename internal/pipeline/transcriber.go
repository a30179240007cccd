// Package pipeline wires capture, resampling, WAV staging and transcription
// into the session.Transcriber used by the controller.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rbright/tellyspelly/internal/audio"
	"github.com/rbright/tellyspelly/internal/config"
	"github.com/rbright/tellyspelly/internal/logging"
	"github.com/rbright/tellyspelly/internal/session"
	"github.com/rbright/tellyspelly/internal/transcribe"
	"github.com/rbright/tellyspelly/internal/transcript"
)

// TempPrefix names staged WAV files in the temp directory.
const TempPrefix = "tellyspelly-"

// Preferences are the user settings the pipeline reads on every dictation.
type Preferences interface {
	MicIndex() int
	Model() string
	Language() string
}

// Transcriber records one dictation at a time and turns it into text.
type Transcriber struct {
	cfg     config.Config
	driver  audio.Driver
	prefs   Preferences
	backend transcribe.Backend
	worker  *transcribe.Worker
	logger  *slog.Logger
	tempDir string

	mu          sync.Mutex
	recorder    *audio.Recorder
	selection   audio.Selection
	monitorDone chan struct{}
	peak        float64
}

// New builds a pipeline around backend. Temp WAVs go to os.TempDir().
func New(cfg config.Config, driver audio.Driver, prefs Preferences, backend transcribe.Backend, logger *slog.Logger) *Transcriber {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	timeout := time.Duration(cfg.RequestTimeoutMS) * time.Millisecond
	return &Transcriber{
		cfg:     cfg,
		driver:  driver,
		prefs:   prefs,
		backend: backend,
		worker:  transcribe.NewWorker(backend, timeout, logger),
		logger:  logger,
		tempDir: os.TempDir(),
	}
}

// Start checks the backend configuration, resolves the input device and begins capture.
func (t *Transcriber) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.recorder != nil {
		return errors.New("transcriber already started")
	}
	if err := t.backend.Precheck(); err != nil {
		return err
	}

	selection, err := audio.SelectDevice(ctx, t.driver, t.prefs.MicIndex())
	if err != nil {
		return err
	}
	if selection.Warning != "" {
		t.logger.Warn(selection.Warning, "device", audio.Describe(selection.Device))
	}

	recorder := audio.NewRecorder(t.driver, selection.Device)
	if err := recorder.Start(ctx); err != nil {
		return err
	}

	t.selection = selection
	t.recorder = recorder
	t.peak = 0
	t.monitorDone = make(chan struct{})
	go t.monitor(recorder.Levels(), t.monitorDone)

	t.logger.Info("recording started",
		"device", audio.Describe(selection.Device),
		"driver", t.driver.Name(),
		"fallback", selection.Fallback,
	)
	return nil
}

// monitor drains the level channel until the recorder stops and keeps the peak.
func (t *Transcriber) monitor(levels <-chan float64, done chan<- struct{}) {
	defer close(done)
	meter := audio.NewMeter()
	for level := range levels {
		_, peak := meter.Update(level)
		t.mu.Lock()
		if peak > t.peak {
			t.peak = peak
		}
		t.mu.Unlock()
	}
}

// StopAndTranscribe ends capture and returns the normalized transcript.
func (t *Transcriber) StopAndTranscribe(ctx context.Context) (session.StopResult, error) {
	recorder, selection, done := t.detach()
	if recorder == nil {
		return session.StopResult{}, session.ErrNotRecording
	}

	recording, err := recorder.Stop()
	<-done

	result := session.StopResult{
		AudioDevice:     audio.Describe(selection.Device),
		Backend:         t.backend.Name(),
		SamplesCaptured: recorder.FramesCaptured(),
	}
	t.mu.Lock()
	peak := t.peak
	t.mu.Unlock()
	t.logger.Info("recording stopped",
		"samples", result.SamplesCaptured,
		"peak_level", peak,
	)
	if err != nil {
		return result, err
	}

	transcribed, err := t.TranscribeRecording(ctx, recording)
	transcribed.AudioDevice = result.AudioDevice
	transcribed.SamplesCaptured = result.SamplesCaptured
	return transcribed, err
}

// TranscribeRecording resamples rec to 16 kHz, stages it as a temp WAV and
// waits for the worker. The temp file is gone when this returns.
func (t *Transcriber) TranscribeRecording(ctx context.Context, rec audio.Recording) (session.StopResult, error) {
	result := session.StopResult{
		Backend:         t.backend.Name(),
		SamplesCaptured: int64(len(rec.Samples)),
		AudioDuration:   rec.Duration(),
	}
	if len(rec.Samples) == 0 {
		return result, audio.ErrNoAudio
	}

	conformed := rec.To16k()
	t.writeDebugAudio(conformed)

	path := filepath.Join(t.tempDir, TempPrefix+uuid.NewString()+".wav")
	if err := audio.WriteWAV(path, conformed.Samples, conformed.SampleRate); err != nil {
		_ = os.Remove(path)
		return result, fmt.Errorf("stage audio: %w", err)
	}

	started := time.Now()
	job, err := t.worker.Submit(ctx, transcribe.Request{
		AudioPath: path,
		Language:  t.prefs.Language(),
		Model:     t.prefs.Model(),
		Temporary: true,
	})
	if err != nil {
		_ = os.Remove(path)
		return result, err
	}

	for event := range job.Events() {
		if event.Kind == transcribe.EventProgress {
			t.logger.Debug(event.Message, "job", event.JobID)
		}
	}
	text, err := job.Wait(ctx)
	result.TranscribeLatency = time.Since(started)
	if err != nil {
		return result, err
	}

	result.Transcript = transcript.Normalize(text, transcript.Options{
		TrailingSpace:       t.cfg.Transcript.TrailingSpace,
		CapitalizeSentences: t.cfg.Transcript.CapitalizeSentences,
	})
	if strings.TrimSpace(result.Transcript) == "" {
		return result, transcribe.ErrEmptyTranscription
	}
	return result, nil
}

// Cancel stops capture and drops whatever was recorded.
func (t *Transcriber) Cancel(_ context.Context) error {
	recorder, _, done := t.detach()
	if recorder == nil {
		return nil
	}
	_, _ = recorder.Stop()
	<-done
	t.logger.Info("recording cancelled", "samples", recorder.FramesCaptured())
	return nil
}

func (t *Transcriber) detach() (*audio.Recorder, audio.Selection, <-chan struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	recorder, selection, done := t.recorder, t.selection, t.monitorDone
	t.recorder = nil
	t.selection = audio.Selection{}
	t.monitorDone = nil
	return recorder, selection, done
}

// writeDebugAudio keeps a copy of the 16 kHz audio under the state dir when
// debug.audio_dump is enabled. Failures are logged only.
func (t *Transcriber) writeDebugAudio(rec audio.Recording) {
	if !t.cfg.Debug.EnableAudioDump || len(rec.Samples) == 0 {
		return
	}

	dir, err := debugDir()
	if err != nil {
		t.logger.Warn("unable to create debug audio dump", "error", err.Error())
		return
	}
	path := filepath.Join(dir, fmt.Sprintf("audio-%s.wav", time.Now().Format("20060102-150405.000")))
	if err := audio.WriteWAV(path, rec.Samples, rec.SampleRate); err != nil {
		t.logger.Warn("unable to write debug audio dump", "error", err.Error())
		return
	}
	t.logger.Debug("debug audio dump written", "path", path)
}

func debugDir() (string, error) {
	stateDir, err := logging.StateDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(stateDir, "debug")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create debug dir: %w", err)
	}
	return dir, nil
}

// CleanupStaleTemp removes staged WAVs older than maxAge left behind by a
// crashed process. It returns the number of files removed.
func CleanupStaleTemp(dir string, maxAge time.Duration) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, TempPrefix+"*.wav"))
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	var errs []error
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
