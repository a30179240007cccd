package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rbright/tellyspelly/internal/audio"
	"github.com/rbright/tellyspelly/internal/config"
	"github.com/rbright/tellyspelly/internal/session"
	"github.com/rbright/tellyspelly/internal/transcribe"
	"github.com/stretchr/testify/require"
)

type fakeStream struct{ rate int }

func (s *fakeStream) SampleRate() int { return s.rate }
func (s *fakeStream) Start() error    { return nil }
func (s *fakeStream) Close() error    { return nil }

type fakeDriver struct {
	rate    int
	devices []audio.Device

	mu        sync.Mutex
	opened    audio.Device
	onSamples func([]int16)
}

func (d *fakeDriver) Name() string { return "fake" }

func (d *fakeDriver) ListDevices(context.Context) ([]audio.Device, error) {
	if d.devices != nil {
		return d.devices, nil
	}
	return []audio.Device{{Index: 0, Name: "Built-in", MaxInputChannels: 1, Available: true, Default: true}}, nil
}

func (d *fakeDriver) Open(_ context.Context, device audio.Device, onSamples func([]int16)) (audio.Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened = device
	d.onSamples = onSamples
	return &fakeStream{rate: d.rate}, nil
}

func (d *fakeDriver) feed(samples []int16) {
	d.mu.Lock()
	cb := d.onSamples
	d.mu.Unlock()
	cb(samples)
}

type fakePrefs struct {
	mic      int
	model    string
	language string
}

func (p fakePrefs) MicIndex() int    { return p.mic }
func (p fakePrefs) Model() string    { return p.model }
func (p fakePrefs) Language() string { return p.language }

type fakeBackend struct {
	text        string
	err         error
	precheckErr error

	mu   sync.Mutex
	req  transcribe.Request
	wav  audio.Recording
	read error
}

func (b *fakeBackend) Name() string    { return "fake" }
func (b *fakeBackend) Precheck() error { return b.precheckErr }

func (b *fakeBackend) Transcribe(_ context.Context, req transcribe.Request) (string, error) {
	rec, err := audio.ReadWAV(req.AudioPath)
	b.mu.Lock()
	b.req, b.wav, b.read = req, rec, err
	b.mu.Unlock()
	return b.text, b.err
}

func newTestTranscriber(t *testing.T, cfg config.Config, driver *fakeDriver, backend *fakeBackend) *Transcriber {
	t.Helper()
	tr := New(cfg, driver, fakePrefs{mic: -1, model: "whisper-1", language: "de"}, backend, nil)
	tr.tempDir = t.TempDir()
	return tr
}

func TestStartStopTranscribesResampledAudio(t *testing.T) {
	driver := &fakeDriver{rate: 48000}
	backend := &fakeBackend{text: "  hallo welt  "}
	tr := newTestTranscriber(t, config.Default(), driver, backend)

	require.NoError(t, tr.Start(context.Background()))
	require.Equal(t, "Built-in", driver.opened.Name)

	chunk := make([]int16, audio.FramesPerBuffer)
	for i := range chunk {
		chunk[i] = int16(i * 16)
	}
	for range 47 {
		driver.feed(chunk)
	}

	result, err := tr.StopAndTranscribe(context.Background())
	require.NoError(t, err)
	require.Equal(t, "hallo welt", result.Transcript)
	require.Equal(t, "Built-in [0]", result.AudioDevice)
	require.Equal(t, "fake", result.Backend)
	require.Equal(t, int64(47*audio.FramesPerBuffer), result.SamplesCaptured)
	require.Equal(t, time.Duration(47*audio.FramesPerBuffer)*time.Second/48000, result.AudioDuration)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	require.NoError(t, backend.read)
	require.Equal(t, audio.TargetSampleRate, backend.wav.SampleRate)
	require.Len(t, backend.wav.Samples, 47*audio.FramesPerBuffer/3)
	require.Equal(t, "de", backend.req.Language)
	require.Equal(t, "whisper-1", backend.req.Model)
	require.True(t, backend.req.Temporary)

	_, statErr := os.Stat(backend.req.AudioPath)
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestStopWithoutAudioReturnsErrNoAudio(t *testing.T) {
	driver := &fakeDriver{rate: 16000}
	tr := newTestTranscriber(t, config.Default(), driver, &fakeBackend{text: "unused"})

	require.NoError(t, tr.Start(context.Background()))
	_, err := tr.StopAndTranscribe(context.Background())
	require.ErrorIs(t, err, audio.ErrNoAudio)

	// the pipeline is reusable after a failed stop
	require.NoError(t, tr.Start(context.Background()))
	require.NoError(t, tr.Cancel(context.Background()))
}

func TestStopBeforeStart(t *testing.T) {
	tr := newTestTranscriber(t, config.Default(), &fakeDriver{rate: 16000}, &fakeBackend{})
	_, err := tr.StopAndTranscribe(context.Background())
	require.ErrorIs(t, err, session.ErrNotRecording)
}

func TestStartFailsWhenAlreadyStarted(t *testing.T) {
	tr := newTestTranscriber(t, config.Default(), &fakeDriver{rate: 16000}, &fakeBackend{})
	require.NoError(t, tr.Start(context.Background()))
	t.Cleanup(func() { _ = tr.Cancel(context.Background()) })

	err := tr.Start(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "already started")
}

func TestStartPrecheckFailsBeforeOpeningDevice(t *testing.T) {
	driver := &fakeDriver{rate: 16000}
	tr := newTestTranscriber(t, config.Default(), driver, &fakeBackend{precheckErr: transcribe.ErrMissingAPIKey})

	err := tr.Start(context.Background())
	require.ErrorIs(t, err, transcribe.ErrMissingAPIKey)
	require.Empty(t, driver.opened.Name)
}

func TestStartDeviceSelectionError(t *testing.T) {
	driver := &fakeDriver{rate: 16000, devices: []audio.Device{{Index: 0, Name: "Broken", Default: true}}}
	tr := newTestTranscriber(t, config.Default(), driver, &fakeBackend{})

	err := tr.Start(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "no input channels")
}

func TestCancelDiscardsAudio(t *testing.T) {
	driver := &fakeDriver{rate: 16000}
	backend := &fakeBackend{text: "never"}
	tr := newTestTranscriber(t, config.Default(), driver, backend)

	require.NoError(t, tr.Start(context.Background()))
	driver.feed([]int16{1, 2, 3})
	require.NoError(t, tr.Cancel(context.Background()))
	require.NoError(t, tr.Cancel(context.Background()))

	_, err := tr.StopAndTranscribe(context.Background())
	require.ErrorIs(t, err, session.ErrNotRecording)
	require.Empty(t, backend.req.AudioPath)
}

func TestTranscribeRecordingBackendErrorRemovesTempFile(t *testing.T) {
	backend := &fakeBackend{err: errors.New("upstream 500")}
	tr := newTestTranscriber(t, config.Default(), &fakeDriver{rate: 16000}, backend)

	_, err := tr.TranscribeRecording(context.Background(), audio.Recording{Samples: []int16{1, 2, 3, 4}, SampleRate: 8000})
	require.ErrorContains(t, err, "upstream 500")

	matches, globErr := filepath.Glob(filepath.Join(tr.tempDir, TempPrefix+"*.wav"))
	require.NoError(t, globErr)
	require.Empty(t, matches)
}

func TestTranscribeRecordingAppliesTranscriptOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Transcript.TrailingSpace = true
	cfg.Transcript.CapitalizeSentences = true
	tr := newTestTranscriber(t, cfg, &fakeDriver{rate: 16000}, &fakeBackend{text: "i said hello. then left"})

	result, err := tr.TranscribeRecording(context.Background(), audio.Recording{Samples: []int16{1, 2, 3, 4}, SampleRate: 16000})
	require.NoError(t, err)
	require.Equal(t, "I said hello. Then left ", result.Transcript)
}

func TestTranscribeRecordingEmpty(t *testing.T) {
	tr := newTestTranscriber(t, config.Default(), &fakeDriver{rate: 16000}, &fakeBackend{text: "x"})
	_, err := tr.TranscribeRecording(context.Background(), audio.Recording{SampleRate: 16000})
	require.ErrorIs(t, err, audio.ErrNoAudio)
}

func TestWriteDebugAudioCreatesWavWhenEnabled(t *testing.T) {
	xdgStateHome := t.TempDir()
	t.Setenv("XDG_STATE_HOME", xdgStateHome)

	cfg := config.Default()
	cfg.Debug.EnableAudioDump = true
	tr := newTestTranscriber(t, cfg, &fakeDriver{rate: 16000}, &fakeBackend{})

	tr.writeDebugAudio(audio.Recording{Samples: []int16{1, 2}, SampleRate: 16000})

	matches, err := filepath.Glob(filepath.Join(xdgStateHome, "tellyspelly", "debug", "audio-*.wav"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	info, err := os.Stat(matches[0])
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestWriteDebugAudioSkippedWhenDisabled(t *testing.T) {
	xdgStateHome := t.TempDir()
	t.Setenv("XDG_STATE_HOME", xdgStateHome)

	tr := newTestTranscriber(t, config.Default(), &fakeDriver{rate: 16000}, &fakeBackend{})
	tr.writeDebugAudio(audio.Recording{Samples: []int16{1, 2}, SampleRate: 16000})

	matches, err := filepath.Glob(filepath.Join(xdgStateHome, "tellyspelly", "debug", "audio-*.wav"))
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestCleanupStaleTemp(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, TempPrefix+"old.wav")
	fresh := filepath.Join(dir, TempPrefix+"new.wav")
	other := filepath.Join(dir, "keep.wav")
	for _, path := range []string{stale, fresh, other} {
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	}
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))
	require.NoError(t, os.Chtimes(other, old, old))

	removed, err := CleanupStaleTemp(dir, time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	require.NoFileExists(t, stale)
	require.FileExists(t, fresh)
	require.FileExists(t, other)
}
