package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrNoAudio reports a recording that stopped before any samples arrived.
var ErrNoAudio = errors.New("no audio was recorded")

const levelBuffer = 32

// Recorder accumulates mono int16 PCM from one device until Stop hands it off.
type Recorder struct {
	driver Driver
	device Device

	mu         sync.Mutex
	stream     Stream
	sampleRate int
	samples    []int16
	started    bool
	stopped    bool
	result     Recording
	resultErr  error

	levels chan float64
	frames atomic.Int64
}

// NewRecorder prepares a recorder for device on driver. Call Start to open the stream.
func NewRecorder(driver Driver, device Device) *Recorder {
	return &Recorder{
		driver: driver,
		device: device,
		levels: make(chan float64, levelBuffer),
	}
}

// Start opens and starts the input stream. Cancelling ctx stops the recorder.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return errors.New("recorder already started")
	}
	r.started = true
	r.mu.Unlock()

	stream, err := r.driver.Open(ctx, r.device, r.onSamples)
	if err != nil {
		return fmt.Errorf("open %s input %q: %w", r.driver.Name(), r.device.Name, err)
	}

	r.mu.Lock()
	r.stream = stream
	r.sampleRate = stream.SampleRate()
	r.mu.Unlock()

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return fmt.Errorf("start %s input %q: %w", r.driver.Name(), r.device.Name, err)
	}

	go func() {
		<-ctx.Done()
		_, _ = r.Stop()
	}()
	return nil
}

// Device returns the device this recorder captures from.
func (r *Recorder) Device() Device {
	return r.device
}

// Levels publishes one RMS level per callback. Readings are dropped when the
// consumer falls behind; the channel closes on Stop.
func (r *Recorder) Levels() <-chan float64 {
	return r.levels
}

// FramesCaptured reports the number of samples accepted so far.
func (r *Recorder) FramesCaptured() int64 {
	return r.frames.Load()
}

// Stop closes the stream and returns the captured audio. It is idempotent.
func (r *Recorder) Stop() (Recording, error) {
	r.mu.Lock()
	if r.stopped {
		result, err := r.result, r.resultErr
		r.mu.Unlock()
		return result, err
	}
	r.stopped = true
	stream := r.stream
	close(r.levels)
	r.mu.Unlock()

	var closeErr error
	if stream != nil {
		closeErr = stream.Close()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	samples := r.samples
	r.samples = nil
	switch {
	case len(samples) == 0 && closeErr != nil:
		r.resultErr = fmt.Errorf("close input stream: %w", closeErr)
	case len(samples) == 0:
		r.resultErr = ErrNoAudio
	default:
		r.result = Recording{Samples: samples, SampleRate: r.sampleRate}
	}
	return r.result, r.resultErr
}

// onSamples copies one driver buffer into the recording; drivers may reuse in.
func (r *Recorder) onSamples(in []int16) {
	if len(in) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	r.samples = append(r.samples, in...)
	r.frames.Add(int64(len(in)))

	select {
	case r.levels <- RMS(in):
	default:
	}
}
