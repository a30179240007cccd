package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// Pulse captures through a PulseAudio/PipeWire server. The server resamples
// every source to SampleRate; device indexes are positions in the source list.
type Pulse struct {
	SampleRate int
}

// pulseFragmentBytes matches one FramesPerBuffer callback of mono s16.
const pulseFragmentBytes = FramesPerBuffer * 2

func (Pulse) Name() string { return "pulse" }

func newPulseClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("tellyspelly"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

// ListDevices returns Pulse input sources with default/availability metadata.
func (p Pulse) ListDevices(_ context.Context) ([]Device, error) {
	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}
	defaultID := defaultSource.ID()

	var sourceInfos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &sourceInfos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	devices := make([]Device, 0, len(sourceInfos))
	for _, source := range sourceInfos {
		if source == nil {
			continue
		}
		devices = append(devices, Device{
			Index:             len(devices),
			ID:                source.SourceName,
			Name:              source.Device,
			State:             sourceStateString(source.State),
			MaxInputChannels:  1,
			DefaultSampleRate: float64(p.rate()),
			Available:         sourceAvailable(source),
			Muted:             source.Mute,
			Default:           source.SourceName == defaultID,
		})
	}
	return devices, nil
}

// Open creates a mono s16 record stream on the source named by device.ID.
func (p Pulse) Open(_ context.Context, device Device, onSamples func([]int16)) (Stream, error) {
	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}

	source, err := client.SourceByID(device.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", device.ID, err)
	}

	s := &pulseStream{client: client, rate: p.rate(), onSamples: onSamples}
	writer := pulse.NewWriter(writerFunc(s.onPCM), pulseproto.FormatInt16LE)
	stream, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(s.rate),
		pulse.RecordBufferFragmentSize(pulseFragmentBytes),
		pulse.RecordMediaName("tellyspelly dictation"),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}
	s.stream = stream
	return s, nil
}

func (p Pulse) rate() int {
	if p.SampleRate <= 0 {
		return 48000
	}
	return p.SampleRate
}

type pulseStream struct {
	client    *pulse.Client
	stream    *pulse.RecordStream
	rate      int
	onSamples func([]int16)

	mu      sync.Mutex
	closed  bool
	pending []byte
	scratch []int16
}

func (s *pulseStream) SampleRate() int { return s.rate }

func (s *pulseStream) Start() error {
	s.stream.Start()
	return nil
}

func (s *pulseStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.stream.Stop()
	s.stream.Close()
	s.client.Close()
	return nil
}

// onPCM decodes little-endian s16 bytes and forwards whole samples; an odd
// trailing byte is held for the next buffer.
func (s *pulseStream) onPCM(buffer []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, io.EOF
	}
	if len(buffer) == 0 {
		return 0, nil
	}

	data := buffer
	if len(s.pending) > 0 {
		data = append(s.pending, buffer...)
		s.pending = nil
	}
	n := len(data) / 2
	if len(data)%2 == 1 {
		s.pending = append(s.pending[:0], data[len(data)-1])
	}

	if cap(s.scratch) < n {
		s.scratch = make([]int16, n)
	}
	samples := s.scratch[:n]
	for i := 0; i < n; i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(data[2*i:]))
	}
	if s.onSamples != nil && n > 0 {
		s.onSamples(samples)
	}
	return len(buffer), nil
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}

// sourceStateString maps Pulse source state constants to human-readable values.
func sourceStateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// sourceAvailable maps Pulse source port availability to a simple boolean.
func sourceAvailable(source *pulseproto.GetSourceInfoReply) bool {
	if source == nil {
		return false
	}
	if len(source.Ports) == 0 {
		return true
	}
	for _, port := range source.Ports {
		if port.Name != source.ActivePortName {
			continue
		}
		// PulseAudio values: unknown=0, no=1, yes=2.
		return port.Available == 0 || port.Available == 2
	}
	return true
}
