package audio

import (
	"context"
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// PortAudio captures through the system PortAudio host APIs. Device indexes
// are PortAudio's global device indexes.
type PortAudio struct{}

func (PortAudio) Name() string { return "portaudio" }

// ListDevices returns every device exposing at least one input channel.
func (PortAudio) ListDevices(_ context.Context) ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	defer portaudio.Terminate()

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list portaudio devices: %w", err)
	}

	var defaultName string
	if def, derr := portaudio.DefaultInputDevice(); derr == nil && def != nil {
		defaultName = def.Name
	}

	devices := make([]Device, 0, len(infos))
	for i, info := range infos {
		if info == nil || info.MaxInputChannels < 1 {
			continue
		}
		devices = append(devices, Device{
			Index:             i,
			ID:                info.Name,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
			Available:         true,
			Default:           info.Name == defaultName,
		})
	}
	return devices, nil
}

// Open opens a mono int16 stream at the device's default sample rate.
func (PortAudio) Open(_ context.Context, device Device, onSamples func([]int16)) (Stream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	info, err := portAudioDevice(device)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, err
	}

	rate := info.DefaultSampleRate
	if rate <= 0 {
		rate = TargetSampleRate
	}
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   info,
			Channels: 1,
			Latency:  info.DefaultLowInputLatency,
		},
		SampleRate:      rate,
		FramesPerBuffer: FramesPerBuffer,
	}

	stream, err := portaudio.OpenStream(params, func(in []int16) {
		onSamples(in)
	})
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("open portaudio stream: %w", err)
	}
	return &portAudioStream{stream: stream, rate: int(rate)}, nil
}

// portAudioDevice re-resolves device by index and checks it still names the same input.
func portAudioDevice(device Device) (*portaudio.DeviceInfo, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list portaudio devices: %w", err)
	}
	if device.Index < 0 || device.Index >= len(infos) || infos[device.Index] == nil {
		return nil, fmt.Errorf("portaudio device %d no longer exists", device.Index)
	}
	info := infos[device.Index]
	if device.Name != "" && info.Name != device.Name {
		return nil, fmt.Errorf("portaudio device %d changed from %q to %q", device.Index, device.Name, info.Name)
	}
	if info.MaxInputChannels < 1 {
		return nil, fmt.Errorf("portaudio device %q has no input channels", info.Name)
	}
	return info, nil
}

type portAudioStream struct {
	stream *portaudio.Stream
	rate   int
}

func (s *portAudioStream) SampleRate() int { return s.rate }

func (s *portAudioStream) Start() error {
	return s.stream.Start()
}

func (s *portAudioStream) Close() error {
	stopErr := s.stream.Stop()
	closeErr := s.stream.Close()
	termErr := portaudio.Terminate()
	return errors.Join(stopErr, closeErr, termErr)
}
