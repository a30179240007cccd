// Package audio handles input device discovery, selection, capture, and PCM conversion.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// TargetSampleRate is the rate transcription backends expect.
const TargetSampleRate = 16000

// FramesPerBuffer is the capture callback size in frames.
const FramesPerBuffer = 1024

// Device describes one capture-capable input surfaced by a Driver.
type Device struct {
	Index             int
	ID                string
	Name              string
	State             string
	MaxInputChannels  int
	DefaultSampleRate float64
	Available         bool
	Muted             bool
	Default           bool
}

// Selection is the resolved capture device plus optional fallback warning context.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

// Stream is an opened input stream. Start begins delivering samples; Close stops
// delivery and releases driver resources.
type Stream interface {
	SampleRate() int
	Start() error
	Close() error
}

// Driver is one audio backend able to enumerate inputs and open mono int16 streams.
type Driver interface {
	Name() string
	ListDevices(ctx context.Context) ([]Device, error)
	Open(ctx context.Context, device Device, onSamples func([]int16)) (Stream, error)
}

// SelectDevice lists inputs through driver and resolves micIndex against them.
func SelectDevice(ctx context.Context, driver Driver, micIndex int) (Selection, error) {
	devices, err := driver.ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return selectDeviceFromList(devices, micIndex)
}

// selectDeviceFromList applies selection policy to a pre-fetched device list.
// A negative index selects the default input.
func selectDeviceFromList(devices []Device, micIndex int) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, errors.New("no audio input devices found")
	}

	var defaultDevice, byIndex *Device
	for i := range devices {
		dev := &devices[i]
		if dev.Default && defaultDevice == nil {
			defaultDevice = dev
		}
		if micIndex >= 0 && dev.Index == micIndex && byIndex == nil {
			byIndex = dev
		}
	}

	primary := byIndex
	if micIndex < 0 {
		if defaultDevice == nil {
			return Selection{}, errors.New("default audio input is unavailable")
		}
		primary = defaultDevice
	}
	if primary == nil {
		return Selection{}, fmt.Errorf("mic_index %d did not match any input device", micIndex)
	}
	if primary.MaxInputChannels < 1 {
		return Selection{}, fmt.Errorf("device %d (%s) has no input channels", primary.Index, primary.Name)
	}
	if usable(*primary) {
		return Selection{Device: *primary}, nil
	}

	reason := "unavailable"
	if primary.Muted {
		reason = "muted"
	}

	if defaultDevice == nil || defaultDevice == primary {
		return Selection{}, fmt.Errorf("audio input %q is %s and no usable fallback exists", primary.Name, reason)
	}
	if !usable(*defaultDevice) {
		return Selection{}, fmt.Errorf("audio input %q is %s and default input %q is not usable", primary.Name, reason, defaultDevice.Name)
	}

	return Selection{
		Device:   *defaultDevice,
		Warning:  fmt.Sprintf("audio input %q is %s; falling back to %q", primary.Name, reason, defaultDevice.Name),
		Fallback: true,
	}, nil
}

func usable(device Device) bool {
	return device.Available && !device.Muted && device.MaxInputChannels > 0
}

// Describe formats device metadata for logs and session results.
func Describe(device Device) string {
	name := strings.TrimSpace(device.Name)
	id := strings.TrimSpace(device.ID)
	if name == "" {
		return id
	}
	if id == "" || id == name {
		return fmt.Sprintf("%s [%d]", name, device.Index)
	}
	return fmt.Sprintf("%s (%s) [%d]", name, id, device.Index)
}
