package audio

import "fmt"

// NewDriver returns the capture driver named by the audio.driver config value.
func NewDriver(name string, pulseSampleRate int) (Driver, error) {
	switch name {
	case "", "portaudio":
		return PortAudio{}, nil
	case "pulse":
		return Pulse{SampleRate: pulseSampleRate}, nil
	default:
		return nil, fmt.Errorf("unknown audio driver %q", name)
	}
}
