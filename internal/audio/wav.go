package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/riff"
	"github.com/go-audio/wav"
)

// WAVE format tags. Extensible files carry the real tag in their sub-format GUID.
const (
	wavFormatPCM        = 1
	wavFormatFloat      = 3
	wavFormatExtensible = 0xFFFE
)

// Recording is mono int16 PCM captured at SampleRate.
type Recording struct {
	Samples    []int16
	SampleRate int
}

// Duration reports the playback length of the recording.
func (r Recording) Duration() time.Duration {
	if r.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(r.Samples)) * time.Second / time.Duration(r.SampleRate)
}

// To16k returns the recording resampled to TargetSampleRate.
func (r Recording) To16k() Recording {
	return Recording{
		Samples:    Resample(r.Samples, r.SampleRate, TargetSampleRate),
		SampleRate: TargetSampleRate,
	}
}

// WriteWAV writes mono 16-bit PCM to path with owner-only permissions.
func WriteWAV(path string, samples []int16, sampleRate int) (err error) {
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create wav %q: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close wav %q: %w", path, cerr)
		}
	}()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, wavFormatPCM)
	if len(samples) > 0 {
		data := make([]int, len(samples))
		for i, s := range samples {
			data[i] = int(s)
		}
		buf := &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
			Data:           data,
			SourceBitDepth: 16,
		}
		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("encode wav %q: %w", path, err)
		}
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav %q: %w", path, err)
	}
	return nil
}

// ReadWAV decodes an integer PCM or 32-bit float WAV file, including the
// extensible variants, downmixing to mono and scaling to 16-bit.
func ReadWAV(path string) (Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return Recording{}, fmt.Errorf("open wav %q: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Recording{}, fmt.Errorf("%q is not a valid WAV file", path)
	}

	format := dec.WavAudioFormat
	if format == wavFormatExtensible {
		if format, err = subFormat(io.NewSectionReader(f, 0, math.MaxInt64)); err != nil {
			return Recording{}, fmt.Errorf("read wav %q: %w", path, err)
		}
	}

	bitDepth := int(dec.BitDepth)
	switch {
	case format == wavFormatPCM:
	case format == wavFormatFloat && bitDepth == 32:
	case format == wavFormatFloat:
		return Recording{}, fmt.Errorf("%q uses %d-bit float samples; only 32-bit float is supported", path, bitDepth)
	default:
		return Recording{}, fmt.Errorf("%q uses WAV format %d; only PCM and float are supported", path, format)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Recording{}, fmt.Errorf("decode wav %q: %w", path, err)
	}

	channels := int(dec.NumChans)
	if channels <= 0 {
		return Recording{}, errors.New("wav declares zero channels")
	}

	sample := func(v int) int { return to16Bit(v, bitDepth) }
	if format == wavFormatFloat {
		sample = floatTo16Bit
	}

	frames := len(buf.Data) / channels
	samples := make([]int16, frames)
	for i := range frames {
		var sum int
		for c := range channels {
			sum += sample(buf.Data[i*channels+c])
		}
		samples[i] = int16(sum / channels)
	}

	return Recording{Samples: samples, SampleRate: int(dec.SampleRate)}, nil
}

// subFormat reads the format tag out of a WAVE_FORMAT_EXTENSIBLE fmt chunk.
// The tag is the first two bytes of the sub-format GUID at offset 24.
func subFormat(r io.Reader) (uint16, error) {
	parser := riff.New(r)
	if err := parser.ParseHeaders(); err != nil {
		return 0, err
	}
	for {
		chunk, err := parser.NextChunk()
		if err != nil {
			return 0, fmt.Errorf("find fmt chunk: %w", err)
		}
		if chunk.ID != riff.FmtID {
			chunk.Drain()
			continue
		}
		body := make([]byte, chunk.Size)
		if _, err := io.ReadFull(chunk, body); err != nil {
			return 0, fmt.Errorf("read fmt chunk: %w", err)
		}
		if len(body) < 26 {
			return 0, fmt.Errorf("extensible fmt chunk is %d bytes, want at least 26", len(body))
		}
		return binary.LittleEndian.Uint16(body[24:26]), nil
	}
}

// floatTo16Bit maps a 32-bit float sample, carried as its raw bits, onto int16 range.
func floatTo16Bit(bits int) int {
	v := math.Float32frombits(uint32(int32(bits)))
	if math.IsNaN(float64(v)) {
		return 0
	}
	v = max(-1, min(1, v))
	return int(v * math.MaxInt16)
}

func to16Bit(v int, bitDepth int) int {
	switch bitDepth {
	case 8:
		return (v - 128) << 8
	case 24:
		return v >> 8
	case 32:
		return v >> 16
	default:
		return v
	}
}
