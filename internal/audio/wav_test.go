package audio

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteWAVHeaderAndReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	samples := []int16{0, 1, -1, 32767, -32768, 1234}

	require.NoError(t, WriteWAV(path, samples, TargetSampleRate))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "RIFF", string(raw[0:4]))
	require.Equal(t, "WAVE", string(raw[8:12]))
	require.Equal(t, uint16(1), binary.LittleEndian.Uint16(raw[20:22]))
	require.Equal(t, uint16(1), binary.LittleEndian.Uint16(raw[22:24]))
	require.Equal(t, uint32(TargetSampleRate), binary.LittleEndian.Uint32(raw[24:28]))
	require.Equal(t, uint16(16), binary.LittleEndian.Uint16(raw[34:36]))

	stat, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), stat.Mode().Perm())

	rec, err := ReadWAV(path)
	require.NoError(t, err)
	require.Equal(t, TargetSampleRate, rec.SampleRate)
	require.Equal(t, samples, rec.Samples)
}

func TestReadWAVDownmixesStereo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	writeRawPCM16(t, path, 44100, 2, []int16{100, 300, -200, -400})

	rec, err := ReadWAV(path)
	require.NoError(t, err)
	require.Equal(t, 44100, rec.SampleRate)
	require.Equal(t, []int16{200, -300}, rec.Samples)
}

func TestReadWAVRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a wav file"), 0o600))

	_, err := ReadWAV(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not a valid WAV")
}

func TestWriteWAVRejectsBadRate(t *testing.T) {
	err := WriteWAV(filepath.Join(t.TempDir(), "x.wav"), []int16{1}, 0)
	require.Error(t, err)
}

func TestRecordingDurationAndTo16k(t *testing.T) {
	rec := Recording{Samples: make([]int16, 48000), SampleRate: 48000}
	require.Equal(t, time.Second, rec.Duration())

	conformed := rec.To16k()
	require.Equal(t, TargetSampleRate, conformed.SampleRate)
	require.Len(t, conformed.Samples, TargetSampleRate)
	require.Equal(t, time.Second, conformed.Duration())
	require.Equal(t, time.Duration(0), Recording{}.Duration())
}

func TestReadWAVAcceptsExtensiblePCM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extensible.wav")
	samples := []int16{0, 1000, -1000, 32767, -32768}
	writeRawWAV(t, path, extensibleFmt(wavFormatPCM, TargetSampleRate, 1, 16), pcm16Bytes(samples))

	rec, err := ReadWAV(path)
	require.NoError(t, err)
	require.Equal(t, TargetSampleRate, rec.SampleRate)
	require.Equal(t, samples, rec.Samples)
}

func TestReadWAVConvertsFloat(t *testing.T) {
	values := []float32{0, 0.5, -0.5, 1, -1, 1.5}
	want := []int16{0, 16383, -16383, 32767, -32767, 32767}

	cases := map[string][]byte{
		"plain":      fmtChunk(wavFormatFloat, TargetSampleRate, 1, 32),
		"extensible": extensibleFmt(wavFormatFloat, TargetSampleRate, 1, 32),
	}
	for name, fmtBody := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "float.wav")
			writeRawWAV(t, path, fmtBody, float32Bytes(values))

			rec, err := ReadWAV(path)
			require.NoError(t, err)
			require.Equal(t, TargetSampleRate, rec.SampleRate)
			require.Equal(t, want, rec.Samples)
		})
	}
}

func TestReadWAVRejectsCompressedFormats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alaw.wav")
	writeRawWAV(t, path, fmtChunk(6, 8000, 1, 16), pcm16Bytes([]int16{1, 2, 3, 4}))

	_, err := ReadWAV(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "WAV format 6")
}

// writeRawPCM16 writes a canonical 44-byte-header PCM WAV without the encoder under test.
func writeRawPCM16(t *testing.T, path string, rate int, channels int, samples []int16) {
	t.Helper()
	writeRawWAV(t, path, fmtChunk(wavFormatPCM, rate, channels, 16), pcm16Bytes(samples))
}

func writeRawWAV(t *testing.T, path string, fmtBody []byte, data []byte) {
	t.Helper()

	var out []byte
	out = append(out, "RIFF"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(4+8+len(fmtBody)+8+len(data)))
	out = append(out, "WAVE"...)
	out = append(out, "fmt "...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(fmtBody)))
	out = append(out, fmtBody...)
	out = append(out, "data"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(data)))
	out = append(out, data...)
	require.NoError(t, os.WriteFile(path, out, 0o600))
}

func fmtChunk(format uint16, rate int, channels int, bits int) []byte {
	blockAlign := channels * bits / 8
	var b []byte
	b = binary.LittleEndian.AppendUint16(b, format)
	b = binary.LittleEndian.AppendUint16(b, uint16(channels))
	b = binary.LittleEndian.AppendUint32(b, uint32(rate))
	b = binary.LittleEndian.AppendUint32(b, uint32(rate*blockAlign))
	b = binary.LittleEndian.AppendUint16(b, uint16(blockAlign))
	b = binary.LittleEndian.AppendUint16(b, uint16(bits))
	return b
}

// extensibleFmt builds a 40-byte WAVE_FORMAT_EXTENSIBLE fmt chunk whose GUID starts with sub.
func extensibleFmt(sub uint16, rate int, channels int, bits int) []byte {
	b := fmtChunk(wavFormatExtensible, rate, channels, bits)
	b = binary.LittleEndian.AppendUint16(b, 22)
	b = binary.LittleEndian.AppendUint16(b, uint16(bits))
	b = binary.LittleEndian.AppendUint32(b, 0x4)
	b = binary.LittleEndian.AppendUint16(b, sub)
	return append(b, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0xaa, 0x00, 0x38, 0x9b, 0x71)
}

func pcm16Bytes(samples []int16) []byte {
	b := make([]byte, 0, 2*len(samples))
	for _, s := range samples {
		b = binary.LittleEndian.AppendUint16(b, uint16(s))
	}
	return b
}

func float32Bytes(values []float32) []byte {
	b := make([]byte, 0, 4*len(values))
	for _, v := range values {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(v))
	}
	return b
}
