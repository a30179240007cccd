package audio

import (
	"context"
	"io"
	"reflect"
	"testing"

	pulseproto "github.com/jfreymuth/pulse/proto"
	"github.com/stretchr/testify/require"
)

func TestPulseListDevicesFailsWhenServerUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	_, err := Pulse{}.ListDevices(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "connect pulse server")
}

func TestSelectDeviceFailsWhenPulseUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	_, err := SelectDevice(context.Background(), Pulse{}, -1)
	require.Error(t, err)
}

func TestPulseRateDefault(t *testing.T) {
	require.Equal(t, 48000, Pulse{}.rate())
	require.Equal(t, 44100, Pulse{SampleRate: 44100}.rate())
}

func TestSourceStateString(t *testing.T) {
	require.Equal(t, "running", sourceStateString(0))
	require.Equal(t, "idle", sourceStateString(1))
	require.Equal(t, "suspended", sourceStateString(2))
	require.Equal(t, "unknown(99)", sourceStateString(99))
}

func TestSourceAvailable(t *testing.T) {
	require.False(t, sourceAvailable(nil))
	require.True(t, sourceAvailable(&pulseproto.GetSourceInfoReply{}))

	available := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setSourcePorts(t, available, []sourcePort{{name: "mic", available: 2}})
	require.True(t, sourceAvailable(available))

	notAvailable := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setSourcePorts(t, notAvailable, []sourcePort{{name: "mic", available: 1}})
	require.False(t, sourceAvailable(notAvailable))
}

func TestPulseStreamDecodesLittleEndianAcrossOddBuffers(t *testing.T) {
	var got []int16
	s := &pulseStream{onSamples: func(in []int16) {
		got = append(got, in...)
	}}

	// 0x0102 = 258, 0xFFFF = -1, 0x8000 = -32768
	n, err := s.onPCM([]byte{0x02, 0x01, 0xFF})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, []int16{258}, got)

	n, err = s.onPCM([]byte{0xFF, 0x00, 0x80})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, []int16{258, -1, -32768}, got)
}

func TestPulseStreamReturnsEOFWhenClosed(t *testing.T) {
	s := &pulseStream{closed: true}
	n, err := s.onPCM([]byte{1, 2})
	require.Equal(t, 0, n)
	require.ErrorIs(t, err, io.EOF)
}

func TestWriterFuncDelegatesWrite(t *testing.T) {
	called := false
	writer := writerFunc(func(b []byte) (int, error) {
		called = true
		require.Equal(t, []byte{1, 2, 3}, b)
		return len(b), nil
	})

	n, err := writer.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.True(t, called)
}

func TestNewDriver(t *testing.T) {
	driver, err := NewDriver("", 0)
	require.NoError(t, err)
	require.Equal(t, "portaudio", driver.Name())

	driver, err = NewDriver("pulse", 44100)
	require.NoError(t, err)
	require.Equal(t, Pulse{SampleRate: 44100}, driver)

	_, err = NewDriver("alsa", 0)
	require.Error(t, err)
}

type sourcePort struct {
	name      string
	available uint32
}

func setSourcePorts(t *testing.T, reply *pulseproto.GetSourceInfoReply, ports []sourcePort) {
	t.Helper()

	sliceType := reflect.TypeOf(reply.Ports)
	sliceValue := reflect.MakeSlice(sliceType, len(ports), len(ports))

	for i, port := range ports {
		item := sliceValue.Index(i)
		item.FieldByName("Name").SetString(port.name)
		item.FieldByName("Available").SetUint(uint64(port.available))
	}

	reflect.ValueOf(reply).Elem().FieldByName("Ports").Set(sliceValue)
}
