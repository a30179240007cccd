package indicator

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/jfreymuth/pulse"
)

type cueKind int

const (
	cueStart cueKind = iota + 1
	cueStop
	cueComplete
	cueCancel
)

const (
	cueRate = 16000
	cueGain = 0.18
	cueGap  = 22 * time.Millisecond
	cueRamp = 5 * time.Millisecond
)

type note struct {
	hz     float64
	length time.Duration
}

const ms = time.Millisecond

var cueNotes = map[cueKind][]note{
	cueStart:    {{880, 70 * ms}, {1175, 70 * ms}},
	cueStop:     {{620, 120 * ms}},
	cueComplete: {{740, 65 * ms}, {988, 90 * ms}},
	cueCancel:   {{480, 75 * ms}, {360, 90 * ms}},
}

// cuePCM holds every cue pre-rendered at cueRate.
var cuePCM = func() map[cueKind][]int16 {
	out := make(map[cueKind][]int16, len(cueNotes))
	for kind, notes := range cueNotes {
		out[kind] = renderCue(notes, cueGain)
	}
	return out
}()

// emitCue plays kind through the Pulse server, falling back to a plain beep
// when no server is reachable. ctx is only checked before playback.
func emitCue(ctx context.Context, kind cueKind) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pcm := cuePCM[kind]
	if len(pcm) == 0 {
		return nil
	}

	err := playPulse(pcm)
	if err == nil {
		return nil
	}
	freq := 880.0
	if kind == cueStop || kind == cueCancel {
		freq = 480
	}
	if beepErr := beeep.Beep(freq, beeep.DefaultDuration); beepErr != nil {
		return fmt.Errorf("%w (beep fallback: %v)", err, beepErr)
	}
	return nil
}

// pcmSource feeds a fixed buffer to a playback stream.
type pcmSource struct {
	pcm []int16
	pos int
}

func (s *pcmSource) read(buf []int16) (int, error) {
	n := copy(buf, s.pcm[s.pos:])
	s.pos += n
	if s.pos >= len(s.pcm) {
		return n, pulse.EndOfData
	}
	return n, nil
}

func playPulse(pcm []int16) error {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("tellyspelly"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	src := &pcmSource{pcm: pcm}
	stream, err := client.NewPlayback(
		pulse.Int16Reader(src.read),
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("tellyspelly cue"),
	)
	if err != nil {
		return fmt.Errorf("open cue playback: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play cue: %w", err)
	}
	return nil
}

// renderCue joins notes with cueGap of silence between them.
func renderCue(notes []note, gain float64) []int16 {
	var pcm []int16
	for i, n := range notes {
		if i > 0 {
			pcm = append(pcm, make([]int16, frames(cueGap))...)
		}
		pcm = appendTone(pcm, n, gain)
	}
	return pcm
}

// appendTone writes a sine with linear fade in and out so notes start and end
// at zero.
func appendTone(dst []int16, n note, gain float64) []int16 {
	count := frames(n.length)
	if count <= 0 || n.hz <= 0 || gain <= 0 {
		return dst
	}

	ramp := float64(max(1, min(frames(cueRamp), count/10)))
	step := 2 * math.Pi * n.hz / cueRate
	for i := range count {
		env := min(1, float64(i)/ramp, float64(count-1-i)/ramp)
		dst = append(dst, int16(math.Round(math.Sin(step*float64(i))*gain*env*math.MaxInt16)))
	}
	return dst
}

func frames(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueRate))
}
