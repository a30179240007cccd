package audio

import "math"

const (
	meterSensitivity = 0.002
	meterSmoothing   = 0.5
	meterCurve       = 0.9
	peakHoldFrames   = 15
	peakDecay        = 0.95
	peakFloor        = 0.01
)

// meterWeights apply newest-first.
var meterWeights = [...]float64{0.5, 0.3, 0.2}

// Meter turns raw RMS levels into a display level with a decaying peak marker.
type Meter struct {
	recent   []float64
	smoothed float64
	level    float64
	peak     float64
	hold     int
}

// NewMeter returns a meter at rest.
func NewMeter() *Meter {
	return &Meter{recent: make([]float64, 0, len(meterWeights))}
}

// Update feeds one RMS reading and returns the display level and peak, both in [0,1].
func (m *Meter) Update(rms float64) (float64, float64) {
	if len(m.recent) == len(meterWeights) {
		copy(m.recent, m.recent[1:])
		m.recent = m.recent[:len(m.recent)-1]
	}
	m.recent = append(m.recent, rms)

	var weighted, total float64
	for i := 0; i < len(m.recent); i++ {
		w := meterWeights[i]
		weighted += m.recent[len(m.recent)-1-i] * w
		total += w
	}
	target := math.Min(1, (weighted/total)/meterSensitivity)

	m.smoothed = meterSmoothing*m.smoothed + (1-meterSmoothing)*target
	m.level = math.Pow(m.smoothed, meterCurve)

	switch {
	case m.level >= m.peak:
		m.peak = m.level
		m.hold = peakHoldFrames
	case m.hold > 0:
		m.hold--
	default:
		m.peak *= peakDecay
		if m.peak < peakFloor {
			m.peak = 0
		}
	}
	return m.level, m.peak
}

// Bar renders level as a fixed-width text bar with a peak marker.
func Bar(level float64, peak float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(math.Round(clamp01(level) * float64(width)))
	peakAt := int(math.Round(clamp01(peak)*float64(width))) - 1

	bar := make([]rune, width)
	for i := range bar {
		switch {
		case i < filled:
			bar[i] = '█'
		case i == peakAt:
			bar[i] = '|'
		default:
			bar[i] = '·'
		}
	}
	return string(bar)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
