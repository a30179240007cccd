package audio

import (
	"math"
	"strconv"
)

// RMS returns the root-mean-square level of int16 PCM normalized to [0,1].
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	rms := math.Sqrt(sum/float64(len(samples))) / 32768
	if rms > 1 {
		return 1
	}
	return rms
}

// Decibels converts a normalized RMS level to dBFS. Silence is -Inf.
func Decibels(rms float64) float64 {
	if rms <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms)
}

// FormatDecibels renders a dBFS value with one decimal, or "-∞ dB" for silence.
func FormatDecibels(db float64) string {
	if math.IsInf(db, -1) {
		return "-∞ dB"
	}
	return strconv.FormatFloat(db, 'f', 1, 64) + " dB"
}
