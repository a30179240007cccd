package audio

import "math"

// Resample converts mono PCM from one rate to another by linear interpolation.
//
// The output holds int(len*to/from) samples spanning the same first and last
// input sample, so duration is preserved to within one output sample.
func Resample(samples []int16, from int, to int) []int16 {
	if from <= 0 || to <= 0 || from == to || len(samples) == 0 {
		return append([]int16(nil), samples...)
	}

	outLen := int(int64(len(samples)) * int64(to) / int64(from))
	out := make([]int16, outLen)
	switch {
	case outLen == 0:
		return out
	case outLen == 1 || len(samples) == 1:
		for i := range out {
			out[i] = samples[0]
		}
		return out
	}

	step := float64(len(samples)-1) / float64(outLen-1)
	last := len(samples) - 1
	for i := range out {
		pos := float64(i) * step
		lo := int(pos)
		if lo >= last {
			out[i] = samples[last]
			continue
		}
		frac := pos - float64(lo)
		v := float64(samples[lo]) + (float64(samples[lo+1])-float64(samples[lo]))*frac
		out[i] = clampInt16(math.Round(v))
	}
	return out
}

func clampInt16(v float64) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
