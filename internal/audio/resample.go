package audio

import "math"

// Resample converts samples from one rate to another using per-sample linear
// interpolation. It is not an anti-aliased resampler, but it is cheap and
// sufficient for speech heading into a recognition engine.
func Resample(in []float32, fromRate, toRate int) []float32 {
	if len(in) == 0 || fromRate <= 0 || toRate <= 0 {
		return nil
	}
	if fromRate == toRate {
		out := make([]float32, len(in))
		copy(out, in)
		return out
	}

	ratio := float64(toRate) / float64(fromRate)
	outCount := int(math.Round(float64(len(in)) * ratio))
	if outCount <= 0 {
		return nil
	}

	out := make([]float32, outCount)
	step := float64(fromRate) / float64(toRate)
	for i := range out {
		srcIndex := float64(i) * step
		idx := int(srcIndex)
		frac := srcIndex - float64(idx)
		switch {
		case idx < 0:
			out[i] = in[0]
		case idx >= len(in)-1:
			out[i] = in[len(in)-1]
		default:
			a := float64(in[idx])
			b := float64(in[idx+1])
			out[i] = float32((1-frac)*a + frac*b)
		}
	}
	return out
}

// ToPCM16 converts normalized float samples to 16-bit signed integers,
// clamping to [-1.0, 1.0] first.
func ToPCM16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		}
		if s < -1.0 {
			s = -1.0
		}
		v := math.Round(float64(s) * 32767.0)
		out[i] = int16(v)
	}
	return out
}
