package audio

import (
	"math"
	"time"
)

// RMSAnalyzer computes root-mean-square energy over a fixed-duration sliding
// window of normalized samples. The window length is derived from the sample
// rate, so a 100ms window covers 100ms of audio regardless of rate.
//
// The analyzer is owned by the processor loop and is not safe for concurrent
// use.
type RMSAnalyzer struct {
	windowSize int
	window     []float32
	pos        int
	filled     int
}

// NewRMSAnalyzer creates an analyzer with the given window duration at the
// given sample rate.
func NewRMSAnalyzer(sampleRate int, window time.Duration) *RMSAnalyzer {
	size := int(float64(sampleRate) * window.Seconds())
	if size < 1 {
		size = 1
	}
	return &RMSAnalyzer{
		windowSize: size,
		window:     make([]float32, size),
	}
}

// Update appends a frame to the window, evicting the oldest samples beyond
// capacity, and returns the current RMS. While the window is still filling
// the result is 0 (warm-up, not an error).
func (a *RMSAnalyzer) Update(frame []float32) float64 {
	for _, s := range frame {
		a.window[a.pos] = s
		a.pos = (a.pos + 1) % a.windowSize
		if a.filled < a.windowSize {
			a.filled++
		}
	}
	return a.RMS()
}

// RMS returns sqrt(mean(sample^2)) over the window, or 0 while warming up.
func (a *RMSAnalyzer) RMS() float64 {
	if a.filled < a.windowSize {
		return 0
	}
	var sum float64
	for _, s := range a.window {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(a.windowSize))
}

// WindowSize returns the window length in samples.
func (a *RMSAnalyzer) WindowSize() int {
	return a.windowSize
}

// Reset clears the window.
func (a *RMSAnalyzer) Reset() {
	a.pos = 0
	a.filled = 0
}
