package audio

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// sine produces n samples of a sine wave at freq Hz with the given amplitude.
func sine(n, sampleRate int, freq, amplitude float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return out
}

func TestRMSAnalyzerSineWave(t *testing.T) {
	const sampleRate = 44100
	a := NewRMSAnalyzer(sampleRate, 100*time.Millisecond)

	// Fill the window completely with a 440Hz tone at amplitude 0.5.
	rms := a.Update(sine(a.WindowSize(), sampleRate, 440, 0.5))

	// RMS of a sine is amplitude/sqrt(2).
	assert.InDelta(t, 0.5/math.Sqrt2, rms, 0.005)
}

func TestRMSAnalyzerWarmupReturnsZero(t *testing.T) {
	a := NewRMSAnalyzer(44100, 100*time.Millisecond)

	rms := a.Update(sine(a.WindowSize()/2, 44100, 440, 0.5))
	assert.Zero(t, rms, "RMS is 0 until the window fills")

	rms = a.Update(sine(a.WindowSize()/2, 44100, 440, 0.5))
	assert.Greater(t, rms, 0.0)
}

func TestRMSAnalyzerSilence(t *testing.T) {
	a := NewRMSAnalyzer(16000, 100*time.Millisecond)

	rms := a.Update(make([]float32, a.WindowSize()))
	assert.Zero(t, rms)
}

func TestRMSAnalyzerSlidesWindow(t *testing.T) {
	const sampleRate = 16000
	a := NewRMSAnalyzer(sampleRate, 100*time.Millisecond)

	a.Update(sine(a.WindowSize(), sampleRate, 440, 0.8))
	loud := a.RMS()

	// Push a full window of silence; the tone should be fully evicted.
	a.Update(make([]float32, a.WindowSize()))
	assert.Zero(t, a.RMS())
	assert.Greater(t, loud, 0.5)
}

func TestRMSAnalyzerReset(t *testing.T) {
	a := NewRMSAnalyzer(16000, 50*time.Millisecond)
	a.Update(sine(a.WindowSize(), 16000, 440, 0.5))
	a.Reset()

	assert.Zero(t, a.RMS(), "reset returns the analyzer to warm-up")
}
