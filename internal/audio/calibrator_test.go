package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoiseCalibratorLocksMean(t *testing.T) {
	c := NewNoiseCalibrator(300 * time.Millisecond)
	c.StartCalibration()

	// 15 ticks of 20ms cover the window; the next tick locks.
	for i := 0; i < 15; i++ {
		assert.False(t, c.Add(0.02, 20*time.Millisecond))
	}
	assert.True(t, c.Add(0.02, 20*time.Millisecond))

	assert.True(t, c.IsCalibrated())
	assert.InDelta(t, 0.02, c.NoiseFloor(), 1e-9)
}

func TestNoiseCalibratorSilenceFallsBackToEpsilon(t *testing.T) {
	c := NewNoiseCalibrator(100 * time.Millisecond)
	c.StartCalibration()

	for !c.Add(0, 20*time.Millisecond) {
	}

	assert.True(t, c.IsCalibrated())
	assert.Equal(t, noiseFloorEpsilon, c.NoiseFloor(), "silent room still yields a usable floor")
}

func TestNoiseCalibratorIgnoresInputOnceLocked(t *testing.T) {
	c := NewNoiseCalibrator(60 * time.Millisecond)
	c.StartCalibration()

	for !c.Add(0.01, 20*time.Millisecond) {
	}
	floor := c.NoiseFloor()

	// Loud input after lock must not move the floor.
	assert.True(t, c.Add(0.9, 20*time.Millisecond))
	assert.Equal(t, floor, c.NoiseFloor())
}

func TestNoiseCalibratorUsesAudioTimeNotTicks(t *testing.T) {
	c := NewNoiseCalibrator(300 * time.Millisecond)
	c.StartCalibration()

	// Three 100ms observations cover the window regardless of tick count.
	assert.False(t, c.Add(0.01, 100*time.Millisecond))
	assert.False(t, c.Add(0.01, 100*time.Millisecond))
	assert.False(t, c.Add(0.01, 100*time.Millisecond))
	assert.True(t, c.Add(0.01, 100*time.Millisecond))
	assert.True(t, c.IsCalibrated())
}

func TestNoiseCalibratorReset(t *testing.T) {
	c := NewNoiseCalibrator(40 * time.Millisecond)
	c.StartCalibration()
	for !c.Add(0.05, 20*time.Millisecond) {
	}
	assert.True(t, c.IsCalibrated())

	c.Reset()
	assert.False(t, c.IsCalibrated())
	assert.Zero(t, c.NoiseFloor())
}
