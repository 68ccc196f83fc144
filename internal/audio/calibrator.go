package audio

import "time"

// noiseFloorEpsilon keeps downstream multiplicative thresholds well-defined
// when calibration observes (near-)silence.
const noiseFloorEpsilon = 1e-6

// NoiseCalibrator estimates the background noise floor. It collects RMS
// observations during a fixed window after capture starts and locks the
// arithmetic mean as the floor. Once locked the floor only changes via Reset.
//
// The window is measured in processed audio time (the per-tick delta also fed
// to the speech gate), so ring-buffer underruns do not shorten calibration.
//
// Owned by the processor loop; not safe for concurrent use.
type NoiseCalibrator struct {
	duration   time.Duration
	elapsed    time.Duration
	samples    []float64
	floor      float64
	calibrated bool
}

// NewNoiseCalibrator creates a calibrator with the given calibration window.
func NewNoiseCalibrator(duration time.Duration) *NoiseCalibrator {
	return &NoiseCalibrator{duration: duration}
}

// StartCalibration clears collected observations and restarts the window.
func (c *NoiseCalibrator) StartCalibration() {
	c.samples = c.samples[:0]
	c.elapsed = 0
	c.floor = 0
	c.calibrated = false
}

// Add feeds one RMS observation covering delta of audio. It is a no-op once
// calibrated. When the calibration window has elapsed the floor is computed
// from all observations collected so far and locked. Returns true once the
// calibrator is locked.
func (c *NoiseCalibrator) Add(rms float64, delta time.Duration) bool {
	if c.calibrated {
		return true
	}

	if c.elapsed >= c.duration {
		c.lockFloor()
		return true
	}

	c.samples = append(c.samples, rms)
	c.elapsed += delta
	return false
}

// IsCalibrated reports whether the noise floor has been locked.
func (c *NoiseCalibrator) IsCalibrated() bool {
	return c.calibrated
}

// NoiseFloor returns the locked floor, or 0 before calibration completes.
func (c *NoiseCalibrator) NoiseFloor() float64 {
	return c.floor
}

// Reset discards the floor so calibration can run again.
func (c *NoiseCalibrator) Reset() {
	c.StartCalibration()
}

func (c *NoiseCalibrator) lockFloor() {
	if len(c.samples) == 0 {
		c.floor = noiseFloorEpsilon
		c.calibrated = true
		return
	}

	var sum float64
	for _, v := range c.samples {
		sum += v
	}
	c.floor = sum / float64(len(c.samples))
	if c.floor < noiseFloorEpsilon {
		c.floor = noiseFloorEpsilon
	}
	c.calibrated = true
}
