package audio

import (
	"context"
	"time"
)

// CaptureConfig holds configuration for microphone capture.
type CaptureConfig struct {
	// SampleRate is the capture rate in Hz. The pipeline resamples finished
	// segments, so the device can run at its native rate.
	SampleRate uint32

	// Channels is the number of input channels. Multi-channel input is
	// averaged down to mono before it enters the pipeline.
	Channels uint32

	// FrameDuration is the period size requested from the device. It should
	// match the processor tick so one callback roughly fills one frame.
	FrameDuration time.Duration

	// BufferDuration is the ring buffer capacity. It only needs to absorb
	// scheduling jitter between the capture callback and the processor loop.
	BufferDuration time.Duration

	// DeviceID selects a capture device; empty means the system default.
	DeviceID string
}

// DefaultCaptureConfig returns a 44.1kHz mono capture configuration with
// 20ms periods and a five second ring buffer.
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		SampleRate:     44100,
		Channels:       1,
		FrameDuration:  20 * time.Millisecond,
		BufferDuration: 5 * time.Second,
	}
}

// RingCapacity returns the ring buffer size in samples implied by the config.
func (c CaptureConfig) RingCapacity() int {
	return int(float64(c.SampleRate) * c.BufferDuration.Seconds())
}

// Capturer is the interface for audio capture implementations. A capturer
// owns the platform device and writes normalized mono samples into the ring
// buffer handed to its constructor; it performs no analysis of its own.
type Capturer interface {
	// Start begins capture. The context cancels capture when done.
	Start(ctx context.Context) error

	// Stop stops capture and releases the device. Safe to call twice.
	Stop() error

	// IsRunning reports whether capture is active.
	IsRunning() bool
}

// NewCapturer creates the platform capturer writing into ring.
func NewCapturer(cfg CaptureConfig, ring *RingBuffer) (Capturer, error) {
	return NewMalgoCapturer(cfg, ring)
}
