package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// MalgoCapturer implements Capturer on top of malgo (miniaudio). The device
// callback is kept minimal: convert 16-bit interleaved PCM to normalized
// mono float32 and write it into the ring buffer. Everything else happens on
// the processor goroutine.
type MalgoCapturer struct {
	config       CaptureConfig
	ring         *RingBuffer
	device       *malgo.Device
	malgoContext *malgo.AllocatedContext
	scratch      []float32
	running      bool
	mu           sync.RWMutex
	stopChan     chan struct{}
	wg           sync.WaitGroup
}

// NewMalgoCapturer creates a malgo-based capturer writing into ring.
func NewMalgoCapturer(cfg CaptureConfig, ring *RingBuffer) (*MalgoCapturer, error) {
	if ring == nil {
		return nil, fmt.Errorf("ring buffer is required")
	}
	return &MalgoCapturer{
		config:   cfg,
		ring:     ring,
		stopChan: make(chan struct{}),
	}, nil
}

// Start begins audio capture.
func (m *MalgoCapturer) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("capturer is already running")
	}
	m.running = true
	m.mu.Unlock()

	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		m.setStopped()
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	m.malgoContext = malgoCtx

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = m.config.Channels
	deviceConfig.SampleRate = m.config.SampleRate
	deviceConfig.PeriodSizeInFrames = uint32(float64(m.config.SampleRate) * m.config.FrameDuration.Seconds())

	if m.config.DeviceID != "" {
		devID, err := resolveCaptureDevice(malgoCtx, m.config.DeviceID)
		if err != nil {
			m.teardownContext()
			m.setStopped()
			return fmt.Errorf("failed to resolve capture device: %w", err)
		}
		deviceConfig.Capture.DeviceID = devID.Pointer()
	}

	channels := int(m.config.Channels)
	if channels < 1 {
		channels = 1
	}

	var callbacks malgo.DeviceCallbacks
	callbacks.Data = func(pOutputSample, pInputSamples []byte, framecount uint32) {
		// Real-time path: mono-mix, normalize, enqueue. No allocation after
		// the scratch buffer reaches steady state, no blocking.
		frames := int(framecount)
		if frames*channels*2 > len(pInputSamples) {
			frames = len(pInputSamples) / (channels * 2)
		}
		if cap(m.scratch) < frames {
			m.scratch = make([]float32, frames)
		}
		frame := m.scratch[:frames]

		for i := 0; i < frames; i++ {
			var sum int32
			for ch := 0; ch < channels; ch++ {
				off := (i*channels + ch) * 2
				sample := int16(pInputSamples[off]) | int16(pInputSamples[off+1])<<8
				sum += int32(sample)
			}
			frame[i] = float32(sum/int32(channels)) / 32768.0
		}

		m.ring.Write(frame)
	}

	device, err := malgo.InitDevice(m.malgoContext.Context, deviceConfig, callbacks)
	if err != nil {
		m.teardownContext()
		m.setStopped()
		return fmt.Errorf("failed to initialize device: %w", err)
	}
	m.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		m.teardownContext()
		m.setStopped()
		return fmt.Errorf("failed to start device: %w", err)
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		select {
		case <-ctx.Done():
			m.Stop()
		case <-m.stopChan:
		}
	}()

	return nil
}

// Stop stops capture and releases the device. The second call is a no-op.
func (m *MalgoCapturer) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	m.mu.Unlock()

	close(m.stopChan)

	if m.device != nil {
		if err := m.device.Stop(); err != nil {
			return fmt.Errorf("failed to stop device: %w", err)
		}
		m.device.Uninit()
		m.device = nil
	}

	m.teardownContext()
	m.wg.Wait()
	return nil
}

// IsRunning reports whether capture is active.
func (m *MalgoCapturer) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

func (m *MalgoCapturer) setStopped() {
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
}

func (m *MalgoCapturer) teardownContext() {
	if m.malgoContext != nil {
		_ = m.malgoContext.Uninit()
		m.malgoContext.Free()
		m.malgoContext = nil
	}
}
