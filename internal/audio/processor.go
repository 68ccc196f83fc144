package audio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ProcessorConfig holds the tuning for the whole analysis pipeline.
type ProcessorConfig struct {
	// SampleRate is the capture rate in Hz.
	SampleRate int
	// TargetRate is the rate the recognition engine expects; finalized
	// segments are resampled to it before dispatch.
	TargetRate int
	// FrameDuration is the tick cadence of the processing loop.
	FrameDuration time.Duration
	// RMSWindow is the sliding window of the energy analyzer.
	RMSWindow time.Duration
	// Calibration is the start-up noise calibration window.
	Calibration time.Duration

	Gate    GateConfig
	Segment SegmentConfig
}

// DefaultProcessorConfig returns the default pipeline tuning: 44.1kHz capture
// resampled to 16kHz for recognition, 20ms frames, 100ms RMS window, 300ms
// calibration.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		SampleRate:    44100,
		TargetRate:    16000,
		FrameDuration: 20 * time.Millisecond,
		RMSWindow:     100 * time.Millisecond,
		Calibration:   300 * time.Millisecond,
		Gate:          DefaultGateConfig(),
		Segment:       DefaultSegmentConfig(),
	}
}

// Status is a point-in-time snapshot of the pipeline for diagnostics.
type Status struct {
	RMS        float64
	NoiseFloor float64
	Speaking   bool
	Calibrated bool
	Silent     bool
}

// DispatchFunc receives each finalized segment, already resampled to the
// target rate and converted to 16-bit PCM. It must not block for longer than
// the frame period; queue hand-off is expected, not recognition.
type DispatchFunc func(pcm []int16, sampleRate int)

// Processor runs the analysis loop: it pulls fixed-size frames from the ring
// buffer at the frame cadence, drives RMS analysis, noise calibration, the
// speech gate and segment assembly, and dispatches finalized segments.
//
// Only the processor goroutine touches the analyzer, calibrator, gate and
// segment buffer; the ring buffer and the dispatch queue are the only
// structures crossing goroutine boundaries.
type Processor struct {
	cfg      ProcessorConfig
	ring     *RingBuffer
	dispatch DispatchFunc
	log      *zap.Logger

	analyzer   *RMSAnalyzer
	calibrator *NoiseCalibrator
	gate       *SpeechGate
	segments   *SegmentBuffer

	frameSamples int
	lastTick     time.Time

	mu     sync.Mutex
	status Status

	running atomic.Bool
	stop    chan struct{}
	done    chan struct{}
}

// NewProcessor creates a processor reading from ring and handing finalized
// segments to dispatch. logger may be nil.
func NewProcessor(cfg ProcessorConfig, ring *RingBuffer, dispatch DispatchFunc, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	frameSamples := int(float64(cfg.SampleRate) * cfg.FrameDuration.Seconds())
	if frameSamples < 1 {
		frameSamples = 1
	}

	p := &Processor{
		cfg:          cfg,
		ring:         ring,
		dispatch:     dispatch,
		log:          logger,
		analyzer:     NewRMSAnalyzer(cfg.SampleRate, cfg.RMSWindow),
		calibrator:   NewNoiseCalibrator(cfg.Calibration),
		gate:         NewSpeechGate(cfg.Gate),
		segments:     NewSegmentBuffer(cfg.SampleRate, cfg.Segment),
		frameSamples: frameSamples,
	}
	p.gate.OnSpeechStart = p.handleSpeechStart
	p.gate.OnSpeechEnd = p.handleSpeechEnd
	return p
}

// FrameSamples returns the per-tick frame size in samples.
func (p *Processor) FrameSamples() int {
	return p.frameSamples
}

// Start resets the pipeline state, begins noise calibration and launches the
// processing loop. Returns an error if the processor is already running.
func (p *Processor) Start() error {
	if !p.running.CompareAndSwap(false, true) {
		return fmt.Errorf("processor already running")
	}

	p.analyzer.Reset()
	p.calibrator.StartCalibration()
	p.gate.Reset()
	p.segments.Clear()
	p.lastTick = time.Time{}

	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.run()

	p.log.Info("audio processor started",
		zap.Int("sample_rate", p.cfg.SampleRate),
		zap.Int("frame_samples", p.frameSamples),
		zap.Duration("calibration", p.cfg.Calibration))
	return nil
}

// Stop halts the loop and finalizes any in-progress utterance. The second
// and later calls are no-ops.
func (p *Processor) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.stop)
	<-p.done

	// Flush an utterance cut off by shutdown.
	if p.gate.IsSpeaking() {
		p.finalizeSegment()
	}
	p.log.Info("audio processor stopped")
}

// Status returns a snapshot of the pipeline state for debug/telemetry.
func (p *Processor) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// IsSilent reports whether the pipeline currently sees silence. It is false
// until calibration completes.
func (p *Processor) IsSilent() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status.Silent
}

func (p *Processor) run() {
	defer close(p.done)

	ticker := time.NewTicker(p.cfg.FrameDuration)
	defer ticker.Stop()

	frame := make([]float32, p.frameSamples)
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			if !p.ring.Read(frame) {
				// Underrun: capture has not produced a full frame yet.
				continue
			}
			now := time.Now()
			var delta time.Duration
			if !p.lastTick.IsZero() {
				delta = now.Sub(p.lastTick)
			}
			p.lastTick = now
			p.ProcessFrame(frame, delta)
		}
	}
}

// ProcessFrame advances the pipeline by one frame covering delta of audio.
// It is exported so file- and stream-driven callers can run the same
// pipeline without a capture device; live capture goes through Start.
func (p *Processor) ProcessFrame(frame []float32, delta time.Duration) {
	rms := p.analyzer.Update(frame)

	wasCalibrated := p.calibrator.IsCalibrated()
	if !p.calibrator.Add(rms, delta) {
		p.segments.AddSamples(frame, false, false)
		p.publishStatus(rms)
		return
	}
	if !wasCalibrated {
		p.log.Info("noise floor calibrated", zap.Float64("noise_floor", p.calibrator.NoiseFloor()))
	}

	floor := p.calibrator.NoiseFloor()
	p.gate.Update(rms, floor, delta)
	loud := rms >= p.gate.SilenceThreshold(floor)
	p.segments.AddSamples(frame, p.gate.IsSpeaking(), loud)
	p.publishStatus(rms)
}

func (p *Processor) publishStatus(rms float64) {
	p.mu.Lock()
	p.status = Status{
		RMS:        rms,
		NoiseFloor: p.calibrator.NoiseFloor(),
		Speaking:   p.gate.IsSpeaking(),
		Calibrated: p.calibrator.IsCalibrated(),
		Silent:     p.calibrator.IsCalibrated() && !p.gate.IsSpeaking(),
	}
	p.mu.Unlock()
}

func (p *Processor) handleSpeechStart() {
	p.log.Debug("speech started",
		zap.Float64("noise_floor", p.calibrator.NoiseFloor()))
}

func (p *Processor) handleSpeechEnd() {
	p.finalizeSegment()
}

func (p *Processor) finalizeSegment() {
	pending := p.segments.Len()
	if !p.segments.FinalizeSegment() {
		p.log.Info("segment dropped",
			zap.Int("samples", pending),
			zap.Duration("min", p.cfg.Segment.MinDuration),
			zap.Duration("max", p.cfg.Segment.MaxDuration))
		return
	}

	segment := p.segments.ConsumeSegment()
	if len(segment) == 0 {
		return
	}

	duration := time.Duration(float64(len(segment)) / float64(p.cfg.SampleRate) * float64(time.Second))
	pcm := ToPCM16(Resample(segment, p.cfg.SampleRate, p.cfg.TargetRate))

	p.log.Info("segment finalized",
		zap.Duration("duration", duration),
		zap.Int("samples", len(pcm)),
		zap.Int("sample_rate", p.cfg.TargetRate))

	if p.dispatch != nil {
		p.dispatch(pcm, p.cfg.TargetRate)
	}
}
