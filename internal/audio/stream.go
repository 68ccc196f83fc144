package audio

import (
	"time"

	"go.uber.org/zap"
)

// StreamSegmenter drives the analysis pipeline from pushed PCM chunks
// instead of a live capture device. Deltas are derived from the audio itself,
// so segmentation behaves identically regardless of arrival pacing. It is not
// safe for concurrent use; one goroutine feeds it.
type StreamSegmenter struct {
	processor *Processor
	cfg       ProcessorConfig
	pending   []float32
}

// NewStreamSegmenter creates a push-driven segmenter. Finalized segments
// reach dispatch exactly as they would from a live pipeline.
func NewStreamSegmenter(cfg ProcessorConfig, dispatch DispatchFunc, logger *zap.Logger) *StreamSegmenter {
	// The processor is frame-driven here; the ring buffer only satisfies
	// the constructor.
	return &StreamSegmenter{
		processor: NewProcessor(cfg, NewRingBuffer(1), dispatch, logger),
		cfg:       cfg,
	}
}

// FeedPCM16 pushes interleaved 16-bit little-endian PCM into the pipeline,
// averaging multi-channel input down to mono.
func (s *StreamSegmenter) FeedPCM16(data []byte, channels int) {
	if channels < 1 {
		channels = 1
	}

	frames := len(data) / 2 / channels
	for i := 0; i < frames; i++ {
		var sum int32
		for ch := 0; ch < channels; ch++ {
			off := (i*channels + ch) * 2
			sum += int32(int16(data[off]) | int16(data[off+1])<<8)
		}
		s.pending = append(s.pending, float32(sum/int32(channels))/32768.0)
	}

	s.drain()
}

// FeedSamples pushes normalized mono samples into the pipeline.
func (s *StreamSegmenter) FeedSamples(samples []float32) {
	s.pending = append(s.pending, samples...)
	s.drain()
}

// Flush pads the tail with enough silence to release the speech gate and
// drain post-padding, finalizing any in-progress utterance.
func (s *StreamSegmenter) Flush() {
	size := s.processor.FrameSamples()

	if len(s.pending) > 0 {
		for len(s.pending)%size != 0 {
			s.pending = append(s.pending, 0)
		}
		s.drain()
	}

	tail := s.cfg.Gate.SpeechEndHold + s.cfg.Segment.PostPadding + 100*time.Millisecond
	silence := make([]float32, size)
	for fed := time.Duration(0); fed < tail; fed += s.cfg.FrameDuration {
		s.processor.ProcessFrame(silence, s.cfg.FrameDuration)
	}
}

// Status returns the pipeline status snapshot.
func (s *StreamSegmenter) Status() Status {
	return s.processor.Status()
}

func (s *StreamSegmenter) drain() {
	size := s.processor.FrameSamples()
	for len(s.pending) >= size {
		frame := s.pending[:size]
		s.processor.ProcessFrame(frame, s.cfg.FrameDuration)
		s.pending = s.pending[size:]
	}
}
