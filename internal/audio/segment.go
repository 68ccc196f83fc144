package audio

import "time"

// SegmentConfig holds the padding and duration bounds for utterance segments.
type SegmentConfig struct {
	// PrePadding is how much audio before speech onset is kept so the first
	// word is not clipped.
	PrePadding time.Duration
	// PostPadding is how much trailing quiet is kept after the last loud
	// frame of an utterance.
	PostPadding time.Duration
	// MinDuration and MaxDuration bound accepted segments; out-of-bounds
	// segments are dropped at finalize, not queued.
	MinDuration time.Duration
	MaxDuration time.Duration
}

// DefaultSegmentConfig returns the default segment tuning.
func DefaultSegmentConfig() SegmentConfig {
	return SegmentConfig{
		PrePadding:  100 * time.Millisecond,
		PostPadding: 200 * time.Millisecond,
		MinDuration: 300 * time.Millisecond,
		MaxDuration: 10 * time.Second,
	}
}

// SegmentBuffer accumulates raw samples for one utterance. While silent it
// maintains a rolling pre-speech buffer so the onset of the next utterance is
// not clipped. While the gate is open every frame is appended, quiet dips
// included; the buffer only tracks how much trailing quiet has accumulated so
// finalize can trim it down to PostPadding.
//
// Owned by the processor loop; not safe for concurrent use.
type SegmentBuffer struct {
	sampleRate int
	cfg        SegmentConfig

	active        []float32
	prePadding    []float32
	trailingQuiet int
	wasSpeaking   bool
	ready         bool
}

// NewSegmentBuffer creates a segment buffer for the given capture rate.
func NewSegmentBuffer(sampleRate int, cfg SegmentConfig) *SegmentBuffer {
	return &SegmentBuffer{
		sampleRate: sampleRate,
		cfg:        cfg,
		active:     make([]float32, 0, int(float64(sampleRate)*cfg.MaxDuration.Seconds())),
	}
}

// AddSamples feeds one frame. speaking is the gate's current state; loud is
// whether this frame's energy is above the gate's silence threshold.
func (b *SegmentBuffer) AddSamples(frame []float32, speaking, loud bool) {
	if speaking {
		if !b.wasSpeaking {
			// First speaking frame after silence: seed the segment with the
			// rolling pre-speech buffer so the word onset survives.
			if len(b.prePadding) > 0 {
				b.active = append(b.active[:0], b.prePadding...)
				b.prePadding = b.prePadding[:0]
			}
			b.trailingQuiet = 0
		}
		b.wasSpeaking = true

		// Every in-utterance frame is kept; a dip must not splice audio out
		// of the middle of the segment.
		b.active = append(b.active, frame...)
		if loud {
			b.trailingQuiet = 0
		} else {
			b.trailingQuiet += len(frame)
		}
		return
	}

	if b.wasSpeaking {
		// The utterance closed without a finalize (it was rejected). Retain
		// the last PrePadding worth as onset context for the next one.
		keep := b.samplesFor(b.cfg.PrePadding)
		if keep > len(b.active) {
			keep = len(b.active)
		}
		b.prePadding = append(b.prePadding[:0], b.active[len(b.active)-keep:]...)
		b.active = b.active[:0]
		b.trailingQuiet = 0
		b.wasSpeaking = false
		return
	}

	// Still silent: slide the pre-speech buffer.
	b.prePadding = appendBounded(b.prePadding, frame, b.samplesFor(b.cfg.PrePadding))
}

// FinalizeSegment trims trailing quiet beyond PostPadding and marks the
// segment ready if its duration is within [MinDuration, MaxDuration].
// Out-of-bounds segments are discarded and false is returned; that is a
// noise-rejection guard, not an error.
func (b *SegmentBuffer) FinalizeSegment() bool {
	if len(b.active) == 0 {
		b.ready = false
		return false
	}

	if keep := b.samplesFor(b.cfg.PostPadding); b.trailingQuiet > keep {
		b.active = b.active[:len(b.active)-(b.trailingQuiet-keep)]
	}
	b.trailingQuiet = 0

	n := len(b.active)
	if n < b.samplesFor(b.cfg.MinDuration) || n > b.samplesFor(b.cfg.MaxDuration) {
		b.active = b.active[:0]
		b.ready = false
		return false
	}

	b.ready = true
	return true
}

// HasSegment reports whether a finalized segment is waiting to be consumed.
func (b *SegmentBuffer) HasSegment() bool {
	return b.ready
}

// ConsumeSegment moves ownership of the finished segment to the caller and
// resets internal state for the next utterance. Returns nil if no segment is
// ready.
func (b *SegmentBuffer) ConsumeSegment() []float32 {
	if !b.ready || len(b.active) == 0 {
		return nil
	}
	out := b.active
	b.active = make([]float32, 0, cap(out))
	b.prePadding = b.prePadding[:0]
	b.trailingQuiet = 0
	b.ready = false
	b.wasSpeaking = false
	return out
}

// Len returns the current active segment length in samples.
func (b *SegmentBuffer) Len() int {
	return len(b.active)
}

// Duration returns the current active segment duration.
func (b *SegmentBuffer) Duration() time.Duration {
	return time.Duration(float64(len(b.active)) / float64(b.sampleRate) * float64(time.Second))
}

// Clear discards all buffered audio and state.
func (b *SegmentBuffer) Clear() {
	b.active = b.active[:0]
	b.prePadding = b.prePadding[:0]
	b.trailingQuiet = 0
	b.ready = false
	b.wasSpeaking = false
}

func (b *SegmentBuffer) samplesFor(d time.Duration) int {
	return int(float64(b.sampleRate) * d.Seconds())
}

// appendBounded appends frame to buf and trims the front so at most limit
// samples remain (a sliding window keeping the newest audio).
func appendBounded(buf, frame []float32, limit int) []float32 {
	buf = append(buf, frame...)
	if limit >= 0 && len(buf) > limit {
		excess := len(buf) - limit
		copy(buf, buf[excess:])
		buf = buf[:limit]
	}
	return buf
}
