package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// feedFrames drives the pipeline with n frames of the given samples using the
// configured frame cadence as the audio-time delta.
func feedFrames(p *Processor, samples []float32, n int) {
	for i := 0; i < n; i++ {
		p.ProcessFrame(samples, 20*time.Millisecond)
	}
}

func TestProcessorEndToEnd(t *testing.T) {
	cfg := DefaultProcessorConfig()

	var (
		dispatched [][]int16
		rates      []int
	)
	dispatch := func(pcm []int16, sampleRate int) {
		dispatched = append(dispatched, pcm)
		rates = append(rates, sampleRate)
	}

	p := NewProcessor(cfg, NewRingBuffer(1), dispatch, zap.NewNop())
	assert.False(t, p.IsSilent(), "silence is unknown before calibration")

	silence := make([]float32, p.FrameSamples())
	tone := sine(p.FrameSamples(), cfg.SampleRate, 440, 0.1)

	// 200ms of room tone: calibration still open.
	feedFrames(p, silence, 10)
	st := p.Status()
	assert.False(t, st.Calibrated)
	assert.False(t, st.Silent)

	// 120ms more locks the 300ms calibration window.
	feedFrames(p, silence, 6)
	st = p.Status()
	assert.True(t, st.Calibrated)
	assert.False(t, st.Speaking)
	assert.True(t, st.Silent)

	// 400ms of tone: the gate opens after the 200ms start hold.
	feedFrames(p, tone, 20)
	assert.True(t, p.Status().Speaking)
	assert.Empty(t, dispatched, "no segment until speech ends")

	// 800ms of silence: the RMS window decays, the 500ms end hold elapses
	// and the utterance is finalized.
	feedFrames(p, silence, 40)
	st = p.Status()
	assert.False(t, st.Speaking)
	assert.True(t, st.Silent)

	require.Len(t, dispatched, 1, "exactly one utterance")
	assert.Equal(t, cfg.TargetRate, rates[0])

	// Pre-padding + speech + trailing context lands between the duration
	// bounds at the target rate.
	samples := len(dispatched[0])
	assert.Greater(t, samples, cfg.TargetRate*3/10)
	assert.Less(t, samples, cfg.TargetRate)
}

func TestProcessorNoDispatchBelowMinDuration(t *testing.T) {
	cfg := DefaultProcessorConfig()
	cfg.Gate.SpeechStartHold = 20 * time.Millisecond
	cfg.Segment.MinDuration = 2 * time.Second

	var dispatched int
	p := NewProcessor(cfg, NewRingBuffer(1), func([]int16, int) { dispatched++ }, nil)

	silence := make([]float32, p.FrameSamples())
	tone := sine(p.FrameSamples(), cfg.SampleRate, 440, 0.1)

	feedFrames(p, silence, 16)
	feedFrames(p, tone, 20)
	feedFrames(p, silence, 40)

	assert.Zero(t, dispatched, "sub-minimum utterances are dropped")
}

func TestProcessorStartStop(t *testing.T) {
	cfg := DefaultProcessorConfig()
	ring := NewRingBuffer(cfg.SampleRate)
	p := NewProcessor(cfg, ring, nil, zap.NewNop())

	require.NoError(t, p.Start())
	assert.Error(t, p.Start(), "second start is rejected")

	p.Stop()
	p.Stop() // idempotent

	require.NoError(t, p.Start(), "restart after stop")
	p.Stop()
}

func TestStreamSegmenterFlushClosesTrailingUtterance(t *testing.T) {
	cfg := DefaultProcessorConfig()

	var dispatched [][]int16
	s := NewStreamSegmenter(cfg, func(pcm []int16, _ int) {
		dispatched = append(dispatched, pcm)
	}, zap.NewNop())

	// Room tone for calibration, then an utterance the input ends in the
	// middle of. Without Flush the gate would stay open forever.
	s.FeedSamples(make([]float32, cfg.SampleRate*4/10))
	s.FeedSamples(sine(cfg.SampleRate*4/10, cfg.SampleRate, 440, 0.1))
	assert.Empty(t, dispatched)

	s.Flush()
	require.Len(t, dispatched, 1)
	assert.False(t, s.Status().Speaking)
}

func TestStreamSegmenterPCM16Input(t *testing.T) {
	cfg := DefaultProcessorConfig()

	var dispatched int
	s := NewStreamSegmenter(cfg, func([]int16, int) { dispatched++ }, nil)

	// Interleaved stereo with identical channels mixes down to the same
	// mono signal.
	toneMono := sine(cfg.SampleRate*4/10, cfg.SampleRate, 440, 0.1)
	pcm := make([]byte, len(toneMono)*2*2)
	for i, sample := range toneMono {
		v := int16(sample * 32767)
		for ch := 0; ch < 2; ch++ {
			off := (i*2 + ch) * 2
			pcm[off] = byte(v)
			pcm[off+1] = byte(v >> 8)
		}
	}

	silence := make([]byte, cfg.SampleRate*4/10*2*2)
	s.FeedPCM16(silence, 2)
	s.FeedPCM16(pcm, 2)
	s.Flush()

	assert.Equal(t, 1, dispatched)
}
