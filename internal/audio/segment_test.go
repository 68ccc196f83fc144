package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const segTestRate = 1000 // 1kHz keeps sample math readable: 1 sample = 1ms

func segTestConfig() SegmentConfig {
	return SegmentConfig{
		PrePadding:  100 * time.Millisecond,
		PostPadding: 200 * time.Millisecond,
		MinDuration: 300 * time.Millisecond,
		MaxDuration: 10 * time.Second,
	}
}

// frame produces n samples with the given constant value.
func frame(n int, v float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestSegmentBufferPrePaddingSurvivesOnset(t *testing.T) {
	b := NewSegmentBuffer(segTestRate, segTestConfig())

	// 300ms of silence slides through the pre-speech buffer; only the last
	// 100ms should survive.
	b.AddSamples(frame(150, 0.1), false, false)
	b.AddSamples(frame(150, 0.2), false, false)

	// Speech begins: the segment must be seeded with the last 100ms.
	b.AddSamples(frame(400, 0.9), true, true)

	assert.Equal(t, 500, b.Len(), "100ms pre-padding + 400ms speech")
}

func TestSegmentBufferFinalizeTrimsTrailingQuiet(t *testing.T) {
	b := NewSegmentBuffer(segTestRate, segTestConfig())

	b.AddSamples(frame(150, 0), false, false)
	b.AddSamples(frame(400, 0.9), true, true)

	// The gate stays open through 400ms of trailing quiet; finalize keeps
	// only PostPadding (200 samples) of it.
	b.AddSamples(frame(150, 0), true, false)
	b.AddSamples(frame(150, 0), true, false)
	b.AddSamples(frame(100, 0), true, false)

	require.True(t, b.FinalizeSegment())
	seg := b.ConsumeSegment()
	require.NotNil(t, seg)
	// 100ms pre-padding + 400ms speech + 200ms trailing quiet.
	assert.Equal(t, 100+400+200, len(seg))
}

func TestSegmentBufferKeepsLongDipAudio(t *testing.T) {
	b := NewSegmentBuffer(segTestRate, segTestConfig())

	// A quiet dip longer than PostPadding with speech resuming before the
	// gate closes: every sample of the dip stays in the segment.
	b.AddSamples(frame(300, 0.9), true, true)
	b.AddSamples(frame(400, 0), true, false)
	b.AddSamples(frame(300, 0.8), true, true)

	require.True(t, b.FinalizeSegment())
	seg := b.ConsumeSegment()
	assert.Equal(t, 300+400+300, len(seg))
}

func TestSegmentBufferShortTrailingQuietKeptWhole(t *testing.T) {
	b := NewSegmentBuffer(segTestRate, segTestConfig())

	b.AddSamples(frame(400, 0.9), true, true)
	b.AddSamples(frame(150, 0), true, false)

	// 150ms of trailing quiet is under PostPadding; nothing is trimmed.
	require.True(t, b.FinalizeSegment())
	assert.Equal(t, 400+150, len(b.ConsumeSegment()))
}

func TestSegmentBufferRejectedUtteranceParksContext(t *testing.T) {
	b := NewSegmentBuffer(segTestRate, segTestConfig())

	// An utterance that was never finalized closes; its last 100ms is kept
	// as onset context for the next one.
	b.AddSamples(frame(400, 0.9), true, true)
	b.AddSamples(frame(50, 0), false, false)
	assert.Equal(t, 0, b.Len())

	b.AddSamples(frame(300, 0.8), true, true)
	require.True(t, b.FinalizeSegment())
	seg := b.ConsumeSegment()
	assert.Equal(t, 100+300, len(seg))
}

func TestSegmentBufferDropsTooShort(t *testing.T) {
	b := NewSegmentBuffer(segTestRate, segTestConfig())

	b.AddSamples(frame(100, 0.9), true, true)
	assert.False(t, b.FinalizeSegment(), "100ms < 300ms minimum")
	assert.False(t, b.HasSegment())
	assert.Nil(t, b.ConsumeSegment())
	assert.Equal(t, 0, b.Len(), "rejected audio is discarded")
}

func TestSegmentBufferDropsTooLong(t *testing.T) {
	cfg := segTestConfig()
	cfg.MaxDuration = time.Second
	b := NewSegmentBuffer(segTestRate, cfg)

	b.AddSamples(frame(1500, 0.9), true, true)
	assert.False(t, b.FinalizeSegment(), "1.5s > 1s maximum")
	assert.Equal(t, 0, b.Len())
}

func TestSegmentBufferEmptyFinalize(t *testing.T) {
	b := NewSegmentBuffer(segTestRate, segTestConfig())
	assert.False(t, b.FinalizeSegment())
	assert.Nil(t, b.ConsumeSegment())
}

func TestSegmentBufferConsumeResetsState(t *testing.T) {
	b := NewSegmentBuffer(segTestRate, segTestConfig())

	b.AddSamples(frame(400, 0.9), true, true)
	require.True(t, b.FinalizeSegment())
	first := b.ConsumeSegment()
	require.Len(t, first, 400)

	// The next utterance starts clean.
	b.AddSamples(frame(350, 0.7), true, true)
	require.True(t, b.FinalizeSegment())
	second := b.ConsumeSegment()
	assert.Len(t, second, 350)
}

func TestSegmentBufferClear(t *testing.T) {
	b := NewSegmentBuffer(segTestRate, segTestConfig())
	b.AddSamples(frame(400, 0.9), true, true)
	b.Clear()

	assert.Equal(t, 0, b.Len())
	assert.False(t, b.FinalizeSegment())
}

func TestSegmentBufferDuration(t *testing.T) {
	b := NewSegmentBuffer(segTestRate, segTestConfig())
	b.AddSamples(frame(500, 0.9), true, true)
	assert.Equal(t, 500*time.Millisecond, b.Duration())
}
