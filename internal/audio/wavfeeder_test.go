package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildWAV assembles a minimal RIFF/WAVE buffer with interleaved 16-bit PCM.
// extraChunk, when non-nil, is inserted between fmt and data.
func buildWAV(samples []int16, channels, rate int, extraChunk []byte) []byte {
	var buf bytes.Buffer
	dataSize := len(samples) * 2

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(extraChunk)+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(rate))
	binary.Write(&buf, binary.LittleEndian, uint32(rate*channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.Write(extraChunk)

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	binary.Write(&buf, binary.LittleEndian, samples)

	return buf.Bytes()
}

func TestDecodeWAVMono(t *testing.T) {
	wav := buildWAV([]int16{0, 16384, -16384, 32767}, 1, 16000, nil)

	samples, rate, err := decodeWAV(bytes.NewReader(wav))
	require.NoError(t, err)
	assert.Equal(t, 16000, rate)
	require.Len(t, samples, 4)
	assert.InDelta(t, 0.0, samples[0], 1e-6)
	assert.InDelta(t, 0.5, samples[1], 1e-6)
	assert.InDelta(t, -0.5, samples[2], 1e-6)
	assert.InDelta(t, 1.0, samples[3], 1e-3)
}

func TestDecodeWAVStereoDownmix(t *testing.T) {
	// L/R pairs average down to mono.
	wav := buildWAV([]int16{1000, 3000, -2000, -4000}, 2, 44100, nil)

	samples, rate, err := decodeWAV(bytes.NewReader(wav))
	require.NoError(t, err)
	assert.Equal(t, 44100, rate)
	require.Len(t, samples, 2)
	assert.InDelta(t, 2000.0/32768.0, samples[0], 1e-6)
	assert.InDelta(t, -3000.0/32768.0, samples[1], 1e-6)
}

func TestDecodeWAVSkipsUnknownChunks(t *testing.T) {
	// An odd-sized LIST chunk exercises word alignment too.
	var extra bytes.Buffer
	extra.WriteString("LIST")
	binary.Write(&extra, binary.LittleEndian, uint32(3))
	extra.Write([]byte{1, 2, 3, 0}) // 3 bytes + alignment pad

	wav := buildWAV([]int16{100, 200}, 1, 8000, extra.Bytes())

	samples, rate, err := decodeWAV(bytes.NewReader(wav))
	require.NoError(t, err)
	assert.Equal(t, 8000, rate)
	assert.Len(t, samples, 2)
}

func TestDecodeWAVRejectsNonRIFF(t *testing.T) {
	_, _, err := decodeWAV(bytes.NewReader([]byte("OggS\x00\x00\x00\x00")))
	assert.Error(t, err)
}

func TestDecodeWAVRejectsNonPCM(t *testing.T) {
	wav := buildWAV([]int16{0, 0}, 1, 16000, nil)
	// Patch the audio format field to IEEE float.
	wav[20] = 3

	_, _, err := decodeWAV(bytes.NewReader(wav))
	assert.Error(t, err)
}

func TestDecodeWAVMissingData(t *testing.T) {
	wav := buildWAV(nil, 1, 16000, nil)
	// Truncate off the data chunk header.
	wav = wav[:len(wav)-8]

	_, _, err := decodeWAV(bytes.NewReader(wav))
	assert.Error(t, err)
}

func TestWAVFeederReplaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	pcm := make([]int16, 8000) // one second at 8kHz
	for i := range pcm {
		pcm[i] = 1000
	}
	require.NoError(t, os.WriteFile(path, buildWAV(pcm, 1, 8000, nil), 0644))

	cfg := DefaultCaptureConfig()
	ring := NewRingBuffer(16000)
	feeder, err := NewWAVFeeder(path, cfg, ring)
	require.NoError(t, err)

	// The file's rate wins over the configured capture rate.
	assert.Equal(t, 8000, feeder.SampleRate())
	assert.Equal(t, time.Second, feeder.Duration())

	require.NoError(t, feeder.Start(context.Background()))
	assert.Error(t, feeder.Start(context.Background()), "second start is rejected")
	assert.True(t, feeder.IsRunning())

	require.Eventually(t, func() bool { return ring.Available() > 0 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, feeder.Stop())
	require.NoError(t, feeder.Stop())
	assert.False(t, feeder.IsRunning())
}

func TestNewWAVFeederRejectsMissingFile(t *testing.T) {
	_, err := NewWAVFeeder(filepath.Join(t.TempDir(), "missing.wav"), DefaultCaptureConfig(), NewRingBuffer(16))
	assert.Error(t, err)
}
