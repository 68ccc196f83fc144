package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// WAVFeeder implements Capturer by replaying a PCM16 RIFF/WAVE file into the
// ring buffer at the capture cadence, then feeding silence until stopped. It
// exists so the full pipeline can run without a microphone.
type WAVFeeder struct {
	path     string
	cfg      CaptureConfig
	ring     *RingBuffer
	samples  []float32
	running  bool
	mu       sync.RWMutex
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewWAVFeeder creates a feeder replaying path into ring. The file must be
// 16-bit PCM; multi-channel audio is averaged down to mono. The file's own
// sample rate overrides cfg.SampleRate for pacing, so callers should build
// the processor from the returned feeder's SampleRate.
func NewWAVFeeder(path string, cfg CaptureConfig, ring *RingBuffer) (*WAVFeeder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wav file: %w", err)
	}
	defer f.Close()

	samples, rate, err := decodeWAV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	cfg.SampleRate = uint32(rate)

	return &WAVFeeder{
		path:     path,
		cfg:      cfg,
		ring:     ring,
		samples:  samples,
		stopChan: make(chan struct{}),
	}, nil
}

// SampleRate returns the decoded file's sample rate in Hz.
func (w *WAVFeeder) SampleRate() int {
	return int(w.cfg.SampleRate)
}

// Duration returns the duration of the decoded audio.
func (w *WAVFeeder) Duration() time.Duration {
	return time.Duration(float64(len(w.samples)) / float64(w.cfg.SampleRate) * float64(time.Second))
}

// Start begins replaying the file in frame-sized chunks at real-time pace.
func (w *WAVFeeder) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("feeder is already running")
	}
	w.running = true
	w.mu.Unlock()

	chunk := int(float64(w.cfg.SampleRate) * w.cfg.FrameDuration.Seconds())
	if chunk < 1 {
		chunk = 1
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		ticker := time.NewTicker(w.cfg.FrameDuration)
		defer ticker.Stop()

		silence := make([]float32, chunk)
		offset := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stopChan:
				return
			case <-ticker.C:
				if offset < len(w.samples) {
					end := offset + chunk
					if end > len(w.samples) {
						end = len(w.samples)
					}
					w.ring.Write(w.samples[offset:end])
					offset = end
				} else {
					// File exhausted: keep the pipeline ticking on silence
					// so a trailing utterance can still close out.
					w.ring.Write(silence)
				}
			}
		}
	}()

	return nil
}

// Stop halts replay. The second call is a no-op.
func (w *WAVFeeder) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopChan)
	w.wg.Wait()
	return nil
}

// IsRunning reports whether replay is active.
func (w *WAVFeeder) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// decodeWAV parses a RIFF/WAVE stream, accepting only uncompressed 16-bit
// PCM, and returns normalized mono samples plus the sample rate.
func decodeWAV(r io.Reader) ([]float32, int, error) {
	var riff [4]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, 0, err
	}
	if string(riff[:]) != "RIFF" {
		return nil, 0, fmt.Errorf("not a RIFF file")
	}
	var riffSize uint32
	if err := binary.Read(r, binary.LittleEndian, &riffSize); err != nil {
		return nil, 0, err
	}
	var wave [4]byte
	if _, err := io.ReadFull(r, wave[:]); err != nil {
		return nil, 0, err
	}
	if string(wave[:]) != "WAVE" {
		return nil, 0, fmt.Errorf("not a WAVE file")
	}

	var (
		audioFormat   uint16
		numChannels   uint16
		sampleRate    uint32
		bitsPerSample uint16
		data          []byte
	)

	for {
		var chunkID [4]byte
		if _, err := io.ReadFull(r, chunkID[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return nil, 0, err
		}
		var chunkSize uint32
		if err := binary.Read(r, binary.LittleEndian, &chunkSize); err != nil {
			return nil, 0, err
		}

		switch string(chunkID[:]) {
		case "fmt ":
			var byteRate uint32
			var blockAlign uint16
			if err := binary.Read(r, binary.LittleEndian, &audioFormat); err != nil {
				return nil, 0, err
			}
			if err := binary.Read(r, binary.LittleEndian, &numChannels); err != nil {
				return nil, 0, err
			}
			if err := binary.Read(r, binary.LittleEndian, &sampleRate); err != nil {
				return nil, 0, err
			}
			if err := binary.Read(r, binary.LittleEndian, &byteRate); err != nil {
				return nil, 0, err
			}
			if err := binary.Read(r, binary.LittleEndian, &blockAlign); err != nil {
				return nil, 0, err
			}
			if err := binary.Read(r, binary.LittleEndian, &bitsPerSample); err != nil {
				return nil, 0, err
			}
			if chunkSize > 16 {
				if _, err := io.CopyN(io.Discard, r, int64(chunkSize-16)); err != nil {
					return nil, 0, err
				}
			}
		case "data":
			data = make([]byte, chunkSize)
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, 0, err
			}
		default:
			if _, err := io.CopyN(io.Discard, r, int64(chunkSize)); err != nil {
				return nil, 0, err
			}
		}

		// Chunks are word-aligned.
		if chunkSize%2 == 1 {
			if _, err := io.CopyN(io.Discard, r, 1); err != nil && err != io.EOF {
				return nil, 0, err
			}
		}
	}

	if data == nil {
		return nil, 0, fmt.Errorf("missing data chunk")
	}
	if audioFormat != 1 || bitsPerSample != 16 {
		return nil, 0, fmt.Errorf("unsupported format: only 16-bit PCM is supported")
	}
	if numChannels == 0 || sampleRate == 0 {
		return nil, 0, fmt.Errorf("invalid fmt chunk")
	}

	frameCount := len(data) / 2 / int(numChannels)
	samples := make([]float32, 0, frameCount)
	for i := 0; i < frameCount; i++ {
		var sum int32
		for ch := 0; ch < int(numChannels); ch++ {
			off := (i*int(numChannels) + ch) * 2
			sum += int32(int16(data[off]) | int16(data[off+1])<<8)
		}
		samples = append(samples, float32(sum/int32(numChannels))/32768.0)
	}

	return samples, int(sampleRate), nil
}
