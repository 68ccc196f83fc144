package grpc

import (
	"context"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/emmett/murmur/internal/audio"
	"github.com/emmett/murmur/internal/logging"
	"github.com/emmett/murmur/internal/stt"
)

// drainTimeout bounds how long a closing stream waits for its queued
// segments to finish transcription.
const drainTimeout = 10 * time.Second

// SegmentService implements the gRPC segmentation service. Each stream runs
// its own analysis pipeline over the client's audio and shares the server's
// transcription worker.
type SegmentService struct {
	worker *stt.Worker
	cfg    audio.ProcessorConfig
	log    *zap.Logger
}

// NewSegmentService creates a new segmentation service
func NewSegmentService(worker *stt.Worker, cfg audio.ProcessorConfig) *SegmentService {
	return &SegmentService{
		worker: worker,
		cfg:    cfg,
		log:    logging.PipelineLogger("grpc"),
	}
}

// AudioChunk represents incoming audio data: 16-bit little-endian PCM.
type AudioChunk struct {
	Data       []byte
	SampleRate int32
	Channels   int32
}

// SegmentResult represents one transcribed speech segment
type SegmentResult struct {
	Text        string
	Confidence  float32
	TimestampMs int64
	DurationMs  int64
}

// SegmentStream is the streaming interface for segmentation
type SegmentStream interface {
	Send(*SegmentResult) error
	Recv() (*AudioChunk, error)
	Context() context.Context
}

// StreamSegments handles bidirectional streaming segmentation
// This will be updated to use generated proto types once protoc runs
func (s *SegmentService) StreamSegments(stream SegmentStream) error {
	ctx := stream.Context()

	var (
		sendMu  sync.Mutex
		pending sync.WaitGroup
	)

	send := func(res stt.Result, duration time.Duration) {
		if res.Text == "" {
			return
		}
		sendMu.Lock()
		defer sendMu.Unlock()
		if err := stream.Send(&SegmentResult{
			Text:        res.Text,
			Confidence:  float32(res.Confidence),
			TimestampMs: time.Now().UnixMilli(),
			DurationMs:  duration.Milliseconds(),
		}); err != nil {
			s.log.Warn("failed to send segment result", zap.Error(err))
		}
	}

	dispatch := func(pcm []int16, sampleRate int) {
		duration := time.Duration(len(pcm)) * time.Second / time.Duration(sampleRate)
		pending.Add(1)
		ok := s.worker.Enqueue(stt.Job{
			PCM:        pcm,
			SampleRate: sampleRate,
			CapturedAt: time.Now(),
			OnResult: func(res stt.Result) {
				send(res, duration)
				pending.Done()
			},
		})
		if !ok {
			pending.Done()
		}
	}

	// Built on the first chunk so the pipeline runs at the client's rate.
	var segmenter *audio.StreamSegmenter

	finish := func() {
		if segmenter != nil {
			segmenter.Flush()
		}
		waitPending(&pending, drainTimeout)
	}

	for {
		select {
		case <-ctx.Done():
			finish()
			return ctx.Err()
		default:
		}

		chunk, err := stream.Recv()
		if err == io.EOF {
			// Close out a trailing utterance, then let queued segments
			// finish before ending the stream.
			finish()
			return nil
		}
		if err != nil {
			return err
		}

		if segmenter == nil {
			cfg := s.cfg
			if chunk.SampleRate > 0 {
				cfg.SampleRate = int(chunk.SampleRate)
			}
			segmenter = audio.NewStreamSegmenter(cfg, dispatch, s.log)
		}
		segmenter.FeedPCM16(chunk.Data, int(chunk.Channels))
	}
}

// waitPending waits for the group with a timeout.
func waitPending(wg *sync.WaitGroup, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}
