package mcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/emmett/murmur/internal/audio"
	"github.com/emmett/murmur/internal/logging"
	"github.com/emmett/murmur/internal/models"
	"github.com/emmett/murmur/internal/stt"
)

// toolTimeout bounds one transcribe_audio call end to end.
const toolTimeout = 60 * time.Second

type TranscribeArgs struct {
	Audio      string `json:"audio" jsonschema:"required,description=Base64-encoded audio data (16-bit little-endian PCM)"`
	SampleRate int    `json:"sample_rate,omitempty" jsonschema:"description=Sample rate of the audio in Hz (default: 16000)"`
	Channels   int    `json:"channels,omitempty" jsonschema:"description=Number of interleaved channels (default: 1)"`
}

type PipelineStatusArgs struct{}

type ListModelsArgs struct{}

func (s *Server) handleTranscribeAudio(ctx context.Context, req *sdk.CallToolRequest, args TranscribeArgs) (*sdk.CallToolResult, any, error) {
	audioData, err := base64.StdEncoding.DecodeString(args.Audio)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid base64 audio: %w", err)
	}
	if len(audioData) == 0 {
		return nil, nil, fmt.Errorf("empty audio payload")
	}

	cfg := s.config.Pipeline
	if args.SampleRate > 0 {
		cfg.SampleRate = args.SampleRate
	} else {
		cfg.SampleRate = 16000
	}
	channels := args.Channels
	if channels < 1 {
		channels = 1
	}

	var (
		mu       sync.Mutex
		pending  sync.WaitGroup
		segments []string
	)

	dispatch := func(pcm []int16, sampleRate int) {
		pending.Add(1)
		ok := s.worker.Enqueue(stt.Job{
			PCM:        pcm,
			SampleRate: sampleRate,
			CapturedAt: time.Now(),
			OnResult: func(res stt.Result) {
				if res.Text != "" {
					mu.Lock()
					segments = append(segments, res.Text)
					mu.Unlock()
				}
				pending.Done()
			},
		})
		if !ok {
			pending.Done()
		}
	}

	segmenter := audio.NewStreamSegmenter(cfg, dispatch, logging.PipelineLogger("mcp"))
	segmenter.FeedPCM16(audioData, channels)
	segmenter.Flush()

	done := make(chan struct{})
	go func() {
		pending.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case <-time.After(toolTimeout):
		return nil, nil, fmt.Errorf("transcription timed out")
	}

	mu.Lock()
	defer mu.Unlock()

	if len(segments) == 0 {
		return &sdk.CallToolResult{
			Content: []sdk.Content{
				&sdk.TextContent{Text: "No speech detected"},
			},
		}, nil, nil
	}

	content := []sdk.Content{
		&sdk.TextContent{Text: strings.Join(segments, " ")},
		&sdk.TextContent{Text: fmt.Sprintf("Segments: %d", len(segments))},
	}
	return &sdk.CallToolResult{Content: content}, nil, nil
}

func (s *Server) handlePipelineStatus(ctx context.Context, req *sdk.CallToolRequest, args PipelineStatusArgs) (*sdk.CallToolResult, any, error) {
	status := fmt.Sprintf("engine: %s\nmodel: %s\nqueued segments: %d\ndropped segments: %d",
		s.config.Engine, s.config.ModelPath, s.worker.QueueLen(), s.worker.Dropped())

	return &sdk.CallToolResult{
		Content: []sdk.Content{
			&sdk.TextContent{Text: status},
		},
	}, nil, nil
}

func (s *Server) handleListModels(ctx context.Context, req *sdk.CallToolRequest, args ListModelsArgs) (*sdk.CallToolResult, any, error) {
	downloaded, err := models.ListDownloadedModels()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list models: %w", err)
	}

	content := []sdk.Content{
		&sdk.TextContent{Text: fmt.Sprintf("Downloaded models (%d):", len(downloaded))},
	}

	for _, model := range downloaded {
		content = append(content, &sdk.TextContent{Text: fmt.Sprintf("- %s", model)})
	}

	return &sdk.CallToolResult{Content: content}, nil, nil
}
