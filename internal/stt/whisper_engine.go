package stt

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// minModelSize guards against truncated downloads; every ggml model ships
// well above this.
const minModelSize = 1 << 20

// WhisperEngine implements the Engine interface using the whisper.cpp Go
// bindings. A fresh context is created per utterance; contexts are not
// thread-safe but the loaded model is shared safely.
type WhisperEngine struct {
	model       whisper.Model
	config      Config
	mu          sync.Mutex
	initialized bool
}

// NewWhisperEngine creates a new whisper.cpp STT engine.
func NewWhisperEngine() *WhisperEngine {
	return &WhisperEngine{}
}

// Initialize loads the ggml model file.
func (w *WhisperEngine) Initialize(config Config) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.initialized {
		return fmt.Errorf("engine already initialized")
	}

	info, err := os.Stat(config.ModelPath)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidModel, config.ModelPath, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory, expected a ggml model file", ErrInvalidModel, config.ModelPath)
	}
	if info.Size() < minModelSize {
		return fmt.Errorf("%w: %s is too small (%d bytes), likely a failed download", ErrInvalidModel, config.ModelPath, info.Size())
	}

	model, err := whisper.New(config.ModelPath)
	if err != nil {
		return fmt.Errorf("failed to load model from %s: %w", config.ModelPath, err)
	}

	w.model = model
	w.config = config
	w.initialized = true
	return nil
}

// Transcribe runs whisper inference on one complete utterance.
func (w *WhisperEngine) Transcribe(ctx context.Context, pcm []int16) (*Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.initialized {
		return nil, ErrEngineUnavailable
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	samples := make([]float32, len(pcm))
	for i, s := range pcm {
		samples[i] = float32(s) / 32768.0
	}

	wctx, err := w.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create whisper context: %w", err)
	}

	if w.config.Language != "" {
		// Best effort; the model may be English-only.
		_ = wctx.SetLanguage(w.config.Language)
	}
	if w.config.Threads > 0 {
		wctx.SetThreads(uint(w.config.Threads))
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("failed to process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	return &Result{Text: strings.Join(parts, " ")}, nil
}

// Close releases the model.
func (w *WhisperEngine) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.initialized {
		return nil
	}

	if w.model != nil {
		if err := w.model.Close(); err != nil {
			return fmt.Errorf("failed to close model: %w", err)
		}
		w.model = nil
	}

	w.initialized = false
	return nil
}

// IsInitialized returns true if the engine holds a loaded model.
func (w *WhisperEngine) IsInitialized() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.initialized
}
