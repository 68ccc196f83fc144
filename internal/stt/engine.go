package stt

import (
	"context"
	"errors"
)

// ErrEngineUnavailable indicates the engine could not be initialized, usually
// because no model is installed. The pipeline keeps running; segments handed
// to an unavailable engine are dropped.
var ErrEngineUnavailable = errors.New("stt engine unavailable")

// ErrInvalidModel indicates the configured model path does not point at a
// usable model.
var ErrInvalidModel = errors.New("invalid stt model")

// Result represents a speech recognition result for one segment.
type Result struct {
	// Text is the recognized text, trimmed.
	Text string

	// Confidence is the recognition confidence (0.0 to 1.0). Engines that do
	// not report confidence return 0.
	Confidence float64
}

// Config holds configuration for an STT engine.
type Config struct {
	// ModelPath is the path to the model file or directory.
	ModelPath string

	// SampleRate is the audio sample rate in Hz of segments handed to
	// Transcribe.
	SampleRate int

	// Language is a BCP-47 language hint (e.g. "en"). Engines without
	// language selection ignore it.
	Language string

	// Threads is the number of inference threads; 0 lets the engine decide.
	Threads int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig(modelPath string) Config {
	return Config{
		ModelPath:  modelPath,
		SampleRate: 16000,
		Language:   "en",
	}
}

// Engine is the interface for speech-to-text engines. Implementations are
// NOT safe for concurrent Transcribe calls; the transcription worker is the
// sole caller.
type Engine interface {
	// Initialize loads the model. Returns ErrInvalidModel when the model
	// path is unusable.
	Initialize(config Config) error

	// Transcribe runs recognition on one complete utterance of 16-bit PCM.
	Transcribe(ctx context.Context, pcm []int16) (*Result, error)

	// Close releases resources. Safe to call on an uninitialized engine.
	Close() error

	// IsInitialized returns true if the engine holds a loaded model.
	IsInitialized() bool
}

// NewEngine creates an engine by name. Supported names are "whisper" and
// "vosk"; anything else falls back to whisper.
func NewEngine(name string) Engine {
	switch name {
	case "vosk":
		return NewVoskEngine()
	default:
		return NewWhisperEngine()
	}
}
