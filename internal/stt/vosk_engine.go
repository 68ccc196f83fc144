package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	vosk "github.com/alphacep/vosk-api/go"
)

// VoskEngine implements the Engine interface using Vosk. Each utterance is
// fed in one AcceptWaveform call followed by FinalResult, which also resets
// the recognizer for the next utterance.
type VoskEngine struct {
	model       *vosk.VoskModel
	recognizer  *vosk.VoskRecognizer
	config      Config
	mu          sync.Mutex
	initialized bool
}

// voskResult represents the JSON result from Vosk.
type voskResult struct {
	Text   string `json:"text"`
	Result []struct {
		Conf  float64 `json:"conf"`
		End   float64 `json:"end"`
		Start float64 `json:"start"`
		Word  string  `json:"word"`
	} `json:"result,omitempty"`
}

// NewVoskEngine creates a new Vosk STT engine.
func NewVoskEngine() *VoskEngine {
	return &VoskEngine{}
}

// Initialize loads the Vosk model directory.
func (v *VoskEngine) Initialize(config Config) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.initialized {
		return fmt.Errorf("engine already initialized")
	}

	info, err := os.Stat(config.ModelPath)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidModel, config.ModelPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory, expected a vosk model directory", ErrInvalidModel, config.ModelPath)
	}

	// Suppress vosk's own logging.
	vosk.SetLogLevel(-1)

	model, err := vosk.NewModel(config.ModelPath)
	if err != nil {
		return fmt.Errorf("failed to load model from %s: %w", config.ModelPath, err)
	}
	if model == nil {
		return fmt.Errorf("failed to load model from %s: model returned nil", config.ModelPath)
	}
	v.model = model

	recognizer, err := vosk.NewRecognizer(model, float64(config.SampleRate))
	if err != nil {
		model.Free()
		v.model = nil
		return fmt.Errorf("failed to create recognizer: %w", err)
	}
	v.recognizer = recognizer

	// Word results carry the confidence scores.
	v.recognizer.SetWords(1)

	v.config = config
	v.initialized = true
	return nil
}

// Transcribe runs recognition on one complete utterance.
func (v *VoskEngine) Transcribe(ctx context.Context, pcm []int16) (*Result, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		return nil, ErrEngineUnavailable
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	data := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		data[i*2] = byte(s)
		data[i*2+1] = byte(s >> 8)
	}

	v.recognizer.AcceptWaveform(data)

	// FinalResult flushes the utterance and resets the recognizer.
	resultJSON := v.recognizer.FinalResult()
	var parsed voskResult
	if err := json.Unmarshal([]byte(resultJSON), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse result: %w", err)
	}

	return &Result{
		Text:       parsed.Text,
		Confidence: averageConfidence(parsed),
	}, nil
}

// Close releases resources.
func (v *VoskEngine) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.initialized {
		return nil
	}

	if v.recognizer != nil {
		v.recognizer.Free()
		v.recognizer = nil
	}
	if v.model != nil {
		v.model.Free()
		v.model = nil
	}

	v.initialized = false
	return nil
}

// IsInitialized returns true if the engine holds a loaded model.
func (v *VoskEngine) IsInitialized() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.initialized
}

// averageConfidence averages per-word confidence scores.
func averageConfidence(result voskResult) float64 {
	if len(result.Result) == 0 {
		return 0.0
	}

	var sum float64
	for _, word := range result.Result {
		sum += word.Conf
	}
	return sum / float64(len(result.Result))
}
