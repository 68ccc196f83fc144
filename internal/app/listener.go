package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/emmett/murmur/internal/audio"
	"github.com/emmett/murmur/internal/config"
	"github.com/emmett/murmur/internal/input"
	"github.com/emmett/murmur/internal/logging"
	"github.com/emmett/murmur/internal/models"
	"github.com/emmett/murmur/internal/output"
	"github.com/emmett/murmur/internal/stt"
)

// ListenerConfig holds configuration for a listening session
type ListenerConfig struct {
	Config       *config.Config
	ModelName    string
	ModelPath    string
	WAVFile      string
	AutoDownload bool
}

// Listener orchestrates the live pipeline: capture feeds the ring buffer,
// the processor segments speech, and the transcription worker turns finished
// segments into text on the output formatter.
type Listener struct {
	cfg   ListenerConfig
	log   *zap.Logger
	muted atomic.Bool
}

// NewListener creates a new Listener instance
func NewListener(cfg ListenerConfig) *Listener {
	if cfg.Config == nil {
		cfg.Config = config.DefaultConfig()
	}
	return &Listener{
		cfg: cfg,
		log: logging.PipelineLogger("listener"),
	}
}

// Run starts the listening session and blocks until interrupted.
func (l *Listener) Run() error {
	appCfg := l.cfg.Config

	modelPath, err := l.resolveModel()
	if err != nil {
		return err
	}

	// Output formatter
	writer := os.Stdout
	var outFile *os.File
	if appCfg.Output.File != "" {
		outFile, err = os.Create(appCfg.Output.File)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer outFile.Close()
		writer = outFile
	}
	formatter := output.NewFormatter(strings.ToLower(appCfg.Output.Format), writer)
	defer formatter.Close()

	// Status messages go to stderr when transcripts go to a file.
	statusOut := output.DefaultConsoleOutput()
	if appCfg.Output.File != "" {
		statusOut = output.NewConsoleOutput(output.ConsoleConfig{
			ShowTimestamp: true,
			Writer:        os.Stderr,
		})
	}

	// Capture side
	captureCfg := appCfg.CaptureConfig()
	procCfg := appCfg.ProcessorConfig()

	ring := audio.NewRingBuffer(captureCfg.RingCapacity())

	var capturer audio.Capturer
	if l.cfg.WAVFile != "" {
		feeder, err := audio.NewWAVFeeder(l.cfg.WAVFile, captureCfg, ring)
		if err != nil {
			return fmt.Errorf("failed to open wav input: %w", err)
		}
		procCfg.SampleRate = feeder.SampleRate()
		capturer = feeder
		statusOut.Info(fmt.Sprintf("Reading audio from %s (%.1fs at %d Hz)",
			l.cfg.WAVFile, feeder.Duration().Seconds(), feeder.SampleRate()))
	} else {
		deviceMgr := NewDeviceManager()
		device, err := deviceMgr.SelectDevice(appCfg.Audio.Device)
		if err != nil {
			return err
		}
		captureCfg.DeviceID = device.ID
		capturer, err = audio.NewCapturer(captureCfg, ring)
		if err != nil {
			return fmt.Errorf("failed to create capturer: %w", err)
		}
		statusOut.Info(fmt.Sprintf("Listening on %s (sample rate: %d Hz, channels: %d)",
			device.Name, captureCfg.SampleRate, captureCfg.Channels))
	}

	// Transcription side
	engine := stt.NewEngine(appCfg.Model.Engine)
	engineCfg := stt.Config{
		ModelPath:  modelPath,
		SampleRate: procCfg.TargetRate,
		Language:   appCfg.Model.Language,
		Threads:    appCfg.Model.Threads,
	}

	var transcriptionCount atomic.Int64
	onResult := func(res stt.Result, job stt.Job) {
		n := int(transcriptionCount.Add(1))
		if err := formatter.WriteResult(output.TranscriptionResult{
			Index:      n,
			Text:       res.Text,
			Confidence: res.Confidence,
			Timestamp:  time.Now(),
		}); err != nil {
			l.log.Warn("failed to write transcript", zap.Error(err))
		}
	}

	worker := stt.NewWorker(engine, engineCfg, onResult, logging.PipelineLogger("stt"))
	if err := worker.Start(); err != nil {
		return fmt.Errorf("failed to start transcription worker: %w", err)
	}
	defer worker.Stop()

	dispatch := func(pcm []int16, sampleRate int) {
		if l.muted.Load() {
			return
		}
		worker.Enqueue(stt.Job{
			PCM:        pcm,
			SampleRate: sampleRate,
			CapturedAt: time.Now(),
		})
	}

	processor := audio.NewProcessor(procCfg, ring, dispatch, logging.PipelineLogger("processor"))
	if err := processor.Start(); err != nil {
		return fmt.Errorf("failed to start processor: %w", err)
	}
	defer processor.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := capturer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}
	defer capturer.Stop()

	// Optional mute hotkey
	if appCfg.Hotkey.Enabled {
		hk := input.NewHotkeyManager(func(muted bool) {
			l.muted.Store(muted)
			if muted {
				statusOut.Info("Muted")
			} else {
				statusOut.Info("Listening")
			}
		})
		if err := hk.Start(ctx, appCfg.Hotkey.Toggle); err != nil {
			l.log.Warn("hotkey unavailable", zap.Error(err))
		} else {
			defer hk.Stop()
			statusOut.Info(fmt.Sprintf("Mute toggle: %s", appCfg.Hotkey.Toggle))
		}
	}

	statusOut.Info("Calibrating noise floor, stay quiet for a moment...")
	statusOut.Info("Speak into your microphone. Press Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	fmt.Fprintln(os.Stderr, "\nStopping...")

	// Teardown order matters: stop feeding first, then flush the in-progress
	// utterance, then let the worker drain.
	capturer.Stop()
	processor.Stop()
	worker.Stop()
	formatter.Flush()

	statusOut.Info(fmt.Sprintf("Total transcriptions: %d", transcriptionCount.Load()))
	if dropped := worker.Dropped(); dropped > 0 {
		statusOut.Info(fmt.Sprintf("Segments dropped under load: %d", dropped))
	}
	return nil
}

// IsMuted reports whether segment dispatch is muted.
func (l *Listener) IsMuted() bool {
	return l.muted.Load()
}

// SetMuted sets the mute state directly, bypassing the hotkey.
func (l *Listener) SetMuted(muted bool) {
	l.muted.Store(muted)
}

// resolveModel resolves the model to a filesystem path, downloading when
// allowed.
func (l *Listener) resolveModel() (string, error) {
	if l.cfg.ModelPath != "" {
		return models.ResolveModelPath(l.cfg.ModelPath, "")
	}

	name := l.cfg.ModelName
	if name == "" {
		name = l.cfg.Config.Model.Default
	}

	mgr := NewModelManager()
	selected, err := mgr.SelectModel(name)
	if err != nil {
		return "", fmt.Errorf("failed to select model: %w", err)
	}

	selected, err = mgr.EnsureModel(selected, l.cfg.AutoDownload)
	if err != nil {
		return "", err
	}

	return models.GetModelPath(selected)
}
