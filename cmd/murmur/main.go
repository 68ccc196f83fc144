package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/emmett/murmur/internal/app"
	"github.com/emmett/murmur/internal/config"
	"github.com/emmett/murmur/internal/logging"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

var (
	configFile     = flag.String("config", "", "Path to configuration file (default: ~/.murmurrc or /etc/murmur/config.yaml)")
	listModels     = flag.Bool("list-models", false, "List all available models for download")
	listDownloaded = flag.Bool("list-downloaded", false, "List all downloaded models")
	downloadModel  = flag.String("download-model", "", "Download a specific model by name")
	modelName      = flag.String("model", "", "Use a specific model (default: ggml-base.en.bin)")
	modelPath      = flag.String("model-path", "", "Use a model from an explicit filesystem path")
	setDefault     = flag.String("set-default", "", "Set a model as the default")
	engineName     = flag.String("engine", "", "Recognition engine: whisper or vosk")
	outputFormat   = flag.String("format", "", "Output format: text, json")
	outputFile     = flag.String("output", "", "Output file (default: stdout)")
	wavFile        = flag.String("wav", "", "Read audio from a WAV file instead of the microphone")
	audioDevice    = flag.String("device", "", "Audio input device name (use --list-devices to see available devices)")
	listDevices    = flag.Bool("list-devices", false, "List all available audio input devices")
	enableHotkey   = flag.Bool("hotkey", false, "Enable the global mute-toggle hotkey")
	showVersion    = flag.Bool("version", false, "Show version information")
	autoDownload   = flag.Bool("auto-download", false, "Automatically download the model if not found (no prompt)")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("Murmur v%s\n", Version)
		fmt.Printf("  Commit:  %s\n", GitCommit)
		fmt.Printf("  Branch:  %s\n", GitBranch)
		fmt.Printf("  Built:   %s\n", BuildTime)
		os.Exit(0)
	}

	cfg, err := config.LoadWithFallback(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load config: %v\n", err)
		cfg = config.DefaultConfig()
	}
	applyFlags(cfg)

	if err := logging.InitializeWithConfig(logging.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to initialize logging: %v\n", err)
	}
	defer logging.Sync()

	if *listDevices {
		dm := app.NewDeviceManager()
		if err := dm.ListDevices(); err != nil {
			os.Exit(1)
		}
		return
	}

	mgr := app.NewModelManager()

	if *listModels {
		if err := mgr.ListModels(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *listDownloaded {
		if err := mgr.ListDownloaded(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *downloadModel != "" {
		if err := mgr.Download(*downloadModel); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *setDefault != "" {
		if err := mgr.SetDefault(*setDefault); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	listener := app.NewListener(app.ListenerConfig{
		Config:       cfg,
		ModelName:    *modelName,
		ModelPath:    *modelPath,
		WAVFile:      *wavFile,
		AutoDownload: *autoDownload,
	})

	if err := listener.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// applyFlags overlays explicitly set flags onto the loaded configuration.
func applyFlags(cfg *config.Config) {
	flagsSet := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		flagsSet[f.Name] = true
	})

	if flagsSet["engine"] {
		cfg.Model.Engine = *engineName
	}
	if flagsSet["format"] {
		cfg.Output.Format = *outputFormat
	}
	if flagsSet["output"] {
		cfg.Output.File = *outputFile
	}
	if flagsSet["device"] {
		cfg.Audio.Device = *audioDevice
	}
	if flagsSet["hotkey"] {
		cfg.Hotkey.Enabled = *enableHotkey
	}
}
