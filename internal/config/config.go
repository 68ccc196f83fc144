package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/emmett/murmur/internal/audio"
)

// Config represents the application configuration
type Config struct {
	// Audio capture settings
	Audio struct {
		Device     string `yaml:"device"`
		SampleRate int    `yaml:"sample_rate"`
		Channels   int    `yaml:"channels"`
	} `yaml:"audio"`

	// VAD settings
	VAD struct {
		CalibrationMs     int     `yaml:"calibration_ms"`
		RMSWindowMs       int     `yaml:"rms_window_ms"`
		SpeechMultiplier  float64 `yaml:"speech_multiplier"`
		SilenceMultiplier float64 `yaml:"silence_multiplier"`
		SpeechStartMs     int     `yaml:"speech_start_ms"`
		SpeechEndMs       int     `yaml:"speech_end_ms"`
	} `yaml:"vad"`

	// Segment assembly settings
	Segment struct {
		PrePaddingMs  int `yaml:"pre_padding_ms"`
		PostPaddingMs int `yaml:"post_padding_ms"`
		MinDurationMs int `yaml:"min_duration_ms"`
		MaxDurationS  int `yaml:"max_duration_s"`
	} `yaml:"segment"`

	// Model settings
	Model struct {
		Engine   string `yaml:"engine"` // "whisper" or "vosk"
		Default  string `yaml:"default"`
		Path     string `yaml:"path"`
		Language string `yaml:"language"`
		Threads  int    `yaml:"threads"`
	} `yaml:"model"`

	// Output settings
	Output struct {
		Format string `yaml:"format"` // "text" or "json"
		File   string `yaml:"file"`
	} `yaml:"output"`

	// Hotkey settings
	Hotkey struct {
		Enabled bool   `yaml:"enabled"`
		Toggle  string `yaml:"toggle"`
	} `yaml:"hotkey"`

	// Server settings
	Server struct {
		Port      int    `yaml:"port"`
		Host      string `yaml:"host"`
		EnableTLS bool   `yaml:"enable_tls"`
		CertFile  string `yaml:"cert_file"`
		KeyFile   string `yaml:"key_file"`
	} `yaml:"server"`

	// Log settings
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Audio.Device = ""
	cfg.Audio.SampleRate = 44100
	cfg.Audio.Channels = 1

	cfg.VAD.CalibrationMs = 300
	cfg.VAD.RMSWindowMs = 100
	cfg.VAD.SpeechMultiplier = 2.5
	cfg.VAD.SilenceMultiplier = 1.5
	cfg.VAD.SpeechStartMs = 200
	cfg.VAD.SpeechEndMs = 500

	cfg.Segment.PrePaddingMs = 100
	cfg.Segment.PostPaddingMs = 200
	cfg.Segment.MinDurationMs = 300
	cfg.Segment.MaxDurationS = 10

	cfg.Model.Engine = "whisper"
	cfg.Model.Default = ""
	cfg.Model.Language = "en"

	cfg.Output.Format = "text"
	cfg.Output.File = ""

	cfg.Hotkey.Enabled = false
	cfg.Hotkey.Toggle = "ctrl+shift+m"

	cfg.Server.Port = 8090
	cfg.Server.Host = "localhost"
	cfg.Server.EnableTLS = false

	cfg.Log.Level = "info"
	cfg.Log.Format = "console"

	return cfg
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadWithFallback attempts to load configuration from multiple locations
// Priority: explicit path > ~/.murmurrc > /etc/murmur/config.yaml
func LoadWithFallback(explicitPath string) (*Config, error) {
	if explicitPath != "" {
		return Load(explicitPath)
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		userConfigPath := filepath.Join(homeDir, ".murmurrc")
		if _, err := os.Stat(userConfigPath); err == nil {
			cfg, err := Load(userConfigPath)
			if err == nil {
				return cfg, nil
			}
		}
	}

	systemConfigPath := "/etc/murmur/config.yaml"
	if _, err := os.Stat(systemConfigPath); err == nil {
		cfg, err := Load(systemConfigPath)
		if err == nil {
			return cfg, nil
		}
	}

	// No config file found, return defaults
	return DefaultConfig(), nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// CaptureConfig builds the audio capture configuration.
func (c *Config) CaptureConfig() audio.CaptureConfig {
	cfg := audio.DefaultCaptureConfig()
	if c.Audio.SampleRate > 0 {
		cfg.SampleRate = uint32(c.Audio.SampleRate)
	}
	if c.Audio.Channels > 0 {
		cfg.Channels = uint32(c.Audio.Channels)
	}
	cfg.DeviceID = c.Audio.Device
	return cfg
}

// ProcessorConfig builds the analysis pipeline configuration.
func (c *Config) ProcessorConfig() audio.ProcessorConfig {
	cfg := audio.DefaultProcessorConfig()
	if c.Audio.SampleRate > 0 {
		cfg.SampleRate = c.Audio.SampleRate
	}
	if c.VAD.CalibrationMs > 0 {
		cfg.Calibration = time.Duration(c.VAD.CalibrationMs) * time.Millisecond
	}
	if c.VAD.RMSWindowMs > 0 {
		cfg.RMSWindow = time.Duration(c.VAD.RMSWindowMs) * time.Millisecond
	}
	if c.VAD.SpeechMultiplier > 0 {
		cfg.Gate.SpeechMultiplier = c.VAD.SpeechMultiplier
	}
	if c.VAD.SilenceMultiplier > 0 {
		cfg.Gate.SilenceMultiplier = c.VAD.SilenceMultiplier
	}
	if c.VAD.SpeechStartMs > 0 {
		cfg.Gate.SpeechStartHold = time.Duration(c.VAD.SpeechStartMs) * time.Millisecond
	}
	if c.VAD.SpeechEndMs > 0 {
		cfg.Gate.SpeechEndHold = time.Duration(c.VAD.SpeechEndMs) * time.Millisecond
	}
	if c.Segment.PrePaddingMs > 0 {
		cfg.Segment.PrePadding = time.Duration(c.Segment.PrePaddingMs) * time.Millisecond
	}
	if c.Segment.PostPaddingMs > 0 {
		cfg.Segment.PostPadding = time.Duration(c.Segment.PostPaddingMs) * time.Millisecond
	}
	if c.Segment.MinDurationMs > 0 {
		cfg.Segment.MinDuration = time.Duration(c.Segment.MinDurationMs) * time.Millisecond
	}
	if c.Segment.MaxDurationS > 0 {
		cfg.Segment.MaxDuration = time.Duration(c.Segment.MaxDurationS) * time.Second
	}
	return cfg
}
