package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
)

var (
	// Global logger instance
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger
)

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "json", "console"
}

// Initialize sets up the global logger based on environment variables.
func Initialize() error {
	config := LogConfig{
		Level:  getEnvOrDefault("MURMUR_LOG_LEVEL", "info"),
		Format: getEnvOrDefault("MURMUR_LOG_FORMAT", "console"),
	}
	return InitializeWithConfig(config)
}

// InitializeWithConfig sets up the global logger with provided configuration.
func InitializeWithConfig(config LogConfig) error {
	var zapConfig zap.Config

	switch strings.ToLower(config.Format) {
	case "json":
		zapConfig = zap.NewProductionConfig()
	default:
		zapConfig = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(strings.ToLower(config.Level))
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapConfig.Level = level

	// Logs go to stderr so transcripts on stdout stay pipeable.
	zapConfig.OutputPaths = []string{"stderr"}
	zapConfig.ErrorOutputPaths = []string{"stderr"}

	logger, err := zapConfig.Build(zap.AddStacktrace(zap.ErrorLevel))
	if err != nil {
		return err
	}

	Logger = logger
	Sugar = logger.Sugar()
	return nil
}

// Get returns the global logger, initializing a default one if needed.
func Get() *zap.Logger {
	if Logger == nil {
		if err := Initialize(); err != nil {
			return zap.NewNop()
		}
	}
	return Logger
}

// Sync flushes any buffered log entries.
func Sync() {
	if Logger != nil {
		// Sync can fail on stderr on some platforms; not critical.
		_ = Logger.Sync()
	}
}

// PipelineLogger returns a logger scoped to an audio pipeline component.
func PipelineLogger(component string) *zap.Logger {
	return Get().With(zap.String("component", component))
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
