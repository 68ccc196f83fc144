package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/emmett/murmur/internal/app"
	"github.com/emmett/murmur/internal/config"
	"github.com/emmett/murmur/internal/logging"
	"github.com/emmett/murmur/internal/models"
	mcpserver "github.com/emmett/murmur/internal/server/mcp"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

var (
	configFile  = flag.String("config", "", "Path to configuration file (default: ~/.murmurrc or /etc/murmur/config.yaml)")
	modelName   = flag.String("model", "", "Recognition model name (default: ggml-base.en.bin)")
	engineName  = flag.String("engine", "", "Recognition engine: whisper or vosk")
	showVersion = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("Murmur MCP v%s\n", Version)
		fmt.Printf("  Commit:  %s\n", GitCommit)
		fmt.Printf("  Branch:  %s\n", GitBranch)
		fmt.Printf("  Built:   %s\n", BuildTime)
		os.Exit(0)
	}

	appCfg, err := config.LoadWithFallback(*configFile)
	if err != nil {
		appCfg = config.DefaultConfig()
	}

	// Stdout carries the MCP protocol; force logs to stderr as JSON.
	if err := logging.InitializeWithConfig(logging.LogConfig{
		Level:  appCfg.Log.Level,
		Format: "json",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to initialize logging: %v\n", err)
	}
	defer logging.Sync()

	mgr := app.NewModelManager()
	selectedModel, err := mgr.SelectModel(*modelName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error selecting model: %v\n", err)
		os.Exit(1)
	}

	modelPath, err := models.GetModelPath(selectedModel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting model path: %v\n", err)
		os.Exit(1)
	}

	engine := appCfg.Model.Engine
	if *engineName != "" {
		engine = *engineName
	}

	server, err := mcpserver.NewServer(mcpserver.Config{
		ServerName:    "murmur",
		ServerVersion: Version,
		Engine:        engine,
		ModelPath:     modelPath,
		Pipeline:      appCfg.ProcessorConfig(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating MCP server: %v\n", err)
		os.Exit(1)
	}
	defer server.Stop()

	if err := server.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}
