package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/emmett/murmur/internal/app"
	"github.com/emmett/murmur/internal/config"
	"github.com/emmett/murmur/internal/logging"
	"github.com/emmett/murmur/internal/models"
	grpcserver "github.com/emmett/murmur/internal/server/grpc"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

var (
	configFile  = flag.String("config", "", "Path to configuration file (default: ~/.murmurrc or /etc/murmur/config.yaml)")
	port        = flag.Int("port", 0, "gRPC server port (default: 8090)")
	modelName   = flag.String("model", "", "Recognition model name (default: ggml-base.en.bin)")
	engineName  = flag.String("engine", "", "Recognition engine: whisper or vosk")
	showVersion = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("Murmur gRPC Server v%s\n", Version)
		fmt.Printf("  Commit:  %s\n", GitCommit)
		fmt.Printf("  Branch:  %s\n", GitBranch)
		fmt.Printf("  Built:   %s\n", BuildTime)
		os.Exit(0)
	}

	appCfg, err := config.LoadWithFallback(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load config: %v\n", err)
		appCfg = config.DefaultConfig()
	}

	if err := logging.InitializeWithConfig(logging.LogConfig{
		Level:  appCfg.Log.Level,
		Format: appCfg.Log.Format,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to initialize logging: %v\n", err)
	}
	defer logging.Sync()

	fmt.Printf("Murmur gRPC Server v%s (commit: %s)\n", Version, GitCommit)

	// Resolve model
	mgr := app.NewModelManager()
	selectedModel, err := mgr.SelectModel(*modelName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error selecting model: %v\n", err)
		os.Exit(1)
	}

	selectedModel, err = mgr.EnsureModel(selectedModel, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	modelPath, err := models.GetModelPath(selectedModel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting model path: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Using model: %s\n", selectedModel)

	engine := appCfg.Model.Engine
	if *engineName != "" {
		engine = *engineName
	}
	serverPort := appCfg.Server.Port
	if *port != 0 {
		serverPort = *port
	}

	cfg := grpcserver.Config{
		Port:      serverPort,
		Engine:    engine,
		ModelPath: modelPath,
		Pipeline:  appCfg.ProcessorConfig(),
	}

	server, err := grpcserver.NewServer(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating server: %v\n", err)
		os.Exit(1)
	}

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		server.Stop()
		os.Exit(0)
	}()

	if err := server.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
