package mcp

import (
	"context"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/emmett/murmur/internal/audio"
	"github.com/emmett/murmur/internal/logging"
	"github.com/emmett/murmur/internal/stt"
)

type Config struct {
	ServerName    string
	ServerVersion string
	Engine        string
	ModelPath     string
	Pipeline      audio.ProcessorConfig
}

// Server exposes the segmentation pipeline over the Model Context Protocol.
// Tool calls share one transcription worker; the pipeline itself is built
// per call since MCP audio arrives as complete clips.
type Server struct {
	config    Config
	mcpServer *sdk.Server
	worker    *stt.Worker
}

func NewServer(cfg Config) (*Server, error) {
	engine := stt.NewEngine(cfg.Engine)
	engineCfg := stt.Config{
		ModelPath:  cfg.ModelPath,
		SampleRate: cfg.Pipeline.TargetRate,
	}
	if engineCfg.SampleRate == 0 {
		engineCfg.SampleRate = 16000
	}

	worker := stt.NewWorker(engine, engineCfg, nil, logging.PipelineLogger("stt"))
	if err := worker.Start(); err != nil {
		return nil, fmt.Errorf("failed to start transcription worker: %w", err)
	}

	s := &Server{
		config: cfg,
		worker: worker,
	}

	s.mcpServer = sdk.NewServer(&sdk.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}, nil)

	s.registerTools()

	return s, nil
}

func (s *Server) Start() error {
	return s.mcpServer.Run(context.Background(), &sdk.StdioTransport{})
}

func (s *Server) Stop() error {
	s.worker.Stop()
	return nil
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "transcribe_audio",
		Description: "Segment speech from raw PCM audio and transcribe each utterance",
	}, s.handleTranscribeAudio)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "pipeline_status",
		Description: "Report the transcription pipeline status",
	}, s.handlePipelineStatus)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "list_models",
		Description: "List downloaded recognition models",
	}, s.handleListModels)
}
