package grpc

import (
	"fmt"
	"net"

	"google.golang.org/grpc"

	"github.com/emmett/murmur/internal/audio"
	"github.com/emmett/murmur/internal/logging"
	"github.com/emmett/murmur/internal/stt"
)

// Server wraps the gRPC server and the shared transcription worker. Each
// stream gets its own segmentation pipeline; all streams share one worker
// because the engine is not reentrant.
type Server struct {
	grpcServer *grpc.Server
	worker     *stt.Worker
	port       int
}

// Config holds server configuration
type Config struct {
	Port      int
	Engine    string
	ModelPath string
	Pipeline  audio.ProcessorConfig
}

// NewServer creates a new gRPC server
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
		grpcServer: grpc.NewServer(),
		worker:     worker,
		port:       cfg.Port,
	}

	// Register services
	segmentService := NewSegmentService(worker, cfg.Pipeline)
	RegisterSegmenterServer(s.grpcServer, segmentService)

	return s, nil
}

// Start starts the gRPC server
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.port, err)
	}

	fmt.Printf("gRPC server listening on :%d\n", s.port)
	return s.grpcServer.Serve(lis)
}

// Stop gracefully stops the server
func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
	s.worker.Stop()
}

// RegisterSegmenterServer is a placeholder until proto is generated
func RegisterSegmenterServer(s *grpc.Server, srv *SegmentService) {
	// Will be replaced by generated code: murmurpb.RegisterSegmenterServer(s, srv)
}
