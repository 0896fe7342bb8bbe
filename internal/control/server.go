package control

import (
	"context"
	"fmt"
	"net"
	"os"

	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// Server manages the gRPC server lifecycle for a profile's control socket.
type Server struct {
	grpcServer *grpc.Server
	listener   net.Listener
	socketPath string
	svc        *Service
	logger     *zap.Logger
}

// NewServer creates a gRPC server bound to the given Unix domain socket.
func NewServer(socketPath string, svc *Service, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Clean stale socket if it exists.
	if _, err := os.Stat(socketPath); err == nil {
		_ = os.Remove(socketPath)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listen unix socket: %w", err)
	}

	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}

	srv := grpc.NewServer()
	srv.RegisterService(&ServiceDesc, svc)

	return &Server{
		grpcServer: srv,
		listener:   listener,
		socketPath: socketPath,
		svc:        svc,
		logger:     logger,
	}, nil
}

// SocketPath returns the socket the server listens on.
func (s *Server) SocketPath() string { return s.socketPath }

// Start begins serving gRPC requests. Blocks until stopped.
func (s *Server) Start() error {
	s.logger.Info("control server starting", zap.String("socket", s.socketPath))
	return s.grpcServer.Serve(s.listener)
}

// Stop ends event streams, then shuts down gracefully unless ctx expires
// first. The socket file is removed.
func (s *Server) Stop(ctx context.Context) {
	s.logger.Info("control server stopping")
	s.svc.shutdown()

	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.grpcServer.Stop()
	}
	_ = os.Remove(s.socketPath)
}
