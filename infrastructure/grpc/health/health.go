// Package health serves the standard gRPC health service on the admin port.
// Each hub is a service name, "" reports the whole process.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type Server struct {
	log      *slog.Logger
	grpc     *grpc.Server
	health   *health.Server
	services []string
}

func NewServer(log *slog.Logger, services ...string) *Server {
	s := grpc.NewServer()
	h := health.NewServer()
	healthpb.RegisterHealthServer(s, h)
	return &Server{log: log, grpc: s, health: h, services: services}
}

// SetServing flips the status of one hub.
func (s *Server) SetServing(service string, serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(service, status)
}

// Serve marks every hub as serving and blocks until the listener fails
// or ctx is done. Hubs are reported NOT_SERVING before the server stops.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.SetServing("", true)
	for _, name := range s.services {
		s.SetServing(name, true)
	}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("Starting gRPC health server", "address", lis.Addr().String(), "services", s.services)
		if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC health server error: %w", err)
			return
		}
		errChan <- nil
	}()

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpc.GracefulStop()
		<-errChan
		return nil
	case err := <-errChan:
		return err
	}
}
