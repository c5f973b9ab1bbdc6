// Package server поднимает gRPC health endpoint для проб оркестратора.
// Статус зависит от доступности регионального хранилища.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/magabrotheeeer/randomlife/internal/lib/sl"
)

// ServiceName имя сервиса, статус которого отдается рядом с общим.
const ServiceName = "randomlife.API"

// Pinger зависимость, от доступности которой зависит статус.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthServer обертка над grpc.Server с grpc.health.v1.
type HealthServer struct {
	srv      *grpc.Server
	health   *health.Server
	db       Pinger
	interval time.Duration
	log      *slog.Logger
}

// NewHealthServer создает HealthServer, который проверяет db каждые interval.
func NewHealthServer(db Pinger, interval time.Duration, log *slog.Logger) *HealthServer {
	srv := grpc.NewServer()
	h := health.NewServer()
	healthpb.RegisterHealthServer(srv, h)
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthServer{
		srv:      srv,
		health:   h,
		db:       db,
		interval: interval,
		log:      log,
	}
}

// Check один раз пингует хранилище и публикует результат.
func (s *HealthServer) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if err := s.db.Ping(ctx); err != nil {
		s.log.Warn("health check failed", sl.Err(err))
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	return status
}

// Watch вызывает Check каждые interval, пока ctx не завершится.
func (s *HealthServer) Watch(ctx context.Context) {
	s.Check(ctx)
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Check(ctx)
		}
	}
}

// Serve принимает соединения на lis до вызова Stop.
func (s *HealthServer) Serve(lis net.Listener) error {
	const op = "grpc.server.Serve"
	if err := s.srv.Serve(lis); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Stop переводит все сервисы в NOT_SERVING и дожидается открытых стримов.
func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}
