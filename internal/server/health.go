package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/notafiscal/internal/common"
)

// ServiceName is the gRPC health service name reported alongside the overall status.
const ServiceName = "notafiscal"

// Pinger is satisfied by *repository.DB.
type Pinger interface {
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

// HealthChecker keeps the gRPC health service in sync with the run history database.
type HealthChecker struct {
	hs      *health.Server
	db      Pinger // nil -> always serving
	timeout time.Duration
	logger  *slog.Logger
}

func NewHealthChecker(db Pinger, timeout time.Duration, logger *slog.Logger) *HealthChecker {
	if logger == nil {
		logger = slog.Default()
	}
	h := &HealthChecker{
		hs:      health.NewServer(),
		db:      db,
		timeout: timeout,
		logger:  logger,
	}
	h.set(healthpb.HealthCheckResponse_SERVING)
	return h
}

// Register mounts the health service on a gRPC server.
func (h *HealthChecker) Register(gs *grpc.Server) {
	healthpb.RegisterHealthServer(gs, h.hs)
}

// Check pings the database and updates the reported status.
func (h *HealthChecker) Check(ctx context.Context) error {
	if h.db == nil {
		return nil
	}
	if err := h.db.HealthCheck(ctx, h.timeout); err != nil {
		h.logger.Warn("health.db.unavailable", "error", err)
		h.set(healthpb.HealthCheckResponse_NOT_SERVING)
		return err
	}
	h.set(healthpb.HealthCheckResponse_SERVING)
	return nil
}

// Run re-checks every interval until ctx is done, then marks the service as shutting down.
func (h *HealthChecker) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			h.hs.Shutdown()
			return
		case <-t.C:
			_ = h.Check(ctx)
		}
	}
}

func (h *HealthChecker) set(st healthpb.HealthCheckResponse_ServingStatus) {
	h.hs.SetServingStatus("", st)
	h.hs.SetServingStatus(ServiceName, st)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.Check(r.Context()); err != nil {
			s.writeError(w, common.UnavailableError("database unavailable"))
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": healthpb.HealthCheckResponse_SERVING.String()})
}
