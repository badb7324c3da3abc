package walletadapter

import (
	"log/slog"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// healthService exposes wallet lock state over grpc.health.v1. Each currency
// symbol is a service name: SERVING when unlocked, NOT_SERVING when locked.
// The empty service name is SERVING only when no wallet is locked.
type healthService struct {
	server   *grpc.Server
	health   *health.Server
	statuses *StatusStore

	mu    sync.Mutex
	known map[string]struct{}
}

func newHealthService(statuses *StatusStore) *healthService {
	hs := health.NewServer()
	s := grpc.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	h := &healthService{server: s, health: hs, statuses: statuses, known: map[string]struct{}{}}
	h.Sync()
	return h
}

// Sync pushes the status store into the health server. Currencies that were
// removed are reported as SERVICE_UNKNOWN.
func (h *healthService) Sync() {
	h.mu.Lock()
	defer h.mu.Unlock()

	overall := healthpb.HealthCheckResponse_SERVING
	current := map[string]struct{}{}
	for _, status := range h.statuses.List() {
		current[status.Currency] = struct{}{}
		state := healthpb.HealthCheckResponse_SERVING
		if status.Locked {
			state = healthpb.HealthCheckResponse_NOT_SERVING
			overall = healthpb.HealthCheckResponse_NOT_SERVING
		}
		h.health.SetServingStatus(status.Currency, state)
	}
	for symbol := range h.known {
		if _, ok := current[symbol]; !ok {
			h.health.SetServingStatus(symbol, healthpb.HealthCheckResponse_SERVICE_UNKNOWN)
		}
	}
	h.known = current
	h.health.SetServingStatus("", overall)
}

func (h *healthService) Serve(lis net.Listener) error {
	slog.Info("grpc health listening", "addr", lis.Addr().String())
	return h.server.Serve(lis)
}

func (h *healthService) Stop() {
	h.health.Shutdown()
	h.server.GracefulStop()
}
