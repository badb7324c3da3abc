package walletadapter

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func TestHealthServiceReportsWalletLocks(t *testing.T) {
	cfg := testConfig(t)
	statuses := NewStatusStore(cfg)
	statuses.Update(WalletStatus{Currency: "SIM", Backend: "simulated", Locked: false})
	statuses.Update(WalletStatus{Currency: "TST", Backend: "simulated", Locked: true})

	h := newHealthService(statuses)
	lis := bufconn.Listen(1024 * 1024)
	go func() { _ = h.Serve(lis) }()
	t.Cleanup(h.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	client := healthpb.NewHealthClient(conn)

	check := func(service string) healthpb.HealthCheckResponse_ServingStatus {
		t.Helper()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
		if err != nil {
			t.Fatalf("check %q: %v", service, err)
		}
		return resp.GetStatus()
	}

	if got := check("SIM"); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("SIM: expected SERVING, got %s", got)
	}
	if got := check("TST"); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("TST: expected NOT_SERVING, got %s", got)
	}
	if got := check(""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("overall: expected NOT_SERVING, got %s", got)
	}

	statuses.Update(WalletStatus{Currency: "TST", Backend: "simulated", Locked: false})
	next := testConfig(t)
	next.Currencies = next.Currencies[1:]
	statuses.Reconcile(next)
	h.Sync()

	if got := check(""); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("overall: expected SERVING after unlock, got %s", got)
	}
	if got := check("SIM"); got != healthpb.HealthCheckResponse_SERVICE_UNKNOWN {
		t.Fatalf("removed SIM: expected SERVICE_UNKNOWN, got %s", got)
	}
}
