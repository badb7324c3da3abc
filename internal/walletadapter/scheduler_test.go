package walletadapter

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestSchedulerSweepRefreshesStatuses(t *testing.T) {
	cfg := testConfig(t)
	registry := NewRegistry(nil)
	if err := registry.Load(cfg); err != nil {
		t.Fatalf("load registry: %v", err)
	}
	statuses := NewStatusStore(cfg)
	if status, _ := statuses.Get("SIM"); !status.Locked {
		t.Fatalf("unchecked wallet should report locked")
	}

	simWallet(t, registry, "TST").SetUnreachable(true)

	sweeps := 0
	s := NewScheduler(registry, statuses, time.Hour, time.Second)
	s.OnSweep(func() { sweeps++ })
	s.Sweep(context.Background())

	if sweeps != 1 {
		t.Fatalf("expected one sweep callback, got %d", sweeps)
	}

	sim, ok := statuses.Get("SIM")
	if !ok {
		t.Fatalf("missing SIM status")
	}
	if sim.Locked || sim.BlockHeight != 1 || sim.Version != "simwallet-1" {
		t.Fatalf("unexpected SIM status: %+v", sim)
	}
	// Maintenance matured the locked funds.
	if sim.Balance != 1000 || sim.LockedBalance != 0 {
		t.Fatalf("unexpected SIM balances: %+v", sim)
	}
	if sim.Description != "simulated SIM wallet" {
		t.Fatalf("unexpected description %q", sim.Description)
	}
	if simWallet(t, registry, "SIM").MaintenanceRuns() != 1 {
		t.Fatalf("expected maintenance to run once")
	}

	tst, _ := statuses.Get("TST")
	if !tst.Locked || !strings.HasPrefix(tst.Message, "maintenance:") {
		t.Fatalf("unreachable wallet should be locked with a message: %+v", tst)
	}
	if tst.LastChecked.IsZero() {
		t.Fatalf("expected last checked time")
	}
}

func TestSchedulerFollowsReloadedInterval(t *testing.T) {
	cfg := testConfig(t)
	registry := NewRegistry(nil)
	if err := registry.Load(cfg); err != nil {
		t.Fatalf("load registry: %v", err)
	}
	sim := simWallet(t, registry, "SIM")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewScheduler(registry, NewStatusStore(cfg), time.Hour, time.Second)
	s.Start(ctx)
	if got := sim.MaintenanceRuns(); got != 1 {
		t.Fatalf("expected the immediate sweep only, got %d runs", got)
	}

	// Without the reload the next sweep would be an hour away.
	s.SetTiming(10*time.Millisecond, 2*time.Second)
	if s.Interval() != 10*time.Millisecond {
		t.Fatalf("expected interval to be updated, got %s", s.Interval())
	}
	deadline := time.Now().Add(5 * time.Second)
	for sim.MaintenanceRuns() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("expected reloaded interval to drive sweeps, got %d runs", sim.MaintenanceRuns())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStatusStoreReconcile(t *testing.T) {
	cfg := testConfig(t)
	statuses := NewStatusStore(cfg)
	statuses.Update(WalletStatus{Currency: "sim", Backend: "simulated", BlockHeight: 9})

	next := testConfig(t)
	next.Currencies = next.Currencies[:1]
	statuses.Reconcile(next)

	list := statuses.List()
	if len(list) != 1 || list[0].Currency != "SIM" || list[0].BlockHeight != 9 {
		t.Fatalf("expected only the kept SIM status, got %+v", list)
	}
}
