package walletadapter

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestOpenWiresHostFromConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := SaveConfig(path, testConfig(t)); err != nil {
		t.Fatalf("save config: %v", err)
	}

	app, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := app.Registry.Symbols(); len(got) != 2 {
		t.Fatalf("expected two adapters, got %v", got)
	}
	if app.Store.Get().LedgerPath != path+".ledger.json" {
		t.Fatalf("unexpected ledger path %q", app.Store.Get().LedgerPath)
	}

	w, err := app.Dispatcher.NewWithdrawal("SIM", 1, "addr-a", "", "")
	if err != nil {
		t.Fatalf("new withdrawal: %v", err)
	}
	if w.Currency.Symbol != "SIM" || w.Address.Currency.Symbol != "SIM" {
		t.Fatalf("withdrawal bound to the wrong currency: %+v", w)
	}
	if _, err := app.Dispatcher.NewWithdrawal("BTC", 1, "addr-a", "", ""); err == nil {
		t.Fatalf("expected unknown currency to be rejected")
	}
}

func TestOpenRejectsInvalidAdapterSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	cfg := testConfig(t)
	cfg.Currencies[0].Settings["address_prefix"] = "not alnum!"
	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}
	if _, err := Open(path); err == nil {
		t.Fatalf("expected invalid settings to fail startup")
	}
}

func TestRunStopsWhenContextEnds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	cfg := testConfig(t)
	cfg.Admin = AdminConfig{}
	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Run(ctx, path) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not return after context cancellation")
	}
}
