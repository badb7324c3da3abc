package walletadapter

import (
	"errors"
	"testing"

	walletinterfaces "github.com/kaigoh/walletadapter/wallet_interfaces"
	"github.com/kaigoh/walletadapter/wallet_interfaces/simwallet"
)

func simWallet(t *testing.T, r *Registry, symbol string) *simwallet.Wallet {
	t.Helper()
	w, ok := r.Wallet(symbol)
	if !ok {
		t.Fatalf("no wallet for %s", symbol)
	}
	sim, ok := w.(*simwallet.Wallet)
	if !ok {
		t.Fatalf("wallet for %s is %T, not simulated", symbol, w)
	}
	return sim
}

func TestRegistryLoadBuildsOneAdapterPerCurrency(t *testing.T) {
	r := NewRegistry(nil)
	if err := r.Load(testConfig(t)); err != nil {
		t.Fatalf("load: %v", err)
	}

	if got := r.Symbols(); len(got) != 2 || got[0] != "SIM" || got[1] != "TST" {
		t.Fatalf("unexpected symbols: %v", got)
	}
	c, ok := r.Currency("sim")
	if !ok || c.Decimals != 8 || c.Name != "Simcoin" {
		t.Fatalf("unexpected currency: %+v ok=%v", c, ok)
	}
	if !simWallet(t, r, "SIM").Currency().Same(c) {
		t.Fatalf("adapter bound to the wrong currency")
	}
	if _, ok := r.Wallet("BTC"); ok {
		t.Fatalf("expected no adapter for unconfigured currency")
	}
}

func TestRegistryLoadRejectsBadSettings(t *testing.T) {
	cfg := testConfig(t)
	cfg.Currencies[0].Settings["locked_balance"] = "5000"

	err := NewRegistry(nil).Load(cfg)
	if !errors.Is(err, walletinterfaces.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}

	cfg = testConfig(t)
	cfg.Currencies[1].Backend = "dogecoind"
	if err := NewRegistry(nil).Load(cfg); !errors.Is(err, walletinterfaces.ErrConfiguration) {
		t.Fatalf("expected unknown backend to be a configuration error, got %v", err)
	}
}

func TestRegistryReconcile(t *testing.T) {
	r := NewRegistry(nil)
	if err := r.Load(testConfig(t)); err != nil {
		t.Fatalf("load: %v", err)
	}
	sim := simWallet(t, r, "SIM")
	tst := simWallet(t, r, "TST")

	next := testConfig(t)
	// Unchanged SIM keeps its adapter; invalid TST keeps the old one.
	next.Currencies[1].Settings["nope"] = "1"
	next.Currencies = append(next.Currencies, CurrencyConfig{
		Symbol: "NEW", Decimals: 4, Backend: "simulated",
	})
	r.Reconcile(next)

	if simWallet(t, r, "SIM") != sim {
		t.Fatalf("unchanged currency should keep its adapter")
	}
	if simWallet(t, r, "TST") != tst {
		t.Fatalf("invalid settings should keep the previous adapter")
	}
	if _, ok := r.Wallet("NEW"); !ok {
		t.Fatalf("expected adapter for added currency")
	}

	changed := testConfig(t)
	changed.Currencies = changed.Currencies[:1]
	changed.Currencies[0].Settings["height"] = "42"
	r.Reconcile(changed)

	if simWallet(t, r, "SIM") == sim {
		t.Fatalf("changed settings should rebuild the adapter")
	}
	if _, ok := r.Wallet("TST"); ok {
		t.Fatalf("removed currency should have no adapter")
	}
}

func TestDefaultBackendsShipsMoneroAndSimulated(t *testing.T) {
	names := DefaultBackends().Names()
	if len(names) != 2 || names[0] != simwallet.BackendName || names[1] != "xmr" {
		t.Fatalf("unexpected backends: %v", names)
	}
}
