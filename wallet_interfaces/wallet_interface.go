package walletinterfaces

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Wallet is implemented once per backend. An instance is bound to a single
// currency; the host runs one instance per currency and never calls
// ExecuteWithdrawals concurrently on the same instance. Every method taking
// a context may block on the backend.
type Wallet interface {
	Currency() Currency
	// IsLocked reports the most recent known state without a round trip.
	IsLocked(ctx context.Context) bool
	NewDepositAddress(ctx context.Context, c Currency) (Address, error)
	HotBalance(ctx context.Context, c Currency) (Amount, error)
	// HotLockedBalance never exceeds HotBalance.
	HotLockedBalance(ctx context.Context, c Currency) (Amount, error)
	// Send performs one backend transfer and returns its transaction id.
	// It is only called through ExecuteWithdrawals.
	Send(ctx context.Context, w Withdrawal) (string, error)
	// BlockHeight returns 0 when the height is unknown.
	BlockHeight(ctx context.Context, c Currency) uint64
	BackendVersion(ctx context.Context) (string, error)
	// ExtraFieldLabel names the address extra field, if the currency has one.
	// It performs no I/O.
	ExtraFieldLabel(c Currency) (string, bool)
	RunMaintenance(ctx context.Context) error
}

// Describer is implemented by adapters that can explain their connection to
// an operator, e.g. "wallet-rpc at 127.0.0.1:18082".
type Describer interface {
	Description() string
}

// Factory builds an adapter from resolved settings.
type Factory func(c Currency, settings Settings) (Wallet, error)

type Backend struct {
	Name    string
	Schema  Schema
	Factory Factory
}

// Backends maps a backend name to its schema and constructor.
type Backends struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

func NewBackends(backends ...Backend) *Backends {
	b := &Backends{backends: map[string]Backend{}}
	for _, backend := range backends {
		b.Register(backend)
	}
	return b
}

func (b *Backends) Register(backend Backend) {
	name := strings.ToLower(strings.TrimSpace(backend.Name))
	b.mu.Lock()
	defer b.mu.Unlock()
	b.backends[name] = backend
}

func (b *Backends) Get(name string) (Backend, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	backend, ok := b.backends[strings.ToLower(strings.TrimSpace(name))]
	return backend, ok
}

func (b *Backends) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.backends))
	for name := range b.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Configure resolves raw settings against the backend schema and builds the
// adapter. Every failure before the adapter exists is a ConfigurationError.
func (b *Backends) Configure(name string, c Currency, raw map[string]string) (Wallet, error) {
	backend, ok := b.Get(name)
	if !ok {
		return nil, &ConfigurationError{Field: "backend", Reason: fmt.Sprintf("unknown backend %q", name)}
	}
	settings, err := backend.Schema.Resolve(raw)
	if err != nil {
		return nil, err
	}
	w, err := backend.Factory(c, settings)
	if err != nil {
		return nil, fmt.Errorf("%s adapter for %s: %w", backend.Name, c.Symbol, err)
	}
	return w, nil
}
