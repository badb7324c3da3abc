package walletadapter

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	walletinterfaces "github.com/kaigoh/walletadapter/wallet_interfaces"
	"github.com/kaigoh/walletadapter/wallet_interfaces/simwallet"
	"github.com/kaigoh/walletadapter/wallet_interfaces/xmr"
)

// DefaultBackends lists every adapter variant this binary ships.
func DefaultBackends() *walletinterfaces.Backends {
	return walletinterfaces.NewBackends(xmr.Backend(), simwallet.Backend())
}

// walletEntry is the single adapter instance bound to a currency. exec
// serializes withdrawal batches for the currency and is shared by every
// adapter the currency is rebuilt into.
type walletEntry struct {
	cfg      CurrencyConfig
	currency walletinterfaces.Currency
	wallet   walletinterfaces.Wallet
	log      *slog.Logger
	exec     *sync.Mutex
}

// Registry is the host's currency registry and adapter table.
type Registry struct {
	mu       sync.RWMutex
	backends *walletinterfaces.Backends
	entries  map[string]*walletEntry

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewRegistry(backends *walletinterfaces.Backends) *Registry {
	if backends == nil {
		backends = DefaultBackends()
	}
	return &Registry{
		backends: backends,
		entries:  map[string]*walletEntry{},
		locks:    map[string]*sync.Mutex{},
	}
}

// execLock returns the batch lock for symbol. It outlives reloads, so a
// rebuilt adapter never runs alongside a batch on the one it replaced.
func (r *Registry) execLock(symbol string) *sync.Mutex {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()
	l, ok := r.locks[symbol]
	if !ok {
		l = &sync.Mutex{}
		r.locks[symbol] = l
	}
	return l
}

// Load builds every configured adapter. Any configuration error is fatal.
func (r *Registry) Load(cfg *Config) error {
	entries := make(map[string]*walletEntry, len(cfg.Currencies))
	for _, cc := range cfg.Currencies {
		entry, err := r.build(cc)
		if err != nil {
			return err
		}
		entries[cc.Symbol] = entry
	}
	r.mu.Lock()
	r.entries = entries
	r.mu.Unlock()
	return nil
}

// Reconcile applies a reloaded config. Unchanged currencies keep their
// adapter; a currency whose new settings fail to configure keeps the old one.
func (r *Registry) Reconcile(cfg *Config) {
	r.mu.RLock()
	current := make(map[string]*walletEntry, len(r.entries))
	for k, v := range r.entries {
		current[k] = v
	}
	r.mu.RUnlock()

	next := make(map[string]*walletEntry, len(cfg.Currencies))
	for _, cc := range cfg.Currencies {
		if old, ok := current[cc.Symbol]; ok && old.cfg.Equal(cc) {
			next[cc.Symbol] = old
			continue
		}
		entry, err := r.build(cc)
		if err != nil {
			slog.Error("wallet adapter reconfigure failed", "currency", cc.Symbol, "backend", cc.Backend, "error", err)
			if old, ok := current[cc.Symbol]; ok {
				next[cc.Symbol] = old
			}
			continue
		}
		slog.Info("wallet adapter configured", "currency", cc.Symbol, "backend", cc.Backend)
		next[cc.Symbol] = entry
	}
	for symbol := range current {
		if _, ok := next[symbol]; !ok {
			slog.Info("wallet adapter removed", "currency", symbol)
		}
	}

	r.mu.Lock()
	r.entries = next
	r.mu.Unlock()
}

func (r *Registry) build(cc CurrencyConfig) (*walletEntry, error) {
	currency, err := cc.Currency()
	if err != nil {
		return nil, &walletinterfaces.ConfigurationError{Field: "currencies." + cc.Symbol, Reason: err.Error()}
	}
	w, err := r.backends.Configure(cc.Backend, currency, cc.Settings)
	if err != nil {
		return nil, fmt.Errorf("currency %s: %w", cc.Symbol, err)
	}
	return &walletEntry{
		cfg:      cc.Clone(),
		currency: currency,
		wallet:   w,
		log:      walletLogger(currency.Symbol, cc.Backend),
		exec:     r.execLock(currency.Symbol),
	}, nil
}

func (r *Registry) entry(symbol string) (*walletEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[strings.ToUpper(strings.TrimSpace(symbol))]
	return e, ok
}

// Currency implements walletinterfaces.CurrencyLookup.
func (r *Registry) Currency(symbol string) (walletinterfaces.Currency, bool) {
	e, ok := r.entry(symbol)
	if !ok {
		return walletinterfaces.Currency{}, false
	}
	return e.currency, true
}

// Wallet returns the adapter bound to symbol.
func (r *Registry) Wallet(symbol string) (walletinterfaces.Wallet, bool) {
	e, ok := r.entry(symbol)
	if !ok {
		return nil, false
	}
	return e.wallet, true
}

func (r *Registry) Backends() *walletinterfaces.Backends {
	return r.backends
}

// Symbols returns the configured currencies in sorted order.
func (r *Registry) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for s := range r.entries {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) snapshot() []*walletEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*walletEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].currency.Symbol < out[j].currency.Symbol })
	return out
}
