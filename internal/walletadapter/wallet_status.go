package walletadapter

import (
	"sort"
	"strings"
	"sync"
	"time"

	walletinterfaces "github.com/kaigoh/walletadapter/wallet_interfaces"
)

// WalletStatus is the last observed state of one currency's adapter, as
// recorded by the maintenance scheduler.
type WalletStatus struct {
	Currency      string                  `json:"currency"`
	Backend       string                  `json:"backend"`
	Description   string                  `json:"description,omitempty"`
	Locked        bool                    `json:"locked"`
	BlockHeight   uint64                  `json:"block_height"`
	Version       string                  `json:"version,omitempty"`
	Balance       walletinterfaces.Amount `json:"balance"`
	LockedBalance walletinterfaces.Amount `json:"locked_balance"`
	ExtraField    string                  `json:"extra_field,omitempty"`
	Message       string                  `json:"message,omitempty"`
	LastChecked   time.Time               `json:"last_checked"`
}

// StatusStore holds wallet state separate from the registry so the
// scheduler, HTTP handlers and the gRPC health service can share it.
type StatusStore struct {
	mu       sync.RWMutex
	statuses map[string]WalletStatus
}

func NewStatusStore(cfg *Config) *StatusStore {
	s := &StatusStore{statuses: make(map[string]WalletStatus)}
	s.Reconcile(cfg)
	return s
}

// Reconcile ensures the store tracks the current set of configured currencies.
// New currencies start locked until the first maintenance pass.
func (s *StatusStore) Reconcile(cfg *Config) {
	if cfg == nil {
		return
	}
	backends := make(map[string]string, len(cfg.Currencies))
	for _, c := range cfg.Currencies {
		symbol := strings.ToUpper(strings.TrimSpace(c.Symbol))
		if symbol == "" {
			continue
		}
		backends[symbol] = c.Backend
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for symbol := range s.statuses {
		if _, ok := backends[symbol]; !ok {
			delete(s.statuses, symbol)
		}
	}
	for symbol, backend := range backends {
		if existing, ok := s.statuses[symbol]; ok {
			existing.Backend = backend
			s.statuses[symbol] = existing
			continue
		}
		s.statuses[symbol] = WalletStatus{
			Currency: symbol,
			Backend:  backend,
			Locked:   true,
			Message:  "not yet checked",
		}
	}
}

func (s *StatusStore) Update(status WalletStatus) {
	symbol := strings.ToUpper(strings.TrimSpace(status.Currency))
	if symbol == "" {
		return
	}
	status.Currency = symbol
	if status.LastChecked.IsZero() {
		status.LastChecked = time.Now().UTC()
	}

	s.mu.Lock()
	s.statuses[symbol] = status
	s.mu.Unlock()
}

func (s *StatusStore) Get(symbol string) (WalletStatus, bool) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	s.mu.RLock()
	status, ok := s.statuses[symbol]
	s.mu.RUnlock()
	return status, ok
}

// List returns a sorted snapshot so callers can render status pages safely.
func (s *StatusStore) List() []WalletStatus {
	s.mu.RLock()
	out := make([]WalletStatus, 0, len(s.statuses))
	for _, status := range s.statuses {
		out = append(out, status)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Currency < out[j].Currency
	})
	return out
}
