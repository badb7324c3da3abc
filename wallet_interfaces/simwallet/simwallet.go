// Package simwallet is an in-memory wallet backend. It behaves like a small
// hot wallet: deposits get sequential addresses, sends debit the spendable
// balance, and individual destinations can be made to fail.
package simwallet

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	walletinterfaces "github.com/kaigoh/walletadapter/wallet_interfaces"
)

const BackendName = "simulated"

var ErrInsufficientBalance = errors.New("insufficient backend balance")

func Schema() walletinterfaces.Schema {
	return walletinterfaces.Schema{
		{
			ID:          "initial_balance",
			Name:        "Initial balance",
			Type:        walletinterfaces.FieldNumber,
			Description: "Starting hot balance in smallest units.",
			Default:     "0",
			Min:         walletinterfaces.Int64(0),
		},
		{
			ID:          "locked_balance",
			Name:        "Locked balance",
			Type:        walletinterfaces.FieldNumber,
			Description: "Part of the starting balance that is not spendable.",
			Default:     "0",
			Min:         walletinterfaces.Int64(0),
		},
		{
			ID:      "height",
			Name:    "Block height",
			Type:    walletinterfaces.FieldNumber,
			Default: "0",
			Min:     walletinterfaces.Int64(0),
		},
		{
			ID:       "address_prefix",
			Name:     "Address prefix",
			Type:     walletinterfaces.FieldString,
			Default:  "sim",
			Validate: "alphanum",
		},
	}
}

func Backend() walletinterfaces.Backend {
	return walletinterfaces.Backend{
		Name:   BackendName,
		Schema: Schema(),
		Factory: func(c walletinterfaces.Currency, s walletinterfaces.Settings) (walletinterfaces.Wallet, error) {
			return New(c, s)
		},
	}
}

type Wallet struct {
	currency walletinterfaces.Currency
	prefix   string

	mu          sync.Mutex
	spendable   walletinterfaces.Amount
	locked      walletinterfaces.Amount
	height      uint64
	isLocked    bool
	unreachable bool
	nextAddress uint64
	sendFails   map[string]string
	sends       []walletinterfaces.Withdrawal
	maintenance int
}

func New(c walletinterfaces.Currency, s walletinterfaces.Settings) (*Wallet, error) {
	total := s.Int("initial_balance")
	locked := s.Int("locked_balance")
	if locked > total {
		return nil, &walletinterfaces.ConfigurationError{Field: "locked_balance", Reason: "must not exceed initial_balance"}
	}
	prefix := s.String("address_prefix")
	if prefix == "" {
		prefix = "sim"
	}
	return &Wallet{
		currency:  c,
		prefix:    prefix,
		spendable: walletinterfaces.Amount(total - locked),
		locked:    walletinterfaces.Amount(locked),
		height:    uint64(s.Int("height")),
		sendFails: map[string]string{},
	}, nil
}

func (w *Wallet) Currency() walletinterfaces.Currency { return w.currency }

func (w *Wallet) Description() string {
	return fmt.Sprintf("simulated %s wallet", w.currency.Symbol)
}

func (w *Wallet) IsLocked(context.Context) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.isLocked || w.unreachable
}

func (w *Wallet) NewDepositAddress(_ context.Context, c walletinterfaces.Currency) (walletinterfaces.Address, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.unreachable {
		return walletinterfaces.Address{}, walletinterfaces.Unavailable("new deposit address", errors.New("simulated backend unreachable"))
	}
	w.nextAddress++
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s/%s/%d", w.prefix, c.Symbol, w.nextAddress)))
	addr := fmt.Sprintf("%s%d%s", w.prefix, w.nextAddress, hex.EncodeToString(sum[:8]))
	return walletinterfaces.NewDepositAddress(c, addr), nil
}

func (w *Wallet) HotBalance(context.Context, walletinterfaces.Currency) (walletinterfaces.Amount, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.unreachable {
		return 0, walletinterfaces.Unavailable("hot balance", errors.New("simulated backend unreachable"))
	}
	return w.spendable + w.locked, nil
}

func (w *Wallet) HotLockedBalance(context.Context, walletinterfaces.Currency) (walletinterfaces.Amount, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.unreachable {
		return 0, walletinterfaces.Unavailable("hot locked balance", errors.New("simulated backend unreachable"))
	}
	return walletinterfaces.LockedPortion(w.spendable+w.locked, w.spendable), nil
}

func (w *Wallet) Send(_ context.Context, wd walletinterfaces.Withdrawal) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sends = append(w.sends, wd)
	if msg, ok := w.sendFails[wd.Address.Address]; ok {
		return "", errors.New(msg)
	}
	if w.unreachable {
		return "", errors.New("simulated backend unreachable")
	}
	if wd.Amount > w.spendable {
		return "", ErrInsufficientBalance
	}
	w.spendable -= wd.Amount
	sum := sha256.Sum256([]byte(wd.ID.String() + wd.Address.Address))
	return hex.EncodeToString(sum[:]), nil
}

func (w *Wallet) BlockHeight(context.Context, walletinterfaces.Currency) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.unreachable {
		return 0
	}
	return w.height
}

func (w *Wallet) BackendVersion(context.Context) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.unreachable {
		return "", walletinterfaces.Unavailable("backend version", errors.New("simulated backend unreachable"))
	}
	return "simwallet-1", nil
}

func (w *Wallet) ExtraFieldLabel(walletinterfaces.Currency) (string, bool) {
	return "", false
}

// RunMaintenance matures locked funds, one block per call.
func (w *Wallet) RunMaintenance(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.maintenance++
	if w.unreachable {
		return walletinterfaces.Unavailable("maintenance", errors.New("simulated backend unreachable"))
	}
	w.height++
	w.spendable += w.locked
	w.locked = 0
	return nil
}

// SetLocked simulates a passphrase-locked or syncing wallet.
func (w *Wallet) SetLocked(locked bool) {
	w.mu.Lock()
	w.isLocked = locked
	w.mu.Unlock()
}

// SetUnreachable makes every backend call fail as a connectivity error.
func (w *Wallet) SetUnreachable(unreachable bool) {
	w.mu.Lock()
	w.unreachable = unreachable
	w.mu.Unlock()
}

// FailSendsTo makes every send to address fail with msg.
func (w *Wallet) FailSendsTo(address, msg string) {
	w.mu.Lock()
	w.sendFails[address] = msg
	w.mu.Unlock()
}

// Sends returns every withdrawal handed to Send, in call order.
func (w *Wallet) Sends() []walletinterfaces.Withdrawal {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]walletinterfaces.Withdrawal(nil), w.sends...)
}

func (w *Wallet) MaintenanceRuns() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.maintenance
}
