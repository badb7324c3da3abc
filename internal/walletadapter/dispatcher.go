package walletadapter

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	walletinterfaces "github.com/kaigoh/walletadapter/wallet_interfaces"
)

var (
	ErrUnknownCurrency  = errors.New("currency not configured")
	ErrWalletLocked     = errors.New("wallet is locked")
	ErrAlreadyProcessed = errors.New("withdrawal already processed")
)

// Dispatcher is the host side of withdrawal execution and of every other
// blocking adapter call: it picks the adapter, checks the batch, holds the
// per-currency execution lock and bounds each call with a timeout.
type Dispatcher struct {
	registry *Registry
	sink     walletinterfaces.OutcomeSink
	ledger   *Ledger
	timeout  atomic.Int64 // time.Duration
}

func NewDispatcher(registry *Registry, ledger *Ledger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	d := &Dispatcher{registry: registry, ledger: ledger}
	d.timeout.Store(int64(timeout))
	if ledger != nil {
		d.sink = ledger
	}
	return d
}

func (d *Dispatcher) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		d.timeout.Store(int64(timeout))
	}
}

func (d *Dispatcher) callTimeout() time.Duration {
	return time.Duration(d.timeout.Load())
}

// Execute runs one batch for symbol. Withdrawals are mutated in place and
// their outcomes persisted before Execute returns. A *BatchError reports
// partial failure; every other error means nothing was sent.
func (d *Dispatcher) Execute(ctx context.Context, symbol string, batch []*walletinterfaces.Withdrawal) (walletinterfaces.BatchResult, error) {
	entry, ok := d.registry.entry(symbol)
	if !ok {
		return walletinterfaces.BatchResult{}, fmt.Errorf("%w: %s", ErrUnknownCurrency, symbol)
	}
	if len(batch) == 0 {
		return walletinterfaces.BatchResult{}, nil
	}
	if err := d.checkBatch(entry, batch); err != nil {
		return walletinterfaces.BatchResult{}, err
	}

	entry.exec.Lock()
	defer entry.exec.Unlock()

	// Re-check under the lock: a concurrent call may have finished these.
	if err := d.checkBatch(entry, batch); err != nil {
		return walletinterfaces.BatchResult{}, err
	}
	if entry.wallet.IsLocked(ctx) {
		entry.log.Warn("withdrawal batch refused: wallet locked", "withdrawals", len(batch))
		return walletinterfaces.BatchResult{}, fmt.Errorf("%s: %w", entry.currency.Symbol, ErrWalletLocked)
	}

	callCtx, cancel := context.WithTimeout(ctx, d.callTimeout())
	defer cancel()

	start := time.Now()
	result, execErr := walletinterfaces.ExecuteWithdrawals(callCtx, entry.wallet, batch)
	if errors.Is(execErr, walletinterfaces.ErrInvalidBatch) && len(result.Outcomes) == 0 {
		return result, execErr
	}
	entry.log.Info("withdrawal batch executed",
		"withdrawals", len(batch), "done", result.Done(), "failed", result.Failed(), "took", time.Since(start).Round(time.Millisecond))

	if d.sink != nil {
		// Persist with the caller's context: outcomes must be recorded even
		// when the batch used up its timeout.
		if err := d.sink.Record(ctx, entry.currency, result.Outcomes); err != nil {
			entry.log.Error("withdrawal outcomes not persisted", "error", err)
			return result, errors.Join(execErr, fmt.Errorf("persist outcomes: %w", err))
		}
	}

	var batchErr *walletinterfaces.BatchError
	if errors.As(execErr, &batchErr) {
		entry.log.Error("withdrawal batch had failures", "failed", len(batchErr.Failures), "first", batchErr.Error(), "all", batchErr.Summary())
	}
	return result, execErr
}

// checkBatch is the host validation step: the executor's own preconditions
// plus nothing the ledger already holds.
func (d *Dispatcher) checkBatch(entry *walletEntry, batch []*walletinterfaces.Withdrawal) error {
	if err := walletinterfaces.ValidateBatch(entry.currency, batch); err != nil {
		return err
	}
	for _, w := range batch {
		if d.ledger != nil && d.ledger.Terminal(w.ID) {
			return fmt.Errorf("%w: %s", ErrAlreadyProcessed, w.ID)
		}
	}
	return nil
}

// Balances holds the read-only wallet figures for one currency.
type Balances struct {
	Total  walletinterfaces.Amount `json:"total"`
	Locked walletinterfaces.Amount `json:"locked"`
}

func (d *Dispatcher) Balances(ctx context.Context, symbol string) (Balances, error) {
	entry, ok := d.registry.entry(symbol)
	if !ok {
		return Balances{}, fmt.Errorf("%w: %s", ErrUnknownCurrency, symbol)
	}
	ctx, cancel := context.WithTimeout(ctx, d.callTimeout())
	defer cancel()

	total, err := entry.wallet.HotBalance(ctx, entry.currency)
	if err != nil {
		return Balances{}, err
	}
	locked, err := entry.wallet.HotLockedBalance(ctx, entry.currency)
	if err != nil {
		return Balances{}, err
	}
	// Two separate reads can straddle a balance change.
	if locked > total {
		locked = total
	}
	return Balances{Total: total, Locked: locked}, nil
}

func (d *Dispatcher) DepositAddress(ctx context.Context, symbol, userID string) (walletinterfaces.Address, error) {
	entry, ok := d.registry.entry(symbol)
	if !ok {
		return walletinterfaces.Address{}, fmt.Errorf("%w: %s", ErrUnknownCurrency, symbol)
	}
	ctx, cancel := context.WithTimeout(ctx, d.callTimeout())
	defer cancel()

	addr, err := entry.wallet.NewDepositAddress(ctx, entry.currency)
	if err != nil {
		return walletinterfaces.Address{}, err
	}
	addr.UserID = userID
	entry.log.Info("deposit address issued", "user", userID)
	return addr, nil
}

// NewWithdrawal builds a pending withdrawal in the registry's currency.
func (d *Dispatcher) NewWithdrawal(symbol string, amount walletinterfaces.Amount, to, extra, userID string) (*walletinterfaces.Withdrawal, error) {
	currency, ok := d.registry.Currency(symbol)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCurrency, symbol)
	}
	addr, err := walletinterfaces.NewWithdrawalAddress(currency, to, extra, userID)
	if err != nil {
		return nil, err
	}
	return walletinterfaces.NewWithdrawal(currency, amount, addr)
}
