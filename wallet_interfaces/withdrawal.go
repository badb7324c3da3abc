package walletinterfaces

import (
	"fmt"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Withdrawal is a money movement created by the host in pending state and
// driven to a terminal state only by ExecuteWithdrawals.
type Withdrawal struct {
	// ID is a UUIDv7 so IDs sort in creation order.
	ID       uuid.UUID `json:"id"`
	Amount   Amount    `json:"amount"`
	Address  Address   `json:"address"`
	Currency Currency  `json:"currency"`
	Status   Status    `json:"status"`
	TxID     string    `json:"txid,omitempty"`
	Error    string    `json:"error,omitempty"`
}

func NewWithdrawal(c Currency, amount Amount, to Address) (*Withdrawal, error) {
	if amount == 0 {
		return nil, fmt.Errorf("withdrawal amount must be positive")
	}
	if to.Type != AddressTypeWithdrawal {
		return nil, fmt.Errorf("withdrawal destination must be a %s address, got %q", AddressTypeWithdrawal, to.Type)
	}
	if !to.Currency.Same(c) {
		return nil, fmt.Errorf("withdrawal destination is a %s address, not %s", to.Currency.Symbol, c.Symbol)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("withdrawal id: %w", err)
	}
	return &Withdrawal{
		ID:       id,
		Amount:   amount,
		Address:  to,
		Currency: c,
		Status:   StatusPending,
	}, nil
}

func (w *Withdrawal) markDone(txid string) error {
	if w.Status != StatusPending {
		return &InvalidTransitionError{ID: w.ID, From: w.Status, To: StatusDone}
	}
	if txid == "" {
		return fmt.Errorf("withdrawal %s: done requires a transaction id", w.ID)
	}
	w.Status = StatusDone
	w.TxID = txid
	w.Error = ""
	return nil
}

func (w *Withdrawal) markFailed(reason string) error {
	if w.Status != StatusPending {
		return &InvalidTransitionError{ID: w.ID, From: w.Status, To: StatusFailed}
	}
	if reason == "" {
		return fmt.Errorf("withdrawal %s: failed requires an error message", w.ID)
	}
	w.Status = StatusFailed
	w.Error = reason
	return nil
}
