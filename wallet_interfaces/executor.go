package walletinterfaces

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

const (
	msgNoTxID       = "backend returned no transaction id"
	msgUnknownError = "withdrawal could not be executed"
)

// Outcome is the terminal state recorded for one withdrawal.
type Outcome struct {
	WithdrawalID uuid.UUID `json:"withdrawal_id"`
	Status       Status    `json:"status"`
	TxID         string    `json:"txid,omitempty"`
	Error        string    `json:"error,omitempty"`
}

type BatchResult struct {
	Outcomes []Outcome
}

func (r BatchResult) Done() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == StatusDone {
			n++
		}
	}
	return n
}

func (r BatchResult) Failed() int {
	return len(r.Outcomes) - r.Done()
}

// ValidateBatch checks that every withdrawal is pending, belongs to c and
// appears in the batch only once.
func ValidateBatch(c Currency, batch []*Withdrawal) error {
	seen := make(map[uuid.UUID]int, len(batch))
	for i, w := range batch {
		if w == nil {
			return &InvalidBatchError{Index: i, Reason: "withdrawal is nil"}
		}
		if first, dup := seen[w.ID]; dup {
			return &InvalidBatchError{Index: i, Reason: fmt.Sprintf("withdrawal %s already appears at index %d", w.ID, first)}
		}
		seen[w.ID] = i
		if w.Status != StatusPending {
			return &InvalidBatchError{Index: i, Reason: fmt.Sprintf("withdrawal %s is %s, not %s", w.ID, w.Status, StatusPending)}
		}
		if !w.Currency.Same(c) {
			return &InvalidBatchError{Index: i, Reason: fmt.Sprintf("withdrawal %s is in %s, adapter is bound to %s", w.ID, w.Currency.Symbol, c.Symbol)}
		}
	}
	return nil
}

// ExecuteWithdrawals runs a batch through w.Send. The batch is validated
// before anything is sent; after that each withdrawal is attempted in order
// and a failure never stops its siblings. Each withdrawal ends done or failed
// in place. If any failed, the returned error is a *BatchError whose message
// is the first failure.
func ExecuteWithdrawals(ctx context.Context, w Wallet, batch []*Withdrawal) (BatchResult, error) {
	if len(batch) == 0 {
		return BatchResult{}, nil
	}
	if err := ValidateBatch(w.Currency(), batch); err != nil {
		return BatchResult{}, err
	}

	result := BatchResult{Outcomes: make([]Outcome, 0, len(batch))}
	var failures []SendFailure
	for _, wd := range batch {
		txid, err := safeSend(ctx, w, *wd)
		var markErr error
		switch {
		case err != nil:
			msg := err.Error()
			if msg == "" {
				msg = msgUnknownError
			}
			markErr = wd.markFailed(msg)
		case txid == "":
			markErr = wd.markFailed(msgNoTxID)
		default:
			markErr = wd.markDone(txid)
		}
		if markErr != nil {
			// Only reachable if the entity changed under the executor.
			return result, fmt.Errorf("%w: %w", ErrInvalidBatch, markErr)
		}
		if wd.Status == StatusFailed {
			failures = append(failures, SendFailure{WithdrawalID: wd.ID, Message: wd.Error})
		}
		result.Outcomes = append(result.Outcomes, Outcome{WithdrawalID: wd.ID, Status: wd.Status, TxID: wd.TxID, Error: wd.Error})
	}
	if len(failures) > 0 {
		return result, &BatchError{Failures: failures}
	}
	return result, nil
}

// safeSend hands the adapter a copy so only the executor mutates the entity.
func safeSend(ctx context.Context, w Wallet, wd Withdrawal) (txid string, err error) {
	defer func() {
		if r := recover(); r != nil {
			txid = ""
			err = fmt.Errorf("withdrawal send panicked: %v", r)
		}
	}()
	return w.Send(ctx, wd)
}
