package walletinterfaces

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrConfiguration      = errors.New("wallet adapter configuration error")
	ErrInvalidBatch       = errors.New("invalid withdrawal batch")
	ErrBackendUnavailable = errors.New("wallet backend unavailable")
	ErrBatchFailed        = errors.New("withdrawal batch had failures")
)

// ConfigurationError is fatal to adapter initialization.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration: " + e.Reason
	}
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// InvalidBatchError means the host handed over a batch it should have
// rejected. Nothing was sent and nothing was mutated.
type InvalidBatchError struct {
	Index  int
	Reason string
}

func (e *InvalidBatchError) Error() string {
	return fmt.Sprintf("invalid withdrawal batch: item %d: %s", e.Index, e.Reason)
}

func (e *InvalidBatchError) Is(target error) bool { return target == ErrInvalidBatch }

// BackendUnavailableError wraps a connectivity failure of a read-only call.
// The whole call can be retried later.
type BackendUnavailableError struct {
	Op  string
	Err error
}

func (e *BackendUnavailableError) Error() string {
	if e.Err == nil {
		return e.Op + ": wallet backend unavailable"
	}
	return fmt.Sprintf("%s: wallet backend unavailable: %v", e.Op, e.Err)
}

func (e *BackendUnavailableError) Unwrap() error { return e.Err }

func (e *BackendUnavailableError) Is(target error) bool { return target == ErrBackendUnavailable }

// Unavailable is shorthand for adapters.
func Unavailable(op string, err error) error {
	return &BackendUnavailableError{Op: op, Err: err}
}

// SendFailure is one withdrawal that ended in failed state.
type SendFailure struct {
	WithdrawalID uuid.UUID
	Message      string
}

// BatchError is surfaced after a full batch pass when at least one
// withdrawal failed. Its message is the first failure in batch order.
type BatchError struct {
	Failures []SendFailure
}

func (e *BatchError) Error() string {
	if len(e.Failures) == 0 {
		return ErrBatchFailed.Error()
	}
	return e.Failures[0].Message
}

func (e *BatchError) Is(target error) bool { return target == ErrBatchFailed }

// Summary lists every failure, for operator logs.
func (e *BatchError) Summary() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.WithdrawalID.String()+": "+f.Message)
	}
	return strings.Join(parts, "; ")
}

type InvalidTransitionError struct {
	ID       uuid.UUID
	From, To Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("withdrawal %s: invalid status transition %s -> %s", e.ID, e.From, e.To)
}
