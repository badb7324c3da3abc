package walletadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	walletinterfaces "github.com/kaigoh/walletadapter/wallet_interfaces"
)

// Ledger persists terminal withdrawal outcomes to a JSON state file. It is
// the host's record that a withdrawal must never be submitted again.
type Ledger struct {
	mu   sync.RWMutex
	path string
	data map[uuid.UUID]ledgerEntry
}

type ledgerFile struct {
	Entries map[uuid.UUID]ledgerEntry `json:"entries"`
}

type ledgerEntry struct {
	Currency   string                  `json:"currency"`
	Status     walletinterfaces.Status `json:"status"`
	TxID       string                  `json:"txid,omitempty"`
	Error      string                  `json:"error,omitempty"`
	RecordedAt int64                   `json:"recorded_at"`
}

func OpenLedger(path string) (*Ledger, error) {
	l := &Ledger{
		path: path,
		data: map[uuid.UUID]ledgerEntry{},
	}
	if err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}

// Record implements walletinterfaces.OutcomeSink. Non-terminal outcomes are
// refused, as is overwriting an outcome with a different one.
func (l *Ledger) Record(_ context.Context, c walletinterfaces.Currency, outcomes []walletinterfaces.Outcome) error {
	if len(outcomes) == 0 {
		return nil
	}
	now := time.Now().UTC().Unix()

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, o := range outcomes {
		if !o.Status.Terminal() {
			return fmt.Errorf("ledger: withdrawal %s has non-terminal status %q", o.WithdrawalID, o.Status)
		}
		if prev, ok := l.data[o.WithdrawalID]; ok && (prev.Status != o.Status || prev.TxID != o.TxID) {
			return fmt.Errorf("ledger: withdrawal %s already recorded as %s", o.WithdrawalID, prev.Status)
		}
	}
	for _, o := range outcomes {
		l.data[o.WithdrawalID] = ledgerEntry{
			Currency:   c.Symbol,
			Status:     o.Status,
			TxID:       o.TxID,
			Error:      o.Error,
			RecordedAt: now,
		}
	}
	return l.saveLocked()
}

func (l *Ledger) Get(id uuid.UUID) (walletinterfaces.Outcome, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.data[id]
	if !ok {
		return walletinterfaces.Outcome{}, false
	}
	return walletinterfaces.Outcome{WithdrawalID: id, Status: e.Status, TxID: e.TxID, Error: e.Error}, true
}

// Terminal reports whether the withdrawal already reached done or failed.
func (l *Ledger) Terminal(id uuid.UUID) bool {
	_, ok := l.Get(id)
	return ok
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.data)
}

func (l *Ledger) load() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var file ledgerFile
	if err := json.Unmarshal(b, &file); err != nil {
		return fmt.Errorf("ledger %s: %w", l.path, err)
	}
	if file.Entries != nil {
		l.data = file.Entries
	}
	slog.Debug("ledger loaded", "path", l.path, "entries", len(l.data))
	return nil
}

func (l *Ledger) saveLocked() error {
	b, err := json.MarshalIndent(ledgerFile{Entries: l.data}, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(l.path, b, 0o600)
}

// writeFileAtomic writes to a temp file in the same directory and renames it,
// so readers never observe partial writes and fsnotify sees a clean replace.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".walletadapter-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
