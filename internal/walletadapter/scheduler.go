package walletadapter

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	walletinterfaces "github.com/kaigoh/walletadapter/wallet_interfaces"
	"golang.org/x/sync/errgroup"
)

const defaultMaintenanceInterval = time.Minute

// Scheduler runs adapter maintenance on a periodic tick and refreshes the
// status store from each adapter afterwards.
type Scheduler struct {
	registry *Registry
	statuses *StatusStore
	interval atomic.Int64 // time.Duration
	timeout  atomic.Int64 // time.Duration
	// onSweep runs after every sweep, e.g. to push health states.
	onSweep func()
	retime  chan struct{}
}

func NewScheduler(registry *Registry, statuses *StatusStore, interval, timeout time.Duration) *Scheduler {
	s := &Scheduler{
		registry: registry,
		statuses: statuses,
		retime:   make(chan struct{}, 1),
	}
	if interval <= 0 {
		interval = defaultMaintenanceInterval
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	s.interval.Store(int64(interval))
	s.timeout.Store(int64(timeout))
	return s
}

// SetTiming applies a reloaded tick and per-check timeout. A changed
// interval restarts the wait for the next sweep. Non-positive values are
// ignored.
func (s *Scheduler) SetTiming(interval, timeout time.Duration) {
	if timeout > 0 {
		s.timeout.Store(int64(timeout))
	}
	if interval > 0 && s.interval.Swap(int64(interval)) != int64(interval) {
		select {
		case s.retime <- struct{}{}:
		default:
		}
	}
}

func (s *Scheduler) Interval() time.Duration {
	return time.Duration(s.interval.Load())
}

func (s *Scheduler) OnSweep(fn func()) {
	s.onSweep = fn
}

// Start sweeps immediately, so wallets do not report locked for a whole
// interval, then on every tick until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil || s.registry == nil || s.statuses == nil {
		return
	}

	s.Sweep(ctx)

	timer := time.NewTimer(s.Interval())
	go func() {
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.retime:
				timer.Reset(s.Interval())
			case <-timer.C:
				s.Sweep(ctx)
				timer.Reset(s.Interval())
			}
		}
	}()
}

// Sweep runs maintenance for every currency concurrently. A failing or hung
// adapter only affects its own status entry.
func (s *Scheduler) Sweep(ctx context.Context) {
	var g errgroup.Group
	for _, entry := range s.registry.snapshot() {
		g.Go(func() error {
			s.statuses.Update(s.check(ctx, entry))
			return nil
		})
	}
	_ = g.Wait()
	if s.onSweep != nil {
		s.onSweep()
	}
}

func (s *Scheduler) check(ctx context.Context, entry *walletEntry) WalletStatus {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.timeout.Load()))
	defer cancel()

	w := entry.wallet
	status := WalletStatus{
		Currency:    entry.currency.Symbol,
		Backend:     entry.cfg.Backend,
		LastChecked: time.Now().UTC(),
	}
	if d, ok := w.(walletinterfaces.Describer); ok {
		status.Description = d.Description()
	}
	if label, ok := w.ExtraFieldLabel(entry.currency); ok {
		status.ExtraField = label
	}

	if err := w.RunMaintenance(ctx); err != nil {
		// Maintenance failures are never fatal to the host.
		entry.log.Error("wallet maintenance failed", "error", err)
		status.Message = "maintenance: " + err.Error()
	}

	status.Locked = w.IsLocked(ctx)
	status.BlockHeight = w.BlockHeight(ctx, entry.currency)

	version, err := w.BackendVersion(ctx)
	if err != nil {
		entry.log.Warn("wallet version unavailable", "error", err)
		if status.Message == "" {
			status.Message = err.Error()
		}
	}
	status.Version = version

	total, err := w.HotBalance(ctx, entry.currency)
	if err == nil {
		status.Balance = total
		if locked, err := w.HotLockedBalance(ctx, entry.currency); err == nil {
			status.LockedBalance = min(locked, total)
		}
	}

	if status.Locked {
		entry.log.Warn("wallet locked", "height", status.BlockHeight)
	} else {
		entry.log.Debug("wallet ok", "height", status.BlockHeight, "version", status.Version,
			"balance", entry.currency.Format(status.Balance))
	}
	slog.Debug("wallet status refreshed", "currency", status.Currency, "locked", status.Locked)
	return status
}
