package walletadapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const VERSION = 1

var defaultConfig = &Config{
	Logging: LoggingConfig{
		Level: "info",
	},
	Scheduler: SchedulerConfig{
		IntervalSeconds:    60,
		CallTimeoutSeconds: 30,
	},
	Admin: AdminConfig{
		Port:     8080,
		GRPCPort: 50051,
	},
	RateLimit: RateLimitConfig{
		Enabled:           boolPtr(true),
		RequestsPerMinute: 60,
		Burst:             10,
	},
	Currencies: []CurrencyConfig{
		{
			Symbol:   "XMR",
			Name:     "Monero",
			Decimals: 12,
			Backend:  "xmr",
			Settings: map[string]string{
				"ip":   "127.0.0.1",
				"port": "18082",
			},
		},
	},
}

// App is the wired host: config, adapters, ledger and dispatcher.
type App struct {
	Store      *ConfigStore
	Registry   *Registry
	Ledger     *Ledger
	Dispatcher *Dispatcher
	Statuses   *StatusStore
}

// Open loads (or creates) the config and builds every adapter. It starts
// nothing in the background.
func Open(configPath string) (*App, error) {
	if configPath == "" {
		configPath = "config.yml"
	}
	cfg, err := LoadOrCreateConfig(configPath, defaultConfig)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	InitLogger(cfg.Logging)

	registry := NewRegistry(DefaultBackends())
	if err := registry.Load(cfg); err != nil {
		return nil, err
	}
	ledger, err := OpenLedger(cfg.LedgerPath)
	if err != nil {
		return nil, err
	}
	timeout := time.Duration(cfg.Scheduler.CallTimeoutSeconds) * time.Second
	return &App{
		Store:      NewConfigStore(configPath, cfg),
		Registry:   registry,
		Ledger:     ledger,
		Dispatcher: NewDispatcher(registry, ledger, timeout),
		Statuses:   NewStatusStore(cfg),
	}, nil
}

// Scheduler builds a maintenance scheduler from the current config.
func (a *App) Scheduler() *Scheduler {
	cfg := a.Store.Get()
	return NewScheduler(a.Registry, a.Statuses,
		time.Duration(cfg.Scheduler.IntervalSeconds)*time.Second,
		time.Duration(cfg.Scheduler.CallTimeoutSeconds)*time.Second)
}

// Run serves the host until ctx is cancelled or a listener fails.
func Run(ctx context.Context, configPath string) error {
	app, err := Open(configPath)
	if err != nil {
		return err
	}
	cfg := app.Store.Get()
	slog.Info("config loaded", "path", configPath, "currencies", app.Registry.Symbols(), "ledger", cfg.LedgerPath)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	health := newHealthService(app.Statuses)
	scheduler := app.Scheduler()
	scheduler.OnSweep(health.Sync)

	app.Store.OnChange(func(next *Config) {
		app.Registry.Reconcile(next)
		app.Statuses.Reconcile(next)
		timeout := time.Duration(next.Scheduler.CallTimeoutSeconds) * time.Second
		app.Dispatcher.SetTimeout(timeout)
		scheduler.SetTiming(time.Duration(next.Scheduler.IntervalSeconds)*time.Second, timeout)
		health.Sync()
	})
	watcher, err := WatchConfigFile(configPath, app.Store)
	if err != nil {
		slog.Error("config watcher failed to start", "path", configPath, "error", err)
		return err
	}
	defer watcher.Close()
	slog.Info("config watcher started", "path", configPath)

	scheduler.Start(ctx)

	errs := make(chan error, 2)
	if cfg.Admin.GRPCPort != 0 {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Admin.GRPCPort))
		if err != nil {
			return err
		}
		go func() { errs <- health.Serve(lis) }()
		defer health.Stop()
	}

	var srv *http.Server
	if cfg.Admin.Port != 0 {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /healthz", HealthHandler(app.Statuses))
		limited := newRateLimiter(app.Store)
		mux.Handle("GET /status", limited.middleware(StatusHandler(app.Statuses)))
		mux.Handle("GET /status/{currency}", limited.middleware(StatusHandler(app.Statuses)))
		mux.Handle("GET /schema/{backend}", limited.middleware(SchemaHandler(app.Registry)))

		srv = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Admin.Port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		slog.Info("admin server listening", "addr", srv.Addr)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err = <-errs:
		slog.Error("server exited", "error", err)
	}
	if srv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
	}
	return err
}
