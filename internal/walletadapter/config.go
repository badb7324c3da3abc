package walletadapter

import (
	"errors"
	"fmt"
	"os"
	"strings"

	walletinterfaces "github.com/kaigoh/walletadapter/wallet_interfaces"
	"gopkg.in/yaml.v2"
)

// Config is the full runtime configuration loaded from config.yml.
// It is treated as immutable once applied to the ConfigStore.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging,omitempty"`
	Scheduler  SchedulerConfig  `yaml:"scheduler,omitempty"`
	Admin      AdminConfig      `yaml:"admin,omitempty"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit,omitempty"`
	LedgerPath string           `yaml:"ledger_path,omitempty"`
	Currencies []CurrencyConfig `yaml:"currencies"`
}

func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := &Config{
		Logging:    c.Logging,
		Scheduler:  c.Scheduler,
		Admin:      c.Admin,
		RateLimit:  c.RateLimit.Clone(),
		LedgerPath: c.LedgerPath,
		Currencies: make([]CurrencyConfig, len(c.Currencies)),
	}
	for i := range c.Currencies {
		out.Currencies[i] = c.Currencies[i].Clone()
	}
	return out
}

// Normalize fills defaults and stabilizes casing/whitespace.
func (c *Config) Normalize(path string) {
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	} else {
		c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	}
	if c.Scheduler.IntervalSeconds <= 0 {
		c.Scheduler.IntervalSeconds = 60
	}
	if c.Scheduler.CallTimeoutSeconds <= 0 {
		c.Scheduler.CallTimeoutSeconds = 30
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		c.RateLimit.RequestsPerMinute = 60
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 10
	}
	c.LedgerPath = strings.TrimSpace(c.LedgerPath)
	if c.LedgerPath == "" && path != "" {
		c.LedgerPath = ledgerPathFor(path)
	}
	for i := range c.Currencies {
		cur := &c.Currencies[i]
		cur.Symbol = strings.ToUpper(strings.TrimSpace(cur.Symbol))
		cur.Name = strings.TrimSpace(cur.Name)
		cur.Backend = strings.ToLower(strings.TrimSpace(cur.Backend))
	}
}

// Validate checks that the normalized config is internally consistent.
// Adapter settings are checked later against the backend schema.
func (c *Config) Validate() error {
	if _, ok := parseLogLevel(c.Logging.Level); !ok {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	if c.Scheduler.IntervalSeconds <= 0 {
		return fmt.Errorf("scheduler.interval_seconds must be > 0")
	}
	if c.Scheduler.CallTimeoutSeconds <= 0 {
		return fmt.Errorf("scheduler.call_timeout_seconds must be > 0")
	}
	if c.Admin.Port != 0 && c.Admin.Port == c.Admin.GRPCPort {
		return fmt.Errorf("admin.port and admin.grpc_port must differ")
	}
	if c.RateLimit.EnabledOrDefault() {
		if c.RateLimit.RequestsPerMinute <= 0 {
			return fmt.Errorf("rate_limit.requests_per_minute must be > 0")
		}
		if c.RateLimit.Burst <= 0 {
			return fmt.Errorf("rate_limit.burst must be > 0")
		}
	}
	if len(c.Currencies) == 0 {
		return fmt.Errorf("at least one currency is required")
	}
	seen := make(map[string]struct{}, len(c.Currencies))
	for i, cur := range c.Currencies {
		if cur.Symbol == "" {
			return fmt.Errorf("currencies[%d].symbol is required", i)
		}
		if _, dup := seen[cur.Symbol]; dup {
			// One currency, one adapter instance.
			return fmt.Errorf("currencies[%d].symbol %s is configured twice", i, cur.Symbol)
		}
		seen[cur.Symbol] = struct{}{}
		if cur.Backend == "" {
			return fmt.Errorf("currencies[%d].backend is required", i)
		}
		if _, err := cur.Currency(); err != nil {
			return fmt.Errorf("currencies[%d]: %w", i, err)
		}
	}
	return nil
}

func (c *Config) GetCurrency(symbol string) (*CurrencyConfig, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	for _, cur := range c.Currencies {
		if cur.Symbol == symbol {
			return &cur, nil
		}
	}
	return nil, fmt.Errorf("currency %s not configured", symbol)
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type SchedulerConfig struct {
	// IntervalSeconds is the maintenance tick.
	IntervalSeconds int `yaml:"interval_seconds,omitempty"`
	// CallTimeoutSeconds bounds every blocking adapter call.
	CallTimeoutSeconds int `yaml:"call_timeout_seconds,omitempty"`
}

type AdminConfig struct {
	// Port serves the HTTP status endpoints; 0 disables them.
	Port uint16 `yaml:"port,omitempty"`
	// GRPCPort serves grpc.health.v1; 0 disables it.
	GRPCPort uint16 `yaml:"grpc_port,omitempty"`
}

type RateLimitConfig struct {
	// Enabled defaults to true when omitted.
	Enabled           *bool `yaml:"enabled,omitempty"`
	RequestsPerMinute int   `yaml:"requests_per_minute,omitempty"`
	Burst             int   `yaml:"burst,omitempty"`
}

func (r RateLimitConfig) Clone() RateLimitConfig {
	var enabled *bool
	if r.Enabled != nil {
		v := *r.Enabled
		enabled = &v
	}
	return RateLimitConfig{
		Enabled:           enabled,
		RequestsPerMinute: r.RequestsPerMinute,
		Burst:             r.Burst,
	}
}

func (r RateLimitConfig) EnabledOrDefault() bool {
	if r.Enabled == nil {
		return true
	}
	return *r.Enabled
}

// CurrencyConfig binds one currency to one backend. Settings is the
// settings store for that adapter, keyed by field id.
type CurrencyConfig struct {
	Symbol   string            `yaml:"symbol"`
	Name     string            `yaml:"name,omitempty"`
	Decimals uint8             `yaml:"decimals"`
	Backend  string            `yaml:"backend"`
	Settings map[string]string `yaml:"settings,omitempty"`
}

func (c CurrencyConfig) Clone() CurrencyConfig {
	out := c
	if c.Settings != nil {
		out.Settings = make(map[string]string, len(c.Settings))
		for k, v := range c.Settings {
			out.Settings[k] = v
		}
	}
	return out
}

func (c CurrencyConfig) Currency() (walletinterfaces.Currency, error) {
	return walletinterfaces.NewCurrency(c.Symbol, c.Name, c.Decimals)
}

// Equal reports whether two bindings would build the same adapter.
func (c CurrencyConfig) Equal(other CurrencyConfig) bool {
	if c.Symbol != other.Symbol || c.Name != other.Name || c.Decimals != other.Decimals || c.Backend != other.Backend {
		return false
	}
	if len(c.Settings) != len(other.Settings) {
		return false
	}
	for k, v := range c.Settings {
		if ov, ok := other.Settings[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

func boolPtr(v bool) *bool {
	return &v
}

func ledgerPathFor(configPath string) string {
	return configPath + ".ledger.json"
}

func LoadOrCreateConfig(path string, defaultCfg *Config) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err == nil {
		return cfg, nil
	}

	// Any errors other than file not found?
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	cfg = defaultCfg.Clone()
	if err := SaveConfig(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize(path)

	return &cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	// Normalize before save so the watcher can re-load without churn.
	cfg.Normalize(path)
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return writeFileAtomic(path, data, 0o600)
}
