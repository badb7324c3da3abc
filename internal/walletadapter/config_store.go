package walletadapter

import (
	"fmt"
	"log/slog"
	"sync"
)

type ConfigStore struct {
	mu        sync.RWMutex
	cfg       *Config
	path      string
	listeners []func(*Config)
}

// NewConfigStore creates a threadsafe config holder that also knows its path,
// enabling Save/Update to persist without callers passing paths around.
func NewConfigStore(path string, cfg *Config) *ConfigStore {
	return &ConfigStore{
		path: path,
		cfg:  cfg.Clone(),
	}
}

// Get returns a clone so callers cannot mutate shared state.
func (s *ConfigStore) Get() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

// OnChange registers fn to run with every config that is applied.
// Listeners run after the store lock is released.
func (s *ConfigStore) OnChange(fn func(*Config)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Set validates and applies a config in memory only (no disk write).
func (s *ConfigStore) Set(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	cfg.Normalize(s.path)
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg = cfg.Clone()
	s.mu.Unlock()
	slog.Debug("config applied in memory", "path", s.path)
	s.notify()
	return nil
}

// Update clones, mutates, validates and saves atomically, and only then
// swaps the in-memory pointer.
func (s *ConfigStore) Update(fn func(*Config) error) error {
	if fn == nil {
		return fmt.Errorf("update function is nil")
	}
	s.mu.Lock()
	next := s.cfg.Clone()
	if err := fn(next); err != nil {
		s.mu.Unlock()
		return err
	}
	next.Normalize(s.path)
	if err := next.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := SaveConfig(s.path, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.cfg = next
	s.mu.Unlock()
	slog.Info("config updated", "path", s.path)
	s.notify()
	return nil
}

func (s *ConfigStore) notify() {
	s.mu.RLock()
	listeners := append(([]func(*Config))(nil), s.listeners...)
	cfg := s.cfg.Clone()
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(cfg)
	}
}
