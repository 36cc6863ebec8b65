package config

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Holder keeps the active configuration and swaps it atomically on reload.
// Only fields read through Get pick up changes; listeners, pools and
// secrets are fixed at startup.
type Holder struct {
	path string
	cur  atomic.Pointer[Config]
}

// NewHolder wraps an already loaded config. path is the YAML file re-read
// by Reload.
func NewHolder(cfg *Config, path string) *Holder {
	h := &Holder{path: path}
	h.cur.Store(cfg)
	return h
}

// Get returns the current configuration. Callers must not mutate it.
func (h *Holder) Get() *Config {
	return h.cur.Load()
}

// Reload re-reads defaults < YAML < ENV. On any error the previous
// configuration stays active.
func (h *Holder) Reload() error {
	cfg, err := LoadFrom(h.path)
	if err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	h.cur.Store(cfg)
	slog.Info("config reloaded", "path", h.path, "log_level", cfg.Logging.Level)
	return nil
}
