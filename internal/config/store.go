package config

import (
	"sync/atomic"
)

// Store holds the current configuration. Readers always see a complete, validated
// Config; Reload swaps it only when the new one validates.
type Store struct {
	current atomic.Pointer[Config]
	load    func() (*Config, error)
}

// NewStore starts with cfg and reloads with load
func NewStore(cfg *Config, load func() (*Config, error)) *Store {
	s := &Store{load: load}
	s.current.Store(cfg)
	return s
}

// Get returns the current configuration. Callers must not modify it.
func (s *Store) Get() *Config {
	return s.current.Load()
}

// Reload loads a new configuration and swaps it in. On error the current one stays.
func (s *Store) Reload() (*Config, error) {
	cfg, err := s.load()
	if err != nil {
		return s.current.Load(), err
	}
	s.current.Store(cfg)
	return cfg, nil
}

// APIKeys returns the keys of the current configuration
func (s *Store) APIKeys() []string {
	return s.Get().Server.APIKeys
}
