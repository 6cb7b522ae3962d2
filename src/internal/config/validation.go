// FILE: src/internal/config/validation.go
package config

import (
	"encoding/base64"
	"fmt"

	lconfig "github.com/lixenwraith/config"
)

func (c *Config) validate() error {
	if err := validateLogConfig(&c.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	if err := validateScram(&c.Scram); err != nil {
		return fmt.Errorf("scram config: %w", err)
	}
	if err := validateStore(&c.Store); err != nil {
		return fmt.Errorf("store config: %w", err)
	}
	if err := validateLimits(&c.Limits); err != nil {
		return fmt.Errorf("limits config: %w", err)
	}
	if err := validateSession(&c.Session); err != nil {
		return fmt.Errorf("session config: %w", err)
	}

	seen := make(map[string]bool, len(c.Users))
	for i, u := range c.Users {
		if err := lconfig.NonEmpty(u.Username); err != nil {
			return fmt.Errorf("user %d: missing username", i)
		}
		if seen[u.Username] {
			return fmt.Errorf("user %d: duplicate username '%s'", i, u.Username)
		}
		seen[u.Username] = true

		if u.Iterations < c.Scram.MinIterations {
			return fmt.Errorf("user '%s': iterations %d below minimum %d",
				u.Username, u.Iterations, c.Scram.MinIterations)
		}
	}

	return nil
}

func validateScram(cfg *ScramConfig) error {
	if cfg.MinIterations < 1 {
		return fmt.Errorf("min_iterations must be positive: %d", cfg.MinIterations)
	}
	if cfg.Iterations < cfg.MinIterations {
		return fmt.Errorf("iterations %d below min_iterations %d", cfg.Iterations, cfg.MinIterations)
	}
	if cfg.SaltLength < 8 {
		return fmt.Errorf("salt_length must be at least 8 bytes: %d", cfg.SaltLength)
	}
	if cfg.NonceLength < 8 {
		return fmt.Errorf("nonce_length must be at least 8: %d", cfg.NonceLength)
	}
	if cfg.HandshakeTimeoutSeconds < 1 {
		return fmt.Errorf("handshake_timeout_seconds must be positive: %d", cfg.HandshakeTimeoutSeconds)
	}
	if cfg.DerivationWorkers < 1 {
		return fmt.Errorf("derivation_workers must be positive: %d", cfg.DerivationWorkers)
	}
	if cfg.DecoyKey != "" {
		if _, err := base64.StdEncoding.DecodeString(cfg.DecoyKey); err != nil {
			return fmt.Errorf("decoy_key is not valid base64: %w", err)
		}
	}
	return nil
}

func validateStore(cfg *StoreConfig) error {
	switch cfg.Type {
	case "memory":
	case "bolt":
		if err := lconfig.NonEmpty(cfg.Path); err != nil {
			return fmt.Errorf("bolt store requires a path")
		}
	default:
		return fmt.Errorf("invalid store type: %s", cfg.Type)
	}
	return nil
}

func validateLimits(cfg *LimitConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.AttemptsPerMinute <= 0 {
		return fmt.Errorf("attempts_per_minute must be positive: %g", cfg.AttemptsPerMinute)
	}
	if cfg.Burst < 1 {
		return fmt.Errorf("burst must be positive: %d", cfg.Burst)
	}
	if cfg.MaxTrackedPeers < 1 {
		return fmt.Errorf("max_tracked_peers must be positive: %d", cfg.MaxTrackedPeers)
	}
	return nil
}

func validateSession(cfg *SessionConfig) error {
	if cfg.IdleTimeoutMinutes < 1 {
		return fmt.Errorf("idle_timeout_minutes must be positive: %d", cfg.IdleTimeoutMinutes)
	}
	if cfg.TicketTTLMinutes < 1 {
		return fmt.Errorf("ticket_ttl_minutes must be positive: %d", cfg.TicketTTLMinutes)
	}
	return nil
}
