// FILE: src/internal/config/config.go
package config

import (
	"scramwisp/src/internal/core"
)

type Config struct {
	// Suppress all log output
	Quiet bool `toml:"quiet"`

	Logging LogConfig     `toml:"logging"`
	Scram   ScramConfig   `toml:"scram"`
	Store   StoreConfig   `toml:"store"`
	Limits  LimitConfig   `toml:"limits"`
	Session SessionConfig `toml:"session"`

	// Static credentials loaded into the store at startup
	Users []UserConfig `toml:"users"`
}

// ScramConfig holds the parameters for new registrations and in-flight handshakes.
type ScramConfig struct {
	Iterations              int `toml:"iterations"`
	SaltLength              int `toml:"salt_length"`
	NonceLength             int `toml:"nonce_length"`
	MinIterations           int `toml:"min_iterations"`
	HandshakeTimeoutSeconds int `toml:"handshake_timeout_seconds"`

	// Size of the PBKDF2 worker pool
	DerivationWorkers int `toml:"derivation_workers"`

	// Key for decoy salts served to unknown users, base64. Random per process when empty.
	DecoyKey string `toml:"decoy_key"`
}

type StoreConfig struct {
	// "memory" or "bolt"
	Type string `toml:"type"`
	Path string `toml:"path"`
}

type LimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	AttemptsPerMinute float64 `toml:"attempts_per_minute"`
	Burst             int     `toml:"burst"`
	MaxTrackedPeers   int     `toml:"max_tracked_peers"`
}

type SessionConfig struct {
	IdleTimeoutMinutes int    `toml:"idle_timeout_minutes"`
	TicketTTLMinutes   int    `toml:"ticket_ttl_minutes"`
	TicketSecret       string `toml:"ticket_secret"`
}

func defaults() *Config {
	return &Config{
		Quiet:   false,
		Logging: *DefaultLogConfig(),
		Scram: ScramConfig{
			Iterations:              core.DefaultIterations,
			SaltLength:              core.DefaultSaltLen,
			NonceLength:             core.DefaultServerNonceLen,
			MinIterations:           core.MinIterations,
			HandshakeTimeoutSeconds: int(core.DefaultHandshakeTimeout.Seconds()),
			DerivationWorkers:       4,
		},
		Store: StoreConfig{
			Type: "memory",
			Path: "scramwisp.db",
		},
		Limits: LimitConfig{
			Enabled:           true,
			AttemptsPerMinute: 10,
			Burst:             3,
			MaxTrackedPeers:   core.MaxTrackedPeers,
		},
		Session: SessionConfig{
			IdleTimeoutMinutes: 30,
			TicketTTLMinutes:   int(core.DefaultTicketTTL.Minutes()),
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaults()
}
