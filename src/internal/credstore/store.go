// FILE: src/internal/credstore/store.go
package credstore

import (
	"encoding/base64"
	"fmt"

	"github.com/lixenwraith/log"

	"scramwisp/src/internal/config"
	"scramwisp/src/internal/scram"
)

// Store is a scram.CredentialStore with management operations.
type Store interface {
	scram.CredentialStore
	Remove(username string) error
	Usernames() []string
	Close() error
}

// Open returns the store selected by cfg.
func Open(cfg config.StoreConfig) (Store, error) {
	switch cfg.Type {
	case "memory", "":
		return NewMemoryStore(), nil
	case "bolt":
		return OpenBolt(cfg.Path)
	default:
		return nil, fmt.Errorf("credstore: unknown store type: %s", cfg.Type)
	}
}

// FromUserConfig decodes a static credential entry.
func FromUserConfig(u config.UserConfig) (*scram.Credential, error) {
	salt, err := base64.StdEncoding.DecodeString(u.Salt)
	if err != nil {
		return nil, fmt.Errorf("user %q: invalid salt: %w", u.Username, err)
	}
	storedKey, err := base64.StdEncoding.DecodeString(u.StoredKey)
	if err != nil {
		return nil, fmt.Errorf("user %q: invalid stored key: %w", u.Username, err)
	}
	serverKey, err := base64.StdEncoding.DecodeString(u.ServerKey)
	if err != nil {
		return nil, fmt.Errorf("user %q: invalid server key: %w", u.Username, err)
	}

	cred := &scram.Credential{
		Username:   u.Username,
		Salt:       salt,
		Iterations: u.Iterations,
		StoredKey:  storedKey,
		ServerKey:  serverKey,
	}
	if err := cred.Validate(); err != nil {
		return nil, err
	}
	return cred, nil
}

// ToUserConfig is the inverse of FromUserConfig.
func ToUserConfig(cred *scram.Credential) config.UserConfig {
	return config.UserConfig{
		Username:   cred.Username,
		Salt:       base64.StdEncoding.EncodeToString(cred.Salt),
		Iterations: cred.Iterations,
		StoredKey:  base64.StdEncoding.EncodeToString(cred.StoredKey),
		ServerKey:  base64.StdEncoding.EncodeToString(cred.ServerKey),
	}
}

// Seed saves each configured user into store. Invalid entries are logged
// and skipped; the number loaded is returned.
func Seed(store scram.CredentialStore, users []config.UserConfig, logger *log.Logger) int {
	loaded := 0
	for _, u := range users {
		cred, err := FromUserConfig(u)
		if err != nil {
			logger.Warn("msg", "Skipping invalid configured user",
				"component", "credstore",
				"user", u.Username,
				"error", err)
			continue
		}
		if err := store.Save(cred); err != nil {
			logger.Error("msg", "Failed to save configured user",
				"component", "credstore",
				"user", u.Username,
				"error", err)
			continue
		}
		loaded++
	}

	logger.Debug("msg", "Configured users loaded",
		"component", "credstore",
		"loaded", loaded,
		"configured", len(users))
	return loaded
}
