// FILE: src/internal/credstore/memory.go
package credstore

import (
	"fmt"
	"sort"
	"sync"

	"scramwisp/src/internal/scram"
)

// MemoryStore keeps credentials in a map. Lookups return copies so callers
// never alias stored key material.
type MemoryStore struct {
	mu    sync.RWMutex
	creds map[string]*scram.Credential
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{creds: make(map[string]*scram.Credential)}
}

func (m *MemoryStore) Lookup(username string) (*scram.Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cred, exists := m.creds[username]
	if !exists {
		return nil, fmt.Errorf("credstore: %w: %q", scram.ErrUnknownUser, username)
	}
	return cred.Clone(), nil
}

func (m *MemoryStore) Save(cred *scram.Credential) error {
	if err := cred.Validate(); err != nil {
		return fmt.Errorf("credstore: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds[cred.Username] = cred.Clone()
	return nil
}

// Remove deletes a user, returning ErrUnknownUser if absent.
func (m *MemoryStore) Remove(username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.creds[username]; !exists {
		return fmt.Errorf("credstore: %w: %q", scram.ErrUnknownUser, username)
	}
	delete(m.creds, username)
	return nil
}

// Usernames returns all stored usernames in sorted order.
func (m *MemoryStore) Usernames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.creds))
	for name := range m.creds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *MemoryStore) Close() error {
	return nil
}
