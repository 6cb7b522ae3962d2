// FILE: src/internal/scram/helpers_test.go
package scram

import (
	"fmt"
	"sync"
)

// RFC 5802 section 5 example exchange.
const (
	rfcUser        = "user"
	rfcPassword    = "pencil"
	rfcClientNonce = "fyko+d2lbbFgONRv9qkxdawL"
	rfcServerNonce = "3rfcNHYJY1ZVvWVs7j"
	rfcSalt        = "QSXCR+Q6sek8bf92"
	rfcIterations  = 4096

	rfcClientFirst = "n,,n=user,r=fyko+d2lbbFgONRv9qkxdawL"
	rfcServerFirst = "r=fyko+d2lbbFgONRv9qkxdawL3rfcNHYJY1ZVvWVs7j,s=QSXCR+Q6sek8bf92,i=4096"
	rfcClientFinal = "c=biws,r=fyko+d2lbbFgONRv9qkxdawL3rfcNHYJY1ZVvWVs7j,p=v0X8v3Bz2T0CJGbJQyF0X+HI4Ts="
	rfcServerFinal = "v=rmF9pqV8S7suAoZWja4dJRkFsKQ="
	rfcAuthMessage = "n=user,r=fyko+d2lbbFgONRv9qkxdawL," +
		"r=fyko+d2lbbFgONRv9qkxdawL3rfcNHYJY1ZVvWVs7j,s=QSXCR+Q6sek8bf92,i=4096," +
		"c=biws,r=fyko+d2lbbFgONRv9qkxdawL3rfcNHYJY1ZVvWVs7j"
)

type fixedNonce string

func (f fixedNonce) Generate(int) (string, error) {
	return string(f), nil
}

type failingNonce struct{}

func (failingNonce) Generate(int) (string, error) {
	return "", fmt.Errorf("entropy exhausted")
}

// mapStore is a minimal CredentialStore for engine tests.
type mapStore struct {
	mu    sync.Mutex
	creds map[string]*Credential
}

func newMapStore() *mapStore {
	return &mapStore{creds: make(map[string]*Credential)}
}

func (m *mapStore) Lookup(username string) (*Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cred, ok := m.creds[username]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUser, username)
	}
	return cred.Clone(), nil
}

func (m *mapStore) Save(cred *Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds[cred.Username] = cred.Clone()
	return nil
}

type brokenStore struct{}

func (brokenStore) Lookup(string) (*Credential, error) { return nil, fmt.Errorf("disk on fire") }
func (brokenStore) Save(*Credential) error             { return fmt.Errorf("disk on fire") }

func mustDecode(s string) []byte {
	b, err := b64.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}
