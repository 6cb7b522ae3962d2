// FILE: src/internal/scram/credential.go
package scram

import (
	"fmt"
)

// Credential stores the server-side SCRAM verifier for one user. It never
// holds the password.
type Credential struct {
	Username   string
	Salt       []byte
	Iterations int
	StoredKey  []byte // H(ClientKey)
	ServerKey  []byte
}

// CredentialStore is the external credential collaborator. Lookup returns an
// error wrapping ErrUnknownUser when no record exists.
type CredentialStore interface {
	Lookup(username string) (*Credential, error)
	Save(cred *Credential) error
}

// DeriveCredential runs the key chain for password and keeps only StoredKey
// and ServerKey.
func DeriveCredential(username, password string, salt []byte, iterations int) (*Credential, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: empty username", ErrUnsafeParameter)
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("%w: empty salt", ErrUnsafeParameter)
	}
	if iterations <= 0 {
		return nil, fmt.Errorf("%w: iteration count must be positive: %d", ErrUnsafeParameter, iterations)
	}

	saltedPassword := SaltedPassword(password, salt, iterations)

	return &Credential{
		Username:   username,
		Salt:       append([]byte(nil), salt...),
		Iterations: iterations,
		StoredKey:  StoredKey(ClientKey(saltedPassword)),
		ServerKey:  ServerKey(saltedPassword),
	}, nil
}

// Clone returns a deep copy so callers never share key slices.
func (c *Credential) Clone() *Credential {
	if c == nil {
		return nil
	}
	return &Credential{
		Username:   c.Username,
		Salt:       append([]byte(nil), c.Salt...),
		Iterations: c.Iterations,
		StoredKey:  append([]byte(nil), c.StoredKey...),
		ServerKey:  append([]byte(nil), c.ServerKey...),
	}
}

// Validate checks that a record loaded from outside is usable.
func (c *Credential) Validate() error {
	switch {
	case c.Username == "":
		return fmt.Errorf("credential: empty username")
	case len(c.Salt) == 0:
		return fmt.Errorf("credential %q: empty salt", c.Username)
	case c.Iterations <= 0:
		return fmt.Errorf("credential %q: invalid iteration count %d", c.Username, c.Iterations)
	case len(c.StoredKey) != KeyLen:
		return fmt.Errorf("credential %q: stored key must be %d bytes", c.Username, KeyLen)
	case len(c.ServerKey) != KeyLen:
		return fmt.Errorf("credential %q: server key must be %d bytes", c.Username, KeyLen)
	}
	return nil
}
