// FILE: src/internal/scram/protocol.go
package scram

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// The RFC 5802 section 3 equation chain. Every function is pure.

// SaltedPassword := Hi(Normalize(password), salt, i)
func SaltedPassword(password string, salt []byte, iterations int) []byte {
	return PBKDF2([]byte(norm.NFC.String(password)), salt, iterations)
}

// ClientKey := HMAC(SaltedPassword, "Client Key")
func ClientKey(saltedPassword []byte) []byte {
	return HMAC(saltedPassword, "Client Key")
}

// StoredKey := H(ClientKey)
func StoredKey(clientKey []byte) []byte {
	return Hash(clientKey)
}

// ServerKey := HMAC(SaltedPassword, "Server Key")
func ServerKey(saltedPassword []byte) []byte {
	return HMAC(saltedPassword, "Server Key")
}

// ClientSignature := HMAC(StoredKey, AuthMessage)
func ClientSignature(storedKey []byte, auth AuthMessage) []byte {
	return HMAC(storedKey, auth.String())
}

// ClientProof := ClientKey XOR ClientSignature
func ClientProof(clientKey, clientSignature []byte) ([]byte, error) {
	return XOR(clientKey, clientSignature)
}

// ServerSignature := HMAC(ServerKey, AuthMessage)
func ServerSignature(serverKey []byte, auth AuthMessage) []byte {
	return HMAC(serverKey, auth.String())
}

// VerifyClientProof recovers ClientKey from proof and checks that it hashes
// to storedKey.
func VerifyClientProof(storedKey []byte, auth AuthMessage, proof []byte) error {
	clientKey, err := XOR(ClientSignature(storedKey, auth), proof)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrClientProofMismatch, err)
	}
	if subtle.ConstantTimeCompare(StoredKey(clientKey), storedKey) != 1 {
		return ErrClientProofMismatch
	}
	return nil
}
