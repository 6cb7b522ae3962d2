// FILE: src/internal/scram/crypto.go
package scram

import (
	"crypto/hmac"
	"crypto/sha1"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// KeyLen is the length of every derived key and signature under SHA-1.
const KeyLen = sha1.Size

// Hash returns H(data).
func Hash(data []byte) []byte {
	sum := sha1.Sum(data)
	return sum[:]
}

// HMAC returns HMAC(key, message).
func HMAC(key []byte, message string) []byte {
	mac := hmac.New(sha1.New, key)
	mac.Write([]byte(message))
	return mac.Sum(nil)
}

// PBKDF2 stretches password into a KeyLen key. This is Hi() in RFC 5802.
func PBKDF2(password, salt []byte, rounds int) []byte {
	return pbkdf2.Key(password, salt, rounds, KeyLen, sha1.New)
}

// XOR returns a ^ b.
func XOR(a, b []byte) ([]byte, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(a), len(b))
	}
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out, nil
}
