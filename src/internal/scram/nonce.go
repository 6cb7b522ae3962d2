// FILE: src/internal/scram/nonce.go
package scram

import (
	"crypto/rand"
	"fmt"
	"io"
)

// NonceSource produces nonce strings for a handshake.
type NonceSource interface {
	Generate(length int) (string, error)
}

// NonceGenerator draws nonces uniformly from a character set using a
// cryptographically secure source.
type NonceGenerator struct {
	charset string
	rand    io.Reader
}

// PrintableExcludingComma is the RFC 5802 nonce alphabet: %x21-2B / %x2D-7E.
var PrintableExcludingComma = printableExcludingComma()

func printableExcludingComma() string {
	b := make([]byte, 0, 0x7e-0x21)
	for c := byte(0x21); c <= 0x7e; c++ {
		if c != ',' {
			b = append(b, c)
		}
	}
	return string(b)
}

// NewNonceGenerator returns a generator over PrintableExcludingComma backed by crypto/rand.
func NewNonceGenerator() *NonceGenerator {
	return &NonceGenerator{
		charset: PrintableExcludingComma,
		rand:    rand.Reader,
	}
}

// NewNonceGeneratorWith returns a generator over a custom alphabet and entropy source.
func NewNonceGeneratorWith(charset string, r io.Reader) *NonceGenerator {
	return &NonceGenerator{charset: charset, rand: r}
}

// Generate returns a nonce of exactly length characters.
func (g *NonceGenerator) Generate(length int) (string, error) {
	n := len(g.charset)
	if n == 0 || n > 256 {
		return "", fmt.Errorf("nonce charset size %d out of range", n)
	}
	if length <= 0 {
		return "", fmt.Errorf("nonce length must be positive: %d", length)
	}

	// Bytes at or above limit are rejected so every character is equally likely
	limit := 256 - 256%n
	out := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(out) < length {
		if _, err := io.ReadFull(g.rand, buf); err != nil {
			return "", fmt.Errorf("failed to read nonce entropy: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, g.charset[int(b)%n])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}
