// FILE: src/internal/session/ticket.go
package session

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const ticketIssuer = "scramwisp"

var ErrInvalidTicket = errors.New("session: invalid ticket")

// TicketClaims are carried in a signed session ticket.
type TicketClaims struct {
	Method string `json:"mth"`
	jwt.RegisteredClaims
}

// Tickets issues and verifies HS256 session tickets.
type Tickets struct {
	key    []byte
	ttl    time.Duration
	parser *jwt.Parser
}

// NewTickets creates a ticket issuer. A random key is generated when secret
// is empty, so tickets only verify within this process.
func NewTickets(secret string, ttl time.Duration) (*Tickets, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate ticket key: %w", err)
		}
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("ticket ttl must be positive: %v", ttl)
	}

	return &Tickets{
		key: key,
		ttl: ttl,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(ticketIssuer),
			jwt.WithLeeway(5*time.Second),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

// Issue signs a ticket for s.
func (t *Tickets) Issue(s Session) (string, error) {
	now := time.Now()
	claims := TicketClaims{
		Method: s.Method,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			Subject:   s.Username,
			Issuer:    ticketIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign ticket: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of a ticket and returns its claims.
func (t *Tickets) Verify(ticket string) (*TicketClaims, error) {
	claims := &TicketClaims{}
	token, err := t.parser.ParseWithClaims(ticket, claims, func(*jwt.Token) (any, error) {
		return t.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTicket, err)
	}
	if !token.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidTicket
	}
	return claims, nil
}
