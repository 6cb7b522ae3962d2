// FILE: src/internal/session/session_test.go
package session

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_Lifecycle(t *testing.T) {
	m := NewManager(time.Minute)
	defer m.Stop()

	s := m.CreateSession("alice", MethodSCRAMSHA1, "pipe-1", nil)
	_, err := uuid.Parse(s.ID)
	require.NoError(t, err)
	assert.NotNil(t, s.Metadata)

	got, ok := m.GetSession(s.ID)
	require.True(t, ok)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, MethodSCRAMSHA1, got.Method)
	assert.True(t, m.IsSessionActive(s.ID))
	assert.True(t, m.UpdateActivity(s.ID))

	m.CreateSession("alice", MethodSCRAMSHA1, "pipe-2", nil)
	m.CreateSession("bob", MethodSCRAMSHA1, "pipe-3", nil)
	assert.Equal(t, 3, m.GetSessionCount())
	assert.Len(t, m.GetSessionsByUser("alice"), 2)

	stats := m.GetStats()
	assert.Equal(t, 3, stats["total_sessions"])
	assert.Equal(t, map[string]int{"alice": 2, "bob": 1}, stats["sessions_by_user"])

	m.RemoveSession(s.ID)
	_, ok = m.GetSession(s.ID)
	assert.False(t, ok)
	assert.False(t, m.IsSessionActive(s.ID))
	assert.False(t, m.UpdateActivity(s.ID))

	m.Stop()
	m.Stop()
}

func TestManager_IdleExpiry(t *testing.T) {
	m := NewManager(40 * time.Millisecond)
	defer m.Stop()

	expired := make(chan Session, 1)
	m.RegisterExpiryCallback(MethodSCRAMSHA1, func(s Session) { expired <- s })

	s := m.CreateSession("alice", MethodSCRAMSHA1, "pipe", nil)

	select {
	case got := <-expired:
		assert.Equal(t, s.ID, got.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("session was not expired")
	}
	assert.Equal(t, 0, m.GetSessionCount())
}

func TestTickets(t *testing.T) {
	tickets, err := NewTickets("test-secret", time.Minute)
	require.NoError(t, err)

	s := Session{ID: uuid.NewString(), Username: "alice", Method: MethodSCRAMSHA1}
	signed, err := tickets.Issue(s)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(signed, "."))

	claims, err := tickets.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, s.ID, claims.ID)
	assert.Equal(t, MethodSCRAMSHA1, claims.Method)

	other, err := NewTickets("other-secret", time.Minute)
	require.NoError(t, err)
	_, err = other.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidTicket)

	_, err = tickets.Verify(signed[:len(signed)-2])
	assert.ErrorIs(t, err, ErrInvalidTicket)
}

func TestTickets_Expired(t *testing.T) {
	tickets, err := NewTickets("test-secret", time.Minute)
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	claims := TicketClaims{
		Method: MethodSCRAMSHA1,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "id",
			Subject:   "alice",
			Issuer:    ticketIssuer,
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = tickets.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidTicket)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestTickets_RandomKey(t *testing.T) {
	a, err := NewTickets("", time.Minute)
	require.NoError(t, err)
	b, err := NewTickets("", time.Minute)
	require.NoError(t, err)

	signed, err := a.Issue(Session{ID: "id", Username: "alice"})
	require.NoError(t, err)
	_, err = a.Verify(signed)
	assert.NoError(t, err)
	_, err = b.Verify(signed)
	assert.Error(t, err)

	_, err = NewTickets("x", 0)
	assert.Error(t, err)
}
