// FILE: src/internal/auth/manager.go
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lixenwraith/log"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"

	"scramwisp/src/internal/config"
	"scramwisp/src/internal/core"
	"scramwisp/src/internal/scram"
	"scramwisp/src/internal/session"
)

var (
	ErrRateLimited       = errors.New("auth: too many handshake attempts")
	ErrHandshakeNotFound = errors.New("auth: unknown or expired handshake")
	ErrClosed            = errors.New("auth: manager closed")
)

// handshake is one in-flight ServerSession. It is owned by the table until
// removed, and by exactly one caller after.
type handshake struct {
	server   *scram.ServerSession
	peer     string
	started  time.Time
	deadline time.Time
}

// Manager runs SCRAM server handshakes against a credential store and
// turns successful ones into sessions.
type Manager struct {
	cfg     config.ScramConfig
	store   scram.CredentialStore
	logger  *log.Logger
	metrics *metrics

	pool     *ants.Pool
	limiter  *peerLimiter
	sessions *session.Manager
	tickets  *session.Tickets
	decoyKey []byte
	timeout  time.Duration

	mu         sync.Mutex
	handshakes map[string]*handshake

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type Option func(*Manager)

// WithRegisterer exposes metrics on reg instead of a private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(m *Manager) {
		m.metrics = newMetrics(reg)
	}
}

// NewManager creates a manager and starts its handshake reaper.
func NewManager(cfg *config.Config, store scram.CredentialStore, logger *log.Logger, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("auth: credential store is required")
	}

	decoyKey, err := decodeOrGenerateKey(cfg.Scram.DecoyKey)
	if err != nil {
		return nil, fmt.Errorf("auth: invalid decoy key: %w", err)
	}

	tickets, err := session.NewTickets(cfg.Session.TicketSecret,
		time.Duration(cfg.Session.TicketTTLMinutes)*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}

	pool, err := ants.NewPool(cfg.Scram.DerivationWorkers, ants.WithPreAlloc(false))
	if err != nil {
		return nil, fmt.Errorf("auth: failed to create derivation pool: %w", err)
	}

	m := &Manager{
		cfg:        cfg.Scram,
		store:      store,
		logger:     logger,
		pool:       pool,
		limiter:    newPeerLimiter(cfg.Limits, logger),
		sessions:   session.NewManager(time.Duration(cfg.Session.IdleTimeoutMinutes) * time.Minute),
		tickets:    tickets,
		decoyKey:   decoyKey,
		timeout:    time.Duration(cfg.Scram.HandshakeTimeoutSeconds) * time.Second,
		handshakes: make(map[string]*handshake),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.metrics == nil {
		m.metrics = newMetrics(prometheus.NewRegistry())
	}
	m.sessions.RegisterExpiryCallback(session.MethodSCRAMSHA1, m.onSessionExpired)

	m.wg.Add(1)
	go m.reapLoop(reaperInterval(m.timeout))

	logger.Info("msg", "SCRAM manager started",
		"component", "auth",
		"iterations", cfg.Scram.Iterations,
		"workers", cfg.Scram.DerivationWorkers,
		"handshake_timeout", m.timeout,
		"rate_limit", cfg.Limits.Enabled)

	return m, nil
}

func decodeOrGenerateKey(encoded string) ([]byte, error) {
	if encoded != "" {
		return base64.StdEncoding.DecodeString(encoded)
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

func reaperInterval(timeout time.Duration) time.Duration {
	interval := min(core.ReaperInterval, timeout/2)
	return max(interval, 10*time.Millisecond)
}

// RegisterUser derives and saves a credential with a fresh random salt. The
// PBKDF2 work runs on the derivation pool; the credential is saved only if
// ctx is still live once it finishes.
func (m *Manager) RegisterUser(ctx context.Context, username, password string) error {
	if err := ctx.Err(); err != nil {
		m.metrics.registrations.WithLabelValues("canceled").Inc()
		return err
	}

	salt := make([]byte, m.cfg.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("salt generation failed: %w", err)
	}

	type derived struct {
		cred *scram.Credential
		err  error
	}
	result := make(chan derived, 1)
	if err := m.pool.Submit(func() {
		cred, err := scram.DeriveCredential(username, password, salt, m.cfg.Iterations)
		result <- derived{cred, err}
	}); err != nil {
		m.metrics.registrations.WithLabelValues("error").Inc()
		if errors.Is(err, ants.ErrPoolClosed) {
			return ErrClosed
		}
		return fmt.Errorf("failed to schedule registration: %w", err)
	}

	var d derived
	select {
	case d = <-result:
	case <-ctx.Done():
	}
	if err := ctx.Err(); err != nil {
		m.metrics.registrations.WithLabelValues("canceled").Inc()
		return err
	}

	if d.err == nil {
		if err := m.store.Save(d.cred); err != nil {
			d.err = fmt.Errorf("failed to save credential: %w", err)
		}
	}
	if d.err != nil {
		m.metrics.registrations.WithLabelValues("error").Inc()
		m.logger.Warn("msg", "Registration failed",
			"component", "auth",
			"user", username,
			"error", d.err)
		return d.err
	}

	m.metrics.registrations.WithLabelValues("success").Inc()
	m.logger.Info("msg", "User registered",
		"component", "auth",
		"user", username,
		"iterations", m.cfg.Iterations)
	return nil
}

// BeginHandshake processes a client-first-message from peer and returns a
// handshake ID to pass to FinishHandshake with the client-final-message.
// Unknown users receive a decoy challenge; the failure surfaces only at
// FinishHandshake.
func (m *Manager) BeginHandshake(peer, clientFirst string) (string, scram.ServerFirstMessage, error) {
	select {
	case <-m.done:
		return "", scram.ServerFirstMessage{}, ErrClosed
	default:
	}

	if !m.limiter.allow(peer) {
		m.metrics.rateLimited.Inc()
		return "", scram.ServerFirstMessage{}, ErrRateLimited
	}

	s, err := scram.NewServerSession(scram.ServerConfig{
		Store:       m.store,
		NonceLength: m.cfg.NonceLength,
		DecoyKey:    m.decoyKey,
		// Decoys mimic the default registration cost
		DecoyIterations: m.cfg.Iterations,
	})
	if err != nil {
		return "", scram.ServerFirstMessage{}, err
	}

	serverFirst, err := s.ProcessClientFirst(clientFirst)
	if err != nil {
		m.metrics.handshakes.WithLabelValues(resultLabel(err)).Inc()
		m.logger.Debug("msg", "Client-first rejected",
			"component", "auth",
			"peer", peer,
			"error", err)
		return "", scram.ServerFirstMessage{}, err
	}

	now := time.Now()
	id := uuid.NewString()

	m.mu.Lock()
	m.handshakes[id] = &handshake{
		server:   s,
		peer:     peer,
		started:  now,
		deadline: now.Add(m.timeout),
	}
	m.mu.Unlock()
	m.metrics.inFlight.Inc()

	m.logger.Debug("msg", "Handshake started",
		"component", "auth",
		"handshake_id", id,
		"peer", peer,
		"user", s.Username())

	return id, serverFirst, nil
}

// FinishHandshake verifies the client proof for handshake id. On success it
// returns the new session and the server-final-message carrying the
// verifier. On failure the returned message is the e= reply for the client.
func (m *Manager) FinishHandshake(id, clientFinal string) (*session.Session, scram.ServerFinalMessage, error) {
	h, ok := m.take(id)
	if !ok {
		return nil, scram.FailureMessage(ErrHandshakeNotFound), ErrHandshakeNotFound
	}
	if time.Now().After(h.deadline) {
		m.metrics.expired.Inc()
		return nil, scram.FailureMessage(ErrHandshakeNotFound), ErrHandshakeNotFound
	}

	serverFinal, err := h.server.ProcessClientFinal(clientFinal)
	m.metrics.handshakeDuration.Observe(time.Since(h.started).Seconds())
	if err != nil {
		m.metrics.handshakes.WithLabelValues(resultLabel(err)).Inc()
		m.logger.Warn("msg", "Authentication failed",
			"component", "auth",
			"handshake_id", id,
			"peer", h.peer,
			"user", h.server.Username(),
			"error", err)
		return nil, scram.FailureMessage(err), err
	}

	m.limiter.recordSuccess(h.peer)
	m.metrics.handshakes.WithLabelValues("success").Inc()

	s := m.sessions.CreateSession(h.server.Username(), session.MethodSCRAMSHA1, h.peer, nil)
	m.logger.Info("msg", "Authentication succeeded",
		"component", "auth",
		"handshake_id", id,
		"peer", h.peer,
		"user", s.Username,
		"session_id", s.ID,
		"user_sessions", len(m.sessions.GetSessionsByUser(s.Username)))

	return s, serverFinal, nil
}

// IssueTicket signs a ticket for an existing session.
func (m *Manager) IssueTicket(s *session.Session) (string, error) {
	return m.tickets.Issue(*s)
}

// VerifyTicket checks a ticket and that its session is still active and
// belongs to the ticket's subject. A verified ticket refreshes the session.
func (m *Manager) VerifyTicket(ticket string) (*session.TicketClaims, error) {
	claims, err := m.tickets.Verify(ticket)
	if err != nil {
		return nil, err
	}

	s, ok := m.sessions.GetSession(claims.ID)
	if !ok || !m.sessions.IsSessionActive(claims.ID) {
		return nil, fmt.Errorf("%w: session %s not active", session.ErrInvalidTicket, claims.ID)
	}
	if s.Username != claims.Subject {
		return nil, fmt.Errorf("%w: session %s does not belong to %q", session.ErrInvalidTicket, claims.ID, claims.Subject)
	}

	m.sessions.UpdateActivity(claims.ID)
	return claims, nil
}

func (m *Manager) onSessionExpired(s session.Session) {
	m.metrics.sessionsExpired.Inc()
	m.logger.Info("msg", "Session expired",
		"component", "auth",
		"session_id", s.ID,
		"user", s.Username,
		"peer", s.Peer,
		"idle", time.Since(s.LastActivity).Round(time.Second))
}

func (m *Manager) Sessions() *session.Manager {
	return m.sessions
}

// PendingHandshakes returns the number of handshakes awaiting a client-final.
func (m *Manager) PendingHandshakes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handshakes)
}

// Close stops the reaper, the derivation pool and the session manager.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
		m.wg.Wait()
		m.pool.Release()
		m.sessions.UnregisterExpiryCallback(session.MethodSCRAMSHA1)
		stats := m.sessions.GetStats()
		m.sessions.Stop()

		m.mu.Lock()
		pending := len(m.handshakes)
		m.handshakes = make(map[string]*handshake)
		m.mu.Unlock()
		m.metrics.inFlight.Sub(float64(pending))

		m.logger.Info("msg", "SCRAM manager stopped",
			"component", "auth",
			"dropped_handshakes", pending,
			"active_sessions", stats["total_sessions"])
	})
}

// take removes a handshake from the table so only the caller touches it.
func (m *Manager) take(id string) (*handshake, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.handshakes[id]
	if ok {
		delete(m.handshakes, id)
		m.metrics.inFlight.Dec()
	}
	return h, ok
}

func (m *Manager) reapLoop(interval time.Duration) {
	defer m.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.reapExpired(time.Now())
		case <-m.done:
			return
		}
	}
}

func (m *Manager) reapExpired(now time.Time) {
	m.mu.Lock()
	var reaped int
	for id, h := range m.handshakes {
		if now.After(h.deadline) {
			delete(m.handshakes, id)
			reaped++
		}
	}
	m.mu.Unlock()

	if reaped > 0 {
		m.metrics.inFlight.Sub(float64(reaped))
		m.metrics.expired.Add(float64(reaped))
		m.logger.Debug("msg", "Reaped expired handshakes",
			"component", "auth",
			"count", reaped,
			"active_sessions", m.sessions.GetSessionCount())
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, scram.ErrDecoding), errors.Is(err, scram.ErrChannelBinding):
		return "malformed"
	case errors.Is(err, scram.ErrServerKeyMissing):
		return "unknown_user"
	case errors.Is(err, scram.ErrClientProofMismatch), errors.Is(err, scram.ErrClientNonceMismatch):
		return "invalid_proof"
	default:
		return "error"
	}
}
