// FILE: src/internal/session/session.go
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// MethodSCRAMSHA1 is recorded on sessions created by a SCRAM handshake.
const MethodSCRAMSHA1 = "scram-sha-1"

// Session is an authenticated peer.
type Session struct {
	ID           string
	Username     string
	Method       string
	Peer         string
	CreatedAt    time.Time
	LastActivity time.Time
	Metadata     map[string]any
}

// Manager handles the lifecycle of sessions.
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex

	maxIdleTime   time.Duration
	cleanupTicker *time.Ticker
	done          chan struct{}
	stopOnce      sync.Once

	// Expiry callbacks by authentication method
	expiryCallbacks map[string]func(s Session)
	callbacksMu     sync.RWMutex
}

// NewManager creates a session manager with the given idle timeout.
func NewManager(maxIdleTime time.Duration) *Manager {
	if maxIdleTime <= 0 {
		maxIdleTime = 30 * time.Minute
	}

	m := &Manager{
		sessions:        make(map[string]*Session),
		maxIdleTime:     maxIdleTime,
		done:            make(chan struct{}),
		expiryCallbacks: make(map[string]func(s Session)),
	}

	m.startCleanup(cleanupInterval(maxIdleTime))
	return m
}

func cleanupInterval(maxIdle time.Duration) time.Duration {
	interval := maxIdle / 4
	if interval > 5*time.Minute {
		interval = 5 * time.Minute
	}
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	return interval
}

// CreateSession stores a new session for an authenticated user.
func (m *Manager) CreateSession(username, method, peer string, metadata map[string]any) *Session {
	now := time.Now()
	s := &Session{
		ID:           uuid.NewString(),
		Username:     username,
		Method:       method,
		Peer:         peer,
		CreatedAt:    now,
		LastActivity: now,
		Metadata:     metadata,
	}
	if s.Metadata == nil {
		s.Metadata = make(map[string]any)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return s
}

// GetSession returns a copy of the session with the given ID.
func (m *Manager) GetSession(sessionID string) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, exists := m.sessions[sessionID]
	if !exists {
		return Session{}, false
	}
	return *s, true
}

func (m *Manager) RemoveSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

// UpdateActivity refreshes the idle timer and reports whether the session exists.
func (m *Manager) UpdateActivity(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, exists := m.sessions[sessionID]; exists {
		s.LastActivity = time.Now()
		return true
	}
	return false
}

// IsSessionActive checks if a session exists and has not been idle for too long.
func (m *Manager) IsSessionActive(sessionID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if s, exists := m.sessions[sessionID]; exists {
		return time.Since(s.LastActivity) < m.maxIdleTime
	}
	return false
}

func (m *Manager) GetSessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// GetSessionsByUser returns copies of every session held by username.
func (m *Manager) GetSessionsByUser(username string) []Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sessions []Session
	for _, s := range m.sessions {
		if s.Username == username {
			sessions = append(sessions, *s)
		}
	}
	return sessions
}

func (m *Manager) GetStats() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make(map[string]int)
	var oldest time.Time
	for _, s := range m.sessions {
		users[s.Username]++
		if oldest.IsZero() || s.CreatedAt.Before(oldest) {
			oldest = s.CreatedAt
		}
	}

	stats := map[string]any{
		"total_sessions":   len(m.sessions),
		"sessions_by_user": users,
		"max_idle_time":    m.maxIdleTime.String(),
	}
	if !oldest.IsZero() {
		stats["oldest_session_age"] = time.Since(oldest).String()
	}
	return stats
}

// Stop halts the cleanup goroutine. Safe to call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
		if m.cleanupTicker != nil {
			m.cleanupTicker.Stop()
		}
	})
}

// RegisterExpiryCallback runs callback for each expired session created with method.
func (m *Manager) RegisterExpiryCallback(method string, callback func(s Session)) {
	m.callbacksMu.Lock()
	defer m.callbacksMu.Unlock()
	m.expiryCallbacks[method] = callback
}

func (m *Manager) UnregisterExpiryCallback(method string) {
	m.callbacksMu.Lock()
	defer m.callbacksMu.Unlock()
	delete(m.expiryCallbacks, method)
}

func (m *Manager) startCleanup(interval time.Duration) {
	m.cleanupTicker = time.NewTicker(interval)

	go func() {
		for {
			select {
			case <-m.cleanupTicker.C:
				m.cleanupIdleSessions()
			case <-m.done:
				return
			}
		}
	}()
}

// cleanupIdleSessions removes sessions past the idle timeout and notifies
// callbacks outside the session lock.
func (m *Manager) cleanupIdleSessions() {
	now := time.Now()
	var expired []Session

	m.mu.Lock()
	for id, s := range m.sessions {
		if now.Sub(s.LastActivity) > m.maxIdleTime {
			expired = append(expired, *s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	if len(expired) == 0 {
		return
	}

	m.callbacksMu.RLock()
	defer m.callbacksMu.RUnlock()
	for _, s := range expired {
		if callback, exists := m.expiryCallbacks[s.Method]; exists {
			go callback(s)
		}
	}
}
