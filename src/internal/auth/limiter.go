// FILE: src/internal/auth/limiter.go
package auth

import (
	"sync"
	"time"

	"github.com/lixenwraith/log"
	"golang.org/x/time/rate"

	"scramwisp/src/internal/config"
)

// Evict from a sample of this many entries when the table is full
const evictionSample = 20

type peerState struct {
	limiter      *rate.Limiter
	lastAttempt  time.Time
	failCount    int
	blockedUntil time.Time
}

// peerLimiter throttles handshake attempts per peer with progressive
// blocking after repeated limit violations.
type peerLimiter struct {
	limit    rate.Limit
	burst    int
	maxPeers int
	logger   *log.Logger

	mu    sync.Mutex
	peers map[string]*peerState
	now   func() time.Time
}

func newPeerLimiter(cfg config.LimitConfig, logger *log.Logger) *peerLimiter {
	if !cfg.Enabled {
		return nil
	}
	return &peerLimiter{
		limit:    rate.Limit(cfg.AttemptsPerMinute / 60),
		burst:    cfg.Burst,
		maxPeers: cfg.MaxTrackedPeers,
		logger:   logger,
		peers:    make(map[string]*peerState),
		now:      time.Now,
	}
}

// allow reports whether peer may start a handshake. A nil limiter allows all.
func (l *peerLimiter) allow(peer string) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	state, exists := l.peers[peer]
	if !exists {
		if len(l.peers) >= l.maxPeers {
			l.evictOldest(now)
		}
		state = &peerState{
			limiter:     rate.NewLimiter(l.limit, l.burst),
			lastAttempt: now,
		}
		l.peers[peer] = state
	}

	if now.Before(state.blockedUntil) {
		return false
	}

	if !state.limiter.AllowN(now, 1) {
		state.failCount++
		// 2^failCount minutes, capped at 64
		blockMinutes := 1 << min(state.failCount, 6)
		state.blockedUntil = now.Add(time.Duration(blockMinutes) * time.Minute)

		l.logger.Warn("msg", "Handshake rate exceeded, blocking peer",
			"component", "auth",
			"peer", peer,
			"fail_count", state.failCount,
			"block_duration", time.Duration(blockMinutes)*time.Minute)
		return false
	}

	state.lastAttempt = now
	return true
}

// recordSuccess clears the failure history of peer.
func (l *peerLimiter) recordSuccess(peer string) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if state, exists := l.peers[peer]; exists {
		state.failCount = 0
		state.blockedUntil = time.Time{}
	}
}

func (l *peerLimiter) tracked() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.peers)
}

func (l *peerLimiter) evictOldest(now time.Time) {
	var oldestPeer string
	oldestTime := now

	sampled := 0
	for peer, state := range l.peers {
		if state.lastAttempt.Before(oldestTime) || oldestPeer == "" {
			oldestPeer = peer
			oldestTime = state.lastAttempt
		}
		sampled++
		if sampled >= evictionSample {
			break
		}
	}

	if oldestPeer != "" {
		delete(l.peers, oldestPeer)
		l.logger.Debug("msg", "Evicted peer limiter state",
			"component", "auth",
			"peer", oldestPeer,
			"last_seen", oldestTime)
	}
}
