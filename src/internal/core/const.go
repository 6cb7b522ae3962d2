// FILE: src/internal/core/const.go
package core

import "time"

// SCRAM-SHA-1 registration parameters
const (
	DefaultIterations     = 4096
	MinIterations         = 4096
	DefaultSaltLen        = 16
	DefaultServerNonceLen = 18
)

// Handshake bookkeeping
const (
	DefaultHandshakeTimeout = 30 * time.Second
	ReaperInterval          = 5 * time.Second
	MaxTrackedPeers         = 10000
)

const DefaultTicketTTL = 15 * time.Minute
