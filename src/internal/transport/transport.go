// FILE: src/internal/transport/transport.go
package transport

import (
	"context"
)

// Transport moves frames between the two parties of a handshake. The
// scram engine never sees it.
type Transport interface {
	Send(ctx context.Context, f Frame) error
	Receive(ctx context.Context) (Frame, error)
	Close() error
}
