// FILE: src/internal/transport/client.go
package transport

import (
	"context"
	"fmt"

	"scramwisp/src/internal/scram"
)

// Result is the outcome of a successful client handshake.
type Result struct {
	Username string
	Ticket   string // signed session ticket issued by the server
}

// Authenticate drives c through a full handshake over t. The server is
// authenticated before the ticket is accepted. Any failure before that
// leaves c in ClientFailed.
func Authenticate(ctx context.Context, t Transport, c *scram.ClientSession, username, password string) (*Result, error) {
	first, err := c.Begin(username)
	if err != nil {
		return nil, err
	}
	if err := t.Send(ctx, Frame{Command: CmdFirst, Payload: first.String()}); err != nil {
		return nil, c.Abort(err)
	}

	f, err := t.Receive(ctx)
	if err != nil {
		return nil, c.Abort(err)
	}
	if f.Command == CmdFail {
		return nil, c.ProcessServerFailure(f.Payload)
	}
	if err := expect(f, CmdChallenge); err != nil {
		return nil, c.Abort(err)
	}

	final, err := c.ProcessServerFirst(f.Payload, password)
	if err != nil {
		return nil, err
	}
	if err := t.Send(ctx, Frame{Command: CmdProof, Payload: final.String()}); err != nil {
		return nil, c.Abort(err)
	}

	f, err = t.Receive(ctx)
	if err != nil {
		return nil, c.Abort(err)
	}
	if err := expect(f, CmdOK, CmdFail); err != nil {
		return nil, c.Abort(err)
	}
	// Both OK (v=) and FAIL (e=) carry a server-final-message
	if err := c.ProcessServerFinal(f.Payload); err != nil {
		return nil, err
	}

	f, err = t.Receive(ctx)
	if err != nil {
		return nil, fmt.Errorf("server authenticated but session ticket not received: %w", err)
	}
	if err := expect(f, CmdSession); err != nil {
		return nil, err
	}

	return &Result{Username: username, Ticket: f.Payload}, nil
}
