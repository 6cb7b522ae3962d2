// FILE: src/internal/auth/serve.go
package auth

import (
	"context"
	"errors"
	"fmt"

	"scramwisp/src/internal/scram"
	"scramwisp/src/internal/session"
	"scramwisp/src/internal/transport"
)

// Serve runs the server side of one handshake over t. On success the client
// receives the server-final-message followed by a signed session ticket.
func (m *Manager) Serve(ctx context.Context, t transport.Transport, peer string) (*session.Session, error) {
	f, err := t.Receive(ctx)
	if err != nil {
		return nil, err
	}
	if f.Command != transport.CmdFirst {
		m.sendFailure(ctx, t, scram.ServerErrOtherError)
		return nil, fmt.Errorf("%w: expected %s, got %s", transport.ErrUnexpected, transport.CmdFirst, f.Command)
	}

	id, serverFirst, err := m.BeginHandshake(peer, f.Payload)
	if err != nil {
		e := scram.ServerErrorFor(err)
		if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrClosed) {
			e = scram.ServerErrOtherError
		}
		m.sendFailure(ctx, t, e)
		return nil, err
	}
	if err := t.Send(ctx, transport.Frame{Command: transport.CmdChallenge, Payload: serverFirst.String()}); err != nil {
		m.take(id)
		return nil, err
	}

	f, err = t.Receive(ctx)
	if err != nil {
		m.take(id)
		return nil, err
	}
	if f.Command != transport.CmdProof {
		m.take(id)
		m.sendFailure(ctx, t, scram.ServerErrOtherError)
		return nil, fmt.Errorf("%w: expected %s, got %s", transport.ErrUnexpected, transport.CmdProof, f.Command)
	}

	s, serverFinal, err := m.FinishHandshake(id, f.Payload)
	if err != nil {
		if sendErr := t.Send(ctx, transport.Frame{Command: transport.CmdFail, Payload: serverFinal.String()}); sendErr != nil {
			m.logger.Debug("msg", "Failed to send failure frame",
				"component", "auth",
				"peer", peer,
				"error", sendErr)
		}
		return nil, err
	}

	ticket, err := m.IssueTicket(s)
	if err != nil {
		m.sessions.RemoveSession(s.ID)
		return nil, err
	}

	if err := t.Send(ctx, transport.Frame{Command: transport.CmdOK, Payload: serverFinal.String()}); err != nil {
		m.sessions.RemoveSession(s.ID)
		return nil, err
	}
	if err := t.Send(ctx, transport.Frame{Command: transport.CmdSession, Payload: ticket}); err != nil {
		m.sessions.RemoveSession(s.ID)
		return nil, err
	}

	return s, nil
}

func (m *Manager) sendFailure(ctx context.Context, t transport.Transport, e scram.ServerError) {
	f := transport.Frame{Command: transport.CmdFail, Payload: scram.NewServerErrorMessage(e).String()}
	if err := t.Send(ctx, f); err != nil {
		m.logger.Debug("msg", "Failed to send failure frame",
			"component", "auth",
			"error", err)
	}
}
