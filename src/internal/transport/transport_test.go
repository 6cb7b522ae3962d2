// FILE: src/internal/transport/transport_test.go
package transport

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scramwisp/src/internal/credstore"
	"scramwisp/src/internal/scram"
)

func TestFrame_FormatParse(t *testing.T) {
	f := Frame{Command: CmdFirst, Payload: "n,,n=user,r=fyko+d2lbbFgONRv9qkxdawL"}
	line, err := FormatFrame(f)
	require.NoError(t, err)
	assert.Equal(t, "SCRAM-FIRST n,,n=user,r=fyko+d2lbbFgONRv9qkxdawL\n", line)

	back, err := ParseFrame(line)
	require.NoError(t, err)
	assert.Equal(t, f, back)

	// Payload spaces survive
	back, err = ParseFrame("SCRAM-FIRST n,,n=jane doe,r=abc\r\n")
	require.NoError(t, err)
	assert.Equal(t, "n,,n=jane doe,r=abc", back.Payload)
}

func TestFrame_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		frame Frame
	}{
		{name: "EmptyCommand", frame: Frame{Payload: "x"}},
		{name: "SpaceInCommand", frame: Frame{Command: "A B"}},
		{name: "NewlineInPayload", frame: Frame{Command: CmdFirst, Payload: "n,,n=a\nb,r=x"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FormatFrame(tc.frame)
			assert.ErrorIs(t, err, ErrBadFrame)
		})
	}

	_, err := ParseFrame("\n")
	assert.ErrorIs(t, err, ErrBadFrame)
}

func TestPipe(t *testing.T) {
	ctx := context.Background()
	a, b := Pipe()

	require.NoError(t, a.Send(ctx, Frame{Command: CmdFirst, Payload: "one"}))
	f, err := b.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "one", f.Payload)

	require.NoError(t, b.Send(ctx, Frame{Command: CmdChallenge, Payload: "two"}))
	f, err = a.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, CmdChallenge, f.Command)

	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = a.Receive(cctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, b.Close())
	_, err = a.Receive(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, a.Send(ctx, Frame{Command: CmdFirst}), ErrClosed)
	assert.NoError(t, a.Close())
}

// duplex joins two io.Pipes into one io.ReadWriteCloser per side.
type duplex struct {
	io.Reader
	io.Writer
	closers []io.Closer
}

func (d *duplex) Close() error {
	for _, c := range d.closers {
		c.Close()
	}
	return nil
}

func linePair() (*LineTransport, *LineTransport) {
	ar, bw := io.Pipe()
	br, aw := io.Pipe()
	a := &duplex{Reader: ar, Writer: aw, closers: []io.Closer{ar, aw}}
	b := &duplex{Reader: br, Writer: bw, closers: []io.Closer{br, bw}}
	return NewLineTransport(a), NewLineTransport(b)
}

func TestLineTransport(t *testing.T) {
	ctx := context.Background()
	a, b := linePair()
	defer a.Close()

	go func() {
		_ = a.Send(ctx, Frame{Command: CmdOK, Payload: "v=rmF9pqV8S7suAoZWja4dJRkFsKQ="})
	}()

	f, err := b.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, Frame{Command: CmdOK, Payload: "v=rmF9pqV8S7suAoZWja4dJRkFsKQ="}, f)

	assert.ErrorIs(t, b.Send(ctx, Frame{Command: CmdFirst, Payload: "a\nb"}), ErrBadFrame)

	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = b.Receive(cctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, b.Close())
	_, err = b.Receive(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, b.Send(ctx, Frame{Command: CmdFirst}), ErrClosed)
}

// serveOnce is a minimal server loop for driving Authenticate.
func serveOnce(t *testing.T, tr Transport, store scram.CredentialStore, ticket string) error {
	ctx := context.Background()
	s, err := scram.NewServerSession(scram.ServerConfig{Store: store})
	require.NoError(t, err)

	f, err := tr.Receive(ctx)
	if err != nil {
		return err
	}
	first, err := s.ProcessClientFirst(f.Payload)
	if err != nil {
		return tr.Send(ctx, Frame{Command: CmdFail, Payload: scram.FailureMessage(err).String()})
	}
	if err := tr.Send(ctx, Frame{Command: CmdChallenge, Payload: first.String()}); err != nil {
		return err
	}

	f, err = tr.Receive(ctx)
	if err != nil {
		return err
	}
	final, err := s.ProcessClientFinal(f.Payload)
	if err != nil {
		return tr.Send(ctx, Frame{Command: CmdFail, Payload: scram.FailureMessage(err).String()})
	}
	if err := tr.Send(ctx, Frame{Command: CmdOK, Payload: final.String()}); err != nil {
		return err
	}
	return tr.Send(ctx, Frame{Command: CmdSession, Payload: ticket})
}

func TestAuthenticate(t *testing.T) {
	store := credstore.NewMemoryStore()
	cred, err := scram.DeriveCredential("alice", "correct horse", []byte("0123456789abcdef"), 4096)
	require.NoError(t, err)
	require.NoError(t, store.Save(cred))

	testCases := []struct {
		name        string
		username    string
		password    string
		expectedErr error
	}{
		{name: "Success", username: "alice", password: "correct horse"},
		{name: "WrongPassword", username: "alice", password: "battery staple", expectedErr: scram.ServerErrInvalidProof},
		{name: "UnknownUser", username: "mallory", password: "x", expectedErr: scram.ServerErrInvalidProof},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for _, mk := range []func() (Transport, Transport){
				Pipe,
				func() (Transport, Transport) { a, b := linePair(); return a, b },
			} {
				client, server := mk()
				done := make(chan error, 1)
				go func() { done <- serveOnce(t, server, store, "ticket-123") }()

				res, err := Authenticate(context.Background(), client, scram.NewClientSession(scram.ClientConfig{}), tc.username, tc.password)
				if tc.expectedErr == nil {
					require.NoError(t, err)
					assert.Equal(t, "ticket-123", res.Ticket)
					assert.Equal(t, tc.username, res.Username)
				} else {
					assert.ErrorIs(t, err, scram.ErrServerRejected)
					assert.ErrorIs(t, err, tc.expectedErr)
				}
				assert.NoError(t, <-done)
				client.Close()
				server.Close()
			}
		})
	}
}

func TestAuthenticate_EarlyFailure(t *testing.T) {
	client, server := Pipe()
	defer client.Close()

	go func() {
		ctx := context.Background()
		if _, err := server.Receive(ctx); err == nil {
			_ = server.Send(ctx, Frame{Command: CmdFail, Payload: "e=invalid-encoding"})
		}
	}()

	session := scram.NewClientSession(scram.ClientConfig{})
	_, err := Authenticate(context.Background(), client, session, "alice", "pw")
	assert.ErrorIs(t, err, scram.ErrServerRejected)
	assert.ErrorIs(t, err, scram.ServerErrInvalidEncoding)
	assert.Equal(t, scram.ClientFailed, session.State())
	assert.ErrorIs(t, session.Err(), scram.ErrServerRejected)
}

func TestAuthenticate_UnexpectedFrame(t *testing.T) {
	client, server := Pipe()
	defer client.Close()

	go func() {
		ctx := context.Background()
		if _, err := server.Receive(ctx); err == nil {
			_ = server.Send(ctx, Frame{Command: CmdSession, Payload: "early"})
		}
	}()

	session := scram.NewClientSession(scram.ClientConfig{})
	_, err := Authenticate(context.Background(), client, session, "alice", "pw")
	assert.ErrorIs(t, err, ErrUnexpected)
	assert.Equal(t, scram.ClientFailed, session.State())
}

func TestAuthenticate_TransportClosed(t *testing.T) {
	client, server := Pipe()
	go func() {
		if _, err := server.Receive(context.Background()); err == nil {
			server.Close()
		}
	}()

	session := scram.NewClientSession(scram.ClientConfig{})
	_, err := Authenticate(context.Background(), client, session, "alice", "pw")
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, scram.ClientFailed, session.State())
}
