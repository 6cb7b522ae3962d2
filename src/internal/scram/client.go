// FILE: src/internal/scram/client.go
package scram

import (
	"crypto/hmac"
	"fmt"
	"strings"
)

// Nonce lengths used when a config leaves them unset.
const (
	DefaultClientNonceLength = 24
	DefaultServerNonceLength = 18
)

// ClientState is the observable phase of a ClientSession.
type ClientState int

const (
	ClientStart ClientState = iota
	ClientAwaitingServerFirst
	ClientAwaitingServerFinal
	ClientAuthenticated
	ClientFailed
)

func (s ClientState) String() string {
	switch s {
	case ClientStart:
		return "start"
	case ClientAwaitingServerFirst:
		return "awaiting-server-first"
	case ClientAwaitingServerFinal:
		return "awaiting-server-final"
	case ClientAuthenticated:
		return "authenticated"
	case ClientFailed:
		return "failed"
	default:
		return fmt.Sprintf("ClientState(%d)", int(s))
	}
}

// ClientConfig configures a ClientSession. Zero values select defaults.
type ClientConfig struct {
	Nonces        NonceSource // crypto/rand generator when nil
	NonceLength   int
	MinIterations int // server-first iteration counts below this are refused
}

// Each client state carries exactly the data valid in that state.
type clientState interface{ phase() ClientState }

type clientStart struct{}

type clientAwaitingFirst struct {
	first ClientFirstMessage
}

type clientAwaitingFinal struct {
	auth      AuthMessage
	serverKey []byte
}

type clientAuthenticated struct{}

type clientFailed struct {
	err error
}

func (clientStart) phase() ClientState         { return ClientStart }
func (clientAwaitingFirst) phase() ClientState { return ClientAwaitingServerFirst }
func (clientAwaitingFinal) phase() ClientState { return ClientAwaitingServerFinal }
func (clientAuthenticated) phase() ClientState { return ClientAuthenticated }
func (clientFailed) phase() ClientState        { return ClientFailed }

// ClientSession drives the client side of one handshake. It is owned by a
// single goroutine and must not be reused after it completes or fails.
type ClientSession struct {
	nonces        NonceSource
	nonceLength   int
	minIterations int
	state         clientState
}

// NewClientSession creates a session in the Start state.
func NewClientSession(cfg ClientConfig) *ClientSession {
	c := &ClientSession{
		nonces:        cfg.Nonces,
		nonceLength:   cfg.NonceLength,
		minIterations: cfg.MinIterations,
		state:         clientStart{},
	}
	if c.nonces == nil {
		c.nonces = NewNonceGenerator()
	}
	if c.nonceLength <= 0 {
		c.nonceLength = DefaultClientNonceLength
	}
	if c.minIterations <= 0 {
		c.minIterations = 1
	}
	return c
}

// State returns the current phase.
func (c *ClientSession) State() ClientState {
	return c.state.phase()
}

// Err returns the failure that moved the session to ClientFailed.
func (c *ClientSession) Err() error {
	if f, ok := c.state.(clientFailed); ok {
		return f.err
	}
	return nil
}

// Begin generates the client nonce and returns the client-first-message.
func (c *ClientSession) Begin(username string) (ClientFirstMessage, error) {
	if _, ok := c.state.(clientStart); !ok {
		return ClientFirstMessage{}, c.invalidState("begin")
	}
	if username == "" {
		return ClientFirstMessage{}, c.fail(fmt.Errorf("%w: empty username", ErrUnsafeParameter))
	}

	nonce, err := c.nonces.Generate(c.nonceLength)
	if err != nil {
		return ClientFirstMessage{}, c.fail(fmt.Errorf("failed to generate client nonce: %w", err))
	}

	first := NewClientFirstMessage(username, nonce)
	c.state = clientAwaitingFirst{first: first}
	return first, nil
}

// ProcessServerFirst checks the server nonce, runs the key chain for
// password and returns the client-final-message carrying the proof.
func (c *ClientSession) ProcessServerFirst(raw, password string) (ClientFinalMessage, error) {
	st, ok := c.state.(clientAwaitingFirst)
	if !ok {
		return ClientFinalMessage{}, c.invalidState("process server-first")
	}

	serverFirst, err := ParseServerFirstMessage(raw)
	if err != nil {
		return ClientFinalMessage{}, c.fail(err)
	}

	// Checked before any password-derived work
	clientNonce := st.first.Nonce()
	combined := serverFirst.Nonce()
	if !strings.HasPrefix(combined, clientNonce) || len(combined) == len(clientNonce) {
		return ClientFinalMessage{}, c.fail(ErrNonceMismatch)
	}
	if serverFirst.Iterations() < c.minIterations {
		return ClientFinalMessage{}, c.fail(fmt.Errorf("%w: iteration count %d below minimum %d",
			ErrUnsafeParameter, serverFirst.Iterations(), c.minIterations))
	}

	saltedPassword := SaltedPassword(password, serverFirst.Salt(), serverFirst.Iterations())
	clientKey := ClientKey(saltedPassword)
	auth := NewAuthMessage(st.first, serverFirst)

	proof, err := ClientProof(clientKey, ClientSignature(StoredKey(clientKey), auth))
	if err != nil {
		return ClientFinalMessage{}, c.fail(err)
	}

	c.state = clientAwaitingFinal{
		auth:      auth,
		serverKey: ServerKey(saltedPassword),
	}
	return NewClientFinalMessage(combined, proof), nil
}

// ProcessServerFinal authenticates the server. A mismatch means the server
// is not trusted and the connection should be dropped.
func (c *ClientSession) ProcessServerFinal(raw string) error {
	st, ok := c.state.(clientAwaitingFinal)
	if !ok {
		return c.invalidState("process server-final")
	}

	final, err := ParseServerFinalMessage(raw)
	if err != nil {
		return c.fail(err)
	}
	if e, ok := final.Err(); ok {
		return c.fail(fmt.Errorf("%w: %w", ErrServerRejected, e))
	}

	received, _ := final.Signature()
	if !hmac.Equal(ServerSignature(st.serverKey, st.auth), received) {
		return c.fail(ErrServerSignatureMismatch)
	}

	c.state = clientAuthenticated{}
	return nil
}

// ProcessServerFailure handles an e= server-final-message received in place
// of the next expected message. The session fails with ErrServerRejected.
func (c *ClientSession) ProcessServerFailure(raw string) error {
	switch c.state.(type) {
	case clientAwaitingFirst, clientAwaitingFinal:
	default:
		return c.invalidState("process server failure")
	}

	final, err := ParseServerFinalMessage(raw)
	if err != nil {
		return c.fail(fmt.Errorf("%w: %w", ErrServerRejected, err))
	}
	if e, ok := final.Err(); ok {
		return c.fail(fmt.Errorf("%w: %w", ErrServerRejected, e))
	}
	return c.fail(fmt.Errorf("%w: unexpected verifier in failure message", ErrServerRejected))
}

// Abort fails the session with err, for failures outside the message
// exchange such as a broken transport. Terminal sessions are left as is.
func (c *ClientSession) Abort(err error) error {
	switch c.state.(type) {
	case clientAuthenticated, clientFailed:
		return err
	}
	return c.fail(err)
}

func (c *ClientSession) fail(err error) error {
	c.state = clientFailed{err: err}
	return err
}

func (c *ClientSession) invalidState(op string) error {
	return fmt.Errorf("%w: cannot %s in state %s", ErrInvalidState, op, c.State())
}
