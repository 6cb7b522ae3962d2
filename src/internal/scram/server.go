// FILE: src/internal/scram/server.go
package scram

import (
	"crypto/rand"
	"errors"
	"fmt"
)

const (
	decoySaltLen           = 16
	defaultDecoyIterations = 4096
)

// ServerState is the observable phase of a ServerSession.
type ServerState int

const (
	ServerStart ServerState = iota
	ServerRegistered
	ServerAwaitingClientFinal
	ServerCompleted
	ServerFailed
)

func (s ServerState) String() string {
	switch s {
	case ServerStart:
		return "start"
	case ServerRegistered:
		return "registered"
	case ServerAwaitingClientFinal:
		return "awaiting-client-final"
	case ServerCompleted:
		return "completed"
	case ServerFailed:
		return "failed"
	default:
		return fmt.Sprintf("ServerState(%d)", int(s))
	}
}

// ServerConfig configures a ServerSession. Store is required.
type ServerConfig struct {
	Store       CredentialStore
	Nonces      NonceSource // crypto/rand generator when nil
	NonceLength int

	// DecoyKey derives stable salts for unknown users so repeated probes see
	// the same challenge. Salts are random per session when empty.
	DecoyKey        []byte
	DecoyIterations int
}

type serverState interface{ phase() ServerState }

type serverStart struct{}

type serverRegistered struct {
	username string
}

// serverAwaitingFinal always holds key material.
type serverAwaitingFinal struct {
	clientFirst ClientFirstMessage
	serverFirst ServerFirstMessage
	cred        *Credential
}

// serverAwaitingDecoy answered an unknown user with a decoy challenge and
// has nothing to verify against.
type serverAwaitingDecoy struct {
	clientFirst ClientFirstMessage
	serverFirst ServerFirstMessage
}

type serverCompleted struct {
	username string
}

type serverFailed struct {
	err error
}

func (serverStart) phase() ServerState         { return ServerStart }
func (serverRegistered) phase() ServerState    { return ServerRegistered }
func (serverAwaitingFinal) phase() ServerState { return ServerAwaitingClientFinal }
func (serverAwaitingDecoy) phase() ServerState { return ServerAwaitingClientFinal }
func (serverCompleted) phase() ServerState     { return ServerCompleted }
func (serverFailed) phase() ServerState        { return ServerFailed }

// ServerSession drives the server side of one handshake. It is owned by a
// single goroutine and must not be reused after it completes or fails.
type ServerSession struct {
	store           CredentialStore
	nonces          NonceSource
	nonceLength     int
	decoyKey        []byte
	decoyIterations int
	state           serverState
}

// NewServerSession creates a session in the Start state.
func NewServerSession(cfg ServerConfig) (*ServerSession, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("server session requires a credential store")
	}

	s := &ServerSession{
		store:           cfg.Store,
		nonces:          cfg.Nonces,
		nonceLength:     cfg.NonceLength,
		decoyKey:        cfg.DecoyKey,
		decoyIterations: cfg.DecoyIterations,
		state:           serverStart{},
	}
	if s.nonces == nil {
		s.nonces = NewNonceGenerator()
	}
	if s.nonceLength <= 0 {
		s.nonceLength = DefaultServerNonceLength
	}
	if s.decoyIterations <= 0 {
		s.decoyIterations = defaultDecoyIterations
	}
	return s, nil
}

func (s *ServerSession) State() ServerState {
	return s.state.phase()
}

// Err returns the failure that moved the session to ServerFailed.
func (s *ServerSession) Err() error {
	if f, ok := s.state.(serverFailed); ok {
		return f.err
	}
	return nil
}

// Username returns the user named by the client, once known.
func (s *ServerSession) Username() string {
	switch st := s.state.(type) {
	case serverRegistered:
		return st.username
	case serverAwaitingFinal:
		return st.clientFirst.Username()
	case serverAwaitingDecoy:
		return st.clientFirst.Username()
	case serverCompleted:
		return st.username
	}
	return ""
}

// Register derives StoredKey and ServerKey for password and saves them in
// the credential store. The password is not retained.
func (s *ServerSession) Register(username, password string, salt []byte, iterations int) error {
	switch s.state.(type) {
	case serverStart, serverRegistered:
	default:
		return s.invalidState("register")
	}

	cred, err := DeriveCredential(username, password, salt, iterations)
	if err != nil {
		return s.fail(err)
	}
	if err := s.store.Save(cred); err != nil {
		return s.fail(fmt.Errorf("failed to save credential: %w", err))
	}

	s.state = serverRegistered{username: username}
	return nil
}

// ProcessClientFirst issues the combined nonce and the user's salt and
// iteration count.
func (s *ServerSession) ProcessClientFirst(raw string) (ServerFirstMessage, error) {
	switch s.state.(type) {
	case serverStart, serverRegistered:
	default:
		return ServerFirstMessage{}, s.invalidState("process client-first")
	}

	clientFirst, err := ParseClientFirstMessage(raw)
	if err != nil {
		return ServerFirstMessage{}, s.fail(err)
	}

	serverNonce, err := s.nonces.Generate(s.nonceLength)
	if err != nil {
		return ServerFirstMessage{}, s.fail(fmt.Errorf("failed to generate server nonce: %w", err))
	}
	combined := clientFirst.Nonce() + serverNonce

	cred, err := s.store.Lookup(clientFirst.Username())
	switch {
	case err == nil:
		serverFirst := NewServerFirstMessage(combined, cred.Salt, cred.Iterations)
		s.state = serverAwaitingFinal{
			clientFirst: clientFirst,
			serverFirst: serverFirst,
			cred:        cred,
		}
		return serverFirst, nil

	case errors.Is(err, ErrUnknownUser):
		salt, err := s.decoySalt(clientFirst.Username())
		if err != nil {
			return ServerFirstMessage{}, s.fail(err)
		}
		serverFirst := NewServerFirstMessage(combined, salt, s.decoyIterations)
		s.state = serverAwaitingDecoy{
			clientFirst: clientFirst,
			serverFirst: serverFirst,
		}
		return serverFirst, nil

	default:
		return ServerFirstMessage{}, s.fail(fmt.Errorf("credential lookup failed: %w", err))
	}
}

// ProcessClientFinal verifies the nonce and proof and returns the
// server-final-message carrying the ServerSignature.
func (s *ServerSession) ProcessClientFinal(raw string) (ServerFinalMessage, error) {
	var st serverAwaitingFinal
	switch cur := s.state.(type) {
	case serverAwaitingFinal:
		st = cur
	case serverStart, serverRegistered, serverAwaitingDecoy:
		return ServerFinalMessage{}, s.fail(ErrServerKeyMissing)
	default:
		return ServerFinalMessage{}, s.invalidState("process client-final")
	}

	clientFinal, err := ParseClientFinalMessage(raw)
	if err != nil {
		return ServerFinalMessage{}, s.fail(err)
	}
	if clientFinal.Nonce() != st.serverFirst.Nonce() {
		return ServerFinalMessage{}, s.fail(ErrClientNonceMismatch)
	}
	if clientFinal.ChannelBinding() != ChannelBindingNone {
		return ServerFinalMessage{}, s.fail(fmt.Errorf("%w: unexpected c=%q", ErrChannelBinding, clientFinal.ChannelBinding()))
	}

	auth := NewAuthMessage(st.clientFirst, st.serverFirst)
	if clientFinal.WithoutProof() != auth.ClientFinalWithoutProof() {
		return ServerFinalMessage{}, s.fail(fmt.Errorf("%w: %w", ErrDecoding, ServerErrExtensionsNotSupported))
	}

	if err := VerifyClientProof(st.cred.StoredKey, auth, clientFinal.Proof()); err != nil {
		return ServerFinalMessage{}, s.fail(err)
	}

	signature := ServerSignature(st.cred.ServerKey, auth)
	s.state = serverCompleted{username: st.clientFirst.Username()}
	return NewServerFinalMessage(signature), nil
}

// FailureMessage renders err as the e= server-final-message sent to the client.
func FailureMessage(err error) ServerFinalMessage {
	return NewServerErrorMessage(ServerErrorFor(err))
}

func (s *ServerSession) decoySalt(username string) ([]byte, error) {
	if len(s.decoyKey) > 0 {
		return HMAC(s.decoyKey, username)[:decoySaltLen], nil
	}
	salt := make([]byte, decoySaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate decoy salt: %w", err)
	}
	return salt, nil
}

func (s *ServerSession) fail(err error) error {
	s.state = serverFailed{err: err}
	return err
}

func (s *ServerSession) invalidState(op string) error {
	return fmt.Errorf("%w: cannot %s in state %s", ErrInvalidState, op, s.State())
}
