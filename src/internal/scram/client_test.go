// FILE: src/internal/scram/client_test.go
package scram

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRFCClient() *ClientSession {
	return NewClientSession(ClientConfig{Nonces: fixedNonce(rfcClientNonce)})
}

func TestClientSession_RFC5802(t *testing.T) {
	c := newRFCClient()
	assert.Equal(t, ClientStart, c.State())

	first, err := c.Begin(rfcUser)
	require.NoError(t, err)
	assert.Equal(t, rfcClientFirst, first.String())
	assert.Equal(t, ClientAwaitingServerFirst, c.State())

	final, err := c.ProcessServerFirst(rfcServerFirst, rfcPassword)
	require.NoError(t, err)
	assert.Equal(t, rfcClientFinal, final.String())
	assert.Equal(t, ClientAwaitingServerFinal, c.State())

	require.NoError(t, c.ProcessServerFinal(rfcServerFinal))
	assert.Equal(t, ClientAuthenticated, c.State())
	assert.NoError(t, c.Err())
}

func TestClientSession_NonceMismatch(t *testing.T) {
	testCases := []struct {
		name        string
		serverFirst string
	}{
		// A huge iteration count would stall the test if PBKDF2 ran before the check
		{name: "AlteredPrefix", serverFirst: "r=Xyko+d2lbbFgONRv9qkxdawL3rfcNHYJY1ZVvWVs7j,s=QSXCR+Q6sek8bf92,i=2147483647"},
		{name: "Truncated", serverFirst: "r=fyko+d2lbbFgONRv9qkxda,s=QSXCR+Q6sek8bf92,i=2147483647"},
		{name: "NoServerPart", serverFirst: "r=fyko+d2lbbFgONRv9qkxdawL,s=QSXCR+Q6sek8bf92,i=2147483647"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newRFCClient()
			_, err := c.Begin(rfcUser)
			require.NoError(t, err)

			_, err = c.ProcessServerFirst(tc.serverFirst, rfcPassword)
			assert.ErrorIs(t, err, ErrNonceMismatch)
			assert.Equal(t, ClientFailed, c.State())
			assert.ErrorIs(t, c.Err(), ErrNonceMismatch)
		})
	}
}

func TestClientSession_ServerSignatureMismatch(t *testing.T) {
	c := newRFCClient()
	_, err := c.Begin(rfcUser)
	require.NoError(t, err)
	_, err = c.ProcessServerFirst(rfcServerFirst, rfcPassword)
	require.NoError(t, err)

	sig := mustDecode("rmF9pqV8S7suAoZWja4dJRkFsKQ=")
	sig[0] ^= 0x80
	err = c.ProcessServerFinal(NewServerFinalMessage(sig).String())
	assert.ErrorIs(t, err, ErrServerSignatureMismatch)
	assert.Equal(t, ClientFailed, c.State())

	// Terminal: the session cannot be resumed
	assert.ErrorIs(t, c.ProcessServerFinal(rfcServerFinal), ErrInvalidState)
}

func TestClientSession_WrongPasswordFailsServerCheck(t *testing.T) {
	c := newRFCClient()
	_, err := c.Begin(rfcUser)
	require.NoError(t, err)
	_, err = c.ProcessServerFirst(rfcServerFirst, "pencil2")
	require.NoError(t, err)

	assert.ErrorIs(t, c.ProcessServerFinal(rfcServerFinal), ErrServerSignatureMismatch)
}

func TestClientSession_ServerRejected(t *testing.T) {
	c := newRFCClient()
	_, err := c.Begin(rfcUser)
	require.NoError(t, err)
	_, err = c.ProcessServerFirst(rfcServerFirst, rfcPassword)
	require.NoError(t, err)

	err = c.ProcessServerFinal("e=invalid-proof")
	assert.ErrorIs(t, err, ErrServerRejected)
	assert.ErrorIs(t, err, ServerErrInvalidProof)
	assert.Equal(t, ClientFailed, c.State())
}

func TestClientSession_ProcessServerFailure(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected error
	}{
		{name: "ServerError", raw: "e=unknown-failure", expected: ServerError("unknown-failure")},
		{name: "Malformed", raw: "garbage", expected: ErrDecoding},
		{name: "VerifierInsteadOfError", raw: rfcServerFinal, expected: ErrServerRejected},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newRFCClient()
			_, err := c.Begin(rfcUser)
			require.NoError(t, err)

			err = c.ProcessServerFailure(tc.raw)
			assert.ErrorIs(t, err, ErrServerRejected)
			assert.ErrorIs(t, err, tc.expected)
			assert.Equal(t, ClientFailed, c.State())
			assert.ErrorIs(t, c.Err(), ErrServerRejected)
		})
	}

	t.Run("BeforeBegin", func(t *testing.T) {
		c := newRFCClient()
		assert.ErrorIs(t, c.ProcessServerFailure("e=other-error"), ErrInvalidState)
		assert.Equal(t, ClientStart, c.State())
	})
}

func TestClientSession_Abort(t *testing.T) {
	broken := errors.New("connection reset")

	c := newRFCClient()
	_, err := c.Begin(rfcUser)
	require.NoError(t, err)
	assert.ErrorIs(t, c.Abort(broken), broken)
	assert.Equal(t, ClientFailed, c.State())
	assert.ErrorIs(t, c.Err(), broken)

	// An authenticated session stays authenticated
	c = newRFCClient()
	_, err = c.Begin(rfcUser)
	require.NoError(t, err)
	_, err = c.ProcessServerFirst(rfcServerFirst, rfcPassword)
	require.NoError(t, err)
	require.NoError(t, c.ProcessServerFinal(rfcServerFinal))
	assert.ErrorIs(t, c.Abort(broken), broken)
	assert.Equal(t, ClientAuthenticated, c.State())
}

func TestClientSession_Errors(t *testing.T) {
	t.Run("OutOfOrder", func(t *testing.T) {
		c := newRFCClient()
		_, err := c.ProcessServerFirst(rfcServerFirst, rfcPassword)
		assert.ErrorIs(t, err, ErrInvalidState)
		assert.ErrorIs(t, c.ProcessServerFinal(rfcServerFinal), ErrInvalidState)
		assert.Equal(t, ClientStart, c.State())
	})

	t.Run("BeginTwice", func(t *testing.T) {
		c := newRFCClient()
		_, err := c.Begin(rfcUser)
		require.NoError(t, err)
		_, err = c.Begin(rfcUser)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("EmptyUsername", func(t *testing.T) {
		c := newRFCClient()
		_, err := c.Begin("")
		assert.ErrorIs(t, err, ErrUnsafeParameter)
		assert.Equal(t, ClientFailed, c.State())
	})

	t.Run("NonceFailure", func(t *testing.T) {
		c := NewClientSession(ClientConfig{Nonces: failingNonce{}})
		_, err := c.Begin(rfcUser)
		assert.Error(t, err)
		assert.Equal(t, ClientFailed, c.State())
	})

	t.Run("MalformedServerFirst", func(t *testing.T) {
		c := newRFCClient()
		_, err := c.Begin(rfcUser)
		require.NoError(t, err)
		_, err = c.ProcessServerFirst("r=fyko+d2lbbFgONRv9qkxdawLabc,s=%%%,i=4096", rfcPassword)
		assert.ErrorIs(t, err, ErrDecoding)
	})

	t.Run("MalformedServerFinal", func(t *testing.T) {
		c := newRFCClient()
		_, err := c.Begin(rfcUser)
		require.NoError(t, err)
		_, err = c.ProcessServerFirst(rfcServerFirst, rfcPassword)
		require.NoError(t, err)
		assert.ErrorIs(t, c.ProcessServerFinal("v=not base64"), ErrDecoding)
	})

	t.Run("IterationsBelowMinimum", func(t *testing.T) {
		c := NewClientSession(ClientConfig{Nonces: fixedNonce(rfcClientNonce), MinIterations: 10000})
		_, err := c.Begin(rfcUser)
		require.NoError(t, err)
		_, err = c.ProcessServerFirst(rfcServerFirst, rfcPassword)
		assert.ErrorIs(t, err, ErrUnsafeParameter)
	})
}

func TestClientSession_FreshNonces(t *testing.T) {
	a, err := NewClientSession(ClientConfig{}).Begin(rfcUser)
	require.NoError(t, err)
	b, err := NewClientSession(ClientConfig{}).Begin(rfcUser)
	require.NoError(t, err)

	assert.Len(t, a.Nonce(), DefaultClientNonceLength)
	assert.NotEqual(t, a.Nonce(), b.Nonce())
}

func TestClientState_String(t *testing.T) {
	assert.Equal(t, "awaiting-server-final", ClientAwaitingServerFinal.String())
	assert.Equal(t, "ClientState(42)", ClientState(42).String())
}
