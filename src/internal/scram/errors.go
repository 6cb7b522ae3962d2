// FILE: src/internal/scram/errors.go
package scram

import (
	"errors"
	"fmt"
)

// Handshake failures. All of them are terminal for the session that returned them.
var (
	ErrNonceMismatch           = errors.New("scram: server nonce does not extend client nonce")
	ErrServerSignatureMismatch = errors.New("scram: server signature mismatch")
	ErrServerKeyMissing        = errors.New("scram: no key material for user")
	ErrClientNonceMismatch     = errors.New("scram: client final nonce does not match issued nonce")
	ErrClientProofMismatch     = errors.New("scram: client proof mismatch")
	ErrDecoding                = errors.New("scram: decoding error")
	ErrLengthMismatch          = errors.New("scram: xor operands differ in length")
	ErrChannelBinding          = errors.New("scram: channel binding not supported")
	ErrUnsafeParameter         = errors.New("scram: unsafe parameter")
	ErrServerRejected          = errors.New("scram: server rejected authentication")
	ErrInvalidState            = errors.New("scram: operation not valid in current session state")
	ErrUnknownUser             = errors.New("scram: unknown user")
)

// ServerError is a server-error-value carried in the e= attribute of a
// server-final-message (RFC 5802 section 7).
type ServerError string

const (
	ServerErrInvalidEncoding          ServerError = "invalid-encoding"
	ServerErrExtensionsNotSupported   ServerError = "extensions-not-supported"
	ServerErrInvalidProof             ServerError = "invalid-proof"
	ServerErrChannelBindingsDontMatch ServerError = "channel-bindings-dont-match"
	ServerErrChannelBindingNotSupp    ServerError = "channel-binding-not-supported"
	ServerErrOtherError               ServerError = "other-error"
)

func (e ServerError) Error() string {
	return string(e)
}

// ServerErrorFor maps a server-side failure onto the value reported to the
// client. Missing keys report invalid-proof so unknown usernames look the
// same as wrong passwords.
func ServerErrorFor(err error) ServerError {
	var se ServerError
	switch {
	case errors.As(err, &se):
		return se
	case errors.Is(err, ErrDecoding):
		return ServerErrInvalidEncoding
	case errors.Is(err, ErrChannelBinding):
		return ServerErrChannelBindingsDontMatch
	case errors.Is(err, ErrServerKeyMissing),
		errors.Is(err, ErrClientProofMismatch),
		errors.Is(err, ErrClientNonceMismatch):
		return ServerErrInvalidProof
	default:
		return ServerErrOtherError
	}
}

func decodeError(attr string, format string, args ...any) error {
	return fmt.Errorf("%w: attribute %q: %s", ErrDecoding, attr, fmt.Sprintf(format, args...))
}
