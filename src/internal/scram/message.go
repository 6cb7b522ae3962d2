// FILE: src/internal/scram/message.go
package scram

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// GS2Header is the only header this implementation emits or accepts: no
// channel binding and no authorization identity.
const GS2Header = "n,,"

// ChannelBindingNone is the c= value for GS2Header ("biws").
var ChannelBindingNone = base64.StdEncoding.EncodeToString([]byte(GS2Header))

// b64 rejects non-canonical padding bits so one byte string has one encoding.
var b64 = base64.StdEncoding.Strict()

// ClientFirstMessage is "n,,n=<user>,r=<client-nonce>".
type ClientFirstMessage struct {
	bare Attributes
}

// NewClientFirstMessage builds a client-first-message, escaping the username.
func NewClientFirstMessage(username, nonce string) ClientFirstMessage {
	return ClientFirstMessage{bare: Attributes{
		{Name: "n", Value: escapeSaslName(username)},
		{Name: "r", Value: nonce},
	}}
}

// ParseClientFirstMessage validates and parses a client-first-message.
func ParseClientFirstMessage(raw string) (ClientFirstMessage, error) {
	bare, ok := strings.CutPrefix(raw, GS2Header)
	if !ok {
		if strings.HasPrefix(raw, "p=") {
			return ClientFirstMessage{}, fmt.Errorf("%w: %w", ErrChannelBinding, ServerErrChannelBindingNotSupp)
		}
		return ClientFirstMessage{}, decodeError("gs2-header", "expected %q", GS2Header)
	}

	attrs, err := ParseAttributes(bare)
	if err != nil {
		return ClientFirstMessage{}, err
	}
	if attrs[0].Name == "m" {
		return ClientFirstMessage{}, fmt.Errorf("%w: %w", ErrDecoding, ServerErrExtensionsNotSupported)
	}
	user, err := attrs.require("n")
	if err != nil {
		return ClientFirstMessage{}, err
	}
	if _, err := unescapeSaslName(user); err != nil {
		return ClientFirstMessage{}, err
	}
	nonce, err := attrs.require("r")
	if err != nil {
		return ClientFirstMessage{}, err
	}
	if err := validateNonce(nonce); err != nil {
		return ClientFirstMessage{}, err
	}
	return ClientFirstMessage{bare: attrs}, nil
}

func (m ClientFirstMessage) String() string { return GS2Header + m.bare.String() }

// Bare returns client-first-message-bare, the message without the GS2 header.
func (m ClientFirstMessage) Bare() string { return m.bare.String() }

// Username returns the unescaped username.
func (m ClientFirstMessage) Username() string {
	v, _ := m.bare.First("n")
	user, _ := unescapeSaslName(v)
	return user
}

func (m ClientFirstMessage) Nonce() string {
	v, _ := m.bare.First("r")
	return v
}

// ServerFirstMessage is "r=<combined-nonce>,s=<salt>,i=<iterations>".
type ServerFirstMessage struct {
	attrs Attributes
}

func NewServerFirstMessage(nonce string, salt []byte, iterations int) ServerFirstMessage {
	return ServerFirstMessage{attrs: Attributes{
		{Name: "r", Value: nonce},
		{Name: "s", Value: b64.EncodeToString(salt)},
		{Name: "i", Value: strconv.Itoa(iterations)},
	}}
}

// ParseServerFirstMessage validates and parses a server-first-message.
func ParseServerFirstMessage(raw string) (ServerFirstMessage, error) {
	attrs, err := ParseAttributes(raw)
	if err != nil {
		return ServerFirstMessage{}, err
	}
	if attrs[0].Name == "m" {
		return ServerFirstMessage{}, fmt.Errorf("%w: %w", ErrDecoding, ServerErrExtensionsNotSupported)
	}

	nonce, err := attrs.require("r")
	if err != nil {
		return ServerFirstMessage{}, err
	}
	if err := validateNonce(nonce); err != nil {
		return ServerFirstMessage{}, err
	}

	salt, err := attrs.require("s")
	if err != nil {
		return ServerFirstMessage{}, err
	}
	decoded, err := b64.DecodeString(salt)
	if err != nil {
		return ServerFirstMessage{}, decodeError("s", "%v", err)
	}
	if len(decoded) == 0 {
		return ServerFirstMessage{}, decodeError("s", "empty salt")
	}

	iter, err := attrs.require("i")
	if err != nil {
		return ServerFirstMessage{}, err
	}
	n, err := strconv.Atoi(iter)
	if err != nil || n <= 0 {
		return ServerFirstMessage{}, decodeError("i", "not a positive integer: %q", iter)
	}

	return ServerFirstMessage{attrs: attrs}, nil
}

func (m ServerFirstMessage) String() string { return m.attrs.String() }

// Nonce returns the combined client and server nonce.
func (m ServerFirstMessage) Nonce() string {
	v, _ := m.attrs.First("r")
	return v
}

func (m ServerFirstMessage) Salt() []byte {
	v, _ := m.attrs.First("s")
	salt, _ := b64.DecodeString(v)
	return salt
}

func (m ServerFirstMessage) Iterations() int {
	v, _ := m.attrs.First("i")
	n, _ := strconv.Atoi(v)
	return n
}

// AuthMessage is client-first-message-bare "," server-first-message ","
// client-final-message-without-proof. It is never transmitted.
type AuthMessage struct {
	attrs Attributes
}

// NewAuthMessage reconstructs the AuthMessage from the two first messages
// and the fixed channel binding.
func NewAuthMessage(clientFirst ClientFirstMessage, serverFirst ServerFirstMessage) AuthMessage {
	attrs := make(Attributes, 0, len(clientFirst.bare)+len(serverFirst.attrs)+2)
	attrs = append(attrs, clientFirst.bare...)
	attrs = append(attrs, serverFirst.attrs...)
	attrs = append(attrs,
		Attribute{Name: "c", Value: ChannelBindingNone},
		Attribute{Name: "r", Value: serverFirst.Nonce()},
	)
	return AuthMessage{attrs: attrs}
}

func (m AuthMessage) String() string { return m.attrs.String() }

// Nonces returns every r= value: client nonce, then the combined nonce twice.
func (m AuthMessage) Nonces() []string { return m.attrs.All("r") }

func (m AuthMessage) ChannelBinding() string {
	v, _ := m.attrs.First("c")
	return v
}

// ClientFinalWithoutProof returns "c=<cb>,r=<combined-nonce>".
func (m AuthMessage) ClientFinalWithoutProof() string {
	nonces := m.Nonces()
	return Attributes{
		{Name: "c", Value: m.ChannelBinding()},
		{Name: "r", Value: nonces[len(nonces)-1]},
	}.String()
}

// ClientFinalMessage is "c=<cb>,r=<combined-nonce>,p=<proof>".
type ClientFinalMessage struct {
	attrs Attributes
}

func NewClientFinalMessage(nonce string, proof []byte) ClientFinalMessage {
	return ClientFinalMessage{attrs: Attributes{
		{Name: "c", Value: ChannelBindingNone},
		{Name: "r", Value: nonce},
		{Name: "p", Value: b64.EncodeToString(proof)},
	}}
}

// ParseClientFinalMessage validates and parses a client-final-message. The
// proof must be the last attribute.
func ParseClientFinalMessage(raw string) (ClientFinalMessage, error) {
	attrs, err := ParseAttributes(raw)
	if err != nil {
		return ClientFinalMessage{}, err
	}
	if _, err := attrs.require("c"); err != nil {
		return ClientFinalMessage{}, err
	}
	if _, err := attrs.require("r"); err != nil {
		return ClientFinalMessage{}, err
	}
	last := attrs[len(attrs)-1]
	if last.Name != "p" {
		return ClientFinalMessage{}, decodeError("p", "missing or not last")
	}
	if _, err := b64.DecodeString(last.Value); err != nil {
		return ClientFinalMessage{}, decodeError("p", "%v", err)
	}
	return ClientFinalMessage{attrs: attrs}, nil
}

func (m ClientFinalMessage) String() string { return m.attrs.String() }

func (m ClientFinalMessage) ChannelBinding() string {
	v, _ := m.attrs.First("c")
	return v
}

func (m ClientFinalMessage) Nonce() string {
	v, _ := m.attrs.First("r")
	return v
}

func (m ClientFinalMessage) Proof() []byte {
	v, _ := m.attrs.First("p")
	proof, _ := b64.DecodeString(v)
	return proof
}

// WithoutProof returns client-final-message-without-proof.
func (m ClientFinalMessage) WithoutProof() string {
	return m.attrs[:len(m.attrs)-1].String()
}

// ServerFinalMessage is either "v=<signature>" or "e=<server-error>".
type ServerFinalMessage struct {
	attrs Attributes
}

func NewServerFinalMessage(signature []byte) ServerFinalMessage {
	return ServerFinalMessage{attrs: Attributes{{Name: "v", Value: b64.EncodeToString(signature)}}}
}

func NewServerErrorMessage(e ServerError) ServerFinalMessage {
	return ServerFinalMessage{attrs: Attributes{{Name: "e", Value: string(e)}}}
}

// ParseServerFinalMessage validates and parses a server-final-message.
func ParseServerFinalMessage(raw string) (ServerFinalMessage, error) {
	attrs, err := ParseAttributes(raw)
	if err != nil {
		return ServerFinalMessage{}, err
	}
	switch attrs[0].Name {
	case "e":
		return ServerFinalMessage{attrs: attrs}, nil
	case "v":
		if _, err := b64.DecodeString(attrs[0].Value); err != nil {
			return ServerFinalMessage{}, decodeError("v", "%v", err)
		}
		return ServerFinalMessage{attrs: attrs}, nil
	default:
		return ServerFinalMessage{}, decodeError("v", "missing verifier or server error")
	}
}

func (m ServerFinalMessage) String() string { return m.attrs.String() }

// Signature returns the decoded verifier, or false for an error message.
func (m ServerFinalMessage) Signature() ([]byte, bool) {
	v, ok := m.attrs.First("v")
	if !ok {
		return nil, false
	}
	sig, _ := b64.DecodeString(v)
	return sig, true
}

// Err returns the server-error-value, or false for a verifier message.
func (m ServerFinalMessage) Err() (ServerError, bool) {
	v, ok := m.attrs.First("e")
	return ServerError(v), ok
}

func validateNonce(nonce string) error {
	if nonce == "" {
		return decodeError("r", "empty nonce")
	}
	for i := 0; i < len(nonce); i++ {
		if c := nonce[i]; c < 0x21 || c > 0x7e {
			return decodeError("r", "non-printable byte 0x%02x at %d", c, i)
		}
	}
	return nil
}
