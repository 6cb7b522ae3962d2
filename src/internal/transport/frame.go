// FILE: src/internal/transport/frame.go
package transport

import (
	"errors"
	"fmt"
	"strings"
)

// Frame commands. Each frame is one line: "<command> <payload>".
const (
	CmdFirst     = "SCRAM-FIRST"     // client-first-message
	CmdChallenge = "SCRAM-CHALLENGE" // server-first-message
	CmdProof     = "SCRAM-PROOF"     // client-final-message
	CmdOK        = "SCRAM-OK"        // server-final-message with verifier
	CmdFail      = "SCRAM-FAIL"      // server-final-message with e=
	CmdSession   = "SESSION"         // session ticket after SCRAM-OK
)

var (
	ErrClosed     = errors.New("transport: closed")
	ErrBadFrame   = errors.New("transport: malformed frame")
	ErrUnexpected = errors.New("transport: unexpected frame")
)

// Frame is one protocol step carrying a SCRAM message.
type Frame struct {
	Command string
	Payload string
}

func (f Frame) String() string {
	return f.Command + " " + f.Payload
}

// FormatFrame renders f as a newline-terminated line.
func FormatFrame(f Frame) (string, error) {
	if f.Command == "" || strings.ContainsAny(f.Command, " \r\n") {
		return "", fmt.Errorf("%w: invalid command %q", ErrBadFrame, f.Command)
	}
	if strings.ContainsAny(f.Payload, "\r\n") {
		return "", fmt.Errorf("%w: payload of %s contains a line break", ErrBadFrame, f.Command)
	}
	return f.String() + "\n", nil
}

// ParseFrame parses one line produced by FormatFrame.
func ParseFrame(line string) (Frame, error) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return Frame{}, fmt.Errorf("%w: empty line", ErrBadFrame)
	}
	command, payload, _ := strings.Cut(line, " ")
	return Frame{Command: command, Payload: payload}, nil
}

func expect(f Frame, commands ...string) error {
	for _, c := range commands {
		if f.Command == c {
			return nil
		}
	}
	return fmt.Errorf("%w: got %s, want one of %v", ErrUnexpected, f.Command, commands)
}
