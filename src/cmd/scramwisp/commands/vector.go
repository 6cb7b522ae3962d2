// FILE: src/cmd/scramwisp/commands/vector.go
package commands

import (
	"encoding/base64"
	"fmt"
	"io"

	"scramwisp/src/internal/credstore"
	"scramwisp/src/internal/scram"
)

// RFC 5802 section 5 example exchange.
const (
	vectorUser        = "user"
	vectorPassword    = "pencil"
	vectorClientNonce = "fyko+d2lbbFgONRv9qkxdawL"
	vectorServerNonce = "3rfcNHYJY1ZVvWVs7j"
	vectorSalt        = "QSXCR+Q6sek8bf92"
	vectorIterations  = 4096

	vectorClientFinal = "c=biws,r=fyko+d2lbbFgONRv9qkxdawL3rfcNHYJY1ZVvWVs7j,p=v0X8v3Bz2T0CJGbJQyF0X+HI4Ts="
	vectorServerFinal = "v=rmF9pqV8S7suAoZWja4dJRkFsKQ="
)

// fixedNonce replays a known nonce regardless of the requested length.
type fixedNonce string

func (n fixedNonce) Generate(int) (string, error) { return string(n), nil }

// VectorCommand runs the RFC 5802 example through both state machines.
type VectorCommand struct {
	output io.Writer
}

func (vc *VectorCommand) Execute(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("vector takes no arguments")
	}

	salt, err := base64.StdEncoding.DecodeString(vectorSalt)
	if err != nil {
		return err
	}

	store := credstore.NewMemoryStore()
	server, err := scram.NewServerSession(scram.ServerConfig{
		Store:  store,
		Nonces: fixedNonce(vectorServerNonce),
	})
	if err != nil {
		return err
	}
	if err := server.Register(vectorUser, vectorPassword, salt, vectorIterations); err != nil {
		return err
	}

	client := scram.NewClientSession(scram.ClientConfig{Nonces: fixedNonce(vectorClientNonce)})

	clientFirst, err := client.Begin(vectorUser)
	if err != nil {
		return err
	}
	vc.print("C", clientFirst.String())

	serverFirst, err := server.ProcessClientFirst(clientFirst.String())
	if err != nil {
		return err
	}
	vc.print("S", serverFirst.String())

	clientFinal, err := client.ProcessServerFirst(serverFirst.String(), vectorPassword)
	if err != nil {
		return err
	}
	vc.print("C", clientFinal.String())
	if clientFinal.String() != vectorClientFinal {
		return fmt.Errorf("client-final mismatch: expected %s", vectorClientFinal)
	}

	serverFinal, err := server.ProcessClientFinal(clientFinal.String())
	if err != nil {
		return err
	}
	vc.print("S", serverFinal.String())
	if serverFinal.String() != vectorServerFinal {
		return fmt.Errorf("server-final mismatch: expected %s", vectorServerFinal)
	}

	if err := client.ProcessServerFinal(serverFinal.String()); err != nil {
		return err
	}

	fmt.Fprintf(vc.output, "\nclient: %s, server: %s\n", client.State(), server.State())
	return nil
}

func (vc *VectorCommand) print(side, msg string) {
	fmt.Fprintf(vc.output, "%s: %s\n", side, msg)
}

func (vc *VectorCommand) Description() string {
	return "Run the RFC 5802 example exchange"
}

func (vc *VectorCommand) Help() string {
	return `Vector Command - Replay the RFC 5802 section 5 example

Runs user "user" with password "pencil" through the client and server state
machines using the RFC's fixed nonces and salt, printing each message and
failing if any differs from the published exchange.

Usage:
  scramwisp vector
`
}
