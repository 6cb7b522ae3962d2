// FILE: src/cmd/scramwisp/commands/login.go
package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lixenwraith/log"

	"scramwisp/src/internal/auth"
	"scramwisp/src/internal/config"
	"scramwisp/src/internal/credstore"
	"scramwisp/src/internal/scram"
	"scramwisp/src/internal/session"
	"scramwisp/src/internal/transport"
)

// LoginCommand runs a complete handshake in process: a client session over a
// Pipe against the auth manager backed by the configured store.
type LoginCommand struct {
	output io.Writer
	errOut io.Writer
	prompt passwordPrompt
}

func (lc *LoginCommand) Execute(args []string) error {
	args, overrides := splitOverrides(args)

	cmd := flag.NewFlagSet("login", flag.ContinueOnError)
	cmd.SetOutput(lc.errOut)

	var (
		configFile   = cmd.String("c", "", "Config file path")
		username     = cmd.String("u", "", "Username")
		usernameLong = cmd.String("user", "", "Username")
		password     = cmd.String("p", "", "Password (will prompt if not provided)")
		passwordLong = cmd.String("password", "", "Password (will prompt if not provided)")
	)

	if err := cmd.Parse(args); err != nil {
		return err
	}
	if cmd.NArg() > 0 {
		return fmt.Errorf("unexpected argument(s): %s", strings.Join(cmd.Args(), " "))
	}

	finalUsername := coalesceString(*username, *usernameLong)
	if finalUsername == "" {
		return fmt.Errorf("username required for login")
	}

	cfg, err := loadConfig(*configFile, overrides)
	if err != nil {
		return err
	}

	finalPassword, err := readPassword(lc.prompt, coalesceString(*password, *passwordLong), false)
	if err != nil {
		return err
	}

	logger, err := initializeLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer shutdownLogger(logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Scram.HandshakeTimeoutSeconds)*time.Second)
	defer cancel()

	return lc.login(ctx, cfg, logger, finalUsername, finalPassword)
}

func (lc *LoginCommand) login(ctx context.Context, cfg *config.Config, logger *log.Logger, username, password string) error {
	store, err := credstore.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	credstore.Seed(store, cfg.Users, logger)

	manager, err := auth.NewManager(cfg, store, logger)
	if err != nil {
		return err
	}
	defer manager.Close()

	clientEnd, serverEnd := transport.Pipe()
	defer clientEnd.Close()
	defer serverEnd.Close()

	type served struct {
		s   *session.Session
		err error
	}
	done := make(chan served, 1)
	go func() {
		s, err := manager.Serve(ctx, serverEnd, "local")
		done <- served{s, err}
	}()

	client := scram.NewClientSession(scram.ClientConfig{
		NonceLength:   cfg.Scram.NonceLength,
		MinIterations: cfg.Scram.MinIterations,
	})
	result, clientErr := transport.Authenticate(ctx, clientEnd, client, username, password)
	// Unblocks the server if the client gave up mid-exchange
	clientEnd.Close()
	serverResult := <-done

	if clientErr != nil {
		return fmt.Errorf("login failed: %w", clientErr)
	}
	if serverResult.err != nil {
		return fmt.Errorf("login failed: %w", serverResult.err)
	}

	claims, err := manager.VerifyTicket(result.Ticket)
	if err != nil {
		return fmt.Errorf("issued ticket did not verify: %w", err)
	}

	fmt.Fprintf(lc.output, "Authenticated %q (server verified)\n", result.Username)
	fmt.Fprintf(lc.output, "Session: %s\n", serverResult.s.ID)
	fmt.Fprintf(lc.output, "Expires: %s\n", claims.ExpiresAt.Time.Format(time.RFC3339))
	fmt.Fprintf(lc.output, "Ticket:  %s\n", result.Ticket)
	fmt.Fprintf(lc.output, "Active:  %d session(s), %d pending handshake(s)\n",
		manager.Sessions().GetSessionCount(), manager.PendingHandshakes())
	return nil
}

func (lc *LoginCommand) Description() string {
	return "Run a full SCRAM handshake against the configured store"
}

func (lc *LoginCommand) Help() string {
	return `Login Command - Authenticate against the configured credential store

Runs the client and server sides in one process and prints the signed
session ticket on success. Users from the [[users]] config section are
loaded into the store first.

Usage:
  scramwisp login [options] [-- config overrides]

Options:
  -c <path>                Config file path
  -u, --user <name>        Username
  -p, --password <pass>    Password (will prompt if not provided)

Examples:
  scramwisp login -u alice -- --store.type=bolt
`
}
