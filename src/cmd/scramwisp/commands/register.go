// FILE: src/cmd/scramwisp/commands/register.go
package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"scramwisp/src/internal/auth"
	"scramwisp/src/internal/config"
	"scramwisp/src/internal/credstore"
)

// RegisterCommand derives a credential and saves it into the configured store.
type RegisterCommand struct {
	output io.Writer
	errOut io.Writer
	prompt passwordPrompt
}

func (rc *RegisterCommand) Execute(args []string) error {
	args, overrides := splitOverrides(args)

	cmd := flag.NewFlagSet("register", flag.ContinueOnError)
	cmd.SetOutput(rc.errOut)

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
		return fmt.Errorf("username required for registration")
	}

	cfg, err := loadConfig(*configFile, overrides)
	if err != nil {
		return err
	}
	if cfg.Store.Type == "memory" {
		fmt.Fprintln(rc.errOut, "Warning: memory store selected, the registration will not outlive this process")
	}

	finalPassword, err := readPassword(rc.prompt, coalesceString(*password, *passwordLong), true)
	if err != nil {
		return err
	}

	return rc.register(context.Background(), cfg, finalUsername, finalPassword)
}

func (rc *RegisterCommand) register(ctx context.Context, cfg *config.Config, username, password string) error {
	logger, err := initializeLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer shutdownLogger(logger)

	store, err := credstore.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	manager, err := auth.NewManager(cfg, store, logger)
	if err != nil {
		return err
	}
	defer manager.Close()

	if err := manager.RegisterUser(ctx, username, password); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	fmt.Fprintf(rc.output, "Registered %q in %s store (%d iterations)\n",
		username, cfg.Store.Type, cfg.Scram.Iterations)
	return nil
}

func (rc *RegisterCommand) Description() string {
	return "Register a user in the configured credential store"
}

func (rc *RegisterCommand) Help() string {
	return `Register Command - Save a SCRAM-SHA-1 credential into the credential store

Usage:
  scramwisp register [options] [-- config overrides]

Options:
  -c <path>                Config file path
  -u, --user <name>        Username to register
  -p, --password <pass>    Password (will prompt if not provided)

Examples:
  scramwisp register -u alice -- --store.type=bolt --store.path=/var/lib/scramwisp/users.db
`
}
