// FILE: src/cmd/scramwisp/commands/users.go
package commands

import (
	"flag"
	"fmt"
	"io"

	"scramwisp/src/internal/credstore"
	"scramwisp/src/internal/scram"
)

// UsersCommand lists, removes or exports users in the configured store.
type UsersCommand struct {
	output io.Writer
	errOut io.Writer
}

func (uc *UsersCommand) Execute(args []string) error {
	args, overrides := splitOverrides(args)

	cmd := flag.NewFlagSet("users", flag.ContinueOnError)
	cmd.SetOutput(uc.errOut)

	configFile := cmd.String("c", "", "Config file path")
	format := cmd.String("f", "toml", "Export format: toml or yaml")

	if err := cmd.Parse(args); err != nil {
		return err
	}
	if cmd.NArg() == 0 {
		return fmt.Errorf("users requires an action: list, remove <name> or export [name...]")
	}

	cfg, err := loadConfig(*configFile, overrides)
	if err != nil {
		return err
	}

	store, err := credstore.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	action, rest := cmd.Arg(0), cmd.Args()[1:]
	return uc.run(store, action, rest, *format)
}

func (uc *UsersCommand) run(store credstore.Store, action string, names []string, format string) error {
	switch action {
	case "list":
		for _, name := range store.Usernames() {
			fmt.Fprintln(uc.output, name)
		}
		return nil

	case "remove":
		if len(names) == 0 {
			return fmt.Errorf("remove requires at least one username")
		}
		for _, name := range names {
			if err := store.Remove(name); err != nil {
				return err
			}
			fmt.Fprintf(uc.output, "Removed %q\n", name)
		}
		return nil

	case "export":
		if len(names) == 0 {
			names = store.Usernames()
		}
		snippet, err := exportUsers(store, names, format)
		if err != nil {
			return err
		}
		fmt.Fprint(uc.output, string(snippet))
		return nil

	default:
		return fmt.Errorf("unknown users action: %s", action)
	}
}

func exportUsers(store credstore.Store, names []string, format string) ([]byte, error) {
	creds := make([]*scram.Credential, 0, len(names))
	for _, name := range names {
		cred, err := store.Lookup(name)
		if err != nil {
			return nil, err
		}
		creds = append(creds, cred)
	}
	return credstore.Export(format, creds...)
}

func (uc *UsersCommand) Description() string {
	return "List, remove or export users in the credential store"
}

func (uc *UsersCommand) Help() string {
	return `Users Command - Manage the configured credential store

Usage:
  scramwisp users [options] list
  scramwisp users [options] remove <name>...
  scramwisp users [options] export [name...]

Options:
  -c <path>       Config file path
  -f <fmt>        Export format: "toml" or "yaml" (default: toml)

Examples:
  scramwisp users list -- --store.type=bolt
  scramwisp users -f yaml export alice -- --store.type=bolt
`
}
