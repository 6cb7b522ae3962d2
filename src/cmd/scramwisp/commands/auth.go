// FILE: src/cmd/scramwisp/commands/auth.go
package commands

import (
	"crypto/rand"
	"flag"
	"fmt"
	"io"
	"strings"

	"scramwisp/src/internal/core"
	"scramwisp/src/internal/credstore"
	"scramwisp/src/internal/scram"
)

type AuthCommand struct {
	output io.Writer
	errOut io.Writer
	prompt passwordPrompt
}

func (ac *AuthCommand) Execute(args []string) error {
	args, overrides := splitOverrides(args)

	cmd := flag.NewFlagSet("auth", flag.ContinueOnError)
	cmd.SetOutput(ac.errOut)

	var (
		username       = cmd.String("u", "", "Username")
		usernameLong   = cmd.String("user", "", "Username")
		password       = cmd.String("p", "", "Password (will prompt if not provided)")
		passwordLong   = cmd.String("password", "", "Password (will prompt if not provided)")
		iterations     = cmd.Int("i", core.DefaultIterations, "PBKDF2 iteration count")
		iterationsLong = cmd.Int("iterations", core.DefaultIterations, "PBKDF2 iteration count")
		format         = cmd.String("f", "", "Output format: toml or yaml")
		formatLong     = cmd.String("format", "", "Output format: toml or yaml")
		savePath       = cmd.String("save", "", "Also add the user to this config file")
	)

	cmd.Usage = func() {
		fmt.Fprintln(ac.errOut, "Derive a SCRAM-SHA-1 credential and print a config entry")
		fmt.Fprintln(ac.errOut, "\nUsage: scramwisp auth [options]")
		fmt.Fprintln(ac.errOut, "\nOptions:")
		cmd.PrintDefaults()
	}

	if err := cmd.Parse(args); err != nil {
		return err
	}
	if cmd.NArg() > 0 {
		return fmt.Errorf("unexpected argument(s): %s", strings.Join(cmd.Args(), " "))
	}

	finalUsername := coalesceString(*username, *usernameLong)
	finalIterations := coalesceInt(*iterations, *iterationsLong, core.DefaultIterations)
	finalFormat := coalesceString(*format, *formatLong, "toml")

	if finalUsername == "" {
		cmd.Usage()
		return fmt.Errorf("username required for credential generation")
	}
	if finalIterations < core.MinIterations {
		return fmt.Errorf("iteration count %d below minimum %d", finalIterations, core.MinIterations)
	}
	if finalFormat != "toml" && finalFormat != "yaml" {
		return fmt.Errorf("invalid format: %s (valid: toml, yaml)", finalFormat)
	}

	finalPassword, err := readPassword(ac.prompt, coalesceString(*password, *passwordLong), true)
	if err != nil {
		return err
	}

	cred, err := ac.derive(finalUsername, finalPassword, finalIterations)
	if err != nil {
		return err
	}

	snippet, err := credstore.Export(finalFormat, cred)
	if err != nil {
		return err
	}

	fmt.Fprintf(ac.output, "\n# SCRAM-SHA-1 credential for %q\n", finalUsername)
	fmt.Fprintln(ac.output, "# Add to scramwisp.toml, or save with --save:")
	fmt.Fprintln(ac.output)
	fmt.Fprint(ac.output, string(snippet))

	if *savePath != "" {
		if err := ac.save(*savePath, overrides, cred); err != nil {
			return err
		}
		fmt.Fprintf(ac.output, "\n# Saved to %s\n", *savePath)
	}

	return nil
}

func (ac *AuthCommand) Description() string {
	return "Derive SCRAM credentials and print a config entry"
}

func (ac *AuthCommand) Help() string {
	return `Auth Command - Derive SCRAM-SHA-1 credentials for scramwisp

Usage:
  scramwisp auth [options] [-- config overrides]

Options:
  -u, --user <name>          Username for credential generation
  -p, --password <pass>      Password (will prompt if not provided)
  -i, --iterations <n>       PBKDF2 iteration count (default: 4096, minimum: 4096)
  -f, --format <fmt>         Output format: "toml" or "yaml" (default: toml)
  --save <path>              Add or replace the user in a TOML config file

Examples:
  # Print a TOML users entry
  scramwisp auth -u alice

  # Higher iteration count as YAML
  scramwisp auth --user=alice --iterations=100000 --format=yaml

  # Write the user straight into a config file
  scramwisp auth -u alice --save ~/.config/scramwisp.toml

Output:
  Only the salt, iteration count, StoredKey and ServerKey are printed.
  The password cannot be recovered from them.
`
}

func (ac *AuthCommand) derive(username, password string, iterations int) (*scram.Credential, error) {
	salt := make([]byte, core.DefaultSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	cred, err := scram.DeriveCredential(username, password, salt, iterations)
	if err != nil {
		return nil, fmt.Errorf("failed to derive SCRAM credential: %w", err)
	}
	return cred, nil
}

// save upserts cred into the config at path. A missing file starts from defaults.
func (ac *AuthCommand) save(path string, overrides []string, cred *scram.Credential) error {
	cfg, err := loadConfig(path, overrides)
	if err != nil {
		return err
	}
	cfg.UpsertUser(credstore.ToUserConfig(cred))
	return cfg.SaveToFile(path)
}
