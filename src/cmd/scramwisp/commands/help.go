// FILE: src/cmd/scramwisp/commands/help.go
package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

const generalHelpTemplate = `scramwisp: SCRAM-SHA-1 (RFC 5802) credential and handshake tool.

Usage:
  scramwisp <command> [options] [-- config overrides]

Commands:
%s

Global Options:
  -h, --help               Display this help message and exit
  -v, --version            Display version information and exit

For command-specific help:
  scramwisp help <command>
  scramwisp <command> --help

Configuration Sources (Precedence: CLI > Env > File > Defaults):
  - Overrides after "--", e.g. -- --store.type=bolt --store.path=users.db
  - Environment variables with the SCRAMWISP_ prefix (SCRAMWISP_SCRAM_ITERATIONS)
  - TOML file from SCRAMWISP_CONFIG_FILE or ~/.config/scramwisp.toml

Examples:
  # Print a config entry for a new user
  scramwisp auth -u alice

  # Register into a bolt store and log in against it
  scramwisp register -u alice -- --store.type=bolt
  scramwisp login -u alice -- --store.type=bolt
`

// HelpCommand displays general or command-specific help.
type HelpCommand struct {
	router *CommandRouter
	output io.Writer
}

func (c *HelpCommand) Execute(args []string) error {
	if len(args) > 0 && args[0] != "" {
		cmdName := args[0]

		if handler, exists := c.router.GetCommand(cmdName); exists {
			fmt.Fprint(c.output, handler.Help())
			return nil
		}

		return fmt.Errorf("unknown command: %s", cmdName)
	}

	fmt.Fprintf(c.output, generalHelpTemplate, c.formatCommandList())
	return nil
}

func (c *HelpCommand) Description() string {
	return "Display help information"
}

func (c *HelpCommand) Help() string {
	return `Help Command - Display help information

Usage:
  scramwisp help              Show general help
  scramwisp help <command>    Show help for a specific command
`
}

// formatCommandList creates an aligned list of all available commands.
func (c *HelpCommand) formatCommandList() string {
	commands := c.router.GetCommands()

	names := make([]string, 0, len(commands))
	maxLen := 0
	for name := range commands {
		names = append(names, name)
		if len(name) > maxLen {
			maxLen = len(name)
		}
	}
	sort.Strings(names)

	var lines []string
	for _, name := range names {
		padding := strings.Repeat(" ", maxLen-len(name)+2)
		lines = append(lines, fmt.Sprintf("  %s%s%s", name, padding, commands[name].Description()))
	}

	return strings.Join(lines, "\n")
}
