// FILE: src/cmd/scramwisp/commands/router.go
package commands

import (
	"fmt"
	"io"
	"os"
)

// Handler defines the interface required for all subcommands.
type Handler interface {
	Execute(args []string) error
	Description() string
	Help() string
}

// CommandRouter routes CLI arguments to the matching subcommand handler.
type CommandRouter struct {
	commands map[string]Handler
	output   io.Writer
}

// NewCommandRouter creates the router with all available commands.
func NewCommandRouter() *CommandRouter {
	return newCommandRouter(os.Stdout, os.Stderr)
}

func newCommandRouter(out, errOut io.Writer) *CommandRouter {
	router := &CommandRouter{
		commands: make(map[string]Handler),
		output:   out,
	}

	router.commands["auth"] = &AuthCommand{output: out, errOut: errOut, prompt: terminalPrompt(errOut)}
	router.commands["register"] = &RegisterCommand{output: out, errOut: errOut, prompt: terminalPrompt(errOut)}
	router.commands["login"] = &LoginCommand{output: out, errOut: errOut, prompt: terminalPrompt(errOut)}
	router.commands["users"] = &UsersCommand{output: out, errOut: errOut}
	router.commands["vector"] = &VectorCommand{output: out}
	router.commands["version"] = &VersionCommand{output: out}
	router.commands["help"] = &HelpCommand{router: router, output: out}

	return router
}

// Route executes the subcommand named by args[1]. With no command it shows
// general help.
func (r *CommandRouter) Route(args []string) error {
	if len(args) < 2 {
		return r.commands["help"].Execute(nil)
	}

	cmdName := args[1]

	for _, arg := range args[1:] {
		if arg == "--" {
			break
		}
		if arg == "-h" || arg == "--help" {
			if handler, exists := r.commands[cmdName]; exists && cmdName != "help" {
				fmt.Fprint(r.output, handler.Help())
				return nil
			}
			return r.commands["help"].Execute(nil)
		}
	}

	if cmdName == "-v" || cmdName == "--version" {
		return r.commands["version"].Execute(nil)
	}

	handler, exists := r.commands[cmdName]
	if !exists {
		return fmt.Errorf("unknown command: %s\n\nRun 'scramwisp help' for usage", cmdName)
	}

	return handler.Execute(args[2:])
}

// GetCommand returns a specific command handler by its name.
func (r *CommandRouter) GetCommand(name string) (Handler, bool) {
	cmd, exists := r.commands[name]
	return cmd, exists
}

// GetCommands returns all registered commands.
func (r *CommandRouter) GetCommands() map[string]Handler {
	return r.commands
}

// coalesceString returns the first non-empty string.
func coalesceString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// coalesceInt returns the first value that differs from defaultVal.
func coalesceInt(primary, secondary, defaultVal int) int {
	if primary != defaultVal {
		return primary
	}
	if secondary != defaultVal {
		return secondary
	}
	return defaultVal
}
