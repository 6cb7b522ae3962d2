// FILE: src/cmd/scramwisp/commands/version.go
package commands

import (
	"fmt"
	"io"

	"scramwisp/src/internal/version"
)

type VersionCommand struct {
	output io.Writer
}

func (c *VersionCommand) Execute(args []string) error {
	fmt.Fprintln(c.output, version.String())
	return nil
}

func (c *VersionCommand) Description() string {
	return "Show version information"
}

func (c *VersionCommand) Help() string {
	return `Version Command - Show scramwisp version information

Usage:
  scramwisp version
  scramwisp -v
  scramwisp --version
`
}
