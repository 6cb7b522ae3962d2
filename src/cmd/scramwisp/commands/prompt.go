// FILE: src/cmd/scramwisp/commands/prompt.go
package commands

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// passwordPrompt reads a password after printing label.
type passwordPrompt func(label string) (string, error)

func terminalPrompt(errOut io.Writer) passwordPrompt {
	return func(label string) (string, error) {
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return "", fmt.Errorf("stdin is not a terminal, pass the password with -p")
		}

		fmt.Fprint(errOut, label)
		password, err := term.ReadPassword(fd)
		fmt.Fprintln(errOut)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(password), nil
	}
}

// readPassword returns given, or prompts for it. New passwords are confirmed.
func readPassword(prompt passwordPrompt, given string, confirm bool) (string, error) {
	if given != "" {
		return given, nil
	}

	pass1, err := prompt("Enter password: ")
	if err != nil {
		return "", err
	}
	if !confirm {
		return pass1, nil
	}

	pass2, err := prompt("Confirm password: ")
	if err != nil {
		return "", err
	}
	if pass1 != pass2 {
		return "", fmt.Errorf("passwords don't match")
	}
	return pass1, nil
}
