// FILE: src/cmd/scramwisp/main.go
package main

import (
	"fmt"
	"os"

	"scramwisp/src/cmd/scramwisp/commands"
)

func main() {
	router := commands.NewCommandRouter()

	if err := router.Route(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
