// Package main provides the entry point for the clinebridge CLI.
package main

import (
	"fmt"
	"os"

	"github.com/clinebridge/clinebridge/cmd/clinebridge/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
