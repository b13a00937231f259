// Package main is the entry point for the schemaplane CLI.
// The CLI is the terminal tool for interacting with the schemaplane API.
package main

import (
	"os"

	"schemaplane/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
