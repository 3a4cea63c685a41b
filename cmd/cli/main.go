// Package main is the entry point for castctl.
// castctl is the terminal tool for interacting with the castplane API.
package main

import (
	"os"

	"castplane/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
