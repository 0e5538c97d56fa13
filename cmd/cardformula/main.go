// Package main provides the cardformula CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/cardformula/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
