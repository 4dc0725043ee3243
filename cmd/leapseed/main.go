// Package main provides the leapseed CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/leapseed/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
