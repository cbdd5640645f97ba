// Package main is the entry point of the leaproute CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/leaproute/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
