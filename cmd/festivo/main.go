// Package main is the entry point for the festivo CLI.
package main

import (
	"os"

	"github.com/festivo/festivo/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
