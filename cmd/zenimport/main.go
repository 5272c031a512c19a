// Package main is the entry point for the zenimport CLI.
package main

import (
	"os"

	"github.com/jmylchreest/zenimport/cmd/zenimport/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
