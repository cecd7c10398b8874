// Package main provides the entry point for the watchsieve CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/watchsieve/cmd/watchsieve/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
