// Package main is the entry point for the rating CLI.
package main

import (
	"os"

	"freight-rating/cmd/cli/cmd"
	"freight-rating/internal/logging"
)

func main() {
	err := cmd.Execute()
	logging.Sync()
	if err != nil {
		os.Exit(1)
	}
}
