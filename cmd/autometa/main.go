// Package main is the entry point for the autometa CLI, the batch
// metadata tagger for stock media files.
package main

import (
	"os"

	"autometa/cmd/autometa/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
