// Package main provides the entry point for the kestrel CLI.
package main

import (
	"os"

	"github.com/kestrelhq/kestrel/cmd/kestrel/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
