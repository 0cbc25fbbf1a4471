// Package main provides the entry point for the pkgindex CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/pkgindex/cmd/pkgindex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
