// Package main provides the entry point for the conceptrag CLI.
package main

import (
	"os"

	"github.com/conceptrag/core/cmd/conceptrag/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
