// Package main is the entry point for the nightowl CLI.
package main

import (
	"os"

	"github.com/AndreyAkinshin/nightowl/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
