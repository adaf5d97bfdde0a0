package main

import (
	"os"

	"rewards/internal/cli"
)

func main() {
	cli.LoadEnvFile()

	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
