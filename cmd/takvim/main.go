package main

import (
	"os"

	"github.com/fatih/color"

	"bist-takvim/internal/cli"
	"bist-takvim/internal/logging"
)

func main() {
	logger := logging.NewLogger()

	if err := cli.NewRootCmd(logger).Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
