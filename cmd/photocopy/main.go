package main

import (
	"fmt"
	"os"

	"photocopy/internal/cli"
)

func main() {
	rootCmd := cli.NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "photocopy: %v\n", err)
		os.Exit(1)
	}
}
