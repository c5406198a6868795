package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/mapicassistant-coder/factmesh/internal/cli"
)

func main() {
	// Load .env from the working directory when present. Variables
	// already set in the environment win.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
