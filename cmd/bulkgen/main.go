package main

import (
	"fmt"
	"os"

	"bulkgen/internal/cli"

	"github.com/joho/godotenv"
)

func main() {
	// API keys may live in a local .env; absence is fine.
	_ = godotenv.Load()

	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
