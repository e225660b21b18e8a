package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/atelierhq/atelier/cmd/cli/commands"
)

func main() {
	// A missing .env is fine; flags and real env vars still apply.
	_ = godotenv.Load()

	if err := commands.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
