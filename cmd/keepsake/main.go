package main

import (
	"os"

	"github.com/majorcontext/keepsake/cmd/keepsake/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
