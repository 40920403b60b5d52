package main

import (
	"os"

	"github.com/awsford/deeplens-maze-solver/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
