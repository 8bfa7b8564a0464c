package main

import (
	"os"

	"github.com/addestra-labs/addestra/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
