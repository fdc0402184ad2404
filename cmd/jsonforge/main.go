package main

import (
	"os"

	"github.com/solatis/jsonforge/cmd/jsonforge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
