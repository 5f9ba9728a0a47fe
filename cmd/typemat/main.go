package main

import (
	"os"

	"github.com/typemat/typemat/cmd/typemat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
