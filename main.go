package main

import (
	"os"

	"github.com/coveytools/covey/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
