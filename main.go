package main

import (
	"os"

	"github.com/abhisek/dojang/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
