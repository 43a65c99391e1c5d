package main

import (
	"os"

	"github.com/ehsaniara/hpcompose/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
