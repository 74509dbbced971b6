package main

import (
	"os"

	"github.com/zace-run/zace/internal/cliapp"
)

func main() {
	if err := cliapp.Execute(); err != nil {
		os.Exit(1)
	}
}
