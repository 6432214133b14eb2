package main

import (
	"os"

	"github.com/perihelion-labs/ldsi/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
