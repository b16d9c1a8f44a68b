package main

import (
	"fmt"
	"os"

	"formdeck/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.New(version).Run(); err != nil {
		fmt.Fprintln(os.Stderr, "formctl:", err)
		os.Exit(1)
	}
}
