// Package main is the snapdiff command-line entry point.
package main

import (
	"fmt"
	"os"

	"github.com/agenthands/snapdiff/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
