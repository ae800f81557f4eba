package main

import (
	"fmt"
	"os"

	"github.com/roach88/sorsync/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "sorsync:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
