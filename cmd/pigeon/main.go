package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/xiaowei-guan/pigeon/internal/cli"
	"github.com/xiaowei-guan/pigeon/internal/ir"
)

// main runs the root command and exits with the code carried by the
// returned error.
func main() {
	cmd := cli.NewRootCommand()
	cmd.Version = ir.GeneratorVersion

	if err := cmd.Execute(); err != nil {
		// Commands report their own failures; anything else is a usage error.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
