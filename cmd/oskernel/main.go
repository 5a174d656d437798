// cmd/oskernel is the command-line interface to oskernel, a teaching
// operating-system simulator: demand-paged per-process virtual memory, an
// MLQ scheduler, and a kill-by-name system call.
package main

import (
	"context"
	"os"

	"github.com/oslab/mlqsim/internal/cli"
	"github.com/oslab/mlqsim/internal/cli/cmd"
)

var commands = []cli.Command{
	cmd.Run(),
	cmd.REPL(),
}

// Entry point.
func main() {
	result :=
		cli.New(context.Background()).
			WithLogger(os.Stderr).
			WithCommands(commands).
			WithHelp(cmd.Help(commands)).
			Execute(os.Args[1:])

	os.Exit(result)
}
