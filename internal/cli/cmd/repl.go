package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/oslab/mlqsim/internal/cli"
	"github.com/oslab/mlqsim/internal/console"
	"github.com/oslab/mlqsim/internal/kernel"
	"github.com/oslab/mlqsim/internal/log"
)

// REPL returns the "repl" subcommand: an interactive console, built on
// golang.org/x/term, that lets an operator drive the kernel by hand.
func REPL() cli.Command {
	return &repl{}
}

type repl struct {
	priority int
	path     string
}

func (repl) Description() string {
	return "interactive console for memory/kill operations"
}

func (repl) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `repl

Starts an interactive console. Type alloc/free/read/write/killall commands
and see each operation's trace line as it succeeds.`)

	return err
}

func (r *repl) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("repl", flag.ExitOnError)
	fs.IntVar(&r.priority, "priority", 0, "scheduling `priority` of the spawned process")
	fs.StringVar(&r.path, "name", "P0", "program `name` of the spawned process")

	return fs
}

func (r *repl) Run(_ context.Context, _ []string, _ io.Writer, logger *log.Logger) int {
	term, err := console.New(os.Stdin, os.Stdout)
	if err != nil {
		logger.Error("repl: console unavailable", "err", err)
		return 1
	}
	defer term.Restore()

	k := kernel.New(kernel.WithLogger(logger))
	caller := k.Spawn(r.path, r.priority)

	if err := term.Run(k, caller); err != nil {
		logger.Error("repl: terminated with error", "err", err)
		return 1
	}

	return 0
}
