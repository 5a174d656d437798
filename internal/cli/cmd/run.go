package cmd

import (
	"bufio"
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

// Run returns the "run" subcommand: it executes a scripted scenario of
// alloc/free/read/write/killall operations against a fresh kernel.
func Run() cli.Command {
	return &runner{}
}

type runner struct {
	priority int
	path     string
}

func (runner) Description() string {
	return "run a scenario script of memory/kill operations"
}

func (runner) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `run scenario.txt

Executes a scripted sequence of alloc/free/read/write/killall commands
against a fresh kernel and a single spawned process, printing each
operation's trace line as it succeeds.`)

	return err
}

func (r *runner) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	fs.IntVar(&r.priority, "priority", 0, "scheduling `priority` of the spawned process")
	fs.StringVar(&r.path, "name", "P0", "program `name` of the spawned process")

	return fs
}

// Run executes every line of the named scenario file as one console
// command against a freshly constructed kernel.
func (r *runner) Run(_ context.Context, args []string, out io.Writer, logger *log.Logger) int {
	if len(args) != 1 {
		fmt.Fprintln(out, "run: exactly one scenario file is required")
		return 1
	}

	file, err := os.Open(args[0])
	if err != nil {
		logger.Error("run: failed to open scenario", "err", err)
		return 1
	}
	defer file.Close()

	k := kernel.New(kernel.WithLogger(logger))
	caller := k.Spawn(r.path, r.priority)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if err := console.Dispatch(out, k, caller, scanner.Text()); err != nil && err != io.EOF {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}

	if err := scanner.Err(); err != nil {
		logger.Error("run: scenario read error", "err", err)
		return 1
	}

	return 0
}
