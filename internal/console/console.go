// Package console provides an interactive terminal front-end for the
// kernel: a raw-mode line prompt that accepts alloc/free/read/write/killall
// commands and prints each operation's trace line as it completes.
package console

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/oslab/mlqsim/internal/kernel"
	"github.com/oslab/mlqsim/internal/proc"
)

// ErrNoTTY is returned if standard input is not a terminal.
var ErrNoTTY = errors.New("console: not a TTY")

// Console is a raw-mode terminal prompt over a *term.Terminal.
type Console struct {
	fd    int
	out   *term.Terminal
	state *term.State
}

// New creates a Console using the provided streams. If sin is not a
// terminal, ErrNoTTY is returned. Callers must call Restore to return the
// terminal to its initial state.
func New(sin, sout *os.File) (*Console, error) {
	fd := int(sin.Fd())

	if !term.IsTerminal(fd) {
		return nil, ErrNoTTY
	}

	saved, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoTTY, err)
	}

	return &Console{
		fd:    fd,
		out:   term.NewTerminal(sin, "oskernel> "),
		state: saved,
	}, nil
}

// Restore returns the terminal to its initial state.
func (c *Console) Restore() {
	_ = term.Restore(c.fd, c.state)
}

// Run reads commands from the console until the input is closed or a "quit"
// command is read, dispatching each to caller's library entry points or to
// k's kill-by-name service. Output goes to the console's own terminal.
func (c *Console) Run(k *kernel.Kernel, caller *proc.PCB) error {
	for {
		line, err := c.out.ReadLine()
		if err != nil {
			if err == io.EOF {
				return nil
			}

			return err
		}

		err = Dispatch(c.out, k, caller, line)
		if err == io.EOF {
			return nil
		}

		if err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
	}
}

// Dispatch parses and executes one command line against caller, writing
// the operation trace lines to out. It returns io.EOF for "quit"/
// "exit", so both the interactive Console and a non-interactive scenario
// runner (internal/cli/cmd's run command) can share one line interpreter.
func Dispatch(out io.Writer, k *kernel.Kernel, caller *proc.PCB, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	args := fields[1:]

	switch fields[0] {
	case "quit", "exit":
		return io.EOF

	case "alloc":
		size, reg, err := twoInts(args)
		if err != nil {
			return err
		}

		return caller.Alloc(out, size, reg)

	case "free":
		reg, err := oneInt(args)
		if err != nil {
			return err
		}

		return caller.Free(out, reg)

	case "read":
		reg, off, err := twoInts(args)
		if err != nil {
			return err
		}

		_, err = caller.Read(out, reg, off)

		return err

	case "write":
		if len(args) != 3 {
			return fmt.Errorf("write: want 3 args, got %d", len(args))
		}

		value, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}

		reg, off, err := twoInts(args[1:])
		if err != nil {
			return err
		}

		return caller.Write(out, byte(value), reg, off)

	case "killall":
		if len(args) != 1 {
			return fmt.Errorf("killall: want 1 arg, got %d", len(args))
		}

		reg, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("killall: region argument must hold a name, not %q", args[0])
		}

		_, err = k.KillByName(caller, out, reg)

		return err

	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
}

func oneInt(args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("want 1 argument, got %d", len(args))
	}

	return strconv.Atoi(args[0])
}

func twoInts(args []string) (int, int, error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("want 2 arguments, got %d", len(args))
	}

	a, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, err
	}

	b, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, err
	}

	return a, b, nil
}
