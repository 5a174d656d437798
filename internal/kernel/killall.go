package kernel

// killall.go implements KillByName, the kill-by-name syscall service:
// extract the target name from the caller's virtual memory one byte at a
// time, then drain and re-enqueue every scheduler queue, terminating PCBs
// whose path matches.

import (
	"fmt"
	"io"

	"github.com/oslab/mlqsim/internal/proc"
	"github.com/oslab/mlqsim/internal/sched"
)

// maxNameLen caps an extracted process name.
const maxNameLen = 99

// nameTerminatorByte is the sentinel terminator accepted in addition to
// NUL; 0xFFFFFFFF truncates to 255 regardless of the caller's word width,
// so a single byte check covers it.
const nameTerminatorByte = 0xFF

// readName copies the process name out of the caller's memory region memrg,
// one byte at a time, terminating on NUL, the 0xFFFFFFFF sentinel, a
// non-ASCII byte, a read error, or the length cap.
func readName(caller *proc.PCB, out io.Writer, memrg int) (string, error) {
	var name []byte

	for i := 0; i < maxNameLen; i++ {
		v, err := caller.Read(io.Discard, memrg, i)
		if err != nil {
			// A read error mid-name terminates the copy; failing before
			// the first byte means no name could be copied at all.
			if len(name) == 0 {
				return "", err
			}

			break
		}

		if v == 0 || v == nameTerminatorByte {
			break
		}

		if v < 1 || v > 127 {
			break
		}

		name = append(name, byte(v))
	}

	fmt.Fprintf(out, "The procname retrieved from memregionid %d is %q\n", memrg, string(name))

	return string(name), nil
}

// KillByName walks the running list and every ready queue (MLQ levels, or
// the single ready queue in ModeSingle), terminating every PCB whose Path
// equals the name extracted from memrg. Survivors keep their relative order
// in each queue. It returns the count terminated, or -1 if the name could
// not be read; a name that matches nothing terminates zero processes and is
// not an error.
func (k *Kernel) KillByName(caller *proc.PCB, out io.Writer, memrg int) (int, error) {
	name, err := readName(caller, out, memrg)
	if err != nil {
		return -1, nil
	}

	var victims []*proc.PCB

	k.sched.ForEachQueue(func(q *sched.Queue) {
		q.Drain(func(p *proc.PCB) bool {
			if p.Path != name {
				return true
			}

			fmt.Fprintf(out, "Terminating ... pid=%d, name=%s\n", p.PID, p.Path)

			for j, base := range p.Regs {
				if base != 0 {
					p.Free(io.Discard, j) //nolint:errcheck // best-effort release during teardown
				}
			}

			victims = append(victims, p)

			return false
		})
	})

	// Destroy outside ForEachQueue: Destroy takes the kernel lock, and
	// Spawn takes it before the scheduler lock, so taking it here while
	// the scheduler lock is still held would invert that order.
	for _, p := range victims {
		k.Destroy(p)
	}

	fmt.Fprintf(out, "Total %d processes named %q terminated\n", len(victims), name)

	return len(victims), nil
}
