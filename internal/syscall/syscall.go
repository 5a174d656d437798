// Package syscall implements sys_memmap, the single memory-related system
// call, multiplexing INC/SWAP/IO_READ/IO_WRITE sub-operations over a
// process's RAM and swap devices. It is pure mechanism: it knows nothing
// about address spaces or schedulers, only devices and frame numbers.
package syscall

import (
	"errors"
	"fmt"

	"github.com/oslab/mlqsim/internal/memdev"
)

// MemMap is the call number for sys_memmap.
const MemMap = 17

// Sub-operations of sys_memmap. The values are fixed; producers and
// consumers agree on them as part of the call ABI.
const (
	OpInc     = 0
	OpIORead  = 1
	OpIOWrite = 2
	OpSwap    = 3
)

// Regs is the three-word argument block (a1, a2, a3) of a system call. It
// is a plain value; callers keep it on the stack.
type Regs struct {
	A1 int // sub-op selector
	A2 int // operand 1
	A3 int // operand 2 / result
}

var errSyscall = errors.New("syscall")

// ErrBadCall is returned for an unrecognized call number or sub-op.
var ErrBadCall = fmt.Errorf("%w: bad call", errSyscall)

// Dispatch executes one sys_memmap sub-operation.
//
// SWAP direction is fixed by convention, not by a fourth argument: A2
// names the source frame and A3 the destination frame,
// and OpSwap always copies RAM[A2] to SWAP[A3] — i.e., it only ever performs
// the eviction direction. A caller that needs the reverse direction
// (bringing a page back from swap into RAM) is responsible for performing
// that copy itself via memdev.CopyPage rather than through Dispatch; see
// internal/mm/fault.go's resolve, which does exactly that.
func Dispatch(call int, regs *Regs, ram, swap *memdev.Device) error {
	if call != MemMap {
		return fmt.Errorf("%w: call %d", ErrBadCall, call)
	}

	switch regs.A1 {
	case OpInc:
		// Growth installs only not-present PTEs; the frame each new page
		// actually needs is pulled from RAM's free list on its first
		// fault. INC's syscall leg is a no-op so growth is still routed
		// through the same uniform call surface as every other memory
		// operation.
		return nil

	case OpIORead:
		b, err := ram.ReadByte(regs.A2)
		if err != nil {
			return fmt.Errorf("%w: io_read: %w", errSyscall, err)
		}

		regs.A3 = int(b)

		return nil

	case OpIOWrite:
		if err := ram.WriteByte(regs.A2, byte(regs.A3)); err != nil {
			return fmt.Errorf("%w: io_write: %w", errSyscall, err)
		}

		return nil

	case OpSwap:
		if err := memdev.CopyPage(ram, regs.A2, swap, regs.A3); err != nil {
			return fmt.Errorf("%w: swap: %w", errSyscall, err)
		}

		return nil

	default:
		return fmt.Errorf("%w: sub-op %d", ErrBadCall, regs.A1)
	}
}
