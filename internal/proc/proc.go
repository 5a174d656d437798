// Package proc implements the process control block and the four
// memory-facing library entry points simulated programs call: alloc, free,
// read, and write. Each successful operation prints one deterministic trace
// line to the writer the caller supplies.
package proc

import (
	"errors"
	"fmt"
	"io"

	"github.com/oslab/mlqsim/internal/log"
	"github.com/oslab/mlqsim/internal/memdev"
	"github.com/oslab/mlqsim/internal/mm"
)

// errProc is the sentinel family for this package.
var errProc = errors.New("proc")

// ErrBadRegister is returned when a register index is outside the register
// file, or Alloc is asked for size 0.
var ErrBadRegister = fmt.Errorf("%w: bad register", errProc)

// ErrEmptyRegister is returned by Free when the addressed slot holds no
// live region; freeing twice is a normal, expected failure, not a
// programming error.
var ErrEmptyRegister = fmt.Errorf("%w: empty register", errProc)

// NumRegs is the register file size.
const NumRegs = 10

// PCB is the process control block: process id, program path, scheduling
// priority, program counter, register file, and the address space and
// devices it owns. A PCB holds no back-reference to any scheduler queue;
// kill-by-name instead walks the scheduler's queues directly via
// Scheduler.ForEachQueue.
type PCB struct {
	PID      int
	Path     string
	Priority int
	PC       int

	// Regs holds virtual base addresses returned by Alloc, indexed by
	// register id. A zero entry is either a free slot or a live region based
	// at address 0; the address space's symbol table decides which.
	Regs [NumRegs]int

	AS   *mm.AddressSpace
	RAM  *memdev.Device
	Swap *memdev.Device

	log *log.Logger
}

// New creates a PCB backed by its own address space over the shared ram and
// swap devices.
func New(pid int, path string, priority int, cfg mm.Config, ram, swap *memdev.Device, logger *log.Logger) *PCB {
	if logger == nil {
		logger = log.DefaultLogger()
	}

	return &PCB{
		PID:      pid,
		Path:     path,
		Priority: priority,
		AS:       mm.New(cfg, ram, swap, logger),
		RAM:      ram,
		Swap:     swap,
		log:      logger,
	}
}

// Alloc allocates size bytes in VMA 0, stashes the base address in
// register regIdx, and emits the trace line on success.
func (p *PCB) Alloc(out io.Writer, size, regIdx int) error {
	if size <= 0 {
		return fmt.Errorf("%w: size %d", ErrBadRegister, size)
	}

	if regIdx < 0 || regIdx >= NumRegs {
		return fmt.Errorf("%w: register %d", ErrBadRegister, regIdx)
	}

	vaddr, err := p.AS.Alloc(0, regIdx, size)
	if err != nil {
		return err
	}

	p.Regs[regIdx] = vaddr

	fmt.Fprintf(out, "PID=%d - Region=%d - Address=%08d - Size=%d byte\n", p.PID, regIdx, vaddr, size)

	return nil
}

// Free frees the region whose base lives in register regIdx. Calling it on
// an already-cleared slot fails with ErrEmptyRegister and prints no trace
// line; the error is returned as is, not as an integer status. Liveness is judged by the
// symbol table, not the register value: a region based at address 0 leaves
// a zero in its register yet is still live.
func (p *PCB) Free(out io.Writer, regIdx int) error {
	if regIdx < 0 || regIdx >= NumRegs {
		return fmt.Errorf("%w: register %d", ErrBadRegister, regIdx)
	}

	if err := p.AS.Free(0, regIdx); err != nil {
		if errors.Is(err, mm.ErrNoSuchRegion) {
			return ErrEmptyRegister
		}

		return err
	}

	p.Regs[regIdx] = 0

	fmt.Fprintf(out, "PID=%d - Region=%d\n", p.PID, regIdx)

	return nil
}

// Read reads one byte at offset into the region addressed by regIdx,
// zero-extending it to an int.
func (p *PCB) Read(out io.Writer, regIdx, offset int) (int, error) {
	b, err := p.AS.ReadByte(regIdx, offset)
	if err != nil {
		return 0, err
	}

	fmt.Fprintf(out, "read region=%d offset=%d value=%d\n", regIdx, offset, b)

	return int(b), nil
}

// Write writes one byte at offset into the region addressed by regIdx.
func (p *PCB) Write(out io.Writer, value byte, regIdx, offset int) error {
	if err := p.AS.WriteByte(regIdx, offset, value); err != nil {
		return err
	}

	fmt.Fprintf(out, "write region=%d offset=%d value=%d\n", regIdx, offset, value)

	return nil
}
