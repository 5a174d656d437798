package mm

// vma.go implements VMA growth and the overlap check.

import (
	"fmt"

	"github.com/oslab/mlqsim/internal/syscall"
)

// validateOverlapVMA rejects a prospective [start, end) range that overlaps
// any VMA other than the one being grown.
func (as *AddressSpace) validateOverlapVMA(vmaid, start, end int) error {
	prospective := Region{Start: start, End: end}

	for _, v := range as.vmas {
		if v.ID == vmaid {
			continue
		}

		if prospective.overlaps(Region{Start: v.Start, End: v.End}) {
			return fmt.Errorf("%w: vma %d overlaps vma %d", ErrOverlapVMA, vmaid, v.ID)
		}
	}

	return nil
}

// incVMALimit grows vma by incSz bytes (page-aligned by the caller),
// announcing the new range via the INC sys_memmap sub-op. On any failure it
// leaves vm_end and sbrk untouched.
func (as *AddressSpace) incVMALimit(vma *VMA, incSz int) error {
	oldEnd := vma.End
	oldSbrk := vma.Sbrk

	newEnd := oldSbrk + incSz

	if newEnd > len(as.pageDir)*as.cfg.PageSize {
		return fmt.Errorf("%w: growth to %d exceeds the page directory", ErrBadArg, newEnd)
	}

	if err := as.validateOverlapVMA(vma.ID, oldSbrk, newEnd); err != nil {
		return err
	}

	incPages := incSz / as.cfg.PageSize

	regs := syscall.Regs{A1: syscall.OpInc, A2: vma.ID, A3: incPages}
	if err := syscall.Dispatch(syscall.MemMap, &regs, as.ram, as.swap); err != nil {
		return err
	}

	// Install not-present (untouched) PTEs for the new range rather than
	// eagerly reserving frames: pages in the grown range are faulted in
	// lazily by resolve, which is already responsible for zero-filling a
	// never-touched page. Keeping frame allocation entirely inside the
	// fault handler means growth can never run RAM out by itself.
	for pgn := oldEnd / as.cfg.PageSize; pgn < newEnd/as.cfg.PageSize; pgn++ {
		if pgn >= 0 && pgn < len(as.pageDir) {
			as.pageDir[pgn].Clear()
		}
	}

	vma.End = newEnd
	vma.Sbrk = newEnd

	return nil
}
