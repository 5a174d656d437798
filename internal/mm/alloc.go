package mm

// alloc.go implements the region allocator: first-fit over a VMA's
// free-region list, falling back to VMA growth, and the symbol-table-backed
// Free.

import (
	"fmt"

	"github.com/oslab/mlqsim/internal/log"
)

// roundUp rounds size up to the next multiple of page.
func roundUp(size, page int) int {
	if size%page == 0 {
		return size
	}

	return (size/page + 1) * page
}

// getFreeVMRgArea scans a VMA's free-region list head-to-tail for the first
// hole at least size bytes long (first-fit, not best-fit). On a hit, it
// carves [s, s+size) out of the hole, shrinking or unlinking the free node,
// and returns the carved region.
func (as *AddressSpace) getFreeVMRgArea(vma *VMA, size int) (Region, bool) {
	for i, hole := range vma.Free {
		if hole.size() < size {
			continue
		}

		carved := Region{Start: hole.Start, End: hole.Start + size}
		remainder := Region{Start: hole.Start + size, End: hole.End}

		if remainder.size() == 0 {
			vma.Free = append(vma.Free[:i], vma.Free[i+1:]...)
		} else {
			vma.Free[i] = remainder
		}

		return carved, true
	}

	return Region{}, false
}

// Alloc allocates size bytes inside vmaid: first-fit over the VMA's free
// list, falling back to growing the VMA via incVMALimit. On success it
// records the allocation in symbol-table slot rgid and returns its base
// virtual address.
func (as *AddressSpace) Alloc(vmaid, rgid, size int) (int, error) {
	as.mu.Lock()
	defer as.mu.Unlock()

	if size <= 0 {
		return 0, fmt.Errorf("%w: size %d", ErrBadArg, size)
	}

	if rgid < 0 || rgid >= len(as.symtab) {
		return 0, fmt.Errorf("%w: rgid %d", ErrBadArg, rgid)
	}

	vma := as.vmaByID(vmaid)
	if vma == nil {
		return 0, fmt.Errorf("%w: vmaid %d", ErrBadArg, vmaid)
	}

	if hole, ok := as.getFreeVMRgArea(vma, size); ok {
		as.symtab[rgid] = hole

		as.log.Debug("alloc: reused free region", log.Any("region", hole))

		return hole.Start, nil
	}

	oldSbrk := vma.Sbrk
	incSz := roundUp(size, as.cfg.PageSize)

	if err := as.incVMALimit(vma, incSz); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrAllocFailed, err)
	}

	if incSz > size {
		vma.Free = append(vma.Free, Region{Start: oldSbrk + size, End: oldSbrk + incSz})
	}

	region := Region{Start: oldSbrk, End: oldSbrk + size}
	as.symtab[rgid] = region

	as.log.Debug("alloc: grew vma", log.Any("region", region))

	return oldSbrk, nil
}

// Free clears symbol-table slot rgid and returns its region to the owning
// VMA's free list. A cleared or out-of-range slot fails with
// ErrNoSuchRegion. Holes are not coalesced; reuse relies on first-fit
// finding one big enough.
func (as *AddressSpace) Free(vmaid, rgid int) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if rgid < 0 || rgid >= len(as.symtab) {
		return fmt.Errorf("%w: rgid %d", ErrNoSuchRegion, rgid)
	}

	region := as.symtab[rgid]
	if region.empty() {
		return fmt.Errorf("%w: rgid %d is empty", ErrNoSuchRegion, rgid)
	}

	vma := as.vmaByID(vmaid)
	if vma == nil {
		return fmt.Errorf("%w: vmaid %d", ErrBadArg, vmaid)
	}

	vma.Free = append(vma.Free, region)
	as.symtab[rgid] = Region{}

	as.log.Debug("free: released region", log.Any("region", region))

	return nil
}
