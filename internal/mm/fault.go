package mm

// fault.go implements the page-table lookup, the page-fault handler, and
// the byte reader/writer.

import (
	"errors"
	"fmt"

	"github.com/oslab/mlqsim/internal/log"
	"github.com/oslab/mlqsim/internal/memdev"
	"github.com/oslab/mlqsim/internal/paging"
	"github.com/oslab/mlqsim/internal/syscall"
)

// resolve returns the RAM frame number backing virtual page pgn, faulting
// the page in if necessary. Callers must hold as.mu; the victim-select,
// swap-I/O, and PTE-update steps form one critical section.
//
// A not-present PTE is not automatically an eviction: VMA growth only
// installs not-present PTEs for newly grown pages, so the first fault on
// any such page is served directly from RAM's free-frame list when one is
// available. Eviction via the FIFO is the fallback once RAM is actually
// full, not the only path.
func (as *AddressSpace) resolve(pgn int) (int, error) {
	if pgn < 0 || pgn >= len(as.pageDir) {
		return 0, fmt.Errorf("%w: pgn %d", ErrBadArg, pgn)
	}

	pte := as.pageDir[pgn]
	if pte.Present() {
		return pte.Frame(), nil
	}

	if fpn, err := as.ram.GetFreeFrame(); err == nil {
		return as.installFreeFrame(pgn, pte, fpn)
	} else if !errors.Is(err, memdev.ErrNoFreeFrame) {
		return 0, fmt.Errorf("%w: %w", ErrSwapIO, err)
	}

	return as.resolveByEviction(pgn, pte)
}

// installFreeFrame completes a fault using a frame popped fresh off RAM's
// free list: bring the faulting page's content into fpn (zero-filling a
// never-touched page, or copying its content back from its swap slot),
// mark the PTE present, and enlist pgn on the FIFO tail. No victim is
// needed on this path.
func (as *AddressSpace) installFreeFrame(pgn int, pte paging.PTE, fpn int) (int, error) {
	if pte.Touched() {
		tgtfpn := pte.SwapSlot()

		if err := memdev.CopyPage(as.swap, tgtfpn, as.ram, fpn); err != nil {
			as.ram.PutFreeFrame(fpn) //nolint:errcheck // best-effort rollback
			return 0, fmt.Errorf("%w: %w", ErrSwapIO, err)
		}

		if err := as.swap.PutFreeFrame(tgtfpn); err != nil {
			as.log.Error("resolve: failed to release swap slot", "err", err)
		}
	} else if err := as.ram.ZeroFrame(fpn); err != nil {
		as.ram.PutFreeFrame(fpn) //nolint:errcheck // best-effort rollback
		return 0, fmt.Errorf("%w: %w", ErrSwapIO, err)
	}

	var newpte paging.PTE
	newpte.SetPresent(fpn)
	as.pageDir[pgn] = newpte

	as.fifo.Enlist(pgn)

	as.log.Debug("resolve: page fault serviced from a free frame",
		log.Any("pgn", pgn), log.Any("frame", fpn))

	return fpn, nil
}

// resolveByEviction services a fault once RAM has no free frame left: pick
// a FIFO victim, evict it to swap, and bring the faulting page into the
// frame it vacates.
func (as *AddressSpace) resolveByEviction(pgn int, pte paging.PTE) (int, error) {
	vicpgn, err := as.fifo.FindVictim()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrNoVictim, err)
	}

	swpfpn, err := as.swap.GetFreeFrame()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSwapFull, err)
	}

	vicpte := as.pageDir[vicpgn]
	vicfpn := vicpte.Frame()

	touched := pte.Touched()
	tgtfpn := 0

	if touched {
		tgtfpn = pte.SwapSlot()
	}

	// Evict the victim, RAM[vicfpn] -> SWAP[swpfpn].
	regs := syscall.Regs{A1: syscall.OpSwap, A2: vicfpn, A3: swpfpn}
	if err := syscall.Dispatch(syscall.MemMap, &regs, as.ram, as.swap); err != nil {
		as.swap.PutFreeFrame(swpfpn) //nolint:errcheck // best-effort rollback
		return 0, fmt.Errorf("%w: %w", ErrSwapIO, err)
	}

	// Bring the target in. A never-touched page has no swap content to
	// copy and is zero-filled instead; otherwise copy SWAP[tgtfpn] ->
	// RAM[vicfpn], the reverse of the direction Dispatch encodes, so it is
	// done directly (see internal/syscall doc comment).
	if touched {
		if err := memdev.CopyPage(as.swap, tgtfpn, as.ram, vicfpn); err != nil {
			as.restoreAfterFailedFault(vicpgn, vicpte, swpfpn)
			return 0, fmt.Errorf("%w: %w", ErrSwapIO, err)
		}

		if err := as.swap.PutFreeFrame(tgtfpn); err != nil {
			as.log.Error("resolve: failed to release swap slot", "err", err)
		}
	} else {
		if err := as.ram.ZeroFrame(vicfpn); err != nil {
			as.restoreAfterFailedFault(vicpgn, vicpte, swpfpn)
			return 0, fmt.Errorf("%w: %w", ErrSwapIO, err)
		}
	}

	// Commit both PTEs only after the copies succeeded.
	vicpte.SetSwapped(swpfpn)
	as.pageDir[vicpgn] = vicpte

	var newpte paging.PTE
	newpte.SetPresent(vicfpn)
	as.pageDir[pgn] = newpte

	as.fifo.Enlist(pgn)

	as.log.Debug("resolve: page fault serviced by eviction",
		log.Any("pgn", pgn), log.Any("victim", vicpgn), log.Any("frame", vicfpn))

	return vicfpn, nil
}

// restoreAfterFailedFault undoes the victim eviction when the bring-in leg
// of a fault fails, leaving both PTEs in their pre-fault state.
func (as *AddressSpace) restoreAfterFailedFault(vicpgn int, vicpte paging.PTE, swpfpn int) {
	as.pageDir[vicpgn] = vicpte
	as.fifo.Enlist(vicpgn)

	if err := as.swap.PutFreeFrame(swpfpn); err != nil {
		as.log.Error("restoreAfterFailedFault: failed to release swap slot", "err", err)
	}
}

// ReadByte reads one byte from the live region at symbol-table slot rgid,
// offset bytes from its base.
func (as *AddressSpace) ReadByte(rgid, offset int) (byte, error) {
	as.mu.Lock()
	defer as.mu.Unlock()

	vaddr, err := as.regionAddr(rgid, offset)
	if err != nil {
		return 0, err
	}

	pgn, off := as.pageOf(vaddr)

	fpn, err := as.resolve(pgn)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPageFault, err)
	}

	phys := fpn*as.cfg.PageSize + off

	regs := syscall.Regs{A1: syscall.OpIORead, A2: phys}
	if err := syscall.Dispatch(syscall.MemMap, &regs, as.ram, as.swap); err != nil {
		return 0, err
	}

	return byte(regs.A3), nil
}

// WriteByte writes one byte to the live region at symbol-table slot rgid,
// offset bytes from its base, and marks the backing page dirty.
func (as *AddressSpace) WriteByte(rgid, offset int, b byte) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	vaddr, err := as.regionAddr(rgid, offset)
	if err != nil {
		return err
	}

	pgn, off := as.pageOf(vaddr)

	fpn, err := as.resolve(pgn)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPageFault, err)
	}

	phys := fpn*as.cfg.PageSize + off

	regs := syscall.Regs{A1: syscall.OpIOWrite, A2: phys, A3: int(b)}
	if err := syscall.Dispatch(syscall.MemMap, &regs, as.ram, as.swap); err != nil {
		return err
	}

	as.pageDir[pgn].SetDirty()

	return nil
}

// regionAddr validates rgid and offset against the live region recorded in
// the symbol table and returns the absolute virtual address.
func (as *AddressSpace) regionAddr(rgid, offset int) (int, error) {
	if rgid < 0 || rgid >= len(as.symtab) {
		return 0, fmt.Errorf("%w: rgid %d", ErrBadArg, rgid)
	}

	region := as.symtab[rgid]
	if region.empty() {
		return 0, fmt.Errorf("%w: rgid %d", ErrNoSuchRegion, rgid)
	}

	if offset < 0 || region.Start+offset >= region.End {
		return 0, fmt.Errorf("%w: offset %d", ErrBadArg, offset)
	}

	return region.Start + offset, nil
}
