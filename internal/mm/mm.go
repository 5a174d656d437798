// Package mm implements the per-process virtual memory manager: the VMA
// list, the symbol (region) table, the first-fit region allocator, VMA
// growth with overlap checking, and the demand-paging fault handler. An
// AddressSpace holds all of a process's memory state behind one mutex;
// every operation is a method with an explicit error return.
package mm

import (
	"errors"
	"fmt"
	"sync"

	"github.com/oslab/mlqsim/internal/log"
	"github.com/oslab/mlqsim/internal/memdev"
	"github.com/oslab/mlqsim/internal/paging"
)

// errMM is the sentinel family for this package.
var errMM = errors.New("mm")

// Sentinel errors for memory-management failures.
var (
	ErrBadArg       = fmt.Errorf("%w: bad argument", errMM)
	ErrNoSuchRegion = fmt.Errorf("%w: no such region", errMM)
	ErrAllocFailed  = fmt.Errorf("%w: alloc failed", errMM)
	ErrOverlapVMA   = fmt.Errorf("%w: overlapping vma", errMM)
	ErrNoVictim     = fmt.Errorf("%w: no victim page", errMM)
	ErrSwapFull     = fmt.Errorf("%w: swap full", errMM)
	ErrSwapIO       = fmt.Errorf("%w: swap io error", errMM)
	ErrPageFault    = fmt.Errorf("%w: page fault", errMM)
)

// Config carries the address-space sizing constants. Zero fields are
// replaced by DefaultConfig's values by New.
type Config struct {
	PageSize        int // PAGING_PAGESZ
	MaxPGN          int // PAGING_MAX_PGN
	MaxSymTableSize int // PAGING_MAX_SYMTBL_SZ
}

// DefaultConfig sizes an address space for interactive use; tests that need
// tiny page tables override PageSize/MaxPGN explicitly.
var DefaultConfig = Config{
	PageSize:        256,
	MaxPGN:          1024,
	MaxSymTableSize: 32,
}

// WithDefaults returns a copy of c with every zero field replaced by
// DefaultConfig's value. Callers that need to size shared devices before an
// AddressSpace exists (internal/kernel) use this directly; New applies it
// internally too.
func (c Config) WithDefaults() Config {
	return c.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.PageSize == 0 {
		c.PageSize = DefaultConfig.PageSize
	}

	if c.MaxPGN == 0 {
		c.MaxPGN = DefaultConfig.MaxPGN
	}

	if c.MaxSymTableSize == 0 {
		c.MaxSymTableSize = DefaultConfig.MaxSymTableSize
	}

	return c
}

// Region is a [Start, End) virtual address range. It is used both for live
// allocations (referenced from the symbol table) and for holes on a VMA's
// free list. The two populations never alias the same value: a region is
// copied by value whenever it moves from one list to the other, so there is
// no double-free or shared-node hazard.
type Region struct {
	Start, End int
}

func (r Region) empty() bool { return r.Start == 0 && r.End == 0 }
func (r Region) size() int   { return r.End - r.Start }

func (r Region) overlaps(o Region) bool {
	return r.Start < o.End && o.Start < r.End
}

// VMA is a virtual memory area: a contiguous, non-overlapping range of an
// address space, with its own program break and free-region list.
type VMA struct {
	ID    int
	Start int
	End   int
	Sbrk  int
	Free  []Region
}

// AddressSpace is the per-process memory state: page directory, VMA list,
// symbol table, and FIFO replacement queue, all guarded by one mutex.
type AddressSpace struct {
	mu sync.Mutex

	cfg Config

	pageDir paging.Directory
	vmas    []*VMA
	symtab  []Region
	fifo    *paging.FIFO

	ram  *memdev.Device
	swap *memdev.Device

	log *log.Logger
}

// New creates an address space with a single VMA (id 0) spanning
// [0, 0) — empty until grown by Alloc — and an empty symbol table.
func New(cfg Config, ram, swap *memdev.Device, logger *log.Logger) *AddressSpace {
	cfg = cfg.withDefaults()

	if logger == nil {
		logger = log.DefaultLogger()
	}

	as := &AddressSpace{
		cfg:     cfg,
		pageDir: paging.NewDirectory(cfg.MaxPGN),
		symtab:  make([]Region, cfg.MaxSymTableSize),
		fifo:    paging.NewFIFO(),
		ram:     ram,
		swap:    swap,
		log:     logger,
	}

	as.vmas = append(as.vmas, &VMA{ID: 0})

	return as
}

func (as *AddressSpace) vmaByID(vmaid int) *VMA {
	for _, v := range as.vmas {
		if v.ID == vmaid {
			return v
		}
	}

	return nil
}

// pageOf returns the page number and in-page offset of a virtual address.
func (as *AddressSpace) pageOf(vaddr int) (pgn, off int) {
	return vaddr / as.cfg.PageSize, vaddr % as.cfg.PageSize
}

// Release returns every frame the address space holds to the shared
// devices: resident pages go back to RAM's free list, evicted pages back to
// the swap device's free list. The page directory, symbol table, free lists,
// and replacement queue are cleared, so a torn-down process leaves no stale
// FIFO entries and no orphaned frames behind.
func (as *AddressSpace) Release() {
	as.mu.Lock()
	defer as.mu.Unlock()

	for pgn := range as.pageDir {
		pte := as.pageDir[pgn]

		switch {
		case pte.Present():
			if err := as.ram.PutFreeFrame(pte.Frame()); err != nil {
				as.log.Error("release: failed to return RAM frame", "err", err)
			}
		case pte.Swapped():
			if err := as.swap.PutFreeFrame(pte.SwapSlot()); err != nil {
				as.log.Error("release: failed to return swap slot", "err", err)
			}
		}

		as.pageDir[pgn].Clear()
	}

	for as.fifo.Len() > 0 {
		as.fifo.FindVictim() //nolint:errcheck // drained by the Len guard
	}

	for i := range as.symtab {
		as.symtab[i] = Region{}
	}

	for _, v := range as.vmas {
		v.Free = nil
	}
}
