package paging

// fifo.go implements the FIFO page-replacement queue: a strict
// insertion-order queue of resident page numbers. The head is always the
// next eviction victim; there is no second-chance or clock bit.

import "errors"

// ErrEmpty is returned by FindVictim when no page is resident.
var ErrEmpty = errors.New("paging: fifo queue empty")

// FIFO is the replacement queue. It is address-space-local; callers hold the
// owning address space's lock across any sequence of Enlist/FindVictim calls
// that must appear atomic.
type FIFO struct {
	pages []int
}

// NewFIFO creates an empty replacement queue.
func NewFIFO() *FIFO {
	return &FIFO{}
}

// Enlist appends a page number to the tail of the queue.
func (f *FIFO) Enlist(pgn int) {
	f.pages = append(f.pages, pgn)
}

// FindVictim pops and returns the page number at the head of the queue.
func (f *FIFO) FindVictim() (int, error) {
	if len(f.pages) == 0 {
		return 0, ErrEmpty
	}

	pgn := f.pages[0]
	f.pages = f.pages[1:]

	return pgn, nil
}

// Remove deletes the first occurrence of a page number from the queue,
// wherever in the queue it sits.
func (f *FIFO) Remove(pgn int) {
	for i, p := range f.pages {
		if p == pgn {
			f.pages = append(f.pages[:i], f.pages[i+1:]...)
			return
		}
	}
}

// Len returns the number of resident pages tracked by the queue.
func (f *FIFO) Len() int { return len(f.pages) }
