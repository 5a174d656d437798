// Package memdev simulates byte-addressable physical memory devices: RAM and
// swap. Each device owns a flat byte array and a free-frame list, guarded by
// its own mutex so the device can be shared safely across address spaces
// independently of any address-space lock.
package memdev

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var deviceSeq uint64

// errMemDev is the sentinel family for this package.
var errMemDev = errors.New("memdev")

// ErrBadArg is returned for an out-of-range frame number or address.
var ErrBadArg = fmt.Errorf("%w: bad argument", errMemDev)

// ErrNoFreeFrame is returned by GetFreeFrame when the device is full.
var ErrNoFreeFrame = fmt.Errorf("%w: no free frame", errMemDev)

// Device is a byte-addressable physical memory device with a fixed number of
// page-sized frames. RAM and swap are both represented by a Device; the only
// difference is how a Kernel wires them to a process.
type Device struct {
	mu       sync.Mutex
	bytes    []byte
	pageSize int
	frames   int
	free     []int // stack of free frame numbers, LIFO
	id       uint64
}

// New creates a Device with the given number of frames, each pageSize bytes.
// All frames start free.
func New(frames, pageSize int) *Device {
	d := &Device{
		bytes:    make([]byte, frames*pageSize),
		pageSize: pageSize,
		frames:   frames,
		free:     make([]int, frames),
		id:       atomic.AddUint64(&deviceSeq, 1),
	}

	for i := 0; i < frames; i++ {
		// Store the free list in descending order: GetFreeFrame pops the tail,
		// so the first allocations are ascending and low-numbered, matching the teaching simulator's
		// expectation that scenario traces are reproducible.
		d.free[i] = frames - 1 - i
	}

	return d
}

// PageSize returns the device's page size in bytes.
func (d *Device) PageSize() int { return d.pageSize }

// Frames returns the total number of frames on the device.
func (d *Device) Frames() int { return d.frames }

// FreeFrames returns the number of frames currently on the free list.
func (d *Device) FreeFrames() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.free)
}

// GetFreeFrame pops a free frame number off the device's free list.
func (d *Device) GetFreeFrame() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.free) == 0 {
		return 0, ErrNoFreeFrame
	}

	n := len(d.free) - 1
	fpn := d.free[n]
	d.free = d.free[:n]

	return fpn, nil
}

// PutFreeFrame returns a frame number to the device's free list.
func (d *Device) PutFreeFrame(fpn int) error {
	if fpn < 0 || fpn >= d.frames {
		return fmt.Errorf("%w: frame %d", ErrBadArg, fpn)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.free = append(d.free, fpn)

	return nil
}

// ReadByte reads a single byte at a physical address.
func (d *Device) ReadByte(addr int) (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if addr < 0 || addr >= len(d.bytes) {
		return 0, fmt.Errorf("%w: addr %d", ErrBadArg, addr)
	}

	return d.bytes[addr], nil
}

// WriteByte writes a single byte at a physical address.
func (d *Device) WriteByte(addr int, b byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if addr < 0 || addr >= len(d.bytes) {
		return fmt.Errorf("%w: addr %d", ErrBadArg, addr)
	}

	d.bytes[addr] = b

	return nil
}

// ZeroFrame fills an entire frame with zero bytes. Used to install a
// never-touched page the first time it is faulted in.
func (d *Device) ZeroFrame(fpn int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	start, end, err := d.frameBounds(fpn)
	if err != nil {
		return err
	}

	clear(d.bytes[start:end])

	return nil
}

func (d *Device) frameBounds(fpn int) (int, int, error) {
	if fpn < 0 || fpn >= d.frames {
		return 0, 0, fmt.Errorf("%w: frame %d", ErrBadArg, fpn)
	}

	start := fpn * d.pageSize

	return start, start + d.pageSize, nil
}

// CopyPage copies one page-sized block of bytes from a frame on src to a
// frame on dst. src and dst may be the same device or different devices
// (e.g., RAM and swap); locks are taken in a fixed order (lower device id
// first) to avoid deadlock when copying in both directions concurrently.
func CopyPage(src *Device, srcFPN int, dst *Device, dstFPN int) error {
	if src.pageSize != dst.pageSize {
		return fmt.Errorf("%w: mismatched page size", ErrBadArg)
	}

	first, second := src, dst
	if first == second {
		// Copying within the same device: a single lock suffices.
		first.mu.Lock()
		defer first.mu.Unlock()

		ss, se, err := src.frameBounds(srcFPN)
		if err != nil {
			return err
		}

		ds, de, err := dst.frameBounds(dstFPN)
		if err != nil {
			return err
		}

		copy(dst.bytes[ds:de], src.bytes[ss:se])

		return nil
	}

	if first.id > second.id {
		first, second = second, first
	}

	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	ss, se, err := src.frameBounds(srcFPN)
	if err != nil {
		return err
	}

	ds, de, err := dst.frameBounds(dstFPN)
	if err != nil {
		return err
	}

	copy(dst.bytes[ds:de], src.bytes[ss:se])

	return nil
}
