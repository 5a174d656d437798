package proc

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/oslab/mlqsim/internal/memdev"
	"github.com/oslab/mlqsim/internal/mm"
)

func newTestPCB(tb testing.TB) *PCB {
	tb.Helper()

	cfg := mm.Config{PageSize: 256, MaxPGN: 1024, MaxSymTableSize: 32}
	ram := memdev.New(64, cfg.PageSize)
	swap := memdev.New(64, cfg.PageSize)

	return New(1, "P0", 0, cfg, ram, swap, nil)
}

func TestAllocPrintsContractLine(tt *testing.T) {
	p := newTestPCB(tt)

	var out bytes.Buffer
	if err := p.Alloc(&out, 300, 1); err != nil {
		tt.Fatalf("unexpected error: %v", err)
	}

	want := "PID=1 - Region=1 - Address=00000000 - Size=300 byte\n"
	if out.String() != want {
		tt.Errorf("want %q, got %q", want, out.String())
	}

	if p.Regs[1] != 0 {
		tt.Errorf("want register 1 holding base address 0, got: %d", p.Regs[1])
	}
}

func TestAllocRejectsBadSizeAndRegister(tt *testing.T) {
	p := newTestPCB(tt)

	if err := p.Alloc(io.Discard, 0, 1); !errors.Is(err, ErrBadRegister) {
		tt.Errorf("want ErrBadRegister for size 0, got: %v", err)
	}

	if err := p.Alloc(io.Discard, 10, NumRegs); !errors.Is(err, ErrBadRegister) {
		tt.Errorf("want ErrBadRegister for an out-of-range register, got: %v", err)
	}
}

func TestFreeOnEmptyRegisterFails(tt *testing.T) {
	p := newTestPCB(tt)

	if err := p.Free(io.Discard, 2); !errors.Is(err, ErrEmptyRegister) {
		tt.Errorf("want ErrEmptyRegister, got: %v", err)
	}
}

func TestFreePrintsContractLineAndClearsRegister(tt *testing.T) {
	p := newTestPCB(tt)

	if err := p.Alloc(io.Discard, 50, 3); err != nil {
		tt.Fatalf("unexpected error: %v", err)
	}

	var out bytes.Buffer
	if err := p.Free(&out, 3); err != nil {
		tt.Fatalf("unexpected error: %v", err)
	}

	want := "PID=1 - Region=3\n"
	if out.String() != want {
		tt.Errorf("want %q, got %q", want, out.String())
	}

	if err := p.Free(io.Discard, 3); !errors.Is(err, ErrEmptyRegister) {
		tt.Errorf("freeing twice must fail with ErrEmptyRegister, got: %v", err)
	}
}

func TestReadWriteContractLines(tt *testing.T) {
	p := newTestPCB(tt)

	if err := p.Alloc(io.Discard, 10, 0); err != nil {
		tt.Fatalf("unexpected error: %v", err)
	}

	var writeOut bytes.Buffer
	if err := p.Write(&writeOut, 0x7a, 0, 4); err != nil {
		tt.Fatalf("unexpected error: %v", err)
	}

	wantWrite := "write region=0 offset=4 value=122\n"
	if writeOut.String() != wantWrite {
		tt.Errorf("want %q, got %q", wantWrite, writeOut.String())
	}

	var readOut bytes.Buffer
	v, err := p.Read(&readOut, 0, 4)
	if err != nil {
		tt.Fatalf("unexpected error: %v", err)
	}

	if v != 0x7a {
		tt.Errorf("want 0x7a, got: %#x", v)
	}

	wantRead := "read region=0 offset=4 value=122\n"
	if readOut.String() != wantRead {
		tt.Errorf("want %q, got %q", wantRead, readOut.String())
	}
}

func TestFreeRegionBasedAtAddressZero(tt *testing.T) {
	// The first allocation lands at virtual address 0, so its register slot
	// holds 0; Free must still recognize it as live via the symbol table.
	p := newTestPCB(tt)

	if err := p.Alloc(io.Discard, 16, 0); err != nil {
		tt.Fatalf("unexpected error: %v", err)
	}

	if p.Regs[0] != 0 {
		tt.Fatalf("want base address 0 in register 0, got: %d", p.Regs[0])
	}

	if err := p.Free(io.Discard, 0); err != nil {
		tt.Errorf("want free of the address-0 region to succeed, got: %v", err)
	}

	if err := p.Free(io.Discard, 0); !errors.Is(err, ErrEmptyRegister) {
		tt.Errorf("second free must fail with ErrEmptyRegister, got: %v", err)
	}
}
