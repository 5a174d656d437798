// Package kernel provides the Kernel: the value that owns the shared RAM
// and swap devices, the scheduler, and the table of live processes. There
// is no package-level state; tests construct a fresh Kernel per case.
package kernel

import (
	"sync"

	"github.com/oslab/mlqsim/internal/log"
	"github.com/oslab/mlqsim/internal/memdev"
	"github.com/oslab/mlqsim/internal/mm"
	"github.com/oslab/mlqsim/internal/proc"
	"github.com/oslab/mlqsim/internal/sched"
)

// Default device sizes, overridable per Kernel with options.
const (
	DefaultRAMFrames  = 64
	DefaultSwapFrames = 64
)

// Kernel owns the shared physical memory devices, the scheduler, and the
// table of live processes. It is the unit tests construct fresh per case.
type Kernel struct {
	mu sync.Mutex

	mmCfg mm.Config

	ram  *memdev.Device
	swap *memdev.Device

	sched *sched.Scheduler
	log   *log.Logger

	nextPID int
	procs   map[int]*proc.PCB
}

// Option configures a Kernel at construction time.
type Option func(*options)

type options struct {
	mmCfg      mm.Config
	schedCfg   sched.Config
	ramFrames  int
	swapFrames int
	logger     *log.Logger
}

// WithConfig overrides the per-process address-space sizing (page size,
// max page number, symbol table size).
func WithConfig(cfg mm.Config) Option {
	return func(o *options) { o.mmCfg = cfg }
}

// WithSchedConfig overrides the scheduler's mode and MLQ level count.
func WithSchedConfig(cfg sched.Config) Option {
	return func(o *options) { o.schedCfg = cfg }
}

// WithLogger overrides the kernel's logger, propagated to every process it
// spawns.
func WithLogger(logger *log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRAMFrames overrides the shared RAM device's frame count.
func WithRAMFrames(n int) Option {
	return func(o *options) { o.ramFrames = n }
}

// WithSwapFrames overrides the shared swap device's frame count.
func WithSwapFrames(n int) Option {
	return func(o *options) { o.swapFrames = n }
}

// New constructs a Kernel: a shared RAM device, a shared swap device, and
// an empty scheduler.
func New(opts ...Option) *Kernel {
	o := options{
		mmCfg:      mm.DefaultConfig,
		schedCfg:   sched.Config{Mode: sched.ModeMLQ, MaxPrio: sched.DefaultMaxPrio},
		ramFrames:  DefaultRAMFrames,
		swapFrames: DefaultSwapFrames,
	}

	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		o.logger = log.DefaultLogger()
	}

	if o.schedCfg.Logger == nil {
		o.schedCfg.Logger = o.logger
	}

	mmCfg := o.mmCfg.WithDefaults()

	return &Kernel{
		mmCfg: mmCfg,
		ram:   memdev.New(o.ramFrames, mmCfg.PageSize),
		swap:  memdev.New(o.swapFrames, mmCfg.PageSize),
		sched: sched.New(o.schedCfg),
		log:   o.logger,
		procs: make(map[int]*proc.PCB),
	}
}

// Spawn creates a new process with its own address space over the kernel's
// shared RAM/swap devices, registers it in the process table, and adds it
// to the scheduler's ready queues at the given priority.
func (k *Kernel) Spawn(path string, priority int) *proc.PCB {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.nextPID++

	p := proc.New(k.nextPID, path, priority, k.mmCfg, k.ram, k.swap, k.log)
	k.procs[p.PID] = p

	k.sched.AddProc(p) //nolint:errcheck // scheduler queue is not bounded below MaxQueueSize in practice

	return p
}

// Scheduler returns the kernel's scheduler, for callers driving dispatch
// directly (e.g. tests).
func (k *Kernel) Scheduler() *sched.Scheduler {
	return k.sched
}

// Destroy tears a process down: every frame it holds in RAM and in swap
// goes back to the shared devices' free lists, and it is removed from the
// process table. Callers are responsible for making sure the process is no
// longer on any scheduler queue.
func (k *Kernel) Destroy(p *proc.PCB) {
	p.AS.Release()

	k.mu.Lock()
	defer k.mu.Unlock()

	delete(k.procs, p.PID)
}
