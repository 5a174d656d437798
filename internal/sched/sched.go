package sched

// sched.go implements the scheduler proper: single-queue and MLQ dispatch,
// selected by a Mode value rather than a build tag. A PCB never points back
// at a queue; ForEachQueue lets kill-by-name reach every queue without one.

import (
	"sync"

	"github.com/oslab/mlqsim/internal/log"
	"github.com/oslab/mlqsim/internal/proc"
)

// DefaultMaxPrio is the MLQ level count used when a Config leaves MaxPrio
// unset.
const DefaultMaxPrio = 8

// Mode selects which dispatch policy a Scheduler runs.
type Mode int

const (
	// ModeMLQ is the default, multi-level priority dispatcher.
	ModeMLQ Mode = iota
	// ModeSingle is the simple single-ready-queue dispatcher.
	ModeSingle
)

// Config carries the scheduler's sizing and mode. MaxPrio is the number of
// MLQ levels; it is a runtime value, not a compile-time constant, so tests
// can exercise small arrangements without rebuilding.
type Config struct {
	Mode    Mode
	MaxPrio int
	Logger  *log.Logger
}

// Scheduler is the cooperative dispatcher: either MaxPrio MLQ levels or one
// ready queue, plus the running list, all guarded by one mutex.
type Scheduler struct {
	mu sync.Mutex

	mode    Mode
	maxPrio int

	mlq  []*Queue
	slot []int

	currPrio int
	currSlot int

	ready   *Queue // used only in ModeSingle
	running *Queue

	log *log.Logger
}

// New creates a scheduler. Slot budgets are seeded as slot[p] = MaxPrio - p,
// so a numerically smaller (higher) priority gets a larger budget.
func New(cfg Config) *Scheduler {
	maxPrio := cfg.MaxPrio
	if maxPrio <= 0 {
		maxPrio = DefaultMaxPrio
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.DefaultLogger()
	}

	s := &Scheduler{
		mode:    cfg.Mode,
		maxPrio: maxPrio,
		mlq:     make([]*Queue, maxPrio),
		slot:    make([]int, maxPrio),
		ready:   NewQueue(),
		running: NewQueue(),
		log:     logger,
	}

	for p := 0; p < maxPrio; p++ {
		s.mlq[p] = NewQueue()
		s.slot[p] = maxPrio - p
	}

	s.currSlot = maxPrio

	return s
}

// queueEmpty reports whether every ready queue (all MLQ levels, or the
// single ready queue) is empty. Caller must hold s.mu.
func (s *Scheduler) queueEmpty() bool {
	if s.mode == ModeSingle {
		return s.ready.Empty()
	}

	for p := 0; p < s.maxPrio; p++ {
		if !s.mlq[p].Empty() {
			return false
		}
	}

	return true
}

// GetProc dequeues the next process to run, or nil if every ready queue is
// empty. The returned process is moved onto the running list.
func (s *Scheduler) GetProc() *proc.PCB {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queueEmpty() {
		return nil
	}

	var p *proc.PCB

	if s.mode == ModeSingle {
		p = s.ready.Dequeue()
	} else {
		p = s.getMLQProc()
	}

	if p != nil {
		s.running.Enqueue(p) //nolint:errcheck // running list is not size-bounded in practice

		s.log.Debug("dispatch",
			log.Any("pid", p.PID), log.Any("prio", p.Priority),
			log.Any("curr_prio", s.currPrio), log.Any("curr_slot", s.currSlot))
	}

	return p
}

// getMLQProc implements the stateful currPrio/currSlot transition. Caller
// must hold s.mu and have already checked queueEmpty.
func (s *Scheduler) getMLQProc() *proc.PCB {
	if s.currSlot > 0 && !s.mlq[s.currPrio].Empty() {
		s.currSlot--
		return s.mlq[s.currPrio].Dequeue()
	}

	// A full wrap, offsets 1..maxPrio, so the current level itself is
	// re-probed last: with its budget spent and every other level empty,
	// dispatch must restart its budget rather than stall.
	for offset := 1; offset <= s.maxPrio; offset++ {
		p := (s.currPrio + offset) % s.maxPrio
		if !s.mlq[p].Empty() {
			s.currPrio = p
			s.currSlot = s.slot[p] - 1

			return s.mlq[p].Dequeue()
		}
	}

	// queueEmpty already ruled out "nothing anywhere"; fall back to
	// priority 0.
	s.currPrio = 0
	s.currSlot = s.slot[0] - 1

	return s.mlq[0].Dequeue()
}

// AddProc enqueues a newly-spawned process at its priority level.
func (s *Scheduler) AddProc(p *proc.PCB) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode == ModeSingle {
		return s.ready.Enqueue(p)
	}

	return s.mlq[s.prioOf(p)].Enqueue(p)
}

// PutProc returns a preempted process to its ready queue, removing it from
// the running list first.
func (s *Scheduler) PutProc(p *proc.PCB) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running.Drain(func(q *proc.PCB) bool { return q != p })

	if s.mode == ModeSingle {
		return s.ready.Enqueue(p)
	}

	return s.mlq[s.prioOf(p)].Enqueue(p)
}

func (s *Scheduler) prioOf(p *proc.PCB) int {
	prio := p.Priority
	if prio < 0 {
		prio = 0
	}

	if prio >= s.maxPrio {
		prio = s.maxPrio - 1
	}

	return prio
}

// ForEachQueue calls f once for every queue a process may live in: the
// running list and either the single ready queue or every MLQ level. f runs
// with the scheduler lock held, so it must not call back into the
// Scheduler.
func (s *Scheduler) ForEachQueue(f func(*Queue)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f(s.running)

	if s.mode == ModeSingle {
		f(s.ready)
		return
	}

	for p := 0; p < s.maxPrio; p++ {
		f(s.mlq[p])
	}
}
