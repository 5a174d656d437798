// Package sched implements the process-queue primitive and the MLQ/single
// scheduler: a bounded queue with priority/insertion-order dequeue, and a
// dispatcher built on top of it.
package sched

import (
	"errors"
	"fmt"

	"github.com/oslab/mlqsim/internal/proc"
)

// errSched is the sentinel family for this package.
var errSched = errors.New("sched")

// ErrQueueFull is returned by Enqueue when a queue is at MaxQueueSize.
var ErrQueueFull = fmt.Errorf("%w: queue full", errSched)

// MaxQueueSize bounds a single Queue.
const MaxQueueSize = 64

// Queue is a bounded, priority-ordered collection of process handles. It
// holds no back-reference to the scheduler or to any PCB; the PCB's
// priority field is read, never written, by Dequeue.
type Queue struct {
	procs []*proc.PCB
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Empty reports whether the queue holds no processes. A nil queue is
// considered empty, so an optional queue a variant never builds can be
// walked without a guard.
func (q *Queue) Empty() bool {
	return q == nil || len(q.procs) == 0
}

// Len returns the number of processes currently enqueued.
func (q *Queue) Len() int {
	if q == nil {
		return 0
	}

	return len(q.procs)
}

// Enqueue appends a process to the tail of the queue.
func (q *Queue) Enqueue(p *proc.PCB) error {
	if len(q.procs) >= MaxQueueSize {
		return ErrQueueFull
	}

	q.procs = append(q.procs, p)

	return nil
}

// Dequeue removes and returns the process with the numerically smallest
// priority (highest scheduling priority); ties break by insertion order,
// i.e., the earliest-enqueued of the tied processes wins. Returns nil if the
// queue is empty.
func (q *Queue) Dequeue() *proc.PCB {
	if q.Empty() {
		return nil
	}

	best := 0

	for i := 1; i < len(q.procs); i++ {
		if q.procs[i].Priority < q.procs[best].Priority {
			best = i
		}
	}

	p := q.procs[best]
	q.procs = append(q.procs[:best], q.procs[best+1:]...)

	return p
}

// Drain removes every process from the queue in dequeue order and passes
// each to keep. Processes for which keep returns true are re-enqueued, in
// the order keep saw them, once the drain completes; kill-by-name uses
// this to visit every entry exactly once without reordering survivors
// relative to each other.
func (q *Queue) Drain(keep func(*proc.PCB) bool) {
	var survivors []*proc.PCB

	for !q.Empty() {
		p := q.Dequeue()
		if keep(p) {
			survivors = append(survivors, p)
		}
	}

	for _, p := range survivors {
		q.Enqueue(p) //nolint:errcheck // survivors never exceed MaxQueueSize
	}
}
