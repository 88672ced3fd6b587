// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package microloop

import "container/heap"

// macroEntry is a scheduled macrotask: due logical tick, plus a sequence
// number for FIFO tie-breaking between entries with the same due tick.
type macroEntry struct {
	task      Task
	due       uint64
	seq       uint64
	cancelled bool
}

// macroHeap is a min-heap of macrotasks ordered by (due, seq).
type macroHeap []*macroEntry

func (h macroHeap) Len() int { return len(h) }

func (h macroHeap) Less(i, j int) bool {
	if h[i].due != h[j].due {
		return h[i].due < h[j].due
	}
	return h[i].seq < h[j].seq
}

func (h macroHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *macroHeap) Push(x any) {
	*h = append(*h, x.(*macroEntry))
}

func (h *macroHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}

// ScheduleMacrotask schedules fn on the macrotask queue after the given
// logical delay.
//
// The delay is a non-negative number of logical ticks, not wall-clock time.
// Entries are ordered by (due tick, insertion order); two macrotasks with
// the same delay run in the order they were scheduled. Negative delays are
// treated as 0.
//
// Returns the task ID, which can be passed to [Loop.Cancel] before the task
// runs, and ErrLoopTerminated if the loop has been closed. A nil fn returns
// 0 without scheduling.
func (l *Loop) ScheduleMacrotask(fn func(), delay int) (TaskID, error) {
	if fn == nil {
		return 0, nil
	}
	if !l.state.CanAcceptWork() {
		return 0, ErrLoopTerminated
	}
	if delay < 0 {
		delay = 0
	}

	l.nextTaskID++
	id := l.nextTaskID
	l.macroSeq++

	entry := &macroEntry{
		task: Task{
			Runnable:   fn,
			id:         id,
			class:      MacroQueue,
			enqueuedAt: l.tick,
		},
		due: l.tick + uint64(delay),
		seq: l.macroSeq,
	}
	heap.Push(&l.macro, entry)
	l.macroIndex[id] = entry

	return id, nil
}

// Submit schedules fn as a macrotask with zero delay. It is shorthand for
// ScheduleMacrotask(fn, 0) and is the entry point host collaborators use to
// inject work (timer shims, listener shims, test harnesses).
func (l *Loop) Submit(fn func()) (TaskID, error) {
	return l.ScheduleMacrotask(fn, 0)
}

// Cancel cancels a scheduled macrotask by its ID.
//
// Returns [ErrTaskNotFound] if the ID is unknown, the task has already run,
// or it was already cancelled. Cancellation is scheduling-level only: it
// removes a pending callback, it does not stop work a Deferred is waiting
// on.
func (l *Loop) Cancel(id TaskID) error {
	entry, ok := l.macroIndex[id]
	if !ok {
		return ErrTaskNotFound
	}
	// Lazy deletion: the entry stays in the heap and is skipped on pop.
	entry.cancelled = true
	entry.task = Task{}
	delete(l.macroIndex, id)
	l.countCancelled()
	return nil
}

// popMacrotask removes and returns the next runnable macrotask, skipping
// cancelled entries. Returns false when the macrotask queue is empty.
func (l *Loop) popMacrotask() (*macroEntry, bool) {
	for l.macro.Len() > 0 {
		entry := heap.Pop(&l.macro).(*macroEntry)
		if entry.cancelled {
			continue
		}
		delete(l.macroIndex, entry.task.id)
		return entry, true
	}
	return nil, false
}

// Delay returns a Deferred that fulfills with nil after the given logical
// delay. It is the timer primitive for composing timeout behaviour.
func (l *Loop) Delay(ticks int) *Deferred {
	d, resolve, reject := l.WithResolvers()
	if _, err := l.ScheduleMacrotask(func() {
		resolve(nil)
	}, ticks); err != nil {
		reject(err)
	}
	return d
}

// DelayReject returns a Deferred that rejects with reason after the given
// logical delay. A timeout race is expressed as
//
//	loop.Race([]*Deferred{operation, loop.DelayReject(ticks, reason)})
//
// rather than as a scheduler primitive.
func (l *Loop) DelayReject(ticks int, reason Result) *Deferred {
	d, _, reject := l.WithResolvers()
	if _, err := l.ScheduleMacrotask(func() {
		reject(reason)
	}, ticks); err != nil {
		reject(err)
	}
	return d
}
