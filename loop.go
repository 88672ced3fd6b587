package microloop

import (
	"github.com/joeycumines/logiface"
)

// Loop is a deterministic, single-threaded cooperative scheduler.
//
// It owns a queue pair: the microtask queue (FIFO, drained to exhaustion)
// and the macrotask queue (min-heap over (due tick, insertion order)).
// [Loop.RunUntilIdle] drains both deterministically; there is no wall clock,
// no goroutine pool, and no locking. All methods must be called from the
// goroutine that drives RunUntilIdle, or before it runs.
//
// Multiple independent loops can coexist; nothing in this package is global
// state.
type Loop struct {
	// Prevent copying
	_ [0]func()

	logger *logiface.Logger[logiface.Event]

	// Queue pair
	micro      taskQueue
	macro      macroHeap
	macroIndex map[TaskID]*macroEntry
	macroSeq   uint64

	// Logical clock; advances only when a macrotask with a later due tick
	// is dequeued.
	tick uint64

	// Monotonic ID sources.
	nextTaskID     TaskID
	nextDeferredID uint64

	// Unhandled rejection tracking: rejected deferreds awaiting a handler,
	// in rejection order. Checked at each microtask-drain boundary.
	pendingRejections []*Deferred

	// Error channels
	onUnhandled RejectionHandler
	onTaskError TaskErrorHandler

	state           loopStateMachine
	metrics         Metrics
	microtaskBudget int
	metricsEnabled  bool
}

// New creates a new loop.
func New(opts ...LoopOption) (*Loop, error) {
	cfg, err := resolveLoopOptions(opts)
	if err != nil {
		return nil, err
	}

	l := &Loop{
		logger:          cfg.logger,
		macroIndex:      make(map[TaskID]*macroEntry),
		onUnhandled:     cfg.onUnhandled,
		onTaskError:     cfg.onTaskError,
		microtaskBudget: cfg.microtaskBudget,
		metricsEnabled:  cfg.metricsEnabled,
	}
	return l, nil
}

// ScheduleMicrotask appends fn to the microtask queue.
//
// Microtasks are processed in FIFO order and have strict priority over
// macrotasks: a microtask scheduled from within another microtask runs
// before any macrotask. This is the queue Deferred reactions and coroutine
// resumptions are scheduled on.
//
// Returns ErrLoopTerminated if the loop has been closed. A nil fn is a
// no-op.
func (l *Loop) ScheduleMicrotask(fn func()) error {
	if fn == nil {
		return nil
	}
	if !l.state.CanAcceptWork() {
		return ErrLoopTerminated
	}

	l.nextTaskID++
	l.micro.Push(Task{
		Runnable:   fn,
		id:         l.nextTaskID,
		class:      MicroQueue,
		enqueuedAt: l.tick,
	})
	return nil
}

// RunUntilIdle drives the loop until both queues are empty.
//
// Algorithm, per iteration:
//  1. While the microtask queue is non-empty: dequeue and run exactly one
//     microtask, then re-check the queue. Microtasks enqueued by other
//     microtasks are processed before any macrotask.
//  2. Perform the unhandled-rejection checkpoint.
//  3. If the macrotask queue is non-empty: dequeue and run exactly one
//     macrotask, advancing the logical clock to its due tick.
//  4. Repeat from 1 until both queues are empty.
//
// A task that panics does not crash the loop: the panic is reported through
// the unhandled task error channel and the loop continues with the next
// task.
//
// Returns ErrRunReentry if called from within a task, ErrLoopTerminated if
// the loop has been closed, and ErrMicrotaskBudgetExceeded if a configured
// budget was breached.
func (l *Loop) RunUntilIdle() error {
	if !l.state.TryTransition(StateIdle, StateRunning) {
		if l.state.IsTerminal() {
			return ErrLoopTerminated
		}
		return ErrRunReentry
	}
	defer func() {
		// Close() from within a task leaves the terminal state in place.
		l.state.TryTransition(StateRunning, StateIdle)
	}()

	l.logDebug("loop", "run until idle")

	for {
		if err := l.drainMicrotasks(); err != nil {
			return err
		}

		l.checkUnhandledRejections()

		entry, ok := l.popMacrotask()
		if !ok {
			l.logDebug("loop", "idle")
			return nil
		}

		// Advance the logical clock. Entries already due (scheduled with
		// delay 0 during an earlier tick) never move it backwards.
		if entry.due > l.tick {
			l.tick = entry.due
		}

		l.safeExecute(entry.task)
		l.countMacrotask()

		if l.state.IsTerminal() {
			return nil
		}
	}
}

// drainMicrotasks runs microtasks until the queue is empty, including
// microtasks enqueued mid-drain. This is the defining ordering guarantee.
func (l *Loop) drainMicrotasks() error {
	executed := 0
	for {
		task, ok := l.micro.Pop()
		if !ok {
			return nil
		}

		l.safeExecute(task)
		l.countMicrotask()

		if l.state.IsTerminal() {
			return nil
		}

		executed++
		if l.microtaskBudget > 0 && executed >= l.microtaskBudget && !l.micro.IsEmpty() {
			l.logCritical("microtask", "microtask budget exceeded", ErrMicrotaskBudgetExceeded)
			return ErrMicrotaskBudgetExceeded
		}
	}
}

// safeExecute executes a task with panic recovery. An escaped panic is an
// unhandled task error: reported, counted, and survived.
func (l *Loop) safeExecute(t Task) {
	if t.Runnable == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			l.countTaskPanic()
			taskErr := &TaskError{
				Value:  r,
				TaskID: t.id,
				Class:  t.class,
				Tick:   l.tick,
			}
			if l.onTaskError != nil {
				l.onTaskError(taskErr)
			} else {
				l.logCritical("task", "task panicked", taskErr)
			}
		}
	}()

	t.Runnable()
}

// checkUnhandledRejections reports rejected deferreds that still have no
// rejection handler now that the microtask queue has drained. Runs at every
// drain boundary, so a handler attached in the same synchronous block as the
// rejection is never a false positive.
func (l *Loop) checkUnhandledRejections() {
	if len(l.pendingRejections) == 0 {
		return
	}

	pending := l.pendingRejections
	l.pendingRejections = nil

	for _, d := range pending {
		if d.handled {
			continue
		}
		d.reported = true
		l.countUnhandledRejection()
		l.logError("promise", "unhandled rejection", reasonToError(d.reason))
		if l.onUnhandled != nil {
			l.onUnhandled(d.reason)
		}
	}
}

// trackRejection records a freshly rejected deferred for the next
// unhandled-rejection checkpoint.
func (l *Loop) trackRejection(d *Deferred) {
	l.pendingRejections = append(l.pendingRejections, d)
}

// Close terminates the loop. Pending tasks are discarded, and all further
// scheduling and RunUntilIdle calls return ErrLoopTerminated. Close may be
// called from within a running task; the loop stops after that task
// returns.
func (l *Loop) Close() error {
	if l.state.IsTerminal() {
		return ErrLoopTerminated
	}
	l.state.Store(StateTerminated)

	// Drop queued work so closures are not retained.
	for {
		if _, ok := l.micro.Pop(); !ok {
			break
		}
	}
	l.macro = nil
	l.macroIndex = nil
	l.pendingRejections = nil

	l.logDebug("loop", "terminated")
	return nil
}

// State returns the current loop state.
func (l *Loop) State() LoopState {
	return l.state.Load()
}

// CurrentTick returns the loop's logical clock. It advances only when a
// macrotask with a later due tick is dequeued.
func (l *Loop) CurrentTick() uint64 {
	return l.tick
}

// MicrotaskLen returns the number of queued microtasks.
func (l *Loop) MicrotaskLen() int {
	return l.micro.Length()
}

// MacrotaskLen returns the number of scheduled, non-cancelled macrotasks.
func (l *Loop) MacrotaskLen() int {
	return len(l.macroIndex)
}
