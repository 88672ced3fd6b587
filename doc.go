// Package microloop provides a deterministic, single-threaded cooperative
// scheduler with a promise primitive, promise combinators, and an async
// coroutine driver.
//
// # Architecture
//
// The scheduler is built around a [Loop] that owns a queue pair: a microtask
// queue (high priority, drained to exhaustion) and a macrotask queue (low
// priority, modelling timers and I/O callbacks, ordered by logical delay with
// FIFO tie-breaking). [Loop.RunUntilIdle] is the driving entry point: it runs
// all available microtasks, then exactly one macrotask, and repeats until
// both queues are empty.
//
// Time is logical. [Loop.ScheduleMacrotask] takes a delay in ticks, not
// wall-clock milliseconds, and the loop's clock only advances when a
// macrotask is dequeued. There is no wall-clock dependency anywhere in the
// core, which makes every interleaving reproducible under test.
//
// The promise implementation ([Deferred]) follows the Promise/A+ state and
// resolution rules: write-once settlement, thenable adoption with
// chaining-cycle rejection, and reactions that are always scheduled as
// microtasks, never invoked inline. Combinators ([Loop.All], [Loop.Race],
// [Loop.Any], [Loop.AllSettled]) are built purely on top of [Deferred].
//
// Async/await is modelled explicitly: a [Coroutine] is a resumable state
// machine (Resume, ThrowInto, Done), and [Loop.Async] drives a
// goroutine-backed coroutine whose every resumption is scheduled as a
// microtask.
//
// # Execution Model
//
// Execution is strictly cooperative and single-threaded. Exactly one task
// body runs at a time, uninterrupted, to completion. All Loop and Deferred
// methods must be called from the goroutine that calls [Loop.RunUntilIdle]
// (or before it runs); the loop performs no internal locking. Coroutine
// bodies execute on their own goroutine but under a strict handshake, so at
// most one logical thread of control is ever running.
//
// # Usage
//
//	loop, err := microloop.New()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	loop.ScheduleMacrotask(func() {
//		fmt.Println("macrotask")
//	}, 0)
//	loop.ScheduleMicrotask(func() {
//		fmt.Println("microtask first")
//	})
//
//	if err := loop.RunUntilIdle(); err != nil {
//		log.Fatal(err)
//	}
//
// # Error Types
//
// The package provides JavaScript-compatible error types:
//   - [AggregateError]: for [Loop.Any] rejections (multi-error, Go 1.20+ compatible)
//   - [ChainingCycleError]: for a Deferred resolved with itself, directly or transitively
//   - [PanicError]: wraps panics recovered from executors, handlers, and coroutines
//   - [TaskError]: carries an exception that escaped a task's top level
//
// All error types implement the standard [error] interface, [errors.Unwrap],
// and type-based matching via Is().
package microloop
