package microloop

import (
	"errors"
	"fmt"
)

// Standard errors.
var (
	// ErrLoopTerminated is returned when operations are attempted on a loop
	// that has been closed via [Loop.Close].
	ErrLoopTerminated = errors.New("microloop: loop has been terminated")

	// ErrRunReentry is returned when RunUntilIdle is called from within a
	// task executing on the loop.
	ErrRunReentry = errors.New("microloop: cannot call RunUntilIdle from within the loop")

	// ErrTaskNotFound is returned by [Loop.Cancel] when the macrotask ID is
	// unknown, has already run, or was already cancelled.
	ErrTaskNotFound = errors.New("microloop: task not found")

	// ErrMicrotaskBudgetExceeded is returned by [Loop.RunUntilIdle] when a
	// microtask budget was configured via [WithMicrotaskBudget] and a single
	// drain exceeded it. This is a runaway-chain guard; the default is no
	// budget.
	ErrMicrotaskBudgetExceeded = errors.New("microloop: microtask budget exceeded")

	// ErrGoexit is used to fail a coroutine whose body exited via
	// runtime.Goexit() instead of returning.
	ErrGoexit = errors.New("microloop: coroutine exited via runtime.Goexit")
)

// PanicError wraps a panic value recovered from an executor, a reaction
// handler, a promisified function, or a coroutine body.
type PanicError struct {
	Value any
}

func (e PanicError) Error() string {
	return fmt.Sprintf("microloop: panic: %v", e.Value)
}

// Unwrap returns the underlying error if the panic value is an error type.
// This enables use with [errors.Is] and [errors.As] for error matching
// through the cause chain.
func (e PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// ChainingCycleError is the rejection reason used when a [Deferred] is
// resolved with itself, directly or through a chain of adoptions. Settling
// such a deferred would otherwise deadlock, so the resolution procedure
// rejects instead.
type ChainingCycleError struct {
	// DeferredID identifies the deferred whose resolution formed the cycle.
	DeferredID uint64
}

// Error implements the error interface.
func (e *ChainingCycleError) Error() string {
	return fmt.Sprintf("microloop: chaining cycle detected for deferred #%d", e.DeferredID)
}

// Is reports a match against any other *ChainingCycleError, regardless of ID.
func (e *ChainingCycleError) Is(target error) bool {
	var cycleTarget *ChainingCycleError
	return errors.As(target, &cycleTarget)
}

// AggregateError represents the rejection reason produced by [Loop.Any] when
// every input deferred rejects.
//
// The Errors field contains the rejection reasons from all failed deferreds,
// preserving the order of the input slice. An empty input slice produces an
// AggregateError with an empty Errors slice.
type AggregateError struct {
	// Message matches the standard JS AggregateError property.
	Message string
	// Errors contains all rejection reasons, in input order.
	Errors []error
}

// Error implements the error interface.
func (e *AggregateError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "all deferreds were rejected"
}

// Unwrap returns the errors slice for multi-error unwrapping (Go 1.20+).
// This enables [errors.Is] and [errors.As] to check against all errors in
// the aggregate.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// Is implements custom error matching for AggregateError.
// Returns true if target is an AggregateError, regardless of contents.
func (e *AggregateError) Is(target error) bool {
	var aggTarget *AggregateError
	return errors.As(target, &aggTarget)
}

// ErrorWrapper wraps a non-error rejection reason as an error, for
// [AggregateError] compatibility and coroutine error delivery.
type ErrorWrapper struct {
	// Value is the original non-error rejection reason.
	Value Result
}

// Error implements the error interface.
func (e *ErrorWrapper) Error() string {
	return fmt.Sprintf("%v", e.Value)
}

// TaskError carries an exception that escaped a task's top level (not
// recovered by any [Deferred] handler). It is delivered to the handler
// configured via [WithUnhandledTaskError]; the loop itself keeps running.
type TaskError struct {
	// Value is the recovered panic value.
	Value any
	// TaskID identifies the offending task.
	TaskID TaskID
	// Class is the queue the task ran from.
	Class QueueClass
	// Tick is the logical tick at which the task ran.
	Tick uint64
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	return fmt.Sprintf("microloop: unhandled error in %v task #%d: %v", e.Class, e.TaskID, e.Value)
}

// Unwrap returns the underlying error if the panic value is an error type.
func (e *TaskError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// reasonToError coerces a rejection reason to an error, wrapping non-error
// values in [ErrorWrapper].
func reasonToError(reason Result) error {
	if err, ok := reason.(error); ok {
		return err
	}
	return &ErrorWrapper{Value: reason}
}
