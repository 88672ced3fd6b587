// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package microloop

import (
	"github.com/joeycumines/logiface"
)

// RejectionHandler is a callback invoked when an unhandled promise rejection
// is detected: a Deferred that is rejected with no rejection handler attached
// by the time the microtask queue drains. The reason parameter contains the
// rejection reason/value.
type RejectionHandler func(reason Result)

// TaskErrorHandler is a callback invoked when an exception escapes a task's
// top level (not recovered by any Deferred handler). The loop continues with
// the next task regardless.
type TaskErrorHandler func(err *TaskError)

// loopOptions holds configuration options for Loop creation.
type loopOptions struct {
	logger      *logiface.Logger[logiface.Event]
	onUnhandled RejectionHandler
	onTaskError TaskErrorHandler
	microtaskBudget int
	metricsEnabled  bool
}

// --- Loop Options ---

// LoopOption configures a Loop instance.
type LoopOption interface {
	applyLoop(*loopOptions) error
}

// loopOptionImpl implements LoopOption.
type loopOptionImpl struct {
	applyLoopFunc func(*loopOptions) error
}

func (l *loopOptionImpl) applyLoop(opts *loopOptions) error {
	return l.applyLoopFunc(opts)
}

// WithLogger configures structured logging for the loop. The logger receives
// lifecycle events, task panics, and unhandled rejections. See
// [github.com/joeycumines/logiface].
func WithLogger(logger *logiface.Logger[logiface.Event]) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithUnhandledRejection configures a handler that is invoked when a rejected
// Deferred has no rejection handler attached after the microtask queue is
// drained. This follows the JavaScript unhandledrejection event semantics:
// only the chain that produced the rejection is affected, the loop keeps
// running.
func WithUnhandledRejection(handler RejectionHandler) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.onUnhandled = handler
		return nil
	}}
}

// WithUnhandledTaskError configures the channel through which exceptions
// escaping a task's top level are reported. Without it, such errors are only
// logged. The loop continues with the next task either way.
func WithUnhandledTaskError(handler TaskErrorHandler) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.onTaskError = handler
		return nil
	}}
}

// WithMicrotaskBudget caps the number of microtasks a single drain may
// execute before RunUntilIdle aborts with [ErrMicrotaskBudgetExceeded].
// Zero (the default) means unlimited. This is a guard against runaway
// microtask chains (a microtask that always schedules another would
// otherwise starve the macrotask queue forever).
func WithMicrotaskBudget(budget int) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.microtaskBudget = budget
		return nil
	}}
}

// WithMetrics enables runtime metrics collection on the Loop.
// When enabled, counters can be accessed via [Loop.Metrics].
func WithMetrics(enabled bool) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.metricsEnabled = enabled
		return nil
	}}
}

// resolveLoopOptions applies LoopOption instances to loopOptions.
func resolveLoopOptions(opts []LoopOption) (*loopOptions, error) {
	cfg := &loopOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue // Skip nil options gracefully
		}
		if err := opt.applyLoop(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
