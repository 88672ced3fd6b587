// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package microloop

import (
	"errors"
	"testing"

	"github.com/joeycumines/logiface"
)

// testEvent is a minimal logiface.Event implementation for testing the
// structured logging paths (logCritical, logError).
type testEvent struct {
	logiface.UnimplementedEvent
	level logiface.Level
}

func (e *testEvent) Level() logiface.Level        { return e.level }
func (e *testEvent) AddField(key string, val any) {}

// testEventFactory creates testEvent instances.
type testEventFactory struct {
	onNew func(logiface.Level)
}

func (f *testEventFactory) NewEvent(level logiface.Level) *testEvent {
	if f.onNew != nil {
		f.onNew(level)
	}
	return &testEvent{level: level}
}

// testEventWriter writes testEvent instances.
type testEventWriter struct {
	onWrite func(*testEvent) error
}

func (w *testEventWriter) Write(event *testEvent) error {
	if w.onWrite != nil {
		return w.onWrite(event)
	}
	return nil
}

func newCapturingLogger(onWrite func(*testEvent) error) *logiface.Logger[logiface.Event] {
	typedLogger := logiface.New[*testEvent](
		logiface.WithEventFactory[*testEvent](&testEventFactory{}),
		logiface.WithWriter[*testEvent](&testEventWriter{onWrite: onWrite}),
	)
	return typedLogger.Logger()
}

func TestWithLogger(t *testing.T) {
	logger := newCapturingLogger(nil)

	loop, err := New(WithLogger(logger))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if loop.logger == nil {
		t.Error("logger was not attached")
	}
}

func TestLogError_WithEnabledLogger(t *testing.T) {
	var logged bool
	logger := newCapturingLogger(func(*testEvent) error {
		logged = true
		return nil
	})

	loop, err := New(WithLogger(logger))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	loop.logError("test", "test error message", errors.New("test error"))

	if !logged {
		t.Error("expected logger to receive the error message")
	}
}

func TestLogError_WithPanickingLogger(t *testing.T) {
	logger := newCapturingLogger(func(*testEvent) error {
		panic("logger panic")
	})

	loop, err := New(WithLogger(logger))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	// Should not panic; falls back to log.Printf
	loop.logError("test", "test error with panic", errors.New("test error"))
}

func TestLogCritical_WithEnabledLogger(t *testing.T) {
	var logged bool
	logger := newCapturingLogger(func(*testEvent) error {
		logged = true
		return nil
	})

	loop, err := New(WithLogger(logger))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	loop.logCritical("test", "test critical message", errors.New("test error"))

	if !logged {
		t.Error("expected logger to receive the critical message")
	}
}

func TestLogCritical_WithPanickingLogger(t *testing.T) {
	logger := newCapturingLogger(func(*testEvent) error {
		panic("logger panic")
	})

	loop, err := New(WithLogger(logger))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	// Should not panic; falls back to log.Printf
	loop.logCritical("test", "test critical with panic", errors.New("test error"))
}

// TestUnhandledRejection_Logged verifies the structured logging path is
// exercised when a rejection goes unhandled.
func TestUnhandledRejection_Logged(t *testing.T) {
	var events int
	logger := newCapturingLogger(func(*testEvent) error {
		events++
		return nil
	})

	loop, err := New(WithLogger(logger))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	loop.Reject(errors.New("nobody listening"))
	if err := loop.RunUntilIdle(); err != nil {
		t.Fatalf("RunUntilIdle() failed: %v", err)
	}

	if events == 0 {
		t.Error("expected at least one log event for the unhandled rejection")
	}
}

func TestOptions_NilSkipped(t *testing.T) {
	loop, err := New(nil, WithMetrics(true), nil)
	if err != nil {
		t.Fatalf("New() with nil options failed: %v", err)
	}
	if loop == nil {
		t.Fatal("New() returned nil loop")
	}
}

func TestWithMicrotaskBudget_ZeroUnlimited(t *testing.T) {
	loop := newTestLoop(t, WithMicrotaskBudget(0))

	// A long but terminating chain must complete under an unlimited budget.
	count := 0
	var chain func()
	chain = func() {
		count++
		if count < 1000 {
			_ = loop.ScheduleMicrotask(chain)
		}
	}
	_ = loop.ScheduleMicrotask(chain)

	if err := loop.RunUntilIdle(); err != nil {
		t.Fatalf("RunUntilIdle() failed: %v", err)
	}
	if count != 1000 {
		t.Errorf("chain ran %d times, want 1000", count)
	}
}

func TestWithMicrotaskBudget_TerminatingChainWithinBudget(t *testing.T) {
	loop := newTestLoop(t, WithMicrotaskBudget(50))

	count := 0
	var chain func()
	chain = func() {
		count++
		if count < 10 {
			_ = loop.ScheduleMicrotask(chain)
		}
	}
	_ = loop.ScheduleMicrotask(chain)

	if err := loop.RunUntilIdle(); err != nil {
		t.Fatalf("RunUntilIdle() failed: %v", err)
	}
	if count != 10 {
		t.Errorf("chain ran %d times, want 10", count)
	}
}
