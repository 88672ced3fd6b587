// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package microloop

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAll_FulfillsInInputOrder(t *testing.T) {
	loop := newTestLoop(t)

	// Settle out of order; values must come back in input order.
	d1, r1, _ := loop.WithResolvers()
	d2, r2, _ := loop.WithResolvers()
	d3, r3, _ := loop.WithResolvers()
	_, _ = loop.ScheduleMacrotask(func() { r3("c") }, 1)
	_, _ = loop.ScheduleMacrotask(func() { r1("a") }, 2)
	_, _ = loop.ScheduleMacrotask(func() { r2("b") }, 3)

	var got Result
	loop.All([]*Deferred{d1, d2, d3}).Then(func(v Result) Result {
		got = v
		return nil
	}, nil)

	require.NoError(t, loop.RunUntilIdle())
	require.IsType(t, []Result{}, got)
	assert.Equal(t, []Result{"a", "b", "c"}, got)
}

func TestAll_RejectsWithFirstRejectionArrival(t *testing.T) {
	loop := newTestLoop(t)

	// Input order has the failing deferred in the middle; the rejection
	// that arrives first wins regardless of input position.
	var log []Result
	loop.All([]*Deferred{
		loop.Resolve(1),
		loop.Reject("x"),
		loop.Resolve(3),
	}).Catch(func(r Result) Result {
		log = append(log, r)
		return nil
	})

	require.NoError(t, loop.RunUntilIdle())
	assert.Equal(t, []Result{"x"}, log)
}

func TestAll_LaterRejectionIgnored(t *testing.T) {
	loop := newTestLoop(t)

	d1, _, j1 := loop.WithResolvers()
	d2, _, j2 := loop.WithResolvers()
	_, _ = loop.ScheduleMacrotask(func() { j2("first") }, 1)
	_, _ = loop.ScheduleMacrotask(func() { j1("second") }, 2)

	var reasons []Result
	loop.All([]*Deferred{d1, d2}).Catch(func(r Result) Result {
		reasons = append(reasons, r)
		return nil
	})

	require.NoError(t, loop.RunUntilIdle())
	assert.Equal(t, []Result{"first"}, reasons)
}

func TestAll_Empty(t *testing.T) {
	loop := newTestLoop(t)

	var got Result
	loop.All(nil).Then(func(v Result) Result {
		got = v
		return nil
	}, nil)

	require.NoError(t, loop.RunUntilIdle())
	assert.Equal(t, []Result{}, got)
}

func TestAllSettled_MixedOutcomes(t *testing.T) {
	loop := newTestLoop(t)

	var got Result
	loop.AllSettled([]*Deferred{
		loop.Resolve(1),
		loop.Reject("bad"),
		loop.Resolve(3),
	}).Then(func(v Result) Result {
		got = v
		return nil
	}, nil)

	require.NoError(t, loop.RunUntilIdle())
	outcomes, ok := got.([]Outcome)
	require.True(t, ok, "expected []Outcome, got %T", got)
	require.Len(t, outcomes, 3)

	assert.Equal(t, Outcome{Status: OutcomeFulfilled, Value: 1}, outcomes[0])
	assert.Equal(t, Outcome{Status: OutcomeRejected, Reason: "bad"}, outcomes[1])
	assert.Equal(t, Outcome{Status: OutcomeFulfilled, Value: 3}, outcomes[2])
}

func TestAllSettled_NeverRejects(t *testing.T) {
	loop := newTestLoop(t)

	d := loop.AllSettled([]*Deferred{
		loop.Reject("a"),
		loop.Reject("b"),
	})
	d.Catch(func(r Result) Result {
		t.Errorf("AllSettled rejected with %v", r)
		return nil
	})

	require.NoError(t, loop.RunUntilIdle())
	assert.Equal(t, Fulfilled, d.State())
}

func TestAllSettled_Empty(t *testing.T) {
	loop := newTestLoop(t)

	var got Result
	loop.AllSettled([]*Deferred{}).Then(func(v Result) Result {
		got = v
		return nil
	}, nil)

	require.NoError(t, loop.RunUntilIdle())
	assert.Equal(t, []Outcome{}, got)
}

func TestRace_FirstSettlementWins(t *testing.T) {
	loop := newTestLoop(t)

	slow, resolveSlow, _ := loop.WithResolvers()
	fast, _, rejectFast := loop.WithResolvers()
	_, _ = loop.ScheduleMacrotask(func() { rejectFast("lost") }, 1)
	_, _ = loop.ScheduleMacrotask(func() { resolveSlow("won") }, 5)

	var reason Result
	loop.Race([]*Deferred{slow, fast}).Catch(func(r Result) Result {
		reason = r
		return nil
	})

	require.NoError(t, loop.RunUntilIdle())
	assert.Equal(t, "lost", reason)
}

// TestRace_AlreadySettledTieBreak: when several inputs are settled before
// the race starts, the lowest-index input wins because its reaction was
// attached, and therefore scheduled, first.
func TestRace_AlreadySettledTieBreak(t *testing.T) {
	loop := newTestLoop(t)

	var got Result
	loop.Race([]*Deferred{
		loop.Resolve("first"),
		loop.Resolve("second"),
	}).Then(func(v Result) Result {
		got = v
		return nil
	}, nil)

	require.NoError(t, loop.RunUntilIdle())
	assert.Equal(t, "first", got)
}

func TestRace_EmptyNeverSettles(t *testing.T) {
	loop := newTestLoop(t)

	d := loop.Race(nil)
	require.NoError(t, loop.RunUntilIdle())
	assert.Equal(t, Pending, d.State())
}

func TestAny_FirstFulfillmentWins(t *testing.T) {
	loop := newTestLoop(t)

	var got Result
	loop.Any([]*Deferred{
		loop.Reject("e1"),
		loop.Resolve("winner"),
		loop.Resolve("too late"),
	}).Then(func(v Result) Result {
		got = v
		return nil
	}, nil)

	require.NoError(t, loop.RunUntilIdle())
	assert.Equal(t, "winner", got)
}

func TestAny_SingleRejectionDoesNotPropagate(t *testing.T) {
	loop := newTestLoop(t)

	pendingWin, resolveWin, _ := loop.WithResolvers()
	_, _ = loop.ScheduleMacrotask(func() { resolveWin(42) }, 3)

	var got Result
	loop.Any([]*Deferred{
		loop.Reject("early failure"),
		pendingWin,
	}).Then(func(v Result) Result {
		got = v
		return nil
	}, nil)

	require.NoError(t, loop.RunUntilIdle())
	assert.Equal(t, 42, got)
}

func TestAny_AllRejectAggregatesInInputOrder(t *testing.T) {
	loop := newTestLoop(t)

	// Rejections arrive out of input order; the aggregate preserves the
	// input order regardless.
	d1, _, j1 := loop.WithResolvers()
	d2, _, j2 := loop.WithResolvers()
	errB := errors.New("b")
	_, _ = loop.ScheduleMacrotask(func() { j2(errB) }, 1)
	_, _ = loop.ScheduleMacrotask(func() { j1("a") }, 2)

	var reason Result
	loop.Any([]*Deferred{d1, d2}).Catch(func(r Result) Result {
		reason = r
		return nil
	})

	require.NoError(t, loop.RunUntilIdle())
	agg, ok := reason.(*AggregateError)
	require.True(t, ok, "expected *AggregateError, got %T", reason)
	require.Len(t, agg.Errors, 2)

	wrapped, ok := agg.Errors[0].(*ErrorWrapper)
	require.True(t, ok)
	assert.Equal(t, "a", wrapped.Value)
	assert.Same(t, errB, agg.Errors[1])
}

func TestAny_EmptyRejectsWithEmptyAggregate(t *testing.T) {
	loop := newTestLoop(t)

	var reason Result
	loop.Any(nil).Catch(func(r Result) Result {
		reason = r
		return nil
	})

	require.NoError(t, loop.RunUntilIdle())
	agg, ok := reason.(*AggregateError)
	require.True(t, ok, "expected *AggregateError, got %T", reason)
	assert.Empty(t, agg.Errors)
}

// TestCombinators_InputsRunToCompletion: a combinator abandoning interest
// in an input does not stop the input's own chain.
func TestCombinators_InputsRunToCompletion(t *testing.T) {
	loop := newTestLoop(t)

	d1, _, j1 := loop.WithResolvers()
	d2, r2, _ := loop.WithResolvers()
	_, _ = loop.ScheduleMacrotask(func() { j1("fail fast") }, 1)
	_, _ = loop.ScheduleMacrotask(func() { r2("still runs") }, 2)

	var late Result
	d2.Then(func(v Result) Result {
		late = v
		return nil
	}, nil)

	rejected := false
	loop.All([]*Deferred{d1, d2}).Catch(func(Result) Result {
		rejected = true
		return nil
	})

	require.NoError(t, loop.RunUntilIdle())
	assert.True(t, rejected)
	assert.Equal(t, "still runs", late)
}
