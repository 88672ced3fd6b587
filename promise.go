package microloop

// Result represents the value of a fulfilled or rejected deferred.
// It can be any type, similar to JavaScript's dynamic typing.
// For fulfilled deferreds, this holds the success value.
// For rejected deferreds, this typically holds an error or rejection reason.
type Result = any

// DeferredState represents the lifecycle state of a [Deferred].
// A deferred starts in [Pending] state and transitions to either
// [Fulfilled] or [Rejected]. State transitions are irreversible.
type DeferredState int

const (
	// Pending indicates the deferred operation is still in progress.
	Pending DeferredState = iota

	// Fulfilled indicates the deferred completed successfully with a value.
	Fulfilled

	// Rejected indicates the deferred failed with a reason.
	Rejected
)

// String returns a human-readable representation of the state.
func (s DeferredState) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Fulfilled:
		return "Fulfilled"
	case Rejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

// Deferred is a write-once, three-state async value container implementing
// the Promise/A+ state and resolution rules, with [Deferred.Then],
// [Deferred.Catch], and [Deferred.Finally] chaining.
//
// Settlement is always observed asynchronously: reaction callbacks are
// scheduled as microtasks on the owning [Loop] and never invoked inline,
// even when the deferred is already settled at attachment time.
//
// Creating Deferreds:
//
//	d, resolve, reject := loop.WithResolvers()
//	resolve(result) // or reject(reason); first call wins, the rest are no-ops
//
// Chaining:
//
//	d.
//	    Then(func(v Result) Result {
//	        return transform(v)
//	    }, nil).
//	    Catch(func(r Result) Result {
//	        return fallback // recover from error
//	    }).
//	    Finally(func() Result {
//	        cleanup()
//	        return nil
//	    })
//
// A Deferred is bound to its loop's goroutine; it performs no locking.
type Deferred struct {
	loop *Loop

	// reactions attached while pending, in attachment order.
	reactions []reaction

	value  Result // valid iff state == Fulfilled
	reason Result // valid iff state == Rejected

	// waitingOn is the deferred this one is adopting, while the resolution
	// procedure is in flight. Used for transitive cycle detection.
	waitingOn *Deferred

	id    uint64
	state DeferredState

	// resolving is set once resolve() was called with a thenable: the
	// adopted deferred alone determines this one's fate, and any further
	// resolve/reject calls are no-ops.
	resolving bool

	// handled is set once any reaction is attached; rejection then
	// propagates downstream rather than being reported as unhandled.
	handled bool

	// reported is set once this deferred was reported as an unhandled
	// rejection.
	reported bool
}

// reaction represents a registered response to settlement.
type reaction struct {
	onFulfilled func(Result) Result
	onRejected  func(Result) Result
	target      *Deferred
}

// ResolveFunc is the function used to fulfill a deferred with a value.
// Calling resolve on an already-settled deferred has no effect.
type ResolveFunc func(Result)

// RejectFunc is the function used to reject a deferred with a reason.
// Calling reject on an already-settled deferred has no effect.
type RejectFunc func(Result)

// newDeferred creates a pending deferred bound to the loop.
func (l *Loop) newDeferred() *Deferred {
	l.nextDeferredID++
	return &Deferred{
		loop:  l,
		id:    l.nextDeferredID,
		state: Pending,
	}
}

// NewDeferred creates a deferred and synchronously invokes the executor with
// its resolve and reject functions.
//
// The executor is the one place where user code runs inline rather than as a
// task. A panic inside the executor is recovered and converted to a
// rejection (wrapped in [PanicError]), unless the executor already settled
// the deferred.
func (l *Loop) NewDeferred(executor func(resolve ResolveFunc, reject RejectFunc)) *Deferred {
	d := l.newDeferred()
	if executor == nil {
		return d
	}

	defer func() {
		if r := recover(); r != nil {
			d.reject(PanicError{Value: r})
		}
	}()
	executor(d.resolve, d.reject)
	return d
}

// WithResolvers creates a pending deferred along with its resolve and reject
// functions, for scenarios where the executor pattern is awkward (callback
// integration, request/response correlation, custom abstractions).
func (l *Loop) WithResolvers() (*Deferred, ResolveFunc, RejectFunc) {
	d := l.newDeferred()
	return d, d.resolve, d.reject
}

// Resolve returns a deferred resolved with the given value.
//
// If the value is itself a [Deferred], the returned deferred adopts its
// eventual state rather than fulfilling with the deferred as a value.
func (l *Loop) Resolve(value Result) *Deferred {
	d := l.newDeferred()
	d.resolve(value)
	return d
}

// Reject returns a deferred rejected with the given reason.
func (l *Loop) Reject(reason Result) *Deferred {
	d := l.newDeferred()
	d.reject(reason)
	return d
}

// State returns the current [DeferredState].
func (d *Deferred) State() DeferredState {
	return d.state
}

// Value returns the fulfillment value if the deferred is fulfilled.
// Returns nil if the deferred is pending or rejected. Note that a fulfilled
// deferred can legitimately hold a nil value.
func (d *Deferred) Value() Result {
	if d.state == Fulfilled {
		return d.value
	}
	return nil
}

// Reason returns the rejection reason if the deferred is rejected.
// Returns nil if the deferred is pending or fulfilled.
func (d *Deferred) Reason() Result {
	if d.state == Rejected {
		return d.reason
	}
	return nil
}

// resolve transitions the deferred to fulfilled, or begins adoption if the
// value is itself a deferred.
//
// Resolution procedure: resolving with this deferred itself, directly or
// through a chain of in-flight adoptions, rejects with
// [ChainingCycleError] instead of deadlocking. Resolving with another
// deferred subscribes to it and adopts its eventual state.
func (d *Deferred) resolve(value Result) {
	if d.state != Pending || d.resolving {
		return
	}

	if other, ok := value.(*Deferred); ok {
		// Cycle check: walk the adoption chain rooted at the target.
		for x := other; x != nil; x = x.waitingOn {
			if x == d {
				d.settle(Rejected, &ChainingCycleError{DeferredID: d.id})
				return
			}
		}

		d.resolving = true
		d.waitingOn = other
		// Zero-closure adoption: a reaction with no handlers passes the
		// settlement straight through to the target.
		other.addReaction(reaction{target: d})
		return
	}

	d.settle(Fulfilled, value)
}

// reject transitions the deferred to rejected if it is still pending and not
// locked into an adoption.
func (d *Deferred) reject(reason Result) {
	if d.state != Pending || d.resolving {
		return
	}
	d.settle(Rejected, reason)
}

// adoptResolve completes an adoption with the adopted deferred's
// fulfillment value. Clears the resolution lock first, since the value may
// itself be a deferred (nested adoption).
func (d *Deferred) adoptResolve(value Result) {
	d.resolving = false
	d.waitingOn = nil
	d.resolve(value)
}

// adoptReject completes an adoption with the adopted deferred's rejection
// reason.
func (d *Deferred) adoptReject(reason Result) {
	d.resolving = false
	d.waitingOn = nil
	d.reject(reason)
}

// settle performs the one-way state transition and schedules all
// currently-attached reactions as microtasks.
func (d *Deferred) settle(state DeferredState, result Result) {
	d.state = state
	if state == Fulfilled {
		d.value = result
	} else {
		d.reason = result
	}

	reactions := d.reactions
	d.reactions = nil
	for _, h := range reactions {
		d.scheduleReaction(h)
	}

	if state == Rejected {
		d.loop.trackRejection(d)
	}
}

// addReaction attaches a reaction. If the deferred is already settled, the
// reaction is still scheduled as a microtask, never invoked inline.
func (d *Deferred) addReaction(h reaction) {
	// Any reaction forwards rejection downstream, so this deferred is no
	// longer the end of the chain for unhandled-rejection purposes.
	d.handled = true

	if d.state != Pending {
		d.scheduleReaction(h)
		return
	}
	d.reactions = append(d.reactions, h)
}

// scheduleReaction enqueues a reaction for execution via microtask.
func (d *Deferred) scheduleReaction(h reaction) {
	state := d.state
	var result Result
	if state == Fulfilled {
		result = d.value
	} else {
		result = d.reason
	}

	// The only failure mode is a terminated loop, in which case the
	// reaction is dropped along with the rest of the queued work.
	_ = d.loop.ScheduleMicrotask(func() {
		d.executeReaction(h, state, result)
	})
}

// executeReaction runs a single reaction with the given settlement.
// Handles missing handlers (pass-through), panic recovery, and result
// propagation to the downstream deferred.
func (d *Deferred) executeReaction(h reaction, state DeferredState, result Result) {
	var fn func(Result) Result
	if state == Fulfilled {
		fn = h.onFulfilled
	} else {
		fn = h.onRejected
	}

	// No handler for this branch: the settlement passes through to the
	// target unchanged (fulfilled passthrough on missing onFulfilled,
	// rejected passthrough on missing onRejected).
	if fn == nil {
		if h.target == nil {
			return
		}
		if state == Fulfilled {
			h.target.adoptResolve(result)
		} else {
			h.target.adoptReject(result)
		}
		return
	}

	// A handler that panics rejects the downstream deferred with the
	// panic value.
	defer func() {
		if r := recover(); r != nil {
			if h.target != nil {
				h.target.reject(PanicError{Value: r})
			}
		}
	}()

	res := fn(result)
	if h.target != nil {
		// A handler that returns a deferred makes the downstream deferred
		// adopt its state (chaining); resolve handles both cases.
		h.target.resolve(res)
	}
}

// Then adds handlers to be called when the deferred settles, and returns a
// new [Deferred] that settles with the result of the handler.
//
// Parameters:
//   - onFulfilled: Handler called with the fulfillment value. Can be nil.
//   - onRejected: Handler called with the rejection reason. Can be nil.
//
// Handler semantics:
//   - A returned value fulfills the downstream deferred with that value
//   - A returned [Deferred] is adopted by the downstream deferred
//   - A panic rejects the downstream deferred with the panic value
//   - A nil handler passes the settlement through unchanged
//
// Handlers are always executed as microtasks, even when this deferred is
// already settled at the time Then is called.
func (d *Deferred) Then(onFulfilled, onRejected func(Result) Result) *Deferred {
	child := d.loop.newDeferred()
	d.addReaction(reaction{
		onFulfilled: onFulfilled,
		onRejected:  onRejected,
		target:      child,
	})
	return child
}

// Catch adds a rejection handler. Equivalent to Then(nil, onRejected).
//
// Use Catch to recover from errors or transform rejection reasons:
//
//	d.Catch(func(r Result) Result {
//	    return defaultValue // recover
//	})
func (d *Deferred) Catch(onRejected func(Result) Result) *Deferred {
	return d.Then(nil, onRejected)
}

// Finally adds a handler that runs regardless of how the deferred settles.
//
// The onSettled callback receives no settlement information. The deferred
// returned by Finally settles with the same value/reason as the original,
// with two exceptions that override the original outcome:
//   - onSettled panics: the returned deferred rejects with the panic value
//   - onSettled returns a [Deferred] that rejects: the returned deferred
//     rejects with that reason
//
// If onSettled returns a deferred that fulfills, its value is discarded and
// the original settlement passes through once it completes.
func (d *Deferred) Finally(onSettled func() Result) *Deferred {
	if onSettled == nil {
		return d.Then(nil, nil)
	}

	l := d.loop
	return d.Then(
		func(v Result) Result {
			r := onSettled()
			if dep, ok := r.(*Deferred); ok {
				// Wait for the cleanup deferred, then restore the value.
				// If it rejects, the rejection propagates instead.
				return dep.Then(func(Result) Result { return v }, nil)
			}
			return v
		},
		func(reason Result) Result {
			r := onSettled()
			if dep, ok := r.(*Deferred); ok {
				return dep.Then(func(Result) Result { return l.Reject(reason) }, nil)
			}
			// Re-raise the original rejection.
			return l.Reject(reason)
		},
	)
}
