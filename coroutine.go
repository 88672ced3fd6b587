package microloop

// StepStatus describes the outcome of a single coroutine resumption.
type StepStatus int

const (
	// StepSuspended indicates the coroutine paused at an await point.
	// The Step's Awaited field holds the deferred it is waiting on.
	StepSuspended StepStatus = iota

	// StepCompleted indicates the coroutine body returned normally.
	// The Step's Value field holds the return value.
	StepCompleted

	// StepFailed indicates the coroutine body returned an error, panicked,
	// or exited via runtime.Goexit. The Step's Reason field holds the
	// failure.
	StepFailed
)

// String returns a human-readable representation of the status.
func (s StepStatus) String() string {
	switch s {
	case StepSuspended:
		return "Suspended"
	case StepCompleted:
		return "Completed"
	case StepFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Step is the result of resuming a coroutine: either it suspended again on a
// deferred, completed with a value, or failed with a reason.
type Step struct {
	Awaited *Deferred // valid iff Status == StepSuspended
	Value   Result    // valid iff Status == StepCompleted
	Reason  Result    // valid iff Status == StepFailed
	Status  StepStatus
}

// Coroutine is a resumable computation that suspends on deferreds.
//
// Resume and ThrowInto run the coroutine body up to its next suspension
// point (or completion) before returning, so a Step always reflects a
// quiescent coroutine. Both must be called from the loop goroutine;
// [Loop.Drive] handles this, calling them from within reaction microtasks.
//
// Once a coroutine is done, further Resume/ThrowInto calls return the cached
// terminal Step without running anything.
type Coroutine interface {
	// Resume continues execution, delivering v as the result of the
	// pending await. The first Resume starts the body; its value is
	// discarded.
	Resume(v Result) Step

	// ThrowInto continues execution, delivering reason as an error from
	// the pending await. Throwing into a coroutine that was never resumed
	// fails it without running the body.
	ThrowInto(reason Result) Step

	// Done reports whether the coroutine reached a terminal step.
	Done() bool
}

// resumeSignal carries the outcome of an awaited deferred back into the
// coroutine body.
type resumeSignal struct {
	value Result
	err   error
}

// goCoroutine implements [Coroutine] on a dedicated goroutine, using an
// unbuffered channel handshake so that exactly one of the two goroutines
// runs at a time. The body never executes concurrently with the loop.
type goCoroutine struct {
	loop   *Loop
	body   func(*Await) (Result, error)
	resume chan resumeSignal
	yield  chan Step

	started bool
	done    bool
	final   Step
}

// NewCoroutine creates a coroutine from a body function. The body does not
// start executing until the first Resume (typically via [Loop.Drive]).
//
// Within the body, use the provided [Await] to suspend on deferreds. The
// body's goroutine exists only while the coroutine is live; abandoning a
// suspended coroutine without driving it to completion leaks its goroutine.
func (l *Loop) NewCoroutine(body func(*Await) (Result, error)) Coroutine {
	return &goCoroutine{
		loop:   l,
		body:   body,
		resume: make(chan resumeSignal),
		yield:  make(chan Step),
	}
}

func (c *goCoroutine) Resume(v Result) Step {
	return c.step(resumeSignal{value: v})
}

func (c *goCoroutine) ThrowInto(reason Result) Step {
	if !c.started {
		c.done = true
		c.final = Step{Status: StepFailed, Reason: reason}
		return c.final
	}
	return c.step(resumeSignal{err: reasonToError(reason)})
}

func (c *goCoroutine) Done() bool {
	return c.done
}

// step performs one handshake: hand control to the body, block until it
// suspends or terminates.
func (c *goCoroutine) step(sig resumeSignal) Step {
	if c.done {
		return c.final
	}

	if !c.started {
		c.started = true
		go c.run()
	} else {
		c.resume <- sig
	}

	st := <-c.yield
	if st.Status != StepSuspended {
		c.done = true
		c.final = st
	}
	return st
}

// run executes the body on its own goroutine and reports the terminal step.
func (c *goCoroutine) run() {
	var final Step
	finished := false

	defer func() {
		if !finished {
			if r := recover(); r != nil {
				final = Step{Status: StepFailed, Reason: PanicError{Value: r}}
			} else {
				// Reaching the deferred without a normal return or a
				// panic means runtime.Goexit unwound the body.
				final = Step{Status: StepFailed, Reason: ErrGoexit}
			}
		}
		c.yield <- final
	}()

	v, err := c.body(&Await{co: c})
	finished = true
	if err != nil {
		final = Step{Status: StepFailed, Reason: err}
	} else {
		final = Step{Status: StepCompleted, Value: v}
	}
}

// Await is the suspension handle passed to a coroutine body.
type Await struct {
	co *goCoroutine
}

// Await suspends the coroutine on v and returns its settlement.
//
// If v is a [*Deferred], the coroutine resumes once it settles: a
// fulfillment is returned as (value, nil) and a rejection as (nil, error).
// Any other value is returned as-is after one microtask turn, so an await
// never completes synchronously.
func (a *Await) Await(v Result) (Result, error) {
	var d *Deferred
	if dd, ok := v.(*Deferred); ok {
		d = dd
	} else {
		d = a.co.loop.Resolve(v)
	}

	a.co.yield <- Step{Status: StepSuspended, Awaited: d}
	sig := <-a.co.resume
	return sig.value, sig.err
}
