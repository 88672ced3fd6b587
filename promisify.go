package microloop

// Promisify schedules fn as a macrotask and returns a deferred for its
// result.
//
// The function runs on the loop goroutine when its macrotask is dequeued.
// A non-nil error rejects the deferred; a panic is recovered and rejects it
// with a [PanicError] rather than going through the loop's task-error
// handler. If the loop is already terminated, the deferred is rejected with
// [ErrLoopTerminated] immediately.
func (l *Loop) Promisify(fn func() (Result, error)) *Deferred {
	d, resolve, reject := l.WithResolvers()
	if fn == nil {
		resolve(nil)
		return d
	}

	if _, err := l.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				reject(PanicError{Value: r})
			}
		}()

		v, err := fn()
		if err != nil {
			reject(err)
			return
		}
		resolve(v)
	}); err != nil {
		reject(err)
	}

	return d
}

// FromCallbackStyle adapts an error-first callback API to a deferred.
//
// The start function is invoked synchronously with a completion callback.
// The first callback invocation settles the deferred (err != nil rejects,
// otherwise fulfills with value); further invocations are no-ops. A panic
// inside start rejects the deferred with a [PanicError], unless the
// callback already settled it.
//
//	d := loop.FromCallbackStyle(func(done func(value Result, err error)) {
//	    client.Get(key, done)
//	})
func (l *Loop) FromCallbackStyle(start func(done func(value Result, err error))) *Deferred {
	d, resolve, reject := l.WithResolvers()
	if start == nil {
		resolve(nil)
		return d
	}

	defer func() {
		if r := recover(); r != nil {
			reject(PanicError{Value: r})
		}
	}()

	start(func(value Result, err error) {
		if err != nil {
			reject(err)
			return
		}
		resolve(value)
	})

	return d
}
