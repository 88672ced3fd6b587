package microloop

// Drive runs a coroutine to completion on the loop and returns a deferred
// for its terminal outcome.
//
// The coroutine is started synchronously, running up to its first suspension
// point. Each subsequent resumption happens inside a reaction microtask of
// the awaited deferred: a fulfillment resumes the coroutine with the value,
// a rejection throws the reason into it. The returned deferred fulfills with
// the coroutine's result or rejects with its failure reason.
func (l *Loop) Drive(co Coroutine) *Deferred {
	result, resolve, reject := l.WithResolvers()

	var advance func(st Step)
	advance = func(st Step) {
		switch st.Status {
		case StepCompleted:
			resolve(st.Value)
		case StepFailed:
			reject(st.Reason)
		case StepSuspended:
			awaited := st.Awaited
			if awaited == nil {
				awaited = l.Resolve(nil)
			}
			awaited.Then(
				func(v Result) Result {
					advance(co.Resume(v))
					return nil
				},
				func(r Result) Result {
					advance(co.ThrowInto(r))
					return nil
				},
			)
		}
	}

	advance(co.Resume(nil))
	return result
}

// Async runs body as a coroutine and returns a deferred for its outcome.
// Shorthand for Drive(NewCoroutine(body)).
//
//	d := loop.Async(func(a *microloop.Await) (microloop.Result, error) {
//	    v, err := a.Await(fetchSomething(loop))
//	    if err != nil {
//	        return nil, err
//	    }
//	    return process(v), nil
//	})
func (l *Loop) Async(body func(*Await) (Result, error)) *Deferred {
	return l.Drive(l.NewCoroutine(body))
}
