package microloop

// OutcomeStatus describes how a deferred settled, for [Loop.AllSettled]
// results.
type OutcomeStatus int

const (
	// OutcomeFulfilled indicates the deferred fulfilled with a value.
	OutcomeFulfilled OutcomeStatus = iota

	// OutcomeRejected indicates the deferred rejected with a reason.
	OutcomeRejected
)

// String returns a human-readable representation of the status.
func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeFulfilled:
		return "fulfilled"
	case OutcomeRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Outcome is a per-input settlement record produced by [Loop.AllSettled].
// Value is set only for fulfilled outcomes, Reason only for rejected ones.
type Outcome struct {
	Status OutcomeStatus
	Value  Result
	Reason Result
}

// All returns a deferred that fulfills when all inputs fulfill.
//
// Behavior:
//   - An empty input fulfills with an empty []Result
//   - Fulfills with a []Result of values in input order
//   - Rejects as soon as any input rejects, with that input's reason;
//     later settlements of the remaining inputs are ignored
func (l *Loop) All(ds []*Deferred) *Deferred {
	result, resolve, reject := l.WithResolvers()

	if len(ds) == 0 {
		resolve(make([]Result, 0))
		return result
	}

	values := make([]Result, len(ds))
	remaining := len(ds)
	rejected := false

	for i, d := range ds {
		idx := i
		d.Then(
			func(v Result) Result {
				if rejected {
					return nil
				}
				values[idx] = v
				remaining--
				if remaining == 0 {
					resolve(values)
				}
				return nil
			},
			func(r Result) Result {
				if !rejected {
					rejected = true
					reject(r)
				}
				return nil
			},
		)
	}

	return result
}

// AllSettled returns a deferred that fulfills once every input has settled,
// with a []Outcome in input order. It never rejects.
//
// An empty input fulfills with an empty []Outcome.
func (l *Loop) AllSettled(ds []*Deferred) *Deferred {
	result, resolve, _ := l.WithResolvers()

	if len(ds) == 0 {
		resolve(make([]Outcome, 0))
		return result
	}

	outcomes := make([]Outcome, len(ds))
	remaining := len(ds)

	record := func(idx int, o Outcome) {
		outcomes[idx] = o
		remaining--
		if remaining == 0 {
			resolve(outcomes)
		}
	}

	for i, d := range ds {
		idx := i
		d.Then(
			func(v Result) Result {
				record(idx, Outcome{Status: OutcomeFulfilled, Value: v})
				return nil
			},
			func(r Result) Result {
				record(idx, Outcome{Status: OutcomeRejected, Reason: r})
				return nil
			},
		)
	}

	return result
}

// Race returns a deferred that settles the same way as the first input to
// settle. When multiple inputs are already settled at call time, the
// earliest-attached (lowest-index) input wins, since its reaction is first
// in the microtask queue.
//
// An empty input returns a deferred that never settles.
func (l *Loop) Race(ds []*Deferred) *Deferred {
	result, resolve, reject := l.WithResolvers()

	if len(ds) == 0 {
		return result
	}

	settled := false

	for _, d := range ds {
		d.Then(
			func(v Result) Result {
				if !settled {
					settled = true
					resolve(v)
				}
				return nil
			},
			func(r Result) Result {
				if !settled {
					settled = true
					reject(r)
				}
				return nil
			},
		)
	}

	return result
}

// Any returns a deferred that fulfills with the first input to fulfill.
//
// Behavior:
//   - An empty input rejects with an [AggregateError] holding no errors
//   - Fulfills with the value of the first input to fulfill; later
//     settlements are ignored
//   - Rejects with an [AggregateError] only once ALL inputs have rejected,
//     with reasons in input order
func (l *Loop) Any(ds []*Deferred) *Deferred {
	result, resolve, reject := l.WithResolvers()

	if len(ds) == 0 {
		reject(&AggregateError{
			Message: "all deferreds were rejected",
			Errors:  []error{},
		})
		return result
	}

	reasons := make([]Result, len(ds))
	remaining := len(ds)
	fulfilled := false

	for i, d := range ds {
		idx := i
		d.Then(
			func(v Result) Result {
				if !fulfilled {
					fulfilled = true
					resolve(v)
				}
				return nil
			},
			func(r Result) Result {
				reasons[idx] = r
				remaining--
				if remaining == 0 && !fulfilled {
					errs := make([]error, len(reasons))
					for j, reason := range reasons {
						errs[j] = reasonToError(reason)
					}
					reject(&AggregateError{
						Message: "all deferreds were rejected",
						Errors:  errs,
					})
				}
				return nil
			},
		)
	}

	return result
}
