package microloop

// Metrics is a snapshot of loop counters, collected when the loop was
// created with [WithMetrics]. All counters are cumulative since creation.
//
// There are deliberately no latency percentiles here: the loop has no wall
// clock, so the only meaningful measures are counts and logical ticks.
type Metrics struct {
	// MicrotasksExecuted counts microtask bodies run to completion
	// (including ones that panicked).
	MicrotasksExecuted uint64
	// MacrotasksExecuted counts macrotask bodies run to completion.
	MacrotasksExecuted uint64
	// Ticks is the current logical tick.
	Ticks uint64
	// TaskPanics counts exceptions that escaped a task's top level.
	TaskPanics uint64
	// UnhandledRejections counts rejected Deferreds that had no rejection
	// handler by the time the microtask queue drained.
	UnhandledRejections uint64
	// MacrotasksCancelled counts macrotasks removed via [Loop.Cancel].
	MacrotasksCancelled uint64
}

// Metrics returns a snapshot of the loop's counters. If the loop was not
// created with [WithMetrics], all counters are zero except Ticks, which is
// always tracked.
func (l *Loop) Metrics() Metrics {
	m := l.metrics
	m.Ticks = l.tick
	return m
}

func (l *Loop) countMicrotask() {
	if l.metricsEnabled {
		l.metrics.MicrotasksExecuted++
	}
}

func (l *Loop) countMacrotask() {
	if l.metricsEnabled {
		l.metrics.MacrotasksExecuted++
	}
}

func (l *Loop) countTaskPanic() {
	if l.metricsEnabled {
		l.metrics.TaskPanics++
	}
}

func (l *Loop) countUnhandledRejection() {
	if l.metricsEnabled {
		l.metrics.UnhandledRejections++
	}
}

func (l *Loop) countCancelled() {
	if l.metricsEnabled {
		l.metrics.MacrotasksCancelled++
	}
}
