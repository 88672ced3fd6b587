package microloop

import (
	"log"
)

// Structured logging helpers.
//
// The loop logs through logiface when a logger was provided via [WithLogger].
// The helpers are panic-safe: a misbehaving logger implementation falls back
// to the stdlib log package rather than taking down the loop.

// logError emits an error-level event with a category field.
func (l *Loop) logError(category, msg string, err error) {
	if l.logger == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("microloop: logger panicked (%v) while logging: %s: %v", r, msg, err)
		}
	}()
	l.logger.Err().
		Err(err).
		Str("category", category).
		Uint64("tick", l.tick).
		Log(msg)
}

// logCritical emits a critical-level event. Used for conditions the loop
// survives but that indicate a broken invariant in user code, such as a task
// panic with no error handler configured.
func (l *Loop) logCritical(category, msg string, err error) {
	if l.logger == nil {
		log.Printf("microloop: %s: %s: %v", category, msg, err)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("microloop: logger panicked (%v) while logging: %s: %v", r, msg, err)
		}
	}()
	l.logger.Crit().
		Err(err).
		Str("category", category).
		Uint64("tick", l.tick).
		Log(msg)
}

// logDebug emits a debug-level event, for lifecycle tracing.
func (l *Loop) logDebug(category, msg string) {
	if l.logger == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("microloop: logger panicked (%v) while logging: %s", r, msg)
		}
	}()
	l.logger.Debug().
		Str("category", category).
		Uint64("tick", l.tick).
		Log(msg)
}
