package microloop

// LoopState represents the current state of the loop.
//
// State Machine:
//
//	StateIdle (0) → StateRunning (1)        [RunUntilIdle()]
//	StateRunning (1) → StateIdle (0)        [RunUntilIdle() returns]
//	StateIdle (0) → StateTerminated (2)     [Close()]
//	StateRunning (1) → StateTerminated (2)  [Close() from within a task]
//	StateTerminated (2) → (terminal)
//
// The loop is single-goroutine by contract, so transitions are plain stores
// guarded by TryTransition checks rather than atomics.
type LoopState uint8

const (
	// StateIdle indicates the loop is not currently draining its queues.
	// Work may be scheduled in this state.
	StateIdle LoopState = iota
	// StateRunning indicates RunUntilIdle is actively processing tasks.
	StateRunning
	// StateTerminated indicates the loop has been closed. Terminal.
	StateTerminated
)

// String returns a human-readable representation of the state.
func (s LoopState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// loopStateMachine is the loop's lifecycle state holder.
//
// Transition discipline: use TryTransition for reversible states
// (Idle/Running) and Store only for the irreversible Terminated state.
type loopStateMachine struct {
	v LoopState
}

// Load returns the current state.
func (s *loopStateMachine) Load() LoopState {
	return s.v
}

// Store unconditionally stores a new state. Reserved for terminal
// transitions.
func (s *loopStateMachine) Store(state LoopState) {
	s.v = state
}

// TryTransition transitions from one state to another, returning true on
// success and false if the current state did not match.
func (s *loopStateMachine) TryTransition(from, to LoopState) bool {
	if s.v != from {
		return false
	}
	s.v = to
	return true
}

// IsTerminal returns true if the loop has been closed.
func (s *loopStateMachine) IsTerminal() bool {
	return s.v == StateTerminated
}

// CanAcceptWork returns true if the loop can accept new tasks.
func (s *loopStateMachine) CanAcceptWork() bool {
	return s.v != StateTerminated
}
