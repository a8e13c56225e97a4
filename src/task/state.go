package task

import (
	"strings"
	"sync/atomic"
)

// State is the lifecycle state of a task: Init, Run, Stop or Done.
type State uint32

const (
	// Init is the state of a task whose thread was never started.
	Init State = iota

	// Run is the state in which the entry-point function of the task is
	// executing on its thread.
	Run

	// Stop is the state of a task that was asked to stop, or that could not
	// be started.
	Stop

	// Done is the state of a task whose entry-point function returned.
	Done
)

// String returns the value stored in the state field of a task node.
func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case Run:
		return "run"
	case Stop:
		return "stop"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// ParseState is the reverse of String. It is case-insensitive.
func ParseState(s string) (State, bool) {
	switch strings.ToLower(s) {
	case "init":
		return Init, true
	case "run":
		return Run, true
	case "stop":
		return Stop, true
	case "done":
		return Done, true
	}
	return Init, false
}

// stateManager wraps a State with atomic get and set methods, so that the
// state of a thread can be read from other goroutines.
type stateManager struct {
	state State
}

// GetState returns the current state.
func (m *stateManager) GetState() State {
	stateAddr := (*uint32)(&m.state)
	return State(atomic.LoadUint32(stateAddr))
}

// SetState sets the state.
func (m *stateManager) SetState(s State) {
	stateAddr := (*uint32)(&m.state)
	atomic.StoreUint32(stateAddr, uint32(s))
}
