package browser

import (
	"fmt"
	"sync"
)

// State is the lifecycle state of a controller. It is owned exclusively
// by the Controller; callers only observe it.
type State string

const (
	StateIdle         State = "idle"
	StateInitializing State = "initializing"
	StateLoggingIn    State = "logging_in"
	StateRunning      State = "running"
	StateCompleted    State = "completed"
	StateError        State = "error"
	StateStopped      State = "stopped"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateError, StateStopped:
		return true
	}
	return false
}

// validTransitions encodes the lifecycle: Idle → Initializing →
// LoggingIn → Running → {Completed, Error, Stopped}. LoggingIn may loop
// back through Initializing for an authentication retry. Stopped is
// reachable only from LoggingIn and Running, via the cooperative flag.
var validTransitions = map[State][]State{
	StateIdle:         {StateInitializing},
	StateInitializing: {StateLoggingIn, StateError},
	StateLoggingIn:    {StateRunning, StateInitializing, StateCompleted, StateError, StateStopped},
	StateRunning:      {StateCompleted, StateError, StateStopped},
}

// stateMachine guards the controller state and rejects transitions the
// lifecycle does not allow.
type stateMachine struct {
	mu      sync.RWMutex
	current State
}

func newStateMachine() *stateMachine {
	return &stateMachine{current: StateIdle}
}

func (m *stateMachine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

func (m *stateMachine) transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, allowed := range validTransitions[m.current] {
		if allowed == to {
			m.current = to
			return nil
		}
	}
	return fmt.Errorf("invalid state transition %s -> %s", m.current, to)
}

// mustTransition applies a transition the call site knows is legal;
// a rejection there is a programming error.
func (m *stateMachine) mustTransition(to State) {
	if err := m.transition(to); err != nil {
		panic(err)
	}
}
