package rag

import (
	"fmt"
	"slices"
	"sync"
)

// State is the lifecycle position of a single query.
type State string

const (
	StateIdle       State = "idle"
	StateEmbedding  State = "embedding"
	StateRetrieving State = "retrieving"
	StateNoContext  State = "no_context"
	StateGenerating State = "generating"
	StateSourcing   State = "sourcing"
)

// ValidTransitions lists the states reachable from each state. Returning to
// Idle from a working state is how a failed or canceled query unwinds.
var ValidTransitions = map[State][]State{
	StateIdle:       {StateEmbedding},
	StateEmbedding:  {StateRetrieving, StateIdle},
	StateRetrieving: {StateNoContext, StateGenerating, StateIdle},
	StateNoContext:  {}, // terminal
	StateGenerating: {StateSourcing, StateIdle},
	StateSourcing:   {StateIdle},
}

// CanTransitionTo reports whether next is reachable from s.
func (s State) CanTransitionTo(next State) bool {
	return slices.Contains(ValidTransitions[s], next)
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateNoContext
}

// Hint is the status line shown to a reader while the query is in s.
func (s State) Hint() string {
	switch s {
	case StateEmbedding, StateRetrieving:
		return "searching document"
	case StateGenerating:
		return "generating answer"
	case StateSourcing:
		return "sourcing citations"
	case StateNoContext:
		return "no relevant information"
	default:
		return ""
	}
}

// Observer is notified after every successful transition.
type Observer func(queryID string, from, to State)

// Machine tracks one query. It is safe for concurrent use.
type Machine struct {
	mu       sync.Mutex
	queryID  string
	state    State
	observer Observer
}

// NewMachine starts a machine in Idle. observer may be nil.
func NewMachine(queryID string, observer Observer) *Machine {
	return &Machine{queryID: queryID, state: StateIdle, observer: observer}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// To moves the machine to next.
func (m *Machine) To(next State) error {
	m.mu.Lock()
	from := m.state
	if !from.CanTransitionTo(next) {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, next)
	}
	m.state = next
	m.mu.Unlock()

	if m.observer != nil {
		m.observer(m.queryID, from, next)
	}
	return nil
}

// Abort returns a working machine to Idle. It is a no-op in Idle or in a
// terminal state.
func (m *Machine) Abort() {
	if s := m.State(); s == StateIdle || s.IsTerminal() {
		return
	}
	_ = m.To(StateIdle)
}
