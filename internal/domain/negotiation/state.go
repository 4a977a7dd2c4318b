package negotiation

import (
	"fmt"
	"time"
)

// State represents the current lifecycle state of a negotiation.
type State string

const (
	StateCreated           State = "created"
	StateOutreachSent      State = "outreach_sent"
	StateAwaitingReply     State = "awaiting_reply"
	StateCounterReceived   State = "counter_received"
	StateAgreed            State = "agreed"
	StateRejected          State = "rejected"
	StateEscalated         State = "escalated"
	StateMaxRoundsExceeded State = "max_rounds_exceeded"
)

// Event drives a transition between lifecycle states.
type Event string

const (
	EvSendOutreach Event = "send_outreach"
	EvAwaitReply   Event = "await_reply"
	EvReceiveReply Event = "receive_reply"
	EvSendCounter  Event = "send_counter"
	EvAccept       Event = "accept"
	EvReject       Event = "reject"
	EvEscalate     Event = "escalate"
	EvExceedRounds Event = "exceed_rounds"
)

// Transition records one accepted state change.
type Transition struct {
	Event Event     `json:"event"`
	From  State     `json:"from"`
	To    State     `json:"to"`
	At    time.Time `json:"at"`
}

// InvalidTransitionError reports an event that is not legal in the current state.
// It is a caller bug, never swallowed.
type InvalidTransitionError struct {
	State State
	Event Event
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: event %q not allowed in state %q", e.Event, e.State)
}

// transitions is the static table of legal (state, event) -> state pairs.
// Anything not listed here is rejected.
var transitions = map[State]map[Event]State{
	StateCreated: {
		EvSendOutreach: StateOutreachSent,
	},
	StateOutreachSent: {
		EvAwaitReply:   StateAwaitingReply,
		EvReceiveReply: StateCounterReceived,
	},
	StateAwaitingReply: {
		EvReceiveReply: StateCounterReceived,
		EvAccept:       StateAgreed,
		EvReject:       StateRejected,
		EvEscalate:     StateEscalated,
		EvExceedRounds: StateMaxRoundsExceeded,
	},
	StateCounterReceived: {
		EvSendCounter:  StateAwaitingReply,
		EvAccept:       StateAgreed,
		EvReject:       StateRejected,
		EvEscalate:     StateEscalated,
		EvExceedRounds: StateMaxRoundsExceeded,
	},
	// Terminal states accept no events.
	StateAgreed:            {},
	StateRejected:          {},
	StateEscalated:         {},
	StateMaxRoundsExceeded: {},
}

// Machine enforces legal lifecycle transitions and remembers every one taken.
// It performs no I/O; all side effects belong to the orchestrator, strictly
// after a successful transition.
type Machine struct {
	current State
	history []Transition
	now     func() time.Time // for testing
}

// NewMachine creates a Machine in StateCreated with empty history.
func NewMachine() *Machine {
	return &Machine{current: StateCreated, now: time.Now}
}

// FromSnapshot reconstructs a Machine directly from persisted values without
// replaying events. Replaying send-type events on restart would re-trigger
// their side effects.
func FromSnapshot(state State, history []Transition) *Machine {
	h := make([]Transition, len(history))
	copy(h, history)
	return &Machine{current: state, history: h, now: time.Now}
}

// Current returns the current lifecycle state.
func (m *Machine) Current() State { return m.current }

// History returns the transitions taken so far, oldest first.
func (m *Machine) History() []Transition {
	h := make([]Transition, len(m.history))
	copy(h, m.history)
	return h
}

// Trigger applies event to the current state. On a legal pair it updates the
// state, appends to history and returns the new state. On an illegal pair it
// returns an *InvalidTransitionError and leaves the state unchanged.
func (m *Machine) Trigger(event Event) (State, error) {
	next, ok := transitions[m.current][event]
	if !ok {
		return m.current, &InvalidTransitionError{State: m.current, Event: event}
	}

	m.history = append(m.history, Transition{
		Event: event,
		From:  m.current,
		To:    next,
		At:    m.now(),
	})
	m.current = next
	return next, nil
}

// IsTerminal reports whether the current state accepts no further events.
func (m *Machine) IsTerminal() bool {
	return len(transitions[m.current]) == 0
}

// Valid reports whether s is one of the eight lifecycle states.
func (s State) Valid() bool {
	_, ok := transitions[s]
	return ok
}
