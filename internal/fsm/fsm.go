// Package fsm models the dictation session lifecycle.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle       State = "idle"
	StateListening  State = "listening"
	StateFinalizing State = "finalizing"
	StateError      State = "error"
)

const (
	EventStart     Event = "start"
	EventStop      Event = "stop"
	EventCancel    Event = "cancel"
	EventCommitted Event = "committed"
	EventFail      Event = "fail"
	EventReset     Event = "reset"
)

// transitions is the closed lifecycle graph. EventFail is legal from every
// state and handled before the table lookup.
var transitions = map[State]map[Event]State{
	StateIdle: {
		EventStart: StateListening,
	},
	StateListening: {
		EventStop:   StateFinalizing,
		EventCancel: StateIdle,
	},
	StateFinalizing: {
		EventCommitted: StateIdle,
	},
	StateError: {
		EventReset: StateIdle,
	},
}

// Transition applies one event and returns the next state.
func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateError, nil
	}

	row, ok := transitions[current]
	if !ok {
		return current, fmt.Errorf("unknown state %q", current)
	}
	next, ok := row[event]
	if !ok {
		return current, fmt.Errorf("invalid transition: %s --(%s)--> ?", current, event)
	}
	return next, nil
}
