// Package fsm defines the dictation lifecycle states and the legal moves between them.
package fsm

import "fmt"

// State is a dictation lifecycle state.
type State string

// Event drives a State change.
type Event string

const (
	StateIdle         State = "idle"
	StateRecording    State = "recording"
	StateTranscribing State = "transcribing"
	StateError        State = "error"
)

const (
	EventStart       Event = "start"
	EventStop        Event = "stop"
	EventCancel      Event = "cancel"
	EventTranscribed Event = "transcribed"
	EventFail        Event = "fail"
	EventReset       Event = "reset"
)

// EventFail is accepted from every state and is not listed here.
var transitions = map[State]map[Event]State{
	StateIdle: {
		EventStart: StateRecording,
	},
	StateRecording: {
		EventStop:   StateTranscribing,
		EventCancel: StateIdle,
	},
	StateTranscribing: {
		EventTranscribed: StateIdle,
	},
	StateError: {
		EventReset: StateIdle,
	},
}

// Transition returns the state reached from current on event. An illegal move
// returns current unchanged with an error.
func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateError, nil
	}

	moves, ok := transitions[current]
	if !ok {
		return current, fmt.Errorf("unknown state %q", current)
	}
	next, ok := moves[event]
	if !ok {
		return current, fmt.Errorf("invalid transition: %s --(%s)--> ?", current, event)
	}
	return next, nil
}

// Busy reports whether a dictation is in flight.
func (s State) Busy() bool {
	return s == StateRecording || s == StateTranscribing
}
