package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	allStates = []State{StateIdle, StateRecording, StateTranscribing, StateError}
	allEvents = []Event{EventStart, EventStop, EventCancel, EventTranscribed, EventFail, EventReset}
)

// legal lists every accepted move other than fail.
var legal = map[[2]string]State{
	{"idle", "start"}:               StateRecording,
	{"recording", "stop"}:           StateTranscribing,
	{"recording", "cancel"}:         StateIdle,
	{"transcribing", "transcribed"}: StateIdle,
	{"error", "reset"}:              StateIdle,
}

func TestTransitionEveryPair(t *testing.T) {
	for _, from := range allStates {
		for _, event := range allEvents {
			t.Run(string(from)+"+"+string(event), func(t *testing.T) {
				next, err := Transition(from, event)

				if event == EventFail {
					require.NoError(t, err)
					require.Equal(t, StateError, next)
					return
				}
				want, ok := legal[[2]string{string(from), string(event)}]
				if !ok {
					require.ErrorContains(t, err, "invalid transition")
					require.Equal(t, from, next, "rejected move keeps the state")
					return
				}
				require.NoError(t, err)
				require.Equal(t, want, next)
			})
		}
	}
}

func TestDictationRoundTrip(t *testing.T) {
	state := StateIdle
	for _, event := range []Event{EventStart, EventStop, EventTranscribed, EventStart, EventCancel} {
		var err error
		state, err = Transition(state, event)
		require.NoError(t, err, "event %s", event)
	}
	require.Equal(t, StateIdle, state)
}

func TestTransitionUnknownState(t *testing.T) {
	next, err := Transition("paused", EventStart)
	require.ErrorContains(t, err, `unknown state "paused"`)
	require.Equal(t, State("paused"), next)
}

func TestBusy(t *testing.T) {
	busy := map[State]bool{StateRecording: true, StateTranscribing: true}
	for _, s := range allStates {
		require.Equal(t, busy[s], s.Busy(), string(s))
	}
}
