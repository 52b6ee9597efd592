package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateProcessing State = "processing"
	StatePreview    State = "preview"
	StateError      State = "error"
)

const (
	EventStart       Event = "start"
	EventStopped     Event = "stopped"
	EventCancel      Event = "cancel"
	EventNoSpeech    Event = "no_speech"
	EventAutoApplied Event = "auto_applied"
	EventReview      Event = "review"
	EventInsert      Event = "insert"
	EventCopy        Event = "copy"
	EventDismiss     Event = "dismiss"
	EventFail        Event = "fail"
	EventReset       Event = "reset"
)

// Live reports whether a session is in flight. Idle is the only non-live state.
func (s State) Live() bool {
	return s != StateIdle
}

// Transition returns the state reached by applying event to current.
// EventFail and EventReset are accepted from every state: failures always
// land in StateError, and a forced reset always lands in StateIdle.
func Transition(current State, event Event) (State, error) {
	switch event {
	case EventFail:
		return StateError, nil
	case EventReset:
		return StateIdle, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateRecording, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRecording:
		switch event {
		case EventStopped:
			return StateProcessing, nil
		case EventCancel:
			return StateIdle, nil
		case EventNoSpeech, EventAutoApplied:
			return StateIdle, nil
		case EventReview:
			return StatePreview, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateProcessing:
		switch event {
		case EventCancel:
			return StateIdle, nil
		case EventNoSpeech, EventAutoApplied:
			return StateIdle, nil
		case EventReview:
			return StatePreview, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StatePreview:
		switch event {
		case EventInsert, EventCopy, EventDismiss:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateError:
		switch event {
		case EventDismiss:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
