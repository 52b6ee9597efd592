package session

import (
	"errors"

	"github.com/rbright/parlo/internal/bus"
	"github.com/rbright/parlo/internal/fsm"
)

// Rejection reasons reported by the signal guard.
var (
	errNoLiveSession    = errors.New("no live session")
	errMissingSessionID = errors.New("notification carries no session id")
	errSessionCancelled = errors.New("session cancelled")
	errSessionMismatch  = errors.New("session id mismatch")
	errStaleState       = errors.New("state outside the allowed set")
	errDuplicate        = errors.New("already processed")
)

// allowedSourceStates lists the states each session-bound notification may
// arrive in. A start confirmation is only meaningful while recording; a
// transcript or error may land while still recording (the service stopped on
// its own) or while waiting for transcription.
var allowedSourceStates = map[bus.EventKind]map[fsm.State]bool{
	bus.EventRecordingStarted:   {fsm.StateRecording: true},
	bus.EventRecordingStopped:   {fsm.StateRecording: true},
	bus.EventTranscriptionReady: {fsm.StateRecording: true, fsm.StateProcessing: true},
	bus.EventRecordingError:     {fsm.StateRecording: true, fsm.StateProcessing: true},
}

// admitEvent validates one session-bound notification against the live
// session. Cancellation wins over everything except a missing session, so a
// notification for a cancelled session is dropped even when every other check
// would pass. Accepting records the (session, kind) pair in processed before
// the caller runs any transition, which blocks duplicate deliveries for good.
func admitEvent(sess *Session, state fsm.State, processed map[processedKey]struct{}, event bus.Event) error {
	if sess == nil || sess.ID == "" {
		return errNoLiveSession
	}
	if event.SessionID == "" {
		return errMissingSessionID
	}
	if sess.Cancelled {
		return errSessionCancelled
	}
	if event.SessionID != sess.ID {
		return errSessionMismatch
	}
	if !allowedSourceStates[event.Kind][state] {
		return errStaleState
	}
	key := processedKey{id: event.SessionID, kind: event.Kind}
	if _, seen := processed[key]; seen {
		return errDuplicate
	}
	processed[key] = struct{}{}
	return nil
}
