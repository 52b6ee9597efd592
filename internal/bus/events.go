package bus

import "github.com/godbus/dbus/v5"

// EventKind names one push notification from the speech service.
type EventKind string

const (
	EventRecordingStarted   EventKind = "recording_started"
	EventRecordingStopped   EventKind = "recording_stopped"
	EventTranscriptionReady EventKind = "transcription_ready"
	EventRecordingError     EventKind = "recording_error"
	EventTextTyped          EventKind = "text_typed"
	EventTextCopied         EventKind = "text_copied"
	EventServiceGone        EventKind = "service_gone"
)

// Reasons carried by a RecordingStopped notification.
const (
	StopReasonRecorded  = "recorded"
	StopReasonCancelled = "cancelled"
	StopReasonFailed    = "failed"
)

// Event is a typed push notification. Only the fields relevant to Kind are
// populated.
type Event struct {
	Kind      EventKind
	SessionID string
	Text      string
	Reason    string
	Message   string
	Success   bool
}

// SessionBound reports whether the event belongs to a specific recording
// session and must pass signal-guard validation. TextTyped/TextCopied carry
// no session identifier, and ServiceGone is a bus-level observation.
func (e Event) SessionBound() bool {
	switch e.Kind {
	case EventRecordingStarted, EventRecordingStopped, EventTranscriptionReady, EventRecordingError:
		return true
	default:
		return false
	}
}

const nameOwnerChangedMember = "org.freedesktop.DBus.NameOwnerChanged"

// mapSignal converts a raw bus signal into a typed Event. Signals from other
// interfaces, malformed bodies, and name-ownership changes that do not lose
// the watched owner are dropped.
func mapSignal(iface, watchedName string, sig *dbus.Signal) (Event, bool) {
	if sig == nil {
		return Event{}, false
	}

	if sig.Name == nameOwnerChangedMember {
		if len(sig.Body) != 3 {
			return Event{}, false
		}
		name, _ := sig.Body[0].(string)
		oldOwner, _ := sig.Body[1].(string)
		newOwner, _ := sig.Body[2].(string)
		if name != watchedName {
			return Event{}, false
		}
		// Appearance (no previous owner) is not a loss. A replaced owner
		// means the process a session was speaking to is gone.
		if oldOwner == "" {
			return Event{}, false
		}
		if newOwner == "" {
			return Event{Kind: EventServiceGone, Reason: "name released"}, true
		}
		return Event{Kind: EventServiceGone, Reason: "owner replaced"}, true
	}

	prefix := iface + "."
	if len(sig.Name) <= len(prefix) || sig.Name[:len(prefix)] != prefix {
		return Event{}, false
	}

	switch sig.Name[len(prefix):] {
	case "RecordingStarted":
		id, ok := stringArg(sig.Body, 0)
		if !ok {
			return Event{}, false
		}
		return Event{Kind: EventRecordingStarted, SessionID: id}, true
	case "RecordingStopped":
		id, ok := stringArg(sig.Body, 0)
		reason, ok2 := stringArg(sig.Body, 1)
		if !ok || !ok2 {
			return Event{}, false
		}
		return Event{Kind: EventRecordingStopped, SessionID: id, Reason: reason}, true
	case "TranscriptionReady":
		id, ok := stringArg(sig.Body, 0)
		text, ok2 := stringArg(sig.Body, 1)
		if !ok || !ok2 {
			return Event{}, false
		}
		return Event{Kind: EventTranscriptionReady, SessionID: id, Text: text}, true
	case "RecordingError":
		id, ok := stringArg(sig.Body, 0)
		message, ok2 := stringArg(sig.Body, 1)
		if !ok || !ok2 {
			return Event{}, false
		}
		return Event{Kind: EventRecordingError, SessionID: id, Message: message}, true
	case "TextTyped":
		text, ok := stringArg(sig.Body, 0)
		success, ok2 := boolArg(sig.Body, 1)
		if !ok || !ok2 {
			return Event{}, false
		}
		return Event{Kind: EventTextTyped, Text: text, Success: success}, true
	case "TextCopied":
		text, ok := stringArg(sig.Body, 0)
		success, ok2 := boolArg(sig.Body, 1)
		if !ok || !ok2 {
			return Event{}, false
		}
		return Event{Kind: EventTextCopied, Text: text, Success: success}, true
	default:
		return Event{}, false
	}
}

func stringArg(body []interface{}, index int) (string, bool) {
	if index >= len(body) {
		return "", false
	}
	value, ok := body[index].(string)
	return value, ok
}

func boolArg(body []interface{}, index int) (bool, bool) {
	if index >= len(body) {
		return false, false
	}
	value, ok := body[index].(bool)
	return value, ok
}
