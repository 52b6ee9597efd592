// Package session owns the recording lifecycle: the live session record, the
// signal guard that filters service notifications, and the controller that
// applies every state transition on a single event loop.
package session

import (
	"time"

	"github.com/rbright/parlo/internal/bus"
	"github.com/rbright/parlo/internal/config"
	"github.com/rbright/parlo/internal/output"
)

// Session is the unit of work for one recording-to-text cycle. The controller
// owns it exclusively; every field is read and written on the event loop.
type Session struct {
	ID          string
	StartedAt   time.Time
	MaxDuration time.Duration
	Action      config.PostAction
	Cancelled   bool

	Transcript    string
	ErrorDetail   string
	ErrorCritical bool
}

// newSession freezes the parameters a session runs under. Configuration
// changes after this point apply to the next session, not this one.
func newSession(id string, cfg config.RecordingConfig, action config.PostAction, now time.Time) *Session {
	return &Session{
		ID:          id,
		StartedAt:   now,
		MaxDuration: time.Duration(cfg.MaxDurationSeconds) * time.Second,
		Action:      action,
	}
}

// EffectiveAction resolves the post action a session will actually run with.
// When the environment cannot inject synthetic keystrokes, typing actions
// degrade to their nearest achievable neighbor: type_and_copy keeps its
// clipboard half, type_only falls back to a review preview.
func EffectiveAction(configured config.PostAction, caps output.Capabilities) config.PostAction {
	if caps.CanType {
		return configured
	}
	switch configured {
	case config.PostActionTypeAndCopy:
		return config.PostActionCopyOnly
	case config.PostActionTypeOnly:
		return config.PostActionPreview
	default:
		return configured
	}
}

// Outcome summarizes how a session concluded.
type Outcome string

const (
	OutcomeInserted    Outcome = "inserted"
	OutcomeCopied      Outcome = "copied"
	OutcomeAutoApplied Outcome = "auto_applied"
	OutcomeDismissed   Outcome = "dismissed"
	OutcomeCancelled   Outcome = "cancelled"
	OutcomeNoSpeech    Outcome = "no_speech"
	OutcomeFailed      Outcome = "failed"
	OutcomeReset       Outcome = "reset"
	OutcomeServiceGone Outcome = "service_gone"
)

// Result is what one Run invocation hands back to the caller.
type Result struct {
	Outcome    Outcome
	Transcript string
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// processedKey identifies one notification delivery for duplicate tracking.
type processedKey struct {
	id   string
	kind bus.EventKind
}
