// Package render maps session state and display configuration to a
// presentation verdict. Decide is pure: the same state, mode, and timing
// snapshot always produce the same action, which keeps the policy testable
// without any surface attached.
package render

import (
	"fmt"
	"time"

	"github.com/rbright/parlo/internal/config"
	"github.com/rbright/parlo/internal/fsm"
)

// Surface names the one presentation channel an action drives. The panel
// indicator additionally mirrors the session state on every render
// regardless of which surface holds attention.
type Surface string

const (
	SurfaceNone      Surface = "none"
	SurfaceIndicator Surface = "indicator"
	SurfaceModal     Surface = "modal"
	SurfaceToast     Surface = "toast"
)

// ModalKind selects the modal layout.
type ModalKind string

const (
	ModalCountdown     ModalKind = "countdown"
	ModalIndeterminate ModalKind = "indeterminate"
	ModalPreview       ModalKind = "preview"
	ModalError         ModalKind = "error"
)

// Tier is the countdown color tier.
type Tier string

const (
	TierNormal   Tier = "normal"
	TierWarning  Tier = "warning"
	TierCritical Tier = "critical"
)

// Timing is the countdown snapshot for recording renders. Now is supplied by
// the caller so renders are reproducible.
type Timing struct {
	Now         time.Time
	StartedAt   time.Time
	MaxDuration time.Duration
}

// Elapsed is time spent recording, never negative.
func (t Timing) Elapsed() time.Duration {
	if t.StartedAt.IsZero() || t.Now.Before(t.StartedAt) {
		return 0
	}
	return t.Now.Sub(t.StartedAt)
}

// Remaining is the countdown value, clamped at zero once the limit passes.
func (t Timing) Remaining() time.Duration {
	remaining := t.MaxDuration - t.Elapsed()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Progress is elapsed over the limit, clamped to [0, 1].
func (t Timing) Progress() float64 {
	if t.MaxDuration <= 0 {
		return 0
	}
	progress := float64(t.Elapsed()) / float64(t.MaxDuration)
	if progress > 1 {
		return 1
	}
	return progress
}

// Tier buckets Progress: normal below 80%, warning from 80% through 95%,
// critical past 95%.
func (t Timing) Tier() Tier {
	progress := t.Progress()
	switch {
	case progress > 0.95:
		return TierCritical
	case progress >= 0.80:
		return TierWarning
	default:
		return TierNormal
	}
}

// View is the slice of session state the policy needs.
type View struct {
	State         fsm.State
	Timing        Timing
	PreviewText   string
	ErrorMessage  string
	ErrorCritical bool
}

// Action is the policy's verdict. Tick asks the caller to re-render in about
// a second; AutoClear asks it to return the session to idle once the toast
// is dispatched.
type Action struct {
	Surface Surface

	Modal ModalKind
	Title string
	Body  string

	Remaining time.Duration
	Progress  float64
	Tier      Tier

	Tick      bool
	AutoClear bool
}

// Decide computes the presentation for a session snapshot. The display mode
// is read fresh on every call; unlike the fields frozen into a session at
// start, presentation follows configuration changes immediately.
func Decide(view View, mode config.DisplayMode) Action {
	switch view.State {
	case fsm.StateRecording:
		return decideRecording(view.Timing, mode)
	case fsm.StateProcessing:
		return decideProcessing(mode)
	case fsm.StatePreview:
		// Preview always takes the modal; review means a decision is
		// pending and a toast cannot collect one.
		return Action{Surface: SurfaceModal, Modal: ModalPreview, Title: "Transcription ready", Body: view.PreviewText}
	case fsm.StateError:
		if view.ErrorCritical {
			return Action{Surface: SurfaceModal, Modal: ModalError, Title: "Speech service error", Body: view.ErrorMessage}
		}
		return Action{Surface: SurfaceToast, Title: "Recording failed", Body: view.ErrorMessage, AutoClear: true}
	default:
		return Action{Surface: SurfaceNone}
	}
}

func decideRecording(timing Timing, mode config.DisplayMode) Action {
	remaining := timing.Remaining()
	action := Action{
		Remaining: remaining,
		Progress:  timing.Progress(),
		Tier:      timing.Tier(),
	}

	switch mode {
	case config.DisplayAlways, config.DisplayFocused:
		action.Surface = SurfaceModal
		action.Modal = ModalCountdown
		action.Title = "Recording"
		action.Body = FormatRemaining(remaining)
		action.Tick = true
	default:
		action.Surface = SurfaceIndicator
	}
	return action
}

func decideProcessing(mode config.DisplayMode) Action {
	switch mode {
	case config.DisplayAlways:
		return Action{Surface: SurfaceModal, Modal: ModalIndeterminate, Title: "Transcribing", Body: "Converting speech to text"}
	case config.DisplayNormal:
		return Action{Surface: SurfaceToast, Title: "Transcribing", Body: "Converting speech to text"}
	default:
		return Action{Surface: SurfaceIndicator}
	}
}

// FormatRemaining renders a countdown as m:ss.
func FormatRemaining(remaining time.Duration) string {
	seconds := int(remaining.Round(time.Second) / time.Second)
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
