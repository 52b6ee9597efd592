package render

import (
	"testing"
	"time"

	"github.com/rbright/parlo/internal/config"
	"github.com/rbright/parlo/internal/fsm"
)

func recordingTiming(elapsed, max time.Duration) Timing {
	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return Timing{Now: started.Add(elapsed), StartedAt: started, MaxDuration: max}
}

func TestDecideRecordingByMode(t *testing.T) {
	timing := recordingTiming(10*time.Second, 60*time.Second)
	view := View{State: fsm.StateRecording, Timing: timing}

	cases := []struct {
		mode     config.DisplayMode
		surface  Surface
		wantTick bool
	}{
		{config.DisplayAlways, SurfaceModal, true},
		{config.DisplayFocused, SurfaceModal, true},
		{config.DisplayNormal, SurfaceIndicator, false},
		{config.DisplaySilent, SurfaceIndicator, false},
	}
	for _, tc := range cases {
		action := Decide(view, tc.mode)
		if action.Surface != tc.surface {
			t.Fatalf("mode %s: surface = %s, want %s", tc.mode, action.Surface, tc.surface)
		}
		if action.Tick != tc.wantTick {
			t.Fatalf("mode %s: tick = %v, want %v", tc.mode, action.Tick, tc.wantTick)
		}
		if action.Remaining != 50*time.Second {
			t.Fatalf("mode %s: remaining = %s, want 50s", tc.mode, action.Remaining)
		}
	}
}

func TestDecideRecordingModalContent(t *testing.T) {
	view := View{State: fsm.StateRecording, Timing: recordingTiming(18*time.Second, 60*time.Second)}
	action := Decide(view, config.DisplayAlways)

	if action.Modal != ModalCountdown {
		t.Fatalf("modal = %s, want countdown", action.Modal)
	}
	if action.Body != "0:42" {
		t.Fatalf("body = %q, want 0:42", action.Body)
	}
	if action.Tier != TierNormal {
		t.Fatalf("tier = %s, want normal", action.Tier)
	}
}

func TestDecideProcessingByMode(t *testing.T) {
	view := View{State: fsm.StateProcessing}

	cases := []struct {
		mode    config.DisplayMode
		surface Surface
	}{
		{config.DisplayAlways, SurfaceModal},
		{config.DisplayFocused, SurfaceIndicator},
		{config.DisplayNormal, SurfaceToast},
		{config.DisplaySilent, SurfaceIndicator},
	}
	for _, tc := range cases {
		action := Decide(view, tc.mode)
		if action.Surface != tc.surface {
			t.Fatalf("mode %s: surface = %s, want %s", tc.mode, action.Surface, tc.surface)
		}
	}

	action := Decide(view, config.DisplayAlways)
	if action.Modal != ModalIndeterminate {
		t.Fatalf("modal = %s, want indeterminate", action.Modal)
	}
	if action.Tick {
		t.Fatal("processing render must not tick")
	}
}

func TestDecidePreviewIgnoresMode(t *testing.T) {
	view := View{State: fsm.StatePreview, PreviewText: "hello world"}
	for _, mode := range []config.DisplayMode{config.DisplayAlways, config.DisplayFocused, config.DisplayNormal, config.DisplaySilent} {
		action := Decide(view, mode)
		if action.Surface != SurfaceModal {
			t.Fatalf("mode %s: surface = %s, want modal", mode, action.Surface)
		}
		if action.Modal != ModalPreview {
			t.Fatalf("mode %s: modal = %s, want preview", mode, action.Modal)
		}
		if action.Body != "hello world" {
			t.Fatalf("mode %s: body = %q", mode, action.Body)
		}
	}
}

func TestDecideErrorCriticalAlwaysModal(t *testing.T) {
	view := View{State: fsm.StateError, ErrorMessage: "speech service unreachable", ErrorCritical: true}
	for _, mode := range []config.DisplayMode{config.DisplayAlways, config.DisplayFocused, config.DisplayNormal, config.DisplaySilent} {
		action := Decide(view, mode)
		if action.Surface != SurfaceModal || action.Modal != ModalError {
			t.Fatalf("mode %s: got %s/%s, want modal/error", mode, action.Surface, action.Modal)
		}
		if action.AutoClear {
			t.Fatalf("mode %s: critical errors wait for acknowledgement", mode)
		}
	}
}

func TestDecideErrorNonCriticalToastsAndClears(t *testing.T) {
	view := View{State: fsm.StateError, ErrorMessage: "microphone unavailable"}
	for _, mode := range []config.DisplayMode{config.DisplayAlways, config.DisplayFocused, config.DisplayNormal, config.DisplaySilent} {
		action := Decide(view, mode)
		if action.Surface != SurfaceToast {
			t.Fatalf("mode %s: surface = %s, want toast", mode, action.Surface)
		}
		if !action.AutoClear {
			t.Fatalf("mode %s: non-critical errors auto-return to idle", mode)
		}
		if action.Body != "microphone unavailable" {
			t.Fatalf("mode %s: body = %q", mode, action.Body)
		}
	}
}

func TestDecideIdleClearsSurfaces(t *testing.T) {
	action := Decide(View{State: fsm.StateIdle}, config.DisplayAlways)
	if action.Surface != SurfaceNone {
		t.Fatalf("surface = %s, want none", action.Surface)
	}
}

func TestTimingClamps(t *testing.T) {
	timing := recordingTiming(90*time.Second, 60*time.Second)
	if timing.Remaining() != 0 {
		t.Fatalf("remaining = %s, want 0", timing.Remaining())
	}
	if timing.Progress() != 1 {
		t.Fatalf("progress = %f, want 1", timing.Progress())
	}

	zero := Timing{Now: time.Now()}
	if zero.Elapsed() != 0 {
		t.Fatal("zero start must report zero elapsed")
	}
	if zero.Progress() != 0 {
		t.Fatal("zero limit must report zero progress")
	}
}

func TestTimingTierBoundaries(t *testing.T) {
	max := 100 * time.Second
	cases := []struct {
		elapsed time.Duration
		want    Tier
	}{
		{0, TierNormal},
		{79 * time.Second, TierNormal},
		{80 * time.Second, TierWarning},
		{95 * time.Second, TierWarning},
		{96 * time.Second, TierCritical},
		{200 * time.Second, TierCritical},
	}
	for _, tc := range cases {
		timing := recordingTiming(tc.elapsed, max)
		if got := timing.Tier(); got != tc.want {
			t.Fatalf("elapsed %s: tier = %s, want %s", tc.elapsed, got, tc.want)
		}
	}
}

func TestFormatRemaining(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{9 * time.Second, "0:09"},
		{42 * time.Second, "0:42"},
		{65 * time.Second, "1:05"},
		{10 * time.Minute, "10:00"},
		{-3 * time.Second, "0:00"},
	}
	for _, tc := range cases {
		if got := FormatRemaining(tc.in); got != tc.want {
			t.Fatalf("FormatRemaining(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
